package contracts

import (
	"fmt"
	"math"
	"strings"
)

// Unit convention (global, frozen):
//   - fields named "*_ratio" are 0..1 fractions
//   - fields named "*_pct"   are 0..100 percents
//
// 레거시 소스는 두 규약이 섞여 있었다. 소비자 쪽의 ad-hoc 재스케일 대신
// DataSource 경계에서 한 번만 정규화한다.

// NormalizeUnits repairs percents smuggled into "*_ratio" fields in place
// and returns the audit warnings describing every rescale it performed.
// "*_pct" fields are never rescaled: a value like 0.5 can be a legitimate
// small percent (0.5% of the universe at new lows), so fractions there are
// a producer bug that ValidateUnits cannot repair blind.
func NormalizeUnits(fields map[string]any) []string {
	var warnings []string

	for key, v := range fields {
		f, ok := asFloat(v)
		if !ok {
			continue
		}

		if strings.HasSuffix(key, "_ratio") && f > 1.5 {
			// 참 ratio는 1을 넘을 수 없다 — 68.0은 확실히 percent
			fields[key] = f / 100.0
			warnings = append(warnings, fmt.Sprintf("unit_rescale:%s pct->ratio", key))
		}
	}

	return warnings
}

// ValidateUnits reports convention violations that cannot be auto-repaired.
func ValidateUnits(fields map[string]any) []string {
	var violations []string

	for key, v := range fields {
		f, ok := asFloat(v)
		if !ok {
			continue
		}

		switch {
		case strings.HasSuffix(key, "_ratio"):
			if f < 0 || f > 1.0 {
				violations = append(violations, fmt.Sprintf("unit_violation:%s=%v not in [0,1]", key, f))
			}
		case strings.HasSuffix(key, "_pct"):
			if f < -100 || f > 100 {
				violations = append(violations, fmt.Sprintf("unit_violation:%s=%v not in [-100,100]", key, f))
			}
		}
	}

	return violations
}

func asFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		if math.IsNaN(n) || math.IsInf(n, 0) {
			return 0, false
		}
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	}
	return 0, false
}
