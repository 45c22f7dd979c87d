// Package gate implements the rule-driven governance state machine:
// rule evaluation over snapshot facts plus the anti-zigzag decider.
package gate

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"gopkg.in/yaml.v3"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// Rule is one loaded gate rule.
//
// Condition DSL: boolean tree over {all, any, not, eq, in, exists} plus the
// shorthand {"dot.path.key": value} equality. 평가 대상은 스냅샷에서 만든
// 중첩 컨텍스트 맵이고, 키는 dot-path로 내려간다.
type Rule struct {
	ID       string         `yaml:"id"`
	Priority string         `yaml:"priority"` // L1 / L2 / L3
	Enabled  *bool          `yaml:"enabled"`
	If       map[string]any `yaml:"if"`
	Then     RuleAction     `yaml:"then"`

	file string
}

// RuleAction is what a matching rule contributes.
type RuleAction struct {
	Gate    string   `yaml:"gate"`
	Reasons []string `yaml:"reasons"`
	Forbid  []string `yaml:"forbid"`
	Stop    bool     `yaml:"stop"`
}

var priorityRank = map[string]int{"L3": 3, "L2": 2, "L1": 1}

// RuleEngine evaluates loaded rules in priority order.
type RuleEngine struct {
	rules      []Rule
	loadErrors []string
	logger     *logger.Logger
}

// LoadRules reads every rule file matching glob. Malformed files are
// skipped and recorded; they never stop the engine.
func LoadRules(glob string, log *logger.Logger) *RuleEngine {
	e := &RuleEngine{logger: log.WithField("component", "gate_rules")}

	paths, err := filepath.Glob(glob)
	if err != nil {
		e.loadErrors = append(e.loadErrors, fmt.Sprintf("bad glob %s: %v", glob, err))
		return e
	}
	sort.Strings(paths)

	for _, path := range paths {
		rule, err := loadRuleFile(path)
		if err != nil {
			e.loadErrors = append(e.loadErrors, fmt.Sprintf("%s: %v", filepath.Base(path), err))
			e.logger.WithError(err).WithField("file", path).Warn("rule file skipped")
			continue
		}
		if rule.Enabled != nil && !*rule.Enabled {
			continue
		}
		e.rules = append(e.rules, rule)
	}

	// L3 먼저, 같은 우선순위는 id 순 — 평가 순서가 결정적이어야 한다
	sort.SliceStable(e.rules, func(i, j int) bool {
		ri, rj := priorityRank[e.rules[i].Priority], priorityRank[e.rules[j].Priority]
		if ri != rj {
			return ri > rj
		}
		return e.rules[i].ID < e.rules[j].ID
	})

	e.logger.WithFields(map[string]interface{}{
		"rules":       len(e.rules),
		"load_errors": len(e.loadErrors),
	}).Info("gate rules loaded")

	return e
}

func loadRuleFile(path string) (Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return Rule{}, err
	}

	var rule Rule
	dec := yaml.NewDecoder(bytes.NewReader(data))
	dec.KnownFields(true)
	if err := dec.Decode(&rule); err != nil {
		return Rule{}, err
	}

	if rule.ID == "" {
		return Rule{}, fmt.Errorf("rule has no id")
	}
	if _, ok := priorityRank[rule.Priority]; !ok {
		return Rule{}, fmt.Errorf("rule %s: bad priority %q", rule.ID, rule.Priority)
	}
	if rule.Then.Gate != "" && !contracts.ValidGate(rule.Then.Gate) {
		return Rule{}, fmt.Errorf("rule %s: bad gate %q", rule.ID, rule.Then.Gate)
	}

	rule.file = path
	return rule, nil
}

// LoadErrors returns the recorded load failures.
func (e *RuleEngine) LoadErrors() []string { return e.loadErrors }

// Rules returns the loaded rules in evaluation order.
func (e *RuleEngine) Rules() []Rule { return e.rules }

// PassResult is the outcome of one evaluation pass.
type PassResult struct {
	Level    string
	Reasons  []string
	Forbid   []string
	Evidence []contracts.RuleEvidence
}

// Apply evaluates all rules against gctx starting from initial. The level
// only ever escalates within one pass (max of current and proposed).
func (e *RuleEngine) Apply(initial string, gctx map[string]any) PassResult {
	res := PassResult{Level: initial, Reasons: []string{}, Forbid: []string{}}
	if !contracts.ValidGate(res.Level) {
		res.Level = contracts.GateNormal
	}

	for _, rule := range e.rules {
		matched, err := evalCondition(rule.If, gctx)
		if err != nil {
			// 평가 실패한 룰은 non-matching으로 취급, 전체는 계속
			e.logger.WithError(err).WithField("rule", rule.ID).Warn("rule evaluation failed")
			continue
		}
		if !matched {
			continue
		}

		if rule.Then.Gate != "" {
			res.Level = contracts.MaxGate(res.Level, rule.Then.Gate)
		}
		res.Reasons = append(res.Reasons, rule.Then.Reasons...)
		res.Forbid = append(res.Forbid, rule.Then.Forbid...)
		res.Evidence = append(res.Evidence, contracts.RuleEvidence{
			RuleID: rule.ID,
			Extra:  map[string]any{"priority": rule.Priority, "gate": rule.Then.Gate},
		})

		if rule.Then.Stop {
			break
		}
	}

	return res
}

// ---------------- condition evaluation ----------------

func evalCondition(cond map[string]any, gctx map[string]any) (bool, error) {
	if len(cond) == 0 {
		return false, fmt.Errorf("empty condition")
	}

	// single recognized operator, or shorthand equality map
	if len(cond) == 1 {
		for op, arg := range cond {
			switch op {
			case "all":
				return evalList(arg, gctx, true)
			case "any":
				return evalList(arg, gctx, false)
			case "not":
				inner, ok := toCondMap(arg)
				if !ok {
					return false, fmt.Errorf("not: operand is not a condition")
				}
				m, err := evalCondition(inner, gctx)
				if err != nil {
					return false, err
				}
				return !m, nil
			case "eq":
				return evalEq(arg, gctx)
			case "in":
				return evalIn(arg, gctx)
			case "exists":
				return evalExists(arg, gctx)
			}
		}
	}

	// shorthand: {"dot.path": value, ...} — all must match
	for key, want := range cond {
		got, ok := lookupPath(gctx, key)
		if !ok || !looseEqual(got, want) {
			return false, nil
		}
	}
	return true, nil
}

func evalList(arg any, gctx map[string]any, requireAll bool) (bool, error) {
	items, ok := arg.([]any)
	if !ok {
		return false, fmt.Errorf("all/any: operand is not a list")
	}
	for _, item := range items {
		cond, ok := toCondMap(item)
		if !ok {
			return false, fmt.Errorf("all/any: element is not a condition")
		}
		matched, err := evalCondition(cond, gctx)
		if err != nil {
			return false, err
		}
		if requireAll && !matched {
			return false, nil
		}
		if !requireAll && matched {
			return true, nil
		}
	}
	return requireAll, nil
}

func evalEq(arg any, gctx map[string]any) (bool, error) {
	m, ok := toCondMap(arg)
	if !ok {
		return false, fmt.Errorf("eq: operand is not a map")
	}
	key, _ := m["key"].(string)
	if key == "" {
		return false, fmt.Errorf("eq: missing key")
	}
	got, found := lookupPath(gctx, key)
	if !found {
		return false, nil
	}
	return looseEqual(got, m["value"]), nil
}

func evalIn(arg any, gctx map[string]any) (bool, error) {
	m, ok := toCondMap(arg)
	if !ok {
		return false, fmt.Errorf("in: operand is not a map")
	}
	key, _ := m["key"].(string)
	if key == "" {
		return false, fmt.Errorf("in: missing key")
	}
	values, ok := m["values"].([]any)
	if !ok {
		return false, fmt.Errorf("in: missing values list")
	}
	got, found := lookupPath(gctx, key)
	if !found {
		return false, nil
	}
	for _, v := range values {
		if looseEqual(got, v) {
			return true, nil
		}
	}
	return false, nil
}

func evalExists(arg any, gctx map[string]any) (bool, error) {
	switch a := arg.(type) {
	case string:
		v, ok := lookupPath(gctx, a)
		return ok && v != nil, nil
	default:
		m, ok := toCondMap(arg)
		if !ok {
			return false, fmt.Errorf("exists: operand is not a key or map")
		}
		key, _ := m["key"].(string)
		if key == "" {
			return false, fmt.Errorf("exists: missing key")
		}
		v, found := lookupPath(gctx, key)
		return found && v != nil, nil
	}
}

func toCondMap(v any) (map[string]any, bool) {
	switch m := v.(type) {
	case map[string]any:
		return m, true
	case map[any]any:
		out := make(map[string]any, len(m))
		for k, val := range m {
			ks, ok := k.(string)
			if !ok {
				return nil, false
			}
			out[ks] = val
		}
		return out, true
	}
	return nil, false
}

// lookupPath walks a nested map by dot-path. A nil intermediate is found
// (value nil); a missing key is not found.
func lookupPath(gctx map[string]any, path string) (any, bool) {
	parts := strings.Split(path, ".")
	var cur any = gctx
	for i, part := range parts {
		m, ok := toCondMap(cur)
		if !ok {
			return nil, false
		}
		v, found := m[part]
		if !found {
			return nil, false
		}
		if i == len(parts)-1 {
			return v, true
		}
		if v == nil {
			return nil, false
		}
		cur = v
	}
	return nil, false
}

// looseEqual compares with numeric coercion so YAML ints match JSON floats.
func looseEqual(a, b any) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	if af, aok := toFloat(a); aok {
		if bf, bok := toFloat(b); bok {
			return af == bf
		}
		return false
	}
	return fmt.Sprint(a) == fmt.Sprint(b)
}

func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}
