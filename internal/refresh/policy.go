// Package refresh centralizes the cache-invalidation policy shared by every
// DataSource. ~30개 소스가 동일한 "refetch or trust cache" 판단을 반복하므로
// 여기서만 결정한다 — 운영자가 코드 수정 없이 전체 강제 갱신 가능.
package refresh

import (
	"os"
	"strings"
)

// Mode is the refresh mode token, ordered by invalidation breadth:
// none < readonly < snapshot < full.
type Mode string

const (
	// ModeNone reads cache if present, fetches once and caches otherwise.
	ModeNone Mode = "none"
	// ModeReadonly never fetches; a cache miss is terminal (degraded block).
	ModeReadonly Mode = "readonly"
	// ModeSnapshot deletes today's cache file, forcing one refetch.
	ModeSnapshot Mode = "snapshot"
	// ModeFull deletes cache plus history/spot, the broadest refetch.
	ModeFull Mode = "full"
)

// Parse normalizes an arbitrary token to a Mode. Unknown values fall back to
// ModeNone (레거시 규약: 비정상 입력은 보수적으로 none 처리).
func Parse(raw string) Mode {
	switch Mode(strings.ToLower(strings.TrimSpace(raw))) {
	case ModeFull:
		return ModeFull
	case ModeSnapshot:
		return ModeSnapshot
	case ModeReadonly:
		return ModeReadonly
	default:
		return ModeNone
	}
}

// AllowsFetch reports whether the mode permits hitting the provider.
func (m Mode) AllowsFetch() bool {
	return m != ModeReadonly
}

// TrustsCache reports whether a cache hit short-circuits the fetch.
func (m Mode) TrustsCache() bool {
	return m == ModeNone || m == ModeReadonly
}

// ApplyCleanup performs the shared Step-1 invalidation for one source and
// returns the normalized mode.
//
// May delete 0-3 files. Never errors: a missing file is not a mistake, and a
// failed delete surfaces later as a stale-cache warning, not a crash.
func ApplyCleanup(mode Mode, cachePath, historyPath, spotPath string) Mode {
	m := Parse(string(mode))

	rm := func(path string) {
		if path == "" {
			return
		}
		if _, err := os.Stat(path); err != nil {
			return
		}
		_ = os.Remove(path)
	}

	switch m {
	case ModeFull:
		rm(cachePath)
		rm(historyPath)
		rm(spotPath)
	case ModeSnapshot:
		rm(cachePath)
	}

	return m
}
