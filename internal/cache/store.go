// Package cache is the JSON blob store under data/{market}/cache and
// data/{market}/history.
//
// Single-writer-per-path 가정: 일배치 단일 프로세스 기준. 동시 실행은
// 문서화된 비지원 — cron lock 등 외부에서 직렬화한다.
package cache

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Store reads and writes pretty JSON blobs rooted at a data directory.
// ⭐ SSOT: 디스크 캐시 입출력은 이 타입을 통해서만
type Store struct {
	root string
}

// New creates a store rooted at dir (e.g. "data").
func New(dir string) *Store {
	return &Store{root: dir}
}

// Root returns the data root directory.
func (s *Store) Root() string {
	return s.root
}

// CachePath builds data/{market}/cache/{dsName}/{file}.
func (s *Store) CachePath(market, dsName, file string) string {
	return filepath.Join(s.root, market, "cache", dsName, file)
}

// HistoryPath builds data/{market}/history/{dsName}/{file}.
func (s *Store) HistoryPath(market, dsName, file string) string {
	return filepath.Join(s.root, market, "history", dsName, file)
}

// ReportPath builds data/{market}/reports/{file}.
func (s *Store) ReportPath(market, file string) string {
	return filepath.Join(s.root, market, "reports", file)
}

// LoadJSON unmarshals a cached blob into out. Returns false on file-absent or
// unparseable content — 캐시 미스는 에러가 아니다, 호출자가 fetch로 전환
func LoadJSON(path string, out any) bool {
	data, err := os.ReadFile(path)
	if err != nil {
		return false
	}
	if err := json.Unmarshal(data, out); err != nil {
		return false
	}
	return true
}

// SaveJSON writes obj as pretty UTF-8 JSON via temp-file + rename.
// Atomic replace applies to ALL state writes, not just a few sources.
func SaveJSON(path string, obj any) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("create cache dir %s: %w", dir, err)
	}

	data, err := json.MarshalIndent(obj, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", path, err)
	}

	tmp, err := os.CreateTemp(dir, ".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp for %s: %w", path, err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return fmt.Errorf("write temp for %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("close temp for %s: %w", path, err)
	}

	if err := os.Rename(tmpName, path); err != nil {
		os.Remove(tmpName)
		return fmt.Errorf("replace %s: %w", path, err)
	}
	return nil
}

// Exists reports whether a blob file is present.
func Exists(path string) bool {
	_, err := os.Stat(path)
	return err == nil
}
