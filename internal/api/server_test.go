package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

func newTestServer(t *testing.T) (*Server, *cache.Store, *config.Config) {
	t.Helper()
	root := t.TempDir()
	cfg := &config.Config{
		Port:      "0",
		Market:    "cn",
		LogLevel:  "error",
		LogFormat: "json",
		Gate: config.GateConfig{
			StatePath:    filepath.Join(root, "gate_state.json"),
			CooldownDays: 3,
		},
	}
	store := cache.New(root)
	return NewServer(cfg, store, logger.New(cfg)), store, cfg
}

func get(t *testing.T, s *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	rec := httptest.NewRecorder()
	s.Router().ServeHTTP(rec, req)
	return rec
}

func TestHealth(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s, "/health")

	require.Equal(t, http.StatusOK, rec.Code)
	var body map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	assert.Equal(t, "ok", body["status"])
	assert.Equal(t, "cn", body["market"])
}

func TestSnapshotBadDate(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s, "/api/v1/snapshot/yesterday")

	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSnapshotNotFound(t *testing.T) {
	s, _, _ := newTestServer(t)

	rec := get(t, s, "/api/v1/snapshot/2026-08-31")

	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestSnapshotFound(t *testing.T) {
	s, store, _ := newTestServer(t)
	snap := contracts.Snapshot{
		Market:    "cn",
		TradeDate: "2026-08-31",
		Blocks: map[string]contracts.FactBlock{
			"margin": contracts.NewBlock("margin", "2026-08-31"),
		},
	}
	path := store.ReportPath("cn", "snapshot_2026-08-31.json")
	require.NoError(t, cache.SaveJSON(path, snap))

	rec := get(t, s, "/api/v1/snapshot/2026-08-31")

	require.Equal(t, http.StatusOK, rec.Code)
	var got contracts.Snapshot
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, "2026-08-31", got.TradeDate)
	assert.Contains(t, got.Blocks, "margin")
}

func TestGateState(t *testing.T) {
	s, _, cfg := newTestServer(t)

	rec := get(t, s, "/api/v1/gate/state")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	require.NoError(t, cache.SaveJSON(cfg.Gate.StatePath, contracts.GateState{
		Level:     contracts.GateCaution,
		TradeDate: "2026-08-31",
	}))

	rec = get(t, s, "/api/v1/gate/state")
	require.Equal(t, http.StatusOK, rec.Code)
	var state contracts.GateState
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &state))
	assert.Equal(t, contracts.GateCaution, state.Level)
}
