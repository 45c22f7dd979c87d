package gate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

func testLogger() *logger.Logger {
	return logger.New(&config.Config{LogLevel: "error", LogFormat: "json"})
}

func writeRule(t *testing.T, dir, name, body string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(body), 0o644))
}

func loadFrom(t *testing.T, dir string) *RuleEngine {
	t.Helper()
	return LoadRules(filepath.Join(dir, "*.yaml"), testLogger())
}

func TestLoadRulesSkipsMalformedFiles(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "good.yaml", `
id: good_rule
priority: L1
if:
  eq: {key: a, value: 1}
then:
  gate: Caution
`)
	writeRule(t, dir, "broken.yaml", "id: [unclosed")
	writeRule(t, dir, "bad_priority.yaml", `
id: bad_priority
priority: L9
if:
  eq: {key: a, value: 1}
then:
  gate: Caution
`)

	e := loadFrom(t, dir)

	assert.Len(t, e.Rules(), 1, "only the valid rule loads")
	assert.Len(t, e.LoadErrors(), 2)
}

func TestPriorityOrderL3First(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "a_low.yaml", "id: a_low\npriority: L1\nif:\n  exists: x\nthen:\n  gate: Caution\n")
	writeRule(t, dir, "z_high.yaml", "id: z_high\npriority: L3\nif:\n  exists: x\nthen:\n  gate: PlanB\n")

	e := loadFrom(t, dir)

	require.Len(t, e.Rules(), 2)
	assert.Equal(t, "z_high", e.Rules()[0].ID)
}

func TestStopHaltsEvaluation(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "first.yaml", "id: a_first\npriority: L3\nif:\n  exists: x\nthen:\n  gate: Freeze\n  reasons: [frozen]\n  stop: true\n")
	writeRule(t, dir, "second.yaml", "id: b_second\npriority: L3\nif:\n  exists: x\nthen:\n  reasons: [should_not_appear]\n")

	res := loadFrom(t, dir).Apply(contracts.GateNormal, map[string]any{"x": 1})

	assert.Equal(t, contracts.GateFreeze, res.Level)
	assert.Equal(t, []string{"frozen"}, res.Reasons)
}

func TestLevelOnlyEscalatesWithinOnePass(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "up.yaml", "id: a_up\npriority: L3\nif:\n  exists: x\nthen:\n  gate: PlanB\n")
	writeRule(t, dir, "down.yaml", "id: b_down\npriority: L1\nif:\n  exists: x\nthen:\n  gate: Normal\n")

	res := loadFrom(t, dir).Apply(contracts.GateNormal, map[string]any{"x": 1})

	assert.Equal(t, contracts.GatePlanB, res.Level, "a later milder rule must not downgrade")
	assert.Len(t, res.Evidence, 2, "both rules still record evidence")
}

func TestRuleEvalErrorIsNonMatching(t *testing.T) {
	dir := t.TempDir()
	// eq without a key errors at eval time
	writeRule(t, dir, "bad_eval.yaml", "id: a_bad\npriority: L2\nif:\n  eq: {value: 1}\nthen:\n  gate: Freeze\n")
	writeRule(t, dir, "good.yaml", "id: b_good\npriority: L1\nif:\n  exists: x\nthen:\n  gate: Caution\n")

	res := loadFrom(t, dir).Apply(contracts.GateNormal, map[string]any{"x": 1})

	assert.Equal(t, contracts.GateCaution, res.Level, "the broken rule is skipped, not fatal")
}

func TestConditionDSL(t *testing.T) {
	gctx := map[string]any{
		"structural_context": map[string]any{"health": "FAIL", "trend_state": "broken"},
		"breadth_damage":     nil,
		"score":              42.0,
	}

	cases := []struct {
		name string
		cond map[string]any
		want bool
	}{
		{"shorthand dot path", map[string]any{"structural_context.health": "FAIL"}, true},
		{"shorthand mismatch", map[string]any{"structural_context.health": "PASS"}, false},
		{"eq numeric coercion", map[string]any{"eq": map[string]any{"key": "score", "value": 42}}, true},
		{"in", map[string]any{"in": map[string]any{"key": "structural_context.trend_state", "values": []any{"down", "broken"}}}, true},
		{"exists nil value is absent", map[string]any{"exists": "breadth_damage"}, false},
		{"exists present", map[string]any{"exists": "structural_context"}, true},
		{"not", map[string]any{"not": map[string]any{"exists": "breadth_damage"}}, true},
		{"all", map[string]any{"all": []any{
			map[string]any{"exists": "structural_context"},
			map[string]any{"structural_context.health": "FAIL"},
		}}, true},
		{"any short circuit", map[string]any{"any": []any{
			map[string]any{"exists": "breadth_damage"},
			map[string]any{"structural_context.health": "FAIL"},
		}}, true},
		{"missing key never matches", map[string]any{"eq": map[string]any{"key": "no.such.path", "value": 1}}, false},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got, err := evalCondition(tc.cond, gctx)
			require.NoError(t, err)
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestEmptyConditionErrors(t *testing.T) {
	_, err := evalCondition(map[string]any{}, map[string]any{})
	assert.Error(t, err)
}
