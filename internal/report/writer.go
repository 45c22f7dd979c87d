// Package report renders the daily decision summary and persists the
// full snapshot for audit.
package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// Writer persists the daily report pair: human-readable text plus the
// full snapshot JSON.
type Writer struct {
	store  *cache.Store
	market string
	logger *logger.Logger
}

func NewWriter(store *cache.Store, market string, log *logger.Logger) *Writer {
	return &Writer{store: store, market: market, logger: log.WithField("component", "report")}
}

// Write renders and persists both artifacts, returning the text path.
func (w *Writer) Write(snap *contracts.Snapshot) (string, error) {
	jsonPath := w.store.ReportPath(w.market, fmt.Sprintf("snapshot_%s.json", snap.TradeDate))
	if err := cache.SaveJSON(jsonPath, snap); err != nil {
		return "", fmt.Errorf("persist snapshot: %w", err)
	}

	textPath := w.store.ReportPath(w.market, fmt.Sprintf("daily_%s.txt", snap.TradeDate))
	if err := os.MkdirAll(filepath.Dir(textPath), 0o755); err != nil {
		return "", fmt.Errorf("create report dir: %w", err)
	}
	if err := os.WriteFile(textPath, []byte(Render(snap)), 0o644); err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}

	w.logger.WithField("path", textPath).Info("daily report written")
	return textPath, nil
}

// Render builds the text report.
func Render(snap *contracts.Snapshot) string {
	var b strings.Builder

	fmt.Fprintf(&b, "=== %s daily decision report: %s ===\n\n", strings.ToUpper(snap.Market), snap.TradeDate)

	if snap.Gate != nil {
		fmt.Fprintf(&b, "[Gate] %s\n", snap.Gate.Level)
		for _, r := range snap.Gate.Reasons {
			fmt.Fprintf(&b, "  - %s\n", r)
		}
		if snap.Gate.Discipline.ZigzagDetected {
			fmt.Fprintf(&b, "  ! zigzag clamp applied (%s)\n", strings.Join(snap.Gate.Discipline.Violations, ", "))
		}
		for _, e := range snap.Gate.LoadErrors {
			fmt.Fprintf(&b, "  ! rule load error: %s\n", e)
		}
		b.WriteString("\n")
	}

	if snap.Prediction != nil {
		p := snap.Prediction
		fmt.Fprintf(&b, "[Prediction] score=%.1f risk=%s\n", p.FinalScore, p.RiskLevel)
		fmt.Fprintf(&b, "  used=%v missing=%v degraded=%v\n\n",
			p.Evidence.Used, p.Evidence.MissingFactors, p.Evidence.DegradedFactors)
	}

	if g := snap.Governance; g != nil {
		if g.FinalDecision != nil {
			fmt.Fprintf(&b, "[ActionHint] %s (gate=%s drs=%s", g.FinalDecision.ActionHintCode, g.FinalDecision.Gate, g.FinalDecision.DRS)
			if g.FinalDecision.Veto != "" {
				fmt.Fprintf(&b, " veto=%s", g.FinalDecision.Veto)
			}
			b.WriteString(")\n")
		}
		if g.AttackPermit != nil {
			fmt.Fprintf(&b, "[AttackPermit] %s / %s (%s)\n", g.AttackPermit.Permit, g.AttackPermit.Mode, g.AttackPermit.Label)
		}
		if g.SectorPermit != nil {
			fmt.Fprintf(&b, "[SectorPermit] %s / %s (%s)", g.SectorPermit.Permit, g.SectorPermit.Mode, g.SectorPermit.Label)
			if len(g.SectorPermit.Candidates) > 0 {
				names := make([]string, 0, len(g.SectorPermit.Candidates))
				for _, c := range g.SectorPermit.Candidates {
					names = append(names, c.Sector)
				}
				fmt.Fprintf(&b, " entry=%s", strings.Join(names, ","))
			}
			b.WriteString("\n")
		}
		if g.MarketMode != nil {
			fmt.Fprintf(&b, "[MarketMode] %s (%s)\n", g.MarketMode.Mode, g.MarketMode.Severity)
		}
		b.WriteString("\n")
	}

	families := make([]string, 0, len(snap.Blocks))
	for name := range snap.Blocks {
		families = append(families, name)
	}
	sort.Strings(families)

	b.WriteString("[Blocks]\n")
	for _, name := range families {
		block := snap.Blocks[name]
		fmt.Fprintf(&b, "  %-18s %s", name, block.Status)
		if len(block.Warnings) > 0 {
			fmt.Fprintf(&b, "  (%s)", strings.Join(block.Warnings, "; "))
		}
		b.WriteString("\n")
	}

	return b.String()
}
