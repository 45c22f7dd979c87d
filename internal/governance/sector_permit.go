package governance

import (
	"encoding/json"

	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// SectorPermitBuilder decides whether sector rotation participation is
// allowed, and if so which sectors qualify.
type SectorPermitBuilder struct {
	logger *logger.Logger
}

func NewSectorPermitBuilder(log *logger.Logger) *SectorPermitBuilder {
	return &SectorPermitBuilder{logger: log.WithField("component", "sector_permit")}
}

// Build reads the rotation snapshot. Vetoes: Gate=Freeze, broken index
// trend, execution-friction band D3.
func (b *SectorPermitBuilder) Build(snap *contracts.Snapshot, gateLevel, executionBand string) *contracts.SectorPermit {
	permit := &contracts.SectorPermit{
		SchemaVersion: overlaySchemaVersion,
		Asof:          snap.TradeDate,
		Permit:        "NO",
		Mode:          "OFF",
		Candidates:    []contracts.RotationRow{},
		ExitFirst:     []contracts.RotationRow{},
		Constraints:   []string{},
		Evidence:      map[string]any{"gate": gateLevel, "execution_band": executionBand},
		Warnings:      []string{},
	}

	if gateLevel == contracts.GateFreeze {
		permit.Label = "frozen"
		permit.Constraints = append(permit.Constraints, "gate_freeze")
		return permit
	}
	if trend, ok := snap.Block("index_core").Str("trend_state"); ok && trend == "broken" {
		permit.Label = "trend_broken"
		permit.Constraints = append(permit.Constraints, "index_trend_broken")
		return permit
	}
	if executionBand == "D3" {
		permit.Label = "friction_veto"
		permit.Constraints = append(permit.Constraints, "execution_band_d3")
		return permit
	}

	rotation := snap.Block("rotation_snapshot")
	if rotation.Degraded() {
		permit.Label = "rotation_unavailable"
		permit.Warnings = append(permit.Warnings, "rotation_snapshot_missing")
		return permit
	}

	rows, err := rotationRows(rotation)
	if err != nil {
		b.logger.WithError(err).Warn("rotation rows unreadable")
		permit.Label = "rotation_unreadable"
		permit.Warnings = append(permit.Warnings, "rotation_rows_unreadable")
		return permit
	}

	for _, row := range rows {
		switch row.State {
		case "ENTRY":
			permit.Candidates = append(permit.Candidates, row)
		case "EXIT":
			permit.ExitFirst = append(permit.ExitFirst, row)
		}
	}

	if len(permit.Candidates) == 0 {
		permit.Label = "no_entry_sectors"
		return permit
	}

	permit.Permit = "YES"
	permit.Mode = "SELECTIVE"
	permit.Label = "selective_rotation"
	if gateLevel == contracts.GatePlanB {
		permit.Constraints = append(permit.Constraints, "planb_reduced_size")
	}
	return permit
}

// rotationRows decodes the rows field, which round-trips through JSON when
// the block was read back from cache.
func rotationRows(block contracts.FactBlock) ([]contracts.RotationRow, error) {
	raw, ok := block.Fields["rows"]
	if !ok || raw == nil {
		return nil, nil
	}
	if rows, ok := raw.([]contracts.RotationRow); ok {
		return rows, nil
	}

	data, err := json.Marshal(raw)
	if err != nil {
		return nil, err
	}
	var rows []contracts.RotationRow
	if err := json.Unmarshal(data, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}
