package governance

import (
	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// drsRecord is the upstream DRS drop file. The signal is computed by an
// external system; this pipeline only consumes it.
type drsRecord struct {
	Asof   string `json:"asof"`
	Signal string `json:"signal"`
}

// LoadDRS reads the upstream DRS signal. Absent or invalid drops degrade
// to YELLOW — 신호 결손은 중립이 아니라 한 단계 보수적으로 본다.
func LoadDRS(store *cache.Store, market string, log *logger.Logger) string {
	path := store.CachePath(market, "drs", "drs_signal.json")

	var rec drsRecord
	if !cache.LoadJSON(path, &rec) {
		log.WithField("path", path).Warn("DRS drop file missing, defaulting to YELLOW")
		return contracts.DRSYellow
	}

	switch rec.Signal {
	case contracts.DRSGreen, contracts.DRSYellow, contracts.DRSOrange, contracts.DRSRed:
		return rec.Signal
	}
	log.WithField("signal", rec.Signal).Warn("DRS drop file invalid, defaulting to YELLOW")
	return contracts.DRSYellow
}
