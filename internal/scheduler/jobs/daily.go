// Package jobs holds the concrete scheduled jobs.
package jobs

import (
	"context"
	"fmt"
	"time"

	"github.com/wonny/unirisk/backend/internal/pipeline"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

// DailyRun executes the full daily pipeline after the A-share close.
type DailyRun struct {
	pipeline *pipeline.Pipeline
	mode     refresh.Mode
	logger   *logger.Logger
}

// NewDailyRun creates the post-close pipeline job.
func NewDailyRun(p *pipeline.Pipeline, mode refresh.Mode, log *logger.Logger) *DailyRun {
	return &DailyRun{pipeline: p, mode: mode, logger: log}
}

func (j *DailyRun) Name() string { return "daily_run" }

// Schedule fires weekdays at 17:30 CST, after settlement data lands.
func (j *DailyRun) Schedule() string { return "0 30 17 * * 1-5" }

// runTimeout bounds one scheduled cycle; a hung provider must not block
// the next day's run.
const runTimeout = 30 * time.Minute

func (j *DailyRun) Run(ctx context.Context) error {
	ctx, cancel := context.WithTimeout(ctx, runTimeout)
	defer cancel()

	tradeDate := time.Now().Format("2006-01-02")

	snap, err := j.pipeline.Run(ctx, tradeDate, j.mode)
	if err != nil {
		return fmt.Errorf("daily pipeline: %w", err)
	}

	if snap.Gate != nil {
		j.logger.WithFields(map[string]interface{}{
			"trade_date": tradeDate,
			"gate":       snap.Gate.Level,
		}).Info("scheduled daily run done")
	}
	return nil
}
