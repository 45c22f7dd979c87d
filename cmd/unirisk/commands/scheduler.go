package commands

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/internal/pipeline"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/internal/scheduler"
	"github.com/wonny/unirisk/backend/internal/scheduler/jobs"
)

// schedulerCmd runs the daily pipeline on a cron schedule
var schedulerCmd = &cobra.Command{
	Use:   "scheduler",
	Short: "스케줄러 데몬 시작",
	Long: `일배치 파이프라인을 cron 스케줄로 실행하는 데몬.

등록되는 작업:
- daily_run: 평일 17:30 (장 마감 후 전체 파이프라인, snapshot refresh)

Ctrl+C로 종료합니다.

Example:
  go run ./cmd/unirisk scheduler`,
	RunE: runScheduler,
}

func init() {
	rootCmd.AddCommand(schedulerCmd)
}

func runScheduler(cmd *cobra.Command, args []string) error {
	cfg, log, err := bootstrap()
	if err != nil {
		return err
	}

	db, err := openDatabase(cfg, log)
	if err != nil {
		return err
	}
	if db != nil {
		defer db.Close()
	}

	p, err := pipeline.New(cfg, db, log)
	if err != nil {
		return err
	}

	sched := scheduler.New(log)
	if err := sched.AddJob(jobs.NewDailyRun(p, refresh.ModeSnapshot, log)); err != nil {
		return fmt.Errorf("register daily job: %w", err)
	}

	sched.Start()
	fmt.Println("scheduler running, Ctrl+C to stop")

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	sched.Stop()
	return nil
}
