package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/internal/pipeline"
	"github.com/wonny/unirisk/backend/internal/refresh"
	"github.com/wonny/unirisk/backend/internal/report"
)

var (
	fullRefresh bool
	ssRefresh   bool
	tradeDate   string
)

// dailyCmd runs one daily pipeline cycle
var dailyCmd = &cobra.Command{
	Use:   "daily",
	Short: "일배치 파이프라인 실행",
	Long: `스냅샷 조립부터 리포트까지 하루치 사이클을 실행합니다.

Refresh modes:
  (기본)           readonly - 캐시만 읽고 네트워크 호출 없음
  --ss-refresh     snapshot - 오늘자 캐시 삭제 후 1회 재수집
  --full-refresh   full     - 캐시 + 히스토리 + 스팟 전부 재수집

Example:
  go run ./cmd/unirisk daily
  go run ./cmd/unirisk daily --full-refresh
  go run ./cmd/unirisk daily --date 2026-08-28 --ss-refresh`,
	RunE: runDaily,
}

func init() {
	dailyCmd.Flags().BoolVar(&fullRefresh, "full-refresh", false, "refetch cache, history and spot")
	dailyCmd.Flags().BoolVar(&ssRefresh, "ss-refresh", false, "refetch today's snapshot cache only")
	dailyCmd.Flags().StringVar(&tradeDate, "date", "", "trade date YYYY-MM-DD (default today)")
	rootCmd.AddCommand(dailyCmd)
}

func resolveRefreshMode() (refresh.Mode, error) {
	if fullRefresh && ssRefresh {
		return "", fmt.Errorf("--full-refresh and --ss-refresh are mutually exclusive")
	}
	switch {
	case fullRefresh:
		return refresh.ModeFull, nil
	case ssRefresh:
		return refresh.ModeSnapshot, nil
	default:
		return refresh.ModeReadonly, nil
	}
}

func runDaily(cmd *cobra.Command, args []string) error {
	mode, err := resolveRefreshMode()
	if err != nil {
		return err
	}

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

	date := tradeDate
	if date == "" {
		date = time.Now().Format("2006-01-02")
	} else if _, perr := time.Parse("2006-01-02", date); perr != nil {
		return fmt.Errorf("bad --date %q: want YYYY-MM-DD", date)
	}

	snap, err := p.Run(context.Background(), date, mode)
	if err != nil {
		return err
	}

	fmt.Print(report.Render(snap))
	return nil
}
