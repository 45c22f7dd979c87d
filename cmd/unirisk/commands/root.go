package commands

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/pkg/config"
	"github.com/wonny/unirisk/backend/pkg/database"
	"github.com/wonny/unirisk/backend/pkg/logger"
)

var (
	// Global flags
	marketFlag string
	verbose    bool
)

// supportedMarkets is the closed set of markets this build runs.
var supportedMarkets = map[string]bool{"cn": true}

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "unirisk",
	Short: "UniRisk - A주 일배치 리스크 거버넌스 파이프라인",
	Long: `UniRisk Unified CLI

중국 A주 시장의 일배치 리스크 파이프라인.
스냅샷 조립 → 팩터/예측 → Gate 결정 → 거버넌스 오버레이 → 리포트.

Usage:
  go run ./cmd/unirisk [command]

Examples:
  go run ./cmd/unirisk daily
  go run ./cmd/unirisk daily --full-refresh
  go run ./cmd/unirisk gate state
  go run ./cmd/unirisk api`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	rootCmd.PersistentFlags().StringVar(&marketFlag, "market", "cn", "target market (cn)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "verbose output")
}

// bootstrap loads config and logger shared by every command.
// 지원하지 않는 market은 바로 에러 — exit code 0으로 조용히 끝나지 않는다.
func bootstrap() (*config.Config, *logger.Logger, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, fmt.Errorf("load config: %w", err)
	}
	if marketFlag != "" {
		cfg.Market = marketFlag
	}
	if !supportedMarkets[cfg.Market] {
		return nil, nil, fmt.Errorf("unsupported market %q (supported: cn)", cfg.Market)
	}
	if verbose {
		cfg.LogLevel = "debug"
	}

	return cfg, logger.New(cfg), nil
}

// openDatabase connects the warehouse when enabled; nil otherwise.
func openDatabase(cfg *config.Config, log *logger.Logger) (*database.DB, error) {
	if !cfg.Database.Enabled {
		log.Info("warehouse disabled, DB-backed sources will degrade")
		return nil, nil
	}
	db, err := database.New(cfg)
	if err != nil {
		return nil, fmt.Errorf("connect database: %w", err)
	}
	return db, nil
}
