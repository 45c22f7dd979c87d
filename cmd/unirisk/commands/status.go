package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
)

// statusCmd summarizes the latest persisted run
var statusCmd = &cobra.Command{
	Use:   "status [date]",
	Short: "최근 실행 상태 요약",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}
		store := cache.New(cfg.DataDir)

		date := time.Now().Format("2006-01-02")
		if len(args) == 1 {
			date = args[0]
		}

		path := store.ReportPath(cfg.Market, fmt.Sprintf("snapshot_%s.json", date))
		var snap contracts.Snapshot
		if !cache.LoadJSON(path, &snap) {
			return fmt.Errorf("no persisted snapshot for %s (looked at %s)", date, path)
		}

		fmt.Printf("market:      %s\n", snap.Market)
		fmt.Printf("trade_date:  %s\n", snap.TradeDate)
		if snap.Gate != nil {
			fmt.Printf("gate:        %s\n", snap.Gate.Level)
		}
		if snap.Prediction != nil {
			fmt.Printf("score:       %.1f (%s)\n", snap.Prediction.FinalScore, snap.Prediction.RiskLevel)
		}
		if snap.Governance != nil && snap.Governance.FinalDecision != nil {
			fmt.Printf("action_hint: %s\n", snap.Governance.FinalDecision.ActionHintCode)
		}
		fmt.Printf("degraded:    %d families\n", len(snap.Warnings))
		return nil
	},
}

func init() {
	rootCmd.AddCommand(statusCmd)
}
