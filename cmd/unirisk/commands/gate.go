package commands

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/internal/cache"
	"github.com/wonny/unirisk/backend/internal/contracts"
	"github.com/wonny/unirisk/backend/internal/gate"
)

// gateCmd inspects the persisted gate
var gateCmd = &cobra.Command{
	Use:   "gate",
	Short: "Gate 상태 조회/검증",
	Long: `영속화된 Gate 상태와 룰 파일을 점검합니다.

Subcommands:
  state   - 현재 Gate 상태 출력
  rules   - 룰 파일 로드 결과 점검 (load error 확인용)

Example:
  go run ./cmd/unirisk gate state
  go run ./cmd/unirisk gate rules`,
}

var gateStateCmd = &cobra.Command{
	Use:   "state",
	Short: "현재 Gate 상태 출력",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, _, err := bootstrap()
		if err != nil {
			return err
		}

		var state contracts.GateState
		if !cache.LoadJSON(cfg.Gate.StatePath, &state) {
			return fmt.Errorf("gate state not initialized at %s", cfg.Gate.StatePath)
		}

		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(state)
	},
}

var gateRulesCmd = &cobra.Command{
	Use:   "rules",
	Short: "룰 파일 로드 점검",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		engine := gate.LoadRules(cfg.RulesGlob, log)
		fmt.Printf("loaded rules: %d\n", len(engine.Rules()))
		for _, r := range engine.Rules() {
			fmt.Printf("  [%s] %s -> %s\n", r.Priority, r.ID, r.Then.Gate)
		}
		if errs := engine.LoadErrors(); len(errs) > 0 {
			fmt.Printf("load errors: %d\n", len(errs))
			for _, e := range errs {
				fmt.Printf("  ! %s\n", e)
			}
			return fmt.Errorf("%d rule file(s) failed to load", len(errs))
		}
		return nil
	},
}

func init() {
	gateCmd.AddCommand(gateStateCmd)
	gateCmd.AddCommand(gateRulesCmd)
	rootCmd.AddCommand(gateCmd)
}
