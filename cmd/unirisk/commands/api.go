package commands

import (
	"github.com/spf13/cobra"

	"github.com/wonny/unirisk/backend/internal/api"
	"github.com/wonny/unirisk/backend/internal/cache"
)

// apiCmd starts the read-only status API
var apiCmd = &cobra.Command{
	Use:   "api",
	Short: "조회용 API 서버 시작",
	Long: `일배치가 영속화한 스냅샷/Gate 상태를 조회하는 API 서버.

Endpoints:
  GET /health
  GET /api/v1/snapshot/{date}
  GET /api/v1/gate/state

Example:
  go run ./cmd/unirisk api`,
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, log, err := bootstrap()
		if err != nil {
			return err
		}

		server := api.NewServer(cfg, cache.New(cfg.DataDir), log)
		return server.ListenAndServe()
	},
}

func init() {
	rootCmd.AddCommand(apiCmd)
}
