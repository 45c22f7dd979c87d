package main

import (
	"os"

	"github.com/wonny/unirisk/backend/cmd/unirisk/commands"
)

// main is the entry point for the UniRisk CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/unirisk [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
