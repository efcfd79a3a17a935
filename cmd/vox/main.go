package main

import (
	"os"

	"github.com/wonny/vox/backend/cmd/vox/commands"
)

// main is the entry point for the Vox CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/vox [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
