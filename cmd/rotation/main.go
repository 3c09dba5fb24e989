package main

import (
	"os"

	"github.com/wonny/sectorrotation/cmd/rotation/commands"
)

// main is the entry point for the rotation CLI
// ⭐ 통합 CLI 진입점: go run ./cmd/rotation [command]
func main() {
	if err := commands.Execute(); err != nil {
		os.Exit(1)
	}
}
