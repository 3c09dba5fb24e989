package commands

import (
	"github.com/spf13/cobra"
)

var (
	// Global flags
	strategyFile string
	verbose      bool
)

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "rotation",
	Short: "Sector rotation backtester",
	Long: `Sector rotation backtester (NSE sector indices)

월별 팩터 스코어로 상위 섹터를 선택하고 as-of 기준 N년 백테스트를 수행합니다.

Usage:
  go run ./cmd/rotation [command]

Examples:
  go run ./cmd/rotation fetch
  go run ./cmd/rotation backtest --as-of 2024-12-31 --plot out/equity.png
  go run ./cmd/rotation runs list
  go run ./cmd/rotation api`,
	SilenceUsage: true,
}

// Execute adds all child commands to the root command and sets flags appropriately.
// This is called by main.main(). It only needs to happen once to the rootCmd.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	// Global flags
	rootCmd.PersistentFlags().StringVar(&strategyFile, "strategy", "", "strategy YAML (default: STRATEGY_CONFIG or config/strategy/sector_rotation.yaml)")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")
}
