package commands

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/audit"
	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
)

// backtestCmd represents the backtest command
var backtestCmd = &cobra.Command{
	Use:   "backtest",
	Short: "섹터 로테이션 백테스트 실행",
	Long: `as-of 기준 lookback_years 구간의 섹터 로테이션 전략을 시뮬레이션합니다.

단계:
- 캐시(또는 Postgres)에서 시계열 로드
- 평가일마다 팩터 스냅샷 → 복합 점수 → 상위 N 섹터 선택
- 다음 거래일부터 보유, 일별 equity curve 및 요약 통계 계산
- 결과 저장 (SQLite 또는 Postgres) 및 보고서 출력

Example:
  go run ./cmd/rotation backtest
  go run ./cmd/rotation backtest --as-of 2024-12-31 --fetch
  go run ./cmd/rotation backtest --json out/run.json --plot out/equity.png --schedule`,
	RunE: runBacktest,
}

var (
	backtestAsOf     string
	backtestSource   string
	backtestFetch    bool
	backtestForce    bool
	backtestJSON     string
	backtestPlot     string
	backtestSchedule bool
	backtestNoSave   bool
)

func init() {
	rootCmd.AddCommand(backtestCmd)

	backtestCmd.Flags().StringVar(&backtestAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default today)")
	backtestCmd.Flags().StringVar(&backtestSource, "source", sourceCSV, "market data source (csv|postgres)")
	backtestCmd.Flags().BoolVar(&backtestFetch, "fetch", false, "fetch missing CSV files before running")
	backtestCmd.Flags().BoolVar(&backtestForce, "force-refresh", false, "with --fetch, re-download cached files")
	backtestCmd.Flags().StringVar(&backtestJSON, "json", "", "write the JSON report to this path")
	backtestCmd.Flags().StringVar(&backtestPlot, "plot", "", "write the equity plot (png|svg|pdf) to this path")
	backtestCmd.Flags().BoolVar(&backtestSchedule, "schedule", false, "print every rebalance")
	backtestCmd.Flags().BoolVar(&backtestNoSave, "no-save", false, "do not persist the run")
}

func runBacktest(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	asOf, err := parseAsOf(backtestAsOf)
	if err != nil {
		return err
	}

	if backtestFetch {
		if backtestSource != sourceCSV {
			return fmt.Errorf("--fetch only applies to --source csv")
		}
		upstream, err := a.fetchSource(ctx)
		if err != nil {
			return err
		}
		col := collector.NewCollector(upstream, a.csvStore(), nil, a.log)
		if _, err := col.Collect(ctx, backtest.DataRequest(a.strategy, asOf), collector.Config{
			Workers:      a.cfg.Scheduler.Workers,
			ForceRefresh: backtestForce,
		}); err != nil {
			return err
		}
	}

	source, err := a.marketSource(ctx, backtestSource)
	if err != nil {
		return err
	}
	provider := s0_data.NewProvider(source, nil, a.log)

	result, err := backtest.NewRunner(a.strategy, provider, a.log).Run(ctx, asOf)
	if err != nil {
		var ih *contracts.InsufficientHistoryError
		if errors.As(err, &ih) {
			return fmt.Errorf("%w (run `rotation fetch` or lower backtest.lookback_years)", err)
		}
		return err
	}

	report := audit.NewReport(result)
	audit.NewConsoleWriter(cmd.OutOrStdout(), backtestSchedule).Print(report)

	if backtestJSON != "" {
		if err := audit.SaveJSON(backtestJSON, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Report written to %s\n", backtestJSON)
	}
	if backtestPlot != "" {
		if err := audit.SavePlot(backtestPlot, report); err != nil {
			return err
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Plot written to %s\n", backtestPlot)
	}

	if backtestNoSave {
		return nil
	}
	runs, err := a.runStore(ctx)
	if err != nil {
		return err
	}
	if err := runs.Save(ctx, result); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Run %s saved\n", result.RunID)
	return nil
}
