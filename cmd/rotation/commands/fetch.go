package commands

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/s0_data/collector"
)

// fetchCmd represents the fetch command
var fetchCmd = &cobra.Command{
	Use:   "fetch",
	Short: "시장 데이터 수집",
	Long: `섹터 지수, 벤치마크, 매크로 지표의 일별 종가를 수집해 DATA_DIR에 CSV로 저장합니다.

수집 구간: [as_of - lookback - 최장 팩터 윈도우 - 30일, as_of]
이미 존재하는 파일은 --force-refresh 없이는 다시 받지 않습니다.
DATABASE_URL이 설정되어 있고 --mirror 이면 market.daily_closes 에도 저장합니다.

Example:
  go run ./cmd/rotation fetch
  go run ./cmd/rotation fetch --as-of 2024-12-31 --force-refresh
  go run ./cmd/rotation fetch --mirror --workers 2`,
	RunE: runFetch,
}

var (
	fetchAsOf    string
	fetchForce   bool
	fetchWorkers int
	fetchMirror  bool
)

func init() {
	rootCmd.AddCommand(fetchCmd)

	fetchCmd.Flags().StringVar(&fetchAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default today)")
	fetchCmd.Flags().BoolVar(&fetchForce, "force-refresh", false, "re-download files already cached")
	fetchCmd.Flags().IntVar(&fetchWorkers, "workers", 0, "concurrent downloads (default COLLECT_WORKERS)")
	fetchCmd.Flags().BoolVar(&fetchMirror, "mirror", false, "also upsert closes into Postgres")
}

func runFetch(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	asOf, err := parseAsOf(fetchAsOf)
	if err != nil {
		return err
	}

	source, err := a.fetchSource(ctx)
	if err != nil {
		return err
	}

	var mirror collector.SeriesSaver
	if fetchMirror {
		db, err := a.database(ctx)
		if err != nil {
			return err
		}
		if db == nil {
			return fmt.Errorf("--mirror requires DATABASE_URL")
		}
		mirror = s0_data.NewPriceRepository(db.Pool)
	}

	workers := fetchWorkers
	if workers <= 0 {
		workers = a.cfg.Scheduler.Workers
	}

	req := backtest.DataRequest(a.strategy, asOf)
	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Fetching %d tickers %s → %s into %s\n",
		len(req.Tickers()), req.From.Format(contracts.DateLayout), req.To.Format(contracts.DateLayout), a.cfg.DataDir)

	start := time.Now()
	col := collector.NewCollector(source, a.csvStore(), mirror, a.log)
	results, err := col.Collect(ctx, req, collector.Config{Workers: workers, ForceRefresh: fetchForce})
	if err != nil {
		return err
	}

	failed := 0
	for _, r := range results {
		switch {
		case r.Error != nil:
			failed++
			fmt.Fprintf(out, "  ❌ %-12s %-14s %v\n", r.Ticker, r.File, r.Error)
		case r.Skipped:
			fmt.Fprintf(out, "  ·  %-12s %-14s cached\n", r.Ticker, r.File)
		default:
			fmt.Fprintf(out, "  ✅ %-12s %-14s %d closes\n", r.Ticker, r.File, r.Count)
		}
	}
	fmt.Fprintf(out, "Done in %.1fs (%d failed)\n", time.Since(start).Seconds(), failed)

	if failed > 0 {
		return fmt.Errorf("%d tickers failed", failed)
	}
	return nil
}
