package commands

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/olekukonko/tablewriter"
	"github.com/spf13/cobra"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/s0_data"
	"github.com/wonny/sectorrotation/internal/s0_data/quality"
)

// dataCheckCmd represents the data check command
var dataCheckCmd = &cobra.Command{
	Use:   "data-check",
	Short: "캐시 데이터 품질 확인",
	Long: `백테스트에 필요한 구간에 대해 티커별 데이터 상태를 확인합니다.

확인 항목:
- 파일 존재 여부
- 관측치 수 / 커버리지
- 최대 공백 일수
- 0 이하 가격

Example:
  go run ./cmd/rotation data-check
  go run ./cmd/rotation data-check --as-of 2024-12-31 --source postgres`,
	RunE: runDataCheck,
}

var (
	checkAsOf   string
	checkSource string
)

func init() {
	rootCmd.AddCommand(dataCheckCmd)

	dataCheckCmd.Flags().StringVar(&checkAsOf, "as-of", "", "as-of date (YYYY-MM-DD, default today)")
	dataCheckCmd.Flags().StringVar(&checkSource, "source", sourceCSV, "market data source (csv|postgres)")
}

func runDataCheck(cmd *cobra.Command, args []string) error {
	a, err := setup()
	if err != nil {
		return err
	}
	defer a.Close()

	ctx := cmd.Context()
	asOf, err := parseAsOf(checkAsOf)
	if err != nil {
		return err
	}
	source, err := a.marketSource(ctx, checkSource)
	if err != nil {
		return err
	}

	req := backtest.DataRequest(a.strategy, asOf)
	gate := quality.NewGate(quality.DefaultConfig())

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Data check %s → %s\n\n", req.From.Format(contracts.DateLayout), req.To.Format(contracts.DateLayout))

	table := tablewriter.NewWriter(out)
	table.Header("Ticker", "Obs", "First", "Last", "Coverage", "Max gap", "Status")

	failed := 0
	for _, ticker := range req.Tickers() {
		series, err := source.FetchSeries(ctx, ticker, req.From, req.To)
		if errors.Is(err, s0_data.ErrTickerNotFound) {
			failed++
			table.Append(ticker, "0", "-", "-", "-", "-", "missing")
			continue
		}
		if err != nil {
			return err
		}

		r := gate.Check(series, req.From, req.To)
		status := "ok"
		if !r.OK() {
			failed++
			status = strings.Join(r.Issues, "; ")
		}
		table.Append(
			ticker,
			fmt.Sprintf("%d", r.Observations),
			dateOrDash(r.First),
			dateOrDash(r.Last),
			fmt.Sprintf("%.1f%%", r.Coverage*100),
			fmt.Sprintf("%dd", r.MaxGapDays),
			status,
		)
	}
	table.Render()

	if failed > 0 {
		return fmt.Errorf("%d tickers failed the quality check", failed)
	}
	fmt.Fprintln(out, "\nAll tickers passed")
	return nil
}

func dateOrDash(t time.Time) string {
	if t.IsZero() {
		return "-"
	}
	return t.Format(contracts.DateLayout)
}
