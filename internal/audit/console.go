package audit

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"

	"github.com/olekukonko/tablewriter"

	"github.com/wonny/sectorrotation/internal/backtest"
	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/store"
)

// maxWarningLines caps the warnings printed per code
const maxWarningLines = 5

// Console prints run reports as tables
type Console struct {
	out      io.Writer
	schedule bool
}

// NewConsole creates a console printer writing to stdout
func NewConsole(schedule bool) *Console {
	return &Console{out: os.Stdout, schedule: schedule}
}

// NewConsoleWriter creates a console printer writing to w
func NewConsoleWriter(w io.Writer, schedule bool) *Console {
	return &Console{out: w, schedule: schedule}
}

// Print writes the summary, sector exposure, optional schedule and warnings
func (c *Console) Print(report *Report) {
	r := report.Result

	fmt.Fprintf(c.out, "Run %s  as-of %s  window %s → %s  config %s\n",
		r.RunID,
		r.AsOf.Format(contracts.DateLayout),
		r.Start.Format(contracts.DateLayout),
		r.End.Format(contracts.DateLayout),
		shortHash(r.ConfigHash),
	)

	c.printSummary(r.Summary, r.BenchmarkSummary)
	c.printExposures(report.Exposures, report.Turnover)
	if c.schedule && r.Schedule != nil {
		c.printSchedule(r.Schedule)
	}
	c.printWarnings(r.Warnings)
}

// PrintRuns writes one line per stored run
func (c *Console) PrintRuns(runs []store.RunSummary) {
	if len(runs) == 0 {
		fmt.Fprintln(c.out, "no runs stored")
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Run", "As-of", "Start", "Config", "Total", "Sharpe", "MaxDD", "Warnings", "Created")
	for _, run := range runs {
		table.Append(
			run.RunID,
			run.AsOf.Format(contracts.DateLayout),
			run.Start.Format(contracts.DateLayout),
			shortHash(run.ConfigHash),
			pct(run.TotalReturn),
			fmt.Sprintf("%.2f", run.SharpeRatio),
			pct(run.MaxDrawdown),
			fmt.Sprintf("%d", run.Warnings),
			run.CreatedAt.Format("2006-01-02 15:04"),
		)
	}
	table.Render()
}

func (c *Console) printSummary(s backtest.Summary, bench *backtest.Summary) {
	table := tablewriter.NewWriter(c.out)
	if bench != nil {
		table.Header("Metric", "Strategy", "Benchmark")
	} else {
		table.Header("Metric", "Strategy")
	}

	rows := []struct {
		name string
		fmt  func(backtest.Summary) string
	}{
		{"Start value", func(s backtest.Summary) string { return fmt.Sprintf("%.2f", s.StartValue) }},
		{"End value", func(s backtest.Summary) string { return fmt.Sprintf("%.2f", s.EndValue) }},
		{"Total return", func(s backtest.Summary) string { return pct(s.TotalReturn) }},
		{"Annualized return", func(s backtest.Summary) string { return pct(s.AnnualizedReturn) }},
		{"Annualized volatility", func(s backtest.Summary) string { return pct(s.AnnualizedVolatility) }},
		{"Sharpe ratio", func(s backtest.Summary) string { return fmt.Sprintf("%.2f", s.SharpeRatio) }},
		{"Sortino ratio", func(s backtest.Summary) string { return fmt.Sprintf("%.2f", s.SortinoRatio) }},
		{"Max drawdown", func(s backtest.Summary) string { return pct(s.MaxDrawdown) }},
		{"Trading days", func(s backtest.Summary) string { return fmt.Sprintf("%d", s.TradingDays) }},
	}
	for _, row := range rows {
		if bench != nil {
			table.Append(row.name, row.fmt(s), row.fmt(*bench))
		} else {
			table.Append(row.name, row.fmt(s))
		}
	}
	table.Render()

	fmt.Fprintf(c.out, "Rebalances: %d  underfilled: %d (%s)\n", s.Rebalances, s.Underfilled, pct(s.UnderfilledFraction))
}

func (c *Console) printExposures(exposures []Exposure, turnover float64) {
	if len(exposures) == 0 {
		return
	}

	table := tablewriter.NewWriter(c.out)
	table.Header("Sector", "Periods", "Share", "Avg weight", "Max weight")
	for _, e := range exposures {
		table.Append(
			e.Sector,
			fmt.Sprintf("%d", e.Periods),
			pct(e.Share),
			pct(e.AvgWeight),
			pct(e.MaxWeight),
		)
	}
	table.Render()
	fmt.Fprintf(c.out, "Average turnover per rebalance: %s\n", pct(turnover))
}

func (c *Console) printSchedule(schedule *contracts.RotationSchedule) {
	table := tablewriter.NewWriter(c.out)
	table.Header("Date", "Holdings", "Eligible", "Carried")
	for _, p := range schedule.Portfolios() {
		parts := make([]string, len(p.Holdings))
		for i, h := range p.Holdings {
			parts[i] = fmt.Sprintf("%s %.0f%%", h.Sector, h.Weight*100)
		}
		holdings := strings.Join(parts, ", ")
		if p.IsEmpty() {
			holdings = "cash"
		}

		carried := ""
		if p.Carried {
			carried = "yes"
		}
		table.Append(p.Date.Format(contracts.DateLayout), holdings, fmt.Sprintf("%d", p.Eligible), carried)
	}
	table.Render()
}

func (c *Console) printWarnings(warnings contracts.Warnings) {
	if len(warnings) == 0 {
		fmt.Fprintln(c.out, "No warnings")
		return
	}

	byCode := make(map[contracts.WarningCode]contracts.Warnings)
	for _, w := range warnings {
		byCode[w.Code] = append(byCode[w.Code], w)
	}
	codes := make([]string, 0, len(byCode))
	for code := range byCode {
		codes = append(codes, string(code))
	}
	sort.Strings(codes)

	fmt.Fprintf(c.out, "Warnings: %d\n", len(warnings))
	for _, code := range codes {
		ws := byCode[contracts.WarningCode(code)]
		fmt.Fprintf(c.out, "  %s (%d)\n", code, len(ws))
		for i, w := range ws {
			if i == maxWarningLines {
				fmt.Fprintf(c.out, "    ... %d more\n", len(ws)-maxWarningLines)
				break
			}
			fmt.Fprintf(c.out, "    %s\n", w.String())
		}
	}
}

func pct(v float64) string {
	return fmt.Sprintf("%.2f%%", v*100)
}

func shortHash(hash string) string {
	if len(hash) > 12 {
		return hash[:12]
	}
	return hash
}
