package audit

import (
	"fmt"
	"os"
	"path/filepath"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/plotutil"
	"gonum.org/v1/plot/vg"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// EquityPlot draws the strategy equity curve and, when present, the
// benchmark curve on a shared time axis
func EquityPlot(report *Report) (*plot.Plot, error) {
	if len(report.Equity) == 0 {
		return nil, fmt.Errorf("equity plot: empty equity curve")
	}

	p := plot.New()
	p.Title.Text = fmt.Sprintf("Sector rotation %s → %s",
		report.Start.Format(contracts.DateLayout), report.End.Format(contracts.DateLayout))
	p.X.Label.Text = "Date"
	p.Y.Label.Text = "Portfolio value"
	p.X.Tick.Marker = plot.TimeTicks{Format: "2006-01"}
	p.Add(plotter.NewGrid())

	lines := []interface{}{"Strategy", curveXYs(report.Equity)}
	if len(report.Benchmark) > 0 {
		lines = append(lines, "Benchmark", curveXYs(report.Benchmark))
	}
	if err := plotutil.AddLines(p, lines...); err != nil {
		return nil, fmt.Errorf("equity plot: %w", err)
	}
	p.Legend.Top = true
	p.Legend.Left = true

	return p, nil
}

// SavePlot renders the equity plot to path; the extension picks the format
func SavePlot(path string, report *Report) error {
	p, err := EquityPlot(report)
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("create plot dir: %w", err)
	}
	if err := p.Save(10*vg.Inch, 6*vg.Inch, path); err != nil {
		return fmt.Errorf("save plot: %w", err)
	}
	return nil
}

func curveXYs(curve contracts.EquityCurve) plotter.XYs {
	pts := make(plotter.XYs, len(curve))
	for i, point := range curve {
		pts[i].X = float64(point.Date.Unix())
		pts[i].Y = point.Value
	}
	return pts
}
