package quality

import (
	"fmt"
	"sort"
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// Gate validates loaded series against the requested range
// ⭐ SSOT: S0 데이터 품질 검증은 여기서만
type Gate struct {
	config Config
}

// Config holds quality gate thresholds (calendar days)
type Config struct {
	MaxGapDays      int `yaml:"max_gap_days"`       // 10: longest tolerated hole between observations
	MaxStartLagDays int `yaml:"max_start_lag_days"` // 7: first observation after the requested start
	MaxEndLagDays   int `yaml:"max_end_lag_days"`   // 7: last observation before the requested end
}

// DefaultConfig returns thresholds suited to daily index closes
func DefaultConfig() Config {
	return Config{
		MaxGapDays:      10,
		MaxStartLagDays: 7,
		MaxEndLagDays:   7,
	}
}

// Report is the quality summary of one series
type Report struct {
	Ticker       string    `json:"ticker"`
	Observations int       `json:"observations"`
	First        time.Time `json:"first"`
	Last         time.Time `json:"last"`
	MaxGapDays   int       `json:"max_gap_days"`
	NonPositive  int       `json:"non_positive"`
	Coverage     float64   `json:"coverage"` // observations / business days in range, capped at 1
	Issues       []string  `json:"issues,omitempty"`
}

// OK reports whether the series passed every check
func (r Report) OK() bool {
	return len(r.Issues) == 0
}

// NewGate creates a new quality gate
func NewGate(config Config) *Gate {
	return &Gate{config: config}
}

// Check inspects one series for range coverage, holes and bad values
func (g *Gate) Check(series *contracts.Series, from, to time.Time) Report {
	report := Report{}
	if series != nil {
		report.Ticker = series.Ticker()
	}

	if series == nil || series.Len() == 0 {
		report.Issues = append(report.Issues, "empty series")
		return report
	}

	first, _ := series.First()
	last, _ := series.Last()
	report.Observations = series.Len()
	report.First = first.Date
	report.Last = last.Date

	// 1. 요청 구간 커버리지
	if lag := days(first.Date.Sub(contracts.DateOnly(from))); lag > g.config.MaxStartLagDays {
		report.Issues = append(report.Issues, fmt.Sprintf("starts %d days after requested %s", lag, from.Format(contracts.DateLayout)))
	}
	if lag := days(contracts.DateOnly(to).Sub(last.Date)); lag > g.config.MaxEndLagDays {
		report.Issues = append(report.Issues, fmt.Sprintf("ends %d days before requested %s", lag, to.Format(contracts.DateLayout)))
	}

	// 2. 결측 구간 / 비정상 가격
	var gapEnd time.Time
	prev := first.Date
	for i := 0; i < series.Len(); i++ {
		o := series.At(i)
		if o.Value <= 0 {
			report.NonPositive++
		}
		if gap := days(o.Date.Sub(prev)); gap > report.MaxGapDays {
			report.MaxGapDays = gap
			gapEnd = o.Date
		}
		prev = o.Date
	}
	if report.MaxGapDays > g.config.MaxGapDays {
		report.Issues = append(report.Issues, fmt.Sprintf("gap of %d days ending %s", report.MaxGapDays, gapEnd.Format(contracts.DateLayout)))
	}
	if report.NonPositive > 0 {
		report.Issues = append(report.Issues, fmt.Sprintf("%d non-positive values", report.NonPositive))
	}

	// 3. 커버리지 비율
	if expected := businessDays(from, to); expected > 0 {
		report.Coverage = float64(series.Between(from, to).Len()) / float64(expected)
		if report.Coverage > 1 {
			report.Coverage = 1
		}
	}

	return report
}

// CheckAll inspects every series and returns reports sorted by ticker
func (g *Gate) CheckAll(series []*contracts.Series, from, to time.Time) []Report {
	reports := make([]Report, 0, len(series))
	for _, s := range series {
		reports = append(reports, g.Check(s, from, to))
	}
	sort.Slice(reports, func(i, j int) bool { return reports[i].Ticker < reports[j].Ticker })
	return reports
}

func days(d time.Duration) int {
	return int(d.Hours() / 24)
}

// businessDays counts weekdays in [from, to]
func businessDays(from, to time.Time) int {
	n := 0
	for d := contracts.DateOnly(from); !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			n++
		}
	}
	return n
}
