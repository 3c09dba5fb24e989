package quality

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/contracts"
)

func date(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func weekdays(from, to time.Time, value func(time.Time) float64) []contracts.Observation {
	var obs []contracts.Observation
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		obs = append(obs, contracts.Observation{Date: d, Value: value(d)})
	}
	return obs
}

func constant(v float64) func(time.Time) float64 {
	return func(time.Time) float64 { return v }
}

func TestGate_CleanSeries(t *testing.T) {
	from, to := date("2024-01-01"), date("2024-03-29")
	s := contracts.MustSeries("^CNXIT", weekdays(from, to, constant(100)))

	report := NewGate(DefaultConfig()).Check(s, from, to)

	assert.True(t, report.OK(), report.Issues)
	assert.Equal(t, "^CNXIT", report.Ticker)
	assert.Equal(t, from, report.First)
	assert.Equal(t, to, report.Last)
	assert.Equal(t, 3, report.MaxGapDays, "weekends")
	assert.Equal(t, 1.0, report.Coverage)
}

func TestGate_Issues(t *testing.T) {
	from, to := date("2024-01-01"), date("2024-06-28")

	tests := []struct {
		name   string
		obs    []contracts.Observation
		issues int
		check  func(t *testing.T, r Report)
	}{
		{
			name:   "late start",
			obs:    weekdays(date("2024-02-01"), to, constant(100)),
			issues: 1,
			check:  func(t *testing.T, r Report) { assert.Contains(t, r.Issues[0], "starts 31 days after") },
		},
		{
			name:   "early end",
			obs:    weekdays(from, date("2024-05-31"), constant(100)),
			issues: 1,
			check:  func(t *testing.T, r Report) { assert.Contains(t, r.Issues[0], "ends 28 days before") },
		},
		{
			name: "hole",
			obs: append(weekdays(from, date("2024-02-29"), constant(100)),
				weekdays(date("2024-04-01"), to, constant(100))...),
			issues: 1,
			check: func(t *testing.T, r Report) {
				assert.Equal(t, 32, r.MaxGapDays)
				assert.Less(t, r.Coverage, 1.0)
			},
		},
		{
			name: "non-positive values",
			obs: weekdays(from, to, func(d time.Time) float64 {
				if d.Month() == time.March && d.Day() < 8 {
					return 0
				}
				return 100
			}),
			issues: 1,
			check:  func(t *testing.T, r Report) { assert.Equal(t, 5, r.NonPositive) },
		},
	}

	gate := NewGate(DefaultConfig())
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			report := gate.Check(contracts.MustSeries("X", tt.obs), from, to)
			require.Len(t, report.Issues, tt.issues, report.Issues)
			tt.check(t, report)
		})
	}
}

func TestGate_EmptySeries(t *testing.T) {
	gate := NewGate(DefaultConfig())

	report := gate.Check(nil, date("2024-01-01"), date("2024-02-01"))
	assert.False(t, report.OK())
	assert.Equal(t, []string{"empty series"}, report.Issues)
}

func TestGate_CheckAllSortsByTicker(t *testing.T) {
	from, to := date("2024-01-01"), date("2024-01-31")
	obs := weekdays(from, to, constant(1))

	reports := NewGate(DefaultConfig()).CheckAll([]*contracts.Series{
		contracts.MustSeries("^NSEI", obs),
		contracts.MustSeries("CL=F", obs),
		contracts.MustSeries("^CNXIT", obs),
	}, from, to)

	require.Len(t, reports, 3)
	assert.Equal(t, "CL=F", reports[0].Ticker)
	assert.Equal(t, "^CNXIT", reports[1].Ticker)
	assert.Equal(t, "^NSEI", reports[2].Ticker)
}
