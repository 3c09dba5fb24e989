package backtest

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/contracts"
	"github.com/wonny/sectorrotation/internal/strategyconfig"
)

func date(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func businessDays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() != time.Saturday && d.Weekday() != time.Sunday {
			out = append(out, d)
		}
	}
	return out
}

func seriesOn(ticker string, days []time.Time, price func(i int) float64) *contracts.Series {
	obs := make([]contracts.Observation, len(days))
	for i, d := range days {
		obs[i] = contracts.Observation{Date: d, Value: price(i)}
	}
	return contracts.MustSeries(ticker, obs)
}

func flat(v float64) func(int) float64 {
	return func(int) float64 { return v }
}

// steps returns a price function that is levels[k] from index at[k] onward
func steps(at []int, levels []float64) func(int) float64 {
	return func(i int) float64 {
		v := levels[0]
		for k := range at {
			if i >= at[k] {
				v = levels[k]
			}
		}
		return v
	}
}

var sectorIDs = []string{"Bank", "IT", "FMCG", "Auto", "Pharma", "Metal"}

// risingData: six sectors, macro and benchmark rising on business days in [from, to]
func risingData(from, to time.Time) *contracts.MarketData {
	days := businessDays(from, to)
	data := &contracts.MarketData{
		Sectors: map[string]*contracts.PriceSeries{},
		Macro:   map[string]*contracts.MacroSeries{},
	}
	for k, id := range sectorIDs {
		slope := 0.05 * float64(k+1)
		data.Sectors[id] = seriesOn(id, days, func(i int) float64 { return 100 + slope*float64(i) })
	}
	data.Macro["USDINR"] = seriesOn("INR=X", days, func(i int) float64 { return 70 + 0.004*float64(i) })
	data.Macro["CrudeOil"] = seriesOn("CL=F", days, func(i int) float64 { return 80 - 0.002*float64(i) })
	data.Benchmark = seriesOn("^NSEI", days, func(i int) float64 { return 1000 + float64(i) })
	return data
}

// withoutRange drops every sector observation dated in [from, to]
func withoutRange(data *contracts.MarketData, from, to time.Time) *contracts.MarketData {
	for id, s := range data.Sectors {
		var kept []contracts.Observation
		for _, o := range s.Observations() {
			if o.Date.Before(from) || o.Date.After(to) {
				kept = append(kept, o)
			}
		}
		data.Sectors[id] = contracts.MustSeries(s.Ticker(), kept)
	}
	return data
}

func parseConfig(t *testing.T, yaml string) *strategyconfig.Config {
	t.Helper()
	cfg, err := strategyconfig.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}

func schedule(t *testing.T, entries ...contracts.Portfolio) *contracts.RotationSchedule {
	t.Helper()
	s, err := contracts.NewRotationSchedule(entries)
	require.NoError(t, err)
	return s
}

func hold(d time.Time, weights map[string]float64) contracts.Portfolio {
	p := contracts.Portfolio{Date: d, Eligible: len(weights)}
	for _, id := range []string{"A", "B", "Bank", "IT", "FMCG", "Auto", "Pharma", "Metal"} {
		if w, ok := weights[id]; ok {
			p.Holdings = append(p.Holdings, contracts.Holding{Sector: id, Weight: w})
		}
	}
	return p
}

type fakeProvider struct {
	data *contracts.MarketData
	err  error
	req  contracts.DataRequest
}

func (f *fakeProvider) Load(_ context.Context, req contracts.DataRequest) (*contracts.MarketData, error) {
	f.req = req
	return f.data, f.err
}
