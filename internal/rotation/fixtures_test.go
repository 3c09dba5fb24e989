package rotation

import (
	"math"
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

func series(ticker string, from, to time.Time, price func(i int) float64) *contracts.Series {
	days := businessDays(from, to)
	obs := make([]contracts.Observation, len(days))
	for i, d := range days {
		obs[i] = contracts.Observation{Date: d, Value: price(i)}
	}
	return contracts.MustSeries(ticker, obs)
}

var sectorIDs = []string{"Bank", "IT", "FMCG", "Auto", "Pharma", "Metal"}

// monotonicData: six sectors rising steadily from 2015-01-01 for seven years
func monotonicData() *contracts.MarketData {
	from, to := date("2015-01-01"), date("2021-12-31")
	data := &contracts.MarketData{Sectors: map[string]*contracts.PriceSeries{}, Macro: map[string]*contracts.MacroSeries{}}
	for k, id := range sectorIDs {
		slope := 0.05 * float64(k+1)
		data.Sectors[id] = series(id, from, to, func(i int) float64 { return 100 + slope*float64(i) })
	}
	data.Macro["USDINR"] = series("INR=X", from, to, func(i int) float64 { return 70 + 0.004*float64(i) })
	data.Macro["CrudeOil"] = series("CL=F", from, to, func(i int) float64 { return 60 + 5*math.Sin(float64(i)/40) })
	return data
}

func defaultConfig(t *testing.T) *strategyconfig.Config {
	t.Helper()
	cfg, err := strategyconfig.Default()
	require.NoError(t, err)
	return cfg
}

func parseConfig(t *testing.T, yaml string) *strategyconfig.Config {
	t.Helper()
	cfg, err := strategyconfig.Parse([]byte(yaml))
	require.NoError(t, err)
	return cfg
}
