package s2_signals

import (
	"time"

	"github.com/wonny/sectorrotation/internal/contracts"
)

func date(s string) time.Time {
	t, err := time.Parse(contracts.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

// businessDays returns weekdays in [from, to]
func businessDays(from, to time.Time) []time.Time {
	var out []time.Time
	for d := from; !d.After(to); d = d.AddDate(0, 0, 1) {
		if d.Weekday() == time.Saturday || d.Weekday() == time.Sunday {
			continue
		}
		out = append(out, d)
	}
	return out
}

// seriesFrom builds a series on business days with price(i)
func seriesFrom(ticker string, from, to time.Time, price func(i int) float64) *contracts.Series {
	days := businessDays(from, to)
	obs := make([]contracts.Observation, len(days))
	for i, d := range days {
		obs[i] = contracts.Observation{Date: d, Value: price(i)}
	}
	return contracts.MustSeries(ticker, obs)
}

// poisoned appends absurd observations after asOf; any factor that reads
// them returns a visibly different value
func poisoned(s *contracts.Series, asOf time.Time, days int) *contracts.Series {
	obs := s.Until(asOf).Observations()
	last := obs[len(obs)-1].Date
	for i := 1; i <= days; i++ {
		obs = append(obs, contracts.Observation{Date: last.AddDate(0, 0, i), Value: 1e12 * float64(i%3+1)})
	}
	return contracts.MustSeries(s.Ticker(), obs)
}
