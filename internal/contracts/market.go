package contracts

import (
	"context"
	"sort"
	"time"
)

// MarketData is the full history handed to the core by the data provider.
// It is loaded once before the rotation engine starts and never mutated.
type MarketData struct {
	Sectors   map[string]*PriceSeries `json:"-"` // key: sector id
	Macro     map[string]*MacroSeries `json:"-"` // key: macro indicator id
	Benchmark *PriceSeries            `json:"-"` // optional
}

// Sector returns the price series of a sector
func (m *MarketData) Sector(id string) (*PriceSeries, bool) {
	s, ok := m.Sectors[id]
	return s, ok && s.Len() > 0
}

// Calendar returns the sorted union of trading dates across all sectors
func (m *MarketData) Calendar() []time.Time {
	seen := make(map[time.Time]struct{})
	for _, s := range m.Sectors {
		for i := 0; i < s.Len(); i++ {
			seen[s.At(i).Date] = struct{}{}
		}
	}

	dates := make([]time.Time, 0, len(seen))
	for d := range seen {
		dates = append(dates, d)
	}
	sort.Slice(dates, func(i, j int) bool { return dates[i].Before(dates[j]) })
	return dates
}

// EarliestDate returns the oldest sector observation across the universe
func (m *MarketData) EarliestDate() (time.Time, bool) {
	var earliest time.Time
	found := false
	for _, s := range m.Sectors {
		first, ok := s.First()
		if !ok {
			continue
		}
		if !found || first.Date.Before(earliest) {
			earliest = first.Date
			found = true
		}
	}
	return earliest, found
}

// LatestDate returns the most recent sector observation across the universe
func (m *MarketData) LatestDate() (time.Time, bool) {
	var latest time.Time
	found := false
	for _, s := range m.Sectors {
		last, ok := s.Last()
		if !ok {
			continue
		}
		if !found || last.Date.After(latest) {
			latest = last.Date
			found = true
		}
	}
	return latest, found
}

// DataRequest describes the instruments and range a provider must deliver
type DataRequest struct {
	Sectors   map[string]string `json:"sectors"`   // sector id -> ticker
	Macro     map[string]string `json:"macro"`     // indicator id -> ticker
	Benchmark string            `json:"benchmark"` // ticker, optional
	From      time.Time         `json:"from"`
	To        time.Time         `json:"to"`
}

// Tickers returns every ticker referenced by the request, deduplicated and sorted
func (r DataRequest) Tickers() []string {
	set := make(map[string]struct{})
	for _, t := range r.Sectors {
		set[t] = struct{}{}
	}
	for _, t := range r.Macro {
		set[t] = struct{}{}
	}
	if r.Benchmark != "" {
		set[r.Benchmark] = struct{}{}
	}

	out := make([]string, 0, len(set))
	for t := range set {
		out = append(out, t)
	}
	sort.Strings(out)
	return out
}

// MarketDataProvider loads price and macro history
// ⭐ SSOT: the core never fetches data itself; it only consumes MarketData
type MarketDataProvider interface {
	Load(ctx context.Context, req DataRequest) (*MarketData, error)
}
