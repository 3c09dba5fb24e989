package contracts

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// Observation is a single dated value of a price or macro series
type Observation struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Series is an immutable, strictly date-ordered sequence of observations
// ⭐ SSOT: factor code reads history only through Until / ValueAt
type Series struct {
	ticker string
	obs    []Observation
}

// PriceSeries holds closing prices of one sector instrument
type PriceSeries = Series

// MacroSeries holds levels of an external regime indicator (currency, commodity)
type MacroSeries = Series

// NewSeries validates and copies observations into a Series.
// Dates are normalized to UTC midnight; they must be strictly increasing and
// every value must be finite.
func NewSeries(ticker string, obs []Observation) (*Series, error) {
	out := make([]Observation, len(obs))
	for i, o := range obs {
		if math.IsNaN(o.Value) || math.IsInf(o.Value, 0) {
			return nil, fmt.Errorf("series %s: non-finite value at %s", ticker, o.Date.Format(DateLayout))
		}
		out[i] = Observation{Date: DateOnly(o.Date), Value: o.Value}
		if i > 0 && !out[i].Date.After(out[i-1].Date) {
			if out[i].Date.Equal(out[i-1].Date) {
				return nil, fmt.Errorf("series %s: duplicate date %s", ticker, out[i].Date.Format(DateLayout))
			}
			return nil, fmt.Errorf("series %s: dates not increasing at %s", ticker, out[i].Date.Format(DateLayout))
		}
	}
	return &Series{ticker: ticker, obs: out}, nil
}

// MustSeries is NewSeries for fixtures; it panics on invalid input
func MustSeries(ticker string, obs []Observation) *Series {
	s, err := NewSeries(ticker, obs)
	if err != nil {
		panic(err)
	}
	return s
}

// Ticker returns the instrument identifier
func (s *Series) Ticker() string {
	return s.ticker
}

// Len returns the number of observations
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.obs)
}

// At returns the i-th observation (0 = oldest)
func (s *Series) At(i int) Observation {
	return s.obs[i]
}

// First returns the oldest observation
func (s *Series) First() (Observation, bool) {
	if s.Len() == 0 {
		return Observation{}, false
	}
	return s.obs[0], true
}

// Last returns the most recent observation
func (s *Series) Last() (Observation, bool) {
	if s.Len() == 0 {
		return Observation{}, false
	}
	return s.obs[len(s.obs)-1], true
}

// Until returns the prefix of observations dated on or before asOf.
// The returned series shares storage with s; neither exposes mutation.
func (s *Series) Until(asOf time.Time) *Series {
	if s == nil {
		return &Series{}
	}
	n := s.indexAfter(DateOnly(asOf))
	return &Series{ticker: s.ticker, obs: s.obs[:n:n]}
}

// Between returns observations dated in [from, to]
func (s *Series) Between(from, to time.Time) *Series {
	if s == nil {
		return &Series{}
	}
	lo := sort.Search(len(s.obs), func(i int) bool { return !s.obs[i].Date.Before(DateOnly(from)) })
	hi := s.indexAfter(DateOnly(to))
	if lo > hi {
		lo = hi
	}
	return &Series{ticker: s.ticker, obs: s.obs[lo:hi:hi]}
}

// ValueAt returns the last value observed on or before asOf
func (s *Series) ValueAt(asOf time.Time) (float64, bool) {
	if s == nil {
		return 0, false
	}
	n := s.indexAfter(DateOnly(asOf))
	if n == 0 {
		return 0, false
	}
	return s.obs[n-1].Value, true
}

// Covers reports whether the series has an observation on or before date
func (s *Series) Covers(date time.Time) bool {
	first, ok := s.First()
	return ok && !first.Date.After(DateOnly(date))
}

// Values returns a copy of the observation values in date order
func (s *Series) Values() []float64 {
	out := make([]float64, s.Len())
	for i := range out {
		out[i] = s.obs[i].Value
	}
	return out
}

// Dates returns a copy of the observation dates in order
func (s *Series) Dates() []time.Time {
	out := make([]time.Time, s.Len())
	for i := range out {
		out[i] = s.obs[i].Date
	}
	return out
}

// Observations returns a copy of the underlying observations
func (s *Series) Observations() []Observation {
	out := make([]Observation, s.Len())
	copy(out, s.obs)
	return out
}

// indexAfter returns the index of the first observation dated after t
func (s *Series) indexAfter(t time.Time) int {
	return sort.Search(len(s.obs), func(i int) bool { return s.obs[i].Date.After(t) })
}

// DateLayout is the canonical date format used across reports and storage
const DateLayout = "2006-01-02"

// DateOnly truncates t to midnight UTC of its calendar date
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
