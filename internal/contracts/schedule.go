package contracts

import (
	"encoding/json"
	"fmt"
	"sort"
	"time"
)

// RotationSchedule is the ordered sequence of target portfolios, one per
// evaluation date. It is immutable once built.
type RotationSchedule struct {
	entries []Portfolio
}

// NewRotationSchedule validates ordering and weights and freezes the entries
func NewRotationSchedule(entries []Portfolio) (*RotationSchedule, error) {
	frozen := make([]Portfolio, len(entries))
	for i, p := range entries {
		if i > 0 && !p.Date.After(entries[i-1].Date) {
			return nil, fmt.Errorf("rotation schedule: date %s not after %s",
				p.Date.Format(DateLayout), entries[i-1].Date.Format(DateLayout))
		}
		if err := p.Validate(); err != nil {
			return nil, fmt.Errorf("rotation schedule: %w", err)
		}
		holdings := make([]Holding, len(p.Holdings))
		copy(holdings, p.Holdings)
		p.Holdings = holdings
		frozen[i] = p
	}
	return &RotationSchedule{entries: frozen}, nil
}

// Len returns the number of evaluation dates
func (s *RotationSchedule) Len() int {
	return len(s.entries)
}

// At returns a copy of the i-th portfolio
func (s *RotationSchedule) At(i int) Portfolio {
	p := s.entries[i]
	holdings := make([]Holding, len(p.Holdings))
	copy(holdings, p.Holdings)
	p.Holdings = holdings
	return p
}

// Dates returns the evaluation dates in order
func (s *RotationSchedule) Dates() []time.Time {
	out := make([]time.Time, len(s.entries))
	for i, p := range s.entries {
		out[i] = p.Date
	}
	return out
}

// Portfolios returns copies of all entries
func (s *RotationSchedule) Portfolios() []Portfolio {
	out := make([]Portfolio, len(s.entries))
	for i := range s.entries {
		out[i] = s.At(i)
	}
	return out
}

// ActiveBefore returns the index of the latest portfolio dated strictly
// before t, or -1. A portfolio decided at the close of D is held from the
// next trading date onward.
func (s *RotationSchedule) ActiveBefore(t time.Time) int {
	return sort.Search(len(s.entries), func(i int) bool { return !s.entries[i].Date.Before(t) }) - 1
}

// MarshalJSON encodes the schedule as a list of portfolios
func (s *RotationSchedule) MarshalJSON() ([]byte, error) {
	return json.Marshal(s.entries)
}

// UnmarshalJSON decodes and re-validates a list of portfolios
func (s *RotationSchedule) UnmarshalJSON(data []byte) error {
	var entries []Portfolio
	if err := json.Unmarshal(data, &entries); err != nil {
		return err
	}
	decoded, err := NewRotationSchedule(entries)
	if err != nil {
		return err
	}
	*s = *decoded
	return nil
}
