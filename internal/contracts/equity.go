package contracts

import "time"

// EquityPoint is the simulated portfolio value on one trading date
type EquityPoint struct {
	Date   time.Time `json:"date"`
	Value  float64   `json:"value"`
	Return float64   `json:"return"` // return since the previous point
}

// EquityCurve is one point per trading date of the backtest window
type EquityCurve []EquityPoint

// Returns returns the per-period returns, skipping the base point
func (c EquityCurve) Returns() []float64 {
	if len(c) < 2 {
		return nil
	}
	out := make([]float64, 0, len(c)-1)
	for _, p := range c[1:] {
		out = append(out, p.Return)
	}
	return out
}

// Values returns the equity values in date order
func (c EquityCurve) Values() []float64 {
	out := make([]float64, len(c))
	for i, p := range c {
		out[i] = p.Value
	}
	return out
}

// First returns the first point
func (c EquityCurve) First() (EquityPoint, bool) {
	if len(c) == 0 {
		return EquityPoint{}, false
	}
	return c[0], true
}

// Last returns the last point
func (c EquityCurve) Last() (EquityPoint, bool) {
	if len(c) == 0 {
		return EquityPoint{}, false
	}
	return c[len(c)-1], true
}
