package contracts

import (
	"fmt"
	"strings"
	"time"
)

// InsufficientHistoryError means the data cannot support the requested start.
// Fatal: raised before any scoring or simulation work.
type InsufficientHistoryError struct {
	Requested time.Time // requested first evaluation / backtest date
	Earliest  time.Time // earliest date the data supports (zero if none)
	Reason    string
}

func (e *InsufficientHistoryError) Error() string {
	if e.Earliest.IsZero() {
		return fmt.Sprintf("insufficient history for start %s: %s",
			e.Requested.Format(DateLayout), e.Reason)
	}
	return fmt.Sprintf("insufficient history for start %s (earliest valid %s): %s",
		e.Requested.Format(DateLayout), e.Earliest.Format(DateLayout), e.Reason)
}

// MissingFactorError means a sector lacks core factors on a date.
// Local: the sector is excluded from that date's ranking only.
type MissingFactorError struct {
	Sector  string
	Date    time.Time
	Factors []FactorName
	Reason  string // reason of the first missing factor
}

func (e *MissingFactorError) Error() string {
	names := make([]string, len(e.Factors))
	for i, f := range e.Factors {
		names[i] = string(f)
	}
	msg := fmt.Sprintf("sector %s missing factors on %s: %s",
		e.Sector, e.Date.Format(DateLayout), strings.Join(names, ","))
	if e.Reason != "" {
		msg += " (" + e.Reason + ")"
	}
	return msg
}

// DegenerateSelectionError means no sector was eligible on a date.
// Recovered by the fallback policy and surfaced as a warning.
type DegenerateSelectionError struct {
	Date     time.Time
	Universe int
}

func (e *DegenerateSelectionError) Error() string {
	return fmt.Sprintf("no eligible sectors on %s (universe of %d)", e.Date.Format(DateLayout), e.Universe)
}

// ConfigurationError is an invalid strategy configuration. Fatal at construction.
type ConfigurationError struct {
	Field   string
	Message string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration %s: %s", e.Field, e.Message)
}
