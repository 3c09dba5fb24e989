package contracts

import (
	"fmt"
	"time"
)

// WarningCode classifies a recoverable condition recorded during a run
type WarningCode string

const (
	WarnMissingFactor       WarningCode = "MISSING_FACTOR"
	WarnDegenerateSelection WarningCode = "DEGENERATE_SELECTION"
	WarnUnderfilled         WarningCode = "UNDERFILLED_PORTFOLIO"
	WarnSectorWarmup        WarningCode = "SECTOR_WARMUP"
	WarnMacroUnavailable    WarningCode = "MACRO_UNAVAILABLE"
)

// Warning is a recoverable condition attached to the final report
type Warning struct {
	Code    WarningCode `json:"code"`
	Date    time.Time   `json:"date"`
	Sector  string      `json:"sector,omitempty"`
	Message string      `json:"message"`
}

func (w Warning) String() string {
	if w.Sector != "" {
		return fmt.Sprintf("[%s] %s %s: %s", w.Code, w.Date.Format(DateLayout), w.Sector, w.Message)
	}
	return fmt.Sprintf("[%s] %s: %s", w.Code, w.Date.Format(DateLayout), w.Message)
}

// Warnings collects warnings in the order they were raised
type Warnings []Warning

// Add appends a warning
func (ws *Warnings) Add(code WarningCode, date time.Time, sector, message string) {
	*ws = append(*ws, Warning{Code: code, Date: date, Sector: sector, Message: message})
}

// FromError appends a warning derived from a recoverable error
func (ws *Warnings) FromError(err error) {
	switch e := err.(type) {
	case *MissingFactorError:
		ws.Add(WarnMissingFactor, e.Date, e.Sector, e.Error())
	case *DegenerateSelectionError:
		ws.Add(WarnDegenerateSelection, e.Date, "", e.Error())
	}
}

// Extend appends all warnings of other
func (ws *Warnings) Extend(other Warnings) {
	*ws = append(*ws, other...)
}

// ByCode filters warnings by code
func (ws Warnings) ByCode(code WarningCode) Warnings {
	var out Warnings
	for _, w := range ws {
		if w.Code == code {
			out = append(out, w)
		}
	}
	return out
}

// Count returns the number of warnings with the given code
func (ws Warnings) Count(code WarningCode) int {
	return len(ws.ByCode(code))
}
