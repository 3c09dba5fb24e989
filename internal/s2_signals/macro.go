package s2_signals

import (
	"fmt"
	"time"

	"github.com/montanaflynn/stats"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// Regime values
const (
	RegimeRising  = 1.0
	RegimeFalling = -1.0
)

// MacroRegime classifies an indicator as rising (+1) when its latest value
// as of asOf is above the simple average of its last lookback observations,
// falling (-1) otherwise.
func MacroRegime(indicator *contracts.MacroSeries, asOf time.Time, lookback int) contracts.FactorValue {
	hist := indicator.Until(asOf)
	if hist.Len() < lookback {
		return contracts.Missing(fmt.Sprintf("needs %d observations, have %d", lookback, hist.Len()))
	}

	values := hist.Values()
	sma, err := stats.Mean(values[len(values)-lookback:])
	if err != nil {
		return contracts.Missing(err.Error())
	}

	if values[len(values)-1] > sma {
		return contracts.Present(RegimeRising)
	}
	return contracts.Present(RegimeFalling)
}
