package strategyconfig

import (
	"errors"
	"fmt"
	"math"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/wonny/sectorrotation/internal/contracts"
)

// WeightEpsilon is the tolerance for factor weights summing to 1.0
const WeightEpsilon = 1e-9

var validate = validator.New()

// Warning 권장 위반 (경고만)
type Warning struct {
	Code    string
	Message string
}

// Validate checks all required constraints.
// 실패 시 *contracts.ConfigurationError 반환 (프로그램 중단)
func Validate(cfg *Config) error {
	if err := validate.Struct(cfg); err != nil {
		return fromValidator(err)
	}

	// === Factor weights ===
	if err := validateWeightsSum(cfg.Factors.Weights, 1.0, WeightEpsilon); err != nil {
		return &contracts.ConfigurationError{Field: "factors.weights", Message: err.Error()}
	}

	// === Universe ===
	ids := make(map[string]bool, len(cfg.Universe))
	tickers := make(map[string]bool, len(cfg.Universe))
	for i, s := range cfg.Universe {
		if ids[s.ID] {
			return &contracts.ConfigurationError{Field: fmt.Sprintf("universe[%d].id", i), Message: "duplicate sector " + s.ID}
		}
		if tickers[s.Ticker] {
			return &contracts.ConfigurationError{Field: fmt.Sprintf("universe[%d].ticker", i), Message: "duplicate ticker " + s.Ticker}
		}
		ids[s.ID] = true
		tickers[s.Ticker] = true
	}

	if cfg.Selection.TopN > len(cfg.Universe) {
		return &contracts.ConfigurationError{
			Field:   "selection.top_n",
			Message: fmt.Sprintf("%d exceeds universe size %d", cfg.Selection.TopN, len(cfg.Universe)),
		}
	}

	// === Macro overlay ===
	if cfg.Macro.Enabled {
		seen := make(map[string]bool, len(cfg.Macro.Indicators))
		for i, ind := range cfg.Macro.Indicators {
			if seen[ind.ID] {
				return &contracts.ConfigurationError{Field: fmt.Sprintf("macro.indicators[%d].id", i), Message: "duplicate indicator " + ind.ID}
			}
			seen[ind.ID] = true
		}
		for i, s := range cfg.Macro.Sensitivities {
			if !ids[s.Sector] {
				return &contracts.ConfigurationError{Field: fmt.Sprintf("macro.sensitivities[%d].sector", i), Message: "unknown sector " + s.Sector}
			}
			if !seen[s.Indicator] {
				return &contracts.ConfigurationError{Field: fmt.Sprintf("macro.sensitivities[%d].indicator", i), Message: "unknown indicator " + s.Indicator}
			}
		}
	}

	return nil
}

// Warn checks recommended constraints (non-fatal)
func Warn(cfg *Config) []Warning {
	var warnings []Warning

	if cfg.Selection.TopN == len(cfg.Universe) {
		warnings = append(warnings, Warning{
			Code:    "NO_ROTATION",
			Message: "top_n equals universe size: every sector is always held",
		})
	}

	if cfg.Macro.Enabled && cfg.Macro.PenaltyCap < cfg.Macro.Penalty {
		warnings = append(warnings, Warning{
			Code:    "PENALTY_CAPPED",
			Message: "macro penalty exceeds penalty_cap: a single unfavorable regime is already capped",
		})
	}

	if cfg.Backtest.Benchmark == "" {
		warnings = append(warnings, Warning{
			Code:    "NO_BENCHMARK",
			Message: "no benchmark configured: relative performance is not reported",
		})
	}

	return warnings
}

// === Helper Functions ===

func fromValidator(err error) error {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) || len(verrs) == 0 {
		return &contracts.ConfigurationError{Field: "config", Message: err.Error()}
	}

	e := verrs[0]
	msg := e.Tag()
	if e.Param() != "" {
		msg = fmt.Sprintf("%s=%s", e.Tag(), e.Param())
	}
	return &contracts.ConfigurationError{
		Field:   fieldPath(e.Namespace()),
		Message: fmt.Sprintf("failed %s (got %v)", msg, e.Value()),
	}
}

// fieldPath turns "Config.Selection.TopN" into "Selection.TopN"
func fieldPath(ns string) string {
	if i := strings.Index(ns, "."); i >= 0 {
		return ns[i+1:]
	}
	return ns
}

func validateWeightsSum(w FactorWeights, target float64, epsilon float64) error {
	for _, v := range []float64{w.Momentum, w.Valuation, w.RSI, w.Volatility} {
		if math.IsNaN(v) || math.IsInf(v, 0) {
			return errors.New("must be finite")
		}
	}
	sum := w.Sum()
	if math.Abs(sum-target) > epsilon {
		return fmt.Errorf("must sum to %.2f, got %.10f", target, sum)
	}
	return nil
}
