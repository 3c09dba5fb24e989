package strategyconfig

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wonny/sectorrotation/internal/contracts"
)

func TestDefault(t *testing.T) {
	cfg, err := Default()
	require.NoError(t, err)

	assert.Equal(t, "sector_rotation", cfg.Meta.StrategyID)
	assert.Len(t, cfg.Universe, 6)
	assert.Equal(t, 5, cfg.Selection.TopN)
	assert.Equal(t, Monthly, cfg.Selection.RebalanceFrequency)
	assert.Equal(t, 5, cfg.Backtest.LookbackYears)
	assert.InDelta(t, 1.0, cfg.Factors.Weights.Sum(), 1e-12)
	assert.Equal(t, 0.3, cfg.Factors.Weights.Momentum)
	assert.Equal(t, 70.0, cfg.Factors.RSIOverboughtThreshold)
	assert.Equal(t, 14, cfg.Factors.RSIPeriod)
	assert.Equal(t, 5, cfg.Factors.ValuationWindowYears)
	assert.Equal(t, ValuationAbsolute, cfg.Factors.ValuationMode)
	assert.Equal(t, 12, cfg.Factors.MomentumWindowMonths)
	assert.Equal(t, 6, cfg.Factors.VolatilityWindowMonths)
	assert.Equal(t, WeightEqual, cfg.Portfolio.Weighting)
	assert.Equal(t, CarryForward, cfg.Portfolio.DegeneratePolicy)
	assert.Equal(t, 100000.0, cfg.Backtest.InitialCapital)
	assert.Equal(t, 0.06, cfg.Backtest.RiskFreeRate)
	assert.True(t, cfg.Macro.Enabled)
	assert.Len(t, cfg.Macro.Sensitivities, 3)
}

func TestParse_OverridesKeepOtherDefaults(t *testing.T) {
	cfg, err := Parse([]byte(`
selection:
  top_n: 3
  rebalance_frequency: quarterly
factors:
  weights:
    momentum: 0.5
    valuation: 0.5
    rsi: 0
    volatility: 0
`))
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.Selection.TopN)
	assert.Equal(t, Quarterly, cfg.Selection.RebalanceFrequency)
	assert.Equal(t, 0.0, cfg.Factors.Weights.RSI, "explicit zero must not be replaced by the default")
	assert.Equal(t, 14, cfg.Factors.RSIPeriod)
	assert.Len(t, cfg.Universe, 6)
}

func TestParse_UnknownField(t *testing.T) {
	_, err := Parse([]byte("selection:\n  top_m: 3\n"))
	assert.Error(t, err)
}

func TestParse_MacroIndicatorLookbackDefault(t *testing.T) {
	cfg, err := Parse([]byte(`
macro:
  indicators:
    - id: USDINR
      ticker: INR=X
  sensitivities:
    - sector: IT
      indicator: USDINR
      favors: rising
`))
	require.NoError(t, err)
	require.Len(t, cfg.Macro.Indicators, 1)
	assert.Equal(t, 50, cfg.Macro.Indicators[0].TrendLookback)
}

func TestValidate_ConfigurationErrors(t *testing.T) {
	tests := []struct {
		name  string
		yaml  string
		field string
	}{
		{
			name:  "weights do not sum to one",
			yaml:  "factors:\n  weights:\n    momentum: 0.4\n",
			field: "factors.weights",
		},
		{
			name:  "top_n exceeds universe",
			yaml:  "selection:\n  top_n: 7\n",
			field: "selection.top_n",
		},
		{
			name:  "bad frequency",
			yaml:  "selection:\n  rebalance_frequency: daily\n",
			field: "Selection.RebalanceFrequency",
		},
		{
			name:  "rsi threshold out of range",
			yaml:  "factors:\n  rsi_overbought_threshold: 120\n",
			field: "Factors.RSIOverboughtThreshold",
		},
		{
			name:  "duplicate sector",
			yaml:  "universe:\n  - {id: IT, ticker: A}\n  - {id: IT, ticker: B}\nselection:\n  top_n: 1\nmacro:\n  enabled: false\n",
			field: "universe[1].id",
		},
		{
			name:  "sensitivity to unknown sector",
			yaml:  "universe:\n  - {id: IT, ticker: A}\n  - {id: Bank, ticker: B}\nselection:\n  top_n: 1\n",
			field: "macro.sensitivities[1].sector",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Parse([]byte(tt.yaml))
			require.Error(t, err)

			var cfgErr *contracts.ConfigurationError
			require.True(t, errors.As(err, &cfgErr), "got %T: %v", err, err)
			assert.Equal(t, tt.field, cfgErr.Field)
		})
	}
}

func TestValidateWeightsSum(t *testing.T) {
	tests := []struct {
		name    string
		weights FactorWeights
		wantErr bool
	}{
		{"exact", FactorWeights{0.3, 0.3, 0.2, 0.2}, false},
		{"within epsilon", FactorWeights{0.3, 0.3, 0.2, 0.2 + 1e-12}, false},
		{"off", FactorWeights{0.3, 0.3, 0.2, 0.3}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := validateWeightsSum(tt.weights, 1.0, WeightEpsilon)
			if (err != nil) != tt.wantErr {
				t.Errorf("validateWeightsSum() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestWarn(t *testing.T) {
	cfg, err := Parse([]byte("selection:\n  top_n: 6\nbacktest:\n  benchmark: \"\"\n"))
	require.NoError(t, err)

	codes := map[string]bool{}
	for _, w := range Warn(cfg) {
		codes[w.Code] = true
	}
	assert.True(t, codes["NO_ROTATION"])
	assert.True(t, codes["NO_BENCHMARK"])
}

func TestStartTolerance(t *testing.T) {
	day := 24 * time.Hour
	tests := []struct {
		freq Frequency
		days int
		want time.Duration
	}{
		{Weekly, 0, 7 * day},
		{Monthly, 0, 31 * day},
		{Quarterly, 0, 92 * day},
		{Monthly, 10, 10 * day},
	}

	for _, tt := range tests {
		cfg := &Config{Selection: Selection{RebalanceFrequency: tt.freq}, Backtest: Backtest{StartToleranceDays: tt.days}}
		if got := cfg.StartTolerance(); got != tt.want {
			t.Errorf("StartTolerance(%s, %d) = %v, want %v", tt.freq, tt.days, got, tt.want)
		}
	}
}

func TestHash_Deterministic(t *testing.T) {
	a, err := Default()
	require.NoError(t, err)
	b, err := Default()
	require.NoError(t, err)

	ha, err := Hash(a)
	require.NoError(t, err)
	hb, err := Hash(b)
	require.NoError(t, err)
	assert.Len(t, ha, 64)
	assert.Equal(t, ha, hb)

	b.Selection.TopN = 4
	hc, _ := Hash(b)
	assert.NotEqual(t, ha, hc)
}

func TestLoad_ShippedStrategy(t *testing.T) {
	path := filepath.Join("..", "..", "config", "strategy", "sector_rotation.yaml")
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Skip("config file not found")
	}

	cfg, raw, err := Load(path)
	require.NoError(t, err)
	assert.NotEmpty(t, raw)
	assert.Equal(t, "sector_rotation", cfg.Meta.StrategyID)
}
