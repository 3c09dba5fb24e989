package strategyconfig

// Config는 섹터 로테이션 전략의 전체 설정
// ⭐ SSOT: 모든 전략 파라미터는 이 구조체에서만 정의
type Config struct {
	Meta      Meta            `yaml:"meta" json:"meta"`
	Universe  []Sector        `yaml:"universe" json:"universe" validate:"min=1,dive"`
	Selection Selection       `yaml:"selection" json:"selection"`
	Factors   Factors         `yaml:"factors" json:"factors"`
	Macro     Macro           `yaml:"macro" json:"macro"`
	Portfolio PortfolioConfig `yaml:"portfolio" json:"portfolio"`
	Backtest  Backtest        `yaml:"backtest" json:"backtest"`
}

// Meta 메타 정보
type Meta struct {
	StrategyID string `yaml:"strategy_id" json:"strategy_id" default:"sector_rotation" validate:"required"`
	Version    string `yaml:"version" json:"version" default:"1"`
}

// Sector is one investable sector instrument
type Sector struct {
	ID     string `yaml:"id" json:"id" validate:"required"`
	Ticker string `yaml:"ticker" json:"ticker" validate:"required"`
}

// Frequency is the rebalance cadence
type Frequency string

const (
	Weekly    Frequency = "weekly"
	Monthly   Frequency = "monthly"
	Quarterly Frequency = "quarterly"
)

// Selection controls ranking and the rebalance schedule
type Selection struct {
	TopN               int       `yaml:"top_n" json:"top_n" default:"5" validate:"gte=1"`
	RebalanceFrequency Frequency `yaml:"rebalance_frequency" json:"rebalance_frequency" default:"monthly" validate:"oneof=weekly monthly quarterly"`
}

// ValuationMode selects the raw valuation signal
type ValuationMode string

const (
	// ValuationAbsolute: price - SMA
	ValuationAbsolute ValuationMode = "absolute"
	// ValuationRelative: (price - SMA) / SMA
	ValuationRelative ValuationMode = "relative"
)

// Factors holds factor windows and composite weights
type Factors struct {
	Weights                FactorWeights `yaml:"weights" json:"weights"`
	RSIOverboughtThreshold float64       `yaml:"rsi_overbought_threshold" json:"rsi_overbought_threshold" default:"70" validate:"gt=0,lt=100"`
	RSIPeriod              int           `yaml:"rsi_period" json:"rsi_period" default:"14" validate:"gte=2"`
	ValuationWindowYears   int           `yaml:"valuation_window_years" json:"valuation_window_years" default:"5" validate:"gte=1"`
	ValuationMode          ValuationMode `yaml:"valuation_mode" json:"valuation_mode" default:"absolute" validate:"oneof=absolute relative"`
	MomentumWindowMonths   int           `yaml:"momentum_window_months" json:"momentum_window_months" default:"12" validate:"gte=1"`
	VolatilityWindowMonths int           `yaml:"volatility_window_months" json:"volatility_window_months" default:"6" validate:"gte=1"`
}

// FactorWeights 합 = 1.0
type FactorWeights struct {
	Momentum   float64 `yaml:"momentum" json:"momentum" default:"0.3" validate:"gte=0"`
	Valuation  float64 `yaml:"valuation" json:"valuation" default:"0.3" validate:"gte=0"`
	RSI        float64 `yaml:"rsi" json:"rsi" default:"0.2" validate:"gte=0"`
	Volatility float64 `yaml:"volatility" json:"volatility" default:"0.2" validate:"gte=0"`
}

// Sum returns the total of all factor weights
func (w FactorWeights) Sum() float64 {
	return w.Momentum + w.Valuation + w.RSI + w.Volatility
}

// Macro configures the regime overlay
type Macro struct {
	Enabled       bool          `yaml:"enabled" json:"enabled" default:"true"`
	Indicators    []Indicator   `yaml:"indicators" json:"indicators" validate:"dive"`
	Sensitivities []Sensitivity `yaml:"sensitivities" json:"sensitivities" validate:"dive"`
	Penalty       float64       `yaml:"penalty" json:"penalty" default:"0.5" validate:"gte=0"`
	PenaltyCap    float64       `yaml:"penalty_cap" json:"penalty_cap" default:"0.5" validate:"gte=0"`
}

// Indicator is an external regime series
type Indicator struct {
	ID            string `yaml:"id" json:"id" validate:"required"`
	Ticker        string `yaml:"ticker" json:"ticker" validate:"required"`
	TrendLookback int    `yaml:"trend_lookback" json:"trend_lookback" validate:"gte=2"` // observations
}

// Favorability says which regime direction helps a sector
type Favorability string

const (
	FavorsRising  Favorability = "rising"  // falling indicator is penalized
	FavorsFalling Favorability = "falling" // rising indicator is penalized
)

// Sensitivity maps a sector to the macro indicator it reacts to
type Sensitivity struct {
	Sector    string       `yaml:"sector" json:"sector" validate:"required"`
	Indicator string       `yaml:"indicator" json:"indicator" validate:"required"`
	Favors    Favorability `yaml:"favors" json:"favors" validate:"oneof=rising falling"`
}

// Weighting selects the portfolio weighting policy
type Weighting string

const (
	WeightEqual             Weighting = "equal"
	WeightScoreProportional Weighting = "score_proportional"
)

// DegeneratePolicy decides what a zero-eligible date holds
type DegeneratePolicy string

const (
	CarryForward DegeneratePolicy = "carry_forward"
	HoldCash     DegeneratePolicy = "cash"
)

// PortfolioConfig 포트폴리오 구성
type PortfolioConfig struct {
	Weighting        Weighting        `yaml:"weighting" json:"weighting" default:"equal" validate:"oneof=equal score_proportional"`
	DegeneratePolicy DegeneratePolicy `yaml:"degenerate_policy" json:"degenerate_policy" default:"carry_forward" validate:"oneof=carry_forward cash"`
}

// Backtest 시뮬레이션 파라미터
type Backtest struct {
	LookbackYears      int     `yaml:"lookback_years" json:"lookback_years" default:"5" validate:"gte=1"`
	InitialCapital     float64 `yaml:"initial_capital" json:"initial_capital" default:"100000" validate:"gt=0"`
	RiskFreeRate       float64 `yaml:"risk_free_rate" json:"risk_free_rate" default:"0.06" validate:"gte=0,lt=1"`
	Benchmark          string  `yaml:"benchmark" json:"benchmark" default:"^NSEI"`
	StartToleranceDays int     `yaml:"start_tolerance_days" json:"start_tolerance_days" validate:"gte=0"` // 0 = one rebalance period
}

// SetDefaults fills list defaults that struct tags cannot express.
// Called by defaults.Set before the YAML document is decoded on top.
func (c *Config) SetDefaults() {
	if c.Universe == nil {
		c.Universe = DefaultUniverse()
	}
	if c.Macro.Indicators == nil {
		c.Macro.Indicators = []Indicator{
			{ID: "USDINR", Ticker: "INR=X", TrendLookback: 50},
			{ID: "CrudeOil", Ticker: "CL=F", TrendLookback: 50},
		}
	}
	if c.Macro.Sensitivities == nil {
		c.Macro.Sensitivities = []Sensitivity{
			{Sector: "IT", Indicator: "USDINR", Favors: FavorsRising},
			{Sector: "Pharma", Indicator: "USDINR", Favors: FavorsRising},
			{Sector: "Auto", Indicator: "CrudeOil", Favors: FavorsFalling},
		}
	}
}

// DefaultUniverse returns the six NSE sector indices
func DefaultUniverse() []Sector {
	return []Sector{
		{ID: "Bank", Ticker: "^NSEBANK"},
		{ID: "IT", Ticker: "^CNXIT"},
		{ID: "FMCG", Ticker: "^CNXFMCG"},
		{ID: "Auto", Ticker: "^CNXAUTO"},
		{ID: "Pharma", Ticker: "^CNXPHARMA"},
		{ID: "Metal", Ticker: "^CNXMETAL"},
	}
}

// SectorIDs returns the universe sector ids in configured order
func (c *Config) SectorIDs() []string {
	ids := make([]string, len(c.Universe))
	for i, s := range c.Universe {
		ids[i] = s.ID
	}
	return ids
}

// SectorTickers maps sector id to ticker
func (c *Config) SectorTickers() map[string]string {
	out := make(map[string]string, len(c.Universe))
	for _, s := range c.Universe {
		out[s.ID] = s.Ticker
	}
	return out
}

// MacroTickers maps macro indicator id to ticker (empty when the overlay is off)
func (c *Config) MacroTickers() map[string]string {
	out := make(map[string]string)
	if !c.Macro.Enabled {
		return out
	}
	for _, ind := range c.Macro.Indicators {
		out[ind.ID] = ind.Ticker
	}
	return out
}

// Indicator returns the macro indicator with the given id
func (m Macro) Indicator(id string) (Indicator, bool) {
	for _, ind := range m.Indicators {
		if ind.ID == id {
			return ind, true
		}
	}
	return Indicator{}, false
}
