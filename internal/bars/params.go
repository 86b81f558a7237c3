package bars

import "fmt"

// Parameters is the immutable configuration object threaded by shared
// read-only reference through every analyzer. It replaces the module-level
// config/logger singletons the teacher's config package loads from the
// environment: here the embedding application constructs one explicit
// value and every component receives it as an argument, never a global.
type Parameters struct {
	// Volume thresholds (strict order: VeryHigh > High > 1.0 > Low > VeryLow > 0).
	VeryHighVolumeThreshold float64
	HighVolumeThreshold     float64
	LowVolumeThreshold      float64
	VeryLowVolumeThreshold  float64

	// Candle thresholds.
	WideBodyThreshold     float64
	NarrowBodyThreshold   float64
	WideSpreadThreshold   float64
	NarrowSpreadThreshold float64
	WickRatio             float64

	// Trend / processor lookbacks.
	LookbackPeriod     int
	ATRPeriod          int
	StrongThresholdPct float64
	SlightThresholdPct float64
	UseEMA             bool

	// Pattern recognizer.
	PatternWindow     int
	SidewaysPct       float64
	TouchTolerancePct float64
	MinHighVol        int
	MinTests          int
	ClimaxBandPct     float64
	MaxTests          int

	// Support/resistance.
	PivotWindow         int
	ClusterTolerancePct float64
	LevelsPerSide       int

	// Risk.
	DefaultRiskPercent float64
	DefaultRiskReward  float64
	StopBufferPct      float64
	DefaultStopPct     float64
	AccountEquity      float64

	// Wyckoff.
	VolLookback           int
	SwingN                int
	ClimaxVolMultiplier   float64
	ClimaxRangeMultiplier float64
	SpringPct             float64
	SpringVolMultiplier   float64
	ARWindow              int
	TestBandPct           float64
	RangeMinLength        int
	JACGapPct             float64

	// Multi-timeframe / signal generator.
	StrongAlignPct   float64
	ModerateAlignPct float64

	// Timeframes this facade should analyze, in priority order; the first
	// entry is the primary timeframe support/resistance levels are drawn
	// from for risk assessment.
	Timeframes []Timeframe
}

// Timeframe names one interval/period pair the provider should be asked for.
type Timeframe struct {
	Interval string
	Period   string
}

// Epsilon is the documented absolute tolerance for floating-point equality
// comparisons across the engine.
const Epsilon = 1e-9

// ParamOption mutates a Parameters value under construction. Grounded on
// the options-preset idiom in the teacher's enrichment options, generalized
// to a functional-options constructor so individual fields can be tuned
// without repeating every default.
type ParamOption func(*Parameters)

// NewParameters builds a validated Parameters from defaults plus overrides.
func NewParameters(opts ...ParamOption) (*Parameters, error) {
	p := defaultParameters()
	for _, opt := range opts {
		opt(p)
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func defaultParameters() *Parameters {
	return &Parameters{
		VeryHighVolumeThreshold: 2.5,
		HighVolumeThreshold:     1.5,
		LowVolumeThreshold:      0.75,
		VeryLowVolumeThreshold:  0.4,

		WideBodyThreshold:     0.7,
		NarrowBodyThreshold:   0.3,
		WideSpreadThreshold:   1.5,
		NarrowSpreadThreshold: 0.6,
		WickRatio:             2.0,

		LookbackPeriod:     20,
		ATRPeriod:          14,
		StrongThresholdPct: 0.05,
		SlightThresholdPct: 0.015,
		UseEMA:             false,

		PatternWindow:     20,
		SidewaysPct:       0.04,
		TouchTolerancePct: 0.01,
		MinHighVol:        2,
		MinTests:          2,
		ClimaxBandPct:     0.02,
		MaxTests:          10,

		PivotWindow:         5,
		ClusterTolerancePct: 0.015,
		LevelsPerSide:       3,

		DefaultRiskPercent: 0.01,
		DefaultRiskReward:  2.0,
		StopBufferPct:      0.005,
		DefaultStopPct:     0.03,
		AccountEquity:      100000,

		VolLookback:           20,
		SwingN:                5,
		ClimaxVolMultiplier:   3.0,
		ClimaxRangeMultiplier: 2.0,
		SpringPct:             0.01,
		SpringVolMultiplier:   1.5,
		ARWindow:              5,
		TestBandPct:           0.015,
		RangeMinLength:        5,
		JACGapPct:             0.02,

		StrongAlignPct:   0.7,
		ModerateAlignPct: 0.5,

		Timeframes: []Timeframe{{Interval: "1d", Period: "60d"}},
	}
}

// WithVolumeThresholds overrides the four volume-class thresholds.
func WithVolumeThresholds(veryHigh, high, low, veryLow float64) ParamOption {
	return func(p *Parameters) {
		p.VeryHighVolumeThreshold = veryHigh
		p.HighVolumeThreshold = high
		p.LowVolumeThreshold = low
		p.VeryLowVolumeThreshold = veryLow
	}
}

// WithLookback overrides the trend/processor lookback period.
func WithLookback(period int) ParamOption {
	return func(p *Parameters) { p.LookbackPeriod = period }
}

// WithUseEMA toggles EMA-smoothed price direction.
func WithUseEMA(use bool) ParamOption {
	return func(p *Parameters) { p.UseEMA = use }
}

// WithRisk overrides the risk-sizing parameters.
func WithRisk(riskPercent, riskReward, accountEquity float64) ParamOption {
	return func(p *Parameters) {
		p.DefaultRiskPercent = riskPercent
		p.DefaultRiskReward = riskReward
		p.AccountEquity = accountEquity
	}
}

// WithTimeframes overrides the ordered timeframe list the facade analyzes.
func WithTimeframes(tfs ...Timeframe) ParamOption {
	return func(p *Parameters) { p.Timeframes = tfs }
}

// Validate enforces the cross-parameter consistency checks named in the
// configuration surface: strict threshold ordering and the risk bounds.
func (p *Parameters) Validate() error {
	if !(p.VeryHighVolumeThreshold > p.HighVolumeThreshold &&
		p.HighVolumeThreshold > 1.0 &&
		1.0 > p.LowVolumeThreshold &&
		p.LowVolumeThreshold > p.VeryLowVolumeThreshold &&
		p.VeryLowVolumeThreshold > 0) {
		return fmt.Errorf("%w: volume thresholds must satisfy very_high(%v) > high(%v) > 1.0 > low(%v) > very_low(%v) > 0",
			ErrInvalidConfiguration, p.VeryHighVolumeThreshold, p.HighVolumeThreshold, p.LowVolumeThreshold, p.VeryLowVolumeThreshold)
	}
	if !(p.DefaultRiskPercent > 0 && p.DefaultRiskPercent < 0.10) {
		return fmt.Errorf("%w: default_risk_percent(%v) must be in (0, 0.10)", ErrInvalidConfiguration, p.DefaultRiskPercent)
	}
	if p.DefaultRiskReward < 1.0 {
		return fmt.Errorf("%w: default_risk_reward(%v) must be >= 1.0", ErrInvalidConfiguration, p.DefaultRiskReward)
	}
	if p.LookbackPeriod < 1 {
		return fmt.Errorf("%w: lookback_period must be >= 1", ErrInvalidConfiguration)
	}
	if p.ATRPeriod < 1 {
		return fmt.Errorf("%w: atr_period must be >= 1", ErrInvalidConfiguration)
	}
	if p.VolLookback < 1 || p.SwingN < 1 {
		return fmt.Errorf("%w: vol_lookback and swing_n must be >= 1", ErrInvalidConfiguration)
	}
	if len(p.Timeframes) == 0 {
		return fmt.Errorf("%w: at least one timeframe must be configured", ErrInvalidConfiguration)
	}
	return nil
}

// MinRequiredBars is the minimum aligned series length a single analysis
// needs, per the InsufficientData boundary defined for the processor and
// the Wyckoff analyzer.
func (p *Parameters) MinRequiredBars() int {
	warmup := p.LookbackPeriod
	if p.ATRPeriod > warmup {
		warmup = p.ATRPeriod
	}
	if p.VolLookback > warmup {
		warmup = p.VolLookback
	}
	return warmup + p.SwingN
}
