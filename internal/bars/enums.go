package bars

// Closed sum types for every categorical value the engine produces.
// Stringly-typed comparisons over bare strings are a reimplementation
// hazard — these are all distinct types so the compiler rejects crossing
// wires between, say, a SignalType and a VolumeClass.

// SignalType is the final action a signal carries.
type SignalType string

const (
	SignalBuy      SignalType = "BUY"
	SignalSell     SignalType = "SELL"
	SignalNoAction SignalType = "NO_ACTION"
)

// SignalStrength grades a signal or a single bar's conviction.
type SignalStrength string

const (
	StrengthStrong   SignalStrength = "STRONG"
	StrengthModerate SignalStrength = "MODERATE"
	StrengthNeutral  SignalStrength = "NEUTRAL"
)

// VolumeClass buckets a bar's volume_ratio against rolling average volume.
type VolumeClass string

const (
	VolumeVeryHigh VolumeClass = "VERY_HIGH"
	VolumeHigh     VolumeClass = "HIGH"
	VolumeAverage  VolumeClass = "AVERAGE"
	VolumeLow      VolumeClass = "LOW"
	VolumeVeryLow  VolumeClass = "VERY_LOW"
)

// volumeClassRank gives VolumeClass a total order for monotonicity checks:
// rank(r1) <= rank(r2) whenever r1 <= r2 as raw ratios.
var volumeClassRank = map[VolumeClass]int{
	VolumeVeryLow:  0,
	VolumeLow:      1,
	VolumeAverage:  2,
	VolumeHigh:     3,
	VolumeVeryHigh: 4,
}

// Rank returns this class's position in the VERY_LOW..VERY_HIGH order.
func (v VolumeClass) Rank() int {
	return volumeClassRank[v]
}

// CandleClass buckets a bar's body/spread/wick geometry.
type CandleClass string

const (
	CandleWide    CandleClass = "WIDE"
	CandleNarrow  CandleClass = "NARROW"
	CandleWick    CandleClass = "WICK"
	CandleNeutral CandleClass = "NEUTRAL"
)

// TrendDirection is price direction over a lookback window. The spec allows
// either a three-value or five-value form; the processor always derives the
// five-value form from its strong/slight thresholds.
type TrendDirection string

const (
	TrendUp         TrendDirection = "UP"
	TrendSlightUp   TrendDirection = "SLIGHT_UP"
	TrendSideways   TrendDirection = "SIDEWAYS"
	TrendSlightDown TrendDirection = "SLIGHT_DOWN"
	TrendDown       TrendDirection = "DOWN"
)

// VolumeDirection is the OBV slope classification over a lookback window.
type VolumeDirection string

const (
	VolumeIncreasing VolumeDirection = "INCREASING"
	VolumeDecreasing VolumeDirection = "DECREASING"
	VolumeFlat       VolumeDirection = "FLAT"
)

// WyckoffEvent names a single detected Wyckoff event.
type WyckoffEvent string

const (
	EventPS           WyckoffEvent = "PS"
	EventSC           WyckoffEvent = "SC"
	EventAR           WyckoffEvent = "AR"
	EventST           WyckoffEvent = "ST"
	EventSpring       WyckoffEvent = "SPRING"
	EventTest         WyckoffEvent = "TEST"
	EventSOS          WyckoffEvent = "SOS"
	EventLPS          WyckoffEvent = "LPS"
	EventUT           WyckoffEvent = "UT"
	EventUTAD         WyckoffEvent = "UTAD"
	EventBC           WyckoffEvent = "BC"
	EventSOW          WyckoffEvent = "SOW"
	EventLPSY         WyckoffEvent = "LPSY"
	EventJAC          WyckoffEvent = "JAC"
	EventAutoReaction WyckoffEvent = "AUTO_REACTION"
)

// WyckoffPhase is one of the five Wyckoff accumulation/distribution phases.
type WyckoffPhase string

const (
	PhaseA WyckoffPhase = "A"
	PhaseB WyckoffPhase = "B"
	PhaseC WyckoffPhase = "C"
	PhaseD WyckoffPhase = "D"
	PhaseE WyckoffPhase = "E"
)

// MarketContext is the Wyckoff analyzer's running regime classification.
type MarketContext string

const (
	ContextUndetermined MarketContext = "UNDETERMINED"
	ContextDowntrend    MarketContext = "DOWNTREND"
	ContextAccumulation MarketContext = "ACCUMULATION"
	ContextUptrend      MarketContext = "UPTREND"
	ContextDistribution MarketContext = "DISTRIBUTION"
)

// TradingRangeKind distinguishes accumulation from distribution ranges.
type TradingRangeKind string

const (
	RangeAccumulation TradingRangeKind = "ACCUMULATION"
	RangeDistribution TradingRangeKind = "DISTRIBUTION"
)
