// Package trend classifies price and volume behavior over a lookback
// window (C4): whether the trend is validated by volume, contradicted by
// it, or the market is simply consolidating.
package trend

import (
	"fmt"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// TrendSignalType names the relationship between price direction and
// volume direction over the window.
type TrendSignalType string

const (
	TrendValidation TrendSignalType = "TREND_VALIDATION"
	TrendAnomaly    TrendSignalType = "TREND_ANOMALY"
	Consolidation   TrendSignalType = "CONSOLIDATION"
)

// Bias is signal_strength's value space for C4, distinct from the
// STRONG/MODERATE/NEUTRAL grading used by the candle analyzer and signal
// generator: here it is keyed purely on price direction sign.
type Bias string

const (
	Bullish Bias = "BULLISH"
	Bearish Bias = "BEARISH"
	Neutral Bias = "NEUTRAL"
)

// TrendResult is the full C4 verdict for one bar.
type TrendResult struct {
	TrendDirection bars.TrendDirection
	VolumeTrend    bars.VolumeDirection
	SignalType     TrendSignalType
	SignalStrength Bias
	PercentChange  float64
}

// AnalyzeTrend computes the trend verdict at bar i over the given lookback.
// It reuses the processor's already-derived price_direction/OBV slope
// rather than recomputing them, since both already observe this lookback
// when the Parameters used to build processed match lookback.
func AnalyzeTrend(processed *bars.Processed, i int, lookback int) (TrendResult, error) {
	if i < 0 || i >= processed.Len() {
		return TrendResult{}, fmt.Errorf("%w: index out of range", bars.ErrInternalInvariant)
	}
	if i < lookback {
		return TrendResult{
			TrendDirection: bars.TrendSideways,
			VolumeTrend:    bars.VolumeFlat,
			SignalType:     Consolidation,
			SignalStrength: Neutral,
		}, nil
	}

	closeNow := processed.Series.Close[i]
	closePrev := processed.Series.Close[i-lookback]
	var pctChange float64
	if closePrev != 0 {
		pctChange = (closeNow - closePrev) / closePrev
	}

	direction := processed.PriceDirection[i]
	volumeDir := processed.VolumeDirection[i]

	result := TrendResult{
		TrendDirection: direction,
		VolumeTrend:    volumeDir,
		PercentChange:  pctChange,
	}

	isUp := direction == bars.TrendUp || direction == bars.TrendSlightUp
	isDown := direction == bars.TrendDown || direction == bars.TrendSlightDown
	isSideways := direction == bars.TrendSideways

	switch {
	case isSideways:
		result.SignalType = Consolidation
	case isUp && volumeDir == bars.VolumeIncreasing:
		result.SignalType = TrendValidation
	case isDown && volumeDir == bars.VolumeDecreasing:
		result.SignalType = TrendValidation
	case (isUp && volumeDir == bars.VolumeDecreasing) || (isDown && volumeDir == bars.VolumeIncreasing):
		result.SignalType = TrendAnomaly
	default:
		result.SignalType = Consolidation
	}

	switch {
	case isUp:
		result.SignalStrength = Bullish
	case isDown:
		result.SignalStrength = Bearish
	default:
		result.SignalStrength = Neutral
	}

	return result, nil
}
