// Package candle classifies a single processed bar into a directional
// signal (C3), the first and simplest of the analyzers built on top of
// the processor's feature bundle.
package candle

import (
	"fmt"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// BarSignal is the per-bar verdict: a signal type, a strength grade, and a
// human-readable explanation of which rule fired.
type BarSignal struct {
	Type     bars.SignalType
	Strength bars.SignalStrength
	Details  string
}

// ErrIndexOutOfRange is returned when AnalyzeBar is asked for a bar beyond
// the processed bundle's length.
var ErrIndexOutOfRange = fmt.Errorf("%w: index out of range", bars.ErrInternalInvariant)

// AnalyzeBar classifies bar i of processed using the fixed top-down rule
// table: the first matching rule wins.
func AnalyzeBar(i int, processed *bars.Processed) (BarSignal, error) {
	if i < 0 || i >= processed.Len() {
		return BarSignal{}, ErrIndexOutOfRange
	}

	candleClass := processed.CandleClass[i]
	volumeClass := processed.VolumeClass[i]
	direction := processed.PriceDirection[i]
	upperWick := processed.UpperWick[i]
	lowerWick := processed.LowerWick[i]

	highVolume := volumeClass == bars.VolumeHigh || volumeClass == bars.VolumeVeryHigh
	upDirection := direction == bars.TrendUp || direction == bars.TrendSlightUp
	downDirection := direction == bars.TrendDown || direction == bars.TrendSlightDown

	switch {
	case candleClass == bars.CandleWide && highVolume && upDirection:
		return BarSignal{bars.SignalBuy, bars.StrengthStrong, "wide up candle on high volume"}, nil

	case candleClass == bars.CandleWide && highVolume && downDirection:
		return BarSignal{bars.SignalSell, bars.StrengthStrong, "wide down candle on high volume"}, nil

	case candleClass == bars.CandleWick && lowerWick > upperWick && volumeClass.Rank() >= bars.VolumeHigh.Rank():
		return BarSignal{bars.SignalBuy, bars.StrengthModerate, "dominant lower wick on elevated volume"}, nil

	case candleClass == bars.CandleWick && upperWick > lowerWick && volumeClass.Rank() >= bars.VolumeHigh.Rank():
		return BarSignal{bars.SignalSell, bars.StrengthModerate, "dominant upper wick on elevated volume"}, nil

	case candleClass == bars.CandleNarrow && volumeClass.Rank() <= bars.VolumeLow.Rank():
		return BarSignal{bars.SignalNoAction, bars.StrengthNeutral, "contraction: narrow body on low volume"}, nil

	default:
		return BarSignal{bars.SignalNoAction, bars.StrengthNeutral, "no qualifying pattern"}, nil
	}
}
