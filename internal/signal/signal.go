// Package signal collapses a multi-timeframe analysis into a single typed
// trading signal with strength and supporting evidence (C9).
package signal

import (
	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/multitf"
)

// Signal is the facade's top-level decision.
type Signal struct {
	Type     bars.SignalType
	Strength bars.SignalStrength
	Details  string
	Evidence Evidence
}

// Evidence is the structured explanation attached to every signal.
type Evidence struct {
	PerTimeframe    map[string]TimeframeExcerpt
	Confirmations   multitf.Confirmations
	ConfidenceScore float64
}

// TimeframeExcerpt is the per-timeframe detail recorded in evidence.
type TimeframeExcerpt struct {
	TrendDirection bars.TrendDirection
	VolumeClass    bars.VolumeClass
	Accumulation   bool
	Distribution   bool
	Support        []float64
	Resistance     []float64
}

// Generate applies the five top-down signal rules to a multi-timeframe result.
func Generate(result multitf.Result, params *bars.Parameters) Signal {
	confirmations := result.Confirmations

	var sigType bars.SignalType
	var strength bars.SignalStrength
	var details string

	switch {
	case confirmations.BullishAlignment >= params.StrongAlignPct && confirmations.VolumeConfirmation && confirmations.BullishPatternConfirmation:
		sigType, strength, details = bars.SignalBuy, bars.StrengthStrong, "strong bullish alignment confirmed by volume and accumulation"
	case confirmations.BearishAlignment >= params.StrongAlignPct && confirmations.VolumeConfirmation && confirmations.BearishPatternConfirmation:
		sigType, strength, details = bars.SignalSell, bars.StrengthStrong, "strong bearish alignment confirmed by volume and distribution"
	case confirmations.BullishAlignment >= params.ModerateAlignPct && (confirmations.VolumeConfirmation || confirmations.BullishPatternConfirmation):
		sigType, strength, details = bars.SignalBuy, bars.StrengthModerate, "moderate bullish alignment with partial confirmation"
	case confirmations.BearishAlignment >= params.ModerateAlignPct && (confirmations.VolumeConfirmation || confirmations.BearishPatternConfirmation):
		sigType, strength, details = bars.SignalSell, bars.StrengthModerate, "moderate bearish alignment with partial confirmation"
	default:
		sigType, strength, details = bars.SignalNoAction, bars.StrengthNeutral, "no timeframe alignment meets the signal threshold"
	}

	evidence := buildEvidence(result)

	return Signal{Type: sigType, Strength: strength, Details: details, Evidence: evidence}
}

func buildEvidence(result multitf.Result) Evidence {
	perTF := make(map[string]TimeframeExcerpt, len(result.PerTimeframe))
	var weightedSum, weightTotal float64

	for key, ta := range result.PerTimeframe {
		if ta.Err != nil {
			continue
		}
		last := ta.Processed.Len() - 1
		excerpt := TimeframeExcerpt{
			TrendDirection: ta.TrendAnalysis.TrendDirection,
			VolumeClass:    ta.Processed.VolumeClass[last],
			Accumulation:   ta.PatternAnalysis.Accumulation.Detected,
			Distribution:   ta.PatternAnalysis.Distribution.Detected,
		}
		for _, l := range ta.SupportResistance.Support {
			excerpt.Support = append(excerpt.Support, l.Price)
		}
		for _, l := range ta.SupportResistance.Resistance {
			excerpt.Resistance = append(excerpt.Resistance, l.Price)
		}
		perTF[key] = excerpt

		weightedSum += strengthWeight(ta.CandleAnalysis.Strength)
		weightTotal++
	}

	var confidence float64
	if weightTotal > 0 {
		confidence = weightedSum / weightTotal
	}

	return Evidence{
		PerTimeframe:    perTF,
		Confirmations:   result.Confirmations,
		ConfidenceScore: confidence,
	}
}

func strengthWeight(s bars.SignalStrength) float64 {
	switch s {
	case bars.StrengthStrong:
		return 1.0
	case bars.StrengthModerate:
		return 0.5
	default:
		return 0.0
	}
}
