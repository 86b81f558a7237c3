// Package processor derives the per-bar feature bundle (C2) that every
// downstream analyzer consumes: candle geometry, rolling volume and
// volatility statistics, and the categorical classes built on top of them.
package processor

import (
	"fmt"
	"math"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/rs/zerolog"
)

// Processor derives a Processed bundle from an aligned Series, following
// the fixed feature-derivation order: each step may depend on outputs of
// earlier steps, never later ones.
type Processor struct {
	params *bars.Parameters
	logger zerolog.Logger
}

// New builds a Processor bound to a shared, read-only Parameters value.
func New(params *bars.Parameters, logger zerolog.Logger) *Processor {
	return &Processor{params: params, logger: logger}
}

// Preprocess aligns price and volume and derives the full feature bundle.
func (p *Processor) Preprocess(price []bars.PriceBar, volume []bars.VolumeBar) (*bars.Processed, error) {
	series, err := bars.Align(price, volume)
	if err != nil {
		return nil, fmt.Errorf("preprocess: %w", err)
	}

	n := series.Len()
	if n < p.params.MinRequiredBars() {
		return nil, fmt.Errorf("%w: aligned length %d below minimum required %d", bars.ErrInsufficientData, n, p.params.MinRequiredBars())
	}

	out := &bars.Processed{Series: series}

	p.computeCandleGeometry(out)
	p.computeVolumeMetrics(out)
	p.computeVolumeClass(out)
	p.computeCandleClass(out)
	p.computeATR(out)
	p.computePriceDirection(out)
	p.computeOBV(out)
	p.computeVolumeDirection(out)

	p.logger.Debug().Int("bars", n).Msg("preprocess complete")
	return out, nil
}

// computeCandleGeometry derives spread, body_percent, upper_wick, lower_wick.
func (p *Processor) computeCandleGeometry(out *bars.Processed) {
	s := out.Series
	n := s.Len()
	out.Spread = make([]float64, n)
	out.BodyPercent = make([]float64, n)
	out.UpperWick = make([]float64, n)
	out.LowerWick = make([]float64, n)

	for i := 0; i < n; i++ {
		spread := absF(s.Close[i] - s.Open[i])
		hl := s.High[i] - s.Low[i]

		out.Spread[i] = spread
		if hl <= bars.Epsilon {
			// high == low: no range to express a body in; treat as NEUTRAL.
			out.BodyPercent[i] = 0
		} else {
			out.BodyPercent[i] = spread / math.Max(hl, bars.Epsilon)
		}

		upper := s.High[i] - math.Max(s.Open[i], s.Close[i])
		lower := math.Min(s.Open[i], s.Close[i]) - s.Low[i]
		out.UpperWick[i] = math.Max(upper, 0)
		out.LowerWick[i] = math.Max(lower, 0)
	}
}

// computeVolumeMetrics derives avg_volume (trailing simple mean) and
// volume_ratio via a one-pass rolling sum rather than a rescan per bar.
func (p *Processor) computeVolumeMetrics(out *bars.Processed) {
	s := out.Series
	n := s.Len()
	lookback := p.params.LookbackPeriod
	out.AvgVolume = make([]float64, n)
	out.VolumeRatio = make([]float64, n)

	var sum float64
	for i := 0; i < n; i++ {
		sum += s.Volume[i]
		if i >= lookback {
			sum -= s.Volume[i-lookback]
		}
		if i < lookback-1 {
			out.AvgVolume[i] = math.NaN()
			out.VolumeRatio[i] = math.NaN()
			continue
		}
		avg := sum / float64(lookback)
		out.AvgVolume[i] = avg
		if avg <= bars.Epsilon {
			out.VolumeRatio[i] = math.NaN()
		} else {
			out.VolumeRatio[i] = s.Volume[i] / avg
		}
	}
}

// computeVolumeClass buckets volume_ratio via the configured strict
// monotone thresholds. NaN ratios default to AVERAGE (neutral).
func (p *Processor) computeVolumeClass(out *bars.Processed) {
	n := out.Len()
	out.VolumeClass = make([]bars.VolumeClass, n)
	for i := 0; i < n; i++ {
		out.VolumeClass[i] = ClassifyVolumeRatio(out.VolumeRatio[i], p.params)
	}
}

// ClassifyVolumeRatio applies the four-threshold volume_class rule to a
// single ratio. Exported so other components (pattern, wyckoff) can
// reclassify a derived ratio with the same rule.
func ClassifyVolumeRatio(ratio float64, params *bars.Parameters) bars.VolumeClass {
	if math.IsNaN(ratio) {
		return bars.VolumeAverage
	}
	switch {
	case ratio >= params.VeryHighVolumeThreshold:
		return bars.VolumeVeryHigh
	case ratio >= params.HighVolumeThreshold:
		return bars.VolumeHigh
	case ratio >= params.LowVolumeThreshold:
		return bars.VolumeAverage
	case ratio >= params.VeryLowVolumeThreshold:
		return bars.VolumeLow
	default:
		return bars.VolumeVeryLow
	}
}

// computeCandleClass derives candle_class from body/spread/wick geometry
// plus a rolling mean of spread over the lookback window.
func (p *Processor) computeCandleClass(out *bars.Processed) {
	n := out.Len()
	out.CandleClass = make([]bars.CandleClass, n)
	lookback := p.params.LookbackPeriod

	var sum float64
	for i := 0; i < n; i++ {
		sum += out.Spread[i]
		if i >= lookback {
			sum -= out.Spread[i-lookback]
		}
		window := i + 1
		if window > lookback {
			window = lookback
		}
		avgSpread := sum / float64(window)

		out.CandleClass[i] = classifyCandle(out.BodyPercent[i], out.Spread[i], out.UpperWick[i], out.LowerWick[i], avgSpread, p.params)
	}
}

func classifyCandle(bodyPercent, spread, upperWick, lowerWick, avgSpread float64, params *bars.Parameters) bars.CandleClass {
	if bodyPercent >= params.WideBodyThreshold && spread >= params.WideSpreadThreshold*avgSpread {
		return bars.CandleWide
	}
	if bodyPercent <= params.NarrowBodyThreshold && spread <= params.NarrowSpreadThreshold*avgSpread {
		return bars.CandleNarrow
	}
	if math.Max(upperWick, lowerWick) >= params.WickRatio*spread {
		return bars.CandleWick
	}
	return bars.CandleNeutral
}

// computeATR derives the rolling mean of true range over atr_period bars.
func (p *Processor) computeATR(out *bars.Processed) {
	n := out.Len()
	out.ATR = make([]float64, n)
	period := p.params.ATRPeriod

	var sum float64
	trueRanges := make([]float64, n)
	for i := 0; i < n; i++ {
		tr := out.TrueRange(i)
		trueRanges[i] = tr
		sum += tr
		if i >= period {
			sum -= trueRanges[i-period]
		}
		if i < period-1 {
			out.ATR[i] = math.NaN()
			continue
		}
		out.ATR[i] = sum / float64(period)
	}
}

// computePriceDirection classifies percent change in close (or EMA of
// close, when use_ema is set) over lookback against strong/slight
// thresholds, producing the five-value TrendDirection form.
func (p *Processor) computePriceDirection(out *bars.Processed) {
	n := out.Len()
	out.PriceDirection = make([]bars.TrendDirection, n)
	lookback := p.params.LookbackPeriod

	var series []float64
	if p.params.UseEMA {
		series = ema(out.Series.Close, lookback)
	} else {
		series = out.Series.Close
	}

	for i := 0; i < n; i++ {
		if i < lookback {
			out.PriceDirection[i] = bars.TrendSideways
			continue
		}
		prev := series[i-lookback]
		if absF(prev) <= bars.Epsilon {
			out.PriceDirection[i] = bars.TrendSideways
			continue
		}
		change := (series[i] - prev) / prev
		out.PriceDirection[i] = classifyTrendChange(change, p.params.StrongThresholdPct, p.params.SlightThresholdPct)
	}
}

func classifyTrendChange(change, strongPct, slightPct float64) bars.TrendDirection {
	switch {
	case change >= strongPct:
		return bars.TrendUp
	case change >= slightPct:
		return bars.TrendSlightUp
	case change <= -strongPct:
		return bars.TrendDown
	case change <= -slightPct:
		return bars.TrendSlightDown
	default:
		return bars.TrendSideways
	}
}

func ema(values []float64, period int) []float64 {
	out := make([]float64, len(values))
	if len(values) == 0 {
		return out
	}
	k := 2.0 / (float64(period) + 1.0)
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = values[i]*k + out[i-1]*(1-k)
	}
	return out
}

// computeOBV derives the running on-balance-volume signed sum, seeded to 0.
func (p *Processor) computeOBV(out *bars.Processed) {
	n := out.Len()
	out.OBV = make([]float64, n)
	s := out.Series
	for i := 0; i < n; i++ {
		if i == 0 {
			out.OBV[i] = 0
			continue
		}
		switch {
		case s.Close[i] > s.Close[i-1]:
			out.OBV[i] = out.OBV[i-1] + s.Volume[i]
		case s.Close[i] < s.Close[i-1]:
			out.OBV[i] = out.OBV[i-1] - s.Volume[i]
		default:
			out.OBV[i] = out.OBV[i-1]
		}
	}
}

// computeVolumeDirection classifies the slope of OBV over lookback.
func (p *Processor) computeVolumeDirection(out *bars.Processed) {
	n := out.Len()
	out.VolumeDirection = make([]bars.VolumeDirection, n)
	lookback := p.params.LookbackPeriod

	for i := 0; i < n; i++ {
		if i < lookback {
			out.VolumeDirection[i] = bars.VolumeFlat
			continue
		}
		prev := out.OBV[i-lookback]
		curr := out.OBV[i]
		denom := math.Max(absF(prev), 1)
		slope := (curr - prev) / denom
		switch {
		case slope >= p.params.SlightThresholdPct:
			out.VolumeDirection[i] = bars.VolumeIncreasing
		case slope <= -p.params.SlightThresholdPct:
			out.VolumeDirection[i] = bars.VolumeDecreasing
		default:
			out.VolumeDirection[i] = bars.VolumeFlat
		}
	}
}

func absF(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
