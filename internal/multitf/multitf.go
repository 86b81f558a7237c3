// Package multitf dispatches the per-bar analyzers (candle, trend,
// pattern, support/resistance) across every configured timeframe and
// computes cross-timeframe confirmations (C8), plus a point-in-time
// variant that truncates each timeframe's view at a target index for
// historical reconstruction (C12).
//
// Per-timeframe dispatch runs one goroutine per timeframe, joined with a
// WaitGroup and guarded by a mutex, checking context once per goroutine;
// grounded on the teacher's WaitGroup/context pattern, generalized from
// symbol-sharded workers to timeframe-sharded analysis tasks.
package multitf

import (
	"context"
	"fmt"
	"sync"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/candle"
	"github.com/marketflow/vpa-engine/internal/levels"
	"github.com/marketflow/vpa-engine/internal/pattern"
	"github.com/marketflow/vpa-engine/internal/trend"
)

// TimeframeAnalysis bundles one timeframe's full C3-C6 result plus the
// processed bundle it was computed from.
type TimeframeAnalysis struct {
	Timeframe         bars.Timeframe
	Processed         *bars.Processed
	CandleAnalysis    candle.BarSignal
	TrendAnalysis     trend.TrendResult
	PatternAnalysis   pattern.Analysis
	SupportResistance levels.Analysis
	Err               error
}

// Confirmations summarizes agreement across timeframes, consumed by the
// signal generator.
type Confirmations struct {
	BullishAlignment           float64
	BearishAlignment           float64
	VolumeConfirmation         bool
	BullishPatternConfirmation bool
	BearishPatternConfirmation bool
}

// Result is the full C8 output.
type Result struct {
	PerTimeframe  map[string]TimeframeAnalysis
	Confirmations Confirmations
}

// Analyzer dispatches C3-C6 across timeframes.
type Analyzer struct {
	params *bars.Parameters
}

// New builds a multi-timeframe Analyzer bound to a shared Parameters value.
func New(params *bars.Parameters) *Analyzer {
	return &Analyzer{params: params}
}

// Analyze runs the per-timeframe analyzers against every processed bundle
// in processedByTF concurrently, honoring ctx between timeframes, and
// reassembles results deterministically by timeframe key.
func (a *Analyzer) Analyze(ctx context.Context, processedByTF map[string]*bars.Processed) (Result, error) {
	results := make(map[string]TimeframeAnalysis, len(processedByTF))

	var mu sync.Mutex
	var wg sync.WaitGroup
	for key, processed := range processedByTF {
		key, processed := key, processed
		wg.Add(1)
		go func() {
			defer wg.Done()
			if ctx.Err() != nil {
				mu.Lock()
				results[key] = TimeframeAnalysis{Err: ctx.Err()}
				mu.Unlock()
				return
			}
			ta := a.analyzeOne(processed)
			mu.Lock()
			results[key] = ta
			mu.Unlock()
		}()
	}
	wg.Wait()

	succeeded := 0
	for _, ta := range results {
		if ta.Err == nil {
			succeeded++
		}
	}
	if succeeded == 0 {
		return Result{}, fmt.Errorf("%w: every timeframe's analysis failed", bars.ErrInsufficientData)
	}

	return Result{PerTimeframe: results, Confirmations: a.confirmations(results)}, nil
}

func (a *Analyzer) analyzeOne(processed *bars.Processed) TimeframeAnalysis {
	lastIdx := processed.Len() - 1

	candleSig, err := candle.AnalyzeBar(lastIdx, processed)
	if err != nil {
		return TimeframeAnalysis{Processed: processed, Err: err}
	}

	trendResult, err := trend.AnalyzeTrend(processed, lastIdx, a.params.LookbackPeriod)
	if err != nil {
		return TimeframeAnalysis{Processed: processed, Err: err}
	}

	patternResult := pattern.Analyze(processed, lastIdx, a.params)

	currentPrice := processed.Series.Close[lastIdx]
	srResult, err := levels.Analyze(processed, currentPrice, a.params)
	if err != nil {
		return TimeframeAnalysis{Processed: processed, Err: err}
	}

	return TimeframeAnalysis{
		Processed:         processed,
		CandleAnalysis:    candleSig,
		TrendAnalysis:     trendResult,
		PatternAnalysis:   patternResult,
		SupportResistance: srResult,
	}
}

// AnalyzePointInTime is the C12 variant: each timeframe's series is
// truncated to the bars at or before targetIdx before C3-C6 run, allowing
// historical reconstruction of what the engine would have said at that
// point. Requires at least MinRequiredBars bars at or before targetIdx.
func (a *Analyzer) AnalyzePointInTime(ctx context.Context, processedByTF map[string]*bars.Processed, targetIdx int) (Result, error) {
	truncated := make(map[string]*bars.Processed, len(processedByTF))
	for key, processed := range processedByTF {
		tp, err := truncate(processed, targetIdx, a.params.MinRequiredBars())
		if err != nil {
			return Result{}, fmt.Errorf("point-in-time truncation for %s: %w", key, err)
		}
		truncated[key] = tp
	}
	return a.Analyze(ctx, truncated)
}

func truncate(p *bars.Processed, targetIdx, minRequired int) (*bars.Processed, error) {
	if targetIdx < 0 || targetIdx >= p.Len() {
		return nil, fmt.Errorf("%w: target index %d out of range", bars.ErrInternalInvariant, targetIdx)
	}
	if targetIdx+1 < minRequired {
		return nil, fmt.Errorf("%w: only %d bars at target index, need %d", bars.ErrInsufficientData, targetIdx+1, minRequired)
	}

	n := targetIdx + 1
	out := &bars.Processed{
		Series: &bars.Series{
			Timestamp: p.Series.Timestamp[:n],
			Open:      p.Series.Open[:n],
			High:      p.Series.High[:n],
			Low:       p.Series.Low[:n],
			Close:     p.Series.Close[:n],
			Volume:    p.Series.Volume[:n],
		},
		Spread:          sliceIf(p.Spread, n),
		BodyPercent:     sliceIf(p.BodyPercent, n),
		UpperWick:       sliceIf(p.UpperWick, n),
		LowerWick:       sliceIf(p.LowerWick, n),
		AvgVolume:       sliceIf(p.AvgVolume, n),
		VolumeRatio:     sliceIf(p.VolumeRatio, n),
		ATR:             sliceIf(p.ATR, n),
		OBV:             sliceIf(p.OBV, n),
	}
	if p.VolumeClass != nil {
		out.VolumeClass = p.VolumeClass[:n]
	}
	if p.CandleClass != nil {
		out.CandleClass = p.CandleClass[:n]
	}
	if p.PriceDirection != nil {
		out.PriceDirection = p.PriceDirection[:n]
	}
	if p.VolumeDirection != nil {
		out.VolumeDirection = p.VolumeDirection[:n]
	}
	return out, nil
}

func sliceIf(s []float64, n int) []float64 {
	if s == nil {
		return nil
	}
	return s[:n]
}

// confirmations computes bullish/bearish alignment and the volume/pattern
// confirmation flags across the successful per-timeframe analyses.
func (a *Analyzer) confirmations(results map[string]TimeframeAnalysis) Confirmations {
	total := 0
	bullish := 0
	bearish := 0
	highVolumeCount := 0
	anyAccumulation := false
	anyDistribution := false

	for _, ta := range results {
		if ta.Err != nil {
			continue
		}
		total++

		upTrend := ta.TrendAnalysis.TrendDirection == bars.TrendUp || ta.TrendAnalysis.TrendDirection == bars.TrendSlightUp
		downTrend := ta.TrendAnalysis.TrendDirection == bars.TrendDown || ta.TrendAnalysis.TrendDirection == bars.TrendSlightDown

		if upTrend && ta.CandleAnalysis.Type == bars.SignalBuy {
			bullish++
		}
		if downTrend && ta.CandleAnalysis.Type == bars.SignalSell {
			bearish++
		}

		if ta.Processed != nil && ta.Processed.Len() > 0 {
			last := ta.Processed.Len() - 1
			vc := ta.Processed.VolumeClass[last]
			if vc == bars.VolumeHigh || vc == bars.VolumeVeryHigh {
				highVolumeCount++
			}
		}

		if ta.PatternAnalysis.Accumulation.Detected {
			anyAccumulation = true
		}
		if ta.PatternAnalysis.Distribution.Detected {
			anyDistribution = true
		}
	}

	var bullishAlignment, bearishAlignment float64
	if total > 0 {
		bullishAlignment = float64(bullish) / float64(total)
		bearishAlignment = float64(bearish) / float64(total)
	}

	return Confirmations{
		BullishAlignment:           bullishAlignment,
		BearishAlignment:           bearishAlignment,
		VolumeConfirmation:         total > 0 && highVolumeCount*2 > total,
		BullishPatternConfirmation: anyAccumulation,
		BearishPatternConfirmation: anyDistribution,
	}
}
