// Package marketflow is the sole entry point external collaborators use:
// it wires Parameters, the Processor, every per-bar analyzer, the
// multi-timeframe synthesizer, the signal generator, and the risk
// assessor behind a single Analyze call (C11).
//
// The facade owns its analyzers by composition, grounded on the
// "REQ-029 data provider abstraction" idiom in the teacher's fetcher
// package: analyzers are constructed once per Analyze call from the
// shared read-only Parameters and never hold a back-reference to the
// facade itself.
package marketflow

import (
	"context"
	"fmt"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/mflog"
	"github.com/marketflow/vpa-engine/internal/multitf"
	"github.com/marketflow/vpa-engine/internal/processor"
	"github.com/marketflow/vpa-engine/internal/riskassess"
	"github.com/marketflow/vpa-engine/internal/signal"
	"github.com/marketflow/vpa-engine/internal/wyckoff"
	"github.com/rs/zerolog"
)

// DataProvider is the external collaborator that supplies aligned OHLCV
// bars for a ticker/timeframe pair. Its fetch operation is the engine's
// sole suspension point; every other component is pure computation.
type DataProvider interface {
	Fetch(ctx context.Context, ticker string, tf bars.Timeframe) ([]bars.PriceBar, []bars.VolumeBar, error)
}

// AnalysisResult is the facade's complete output for one ticker.
type AnalysisResult struct {
	Ticker            string
	CurrentPrice      float64
	TimeframeAnalyses map[string]multitf.TimeframeAnalysis
	Confirmations     multitf.Confirmations
	Signal            signal.Signal
	RiskAssessment    *riskassess.Assessment
	WyckoffEvents     map[string][]wyckoff.Event
	WyckoffPhases     map[string][]wyckoff.PhaseSpan
	WyckoffRanges     map[string][]wyckoff.TradingRange
	TimeframeFailures map[string]error
}

// Facade is the engine's single entry point, wiring C1-C10.
type Facade struct {
	params   *bars.Parameters
	provider DataProvider
	logger   zerolog.Logger
}

// New builds a Facade bound to a validated Parameters value, an injected
// DataProvider, and a root logger every child component derives from.
func New(params *bars.Parameters, provider DataProvider, logger zerolog.Logger) *Facade {
	return &Facade{params: params, provider: provider, logger: logger}
}

// Analyze runs the full pipeline for one ticker across every configured
// timeframe: fetch, preprocess, analyze, synthesize. Per-timeframe
// failures are isolated — the facade continues with whatever timeframes
// succeeded and records failures in the result, per the propagation
// policy. A top-level error is returned only when every timeframe fails
// or parameter/provider misuse prevents any analysis at all.
func (f *Facade) Analyze(ctx context.Context, ticker string) (*AnalysisResult, error) {
	start := f.logger
	log := mflog.Component(start, "facade")

	processedByTF := make(map[string]*bars.Processed)
	failures := make(map[string]error)

	for _, tf := range f.params.Timeframes {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("analyze %s: cancelled: %w", ticker, err)
		}

		key := tf.Interval
		price, volume, err := f.provider.Fetch(ctx, ticker, tf)
		if err != nil {
			failures[key] = fmt.Errorf("fetch %s: %w", key, err)
			mflog.LogError(log, err, "fetch failed", map[string]interface{}{"ticker": ticker, "timeframe": key})
			continue
		}

		proc := processor.New(f.params, mflog.Component(start, "processor"))
		processed, err := proc.Preprocess(price, volume)
		if err != nil {
			failures[key] = fmt.Errorf("preprocess %s: %w", key, err)
			mflog.LogError(log, err, "preprocess failed", map[string]interface{}{"ticker": ticker, "timeframe": key})
			continue
		}
		processedByTF[key] = processed
	}

	if len(processedByTF) == 0 {
		return nil, fmt.Errorf("analyze %s: %w: every timeframe failed", ticker, bars.ErrInsufficientData)
	}

	mtf := multitf.New(f.params)
	mtfResult, err := mtf.Analyze(ctx, processedByTF)
	if err != nil {
		return nil, fmt.Errorf("analyze %s: %w", ticker, err)
	}

	wyckoffEvents := make(map[string][]wyckoff.Event, len(processedByTF))
	wyckoffPhases := make(map[string][]wyckoff.PhaseSpan, len(processedByTF))
	wyckoffRanges := make(map[string][]wyckoff.TradingRange, len(processedByTF))
	for key, processed := range processedByTF {
		if err := ctx.Err(); err != nil {
			break
		}
		result, err := wyckoff.New(f.params).Analyze(processed)
		if err != nil {
			mflog.LogError(log, err, "wyckoff analysis failed", map[string]interface{}{"ticker": ticker, "timeframe": key})
			continue
		}
		wyckoffEvents[key] = result.Events
		wyckoffPhases[key] = result.Phases
		wyckoffRanges[key] = result.TradingRanges
	}

	sig := signal.Generate(mtfResult, f.params)

	var riskAssessment *riskassess.Assessment
	var currentPrice float64
	primaryKey := f.params.Timeframes[0].Interval
	if ta, ok := mtfResult.PerTimeframe[primaryKey]; ok && ta.Err == nil {
		currentPrice = ta.Processed.Series.Close[ta.Processed.Len()-1]
		if sig.Type == bars.SignalBuy || sig.Type == bars.SignalSell {
			assessment := riskassess.Assess(sig.Type, currentPrice, ta.SupportResistance.Support, ta.SupportResistance.Resistance, f.params)
			riskAssessment = &assessment
		}
	} else {
		sig.Type = bars.SignalNoAction
		sig.Strength = bars.StrengthNeutral
		sig.Details = "primary timeframe unavailable; downgraded to no-action"
	}

	return &AnalysisResult{
		Ticker:            ticker,
		CurrentPrice:      currentPrice,
		TimeframeAnalyses: mtfResult.PerTimeframe,
		Confirmations:     mtfResult.Confirmations,
		Signal:            sig,
		RiskAssessment:    riskAssessment,
		WyckoffEvents:     wyckoffEvents,
		WyckoffPhases:     wyckoffPhases,
		WyckoffRanges:     wyckoffRanges,
		TimeframeFailures: failures,
	}, nil
}
