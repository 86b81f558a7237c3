// Package wyckoff implements the event-detection, trading-range, and
// phase-inference state machine (C7). It is the most complex analyzer in
// the engine: a single sequential pass over a processed bundle that
// mutates a small amount of per-run state (active range, market context,
// phase cursor) while emitting an ordered event list.
//
// The state machine never shares state across timeframes or runs; a fresh
// Analyzer is created per invocation, matching the facade's ownership
// model (composition, no back-pointers into the facade).
package wyckoff

import (
	"fmt"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// Event is a single detected Wyckoff event.
type Event struct {
	Timestamp time.Time
	Kind      bars.WyckoffEvent
	Price     float64
	Volume    float64
	Index     int
}

// TradingRange is a bounded price corridor under accumulation or
// distribution. End is the zero time while the range is ONGOING.
type TradingRange struct {
	Start      time.Time
	End        time.Time
	Ongoing    bool
	Kind       bars.TradingRangeKind
	Support    float64
	Resistance float64
}

// PhaseSpan names one inferred phase's active interval.
type PhaseSpan struct {
	Start time.Time
	End   time.Time
	Phase bars.WyckoffPhase
}

// Result is the full C7 output for one run against one timeframe.
type Result struct {
	Events        []Event
	TradingRanges []TradingRange
	Phases        []PhaseSpan
	Context       bars.MarketContext
}

// Analyzer runs the Wyckoff state machine. It is cheap to construct and
// scoped to a single Analyze call; it carries no state between calls.
type Analyzer struct {
	params *bars.Parameters
}

// New builds a Wyckoff Analyzer bound to a shared Parameters value.
func New(params *bars.Parameters) *Analyzer {
	return &Analyzer{params: params}
}

// runState is the mutable state threaded through the sequential bar pass.
type runState struct {
	context bars.MarketContext

	events []Event
	ranges []TradingRange
	phases []PhaseSpan

	active       *TradingRange
	activeUTSeen bool // distinguishes the first UT from a subsequent UTAD in the same range

	lastSC, lastBC *Event
	awaitAR        int // deadline index for AR/AUTO_REACTION lookup, -1 when not awaiting
	sawPSorSC      bool

	phaseStart int
	phase      bars.WyckoffPhase
	awaitLPS   bool
	brokenTS   float64 // the resistance/support level SOS/SOW broke, for LPS/LPSY proximity test
}

// Analyze consumes the processed bundle bar-by-bar and returns the
// accumulated events, trading ranges, and phase spans.
func (a *Analyzer) Analyze(processed *bars.Processed) (Result, error) {
	n := processed.Len()
	minBars := a.params.VolLookback + a.params.SwingN
	if n < minBars {
		return Result{}, fmt.Errorf("%w: need at least %d bars, have %d", bars.ErrInsufficientData, minBars, n)
	}

	volSpike := rollingRatio(processed.Series.Volume, a.params.VolLookback)
	rangeSeries := make([]float64, n)
	for i := 0; i < n; i++ {
		rangeSeries[i] = processed.Series.High[i] - processed.Series.Low[i]
	}
	rangeSpike := rollingRatio(rangeSeries, a.params.VolLookback)

	swingLow, swingHigh := findSwings(processed.Series.Close, a.params.SwingN)

	st := &runState{context: bars.ContextUndetermined, awaitAR: -1, phase: "", phaseStart: -1}

	for t := 0; t < n; t++ {
		a.step(st, processed, t, volSpike, rangeSpike, swingLow, swingHigh)
	}

	a.closePhase(st, n-1, processed)
	a.closeActiveRange(st, n-1, processed, false)

	return Result{
		Events:        st.events,
		TradingRanges: st.ranges,
		Phases:        st.phases,
		Context:       st.context,
	}, nil
}

func (a *Analyzer) step(st *runState, p *bars.Processed, t int, volSpike, rangeSpike []float64, swingLow, swingHigh []bool) {
	s := p.Series
	params := a.params

	downBar := s.Close[t] < s.Open[t]
	upBar := s.Close[t] > s.Open[t]
	highVol := p.VolumeClass[t] == bars.VolumeHigh || p.VolumeClass[t] == bars.VolumeVeryHigh

	// PS: early high-volume down bar that doesn't yet qualify as SC.
	if !st.sawPSorSC && st.context == bars.ContextUndetermined && downBar && highVol && volSpike[t] < params.ClimaxVolMultiplier {
		a.emit(st, p, t, bars.EventPS)
		st.sawPSorSC = true
	}

	// SC: Selling Climax.
	if swingLow[t] && volSpike[t] >= params.ClimaxVolMultiplier && rangeSpike[t] >= params.ClimaxRangeMultiplier &&
		downBar && (st.context == bars.ContextUndetermined || st.context == bars.ContextDowntrend) {
		ev := a.emit(st, p, t, bars.EventSC)
		st.lastSC = &ev
		st.sawPSorSC = true
		st.awaitAR = t + params.ARWindow
		st.context = bars.ContextAccumulation
		a.startPhase(st, p, bars.PhaseA, t)
	}

	// BC: Buying Climax.
	if swingHigh[t] && volSpike[t] >= params.ClimaxVolMultiplier && rangeSpike[t] >= params.ClimaxRangeMultiplier &&
		upBar && (st.context == bars.ContextUndetermined || st.context == bars.ContextUptrend) {
		ev := a.emit(st, p, t, bars.EventBC)
		st.lastBC = &ev
		st.awaitAR = t + params.ARWindow
		st.context = bars.ContextDistribution
		a.startPhase(st, p, bars.PhaseA, t)
	}

	// AR: first swing high after SC, within ar_window.
	if st.lastSC != nil && st.active == nil && swingHigh[t] && t > st.lastSC.Index && t <= st.awaitAR {
		ev := a.emit(st, p, t, bars.EventAR)
		st.active = &TradingRange{
			Start:      st.lastSC.Timestamp,
			Ongoing:    true,
			Kind:       bars.RangeAccumulation,
			Support:    st.lastSC.Price,
			Resistance: ev.Price,
		}
		st.awaitAR = -1
		st.activeUTSeen = false
		a.startPhase(st, p, bars.PhaseB, t)
	}

	// AUTO_REACTION: first swing low after BC, within ar_window.
	if st.lastBC != nil && st.active == nil && swingLow[t] && t > st.lastBC.Index && t <= st.awaitAR {
		ev := a.emit(st, p, t, bars.EventAutoReaction)
		st.active = &TradingRange{
			Start:      st.lastBC.Timestamp,
			Ongoing:    true,
			Kind:       bars.RangeDistribution,
			Support:    ev.Price,
			Resistance: st.lastBC.Price,
		}
		st.awaitAR = -1
		st.activeUTSeen = false
		a.startPhase(st, p, bars.PhaseB, t)
	}

	if st.active == nil && !st.awaitLPS {
		return
	}

	// ST: Secondary Test, accumulation only.
	if st.active != nil && st.active.Kind == bars.RangeAccumulation && st.lastSC != nil && swingLow[t] && t > st.lastSC.Index {
		within := relDiff(s.Close[t], st.lastSC.Price) <= params.TestBandPct
		lowerVolume := s.Volume[t] < st.lastSC.Volume
		if within && lowerVolume {
			a.emit(st, p, t, bars.EventST)
			if s.Low[t] < st.active.Support {
				st.active.Support = s.Low[t]
			}
		}
	}

	// SPRING: accumulation only.
	if st.active != nil && st.active.Kind == bars.RangeAccumulation && st.active.Support > bars.Epsilon {
		pierce := (st.active.Support - s.Low[t]) / st.active.Support
		if pierce > 0 && pierce <= params.SpringPct && s.Close[t] > st.active.Support && volSpike[t] >= params.SpringVolMultiplier {
			a.emit(st, p, t, bars.EventSpring)
			if st.phase != bars.PhaseC {
				a.startPhase(st, p, bars.PhaseC, t)
			}
		}
	}

	// UT / UTAD: distribution only, mirror of SPRING against resistance.
	if st.active != nil && st.active.Kind == bars.RangeDistribution && st.active.Resistance > bars.Epsilon {
		pierce := (s.High[t] - st.active.Resistance) / st.active.Resistance
		if pierce > 0 && pierce <= params.SpringPct && s.Close[t] < st.active.Resistance && volSpike[t] >= params.SpringVolMultiplier {
			kind := bars.EventUT
			if st.activeUTSeen {
				kind = bars.EventUTAD
			}
			a.emit(st, p, t, kind)
			st.activeUTSeen = true
			if st.phase != bars.PhaseC {
				a.startPhase(st, p, bars.PhaseC, t)
			}
		}
	}

	// SOS: Sign of Strength, accumulation only, closes the range.
	if st.active != nil && st.active.Kind == bars.RangeAccumulation && s.Close[t] > st.active.Resistance &&
		p.CandleClass[t] == bars.CandleWide && highVol {
		a.emit(st, p, t, bars.EventSOS)
		if relDiff(s.Close[t], st.active.Resistance) >= params.JACGapPct {
			a.emit(st, p, t, bars.EventJAC)
		}
		st.brokenTS = st.active.Resistance
		a.closeActiveRange(st, t, p, true)
		st.context = bars.ContextUptrend
		a.startPhase(st, p, bars.PhaseD, t)
		st.awaitLPS = true
	}

	// SOW: Sign of Weakness, distribution only, closes the range.
	if st.active != nil && st.active.Kind == bars.RangeDistribution && s.Close[t] < st.active.Support &&
		p.CandleClass[t] == bars.CandleWide && highVol {
		a.emit(st, p, t, bars.EventSOW)
		st.brokenTS = st.active.Support
		a.closeActiveRange(st, t, p, true)
		st.context = bars.ContextDowntrend
		a.startPhase(st, p, bars.PhaseD, t)
		st.awaitLPS = true
	}

	// LPS / LPSY: first pullback after SOS/SOW that holds beyond the broken level.
	if st.awaitLPS && st.brokenTS > bars.Epsilon {
		within := relDiff(s.Low[t], st.brokenTS) <= params.TestBandPct || relDiff(s.High[t], st.brokenTS) <= params.TestBandPct
		if within {
			if st.context == bars.ContextUptrend && s.Close[t] >= st.brokenTS {
				a.emit(st, p, t, bars.EventLPS)
				st.awaitLPS = false
				a.startPhase(st, p, bars.PhaseE, t)
			} else if st.context == bars.ContextDowntrend && s.Close[t] <= st.brokenTS {
				a.emit(st, p, t, bars.EventLPSY)
				st.awaitLPS = false
				a.startPhase(st, p, bars.PhaseE, t)
			}
		}
	}
}

func (a *Analyzer) emit(st *runState, p *bars.Processed, t int, kind bars.WyckoffEvent) Event {
	var price float64
	switch kind {
	case bars.EventSC, bars.EventST, bars.EventSpring, bars.EventAutoReaction:
		price = p.Series.Low[t]
	default:
		price = p.Series.High[t]
	}
	ev := Event{Timestamp: p.TimestampAt(t), Kind: kind, Price: price, Volume: p.Series.Volume[t], Index: t}
	st.events = append(st.events, ev)
	return ev
}

func (a *Analyzer) startPhase(st *runState, p *bars.Processed, phase bars.WyckoffPhase, t int) {
	if st.phase == phase {
		return
	}
	if st.phase != "" {
		st.phases = append(st.phases, PhaseSpan{Start: p.TimestampAt(st.phaseStart), End: p.TimestampAt(t), Phase: st.phase})
	}
	st.phase = phase
	st.phaseStart = t
}

func (a *Analyzer) closePhase(st *runState, t int, p *bars.Processed) {
	if st.phase == "" || st.phaseStart < 0 {
		return
	}
	st.phases = append(st.phases, PhaseSpan{Start: p.TimestampAt(st.phaseStart), End: p.TimestampAt(t), Phase: st.phase})
	st.phase = ""
	st.phaseStart = -1
}

func (a *Analyzer) closeActiveRange(st *runState, t int, p *bars.Processed, confirmed bool) {
	if st.active == nil {
		return
	}
	rng := *st.active
	if confirmed {
		rng.Ongoing = false
		rng.End = p.TimestampAt(t)
	}
	st.ranges = append(st.ranges, rng)
	if confirmed {
		st.active = nil
	}
}

func rollingRatio(values []float64, lookback int) []float64 {
	n := len(values)
	out := make([]float64, n)
	var sum float64
	for i := 0; i < n; i++ {
		sum += values[i]
		if i >= lookback {
			sum -= values[i-lookback]
		}
		window := i + 1
		if window > lookback {
			window = lookback
		}
		avg := sum / float64(window)
		if avg <= bars.Epsilon {
			out[i] = 0
		} else {
			out[i] = values[i] / avg
		}
	}
	return out
}

// findSwings applies the §4.5 pivot rule (strict local extremum over a
// symmetric window) to the close series, producing swing-low/swing-high
// flags per bar.
func findSwings(closes []float64, k int) (low, high []bool) {
	n := len(closes)
	low = make([]bool, n)
	high = make([]bool, n)
	for t := k; t < n-k; t++ {
		isLow, isHigh := true, true
		for j := t - k; j <= t+k; j++ {
			if j == t {
				continue
			}
			if closes[j] <= closes[t] {
				isLow = false
			}
			if closes[j] >= closes[t] {
				isHigh = false
			}
		}
		low[t] = isLow
		high[t] = isHigh
	}
	return low, high
}

func relDiff(a, b float64) float64 {
	if b <= bars.Epsilon && b >= -bars.Epsilon {
		return absf(a - b)
	}
	return absf(a-b) / absf(b)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}
