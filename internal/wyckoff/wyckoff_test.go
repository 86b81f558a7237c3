package wyckoff

import (
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/stretchr/testify/require"
)

// buildAccumulationScenario constructs a processed bundle shaped like the
// full accumulation walkthrough: a deep selling climax, an automatic
// rally, two secondary tests, a spring that reclaims support, a wide
// breakout on volume (SOS), and a last-point-of-support pullback.
//
// The background series carries a gentle per-bar drift (instead of a flat
// price) so that no untouched bar ties with its neighbors: a monotonic
// background never contains an interior local extremum, which keeps every
// swingLow/swingHigh exclusively at the bars this fixture deliberately
// shapes to dominate their local window.
func buildAccumulationScenario(t *testing.T) *bars.Processed {
	t.Helper()

	n := 60
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closeP := make([]float64, n)
	volume := make([]float64, n)
	ts := make([]time.Time, n)

	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		drift := 0.001 * float64(i)
		open[i], high[i], low[i], closeP[i] = 100+drift, 101+drift, 99+drift, 100+drift
		volume[i] = 1000
	}

	scIdx := 20
	open[scIdx], high[scIdx], low[scIdx], closeP[scIdx] = 98, 99, 85, 90
	volume[scIdx] = 6000

	arIdx := 23
	open[arIdx], high[arIdx], low[arIdx], closeP[arIdx] = 91, 103, 90, 102

	stIdx1, stIdx2 := 28, 33
	open[stIdx1], high[stIdx1], low[stIdx1], closeP[stIdx1] = 92, 93, 86, 87
	volume[stIdx1] = 1200
	open[stIdx2], high[stIdx2], low[stIdx2], closeP[stIdx2] = 91, 92, 85.5, 86
	volume[stIdx2] = 1200

	springIdx := 40
	open[springIdx], high[springIdx], low[springIdx], closeP[springIdx] = 88, 91, 82, 90
	volume[springIdx] = 3000

	sosIdx := 48
	open[sosIdx], high[sosIdx], low[sosIdx], closeP[sosIdx] = 95, 110, 95, 106
	volume[sosIdx] = 3000

	lpsIdx := 52
	open[lpsIdx], high[lpsIdx], low[lpsIdx], closeP[lpsIdx] = 104, 104.5, 102, 103.5
	volume[lpsIdx] = 1500

	processed := &bars.Processed{
		Series:      &bars.Series{Timestamp: ts, Open: open, High: high, Low: low, Close: closeP, Volume: volume},
		CandleClass: make([]bars.CandleClass, n),
		VolumeClass: make([]bars.VolumeClass, n),
	}
	for i := 0; i < n; i++ {
		processed.CandleClass[i] = bars.CandleNeutral
		processed.VolumeClass[i] = bars.VolumeAverage
	}
	processed.CandleClass[sosIdx] = bars.CandleWide
	processed.VolumeClass[sosIdx] = bars.VolumeVeryHigh
	processed.VolumeClass[scIdx] = bars.VolumeVeryHigh

	return processed
}

func testWyckoffParams() *bars.Parameters {
	p, _ := bars.NewParameters(func(pp *bars.Parameters) {
		pp.VolLookback = 10
		pp.SwingN = 3
		pp.ClimaxVolMultiplier = 2.0
		pp.ClimaxRangeMultiplier = 1.5
		pp.SpringPct = 0.05
		pp.SpringVolMultiplier = 1.2
		pp.ARWindow = 6
		pp.TestBandPct = 0.05
		pp.RangeMinLength = 5
		pp.JACGapPct = 0.5
	})
	return p
}

func TestAccumulationEventsDetectedInOrder(t *testing.T) {
	processed := buildAccumulationScenario(t)
	params := testWyckoffParams()

	result, err := New(params).Analyze(processed)
	require.NoError(t, err)

	var kinds []bars.WyckoffEvent
	for _, ev := range result.Events {
		kinds = append(kinds, ev.Kind)
	}
	require.Equal(t, []bars.WyckoffEvent{
		bars.EventSC,
		bars.EventAR,
		bars.EventST,
		bars.EventST,
		bars.EventSpring,
		bars.EventSOS,
		bars.EventLPS,
	}, kinds, "the full accumulation walkthrough must fire in order")

	for i := 1; i < len(result.Events); i++ {
		require.False(t, result.Events[i].Timestamp.Before(result.Events[i-1].Timestamp),
			"events must be emitted in non-decreasing timestamp order")
	}
}

func TestTradingRangeSupportBelowResistance(t *testing.T) {
	processed := buildAccumulationScenario(t)
	params := testWyckoffParams()

	result, err := New(params).Analyze(processed)
	require.NoError(t, err)

	require.Len(t, result.TradingRanges, 1)
	rng := result.TradingRanges[0]
	require.Equal(t, bars.RangeAccumulation, rng.Kind)
	require.False(t, rng.Ongoing)
	require.Less(t, rng.Support, rng.Resistance, "support must be below resistance for every range")
}

func TestAccumulationPhasesAndContext(t *testing.T) {
	processed := buildAccumulationScenario(t)
	params := testWyckoffParams()

	result, err := New(params).Analyze(processed)
	require.NoError(t, err)

	var phases []bars.WyckoffPhase
	for _, span := range result.Phases {
		phases = append(phases, span.Phase)
	}
	require.Equal(t, []bars.WyckoffPhase{
		bars.PhaseA,
		bars.PhaseB,
		bars.PhaseC,
		bars.PhaseD,
		bars.PhaseE,
	}, phases, "phases must progress A through E in order")

	require.Equal(t, bars.ContextUptrend, result.Context)
}

func TestInsufficientDataBelowMinimum(t *testing.T) {
	params := testWyckoffParams()
	n := params.VolLookback + params.SwingN - 1
	ts := make([]time.Time, n)
	base := time.Now()
	flat := make([]float64, n)
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		flat[i] = 100
	}
	processed := &bars.Processed{
		Series:      &bars.Series{Timestamp: ts, Open: flat, High: flat, Low: flat, Close: flat, Volume: flat},
		CandleClass: make([]bars.CandleClass, n),
		VolumeClass: make([]bars.VolumeClass, n),
	}

	_, err := New(params).Analyze(processed)
	require.Error(t, err)
}

func TestConstantPricesProduceNoEvents(t *testing.T) {
	params := testWyckoffParams()
	n := 60
	ts := make([]time.Time, n)
	flat := make([]float64, n)
	base := time.Now()
	for i := range ts {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		flat[i] = 100
	}
	volume := make([]float64, n)
	for i := range volume {
		volume[i] = 1000
	}
	processed := &bars.Processed{
		Series:      &bars.Series{Timestamp: ts, Open: flat, High: flat, Low: flat, Close: flat, Volume: volume},
		CandleClass: make([]bars.CandleClass, n),
		VolumeClass: make([]bars.VolumeClass, n),
	}
	for i := range processed.CandleClass {
		processed.CandleClass[i] = bars.CandleNeutral
		processed.VolumeClass[i] = bars.VolumeAverage
	}

	result, err := New(params).Analyze(processed)
	require.NoError(t, err)
	require.Empty(t, result.Events)
}
