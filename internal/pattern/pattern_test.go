package pattern

import (
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
)

func fixture(n int) (*bars.Processed, *bars.Parameters) {
	params, _ := bars.NewParameters(func(p *bars.Parameters) {
		p.PatternWindow = n
		p.MinHighVol = 2
		p.MinTests = 2
		p.SidewaysPct = 0.05
		p.TouchTolerancePct = 0.02
		p.ClimaxBandPct = 0.02
	})

	ts := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closeP := make([]float64, n)
	volumeClass := make([]bars.VolumeClass, n)
	candleClass := make([]bars.CandleClass, n)
	upperWick := make([]float64, n)
	lowerWick := make([]float64, n)

	base := time.Now()
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		open[i] = 100
		high[i] = 101
		low[i] = 99
		closeP[i] = 100
		volumeClass[i] = bars.VolumeAverage
		candleClass[i] = bars.CandleNeutral
	}

	return &bars.Processed{
		Series:         &bars.Series{Timestamp: ts, Open: open, High: high, Low: low, Close: closeP},
		VolumeClass:    volumeClass,
		CandleClass:    candleClass,
		UpperWick:      upperWick,
		LowerWick:      lowerWick,
		PriceDirection: make([]bars.TrendDirection, n),
	}, params
}

func TestAccumulationDetectedOnSidewaysHighVolumeSupportTests(t *testing.T) {
	p, params := fixture(10)
	for _, idx := range []int{3, 6} {
		p.VolumeClass[idx] = bars.VolumeHigh
		p.Series.Low[idx] = 99
	}
	analysis := Analyze(p, 9, params)
	if !analysis.Accumulation.Detected {
		t.Fatalf("expected accumulation detected, got %+v", analysis.Accumulation)
	}
}

func TestBuyingClimaxStrengthCountsSatisfiedConditions(t *testing.T) {
	p, params := fixture(10)
	last := 9
	p.Series.Close[last] = 101
	p.Series.Open[last] = 99
	p.VolumeClass[last] = bars.VolumeVeryHigh
	p.CandleClass[last] = bars.CandleWide
	p.UpperWick[last] = 0.5
	p.LowerWick[last] = 0.1

	analysis := Analyze(p, last, params)
	if !analysis.BuyingClimax.Detected {
		t.Fatalf("expected buying climax detected, got %+v", analysis.BuyingClimax)
	}
	if analysis.BuyingClimax.Strength < 3 {
		t.Fatalf("strength = %d, want >= 3", analysis.BuyingClimax.Strength)
	}
}

func TestTestingCountsTouchesWithinTolerance(t *testing.T) {
	p, params := fixture(10)
	p.Series.Low[2] = 99
	p.Series.Low[5] = 99
	analysis := Analyze(p, 9, params)
	if !analysis.Testing.Detected {
		t.Fatalf("expected testing detected, got %+v", analysis.Testing)
	}
}

func TestNoPatternsOnFlatQuietWindow(t *testing.T) {
	p, params := fixture(10)
	analysis := Analyze(p, 9, params)
	if analysis.BuyingClimax.Detected || analysis.SellingClimax.Detected {
		t.Fatalf("expected no climax on flat window, got %+v / %+v", analysis.BuyingClimax, analysis.SellingClimax)
	}
}
