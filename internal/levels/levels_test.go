package levels

import (
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
)

func wave(n int) *bars.Processed {
	ts := make([]time.Time, n)
	open := make([]float64, n)
	high := make([]float64, n)
	low := make([]float64, n)
	closeP := make([]float64, n)
	volume := make([]float64, n)

	base := time.Now()
	for i := 0; i < n; i++ {
		ts[i] = base.Add(time.Duration(i) * time.Hour)
		// Triangle wave between 95 and 105 with period 10.
		phase := i % 10
		var price float64
		if phase <= 5 {
			price = 95 + float64(phase)*2
		} else {
			price = 105 - float64(phase-5)*2
		}
		open[i] = price
		high[i] = price + 0.5
		low[i] = price - 0.5
		closeP[i] = price
		volume[i] = 1000
	}

	return &bars.Processed{
		Series: &bars.Series{Timestamp: ts, Open: open, High: high, Low: low, Close: closeP, Volume: volume},
	}
}

func TestAnalyzeFindsSupportBelowAndResistanceAbove(t *testing.T) {
	p := wave(60)
	params, _ := bars.NewParameters(func(pp *bars.Parameters) {
		pp.PivotWindow = 3
		pp.ClusterTolerancePct = 0.02
		pp.LevelsPerSide = 3
	})

	analysis, err := Analyze(p, 100, params)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(analysis.Support) == 0 {
		t.Fatal("expected at least one support level below current price")
	}
	for _, l := range analysis.Support {
		if l.Price >= 100 {
			t.Fatalf("support level %v not below current price 100", l.Price)
		}
	}
	if len(analysis.Resistance) == 0 {
		t.Fatal("expected at least one resistance level above current price")
	}
	for _, l := range analysis.Resistance {
		if l.Price <= 100 {
			t.Fatalf("resistance level %v not above current price 100", l.Price)
		}
	}
}

func TestAnalyzeInsufficientDataBelowPivotWindow(t *testing.T) {
	p := wave(5)
	params, _ := bars.NewParameters(func(pp *bars.Parameters) { pp.PivotWindow = 5 })
	_, err := Analyze(p, 100, params)
	if err == nil {
		t.Fatal("expected InsufficientData error")
	}
}

func TestNearestBelowAndAboveHelpers(t *testing.T) {
	ls := []Level{{Price: 90}, {Price: 95}, {Price: 110}, {Price: 120}}
	below, ok := NearestBelow(ls, 100)
	if !ok || below.Price != 95 {
		t.Fatalf("NearestBelow = %+v, want 95", below)
	}
	above, ok := NearestAbove(ls, 100)
	if !ok || above.Price != 110 {
		t.Fatalf("NearestAbove = %+v, want 110", above)
	}
	_, ok = NearestAbove(ls, 1000)
	if ok {
		t.Fatal("expected no level above 1000")
	}
}
