package candle

import (
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
)

func bundleWith(candleClass bars.CandleClass, volumeClass bars.VolumeClass, direction bars.TrendDirection, upperWick, lowerWick float64) *bars.Processed {
	return &bars.Processed{
		Series:         &bars.Series{Timestamp: []time.Time{time.Now()}},
		CandleClass:    []bars.CandleClass{candleClass},
		VolumeClass:    []bars.VolumeClass{volumeClass},
		PriceDirection: []bars.TrendDirection{direction},
		UpperWick:      []float64{upperWick},
		LowerWick:      []float64{lowerWick},
	}
}

func TestWideUpHighVolumeIsStrongBuy(t *testing.T) {
	p := bundleWith(bars.CandleWide, bars.VolumeHigh, bars.TrendUp, 0, 0)
	sig, err := AnalyzeBar(0, p)
	if err != nil {
		t.Fatalf("AnalyzeBar: %v", err)
	}
	if sig.Type != bars.SignalBuy || sig.Strength != bars.StrengthStrong {
		t.Fatalf("got %+v, want BUY/STRONG", sig)
	}
}

func TestWideDownVeryHighVolumeIsStrongSell(t *testing.T) {
	p := bundleWith(bars.CandleWide, bars.VolumeVeryHigh, bars.TrendDown, 0, 0)
	sig, err := AnalyzeBar(0, p)
	if err != nil {
		t.Fatalf("AnalyzeBar: %v", err)
	}
	if sig.Type != bars.SignalSell || sig.Strength != bars.StrengthStrong {
		t.Fatalf("got %+v, want SELL/STRONG", sig)
	}
}

func TestWickLowerDominantElevatedVolumeIsModerateBuy(t *testing.T) {
	p := bundleWith(bars.CandleWick, bars.VolumeHigh, bars.TrendSideways, 0.1, 1.0)
	sig, err := AnalyzeBar(0, p)
	if err != nil {
		t.Fatalf("AnalyzeBar: %v", err)
	}
	if sig.Type != bars.SignalBuy || sig.Strength != bars.StrengthModerate {
		t.Fatalf("got %+v, want BUY/MODERATE", sig)
	}
}

func TestNarrowLowVolumeIsNoActionContraction(t *testing.T) {
	p := bundleWith(bars.CandleNarrow, bars.VolumeLow, bars.TrendSideways, 0, 0)
	sig, err := AnalyzeBar(0, p)
	if err != nil {
		t.Fatalf("AnalyzeBar: %v", err)
	}
	if sig.Type != bars.SignalNoAction || sig.Strength != bars.StrengthNeutral {
		t.Fatalf("got %+v, want NO_ACTION/NEUTRAL", sig)
	}
}

func TestIndexOutOfRangeFails(t *testing.T) {
	p := bundleWith(bars.CandleNeutral, bars.VolumeAverage, bars.TrendSideways, 0, 0)
	_, err := AnalyzeBar(5, p)
	if err == nil {
		t.Fatal("expected error for out-of-range index")
	}
}
