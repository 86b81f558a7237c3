package marketflow

import (
	"context"
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/rs/zerolog"
)

type fakeProvider struct {
	bars int
	fail map[string]bool
}

func (f *fakeProvider) Fetch(ctx context.Context, ticker string, tf bars.Timeframe) ([]bars.PriceBar, []bars.VolumeBar, error) {
	if f.fail[tf.Interval] {
		return nil, nil, errFetch
	}
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := make([]bars.PriceBar, f.bars)
	volume := make([]bars.VolumeBar, f.bars)
	closeP := 100.0
	for i := 0; i < f.bars; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		open := closeP
		closeP = open + 0.5
		price[i] = bars.PriceBar{Timestamp: ts, Open: open, High: closeP + 1, Low: open - 1, Close: closeP}
		volume[i] = bars.VolumeBar{Timestamp: ts, Volume: 1000}
	}
	return price, volume, nil
}

type fetchError struct{ msg string }

func (e *fetchError) Error() string { return e.msg }

var errFetch = &fetchError{msg: "provider unavailable"}

func testParams(t *testing.T, timeframes ...bars.Timeframe) *bars.Parameters {
	t.Helper()
	if len(timeframes) == 0 {
		timeframes = []bars.Timeframe{{Interval: "1d", Period: "60d"}}
	}
	params, err := bars.NewParameters(bars.WithLookback(5), bars.WithTimeframes(timeframes...))
	if err != nil {
		t.Fatalf("NewParameters: %v", err)
	}
	return params
}

func TestAnalyzeSucceedsWithSingleTimeframe(t *testing.T) {
	params := testParams(t)
	provider := &fakeProvider{bars: 60}
	facade := New(params, provider, zerolog.Nop())

	result, err := facade.Analyze(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Ticker != "TEST" {
		t.Errorf("Ticker = %q, want TEST", result.Ticker)
	}
	if len(result.TimeframeAnalyses) != 1 {
		t.Fatalf("got %d timeframe analyses, want 1", len(result.TimeframeAnalyses))
	}
	if len(result.TimeframeFailures) != 0 {
		t.Errorf("unexpected failures: %+v", result.TimeframeFailures)
	}
}

func TestAnalyzeIsolatesPerTimeframeFailures(t *testing.T) {
	params := testParams(t,
		bars.Timeframe{Interval: "1d", Period: "60d"},
		bars.Timeframe{Interval: "1h", Period: "5d"},
	)
	provider := &fakeProvider{bars: 60, fail: map[string]bool{"1h": true}}
	facade := New(params, provider, zerolog.Nop())

	result, err := facade.Analyze(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.TimeframeAnalyses) != 1 {
		t.Fatalf("got %d successful timeframes, want 1", len(result.TimeframeAnalyses))
	}
	if _, ok := result.TimeframeFailures["1h"]; !ok {
		t.Fatalf("expected 1h to be recorded as a failure, got %+v", result.TimeframeFailures)
	}
}

func TestAnalyzeFailsWhenEveryTimeframeFails(t *testing.T) {
	params := testParams(t)
	provider := &fakeProvider{bars: 60, fail: map[string]bool{"1d": true}}
	facade := New(params, provider, zerolog.Nop())

	_, err := facade.Analyze(context.Background(), "TEST")
	if err == nil {
		t.Fatal("expected a top-level error when every timeframe fails")
	}
}

func TestAnalyzeOmitsRiskAssessmentOnNoAction(t *testing.T) {
	params := testParams(t)
	provider := &fakeProvider{bars: 60}
	facade := New(params, provider, zerolog.Nop())

	result, err := facade.Analyze(context.Background(), "TEST")
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if result.Signal.Type == bars.SignalNoAction && result.RiskAssessment != nil {
		t.Fatalf("expected nil risk assessment for a NO_ACTION signal")
	}
}
