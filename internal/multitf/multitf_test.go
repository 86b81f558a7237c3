package multitf

import (
	"context"
	"testing"
	"time"

	"github.com/marketflow/vpa-engine/internal/bars"
	"github.com/marketflow/vpa-engine/internal/processor"
	"github.com/rs/zerolog"
)

func buildProcessed(t *testing.T, params *bars.Parameters, n int) *bars.Processed {
	t.Helper()
	base := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	price := make([]bars.PriceBar, n)
	volume := make([]bars.VolumeBar, n)
	closeP := 100.0
	for i := 0; i < n; i++ {
		ts := base.Add(time.Duration(i) * time.Hour)
		open := closeP
		closeP = open + 0.5
		price[i] = bars.PriceBar{Timestamp: ts, Open: open, High: closeP + 1, Low: open - 1, Close: closeP}
		volume[i] = bars.VolumeBar{Timestamp: ts, Volume: 1000}
	}
	proc := processor.New(params, zerolog.Nop())
	out, err := proc.Preprocess(price, volume)
	if err != nil {
		t.Fatalf("Preprocess: %v", err)
	}
	return out
}

func TestAnalyzeReassemblesAllTimeframes(t *testing.T) {
	params, _ := bars.NewParameters(bars.WithLookback(5))
	processedByTF := map[string]*bars.Processed{
		"1d": buildProcessed(t, params, 40),
		"1h": buildProcessed(t, params, 40),
	}

	result, err := New(params).Analyze(context.Background(), processedByTF)
	if err != nil {
		t.Fatalf("Analyze: %v", err)
	}
	if len(result.PerTimeframe) != 2 {
		t.Fatalf("got %d timeframes, want 2", len(result.PerTimeframe))
	}
}

func TestPointInTimeTruncatesToTargetIndex(t *testing.T) {
	params, _ := bars.NewParameters(bars.WithLookback(5))
	processed := buildProcessed(t, params, 40)
	processedByTF := map[string]*bars.Processed{"1d": processed}

	targetIdx := processed.Len() - 1
	result, err := New(params).AnalyzePointInTime(context.Background(), processedByTF, targetIdx)
	if err != nil {
		t.Fatalf("AnalyzePointInTime: %v", err)
	}
	ta := result.PerTimeframe["1d"]
	if ta.Err != nil {
		t.Fatalf("unexpected per-timeframe error: %v", ta.Err)
	}
	if ta.Processed.Len() != targetIdx+1 {
		t.Fatalf("truncated length = %d, want %d", ta.Processed.Len(), targetIdx+1)
	}
}

func TestPointInTimeFailsBelowMinimumPostWarmup(t *testing.T) {
	params, _ := bars.NewParameters(bars.WithLookback(5))
	processed := buildProcessed(t, params, 40)
	processedByTF := map[string]*bars.Processed{"1d": processed}

	_, err := New(params).AnalyzePointInTime(context.Background(), processedByTF, 2)
	if err == nil {
		t.Fatal("expected error truncating below minimum required bars")
	}
}
