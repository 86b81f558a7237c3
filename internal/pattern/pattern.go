// Package pattern implements the window-based pattern recognizer (C5):
// accumulation, distribution, support/resistance testing, and buying/
// selling climax detection over a trailing window of processed bars.
package pattern

import (
	"math"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// Kind distinguishes a support touch from a resistance touch within the
// testing detector's output.
type Kind string

const (
	SupportTest    Kind = "SUPPORT_TEST"
	ResistanceTest Kind = "RESISTANCE_TEST"
)

// Detection is the detected/strength/details shape shared by every pattern.
type Detection struct {
	Detected bool
	Strength int
	Details  string
}

// Analysis bundles every pattern detector's verdict over the window ending
// at the analyzed index. Accumulation and distribution may both be
// detected simultaneously per the spec's preserved ambiguity; the signal
// generator consumes them independently.
type Analysis struct {
	Accumulation  Detection
	Distribution  Detection
	Testing       TestingDetection
	BuyingClimax  Detection
	SellingClimax Detection
}

// TestingDetection additionally carries the list of touches found.
type TestingDetection struct {
	Detection
	Tests []TouchRecord
}

// TouchRecord is a serializable touch (index, not timestamp interface, to
// keep the detector free of the time package).
type TouchRecord struct {
	Index int
	Kind  Kind
	Price float64
}

// Analyze runs every C5 detector over the window [i-window+1, i] of processed.
func Analyze(processed *bars.Processed, i int, params *bars.Parameters) Analysis {
	window := params.PatternWindow
	start := i - window + 1
	if start < 0 {
		start = 0
	}

	closes := processed.Series.Close[start : i+1]
	lows := processed.Series.Low[start : i+1]
	highs := processed.Series.High[start : i+1]

	windowHigh := maxOf(highs)
	windowLow := minOf(lows)
	meanClose := meanOf(closes)

	sideways := false
	if meanClose > bars.Epsilon {
		spread := windowHigh - windowLow
		sideways = spread/meanClose <= params.SidewaysPct
	}

	highVolCount := 0
	for idx := start; idx <= i; idx++ {
		vc := processed.VolumeClass[idx]
		if vc == bars.VolumeHigh || vc == bars.VolumeVeryHigh {
			highVolCount++
		}
	}

	supportTests, resistanceTests := detectTouches(processed, start, i, windowLow, windowHigh, params)

	accumulation := detectAccumulation(sideways, highVolCount, len(supportTests), params)
	distribution := detectDistribution(sideways, highVolCount, len(resistanceTests), params)
	testing := detectTesting(supportTests, resistanceTests, params)
	buyingClimax := detectBuyingClimax(processed, i, windowHigh, params)
	sellingClimax := detectSellingClimax(processed, i, windowLow, params)

	return Analysis{
		Accumulation:  accumulation,
		Distribution:  distribution,
		Testing:       testing,
		BuyingClimax:  buyingClimax,
		SellingClimax: sellingClimax,
	}
}

func detectTouches(processed *bars.Processed, start, end int, windowLow, windowHigh float64, params *bars.Parameters) (support, resistance []TouchRecord) {
	for idx := start; idx <= end; idx++ {
		low := processed.Series.Low[idx]
		high := processed.Series.High[idx]
		closeP := processed.Series.Close[idx]

		if windowLow > bars.Epsilon && (low-windowLow)/windowLow <= params.TouchTolerancePct && closeP >= windowLow {
			support = append(support, TouchRecord{Index: idx, Kind: SupportTest, Price: low})
		}
		if windowHigh > bars.Epsilon && (windowHigh-high)/windowHigh <= params.TouchTolerancePct && closeP <= windowHigh {
			resistance = append(resistance, TouchRecord{Index: idx, Kind: ResistanceTest, Price: high})
		}
	}
	return support, resistance
}

func detectAccumulation(sideways bool, highVolCount, supportTests int, params *bars.Parameters) Detection {
	detected := sideways && highVolCount >= params.MinHighVol && supportTests >= params.MinTests
	if !detected {
		return Detection{Detected: false, Strength: 0, Details: "accumulation conditions not met"}
	}
	strength := clampStrength(minInt(highVolCount, supportTests))
	return Detection{Detected: true, Strength: strength, Details: "sideways range with repeated high-volume support tests"}
}

func detectDistribution(sideways bool, highVolCount, resistanceTests int, params *bars.Parameters) Detection {
	detected := sideways && highVolCount >= params.MinHighVol && resistanceTests >= params.MinTests
	if !detected {
		return Detection{Detected: false, Strength: 0, Details: "distribution conditions not met"}
	}
	strength := clampStrength(minInt(highVolCount, resistanceTests))
	return Detection{Detected: true, Strength: strength, Details: "sideways range with repeated high-volume resistance tests"}
}

func detectTesting(support, resistance []TouchRecord, params *bars.Parameters) TestingDetection {
	all := append(append([]TouchRecord{}, support...), resistance...)
	count := len(all)
	if count > params.MaxTests {
		count = params.MaxTests
	}
	return TestingDetection{
		Detection: Detection{
			Detected: len(all) > 0,
			Strength: count,
			Details:  "support/resistance touches within tolerance",
		},
		Tests: all,
	}
}

func detectBuyingClimax(processed *bars.Processed, i int, windowHigh float64, params *bars.Parameters) Detection {
	closeP := processed.Series.Close[i]
	openP := processed.Series.Open[i]

	nearHigh := windowHigh > bars.Epsilon && (windowHigh-closeP)/windowHigh <= params.ClimaxBandPct
	veryHighVolume := processed.VolumeClass[i] == bars.VolumeVeryHigh
	wideUp := processed.CandleClass[i] == bars.CandleWide && closeP > openP
	hasUpperWick := processed.UpperWick[i] > processed.LowerWick[i] && processed.UpperWick[i] > 0

	strength := 0
	for _, cond := range []bool{nearHigh, veryHighVolume, wideUp, hasUpperWick} {
		if cond {
			strength++
		}
	}

	detected := nearHigh && veryHighVolume && wideUp
	return Detection{Detected: detected, Strength: strength, Details: "exhaustion at window high on very high volume"}
}

func detectSellingClimax(processed *bars.Processed, i int, windowLow float64, params *bars.Parameters) Detection {
	closeP := processed.Series.Close[i]
	openP := processed.Series.Open[i]

	nearLow := windowLow > bars.Epsilon && (closeP-windowLow)/windowLow <= params.ClimaxBandPct
	veryHighVolume := processed.VolumeClass[i] == bars.VolumeVeryHigh
	wideDown := processed.CandleClass[i] == bars.CandleWide && closeP < openP
	hasLowerWick := processed.LowerWick[i] > processed.UpperWick[i] && processed.LowerWick[i] > 0

	strength := 0
	for _, cond := range []bool{nearLow, veryHighVolume, wideDown, hasLowerWick} {
		if cond {
			strength++
		}
	}

	detected := nearLow && veryHighVolume && wideDown
	return Detection{Detected: detected, Strength: strength, Details: "exhaustion at window low on very high volume"}
}

func clampStrength(v int) int {
	if v < 1 {
		return 1
	}
	if v > 3 {
		return 3
	}
	return v
}

func minInt(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func maxOf(vals []float64) float64 {
	m := math.Inf(-1)
	for _, v := range vals {
		if v > m {
			m = v
		}
	}
	return m
}

func minOf(vals []float64) float64 {
	m := math.Inf(1)
	for _, v := range vals {
		if v < m {
			m = v
		}
	}
	return m
}

func meanOf(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range vals {
		sum += v
	}
	return sum / float64(len(vals))
}
