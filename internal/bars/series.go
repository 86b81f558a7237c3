package bars

import (
	"fmt"
	"math"
	"sort"
	"time"
)

// PriceBar is a single OHLC reading for one timestamp.
type PriceBar struct {
	Timestamp time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
}

// VolumeBar is a single volume reading for one timestamp.
type VolumeBar struct {
	Timestamp time.Time
	Volume    float64
}

// Series is the aligned bar series consumed by the processor: price and
// volume rows share an identical timestamp index after Align has run.
type Series struct {
	Timestamp []time.Time
	Open      []float64
	High      []float64
	Low       []float64
	Close     []float64
	Volume    []float64
}

// Len returns the number of aligned bars.
func (s *Series) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Timestamp)
}

// Align inner-joins price and volume rows on timestamp, dropping any row
// present on only one side, and rejects duplicate timestamps on either
// side as a data integrity violation. The result is ordered ascending by
// timestamp regardless of input order.
func Align(price []PriceBar, volume []VolumeBar) (*Series, error) {
	volumeByTS := make(map[time.Time]float64, len(volume))
	for _, v := range volume {
		if _, exists := volumeByTS[v.Timestamp]; exists {
			return nil, fmt.Errorf("%w: duplicate volume timestamp %s", ErrDataIntegrity, v.Timestamp)
		}
		volumeByTS[v.Timestamp] = v.Volume
	}

	seenPrice := make(map[time.Time]bool, len(price))
	sorted := make([]PriceBar, len(price))
	copy(sorted, price)
	sortBarsByTime(sorted)

	out := &Series{}
	for _, p := range sorted {
		if seenPrice[p.Timestamp] {
			return nil, fmt.Errorf("%w: duplicate price timestamp %s", ErrDataIntegrity, p.Timestamp)
		}
		seenPrice[p.Timestamp] = true

		v, ok := volumeByTS[p.Timestamp]
		if !ok {
			continue
		}
		if !isFinitePositive(p.Open) || !isFinitePositive(p.High) || !isFinitePositive(p.Low) || !isFinitePositive(p.Close) {
			return nil, fmt.Errorf("%w: non-finite or non-positive price at %s", ErrDataIntegrity, p.Timestamp)
		}
		if v < 0 || math.IsNaN(v) || math.IsInf(v, 0) {
			return nil, fmt.Errorf("%w: negative or non-finite volume at %s", ErrDataIntegrity, p.Timestamp)
		}

		out.Timestamp = append(out.Timestamp, p.Timestamp)
		out.Open = append(out.Open, p.Open)
		out.High = append(out.High, p.High)
		out.Low = append(out.Low, p.Low)
		out.Close = append(out.Close, p.Close)
		out.Volume = append(out.Volume, v)
	}

	if out.Len() == 0 {
		return nil, fmt.Errorf("%w: no overlapping price/volume timestamps after alignment", ErrInsufficientData)
	}
	return out, nil
}

func isFinitePositive(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0) && v > 0
}

func sortBarsByTime(bars []PriceBar) {
	sort.Slice(bars, func(i, j int) bool { return bars[i].Timestamp.Before(bars[j].Timestamp) })
}
