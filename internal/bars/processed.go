package bars

import "time"

// Processed is the per-timeframe feature bundle the processor derives from
// an aligned Series. It is a struct of columnar arrays rather than a
// map[string]Series: every field shares the same length and the same
// Timestamp index as the underlying Series, so the alignment invariant is
// structural instead of something every consumer must re-check.
type Processed struct {
	Series *Series

	Spread      []float64
	BodyPercent []float64
	UpperWick   []float64
	LowerWick   []float64

	AvgVolume   []float64
	VolumeRatio []float64

	VolumeClass []VolumeClass
	CandleClass []CandleClass

	ATR []float64

	PriceDirection []TrendDirection

	OBV             []float64
	VolumeDirection []VolumeDirection
}

// Len returns the number of bars this bundle describes.
func (p *Processed) Len() int {
	if p == nil || p.Series == nil {
		return 0
	}
	return p.Series.Len()
}

// TimestampAt is a convenience accessor used by components that report a
// bar's timestamp without reaching into Series directly.
func (p *Processed) TimestampAt(i int) time.Time {
	return p.Series.Timestamp[i]
}

// TrueRange returns the true range at bar i: max(high-low, |high-prevClose|,
// |low-prevClose|). i == 0 has no previous close, so it degenerates to the
// bar's own range.
func (p *Processed) TrueRange(i int) float64 {
	s := p.Series
	hl := s.High[i] - s.Low[i]
	if i == 0 {
		return hl
	}
	prevClose := s.Close[i-1]
	hc := absf(s.High[i] - prevClose)
	lc := absf(s.Low[i] - prevClose)
	return maxf(hl, hc, lc)
}

func absf(v float64) float64 {
	if v < 0 {
		return -v
	}
	return v
}

func maxf(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v > m {
			m = v
		}
	}
	return m
}

func minf(vals ...float64) float64 {
	m := vals[0]
	for _, v := range vals[1:] {
		if v < m {
			m = v
		}
	}
	return m
}
