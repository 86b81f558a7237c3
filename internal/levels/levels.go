// Package levels derives clustered support/resistance levels from local
// pivots (C6), grounded on the pivot-detection and clustering idiom the
// teacher's support/resistance detector uses, generalized to operate on a
// processed bundle's columnar arrays instead of a candle slice.
package levels

import (
	"fmt"
	"math"
	"sort"

	"github.com/marketflow/vpa-engine/internal/bars"
)

// Level is a single clustered support or resistance price with the volume
// that traded at its contributing pivots and the bar index of the most
// recent contributing pivot (used for recency tie-breaks).
type Level struct {
	Price        float64
	Volume       float64
	PivotCount   int
	LastPivotIdx int
}

// Analysis is the C6 result: ranked levels on each side of current price
// plus a volume-at-level map keyed by each retained level's price.
type Analysis struct {
	Support        []Level
	Resistance     []Level
	VolumeAtLevels map[float64]float64
}

type pivot struct {
	index int
	price float64
	isLow bool
}

// Analyze finds pivot lows/highs, clusters them, weights by volume, and
// returns the top-N levels on each side of currentPrice.
func Analyze(processed *bars.Processed, currentPrice float64, params *bars.Parameters) (Analysis, error) {
	n := processed.Len()
	k := params.PivotWindow
	if n < 2*k+1 {
		return Analysis{}, fmt.Errorf("%w: need at least %d bars for pivot window %d", bars.ErrInsufficientData, 2*k+1, k)
	}

	pivots := findPivots(processed.Series.Close, k)

	lowClusters := clusterPivots(pivots, processed, true, params.ClusterTolerancePct)
	highClusters := clusterPivots(pivots, processed, false, params.ClusterTolerancePct)

	support := rankLevels(lowClusters, currentPrice, true, params.LevelsPerSide)
	resistance := rankLevels(highClusters, currentPrice, false, params.LevelsPerSide)

	volumeAtLevels := make(map[float64]float64)
	for _, l := range append(append([]Level{}, support...), resistance...) {
		volumeAtLevels[l.Price] = l.Volume
	}

	return Analysis{Support: support, Resistance: resistance, VolumeAtLevels: volumeAtLevels}, nil
}

// findPivots implements the §4.5/§4.6-shared pivot rule: close[t] is a
// pivot-low if it is lower than every close in (t-k, t) and (t, t+k), and
// symmetrically for a pivot-high.
func findPivots(closes []float64, k int) []pivot {
	n := len(closes)
	var pivots []pivot
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
		if isLow {
			pivots = append(pivots, pivot{index: t, price: closes[t], isLow: true})
		}
		if isHigh {
			pivots = append(pivots, pivot{index: t, price: closes[t], isLow: false})
		}
	}
	return pivots
}

func clusterPivots(pivots []pivot, processed *bars.Processed, wantLow bool, tolerancePct float64) []Level {
	var filtered []pivot
	for _, p := range pivots {
		if p.isLow == wantLow {
			filtered = append(filtered, p)
		}
	}
	sort.Slice(filtered, func(i, j int) bool { return filtered[i].price < filtered[j].price })

	var clusters []Level
	i := 0
	for i < len(filtered) {
		j := i + 1
		clusterPrices := []float64{filtered[i].price}
		clusterVolume := processed.Series.Volume[filtered[i].index]
		lastIdx := filtered[i].index
		count := 1
		for j < len(filtered) {
			ref := median(clusterPrices)
			if ref <= bars.Epsilon {
				break
			}
			if (filtered[j].price-ref)/ref > tolerancePct {
				break
			}
			clusterPrices = append(clusterPrices, filtered[j].price)
			clusterVolume += processed.Series.Volume[filtered[j].index]
			if filtered[j].index > lastIdx {
				lastIdx = filtered[j].index
			}
			count++
			j++
		}
		clusters = append(clusters, Level{
			Price:        median(clusterPrices),
			Volume:       clusterVolume,
			PivotCount:   count,
			LastPivotIdx: lastIdx,
		})
		i = j
	}
	return clusters
}

func rankLevels(clusters []Level, currentPrice float64, below bool, topN int) []Level {
	var filtered []Level
	for _, c := range clusters {
		if below && c.Price < currentPrice {
			filtered = append(filtered, c)
		}
		if !below && c.Price > currentPrice {
			filtered = append(filtered, c)
		}
	}

	sort.Slice(filtered, func(i, j int) bool {
		if filtered[i].Volume != filtered[j].Volume {
			return filtered[i].Volume > filtered[j].Volume
		}
		// Ties broken by recency: later timestamp (higher index) first.
		return filtered[i].LastPivotIdx > filtered[j].LastPivotIdx
	})

	if len(filtered) > topN {
		filtered = filtered[:topN]
	}
	return filtered
}

func median(vals []float64) float64 {
	if len(vals) == 0 {
		return 0
	}
	sorted := append([]float64{}, vals...)
	sort.Float64s(sorted)
	mid := len(sorted) / 2
	if len(sorted)%2 == 0 {
		return (sorted[mid-1] + sorted[mid]) / 2
	}
	return sorted[mid]
}

// NearestBelow returns the level with the highest price strictly below
// reference, or (Level{}, false) if none exists. Used by the risk
// assessor to pick a stop-loss/take-profit anchor.
func NearestBelow(levels []Level, reference float64) (Level, bool) {
	best := Level{Price: math.Inf(-1)}
	found := false
	for _, l := range levels {
		if l.Price < reference && l.Price > best.Price {
			best = l
			found = true
		}
	}
	return best, found
}

// NearestAbove returns the level with the lowest price strictly above
// reference, or (Level{}, false) if none exists.
func NearestAbove(levels []Level, reference float64) (Level, bool) {
	best := Level{Price: math.Inf(1)}
	found := false
	for _, l := range levels {
		if l.Price > reference && l.Price < best.Price {
			best = l
			found = true
		}
	}
	return best, found
}
