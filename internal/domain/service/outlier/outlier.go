// Package outlier implements the median absolute deviation filter applied to
// per-source price samples.
package outlier

import (
	"math"
	"slices"
)

const (
	DefaultK   = 4.0
	minSamples = 5

	// minFallbackDeviation is the share of the median a sample must stray
	// by before the mean-deviation fallback drops it.
	minFallbackDeviation = 0.5
)

// Result holds indexes into the filtered sample slice.
type Result struct {
	Kept    []int
	Dropped []int
}

// Filter drops samples farther than k*D from the median, where D is the MAD.
// A zero MAD falls back to the mean absolute deviation, and then a sample is
// dropped only when it also strays from the median by more than half of it.
// Fewer than five samples or all-equal samples leave the input unfiltered.
func Filter(samples []float64, k float64) Result {
	if k <= 0 {
		k = DefaultK
	}

	res := Result{Kept: make([]int, 0, len(samples))}

	if len(samples) < minSamples {
		res.Kept = allIndexes(len(samples))
		return res
	}

	median := Median(samples)
	spread := madAround(samples, median)
	floor := 0.0
	if spread == 0 {
		spread = meanDeviation(samples, median)
		floor = minFallbackDeviation * math.Abs(median)
	}
	if spread == 0 {
		res.Kept = allIndexes(len(samples))
		return res
	}

	limit := k * spread
	for i, x := range samples {
		dev := math.Abs(x - median)
		if dev > limit && dev > floor {
			res.Dropped = append(res.Dropped, i)
			continue
		}
		res.Kept = append(res.Kept, i)
	}

	return res
}

// Median returns the median of samples, or 0 for an empty slice.
func Median(samples []float64) float64 {
	n := len(samples)
	if n == 0 {
		return 0
	}

	sorted := slices.Clone(samples)
	slices.Sort(sorted)

	if n%2 == 1 {
		return sorted[n/2]
	}
	return (sorted[n/2-1] + sorted[n/2]) / 2
}

// MAD returns the median absolute deviation of samples around their median.
func MAD(samples []float64) float64 {
	return madAround(samples, Median(samples))
}

func madAround(samples []float64, median float64) float64 {
	deviations := make([]float64, len(samples))
	for i, x := range samples {
		deviations[i] = math.Abs(x - median)
	}
	return Median(deviations)
}

func meanDeviation(samples []float64, median float64) float64 {
	var sum float64
	for _, x := range samples {
		sum += math.Abs(x - median)
	}
	return sum / float64(len(samples))
}

func allIndexes(n int) []int {
	idx := make([]int, n)
	for i := range idx {
		idx[i] = i
	}
	return idx
}
