package utils

import (
	"math"
	"sort"
)

// Round rounds v to the given number of decimal places, halves away from zero
func Round(v float64, places int) float64 {
	p := math.Pow(10, float64(places))
	return math.Round(v*p) / p
}

// Median returns sorted[n/2] of a copy of values. Even-length input is not
// averaged: the element just past the midpoint is returned. Empty input yields 0.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := append([]float64(nil), values...)
	sort.Float64s(sorted)
	return sorted[len(sorted)/2]
}

// Mean returns the arithmetic mean, 0 for empty input
func Mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	var sum float64
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// MinMax returns the smallest and largest value, zeros for empty input
func MinMax(values []float64) (float64, float64) {
	if len(values) == 0 {
		return 0, 0
	}
	lo, hi := values[0], values[0]
	for _, v := range values[1:] {
		lo = math.Min(lo, v)
		hi = math.Max(hi, v)
	}
	return lo, hi
}

// Percentages converts weights into percentages with one decimal place that
// sum to exactly 100.0. Tenths are apportioned by largest remainder, ties
// going to the key that sorts first. Zero or negative totals yield an empty map.
func Percentages[K ~string](weights map[K]float64) map[K]float64 {
	out := make(map[K]float64, len(weights))
	var total float64
	for _, w := range weights {
		if w > 0 {
			total += w
		}
	}
	if total <= 0 {
		return out
	}

	type share struct {
		key       K
		tenths    int
		remainder float64
	}
	shares := make([]share, 0, len(weights))
	allotted := 0
	for k, w := range weights {
		if w <= 0 {
			continue
		}
		exact := w / total * 1000
		floor := math.Floor(exact)
		shares = append(shares, share{key: k, tenths: int(floor), remainder: exact - floor})
		allotted += int(floor)
	}

	sort.Slice(shares, func(i, j int) bool {
		if shares[i].remainder != shares[j].remainder {
			return shares[i].remainder > shares[j].remainder
		}
		return shares[i].key < shares[j].key
	})
	for i := 0; allotted < 1000 && len(shares) > 0; i = (i + 1) % len(shares) {
		shares[i].tenths++
		allotted++
	}

	for _, s := range shares {
		out[s.key] = float64(s.tenths) / 10
	}
	return out
}
