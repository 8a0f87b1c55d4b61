package utils

import (
	"math"

	"gonum.org/v1/gonum/floats"
)

// Precision is the number of decimal places grid coordinates are rounded to.
// Rounding keeps coordinates identical across processes so they can be used as keys.
const Precision = 9

// Round rounds a float64 to the specified number of decimal places
func Round(value float64, decimals int) float64 {
	multiplier := math.Pow(10, float64(decimals))
	return math.Round(value*multiplier) / multiplier
}

// LinSpace returns n evenly spaced values from start to end inclusive,
// each rounded to Precision decimals. start may exceed end.
func LinSpace(n int, start, end float64) []float64 {
	if n <= 0 {
		return nil
	}
	out := make([]float64, n)
	if n == 1 {
		out[0] = Round(start, Precision)
		return out
	}
	floats.Span(out, start, end)
	for i, v := range out {
		out[i] = Round(v, Precision)
	}
	return out
}

// LogFactorial returns ln(n!)
func LogFactorial(n int) float64 {
	v, _ := math.Lgamma(float64(n) + 1)
	return v
}

// Normalize returns values divided by their sum.
// A zero sum yields a zero vector.
func Normalize(values []float64) []float64 {
	out := make([]float64, len(values))
	sum := floats.Sum(values)
	if sum == 0 {
		return out
	}
	copy(out, values)
	floats.Scale(1/sum, out)
	return out
}

// RStripZeros drops trailing zero counts
func RStripZeros(counts []int) []int {
	end := len(counts)
	for end > 0 && counts[end-1] == 0 {
		end--
	}
	return counts[:end]
}

// ArgMax returns the index of the largest value, or -1 for an empty slice.
// Ties resolve to the first occurrence.
func ArgMax(values []float64) int {
	if len(values) == 0 {
		return -1
	}
	return floats.MaxIdx(values)
}
