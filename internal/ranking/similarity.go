// Package ranking scores job postings against a profile embedding and
// returns the top distinct-title matches.
package ranking

import "math"

// Cosine returns the cosine similarity of a and b, accumulated in float64.
// It returns 0 when either vector has zero norm or the lengths differ.
func Cosine(a, b []float32) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}
	var dot, na, nb float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	if na == 0 || nb == 0 {
		return 0
	}
	sim := dot / (math.Sqrt(na) * math.Sqrt(nb))
	if math.IsNaN(sim) {
		return 0
	}
	return sim
}

// Percentage converts a similarity score to a percentage rounded to two
// decimals, half away from zero.
func Percentage(score float64) float64 {
	return math.Round(score*100*100) / 100
}
