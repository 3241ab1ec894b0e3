// Package retrieve ranks stored embedding vectors against a query vector
// by cosine similarity.
package retrieve

import (
	"math"
	"sort"
)

// epsilon guards the cosine denominator against all-zero vectors.
const epsilon = 1e-8

// Cosine returns the cosine similarity of a and b over their shared
// leading dimensions, min(len(a), len(b)).
func Cosine(a, b []float32) float64 {
	n := len(a)
	if len(b) < n {
		n = len(b)
	}
	var dot, na, nb float64
	for i := 0; i < n; i++ {
		x, y := float64(a[i]), float64(b[i])
		dot += x * y
		na += x * x
		nb += y * y
	}
	return dot / (math.Sqrt(na)*math.Sqrt(nb) + epsilon)
}

// TopK returns the indices of the k vectors most similar to query, best
// first. Ties keep ascending index order (stable sort) so results are
// deterministic. If k exceeds len(vectors), all indices are returned
// ranked; an empty vector set yields an empty result.
func TopK(query []float32, vectors [][]float32, k int) []int {
	if k <= 0 || len(vectors) == 0 {
		return nil
	}

	scores := make([]float64, len(vectors))
	for i, v := range vectors {
		scores[i] = Cosine(query, v)
	}

	idxs := make([]int, len(vectors))
	for i := range idxs {
		idxs[i] = i
	}
	sort.SliceStable(idxs, func(a, b int) bool {
		return scores[idxs[a]] > scores[idxs[b]]
	})

	if k > len(idxs) {
		k = len(idxs)
	}
	return idxs[:k]
}
