package minirag

import (
	"fmt"
	"math"
	"sort"
)

// CosineSimilarity computes the cosine similarity between two vectors.
// Returns a value between -1 and 1, where 1 means identical direction.
// A zero vector scores 0; vectors of different length are an error.
func CosineSimilarity(a, b []float32) (float64, error) {
	if len(a) != len(b) {
		return 0, &DimensionMismatchError{Left: len(a), Right: len(b)}
	}

	var dotProduct, normA, normB float64
	for i := range a {
		x, y := float64(a[i]), float64(b[i])
		dotProduct += x * y
		normA += x * x
		normB += y * y
	}

	if normA == 0 || normB == 0 {
		return 0, nil
	}

	score := dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
	if math.IsNaN(score) {
		return 0, nil
	}
	return score, nil
}

// Rank scores every record against the query vector and returns the top-k
// sorted by score, highest first. Equal scores keep collection order.
func Rank(records Collection, query []float32, topK int) ([]Result, error) {
	results := make([]Result, 0, len(records))

	for i := range records {
		score, err := CosineSimilarity(query, records[i].Vector)
		if err != nil {
			return nil, fmt.Errorf("scoring %s: %w", records[i].Path, err)
		}
		results = append(results, Result{Record: records[i], Score: score})
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})

	if topK > 0 && topK < len(results) {
		results = results[:topK]
	}

	return results, nil
}
