package embedder

import (
	"context"
	"fmt"
	"hash/fnv"
	"math"
	"strings"
	"unicode"
)

// Embedder turns text into a vector.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

// HashEmbedder is an offline embedder that hashes lowercased word tokens
// into a fixed number of buckets. It needs no network access, which makes
// it useful for local experiments; rankings are lexical, not semantic.
type HashEmbedder struct {
	dim int
}

// NewHashEmbedder creates a hashing embedder producing vectors of the given dimension
func NewHashEmbedder(dimension int) *HashEmbedder {
	if dimension < 1 {
		dimension = 1
	}
	return &HashEmbedder{dim: dimension}
}

// Embed generates a bag-of-words vector from text
func (e *HashEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, ErrEmptyInput
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	vec := make([]float32, e.dim)
	tokens := strings.FieldsFunc(strings.ToLower(text), func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
	})
	for _, tok := range tokens {
		h := fnv.New32a()
		_, _ = h.Write([]byte(tok))
		vec[h.Sum32()%uint32(e.dim)]++
	}

	l2normalize(vec)
	return vec, nil
}

// Dimension returns the embedding dimension
func (e *HashEmbedder) Dimension() int {
	return e.dim
}

// ModelInfo returns model information
func (e *HashEmbedder) ModelInfo() string {
	return fmt.Sprintf("hash-%d", e.dim)
}

// l2normalize normalizes a vector to unit length
func l2normalize(v []float32) {
	var sum float64
	for _, x := range v {
		sum += float64(x) * float64(x)
	}
	if sum == 0 {
		return
	}
	inv := float32(1.0 / math.Sqrt(sum))
	for i := range v {
		v[i] *= inv
	}
}
