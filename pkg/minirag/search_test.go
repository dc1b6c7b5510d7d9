package minirag

import (
	"errors"
	"math"
	"testing"
)

func TestCosineSimilarity(t *testing.T) {
	score, err := CosineSimilarity([]float32{1, 0}, []float32{0.9, 0.1})
	if err != nil {
		t.Fatal(err)
	}
	want := 0.9 / math.Sqrt(0.82)
	if math.Abs(score-want) > 1e-6 {
		t.Errorf("expected %f, got %f", want, score)
	}

	score, _ = CosineSimilarity([]float32{1, 0}, []float32{-1, 0})
	if math.Abs(score+1) > 1e-9 {
		t.Errorf("expected -1 for opposite vectors, got %f", score)
	}
}

func TestCosineSimilarityZeroVector(t *testing.T) {
	score, err := CosineSimilarity([]float32{0, 0, 0}, []float32{1, 2, 3})
	if err != nil {
		t.Fatal(err)
	}
	if score != 0 {
		t.Errorf("expected 0 for zero vector, got %f", score)
	}
}

func TestCosineSimilarityDimensionMismatch(t *testing.T) {
	_, err := CosineSimilarity([]float32{1, 0, 0, 0}, []float32{1, 0, 0})
	if !errors.Is(err, ErrDimensionMismatch) {
		t.Fatalf("expected ErrDimensionMismatch, got %v", err)
	}
	var dm *DimensionMismatchError
	if !errors.As(err, &dm) || dm.Left != 4 || dm.Right != 3 {
		t.Fatalf("unexpected error detail: %v", err)
	}
}

func TestRankStableTies(t *testing.T) {
	records := Collection{
		{Path: "first", Vector: []float32{0, 1}},
		{Path: "second", Vector: []float32{0, 2}},
		{Path: "best", Vector: []float32{1, 0}},
		{Path: "third", Vector: []float32{0, 3}},
	}

	results, err := Rank(records, []float32{1, 0}, 10)
	if err != nil {
		t.Fatal(err)
	}
	want := []string{"best", "first", "second", "third"}
	if len(results) != len(want) {
		t.Fatalf("expected %d results, got %d", len(want), len(results))
	}
	for i, p := range want {
		if results[i].Path != p {
			t.Errorf("position %d: expected %s, got %s", i, p, results[i].Path)
		}
	}
}
