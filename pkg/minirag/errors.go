package minirag

import (
	"errors"
	"fmt"

	"github.com/perbu/reporag/pkg/embedder"
)

var (
	// ErrEmptyInput is returned for missing question or file text.
	ErrEmptyInput = embedder.ErrEmptyInput

	// ErrCorruptStore is returned when the persisted collection cannot be read back.
	ErrCorruptStore = errors.New("corrupt embedding store")

	// ErrDimensionMismatch matches every *DimensionMismatchError.
	ErrDimensionMismatch = errors.New("vector dimension mismatch")

	// ErrInvalidK is returned for a non-positive result count.
	ErrInvalidK = errors.New("k must be a positive integer")
)

// DimensionMismatchError reports two vectors of different length.
type DimensionMismatchError struct {
	Left, Right int
}

func (e *DimensionMismatchError) Error() string {
	return fmt.Sprintf("vector dimension mismatch: %d != %d", e.Left, e.Right)
}

func (e *DimensionMismatchError) Is(target error) bool { return target == ErrDimensionMismatch }
