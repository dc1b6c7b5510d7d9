package minirag

import "fmt"

// File is a source file handed to Rebuild
type File struct {
	Path    string // Path inside the repository
	Content string // Full file text
}

// Record is one embedded file chunk. Content is the truncated text that was
// embedded, kept so it can be used as context without re-fetching the file.
type Record struct {
	Path    string    `json:"path"`
	Content string    `json:"content"`
	Vector  []float32 `json:"vector"`
}

// Collection is the ordered set of records persisted as one unit
type Collection []Record

// Dimension returns the vector dimension of the collection, 0 when empty
func (c Collection) Dimension() int {
	if len(c) == 0 {
		return 0
	}
	return len(c[0].Vector)
}

// Validate checks that every record has a vector and that all vectors share
// one dimension.
func (c Collection) Validate() error {
	dim := c.Dimension()
	for i, r := range c {
		if len(r.Vector) == 0 {
			return fmt.Errorf("record %d (%s): missing vector", i, r.Path)
		}
		if len(r.Vector) != dim {
			return fmt.Errorf("record %d (%s): %w", i, r.Path, &DimensionMismatchError{Left: dim, Right: len(r.Vector)})
		}
	}
	return nil
}

// Result is a ranked record with its similarity score
type Result struct {
	Record
	Score float64 `json:"score"`
}
