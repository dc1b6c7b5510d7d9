package minirag

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/perbu/reporag/pkg/embedder"
	"golang.org/x/sync/errgroup"
)

// MaxChunkChars is how many characters of each file are embedded and kept.
const MaxChunkChars = 2000

// Backend persists a Collection as a single unit. Replace must be atomic:
// a concurrent or later Load sees either the old or the new collection.
// Load returns an empty collection when nothing has been stored yet.
type Backend interface {
	Load(ctx context.Context) (Collection, error)
	Replace(ctx context.Context, c Collection) error
}

// Store owns the persisted collection. Rebuild is the only write path.
type Store struct {
	backend     Backend
	embedder    embedder.Embedder
	concurrency int

	mu sync.RWMutex
}

// Option configures a Store.
type Option func(*Store)

// WithConcurrency sets how many embedding calls a rebuild may have in
// flight. The default of 1 embeds files one after another.
func WithConcurrency(n int) Option {
	return func(s *Store) {
		if n > 0 {
			s.concurrency = n
		}
	}
}

// NewStore creates a store persisting to backend and embedding with emb.
func NewStore(backend Backend, emb embedder.Embedder, opts ...Option) *Store {
	s := &Store{backend: backend, embedder: emb, concurrency: 1}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Rebuild embeds files and replaces the persisted collection.
func (s *Store) Rebuild(ctx context.Context, files []File) (Collection, error) {
	return s.RebuildWithProgress(ctx, files, nil)
}

// RebuildWithProgress embeds the first MaxChunkChars characters of every
// file and replaces the persisted collection with the result, in input
// order. Invalid UTF-8 sequences are replaced with U+FFFD first, so the
// embedded text is exactly what every backend stores. Any embedding failure aborts the rebuild before anything is
// written, leaving the previous collection in place.
// progressFn is called with (completed, total) after each embedding.
func (s *Store) RebuildWithProgress(ctx context.Context, files []File, progressFn func(int, int)) (Collection, error) {
	if len(files) == 0 {
		return nil, fmt.Errorf("rebuild: no files: %w", ErrEmptyInput)
	}
	for i, f := range files {
		if f.Path == "" || f.Content == "" {
			return nil, fmt.Errorf("rebuild: file %d (%q) has no path or content: %w", i, f.Path, ErrEmptyInput)
		}
	}

	start := time.Now()
	slog.Info("rebuilding collection", "files", len(files), "concurrency", s.concurrency)

	records := make(Collection, len(files))
	for i, f := range files {
		records[i] = Record{Path: f.Path, Content: Truncate(sanitize(f.Content), MaxChunkChars)}
	}

	var mu sync.Mutex
	completed := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(s.concurrency)
	for i := range records {
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			vec, err := s.embedder.Embed(gctx, records[i].Content)
			if err != nil {
				slog.Error("embedding failed", "path", records[i].Path, "error", err)
				return fmt.Errorf("embedding %s: %w", records[i].Path, err)
			}
			// each goroutine owns records[i]
			records[i].Vector = vec

			mu.Lock()
			completed++
			if progressFn != nil {
				progressFn(completed, len(records))
			}
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if err := records.Validate(); err != nil {
		return nil, fmt.Errorf("rebuild: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Replace(ctx, records); err != nil {
		return nil, fmt.Errorf("persisting collection: %w", err)
	}

	slog.Info("collection rebuilt", "records", len(records), "dimension", records.Dimension(), "duration", time.Since(start))
	return records, nil
}

// Load returns the persisted collection, empty if nothing was built yet.
func (s *Store) Load(ctx context.Context) (Collection, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	c, err := s.backend.Load(ctx)
	if err != nil {
		return nil, err
	}
	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrCorruptStore, err)
	}
	if c == nil {
		c = Collection{}
	}
	return c, nil
}

// Query returns up to k records most similar to question, best first.
// An empty collection yields no results without calling the embedder.
func (s *Store) Query(ctx context.Context, question string, k int) ([]Result, error) {
	if strings.TrimSpace(question) == "" {
		return nil, fmt.Errorf("query: %w", ErrEmptyInput)
	}
	if k < 1 {
		return nil, ErrInvalidK
	}

	records, err := s.Load(ctx)
	if err != nil {
		return nil, err
	}
	if len(records) == 0 {
		return []Result{}, nil
	}

	queryVec, err := s.embedder.Embed(ctx, question)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	results, err := Rank(records, queryVec, k)
	if err != nil {
		return nil, err
	}

	slog.Debug("query ranked", "records", len(records), "k", k, "results", len(results))
	return results, nil
}

// Truncate returns the first n characters (code points) of s.
func Truncate(s string, n int) string {
	count := 0
	for i := range s {
		if count == n {
			return s[:i]
		}
		count++
	}
	return s
}

// sanitize replaces invalid UTF-8 sequences with the replacement character.
func sanitize(s string) string {
	if utf8.ValidString(s) {
		return s
	}
	return strings.ToValidUTF8(s, string(utf8.RuneError))
}
