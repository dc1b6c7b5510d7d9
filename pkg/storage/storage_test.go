package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/perbu/reporag/pkg/minirag"
)

var sample = minirag.Collection{
	{Path: "main.go", Content: "package main", Vector: []float32{0.1, -0.25, 3.5e-7}},
	{Path: "README.md", Content: "# héllo\n", Vector: []float32{1, 0, 0.333333}},
}

func assertEqual(t *testing.T, want, got minirag.Collection) {
	t.Helper()
	if len(want) != len(got) {
		t.Fatalf("expected %d records, got %d", len(want), len(got))
	}
	for i := range want {
		if want[i].Path != got[i].Path || want[i].Content != got[i].Content {
			t.Fatalf("record %d: expected %+v, got %+v", i, want[i], got[i])
		}
		if len(want[i].Vector) != len(got[i].Vector) {
			t.Fatalf("record %d: vector length %d != %d", i, len(want[i].Vector), len(got[i].Vector))
		}
		for j := range want[i].Vector {
			if want[i].Vector[j] != got[i].Vector[j] {
				t.Fatalf("record %d: vector[%d] %v != %v", i, j, want[i].Vector[j], got[i].Vector[j])
			}
		}
	}
}

func roundTrip(t *testing.T, b minirag.Backend) {
	t.Helper()
	ctx := context.Background()

	empty, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(empty) != 0 {
		t.Fatalf("expected empty collection before first write, got %d", len(empty))
	}

	if err := b.Replace(ctx, sample); err != nil {
		t.Fatal(err)
	}
	got, err := b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, sample, got)

	// a second replace fully supersedes the first
	next := minirag.Collection{{Path: "only.go", Content: "x", Vector: []float32{1, 2, 3}}}
	if err := b.Replace(ctx, next); err != nil {
		t.Fatal(err)
	}
	got, err = b.Load(ctx)
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, next, got)
}

func TestFileBackendJSON(t *testing.T) {
	roundTrip(t, NewFileBackend(filepath.Join(t.TempDir(), "data", "embeddings.json")))
}

func TestFileBackendGob(t *testing.T) {
	roundTrip(t, NewFileBackend(filepath.Join(t.TempDir(), "index.gob")))
}

func TestFileBackendLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	b := NewFileBackend(filepath.Join(dir, "embeddings.json"))
	if err := b.Replace(context.Background(), sample); err != nil {
		t.Fatal(err)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		t.Fatal(err)
	}
	if len(entries) != 1 || entries[0].Name() != "embeddings.json" {
		t.Fatalf("expected only embeddings.json, got %v", entries)
	}
}

func TestFileBackendCorrupt(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	if err := os.WriteFile(path, []byte(`[{"path": "a.go", "vector": [1, 2`), 0644); err != nil {
		t.Fatal(err)
	}

	_, err := NewFileBackend(path).Load(context.Background())
	if !errors.Is(err, minirag.ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
	// the corrupt file is left alone
	if _, err := os.Stat(path); err != nil {
		t.Fatalf("corrupt store must not be removed: %v", err)
	}
}

func TestSQLiteBackend(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Skip("sqlite not available:", err)
	}
	defer b.Close()

	roundTrip(t, b)
}

func TestSQLiteBackendCorruptVector(t *testing.T) {
	b, err := OpenSQLite(filepath.Join(t.TempDir(), "embeddings.db"))
	if err != nil {
		t.Skip("sqlite not available:", err)
	}
	defer b.Close()

	if _, err := b.db.Exec(`INSERT INTO embedding_records (seq, path, content, vector) VALUES (0, 'a.go', 'x', 'not json')`); err != nil {
		t.Fatal(err)
	}
	if _, err := b.Load(context.Background()); !errors.Is(err, minirag.ErrCorruptStore) {
		t.Fatalf("expected ErrCorruptStore, got %v", err)
	}
}

func TestStoreWithFileBackend(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	s := minirag.NewStore(NewFileBackend(path), constEmbedder{})

	built, err := s.Rebuild(context.Background(), []minirag.File{
		{Path: "a.go", Content: "package a"},
		{Path: "b.go", Content: "package b"},
	})
	if err != nil {
		t.Fatal(err)
	}

	// a fresh store on the same file sees the persisted collection
	reopened := minirag.NewStore(NewFileBackend(path), constEmbedder{})
	loaded, err := reopened.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, built, loaded)
}

func TestStoreWithFileBackendInvalidUTF8(t *testing.T) {
	path := filepath.Join(t.TempDir(), "embeddings.json")
	s := minirag.NewStore(NewFileBackend(path), constEmbedder{})

	built, err := s.Rebuild(context.Background(), []minirag.File{{Path: "a.txt", Content: "ok\xffbad"}})
	if err != nil {
		t.Fatal(err)
	}
	loaded, err := s.Load(context.Background())
	if err != nil {
		t.Fatal(err)
	}
	assertEqual(t, built, loaded)
}

type constEmbedder struct{}

func (constEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	return []float32{float32(len(text)), 1}, nil
}
