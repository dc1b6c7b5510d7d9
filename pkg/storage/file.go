// Package storage provides persistence backends for minirag collections.
package storage

import (
	"bytes"
	"context"
	"encoding/gob"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/perbu/reporag/pkg/minirag"
)

// FileBackend stores the whole collection in a single file. Files ending in
// .gob use encoding/gob, anything else is written as indented JSON.
type FileBackend struct {
	path string
}

// NewFileBackend returns a backend persisting to path.
func NewFileBackend(path string) *FileBackend {
	return &FileBackend{path: path}
}

// Path returns the file the collection is stored in.
func (b *FileBackend) Path() string {
	return b.path
}

func (b *FileBackend) isGob() bool {
	return strings.EqualFold(filepath.Ext(b.path), ".gob")
}

// Load reads the collection. A missing file is an empty collection.
func (b *FileBackend) Load(ctx context.Context) (minirag.Collection, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	data, err := os.ReadFile(b.path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return minirag.Collection{}, nil
		}
		return nil, fmt.Errorf("reading %s: %w", b.path, err)
	}

	var c minirag.Collection
	if b.isGob() {
		err = gob.NewDecoder(bytes.NewReader(data)).Decode(&c)
	} else {
		err = json.Unmarshal(data, &c)
	}
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", minirag.ErrCorruptStore, b.path, err)
	}
	if c == nil {
		c = minirag.Collection{}
	}
	return c, nil
}

// Replace writes c to a temporary file next to the target and renames it
// over the old one.
func (b *FileBackend) Replace(ctx context.Context, c minirag.Collection) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	var buf bytes.Buffer
	if b.isGob() {
		if err := gob.NewEncoder(&buf).Encode(c); err != nil {
			return fmt.Errorf("encoding collection: %w", err)
		}
	} else {
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return fmt.Errorf("encoding collection: %w", err)
		}
		buf.Write(data)
	}

	dir := filepath.Dir(b.path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return err
	}

	tmp, err := os.CreateTemp(dir, filepath.Base(b.path)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName) // no-op after a successful rename

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}

	// Atomic rename
	return os.Rename(tmpName, b.path)
}
