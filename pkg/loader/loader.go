package loader

import (
	"fmt"
	"io/fs"
	"log/slog"
	"path/filepath"
	"strings"
	"unicode/utf8"

	"github.com/perbu/reporag/pkg/minirag"
)

// skipDirs are never descended into.
var skipDirs = map[string]bool{
	".git":         true,
	".hg":          true,
	".svn":         true,
	"node_modules": true,
	"vendor":       true,
}

// LoadFiles reads all text files below root in lexical order and returns
// them with paths relative to root. When exts is non-empty only files with
// one of those extensions (e.g. ".go") are kept. Empty and non-UTF-8 files
// are skipped since there is nothing to embed.
func LoadFiles(fsys fs.FS, root string, exts []string) ([]minirag.File, error) {
	var files []minirag.File

	err := fs.WalkDir(fsys, root, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}

		if d.IsDir() {
			if path != root && skipDirs[d.Name()] {
				return fs.SkipDir
			}
			return nil
		}

		if !matchExt(path, exts) {
			return nil
		}

		content, err := fs.ReadFile(fsys, path)
		if err != nil {
			return fmt.Errorf("reading %s: %w", path, err)
		}
		if len(content) == 0 || !utf8.Valid(content) {
			slog.Debug("skipping file", "path", path, "size", len(content))
			return nil
		}

		// Store with path relative to root
		relPath, err := filepath.Rel(root, path)
		if err != nil {
			relPath = path
		}

		files = append(files, minirag.File{Path: filepath.ToSlash(relPath), Content: string(content)})
		return nil
	})

	return files, err
}

func matchExt(path string, exts []string) bool {
	if len(exts) == 0 {
		return true
	}
	ext := strings.ToLower(filepath.Ext(path))
	for _, e := range exts {
		if !strings.HasPrefix(e, ".") {
			e = "." + e
		}
		if ext == strings.ToLower(e) {
			return true
		}
	}
	return false
}
