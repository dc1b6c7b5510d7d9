package loader

import (
	"testing"
	"testing/fstest"
)

func testFS() fstest.MapFS {
	return fstest.MapFS{
		"repo/main.go":                 {Data: []byte("package main\n")},
		"repo/README.md":               {Data: []byte("# Readme\n")},
		"repo/pkg/a/a.go":              {Data: []byte("package a\n")},
		"repo/empty.go":                {Data: []byte{}},
		"repo/logo.png":                {Data: []byte{0x89, 0x50, 0x4e, 0x47, 0xff, 0xfe}},
		"repo/.git/config":             {Data: []byte("[core]\n")},
		"repo/node_modules/x/index.js": {Data: []byte("module.exports = 1\n")},
	}
}

func TestLoadFiles(t *testing.T) {
	files, err := LoadFiles(testFS(), "repo", nil)
	if err != nil {
		t.Fatal(err)
	}

	want := []string{"README.md", "main.go", "pkg/a/a.go"}
	if len(files) != len(want) {
		t.Fatalf("Expected %d files, got %d: %+v", len(want), len(files), files)
	}
	for i, p := range want {
		if files[i].Path != p {
			t.Errorf("Expected file %d to be %s, got %s", i, p, files[i].Path)
		}
	}

	if files[1].Content != "package main\n" {
		t.Errorf("Unexpected content %q", files[1].Content)
	}
}

func TestLoadFiles_Extensions(t *testing.T) {
	files, err := LoadFiles(testFS(), "repo", []string{"go"})
	if err != nil {
		t.Fatal(err)
	}

	if len(files) != 2 {
		t.Fatalf("Expected 2 go files, got %d", len(files))
	}
	if files[0].Path != "main.go" || files[1].Path != "pkg/a/a.go" {
		t.Errorf("Unexpected files %+v", files)
	}
}

func TestLoadFiles_MissingRoot(t *testing.T) {
	if _, err := LoadFiles(testFS(), "nope", nil); err == nil {
		t.Error("Expected error for missing root")
	}
}
