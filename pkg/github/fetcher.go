// Package github downloads repository files through the GitHub contents API.
package github

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/perbu/reporag/pkg/minirag"
)

// DefaultAPIURL is the public GitHub API.
const DefaultAPIURL = "https://api.github.com"

// Fetcher walks a repository's contents tree.
type Fetcher struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewFetcher creates a fetcher. token may be empty for public repositories.
func NewFetcher(token string) *Fetcher {
	return &Fetcher{
		baseURL: DefaultAPIURL,
		token:   token,
		client:  &http.Client{Timeout: 30 * time.Second},
	}
}

// WithBaseURL points the fetcher at another API host (GitHub Enterprise, tests).
func (f *Fetcher) WithBaseURL(u string) *Fetcher {
	f.baseURL = strings.TrimRight(u, "/")
	return f
}

type entry struct {
	Type string `json:"type"`
	Path string `json:"path"`
	URL  string `json:"url"`
}

type blob struct {
	Content  string `json:"content"`
	Encoding string `json:"encoding"`
}

// Fetch returns every text file of repo ("owner/name") below dir, depth
// first in listing order. Empty and binary files are skipped.
func (f *Fetcher) Fetch(ctx context.Context, repo, dir string) ([]minirag.File, error) {
	if repo == "" {
		return nil, fmt.Errorf("github: no repository given")
	}

	var entries []entry
	listURL := fmt.Sprintf("%s/repos/%s/contents/%s", f.baseURL, repo, strings.TrimLeft(dir, "/"))
	if err := f.getJSON(ctx, listURL, &entries); err != nil {
		return nil, err
	}

	var files []minirag.File
	for _, e := range entries {
		switch e.Type {
		case "file":
			var b blob
			if err := f.getJSON(ctx, e.URL, &b); err != nil {
				return nil, err
			}
			content, err := decode(b)
			if err != nil {
				return nil, fmt.Errorf("github: decoding %s: %w", e.Path, err)
			}
			if content == "" || !utf8.ValidString(content) {
				slog.Debug("skipping file", "path", e.Path, "size", len(content))
				continue
			}
			files = append(files, minirag.File{Path: e.Path, Content: content})
		case "dir":
			sub, err := f.Fetch(ctx, repo, e.Path)
			if err != nil {
				return nil, err
			}
			files = append(files, sub...)
		}
	}

	return files, nil
}

func decode(b blob) (string, error) {
	switch b.Encoding {
	case "base64":
		raw, err := base64.StdEncoding.DecodeString(strings.ReplaceAll(b.Content, "\n", ""))
		if err != nil {
			return "", err
		}
		return string(raw), nil
	case "", "none":
		// files above the API size limit come back without content
		return b.Content, nil
	default:
		return "", fmt.Errorf("unsupported encoding %q", b.Encoding)
	}
}

func (f *Fetcher) getJSON(ctx context.Context, url string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	if f.token != "" {
		req.Header.Set("Authorization", "token "+f.token)
	}

	resp, err := f.client.Do(req)
	if err != nil {
		return fmt.Errorf("github: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode/100 != 2 {
		body, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return fmt.Errorf("github: GET %s: http %d: %s", url, resp.StatusCode, strings.TrimSpace(string(body)))
	}
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		return fmt.Errorf("github: decoding %s: %w", url, err)
	}
	return nil
}
