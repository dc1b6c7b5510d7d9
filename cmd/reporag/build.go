package main

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/perbu/reporag/pkg/config"
	"github.com/perbu/reporag/pkg/github"
	"github.com/perbu/reporag/pkg/loader"
	"github.com/perbu/reporag/pkg/minirag"
	"github.com/spf13/cobra"
)

func newBuildCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		dir  string
		repo string
		exts []string
	)

	cmd := &cobra.Command{
		Use:   "build",
		Short: "Embed repository files and replace the stored collection",
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			if dir == "" && repo == "" {
				repo = cfg.GitHubRepo
			}
			if dir == "" && repo == "" {
				return fmt.Errorf("nothing to build: pass --dir or --repo, or set GITHUB_REPO")
			}

			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, "Step 1: Loading repository files...")
			var files []minirag.File
			if dir != "" {
				files, err = loader.LoadFiles(os.DirFS(dir), ".", exts)
			} else {
				files, err = github.NewFetcher(cfg.GitHubToken).Fetch(cmd.Context(), repo, "")
			}
			if err != nil {
				return fmt.Errorf("loading files: %w", err)
			}
			fmt.Fprintf(out, "  ✓ Loaded %d files\n\n", len(files))

			fmt.Fprintf(out, "Step 2: Generating embeddings (model=%s, concurrency=%d)...\n", modelInfo(a.embedder), cfg.EmbedConcurrency)
			if dim := dimension(a.embedder); dim > 0 {
				fmt.Fprintf(out, "  ✓ Embedder initialized (dim=%d)\n", dim)
			}
			start := time.Now()
			collection, err := a.store.RebuildWithProgress(cmd.Context(), files, func(done, total int) {
				if done%10 == 0 || done == total {
					fmt.Fprintf(out, "\r  Progress: %d/%d (%.1f%%)", done, total, float64(done)/float64(total)*100)
					if done == total {
						fmt.Fprintln(out)
					}
				}
			})
			if err != nil {
				fmt.Fprintln(out)
				return fmt.Errorf("rebuild failed, previous collection kept: %w", err)
			}
			fmt.Fprintf(out, "  ✓ Stored %d records (dim=%d) in %s using %s backend (%s)\n",
				len(collection), collection.Dimension(), a.location, cfg.StoreBackend, time.Since(start).Round(time.Millisecond))
			return nil
		},
	}

	cmd.Flags().StringVar(&dir, "dir", "", "Local directory to index")
	cmd.Flags().StringVar(&repo, "repo", "", "GitHub repository (owner/name) to index")
	cmd.Flags().StringSliceVar(&exts, "ext", nil, "Only index files with these extensions (e.g. .go,.md)")
	cmd.MarkFlagsMutuallyExclusive("dir", "repo")
	return cmd
}

func joinArgs(args []string) string {
	return strings.TrimSpace(strings.Join(args, " "))
}
