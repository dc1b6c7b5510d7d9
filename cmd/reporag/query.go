package main

import (
	"fmt"
	"strings"

	"github.com/perbu/reporag/pkg/answer"
	"github.com/perbu/reporag/pkg/config"
	"github.com/spf13/cobra"
)

func newQueryCmd(getConfig func() *config.Config) *cobra.Command {
	var (
		top       int
		threshold float64
		full      bool
	)

	cmd := &cobra.Command{
		Use:   "query <question>",
		Short: "Show the stored records most similar to a question",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a, err := newApp(getConfig())
			if err != nil {
				return err
			}
			defer a.Close()

			results, err := a.store.Query(cmd.Context(), joinArgs(args), top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			shown := 0
			for _, r := range results {
				if r.Score < threshold {
					continue
				}
				if shown > 0 && full {
					fmt.Fprintln(out, "\n"+strings.Repeat("-", 80)+"\n")
				}
				fmt.Fprintf(out, "Score: %.2f | %s\n", r.Score, r.Path)
				if full {
					fmt.Fprintf(out, "\n%s\n", r.Content)
				}
				shown++
			}
			if shown == 0 {
				fmt.Fprintln(out, "No results found")
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 3, "Number of results to return")
	cmd.Flags().Float64Var(&threshold, "threshold", -1, "Minimum similarity score")
	cmd.Flags().BoolVar(&full, "full", false, "Show stored content instead of just paths")
	return cmd
}

func newAskCmd(getConfig func() *config.Config) *cobra.Command {
	var top int

	cmd := &cobra.Command{
		Use:   "ask <question>",
		Short: "Answer a question using the most relevant repository files",
		Args:  cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg := getConfig()
			a, err := newApp(cfg)
			if err != nil {
				return err
			}
			defer a.Close()
			if err := a.requireAPIKey(); err != nil {
				return err
			}

			ans, err := answer.New(a.chatClient, cfg.ChatModel, a.store).AskRepo(cmd.Context(), joinArgs(args), top)
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			fmt.Fprintln(out, ans.Answer)
			if len(ans.Relevant) > 0 {
				fmt.Fprintln(out, "\nSources:")
				for _, s := range ans.Relevant {
					fmt.Fprintf(out, "  %.2f  %s\n", s.Score, s.Path)
				}
			}
			return nil
		},
	}

	cmd.Flags().IntVar(&top, "top", 3, "Number of files to use as context")
	return cmd
}
