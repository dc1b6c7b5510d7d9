package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/perbu/reporag/pkg/answer"
	"github.com/perbu/reporag/pkg/config"
	"github.com/perbu/reporag/pkg/github"
	"github.com/perbu/reporag/pkg/server"
	"github.com/spf13/cobra"
)

func newServeCmd(getConfig func() *config.Config) *cobra.Command {
	return &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API",
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

			if cfg.BuildSecret == "" {
				slog.Warn("BUILD_SECRET not set, /build-embeddings is disabled")
			}

			srv := server.New(server.Config{
				ClientOrigin: cfg.ClientOrigin,
				BuildSecret:  cfg.BuildSecret,
				Repo:         cfg.GitHubRepo,
			},
				a.store,
				github.NewFetcher(cfg.GitHubToken),
				answer.New(a.chatClient, cfg.ChatModel, a.store),
			)

			ctx, stop := signal.NotifyContext(cmd.Context(), os.Interrupt, syscall.SIGTERM)
			defer stop()

			errCh := make(chan error, 1)
			go func() {
				slog.Info("server listening", "port", cfg.Port, "store", cfg.StorePath, "backend", cfg.StoreBackend)
				errCh <- srv.Listen(":" + cfg.Port)
			}()

			select {
			case err := <-errCh:
				return err
			case <-ctx.Done():
			}

			slog.Info("shutting down")
			shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
			defer cancel()
			return srv.Shutdown(shutdownCtx)
		},
	}
}
