package main

import (
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/perbu/reporag/pkg/config"
	"github.com/perbu/reporag/pkg/embedder"
	"github.com/perbu/reporag/pkg/minirag"
	"github.com/perbu/reporag/pkg/storage"
	openai "github.com/sashabaranov/go-openai"
	"github.com/spf13/cobra"
)

// hashDimension is the vector size of the offline hash embedder.
const hashDimension = 512

func main() {
	if err := newRootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func newRootCmd() *cobra.Command {
	var (
		configPath string
		cfg        *config.Config
	)

	rootCmd := &cobra.Command{
		Use:          "reporag",
		Short:        "Ask questions about a repository using embedding search",
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Load .env file if it exists
			_ = godotenv.Load()

			var err error
			cfg, err = config.Load(configPath)
			if err != nil {
				return err
			}
			setupLogging(cfg, cmd.ErrOrStderr())
			return nil
		},
	}
	rootCmd.PersistentFlags().StringVar(&configPath, "config", "", "Config file path (yaml, toml or json)")

	getConfig := func() *config.Config { return cfg }
	rootCmd.AddCommand(
		newBuildCmd(getConfig),
		newQueryCmd(getConfig),
		newAskCmd(getConfig),
		newServeCmd(getConfig),
	)
	return rootCmd
}

func setupLogging(cfg *config.Config, w io.Writer) {
	opts := &slog.HandlerOptions{Level: cfg.SlogLevel()}
	var h slog.Handler
	if cfg.LogFormat == "json" {
		h = slog.NewJSONHandler(w, opts)
	} else {
		h = slog.NewTextHandler(w, opts)
	}
	slog.SetDefault(slog.New(h))
}

// app bundles the components every command needs.
type app struct {
	cfg        *config.Config
	store      *minirag.Store
	embedder   embedder.Embedder
	chatClient *openai.Client
	location   string // where the collection is persisted
	closeFn    func() error
}

func newApp(cfg *config.Config) (*app, error) {
	emb, err := newEmbedder(cfg)
	if err != nil {
		return nil, err
	}

	var backend minirag.Backend
	location := cfg.StorePath
	closeFn := func() error { return nil }
	switch cfg.StoreBackend {
	case "sqlite":
		b, err := storage.OpenSQLite(cfg.StorePath)
		if err != nil {
			return nil, fmt.Errorf("opening sqlite store: %w", err)
		}
		backend, closeFn = b, b.Close
	default:
		b := storage.NewFileBackend(cfg.StorePath)
		backend, location = b, b.Path()
	}

	return &app{
		cfg:        cfg,
		store:      minirag.NewStore(backend, emb, minirag.WithConcurrency(cfg.EmbedConcurrency)),
		embedder:   emb,
		chatClient: embedder.NewClient(cfg.APIKey, cfg.APIBaseURL, 0),
		location:   location,
		closeFn:    closeFn,
	}, nil
}

func (a *app) Close() error {
	return a.closeFn()
}

func (a *app) requireAPIKey() error {
	if a.cfg.APIKey == "" {
		return errors.New("OPENROUTER_API_KEY (or OPENAI_API_KEY) environment variable not set")
	}
	return nil
}

func newEmbedder(cfg *config.Config) (embedder.Embedder, error) {
	var emb embedder.Embedder
	switch cfg.EmbedProvider {
	case "hash":
		emb = embedder.NewHashEmbedder(hashDimension)
	default:
		if cfg.APIKey == "" {
			return nil, errors.New("OPENROUTER_API_KEY (or OPENAI_API_KEY) environment variable not set")
		}
		client := embedder.NewClient(cfg.APIKey, cfg.APIBaseURL, cfg.EmbedTimeout)
		oe, err := embedder.NewOpenAIEmbedder(client, cfg.EmbedModel)
		if err != nil {
			return nil, err
		}
		emb = oe
	}

	if cfg.EmbedRetries > 0 {
		rc := embedder.DefaultRetryConfig()
		rc.MaxRetries = uint(cfg.EmbedRetries)
		emb = embedder.NewRetryEmbedder(emb, rc)
	}
	return emb, nil
}

// dimension reports the embedder's fixed vector size, or 0 when it is only
// known after the first call.
func dimension(e embedder.Embedder) int {
	if d, ok := e.(interface{ Dimension() int }); ok {
		return d.Dimension()
	}
	return 0
}

func modelInfo(e embedder.Embedder) string {
	if mi, ok := e.(interface{ ModelInfo() string }); ok {
		return mi.ModelInfo()
	}
	return "unknown"
}
