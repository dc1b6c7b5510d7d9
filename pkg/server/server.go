// Package server exposes question answering and index rebuilds over HTTP.
package server

import (
	"context"
	"crypto/subtle"
	"errors"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v3"
	"github.com/gofiber/fiber/v3/middleware/cors"
	fiberlogger "github.com/gofiber/fiber/v3/middleware/logger"
	"github.com/gofiber/fiber/v3/middleware/recover"
	"github.com/perbu/reporag/pkg/answer"
	"github.com/perbu/reporag/pkg/embedder"
	"github.com/perbu/reporag/pkg/minirag"
)

// DefaultK is the number of records used as context when a request gives none.
const DefaultK = 3

// Indexer rebuilds the embedding collection.
type Indexer interface {
	Rebuild(ctx context.Context, files []minirag.File) (minirag.Collection, error)
}

// Fetcher lists the files of a repository.
type Fetcher interface {
	Fetch(ctx context.Context, repo, dir string) ([]minirag.File, error)
}

// Assistant answers questions, optionally from repository context.
type Assistant interface {
	Ask(ctx context.Context, question string) (string, error)
	AskRepo(ctx context.Context, question string, k int) (*answer.RepoAnswer, error)
}

// Config holds the server settings.
type Config struct {
	AppName      string
	ClientOrigin string
	BuildSecret  string // empty disables /build-embeddings
	Repo         string // owner/name fetched on rebuild
	BuildTimeout time.Duration
}

// Server is the HTTP front end.
type Server struct {
	app       *fiber.App
	cfg       Config
	indexer   Indexer
	fetcher   Fetcher
	assistant Assistant
}

// New wires the routes.
func New(cfg Config, indexer Indexer, fetcher Fetcher, assistant Assistant) *Server {
	if cfg.AppName == "" {
		cfg.AppName = "reporag"
	}
	if cfg.ClientOrigin == "" {
		cfg.ClientOrigin = "*"
	}
	if cfg.BuildTimeout == 0 {
		cfg.BuildTimeout = 30 * time.Minute
	}

	app := fiber.New(fiber.Config{
		AppName:     cfg.AppName,
		ReadTimeout: 30 * time.Second,
	})
	app.Use(recover.New())
	app.Use(fiberlogger.New())
	app.Use(cors.New(cors.Config{
		AllowOrigins: []string{cfg.ClientOrigin},
		AllowHeaders: []string{"Origin", "Content-Type", "Accept", "X-Build-Secret"},
		AllowMethods: []string{"GET", "POST", "OPTIONS"},
	}))

	s := &Server{app: app, cfg: cfg, indexer: indexer, fetcher: fetcher, assistant: assistant}

	app.Get("/", s.health)
	app.Post("/ask", s.ask)
	app.Post("/build-embeddings", s.buildEmbeddings)
	app.Post("/ask-repo", s.askRepo)

	return s
}

// App returns the underlying fiber app.
func (s *Server) App() *fiber.App {
	return s.app
}

// Listen serves on addr until Shutdown is called.
func (s *Server) Listen(addr string) error {
	return s.app.Listen(addr)
}

// Shutdown stops the server, waiting for in-flight requests until ctx ends.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}

func (s *Server) health(c fiber.Ctx) error {
	return c.SendString(s.cfg.AppName + " backend alive")
}

type askRequest struct {
	Question string `json:"question"`
	K        *int   `json:"k"`
}

func (s *Server) ask(c fiber.Ctx) error {
	var body askRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question required"})
	}

	text, err := s.assistant.Ask(c.Context(), body.Question)
	if err != nil {
		return s.fail(c, "ask failed", err, "failed to call model")
	}
	return c.JSON(fiber.Map{"answer": text})
}

func (s *Server) buildEmbeddings(c fiber.Ctx) error {
	secret := c.Get("X-Build-Secret")
	if s.cfg.BuildSecret == "" || subtle.ConstantTimeCompare([]byte(secret), []byte(s.cfg.BuildSecret)) != 1 {
		return c.Status(fiber.StatusForbidden).JSON(fiber.Map{"error": "forbidden"})
	}

	ctx, cancel := context.WithTimeout(c.Context(), s.cfg.BuildTimeout)
	defer cancel()

	files, err := s.fetcher.Fetch(ctx, s.cfg.Repo, "")
	if err != nil {
		return s.fail(c, "build error", err, "failed to build embeddings")
	}
	if len(files) == 0 {
		slog.Warn("build skipped, repository has no indexable files", "repo", s.cfg.Repo)
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "repository has no indexable files"})
	}
	collection, err := s.indexer.Rebuild(ctx, files)
	if err != nil {
		return s.fail(c, "build error", err, "failed to build embeddings")
	}
	return c.JSON(fiber.Map{"message": "embeddings built", "count": len(collection)})
}

func (s *Server) askRepo(c fiber.Ctx) error {
	var body askRequest
	if err := c.Bind().JSON(&body); err != nil {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "invalid request body"})
	}
	if body.Question == "" {
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "question required"})
	}
	k := DefaultK
	if body.K != nil {
		k = *body.K
	}

	ans, err := s.assistant.AskRepo(c.Context(), body.Question, k)
	if err != nil {
		return s.fail(c, "ask-repo error", err, "failed to query repo")
	}
	return c.JSON(ans)
}

// fail logs err with any upstream payload and maps it to a status code.
func (s *Server) fail(c fiber.Ctx, msg string, err error, public string) error {
	attrs := []any{"error", err}
	var ue *embedder.UpstreamError
	if errors.As(err, &ue) {
		attrs = append(attrs, "upstream_status", ue.StatusCode, "upstream_payload", ue.Payload)
	}
	slog.Error(msg, attrs...)

	switch {
	case errors.Is(err, minirag.ErrInvalidK):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "k must be at least 1"})
	case errors.Is(err, minirag.ErrEmptyInput):
		return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": "empty input"})
	default:
		return c.Status(fiber.StatusInternalServerError).JSON(fiber.Map{"error": public})
	}
}
