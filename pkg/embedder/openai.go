package embedder

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	openai "github.com/sashabaranov/go-openai"
)

// DefaultBaseURL points at OpenRouter, which speaks the OpenAI API.
const DefaultBaseURL = "https://openrouter.ai/api/v1"

// DefaultModel is the embedding model used when none is configured.
const DefaultModel = "openai/text-embedding-3-small"

// NewClient creates an OpenAI-compatible API client. An empty baseURL keeps
// the library default; a zero timeout leaves requests bounded only by ctx.
func NewClient(apiKey, baseURL string, timeout time.Duration) *openai.Client {
	cfg := openai.DefaultConfig(apiKey)
	if baseURL != "" {
		cfg.BaseURL = strings.TrimRight(baseURL, "/")
	}
	cfg.HTTPClient = &http.Client{Timeout: timeout}
	return openai.NewClientWithConfig(cfg)
}

// OpenAIEmbedder uses an OpenAI-compatible embeddings endpoint
type OpenAIEmbedder struct {
	client *openai.Client
	model  string
}

// NewOpenAIEmbedder creates an embedder for the given model
func NewOpenAIEmbedder(client *openai.Client, model string) (*OpenAIEmbedder, error) {
	if client == nil {
		return nil, errors.New("embedder: nil client")
	}
	if model == "" {
		model = DefaultModel
	}
	return &OpenAIEmbedder{client: client, model: model}, nil
}

// Embed generates an embedding for a single text. The vector is returned as
// the provider sent it. There is no retry here; wrap with RetryEmbedder.
func (e *OpenAIEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	if len(text) == 0 {
		return nil, ErrEmptyInput
	}

	resp, err := e.client.CreateEmbeddings(ctx, openai.EmbeddingRequest{
		Model: openai.EmbeddingModel(e.model),
		Input: []string{text},
	})
	if err != nil {
		return nil, NewUpstreamError("embed", err)
	}

	if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
		return nil, &UpstreamError{Op: "embed", Malformed: true, Err: errors.New("no embedding data returned from API")}
	}

	return resp.Data[0].Embedding, nil
}

// ModelInfo returns model information
func (e *OpenAIEmbedder) ModelInfo() string {
	return "openai-" + e.model
}
