// Package answer turns retrieved repository records into a chat-model answer.
package answer

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/perbu/reporag/pkg/embedder"
	"github.com/perbu/reporag/pkg/minirag"
	openai "github.com/sashabaranov/go-openai"
)

// DefaultModel is the chat model used when none is configured.
const DefaultModel = "deepseek/deepseek-chat-v3.1:free"

const systemPrompt = "You are an assistant answering with only the given repo context."

// Retriever finds the records most relevant to a question.
type Retriever interface {
	Query(ctx context.Context, question string, k int) ([]minirag.Result, error)
}

// Source identifies a record used as context.
type Source struct {
	Path  string  `json:"path"`
	Score float64 `json:"score"`
}

// RepoAnswer is a model answer plus the records it was given.
type RepoAnswer struct {
	Answer   string   `json:"answer"`
	Relevant []Source `json:"relevant"`
}

// Answerer sends questions to a chat-completion model.
type Answerer struct {
	client    *openai.Client
	model     string
	retriever Retriever
}

// New creates an Answerer.
func New(client *openai.Client, model string, retriever Retriever) *Answerer {
	if model == "" {
		model = DefaultModel
	}
	return &Answerer{client: client, model: model, retriever: retriever}
}

// Ask sends question to the model without any repository context.
func (a *Answerer) Ask(ctx context.Context, question string) (string, error) {
	if strings.TrimSpace(question) == "" {
		return "", embedder.ErrEmptyInput
	}
	return a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleUser, Content: question},
	})
}

// AskRepo retrieves the k most relevant records and asks the model to answer
// from them only.
func (a *Answerer) AskRepo(ctx context.Context, question string, k int) (*RepoAnswer, error) {
	results, err := a.retriever.Query(ctx, question, k)
	if err != nil {
		return nil, fmt.Errorf("retrieving context: %w", err)
	}

	text, err := a.complete(ctx, []openai.ChatCompletionMessage{
		{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
		{Role: openai.ChatMessageRoleUser, Content: fmt.Sprintf("Repo context:\n%s\n\nQuestion: %s", BuildContext(results), question)},
	})
	if err != nil {
		return nil, err
	}

	sources := make([]Source, len(results))
	for i, r := range results {
		sources[i] = Source{Path: r.Path, Score: r.Score}
	}
	return &RepoAnswer{Answer: text, Relevant: sources}, nil
}

// BuildContext renders results as "File: <path>" blocks separated by a blank line.
func BuildContext(results []minirag.Result) string {
	parts := make([]string, len(results))
	for i, r := range results {
		parts[i] = fmt.Sprintf("File: %s\n%s", r.Path, r.Content)
	}
	return strings.Join(parts, "\n\n")
}

func (a *Answerer) complete(ctx context.Context, messages []openai.ChatCompletionMessage) (string, error) {
	resp, err := a.client.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model:    a.model,
		Messages: messages,
	})
	if err != nil {
		return "", embedder.NewUpstreamError("chat", err)
	}
	if len(resp.Choices) == 0 {
		return "", &embedder.UpstreamError{Op: "chat", Malformed: true, Err: errors.New("no choices returned from API")}
	}
	return resp.Choices[0].Message.Content, nil
}
