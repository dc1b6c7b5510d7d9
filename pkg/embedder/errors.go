package embedder

import (
	"errors"
	"fmt"
	"net/http"

	openai "github.com/sashabaranov/go-openai"
)

var (
	// ErrEmptyInput is returned when there is no text to send upstream.
	ErrEmptyInput = errors.New("empty input")

	// ErrUpstream matches every *UpstreamError.
	ErrUpstream = errors.New("upstream error")
)

// UpstreamError describes a failed call to a remote model provider.
// StatusCode is 0 when no HTTP response was received. Payload holds the raw
// provider response (or provider message) so it can be logged verbatim.
// Malformed marks a successful call whose response lacked the expected data.
type UpstreamError struct {
	Op         string
	StatusCode int
	Payload    string
	Malformed  bool
	Err        error
}

func (e *UpstreamError) Error() string {
	if e.StatusCode != 0 {
		return fmt.Sprintf("%s: upstream status %d: %v", e.Op, e.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s: upstream: %v", e.Op, e.Err)
}

func (e *UpstreamError) Unwrap() error { return e.Err }

func (e *UpstreamError) Is(target error) bool { return target == ErrUpstream }

// Temporary reports whether repeating the call may succeed: transport
// failures, rate limiting and server errors.
func (e *UpstreamError) Temporary() bool {
	if e.Malformed {
		return false
	}
	return e.StatusCode == 0 ||
		e.StatusCode == http.StatusTooManyRequests ||
		e.StatusCode >= http.StatusInternalServerError
}

// NewUpstreamError wraps an error returned by the go-openai client, pulling
// out the status code and the provider payload when present.
func NewUpstreamError(op string, err error) *UpstreamError {
	ue := &UpstreamError{Op: op, Err: err}

	var apiErr *openai.APIError
	var reqErr *openai.RequestError
	switch {
	case errors.As(err, &apiErr):
		ue.StatusCode = apiErr.HTTPStatusCode
		ue.Payload = apiErr.Message
	case errors.As(err, &reqErr):
		ue.StatusCode = reqErr.HTTPStatusCode
		ue.Payload = string(reqErr.Body)
	}
	return ue
}
