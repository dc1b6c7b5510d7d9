package embedder

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"
)

func newTestServer(t *testing.T, handler http.HandlerFunc) *OpenAIEmbedder {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	emb, err := NewOpenAIEmbedder(NewClient("test-key", srv.URL+"/v1", 5*time.Second), "test-model")
	if err != nil {
		t.Fatal(err)
	}
	return emb
}

func TestOpenAIEmbedderReturnsVectorUnchanged(t *testing.T) {
	var gotInput []string
	var gotModel string
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/v1/embeddings" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		if auth := r.Header.Get("Authorization"); auth != "Bearer test-key" {
			t.Errorf("unexpected Authorization header %q", auth)
		}
		var req struct {
			Model string   `json:"model"`
			Input []string `json:"input"`
		}
		_ = json.NewDecoder(r.Body).Decode(&req)
		gotInput, gotModel = req.Input, req.Model

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"object": "list",
			"model":  req.Model,
			"data": []any{map[string]any{
				"object":    "embedding",
				"index":     0,
				"embedding": []float32{3, 4, 0},
			}},
		})
	})

	vec, err := emb.Embed(context.Background(), "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(vec) != 3 || vec[0] != 3 || vec[1] != 4 || vec[2] != 0 {
		t.Fatalf("expected unnormalized vector [3 4 0], got %v", vec)
	}
	if gotModel != "test-model" || len(gotInput) != 1 || gotInput[0] != "hello" {
		t.Fatalf("unexpected request model=%q input=%v", gotModel, gotInput)
	}
}

func TestOpenAIEmbedderEmptyInputSkipsCall(t *testing.T) {
	var calls int32
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
	})

	_, err := emb.Embed(context.Background(), "")
	if !errors.Is(err, ErrEmptyInput) {
		t.Fatalf("expected ErrEmptyInput, got %v", err)
	}
	if calls != 0 {
		t.Fatalf("expected no remote calls, got %d", calls)
	}
}

func TestOpenAIEmbedderMissingData(t *testing.T) {
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"object":"list","data":[]}`))
	})

	_, err := emb.Embed(context.Background(), "hello")
	if !errors.Is(err, ErrUpstream) {
		t.Fatalf("expected ErrUpstream, got %v", err)
	}
	var ue *UpstreamError
	if !errors.As(err, &ue) || !ue.Malformed || ue.Temporary() {
		t.Fatalf("expected a permanent malformed-response error, got %#v", err)
	}
}

func TestOpenAIEmbedderAPIErrorKeepsPayload(t *testing.T) {
	emb := newTestServer(t, func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error":{"message":"model not found","type":"invalid_request_error"}}`))
	})

	_, err := emb.Embed(context.Background(), "hello")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError, got %T: %v", err, err)
	}
	if ue.StatusCode != http.StatusBadRequest {
		t.Errorf("expected status 400, got %d", ue.StatusCode)
	}
	if ue.Payload != "model not found" {
		t.Errorf("expected provider message as payload, got %q", ue.Payload)
	}
	if ue.Temporary() {
		t.Errorf("400 must not be temporary")
	}
}

func TestOpenAIEmbedderTimeout(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		time.Sleep(200 * time.Millisecond)
	}))
	defer srv.Close()

	emb, err := NewOpenAIEmbedder(NewClient("k", srv.URL, 20*time.Millisecond), "m")
	if err != nil {
		t.Fatal(err)
	}
	_, err = emb.Embed(context.Background(), "hello")
	var ue *UpstreamError
	if !errors.As(err, &ue) {
		t.Fatalf("expected *UpstreamError on timeout, got %v", err)
	}
	if ue.StatusCode != 0 || !ue.Temporary() {
		t.Fatalf("expected temporary transport error, got %+v", ue)
	}
}
