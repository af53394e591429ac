package llm

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"spilledin/internal/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c := NewClient(&config.Config{
		OpenAIAPIKey:         "sk-test",
		OpenAIModel:          "gpt-4o-mini",
		OpenAIBaseURL:        srv.URL + "/",
		OpenAITimeoutSeconds: 5,
	})
	c.initialInterval = time.Millisecond
	return c
}

func writeChoice(w http.ResponseWriter, text string) {
	w.Header().Set("Content-Type", "application/json")
	_ = json.NewEncoder(w).Encode(map[string]any{
		"choices": []map[string]any{
			{"message": map[string]string{"role": "assistant", "content": text}},
		},
	})
}

func TestSummarizeSendsChatRequest(t *testing.T) {
	var got chatRequest
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPost, r.Method)
		assert.Equal(t, "/chat/completions", r.URL.Path)
		assert.Equal(t, "Bearer sk-test", r.Header.Get("Authorization"))
		require.NoError(t, json.NewDecoder(r.Body).Decode(&got))
		writeChoice(w, "It was a spicy month.")
	})

	text, err := c.Summarize(context.Background(), "be witty", "summarize March")
	require.NoError(t, err)
	assert.Equal(t, "It was a spicy month.", text)

	assert.Equal(t, "gpt-4o-mini", got.Model)
	assert.Equal(t, 500, got.MaxTokens)
	assert.InDelta(t, 0.7, got.Temperature, 1e-9)
	assert.InDelta(t, 0.1, got.PresencePenalty, 1e-9)
	assert.InDelta(t, 0.1, got.FrequencyPenalty, 1e-9)
	require.Len(t, got.Messages, 2)
	assert.Equal(t, chatMessage{Role: "system", Content: "be witty"}, got.Messages[0])
	assert.Equal(t, chatMessage{Role: "user", Content: "summarize March"}, got.Messages[1])
}

func TestSummarizeRetriesServerErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			http.Error(w, "upstream hiccup", http.StatusBadGateway)
			return
		}
		writeChoice(w, "third time lucky")
	})

	text, err := c.Summarize(context.Background(), "sys", "prompt")
	require.NoError(t, err)
	assert.Equal(t, "third time lucky", text)
	assert.Equal(t, int32(3), calls.Load())
}

func TestSummarizeGivesUpAfterMaxAttempts(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := c.Summarize(context.Background(), "sys", "prompt")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusServiceUnavailable, statusErr.StatusCode)
	assert.Equal(t, int32(maxAttempts), calls.Load())
}

func TestSummarizeDoesNotRetryClientErrors(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":{"message":"Incorrect API key provided","type":"invalid_request_error"}}`))
	})

	_, err := c.Summarize(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Incorrect API key provided")
	assert.Equal(t, int32(1), calls.Load())
}

func TestSummarizeFailsFastOnLongRetryAfter(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.Header().Set("Retry-After", "300")
		w.WriteHeader(http.StatusTooManyRequests)
	})

	start := time.Now()
	_, err := c.Summarize(context.Background(), "sys", "prompt")
	require.Error(t, err)
	var statusErr *StatusError
	require.ErrorAs(t, err, &statusErr)
	assert.Equal(t, http.StatusTooManyRequests, statusErr.StatusCode)
	assert.Equal(t, int32(1), calls.Load())
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestSummarizeNoChoices(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"choices":[]}`))
	})

	_, err := c.Summarize(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "no choices")
}

func TestSummarizeRequiresAPIKey(t *testing.T) {
	c := NewClient(&config.Config{})
	_, err := c.Summarize(context.Background(), "sys", "prompt")
	assert.ErrorIs(t, err, ErrNotConfigured)
	assert.Equal(t, defaultModel, c.Model())
	assert.Equal(t, defaultBaseURL, c.baseURL)
}

func TestBreakerOpensAfterConsecutiveFailures(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	})

	for i := 0; i < 4; i++ {
		_, err := c.Summarize(context.Background(), "sys", "prompt")
		require.Error(t, err)
	}
	assert.Equal(t, int32(4), calls.Load())

	_, err := c.Summarize(context.Background(), "sys", "prompt")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "circuit breaker is open")
	assert.Equal(t, int32(4), calls.Load())
}
