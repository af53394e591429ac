// Package llm talks to an OpenAI-compatible chat completions endpoint.
package llm

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"spilledin/internal/config"
	"spilledin/internal/middleware"
	"spilledin/internal/observability"

	"github.com/cenkalti/backoff/v5"
	"github.com/sony/gobreaker"
	"go.opentelemetry.io/otel/attribute"
)

const (
	defaultBaseURL   = "https://api.openai.com/v1"
	defaultModel     = "gpt-4o-mini"
	defaultTimeout   = 30 * time.Second
	maxTokens        = 500
	temperature      = 0.7
	presencePenalty  = 0.1
	frequencyPenalty = 0.1
	maxAttempts      = 3
	maxErrorBody     = 1 << 10
	// maxRetryAfter is the longest Retry-After honoured; longer waits fail
	// the request instead of holding the caller.
	maxRetryAfter = 10 * time.Second
)

// ErrNotConfigured is returned when no API key is set.
var ErrNotConfigured = errors.New("OPENAI_API_KEY not set")

// Client generates summaries through the chat completions API.
type Client struct {
	apiKey  string
	model   string
	baseURL string
	http    *http.Client
	cb      *gobreaker.CircuitBreaker
	// initialInterval is the first retry delay.
	initialInterval time.Duration
}

type chatRequest struct {
	Model            string        `json:"model"`
	Messages         []chatMessage `json:"messages"`
	MaxTokens        int           `json:"max_tokens"`
	Temperature      float64       `json:"temperature"`
	PresencePenalty  float64       `json:"presence_penalty"`
	FrequencyPenalty float64       `json:"frequency_penalty"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
	Error *apiError `json:"error,omitempty"`
}

type apiError struct {
	Message string `json:"message"`
	Type    string `json:"type"`
}

// StatusError is a non-2xx answer from the provider.
type StatusError struct {
	StatusCode int
	Message    string
}

func (e *StatusError) Error() string {
	if e.Message == "" {
		return fmt.Sprintf("openai request failed (%d)", e.StatusCode)
	}
	return fmt.Sprintf("openai request failed (%d): %s", e.StatusCode, e.Message)
}

func (e *StatusError) retryable() bool {
	return e.StatusCode == http.StatusTooManyRequests || e.StatusCode >= 500
}

// NewClient builds a client from the application config.
func NewClient(cfg *config.Config) *Client {
	baseURL := strings.TrimRight(strings.TrimSpace(cfg.OpenAIBaseURL), "/")
	if baseURL == "" {
		baseURL = defaultBaseURL
	}
	model := strings.TrimSpace(cfg.OpenAIModel)
	if model == "" {
		model = defaultModel
	}
	timeout := defaultTimeout
	if cfg.OpenAITimeoutSeconds > 0 {
		timeout = time.Duration(cfg.OpenAITimeoutSeconds) * time.Second
	}

	cb := gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        "OpenAI",
		MaxRequests: 5,
		Interval:    60 * time.Second,
		Timeout:     10 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures > 3
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			middleware.Logger.Warn("circuit breaker state changed",
				"breaker", name, "from", from.String(), "to", to.String())
		},
	})

	return &Client{
		apiKey:          strings.TrimSpace(cfg.OpenAIAPIKey),
		model:           model,
		baseURL:         baseURL,
		http:            &http.Client{Timeout: timeout},
		cb:              cb,
		initialInterval: 500 * time.Millisecond,
	}
}

// Model returns the configured model name.
func (c *Client) Model() string {
	return c.model
}

// Summarize sends a system and user message pair and returns the first
// choice's text.
func (c *Client) Summarize(ctx context.Context, system, prompt string) (_ string, err error) {
	if c.apiKey == "" {
		return "", ErrNotConfigured
	}

	ctx, span := observability.StartClientSpan(ctx, "openai", "chat_completion",
		attribute.String("llm.model", c.model),
	)
	defer func() { span.End(err) }()

	payload, err := json.Marshal(chatRequest{
		Model: c.model,
		Messages: []chatMessage{
			{Role: "system", Content: system},
			{Role: "user", Content: prompt},
		},
		MaxTokens:        maxTokens,
		Temperature:      temperature,
		PresencePenalty:  presencePenalty,
		FrequencyPenalty: frequencyPenalty,
	})
	if err != nil {
		return "", fmt.Errorf("failed to build openai request: %w", err)
	}

	bo := backoff.NewExponentialBackOff()
	bo.InitialInterval = c.initialInterval

	attempts := 0
	text, err := backoff.Retry(ctx, func() (string, error) {
		attempts++
		out, err := c.cb.Execute(func() (interface{}, error) {
			return c.complete(ctx, payload)
		})
		if err != nil {
			var statusErr *StatusError
			switch {
			case errors.Is(err, gobreaker.ErrOpenState), errors.Is(err, gobreaker.ErrTooManyRequests):
				return "", backoff.Permanent(err)
			case errors.As(err, &statusErr) && !statusErr.retryable():
				return "", backoff.Permanent(err)
			case ctx.Err() != nil:
				return "", backoff.Permanent(err)
			}
			middleware.Logger.WarnContext(ctx, "openai attempt failed",
				"attempt", attempts, "error", err)
			return "", err
		}
		return out.(string), nil
	}, backoff.WithBackOff(bo), backoff.WithMaxTries(maxAttempts))

	span.SetAttributes(attribute.Int("llm.attempts", attempts))
	if err != nil {
		return "", err
	}
	return text, nil
}

func (c *Client) complete(ctx context.Context, payload []byte) (_ string, err error) {
	start := time.Now()
	defer func() {
		outcome := "success"
		if err != nil {
			outcome = "error"
		}
		observability.LLMRequestDuration.WithLabelValues(c.model, outcome).Observe(time.Since(start).Seconds())
	}()

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/chat/completions", bytes.NewReader(payload))
	if err != nil {
		return "", fmt.Errorf("failed to build openai request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return "", fmt.Errorf("failed to reach openai: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return "", fmt.Errorf("failed to read openai response: %w", err)
	}

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		statusErr := &StatusError{StatusCode: resp.StatusCode}
		var parsed chatResponse
		if json.Unmarshal(body, &parsed) == nil && parsed.Error != nil {
			statusErr.Message = parsed.Error.Message
		} else if len(body) > 0 {
			statusErr.Message = strings.TrimSpace(string(body[:min(len(body), maxErrorBody)]))
		}
		if resp.StatusCode == http.StatusTooManyRequests {
			if secs, convErr := strconv.Atoi(resp.Header.Get("Retry-After")); convErr == nil && secs > 0 {
				if time.Duration(secs)*time.Second > maxRetryAfter {
					return "", backoff.Permanent(statusErr)
				}
				return "", backoff.RetryAfter(secs)
			}
		}
		return "", statusErr
	}

	var parsed chatResponse
	if err := json.Unmarshal(body, &parsed); err != nil {
		return "", fmt.Errorf("failed to parse openai response: %w", err)
	}
	if parsed.Error != nil && parsed.Error.Message != "" {
		return "", fmt.Errorf("openai error: %s", parsed.Error.Message)
	}
	if len(parsed.Choices) == 0 {
		return "", errors.New("openai returned no choices")
	}
	return parsed.Choices[0].Message.Content, nil
}
