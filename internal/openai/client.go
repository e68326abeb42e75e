// Package openai is a minimal client for the OpenAI embeddings and chat
// completion endpoints. It speaks the HTTP API directly rather than pulling
// in an SDK.
package openai

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/metrics"
)

// ErrDimensionMismatch reports an embedding whose length differs from the
// configured dimensions. It is never retried; it means the model and the
// database schema disagree.
var ErrDimensionMismatch = errors.New("embedding dimension mismatch")

// APIError is a non-2xx response from the API. Transient marks statuses
// worth retrying (rate limits and server errors).
type APIError struct {
	StatusCode int
	Message    string
	Transient  bool
}

func (e *APIError) Error() string {
	return fmt.Sprintf("openai api error (status %d): %s", e.StatusCode, e.Message)
}

// IsTransient reports whether err is worth retrying: a rate-limited or
// server-side APIError, or a transport failure.
func IsTransient(err error) bool {
	var apiErr *APIError
	if errors.As(err, &apiErr) {
		return apiErr.Transient
	}
	if errors.Is(err, ErrDimensionMismatch) {
		return false
	}
	// Network and timeout errors surface as url.Error wrapping.
	return !errors.Is(err, context.Canceled)
}

type Client struct {
	baseURL        string
	apiKey         string
	embeddingModel string
	dimensions     int
	chatModel      string
	maxRetries     int
	retryBaseDelay time.Duration
	httpClient     *http.Client
}

func NewClient(cfg config.OpenAIConfig) *Client {
	return &Client{
		baseURL:        strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:         cfg.APIKey,
		embeddingModel: cfg.EmbeddingModel,
		dimensions:     cfg.EmbeddingDimensions,
		chatModel:      cfg.ChatModel,
		maxRetries:     3,
		retryBaseDelay: time.Second,
		httpClient:     &http.Client{Timeout: cfg.RequestTimeout},
	}
}

// WithRetry overrides the retry policy, mainly for tests and the ingestion
// pipeline which carries its own knobs.
func (c *Client) WithRetry(maxRetries int, baseDelay time.Duration) *Client {
	c.maxRetries = maxRetries
	c.retryBaseDelay = baseDelay
	return c
}

type embeddingRequest struct {
	Model string   `json:"model"`
	Input []string `json:"input"`
}

type embeddingResponse struct {
	Data []struct {
		Index     int       `json:"index"`
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
}

// Embed returns the embedding vector for a single text.
func (c *Client) Embed(ctx context.Context, text string) ([]float32, error) {
	vecs, err := c.EmbedBatch(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return vecs[0], nil
}

// EmbedBatch embeds texts in one API call, retrying transient failures with
// exponential backoff. Vectors come back in input order.
func (c *Client) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	var lastErr error
	for attempt := 0; attempt <= c.maxRetries; attempt++ {
		if attempt > 0 {
			metrics.EmbeddingRetriesTotal.Inc()
			delay := c.retryBaseDelay * time.Duration(1<<(attempt-1))
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(delay):
			}
		}

		vecs, err := c.embedOnce(ctx, texts)
		if err == nil {
			metrics.EmbeddingRequestsTotal.WithLabelValues("success").Inc()
			return vecs, nil
		}
		lastErr = err
		if !IsTransient(err) {
			metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
			return nil, err
		}
	}

	metrics.EmbeddingRequestsTotal.WithLabelValues("error").Inc()
	return nil, fmt.Errorf("embedding failed after %d retries: %w", c.maxRetries, lastErr)
}

func (c *Client) embedOnce(ctx context.Context, texts []string) ([][]float32, error) {
	var resp embeddingResponse
	err := c.post(ctx, "/embeddings", embeddingRequest{
		Model: c.embeddingModel,
		Input: texts,
	}, &resp)
	if err != nil {
		return nil, err
	}

	if len(resp.Data) != len(texts) {
		return nil, fmt.Errorf("expected %d embeddings, got %d", len(texts), len(resp.Data))
	}

	vecs := make([][]float32, len(texts))
	for _, d := range resp.Data {
		if d.Index < 0 || d.Index >= len(vecs) {
			return nil, fmt.Errorf("embedding index %d out of range", d.Index)
		}
		if c.dimensions > 0 && len(d.Embedding) != c.dimensions {
			return nil, fmt.Errorf("%w: got %d, want %d", ErrDimensionMismatch, len(d.Embedding), c.dimensions)
		}
		vecs[d.Index] = d.Embedding
	}
	return vecs, nil
}

type chatRequest struct {
	Model    string        `json:"model"`
	Messages []chatMessage `json:"messages"`
}

type chatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type chatResponse struct {
	Choices []struct {
		Message chatMessage `json:"message"`
	} `json:"choices"`
}

// Summarize condenses text into a short memory statement. Text already
// under 200 characters passes through untouched.
func (c *Client) Summarize(ctx context.Context, text string) (string, error) {
	text = strings.TrimSpace(text)
	if len(text) < 200 {
		return text, nil
	}

	var resp chatResponse
	err := c.post(ctx, "/chat/completions", chatRequest{
		Model: c.chatModel,
		Messages: []chatMessage{
			{Role: "system", Content: "Condense the following text into a single short factual statement preserving names, dates, and preferences. Reply with the statement only."},
			{Role: "user", Content: text},
		},
	}, &resp)
	if err != nil {
		return "", err
	}
	if len(resp.Choices) == 0 {
		return "", fmt.Errorf("chat completion returned no choices")
	}
	return strings.TrimSpace(resp.Choices[0].Message.Content), nil
}

func (c *Client) post(ctx context.Context, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("marshaling request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+path, bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("calling api: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 4096))
		return &APIError{
			StatusCode: resp.StatusCode,
			Message:    strings.TrimSpace(string(msg)),
			Transient:  resp.StatusCode == http.StatusTooManyRequests || resp.StatusCode >= 500,
		}
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}
	return nil
}
