package openai

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/recallhq/recall/internal/config"
)

func testConfig(baseURL string) config.OpenAIConfig {
	return config.OpenAIConfig{
		APIKey:              "test-key",
		BaseURL:             baseURL,
		EmbeddingModel:      "text-embedding-3-small",
		EmbeddingDimensions: 4,
		ChatModel:           "gpt-4o-mini",
		RequestTimeout:      5 * time.Second,
	}
}

func embeddingHandler(t *testing.T, dims int) http.HandlerFunc {
	t.Helper()
	return func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))
		var req struct {
			Input []string `json:"input"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))

		type datum struct {
			Index     int       `json:"index"`
			Embedding []float32 `json:"embedding"`
		}
		// Return data out of order to exercise index-based reassembly.
		data := make([]datum, len(req.Input))
		for i := range req.Input {
			vec := make([]float32, dims)
			vec[0] = float32(i)
			data[len(req.Input)-1-i] = datum{Index: i, Embedding: vec}
		}
		json.NewEncoder(w).Encode(map[string]any{"data": data})
	}
}

func TestEmbedBatchPreservesOrder(t *testing.T) {
	srv := httptest.NewServer(embeddingHandler(t, 4))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	vecs, err := c.EmbedBatch(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	for i, vec := range vecs {
		assert.Equal(t, float32(i), vec[0], "vector %d out of order", i)
	}
}

func TestEmbedBatchEmptyInput(t *testing.T) {
	c := NewClient(testConfig("http://unused.invalid"))

	vecs, err := c.EmbedBatch(context.Background(), nil)
	require.NoError(t, err)
	assert.Nil(t, vecs)
}

func TestEmbedBatchRetriesTransient(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		if calls <= 2 {
			w.WriteHeader(http.StatusTooManyRequests)
			fmt.Fprint(w, `{"error":"rate limited"}`)
			return
		}
		embeddingHandler(t, 4)(w, r)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL)).WithRetry(3, time.Millisecond)
	vecs, err := c.EmbedBatch(context.Background(), []string{"hello"})
	require.NoError(t, err)
	assert.Equal(t, 3, calls)
	assert.Len(t, vecs, 1)
}

func TestEmbedBatchGivesUpAfterMaxRetries(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusInternalServerError)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL)).WithRetry(2, time.Millisecond)
	_, err := c.EmbedBatch(context.Background(), []string{"hello"})
	require.Error(t, err)
	// Initial attempt plus two retries.
	assert.Equal(t, 3, calls)
}

func TestEmbedBatchDoesNotRetryClientError(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.WriteHeader(http.StatusBadRequest)
		fmt.Fprint(w, `{"error":"invalid input"}`)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL)).WithRetry(3, time.Millisecond)
	_, err := c.EmbedBatch(context.Background(), []string{"hello"})
	require.Error(t, err)
	assert.Equal(t, 1, calls, "client errors must not be retried")
}

func TestEmbedBatchDimensionMismatch(t *testing.T) {
	var calls int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls++
		embeddingHandler(t, 8)(w, r)
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL)).WithRetry(3, time.Millisecond)
	_, err := c.EmbedBatch(context.Background(), []string{"hello"})
	require.ErrorIs(t, err, ErrDimensionMismatch)
	assert.Equal(t, 1, calls, "the mismatch is permanent, never retried")
}

func TestSummarizeShortTextPassthrough(t *testing.T) {
	c := NewClient(testConfig("http://unused.invalid"))

	got, err := c.Summarize(context.Background(), "  short note  ")
	require.NoError(t, err)
	assert.Equal(t, "short note", got)
}

func TestSummarizeCallsChat(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/chat/completions", r.URL.Path)
		json.NewEncoder(w).Encode(map[string]any{
			"choices": []map[string]any{
				{"message": map[string]string{"role": "assistant", "content": " a condensed statement "}},
			},
		})
	}))
	defer srv.Close()

	c := NewClient(testConfig(srv.URL))
	long := strings.Repeat("the user talked about their travel plans at length. ", 10)
	got, err := c.Summarize(context.Background(), long)
	require.NoError(t, err)
	assert.Equal(t, "a condensed statement", got)
}
