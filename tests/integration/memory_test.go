//go:build integration

package integration

import (
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/require"
)

type memoryResponse struct {
	ID         string   `json:"id"`
	Content    string   `json:"content"`
	Type       string   `json:"type"`
	Importance int      `json:"importance"`
	Tags       []string `json:"tags"`
	Source     string   `json:"source"`
}

func TestMemoryCRUD(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "crud@example.com", "password123")

	// Create
	rec := app.do(t, http.MethodPost, "/api/v1/memories/", token, map[string]any{
		"content":    "I prefer dark roast coffee in the morning",
		"type":       "preference",
		"importance": 4,
		"tags":       []string{"food", "preference"},
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var created struct {
		Data memoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &created))
	require.NotEmpty(t, created.Data.ID)
	require.Equal(t, "preference", created.Data.Type)
	require.Equal(t, 4, created.Data.Importance)
	require.Equal(t, "manual", created.Data.Source)

	// Importance outside range is clamped, unknown type becomes fact
	rec = app.do(t, http.MethodPost, "/api/v1/memories/", token, map[string]any{
		"content":    "I live near the river",
		"type":       "whatever",
		"importance": 99,
	})
	require.Equal(t, http.StatusCreated, rec.Code)
	var clamped struct {
		Data memoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &clamped))
	require.Equal(t, "fact", clamped.Data.Type)
	require.Equal(t, 5, clamped.Data.Importance)

	// List
	rec = app.do(t, http.MethodGet, "/api/v1/memories/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var listed struct {
		Data       []memoryResponse `json:"data"`
		TotalCount int64            `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Equal(t, int64(2), listed.TotalCount)
	require.Len(t, listed.Data, 2)

	// Search finds the stored content
	rec = app.do(t, http.MethodPost, "/api/v1/memories/search", token, map[string]any{
		"query": "I prefer dark roast coffee in the morning",
		"limit": 5,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var searched struct {
		Data []struct {
			memoryResponse
			Distance float64 `json:"distance"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searched))
	require.NotEmpty(t, searched.Data)
	// Exact text match embeds identically, so distance is ~0 and ranks first.
	require.Equal(t, created.Data.ID, searched.Data[0].ID)
	require.InDelta(t, 0, searched.Data[0].Distance, 1e-6)

	// Delete one
	rec = app.do(t, http.MethodDelete, "/api/v1/memories/"+created.Data.ID, token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	// Deleting it again is a 404
	rec = app.do(t, http.MethodDelete, "/api/v1/memories/"+created.Data.ID, token, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Delete all
	rec = app.do(t, http.MethodDelete, "/api/v1/memories/", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var deleted struct {
		Data map[string]int64 `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &deleted))
	require.Equal(t, int64(1), deleted.Data["deleted"])
}

func TestMemorySearchFilters(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "filters@example.com", "password123")

	seed := []map[string]any{
		{"content": "I want to learn woodworking this year", "type": "goal", "importance": 4, "tags": []string{"hobby"}},
		{"content": "I like woodworking videos", "type": "preference", "importance": 2, "tags": []string{"hobby"}},
		{"content": "The workshop is on Elm Street", "type": "fact", "importance": 1, "tags": []string{"location"}},
	}
	for _, m := range seed {
		rec := app.do(t, http.MethodPost, "/api/v1/memories/", token, m)
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	}

	rec := app.do(t, http.MethodPost, "/api/v1/memories/search", token, map[string]any{
		"query":          "woodworking",
		"limit":          10,
		"type":           "goal",
		"min_importance": 3,
	})
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	var searched struct {
		Data []memoryResponse `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &searched))
	require.Len(t, searched.Data, 1)
	require.Equal(t, "goal", searched.Data[0].Type)
}

func TestMemoryListPagination(t *testing.T) {
	app := setupApp(t)
	token := app.registerUser(t, "pages@example.com", "password123")

	for i := 0; i < 5; i++ {
		rec := app.do(t, http.MethodPost, "/api/v1/memories/", token, map[string]any{
			"content": fmt.Sprintf("numbered note %d with enough text", i),
		})
		require.Equal(t, http.StatusCreated, rec.Code)
	}

	rec := app.do(t, http.MethodGet, "/api/v1/memories/?page=2&page_size=2", token, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	var listed struct {
		Data       []memoryResponse `json:"data"`
		TotalCount int64            `json:"total_count"`
		Page       int              `json:"page"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &listed))
	require.Equal(t, int64(5), listed.TotalCount)
	require.Equal(t, 2, listed.Page)
	require.Len(t, listed.Data, 2)
}
