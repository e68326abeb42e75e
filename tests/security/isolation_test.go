//go:build integration

package security

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"

	"github.com/recallhq/recall/internal/api"
	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/database"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/users"
)

// Every memory route must be scoped to the authenticated user. These tests
// drive two users through the full HTTP stack and assert nothing leaks
// across the boundary.

type testEmbedder struct{}

func (testEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, 1536)
	sum := sha256.Sum256([]byte(text))
	for i := 0; i < len(sum); i += 4 {
		vec[binary.BigEndian.Uint32(sum[i:i+4])%1536] = 1
	}
	return vec, nil
}

func setupRouter(t *testing.T) http.Handler {
	t.Helper()
	ctx := context.Background()

	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image: "pgvector/pgvector:0.8.1-pg16",
			Env: map[string]string{
				"POSTGRES_USER":     "recall",
				"POSTGRES_PASSWORD": "recall",
				"POSTGRES_DB":       "recall_test",
			},
			ExposedPorts: []string{"5432/tcp"},
			WaitingFor: wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).WithStartupTimeout(60 * time.Second),
		},
		Started: true,
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = container.Terminate(ctx) })

	host, err := container.Host(ctx)
	require.NoError(t, err)
	port, err := container.MappedPort(ctx, "5432")
	require.NoError(t, err)

	dsn := fmt.Sprintf("postgres://recall:recall@%s:%s/recall_test?sslmode=disable", host, port.Port())
	require.NoError(t, database.RunMigrations(dsn, "../../migrations"))

	pool, err := pgxpool.New(ctx, dsn)
	require.NoError(t, err)
	t.Cleanup(pool.Close)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	jwtManager := auth.NewJWTManager(
		"isolation-access-secret-32-chars!!!!!!",
		"isolation-refresh-secret-32-chars!!!!!",
		15*time.Minute, 24*time.Hour,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userSvc := users.NewService(users.NewRepository(pool))
	memorySvc := memory.NewService(memory.NewRepository(pool), testEmbedder{})

	authHandler := auth.NewHandler(authSvc, userSvc)
	memoryHandler := memory.NewHandler(memorySvc)

	return api.NewRouter(pool, redisClient, api.RouterConfig{}, api.HandlerSet{
		Register:          authHandler.Register,
		Login:             authHandler.Login,
		Refresh:           authHandler.Refresh,
		Logout:            authHandler.Logout,
		ListMemories:      memoryHandler.List,
		CreateMemory:      memoryHandler.Create,
		SearchMemories:    memoryHandler.Search,
		DeleteMemory:      memoryHandler.Delete,
		DeleteAllMemories: memoryHandler.DeleteAll,
		AuthMiddleware:    auth.Middleware(authSvc),
	})
}

func doJSON(t *testing.T, router http.Handler, method, path, token string, body any) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)
	return rec
}

func register(t *testing.T, router http.Handler, email string) string {
	t.Helper()
	rec := doJSON(t, router, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": "password123",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	return resp.Data.AccessToken
}

func TestOwnerIsolation(t *testing.T) {
	router := setupRouter(t)

	alice := register(t, router, "alice@example.com")
	bob := register(t, router, "bob@example.com")

	// Alice stores a secret, Bob stores his own note.
	rec := doJSON(t, router, http.MethodPost, "/api/v1/memories/", alice, map[string]any{
		"content": "alice's secret plan for the surprise party",
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var aliceMemory struct {
		Data struct {
			ID string `json:"id"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aliceMemory))

	rec = doJSON(t, router, http.MethodPost, "/api/v1/memories/", bob, map[string]any{
		"content": "bob's grocery list for the weekend",
	})
	require.Equal(t, http.StatusCreated, rec.Code)

	// Bob's list never shows Alice's memory.
	rec = doJSON(t, router, http.MethodGet, "/api/v1/memories/", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var bobList struct {
		Data []struct {
			Content string `json:"content"`
		} `json:"data"`
		TotalCount int64 `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bobList))
	require.Equal(t, int64(1), bobList.TotalCount)
	for _, m := range bobList.Data {
		require.NotContains(t, m.Content, "alice")
	}

	// Bob searching with Alice's exact text still only sees his own records.
	rec = doJSON(t, router, http.MethodPost, "/api/v1/memories/search", bob, map[string]any{
		"query": "alice's secret plan for the surprise party",
		"limit": 10,
	})
	require.Equal(t, http.StatusOK, rec.Code)
	var bobSearch struct {
		Data []struct {
			Content string `json:"content"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &bobSearch))
	for _, m := range bobSearch.Data {
		require.NotContains(t, m.Content, "alice")
	}

	// Bob cannot delete Alice's memory.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/memories/"+aliceMemory.Data.ID, bob, nil)
	require.Equal(t, http.StatusNotFound, rec.Code)

	// Bob's delete-all leaves Alice untouched.
	rec = doJSON(t, router, http.MethodDelete, "/api/v1/memories/", bob, nil)
	require.Equal(t, http.StatusOK, rec.Code)

	rec = doJSON(t, router, http.MethodGet, "/api/v1/memories/", alice, nil)
	require.Equal(t, http.StatusOK, rec.Code)
	var aliceList struct {
		TotalCount int64 `json:"total_count"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &aliceList))
	require.Equal(t, int64(1), aliceList.TotalCount)
}
