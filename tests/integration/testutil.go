//go:build integration

package integration

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

const embeddingDims = 1536

// hashEmbedder produces deterministic vectors so similarity search behaves
// consistently without calling a real embeddings API. Texts sharing words
// land near each other because each word contributes the same components.
type hashEmbedder struct{}

func (hashEmbedder) Embed(_ context.Context, text string) ([]float32, error) {
	vec := make([]float32, embeddingDims)
	sum := sha256.Sum256([]byte(text))
	for i := 0; i < len(sum); i += 4 {
		idx := binary.BigEndian.Uint32(sum[i:i+4]) % embeddingDims
		vec[idx] = 1
	}
	return vec, nil
}

func setupPostgres(t *testing.T) *pgxpool.Pool {
	t.Helper()
	ctx := context.Background()

	req := testcontainers.ContainerRequest{
		Image: "pgvector/pgvector:0.8.1-pg16",
		Env: map[string]string{
			"POSTGRES_USER":     "recall",
			"POSTGRES_PASSWORD": "recall",
			"POSTGRES_DB":       "recall_test",
		},
		ExposedPorts: []string{"5432/tcp"},
		WaitingFor: wait.ForLog("database system is ready to accept connections").
			WithOccurrence(2).WithStartupTimeout(60 * time.Second),
	}
	container, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: req,
		Started:          true,
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
	return pool
}

// testApp is the fully wired HTTP application over real postgres, an
// in-process redis, and a deterministic embedder.
type testApp struct {
	Router http.Handler
	Pool   *pgxpool.Pool
}

func setupApp(t *testing.T) *testApp {
	t.Helper()

	pool := setupPostgres(t)

	mr := miniredis.RunT(t)
	redisClient := redis.NewClient(&redis.Options{Addr: mr.Addr()})
	t.Cleanup(func() { redisClient.Close() })

	jwtManager := auth.NewJWTManager(
		"integration-access-secret-32-chars!!!!",
		"integration-refresh-secret-32-chars!!!",
		15*time.Minute, 24*time.Hour,
	)
	authSvc := auth.NewService(jwtManager, redisClient)
	userSvc := users.NewService(users.NewRepository(pool))
	memorySvc := memory.NewService(memory.NewRepository(pool), hashEmbedder{})

	authHandler := auth.NewHandler(authSvc, userSvc)
	memoryHandler := memory.NewHandler(memorySvc)

	router := api.NewRouter(pool, redisClient, api.RouterConfig{}, api.HandlerSet{
		Register: authHandler.Register,
		Login:    authHandler.Login,
		Refresh:  authHandler.Refresh,
		Logout:   authHandler.Logout,

		ListMemories:      memoryHandler.List,
		CreateMemory:      memoryHandler.Create,
		SearchMemories:    memoryHandler.Search,
		DeleteMemory:      memoryHandler.Delete,
		DeleteAllMemories: memoryHandler.DeleteAll,

		AuthMiddleware: auth.Middleware(authSvc),
	})

	return &testApp{Router: router, Pool: pool}
}

func (a *testApp) do(t *testing.T, method, path, token string, body any) *httptest.ResponseRecorder {
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
	a.Router.ServeHTTP(rec, req)
	return rec
}

// registerUser registers a fresh user and returns the access token.
func (a *testApp) registerUser(t *testing.T, email, password string) string {
	t.Helper()

	rec := a.do(t, http.MethodPost, "/api/v1/auth/register", "", map[string]string{
		"email":    email,
		"password": password,
	})
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var resp struct {
		Data struct {
			AccessToken string `json:"access_token"`
		} `json:"data"`
	}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.NotEmpty(t, resp.Data.AccessToken)
	return resp.Data.AccessToken
}
