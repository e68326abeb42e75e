package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/recallhq/recall/internal/api"
	"github.com/recallhq/recall/internal/auth"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/database"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/middleware"
	"github.com/recallhq/recall/internal/openai"
	rdb "github.com/recallhq/recall/internal/redis"
	"github.com/recallhq/recall/internal/server"
	"github.com/recallhq/recall/internal/users"
)

func main() {
	if err := run(); err != nil {
		slog.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return err
	}

	setupLogger(cfg.Log)

	ctx := context.Background()

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return fmt.Errorf("connecting to postgres: %w", err)
	}
	defer pool.Close()

	if err := database.RunMigrations(cfg.DB.DSN(), "migrations"); err != nil {
		return err
	}

	redisClient, err := rdb.NewClient(ctx, cfg.Redis)
	if err != nil {
		return fmt.Errorf("connecting to redis: %w", err)
	}
	defer redisClient.Close()

	// Services
	jwtManager := auth.NewJWTManager(cfg.JWT.AccessSecret, cfg.JWT.RefreshSecret,
		cfg.JWT.AccessExpiry, cfg.JWT.RefreshExpiry)
	authSvc := auth.NewService(jwtManager, redisClient)
	userSvc := users.NewService(users.NewRepository(pool))

	embedder := openai.NewClient(cfg.OpenAI)
	memorySvc := memory.NewService(memory.NewRepository(pool), embedder)

	// Handlers
	authHandler := auth.NewHandler(authSvc, userSvc)
	memoryHandler := memory.NewHandler(memorySvc)

	// 10 auth attempts per IP per minute
	authLimiter := middleware.NewRateLimiter(redisClient, 10, 60)

	router := api.NewRouter(pool, redisClient, api.RouterConfig{
		CORSAllowedOrigins: cfg.Server.CORSAllowedOrigins,
		AuthRateLimiter:    authLimiter.Middleware,
	}, api.HandlerSet{
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

	addr := fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port)
	return server.New(addr, router).Run()
}

func setupLogger(cfg config.LogConfig) {
	var level slog.Level
	switch cfg.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	var handler slog.Handler
	if cfg.Format == "text" {
		handler = slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
