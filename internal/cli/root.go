// Package cli implements the recall command line tool: batch ingestion of
// conversation exports plus manual memory injection, search, and progress
// inspection, all talking straight to the database.
package cli

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/database"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/openai"
)

var rootCmd = &cobra.Command{
	Use:           "recall",
	Short:         "Personal memory store for AI conversations",
	Long:          "recall ingests conversation exports, stores them as embedded memories, and retrieves them by semantic similarity.",
	SilenceUsage:  true,
	SilenceErrors: true,
}

func Execute() {
	rootCmd.AddCommand(ingestCmd, injectCmd, searchCmd, progressCmd)
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

// env bundles everything a command needs after config and connections are up.
type env struct {
	cfg    *config.Config
	pool   *pgxpool.Pool
	client *openai.Client
	svc    *memory.Service
}

func newEnv(ctx context.Context) (*env, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if err := cfg.ValidateCLI(); err != nil {
		return nil, err
	}

	setupLogger(cfg.Log)

	pool, err := database.NewPostgresPool(ctx, cfg.DB)
	if err != nil {
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	client := openai.NewClient(cfg.OpenAI).
		WithRetry(cfg.Ingest.MaxRetries, cfg.Ingest.RetryBaseDelay)
	svc := memory.NewService(memory.NewRepository(pool), client)

	return &env{cfg: cfg, pool: pool, client: client, svc: svc}, nil
}

func (e *env) close() {
	e.pool.Close()
}

// resolveOwner picks the owner identity from the flag value, falling back
// to the INGEST_OWNER_ID config.
func (e *env) resolveOwner(flag string) (uuid.UUID, error) {
	raw := flag
	if raw == "" {
		raw = e.cfg.Ingest.OwnerID
	}
	if raw == "" {
		return uuid.Nil, fmt.Errorf("owner is required: pass --owner or set INGEST_OWNER_ID")
	}
	id, err := uuid.Parse(raw)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid owner id %q: %w", raw, err)
	}
	return id, nil
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
	if cfg.Format == "json" {
		handler = slog.NewJSONHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	} else {
		handler = slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{Level: level})
	}
	slog.SetDefault(slog.New(handler))
}
