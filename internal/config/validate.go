package config

import (
	"errors"
	"fmt"
	"strings"
)

// Validate checks Config for startup-critical problems before any work
// begins. It collects all errors into a single joined error.
func (c *Config) Validate() error {
	var errs []string

	// JWT secrets
	if len(c.JWT.AccessSecret) < 32 {
		errs = append(errs, "JWT_ACCESS_SECRET must be at least 32 characters")
	}
	if len(c.JWT.RefreshSecret) < 32 {
		errs = append(errs, "JWT_REFRESH_SECRET must be at least 32 characters")
	}
	if c.JWT.AccessSecret != "" && c.JWT.RefreshSecret != "" && c.JWT.AccessSecret == c.JWT.RefreshSecret {
		errs = append(errs, "JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	// OpenAI credentials and embedding geometry. The vector column is fixed
	// at migration time, so a wrong dimension here corrupts every write.
	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}
	if c.OpenAI.EmbeddingDimensions != 1536 && c.OpenAI.EmbeddingDimensions != 3072 {
		errs = append(errs, fmt.Sprintf("EMBEDDING_DIMENSIONS must be 1536 or 3072, got %d", c.OpenAI.EmbeddingDimensions))
	}

	// DB password
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}

	// Port ranges
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Sprintf("SERVER_PORT must be 1–65535, got %d", c.Server.Port))
	}
	if c.DB.Port < 1 || c.DB.Port > 65535 {
		errs = append(errs, fmt.Sprintf("DB_PORT must be 1–65535, got %d", c.DB.Port))
	}
	if c.Redis.Port < 1 || c.Redis.Port > 65535 {
		errs = append(errs, fmt.Sprintf("REDIS_PORT must be 1–65535, got %d", c.Redis.Port))
	}

	// Ingestion knobs
	if c.Ingest.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("INGEST_BATCH_SIZE must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.Ingest.MaxInFlight < 1 {
		errs = append(errs, fmt.Sprintf("INGEST_MAX_INFLIGHT must be positive, got %d", c.Ingest.MaxInFlight))
	}
	if c.Ingest.MaxRetries < 1 {
		errs = append(errs, fmt.Sprintf("INGEST_MAX_RETRIES must be positive, got %d", c.Ingest.MaxRetries))
	}
	if c.Ingest.OverlapTokens >= c.Ingest.TargetTokens {
		errs = append(errs, fmt.Sprintf("INGEST_CHUNK_OVERLAP (%d) must be smaller than INGEST_CHUNK_TOKENS (%d)",
			c.Ingest.OverlapTokens, c.Ingest.TargetTokens))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}

// ValidateCLI checks only what the command line tool needs: database,
// OpenAI, and ingestion settings. JWT and server settings are the API
// server's concern.
func (c *Config) ValidateCLI() error {
	var errs []string

	if c.OpenAI.APIKey == "" {
		errs = append(errs, "OPENAI_API_KEY is required")
	}
	if c.OpenAI.EmbeddingDimensions != 1536 && c.OpenAI.EmbeddingDimensions != 3072 {
		errs = append(errs, fmt.Sprintf("EMBEDDING_DIMENSIONS must be 1536 or 3072, got %d", c.OpenAI.EmbeddingDimensions))
	}
	if c.DB.Password == "" {
		errs = append(errs, "DB_PASSWORD is required")
	}
	if c.Ingest.BatchSize < 1 {
		errs = append(errs, fmt.Sprintf("INGEST_BATCH_SIZE must be positive, got %d", c.Ingest.BatchSize))
	}
	if c.Ingest.OverlapTokens >= c.Ingest.TargetTokens {
		errs = append(errs, fmt.Sprintf("INGEST_CHUNK_OVERLAP (%d) must be smaller than INGEST_CHUNK_TOKENS (%d)",
			c.Ingest.OverlapTokens, c.Ingest.TargetTokens))
	}

	if len(errs) > 0 {
		return errors.New("config validation failed:\n  " + strings.Join(errs, "\n  "))
	}
	return nil
}
