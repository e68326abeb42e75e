package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/dotenv"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/v2"
)

type Config struct {
	Server ServerConfig
	DB     DBConfig
	Redis  RedisConfig
	JWT    JWTConfig
	OpenAI OpenAIConfig
	Ingest IngestConfig
	Log    LogConfig
}

type ServerConfig struct {
	Host               string
	Port               int
	CORSAllowedOrigins []string
}

type DBConfig struct {
	Host     string
	Port     int
	User     string
	Password string
	Name     string
	SSLMode  string
	MaxConns int32
}

func (c DBConfig) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.Name, c.SSLMode)
}

type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type JWTConfig struct {
	AccessSecret  string
	RefreshSecret string
	AccessExpiry  time.Duration
	RefreshExpiry time.Duration
}

// OpenAIConfig covers the embeddings endpoint and the chat endpoint used by
// the optional pre-chunking summarizer.
type OpenAIConfig struct {
	APIKey              string
	BaseURL             string
	EmbeddingModel      string
	EmbeddingDimensions int
	ChatModel           string
	RequestTimeout      time.Duration
}

// IngestConfig tunes the batch ingestion pipeline.
type IngestConfig struct {
	BatchSize       int
	MaxInFlight     int
	MaxRetries      int
	RetryBaseDelay  time.Duration
	BatchDelay      time.Duration
	CheckpointEvery int
	ProgressFile    string
	TargetTokens    int
	OverlapTokens   int
	OwnerID         string
}

type LogConfig struct {
	Level  string
	Format string
}

func Load() (*Config, error) {
	k := koanf.New(".")

	// Load .env file if it exists (ignore error if missing)
	_ = k.Load(file.Provider(".env"), dotenv.Parser())

	// Load environment variables (override .env)
	err := k.Load(env.Provider("", ".", func(s string) string {
		return strings.ToLower(strings.ReplaceAll(s, "_", "."))
	}), nil)
	if err != nil {
		return nil, fmt.Errorf("loading env vars: %w", err)
	}

	cfg := &Config{
		Server: ServerConfig{
			Host:               k.String("server.host"),
			Port:               k.Int("server.port"),
			CORSAllowedOrigins: splitList(k.String("server.cors.origins")),
		},
		DB: DBConfig{
			Host:     k.String("db.host"),
			Port:     k.Int("db.port"),
			User:     k.String("db.user"),
			Password: k.String("db.password"),
			Name:     k.String("db.name"),
			SSLMode:  k.String("db.sslmode"),
			MaxConns: int32(k.Int("db.max.conns")),
		},
		Redis: RedisConfig{
			Host:     k.String("redis.host"),
			Port:     k.Int("redis.port"),
			Password: k.String("redis.password"),
			DB:       k.Int("redis.db"),
		},
		JWT: JWTConfig{
			AccessSecret:  k.String("jwt.access.secret"),
			RefreshSecret: k.String("jwt.refresh.secret"),
		},
		OpenAI: OpenAIConfig{
			APIKey:              k.String("openai.api.key"),
			BaseURL:             k.String("openai.base.url"),
			EmbeddingModel:      k.String("embedding.model"),
			EmbeddingDimensions: k.Int("embedding.dimensions"),
			ChatModel:           k.String("openai.chat.model"),
		},
		Ingest: IngestConfig{
			BatchSize:       k.Int("ingest.batch.size"),
			MaxInFlight:     k.Int("ingest.max.inflight"),
			MaxRetries:      k.Int("ingest.max.retries"),
			CheckpointEvery: k.Int("ingest.checkpoint.every"),
			ProgressFile:    k.String("ingest.progress.file"),
			OwnerID:         k.String("ingest.owner.id"),
			TargetTokens:    k.Int("ingest.chunk.tokens"),
			OverlapTokens:   k.Int("ingest.chunk.overlap"),
		},
		Log: LogConfig{
			Level:  k.String("log.level"),
			Format: k.String("log.format"),
		},
	}

	// Apply defaults
	if cfg.Server.Host == "" {
		cfg.Server.Host = "0.0.0.0"
	}
	if cfg.Server.Port == 0 {
		cfg.Server.Port = 8080
	}
	if cfg.DB.Host == "" {
		cfg.DB.Host = "localhost"
	}
	if cfg.DB.Port == 0 {
		cfg.DB.Port = 5432
	}
	if cfg.DB.User == "" {
		cfg.DB.User = "recall"
	}
	if cfg.DB.Name == "" {
		cfg.DB.Name = "recall"
	}
	if cfg.DB.SSLMode == "" {
		cfg.DB.SSLMode = "disable"
	}
	if cfg.DB.MaxConns == 0 {
		cfg.DB.MaxConns = 25
	}
	if cfg.Redis.Host == "" {
		cfg.Redis.Host = "localhost"
	}
	if cfg.Redis.Port == 0 {
		cfg.Redis.Port = 6379
	}
	if cfg.OpenAI.BaseURL == "" {
		cfg.OpenAI.BaseURL = "https://api.openai.com/v1"
	}
	if cfg.OpenAI.EmbeddingModel == "" {
		cfg.OpenAI.EmbeddingModel = "text-embedding-3-small"
	}
	if cfg.OpenAI.EmbeddingDimensions == 0 {
		cfg.OpenAI.EmbeddingDimensions = 1536
	}
	if cfg.OpenAI.ChatModel == "" {
		cfg.OpenAI.ChatModel = "gpt-4o-mini"
	}
	if cfg.Ingest.BatchSize == 0 {
		cfg.Ingest.BatchSize = 5
	}
	if cfg.Ingest.MaxInFlight == 0 {
		cfg.Ingest.MaxInFlight = 2
	}
	if cfg.Ingest.MaxRetries == 0 {
		cfg.Ingest.MaxRetries = 3
	}
	if cfg.Ingest.CheckpointEvery == 0 {
		cfg.Ingest.CheckpointEvery = 5
	}
	if cfg.Ingest.ProgressFile == "" {
		cfg.Ingest.ProgressFile = "ingestion_progress.json"
	}
	if cfg.Ingest.TargetTokens == 0 {
		cfg.Ingest.TargetTokens = 500
	}
	if cfg.Ingest.OverlapTokens == 0 {
		cfg.Ingest.OverlapTokens = 50
	}
	if cfg.Log.Level == "" {
		cfg.Log.Level = "info"
	}
	if cfg.Log.Format == "" {
		cfg.Log.Format = "text"
	}

	// Parse durations
	accessExpStr := k.String("jwt.access.expiry")
	if accessExpStr == "" {
		accessExpStr = "15m"
	}
	cfg.JWT.AccessExpiry, err = time.ParseDuration(accessExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt access expiry: %w", err)
	}

	refreshExpStr := k.String("jwt.refresh.expiry")
	if refreshExpStr == "" {
		refreshExpStr = "168h"
	}
	cfg.JWT.RefreshExpiry, err = time.ParseDuration(refreshExpStr)
	if err != nil {
		return nil, fmt.Errorf("parsing jwt refresh expiry: %w", err)
	}

	timeoutStr := k.String("openai.timeout")
	if timeoutStr == "" {
		timeoutStr = "60s"
	}
	cfg.OpenAI.RequestTimeout, err = time.ParseDuration(timeoutStr)
	if err != nil {
		return nil, fmt.Errorf("parsing openai timeout: %w", err)
	}

	retryBaseStr := k.String("ingest.retry.base.delay")
	if retryBaseStr == "" {
		retryBaseStr = "1s"
	}
	cfg.Ingest.RetryBaseDelay, err = time.ParseDuration(retryBaseStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ingest retry base delay: %w", err)
	}

	batchDelayStr := k.String("ingest.batch.delay")
	if batchDelayStr == "" {
		batchDelayStr = "1s"
	}
	cfg.Ingest.BatchDelay, err = time.ParseDuration(batchDelayStr)
	if err != nil {
		return nil, fmt.Errorf("parsing ingest batch delay: %w", err)
	}

	return cfg, nil
}

func splitList(s string) []string {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if t := strings.TrimSpace(p); t != "" {
			out = append(out, t)
		}
	}
	return out
}
