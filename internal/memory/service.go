package memory

import (
	"context"
	"fmt"
	"strings"

	"github.com/google/uuid"
)

// Embedder turns text into embedding vectors. Implemented by the openai
// client; tests substitute a fake.
type Embedder interface {
	Embed(ctx context.Context, text string) ([]float32, error)
}

type repository interface {
	Insert(ctx context.Context, rec *Record) (*Record, error)
	List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]Record, int, error)
	SearchNearest(ctx context.Context, owner uuid.UUID, vec []float32, k int, f Filters) ([]SearchResult, error)
	Delete(ctx context.Context, owner, id uuid.UUID) error
	DeleteAll(ctx context.Context, owner uuid.UUID) (int64, error)
}

type Service struct {
	repo     repository
	embedder Embedder
}

func NewService(repo repository, embedder Embedder) *Service {
	return &Service{repo: repo, embedder: embedder}
}

// Create embeds the content and stores the record. Importance is clamped and
// type normalized before the write.
func (s *Service) Create(ctx context.Context, owner uuid.UUID, content, recType string, importance int, tags []string, source string) (*Record, error) {
	content = strings.TrimSpace(content)
	if content == "" {
		return nil, fmt.Errorf("content must not be empty")
	}

	vec, err := s.embedder.Embed(ctx, content)
	if err != nil {
		return nil, fmt.Errorf("embedding content: %w", err)
	}

	if source == "" {
		source = "manual"
	}

	rec := &Record{
		OwnerUserID: owner,
		Content:     content,
		Embedding:   vec,
		Type:        NormalizeType(recType),
		Importance:  ClampImportance(importance),
		Tags:        tags,
		Source:      source,
	}
	return s.repo.Insert(ctx, rec)
}

// CreateEmbedded stores a record whose embedding was already computed, used
// by the batch ingestion pipeline.
func (s *Service) CreateEmbedded(ctx context.Context, rec *Record) (*Record, error) {
	rec.Type = NormalizeType(rec.Type)
	rec.Importance = ClampImportance(rec.Importance)
	if rec.Source == "" {
		rec.Source = "manual"
	}
	return s.repo.Insert(ctx, rec)
}

func (s *Service) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]Record, int, error) {
	if limit <= 0 || limit > 100 {
		limit = 20
	}
	if offset < 0 {
		offset = 0
	}
	return s.repo.List(ctx, owner, limit, offset)
}

// SearchByText embeds the query text and returns the k nearest records.
func (s *Service) SearchByText(ctx context.Context, owner uuid.UUID, query string, k int, f Filters) ([]SearchResult, error) {
	query = strings.TrimSpace(query)
	if query == "" {
		return nil, fmt.Errorf("query must not be empty")
	}
	if k <= 0 || k > 50 {
		k = 5
	}

	vec, err := s.embedder.Embed(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("embedding query: %w", err)
	}

	return s.repo.SearchNearest(ctx, owner, vec, k, f)
}

func (s *Service) Delete(ctx context.Context, owner, id uuid.UUID) error {
	return s.repo.Delete(ctx, owner, id)
}

func (s *Service) DeleteAll(ctx context.Context, owner uuid.UUID) (int64, error) {
	return s.repo.DeleteAll(ctx, owner)
}
