package memory

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/pgvector/pgvector-go"

	"github.com/recallhq/recall/internal/metrics"
)

// RecordError marks a storage failure caused by a single bad record
// (constraint violation) rather than the store itself. Callers skip the
// record and continue; any other storage error aborts the run.
type RecordError struct {
	Err error
}

func (e *RecordError) Error() string { return e.Err.Error() }
func (e *RecordError) Unwrap() error { return e.Err }

func classifyStoreError(op string, err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && strings.HasPrefix(pgErr.Code, "23") {
		return &RecordError{Err: fmt.Errorf("%s: %w", op, err)}
	}
	return fmt.Errorf("%s: %w", op, err)
}

type Repository struct {
	pool *pgxpool.Pool
}

func NewRepository(pool *pgxpool.Pool) *Repository {
	return &Repository{pool: pool}
}

func (r *Repository) Insert(ctx context.Context, rec *Record) (*Record, error) {
	query := `
		INSERT INTO memories (owner_user_id, content, embedding, type, importance, tags, source)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		RETURNING id, created_at, updated_at`

	err := r.pool.QueryRow(ctx, query,
		rec.OwnerUserID,
		rec.Content,
		pgvector.NewVector(rec.Embedding),
		rec.Type,
		rec.Importance,
		rec.Tags,
		rec.Source,
	).Scan(&rec.ID, &rec.CreatedAt, &rec.UpdatedAt)
	if err != nil {
		return nil, classifyStoreError("inserting memory", err)
	}

	metrics.MemoriesStoredTotal.Inc()
	return rec, nil
}

func (r *Repository) List(ctx context.Context, owner uuid.UUID, limit, offset int) ([]Record, int, error) {
	var total int
	err := r.pool.QueryRow(ctx,
		`SELECT COUNT(*) FROM memories WHERE owner_user_id = $1`, owner,
	).Scan(&total)
	if err != nil {
		return nil, 0, fmt.Errorf("counting memories: %w", err)
	}

	query := `
		SELECT id, owner_user_id, content, type, importance, tags, source, created_at, updated_at
		FROM memories
		WHERE owner_user_id = $1
		ORDER BY created_at DESC, id
		LIMIT $2 OFFSET $3`

	rows, err := r.pool.Query(ctx, query, owner, limit, offset)
	if err != nil {
		return nil, 0, fmt.Errorf("listing memories: %w", err)
	}
	defer rows.Close()

	records := make([]Record, 0, limit)
	for rows.Next() {
		var rec Record
		err := rows.Scan(&rec.ID, &rec.OwnerUserID, &rec.Content, &rec.Type,
			&rec.Importance, &rec.Tags, &rec.Source, &rec.CreatedAt, &rec.UpdatedAt)
		if err != nil {
			return nil, 0, fmt.Errorf("scanning memory: %w", err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("reading memories: %w", err)
	}

	return records, total, nil
}

// SearchNearest returns the k records closest to the query vector by cosine
// distance, scoped to owner. Ties on distance break on id so result order is
// deterministic.
func (r *Repository) SearchNearest(ctx context.Context, owner uuid.UUID, vec []float32, k int, f Filters) ([]SearchResult, error) {
	var sb strings.Builder
	sb.WriteString(`
		SELECT id, owner_user_id, content, type, importance, tags, source,
		       created_at, updated_at, embedding <=> $1 AS distance
		FROM memories
		WHERE owner_user_id = $2`)

	args := []any{pgvector.NewVector(vec), owner}

	if f.Type != "" {
		args = append(args, f.Type)
		fmt.Fprintf(&sb, " AND type = $%d", len(args))
	}
	if len(f.Tags) > 0 {
		args = append(args, f.Tags)
		fmt.Fprintf(&sb, " AND tags && $%d", len(args))
	}
	if f.MinImportance > 0 {
		args = append(args, f.MinImportance)
		fmt.Fprintf(&sb, " AND importance >= $%d", len(args))
	}

	args = append(args, k)
	fmt.Fprintf(&sb, " ORDER BY embedding <=> $1, id LIMIT $%d", len(args))

	rows, err := r.pool.Query(ctx, sb.String(), args...)
	if err != nil {
		return nil, fmt.Errorf("searching memories: %w", err)
	}
	defer rows.Close()

	results := make([]SearchResult, 0, k)
	for rows.Next() {
		var res SearchResult
		err := rows.Scan(&res.ID, &res.OwnerUserID, &res.Content, &res.Type,
			&res.Importance, &res.Tags, &res.Source, &res.CreatedAt, &res.UpdatedAt,
			&res.Distance)
		if err != nil {
			return nil, fmt.Errorf("scanning search result: %w", err)
		}
		res.Similarity = 1 - res.Distance
		results = append(results, res)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("reading search results: %w", err)
	}

	return results, nil
}

func (r *Repository) Delete(ctx context.Context, owner, id uuid.UUID) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memories WHERE id = $1 AND owner_user_id = $2`, id, owner)
	if err != nil {
		return fmt.Errorf("deleting memory: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *Repository) DeleteAll(ctx context.Context, owner uuid.UUID) (int64, error) {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM memories WHERE owner_user_id = $1`, owner)
	if err != nil {
		return 0, fmt.Errorf("deleting memories: %w", err)
	}
	return tag.RowsAffected(), nil
}
