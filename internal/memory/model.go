package memory

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// Record types mirror the kinds of knowledge extracted from conversations.
const (
	TypeFact       = "fact"
	TypePreference = "preference"
	TypeGoal       = "goal"
	TypeContext    = "context"
)

const (
	MinImportance = 1
	MaxImportance = 5
)

type Record struct {
	ID          uuid.UUID `json:"id"`
	OwnerUserID uuid.UUID `json:"owner_user_id"`
	Content     string    `json:"content"`
	Embedding   []float32 `json:"-"`
	Type        string    `json:"type"`
	Importance  int       `json:"importance"`
	Tags        []string  `json:"tags"`
	Source      string    `json:"source"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

// SearchResult pairs a record with its cosine distance to the query vector
// and the similarity (1 - distance). Higher similarity means closer match.
type SearchResult struct {
	Record
	Distance   float64 `json:"distance"`
	Similarity float64 `json:"similarity"`
}

// Filters restrict a nearest-neighbor search. Zero values mean no restriction.
type Filters struct {
	Type          string
	Tags          []string
	MinImportance int
}

// ClampImportance forces importance into the valid range, defaulting
// out-of-range and unset values toward the boundaries.
func ClampImportance(v int) int {
	if v < MinImportance {
		return MinImportance
	}
	if v > MaxImportance {
		return MaxImportance
	}
	return v
}

// NormalizeType lowercases the free-form type label, defaulting blanks to
// TypeFact. Labels outside the common set ("biographical", "project") pass
// through untouched.
func NormalizeType(t string) string {
	t = strings.ToLower(strings.TrimSpace(t))
	if t == "" {
		return TypeFact
	}
	return t
}
