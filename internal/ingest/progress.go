package ingest

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Stats accumulates across runs; a resumed ingestion keeps counting where
// the previous run stopped.
type Stats struct {
	Conversations int `json:"conversations"`
	Messages      int `json:"messages"`
	ChunksStored  int `json:"chunks_stored"`
	ChunksSkipped int `json:"chunks_skipped"`
	ChunksFailed  int `json:"chunks_failed"`
}

// Progress is the resumable state of an ingestion run. Conversations are
// tracked by id, individual chunks by content hash, so a rerun over the same
// export stores nothing twice.
type Progress struct {
	ProcessedConversations map[string]bool `json:"processed_conversations"`
	ProcessedChunks        map[string]bool `json:"processed_chunks"`
	Stats                  Stats           `json:"stats"`
	UpdatedAt              time.Time       `json:"updated_at"`
}

func NewProgress() *Progress {
	return &Progress{
		ProcessedConversations: make(map[string]bool),
		ProcessedChunks:        make(map[string]bool),
	}
}

// ChunkHash identifies a chunk by its content, scoped to the owning user so
// two users ingesting identical exports do not shadow each other.
func ChunkHash(owner, content string) string {
	sum := sha256.Sum256([]byte(owner + "\x00" + content))
	return hex.EncodeToString(sum[:])
}

// ProgressStore persists ingestion progress between runs.
type ProgressStore interface {
	Load() (*Progress, error)
	Save(p *Progress) error
}

// FileStore keeps progress in a JSON file. Saves go through a temp file and
// rename so a crash mid-write never corrupts existing progress.
type FileStore struct {
	Path string
}

func NewFileStore(path string) *FileStore {
	return &FileStore{Path: path}
}

func (s *FileStore) Load() (*Progress, error) {
	data, err := os.ReadFile(s.Path)
	if os.IsNotExist(err) {
		return NewProgress(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("reading progress file: %w", err)
	}

	var p Progress
	if err := json.Unmarshal(data, &p); err != nil {
		return nil, fmt.Errorf("parsing progress file: %w", err)
	}
	if p.ProcessedConversations == nil {
		p.ProcessedConversations = make(map[string]bool)
	}
	if p.ProcessedChunks == nil {
		p.ProcessedChunks = make(map[string]bool)
	}
	return &p, nil
}

func (s *FileStore) Save(p *Progress) error {
	p.UpdatedAt = time.Now().UTC()

	data, err := json.MarshalIndent(p, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding progress: %w", err)
	}

	dir := filepath.Dir(s.Path)
	tmp, err := os.CreateTemp(dir, ".progress-*.json")
	if err != nil {
		return fmt.Errorf("creating temp progress file: %w", err)
	}
	defer os.Remove(tmp.Name())

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		return fmt.Errorf("writing progress: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("closing progress file: %w", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return fmt.Errorf("replacing progress file: %w", err)
	}
	return nil
}

// MemStore holds progress in memory, for tests and one-shot runs that do not
// need resumability.
type MemStore struct {
	progress *Progress
	Saves    int
}

func NewMemStore() *MemStore {
	return &MemStore{}
}

func (s *MemStore) Load() (*Progress, error) {
	if s.progress == nil {
		return NewProgress(), nil
	}
	return s.progress, nil
}

func (s *MemStore) Save(p *Progress) error {
	p.UpdatedAt = time.Now().UTC()
	s.progress = p
	s.Saves++
	return nil
}
