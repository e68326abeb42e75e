package ingest

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/recallhq/recall/internal/chunker"
	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/memory"
	"github.com/recallhq/recall/internal/metrics"
	"github.com/recallhq/recall/internal/openai"
)

// BatchEmbedder embeds a batch of texts in one call, returning vectors in
// input order. Implemented by the openai client, which retries transient
// failures internally; an error here means retries are exhausted or the
// failure is permanent.
type BatchEmbedder interface {
	EmbedBatch(ctx context.Context, texts []string) ([][]float32, error)
}

// RecordStore persists an already-embedded record.
type RecordStore interface {
	CreateEmbedded(ctx context.Context, rec *memory.Record) (*memory.Record, error)
}

// Summarizer optionally condenses message text before chunking.
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// Summary reports what a single Run accomplished. Skipped counts chunks a
// previous run already stored.
type Summary struct {
	Conversations int
	Messages      int
	Batches       int
	Stored        int
	Skipped       int
	Failed        int
	Elapsed       time.Duration
}

// Options wires a Pipeline. Tags and Importance, when set, override the
// per-chunk heuristics; Summarizer is optional.
type Options struct {
	Embedder   BatchEmbedder
	Store      RecordStore
	Progress   ProgressStore
	Owner      uuid.UUID
	Source     string
	Tags       []string
	Importance int
	Summarizer Summarizer
	Config     config.IngestConfig
	Logger     *slog.Logger
}

type Pipeline struct {
	opts    Options
	chunker *chunker.Chunker
	logger  *slog.Logger
}

func NewPipeline(opts Options) *Pipeline {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Pipeline{
		opts: opts,
		chunker: chunker.New(chunker.Options{
			TargetTokens:  opts.Config.TargetTokens,
			OverlapTokens: opts.Config.OverlapTokens,
		}),
		logger: logger,
	}
}

// workItem is one chunk waiting for an embedding, tagged with its
// conversation so progress can track completion per conversation.
type workItem struct {
	convID     string
	hash       string
	content    string
	recType    string
	importance int
	tags       []string
}

// Run ingests conversations the resumable way: chunks already recorded in
// progress are skipped, embeddings happen in fixed-size batches with a pause
// between them, progress is checkpointed periodically and always flushed
// before returning. A batch whose embedding fails after retries is marked
// failed and the run continues; only permanent errors (dimension mismatch,
// dead datastore, cancellation) abort. A canceled context stops cleanly
// after the current batch.
func (p *Pipeline) Run(ctx context.Context, convs []Conversation) (*Summary, error) {
	start := time.Now()

	prog, err := p.opts.Progress.Load()
	if err != nil {
		return nil, fmt.Errorf("loading progress: %w", err)
	}

	base := prog.Stats
	summary := &Summary{}
	defer func() { summary.Elapsed = time.Since(start) }()

	items, convChunks := p.collect(ctx, convs, prog, summary)

	var mu sync.Mutex
	convFailed := make(map[string]bool)

	batchSize := p.opts.Config.BatchSize
	if batchSize <= 0 {
		batchSize = 5
	}

	for batchStart := 0; batchStart < len(items); batchStart += batchSize {
		if err := ctx.Err(); err != nil {
			p.flush(prog, base, summary)
			return summary, err
		}

		end := batchStart + batchSize
		if end > len(items) {
			end = len(items)
		}
		batch := items[batchStart:end]
		summary.Batches++

		texts := make([]string, len(batch))
		for i, it := range batch {
			texts[i] = it.content
		}

		vecs, err := p.opts.Embedder.EmbedBatch(ctx, texts)
		if err != nil {
			if errors.Is(err, openai.ErrDimensionMismatch) || ctx.Err() != nil {
				p.flush(prog, base, summary)
				return summary, fmt.Errorf("embedding batch %d: %w", summary.Batches, err)
			}
			// Retries are exhausted; the whole batch is a per-chunk failure
			// and the run moves on.
			summary.Failed += len(batch)
			for _, it := range batch {
				convFailed[it.convID] = true
				metrics.ChunksProcessedTotal.WithLabelValues("failed").Inc()
			}
			p.logger.Warn("embedding batch failed", "batch", summary.Batches, "chunks", len(batch), "error", err)
			continue
		}

		g, gctx := errgroup.WithContext(ctx)
		if p.opts.Config.MaxInFlight > 0 {
			g.SetLimit(p.opts.Config.MaxInFlight)
		}
		for i, it := range batch {
			vec := vecs[i]
			it := it
			g.Go(func() error {
				_, err := p.opts.Store.CreateEmbedded(gctx, &memory.Record{
					OwnerUserID: p.opts.Owner,
					Content:     it.content,
					Embedding:   vec,
					Type:        it.recType,
					Importance:  it.importance,
					Tags:        it.tags,
					Source:      p.opts.Source,
				})

				mu.Lock()
				defer mu.Unlock()
				if err != nil {
					var recErr *memory.RecordError
					if errors.As(err, &recErr) {
						// One bad record does not stop the run.
						summary.Failed++
						convFailed[it.convID] = true
						metrics.ChunksProcessedTotal.WithLabelValues("failed").Inc()
						p.logger.Warn("skipping chunk", "conversation", it.convID, "error", err)
						return nil
					}
					return err
				}
				prog.ProcessedChunks[it.hash] = true
				summary.Stored++
				metrics.ChunksProcessedTotal.WithLabelValues("stored").Inc()
				return nil
			})
		}
		if err := g.Wait(); err != nil {
			p.flush(prog, base, summary)
			return summary, fmt.Errorf("storing batch %d: %w", summary.Batches, err)
		}

		if p.opts.Config.CheckpointEvery > 0 && summary.Batches%p.opts.Config.CheckpointEvery == 0 {
			p.flush(prog, base, summary)
			p.logger.Info("checkpoint",
				"batches", summary.Batches,
				"stored", summary.Stored,
				"failed", summary.Failed)
		}

		if p.opts.Config.BatchDelay > 0 && end < len(items) {
			select {
			case <-ctx.Done():
				p.flush(prog, base, summary)
				return summary, ctx.Err()
			case <-time.After(p.opts.Config.BatchDelay):
			}
		}
	}

	for convID, hashes := range convChunks {
		if prog.ProcessedConversations[convID] || convFailed[convID] {
			continue
		}
		done := true
		for _, h := range hashes {
			if !prog.ProcessedChunks[h] {
				done = false
				break
			}
		}
		if done {
			prog.ProcessedConversations[convID] = true
			summary.Conversations++
		}
	}

	p.updateStats(prog, base, summary)
	if err := p.opts.Progress.Save(prog); err != nil {
		return summary, fmt.Errorf("saving progress: %w", err)
	}
	return summary, nil
}

// collect turns conversations into pending work items, counting chunks that
// earlier runs already stored as skipped.
func (p *Pipeline) collect(ctx context.Context, convs []Conversation, prog *Progress, summary *Summary) ([]workItem, map[string][]string) {
	var items []workItem
	convChunks := make(map[string][]string)
	queued := make(map[string]bool)

	for _, conv := range convs {
		if prog.ProcessedConversations[conv.ID] {
			continue
		}
		for _, msg := range conv.Messages {
			summary.Messages++

			text := msg.Content
			if p.opts.Summarizer != nil {
				condensed, err := p.opts.Summarizer.Summarize(ctx, text)
				if err != nil {
					// Summarization is best-effort; keep the raw text.
					p.logger.Warn("summarization failed, keeping raw text",
						"conversation", conv.ID, "error", err)
				} else {
					text = condensed
				}
			}

			for _, chunk := range p.chunker.Split(text) {
				hash := ChunkHash(p.opts.Owner.String(), chunk)
				convChunks[conv.ID] = append(convChunks[conv.ID], hash)
				// Dedupe against earlier runs and against identical
				// content seen earlier in this run.
				if prog.ProcessedChunks[hash] || queued[hash] {
					summary.Skipped++
					metrics.ChunksProcessedTotal.WithLabelValues("skipped").Inc()
					continue
				}
				queued[hash] = true

				importance := p.opts.Importance
				if importance == 0 {
					importance = ScoreImportance(chunk)
				}
				tags := p.opts.Tags
				if len(tags) == 0 {
					tags = GenerateTags(chunk, msg.Role)
				}

				items = append(items, workItem{
					convID:     conv.ID,
					hash:       hash,
					content:    chunk,
					recType:    ClassifyType(chunk),
					importance: importance,
					tags:       tags,
				})
			}
		}
	}
	return items, convChunks
}

// updateStats folds this run's counters into the cumulative stats carried
// between runs. base is the stats snapshot taken when progress was loaded.
func (p *Pipeline) updateStats(prog *Progress, base Stats, summary *Summary) {
	prog.Stats = Stats{
		Conversations: len(prog.ProcessedConversations),
		Messages:      base.Messages + summary.Messages,
		ChunksStored:  len(prog.ProcessedChunks),
		ChunksSkipped: base.ChunksSkipped + summary.Skipped,
		ChunksFailed:  base.ChunksFailed + summary.Failed,
	}
}

// flush checkpoints progress mid-run. Save errors are logged, not returned;
// losing a checkpoint only costs rework on resume.
func (p *Pipeline) flush(prog *Progress, base Stats, summary *Summary) {
	p.updateStats(prog, base, summary)
	if err := p.opts.Progress.Save(prog); err != nil {
		p.logger.Error("saving progress checkpoint", "error", err)
	}
}
