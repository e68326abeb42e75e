package cli

import (
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/ingest"
)

var (
	ingestOwner        string
	ingestSource       string
	ingestTags         []string
	ingestImportance   int
	ingestSummarize    bool
	ingestReset        bool
	ingestProgressFile string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest <export.json>",
	Short: "Ingest a conversation export into the memory store",
	Long: `Parse a conversation export file, chunk each message, embed the chunks in
batches, and store them as memories for the given owner. Progress is saved to
a JSON file so an interrupted run resumes where it stopped.`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		if ingestImportance < 0 || ingestImportance > 5 {
			return fmt.Errorf("--importance must be between 1 and 5")
		}

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		e, err := newEnv(ctx)
		if err != nil {
			return err
		}
		defer e.close()

		owner, err := e.resolveOwner(ingestOwner)
		if err != nil {
			return err
		}

		path := args[0]
		convs, err := ingest.Load(path)
		if err != nil {
			return err
		}
		if len(convs) == 0 {
			fmt.Println("Nothing to ingest: source contains no usable text.")
			return nil
		}

		source := ingestSource
		if source == "" {
			source = ingest.DetectSource(path)
		}
		progressFile := ingestProgressFile
		if progressFile == "" {
			progressFile = e.cfg.Ingest.ProgressFile
		}
		if ingestReset {
			if err := os.Remove(progressFile); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("resetting progress: %w", err)
			}
		}

		opts := ingest.Options{
			Embedder:   e.client,
			Store:      e.svc,
			Progress:   ingest.NewFileStore(progressFile),
			Owner:      owner,
			Source:     source,
			Tags:       ingestTags,
			Importance: ingestImportance,
			Config:     e.cfg.Ingest,
		}
		if ingestSummarize {
			opts.Summarizer = e.client
		}

		summary, err := ingest.NewPipeline(opts).Run(ctx, convs)
		if summary != nil {
			fmt.Printf("Conversations completed: %d\n", summary.Conversations)
			fmt.Printf("Messages seen:           %d\n", summary.Messages)
			fmt.Printf("Chunks stored:           %d\n", summary.Stored)
			fmt.Printf("Chunks skipped:          %d\n", summary.Skipped)
			fmt.Printf("Chunks failed:           %d\n", summary.Failed)
			fmt.Printf("Elapsed:                 %s\n", summary.Elapsed.Round(time.Millisecond))
		}
		if err != nil {
			return fmt.Errorf("ingestion stopped: %w", err)
		}
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestOwner, "owner", "", "owner user id (default: INGEST_OWNER_ID)")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "", "memory source label (default: detected from filename)")
	ingestCmd.Flags().StringSliceVar(&ingestTags, "tags", nil, "tags for every stored chunk (default: derived per chunk)")
	ingestCmd.Flags().IntVar(&ingestImportance, "importance", 0, "importance 1-5 for every stored chunk (default: derived per chunk)")
	ingestCmd.Flags().BoolVar(&ingestSummarize, "summarize", false, "condense each message with the chat model before chunking")
	ingestCmd.Flags().BoolVar(&ingestReset, "reset", false, "discard existing progress before starting")
	ingestCmd.Flags().StringVar(&ingestProgressFile, "progress-file", "", "progress file path (default: from config)")
}
