package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/config"
	"github.com/recallhq/recall/internal/ingest"
)

var (
	progressFilePath string
	progressReset    bool
)

var progressCmd = &cobra.Command{
	Use:   "progress",
	Short: "Show the state of a resumable ingestion",
	RunE: func(cmd *cobra.Command, args []string) error {
		path := progressFilePath
		if path == "" {
			// No database or API access needed here, just the file location.
			cfg, err := config.Load()
			if err != nil {
				return fmt.Errorf("loading config: %w", err)
			}
			path = cfg.Ingest.ProgressFile
		}

		if progressReset {
			if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
				return fmt.Errorf("removing progress file: %w", err)
			}
			fmt.Printf("Progress file %s removed.\n", path)
			return nil
		}

		p, err := ingest.NewFileStore(path).Load()
		if err != nil {
			return err
		}

		fmt.Printf("Progress file:            %s\n", path)
		fmt.Printf("Conversations processed:  %d\n", len(p.ProcessedConversations))
		fmt.Printf("Chunks stored:            %d\n", len(p.ProcessedChunks))
		fmt.Printf("Chunks skipped (reruns):  %d\n", p.Stats.ChunksSkipped)
		fmt.Printf("Chunks failed:            %d\n", p.Stats.ChunksFailed)
		if !p.UpdatedAt.IsZero() {
			fmt.Printf("Last updated:             %s\n", p.UpdatedAt.Format("2006-01-02 15:04:05 MST"))
		}
		return nil
	},
}

func init() {
	progressCmd.Flags().StringVar(&progressFilePath, "progress-file", "", "progress file path (default: from config)")
	progressCmd.Flags().BoolVar(&progressReset, "reset", false, "delete the progress file instead of printing it")
}
