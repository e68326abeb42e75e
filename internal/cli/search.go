package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/recallhq/recall/internal/memory"
)

var (
	searchOwner         string
	searchLimit         int
	searchType          string
	searchTags          []string
	searchMinImportance int
)

var searchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "Find memories semantically similar to a query",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		owner, err := e.resolveOwner(searchOwner)
		if err != nil {
			return err
		}

		results, err := e.svc.SearchByText(cmd.Context(), owner, args[0], searchLimit, memory.Filters{
			Type:          searchType,
			Tags:          searchTags,
			MinImportance: searchMinImportance,
		})
		if err != nil {
			return fmt.Errorf("searching memories: %w", err)
		}

		if len(results) == 0 {
			fmt.Println("No matching memories.")
			return nil
		}
		for i, res := range results {
			fmt.Printf("%2d. [similarity %.4f] (%s, importance %d) %s\n",
				i+1, res.Similarity, res.Type, res.Importance, res.Content)
			if len(res.Tags) > 0 {
				fmt.Printf("    tags: %v\n", res.Tags)
			}
		}
		return nil
	},
}

func init() {
	searchCmd.Flags().StringVar(&searchOwner, "owner", "", "owner user id (default: INGEST_OWNER_ID)")
	searchCmd.Flags().IntVar(&searchLimit, "limit", 5, "maximum results")
	searchCmd.Flags().StringVar(&searchType, "type", "", "filter by memory type")
	searchCmd.Flags().StringSliceVar(&searchTags, "tags", nil, "filter by tags (any match)")
	searchCmd.Flags().IntVar(&searchMinImportance, "min-importance", 0, "minimum importance")
}
