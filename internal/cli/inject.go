package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var (
	injectOwner      string
	injectType       string
	injectImportance int
	injectTags       []string
	injectSource     string
)

var injectCmd = &cobra.Command{
	Use:   "inject <content>",
	Short: "Store a single memory directly",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		e, err := newEnv(cmd.Context())
		if err != nil {
			return err
		}
		defer e.close()

		owner, err := e.resolveOwner(injectOwner)
		if err != nil {
			return err
		}

		rec, err := e.svc.Create(cmd.Context(), owner, args[0], injectType, injectImportance, injectTags, injectSource)
		if err != nil {
			return fmt.Errorf("storing memory: %w", err)
		}

		fmt.Printf("Stored memory %s (type=%s importance=%d tags=%v)\n",
			rec.ID, rec.Type, rec.Importance, rec.Tags)
		return nil
	},
}

func init() {
	injectCmd.Flags().StringVar(&injectOwner, "owner", "", "owner user id (default: INGEST_OWNER_ID)")
	injectCmd.Flags().StringVar(&injectType, "type", "fact", "memory type (fact, preference, goal, context)")
	injectCmd.Flags().IntVar(&injectImportance, "importance", 3, "importance from 1 to 5")
	injectCmd.Flags().StringSliceVar(&injectTags, "tags", nil, "comma-separated tags")
	injectCmd.Flags().StringVar(&injectSource, "source", "manual", "memory source label")
}
