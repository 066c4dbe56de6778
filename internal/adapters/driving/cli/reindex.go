package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"
)

var reindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "Rebuild the vector index from stored chunks",
	Long: `Rebuilds the vector index from the chunk embeddings persisted in the
document store. Useful after switching vector backends or when the index
was lost; no re-embedding happens.`,
	RunE: runReindex,
}

func init() {
	rootCmd.AddCommand(reindexCmd)
}

func runReindex(cmd *cobra.Command, _ []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}

	ctx := context.Background()
	cmd.Println("Rebuilding vector index...")

	count, err := ingestService.Reindex(ctx)
	if err != nil {
		return fmt.Errorf("reindex failed: %w", err)
	}

	cmd.Printf("Reindexed %d chunks.\n", count)
	return nil
}
