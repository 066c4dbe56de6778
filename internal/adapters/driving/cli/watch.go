package cli

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/adapters/driving/watch"
)

var watchDebounce time.Duration

var watchCmd = &cobra.Command{
	Use:   "watch [dir]",
	Short: "Watch a directory and ingest changes",
	Long: `Watches a directory and keeps the knowledge base in sync with it:
new and modified files are ingested, deleted files are removed. Existing
files are ingested on startup.

Hidden files and subdirectories are ignored. Runs until interrupted.`,
	Args: cobra.ExactArgs(1),
	RunE: runWatch,
}

func init() {
	watchCmd.Flags().DurationVar(&watchDebounce, "debounce", 500*time.Millisecond,
		"delay before ingesting after a file change")
	rootCmd.AddCommand(watchCmd)
}

func runWatch(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if documentService == nil {
		return errors.New("document service not configured")
	}

	watcher, err := watch.New(args[0], ingestService, documentService,
		watch.WithDebounce(watchDebounce))
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	count, err := watcher.ScanExisting(ctx)
	if err != nil {
		return fmt.Errorf("initial scan failed: %w", err)
	}
	cmd.Printf("Ingested %d existing documents.\n", count)
	cmd.Printf("Watching %s for changes. Press Ctrl-C to stop.\n", args[0])

	if err := watcher.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
		return fmt.Errorf("watch failed: %w", err)
	}

	cmd.Println("Stopped watching.")
	return nil
}
