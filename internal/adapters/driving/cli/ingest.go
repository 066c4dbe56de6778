package cli

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

var (
	ingestText  string
	ingestTitle string
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]...",
	Short: "Ingest documents into the knowledge base",
	Long: `Ingests files into the knowledge base so their content can be
retrieved when answering questions. Directories are ingested one level
deep; hidden files are skipped.

Re-ingesting the same file replaces its previous version.

Use --text to ingest literal text instead of files.`,
	RunE: runIngest,
}

func init() {
	ingestCmd.Flags().StringVar(&ingestText, "text", "", "ingest literal text instead of files")
	ingestCmd.Flags().StringVar(&ingestTitle, "title", "", "document title (defaults to the file name)")
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	if ingestService == nil {
		return errors.New("ingest service not configured")
	}
	if ingestText == "" && len(args) == 0 {
		return errors.New("provide at least one path or --text")
	}

	ctx := context.Background()

	if ingestText != "" {
		receipt, err := ingestService.Ingest(ctx, domain.IngestRequest{
			Format:  "text/plain",
			Title:   ingestTitle,
			Content: []byte(ingestText),
		})
		if err != nil {
			return fmt.Errorf("ingest failed: %w", err)
		}
		printReceipt(cmd, displayTitle(ingestTitle, "(text)"), receipt)
	}

	for _, path := range args {
		if err := ingestPath(ctx, cmd, path); err != nil {
			return err
		}
	}

	return nil
}

// ingestPath ingests a single file, or the visible files one level deep
// when path is a directory. Failures inside a directory are reported and
// skipped; a failure on an explicitly named file aborts.
func ingestPath(ctx context.Context, cmd *cobra.Command, path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	if !info.IsDir() {
		return ingestOneFile(ctx, cmd, path)
	}

	entries, err := os.ReadDir(path)
	if err != nil {
		return fmt.Errorf("failed to read directory %s: %w", path, err)
	}
	for _, entry := range entries {
		if entry.IsDir() || strings.HasPrefix(entry.Name(), ".") {
			continue
		}
		file := filepath.Join(path, entry.Name())
		if err := ingestOneFile(ctx, cmd, file); err != nil {
			cmd.Printf("Skipping %s: %v\n", file, err)
		}
	}
	return nil
}

func ingestOneFile(ctx context.Context, cmd *cobra.Command, path string) error {
	content, err := os.ReadFile(path)
	if err != nil {
		var pathErr *fs.PathError
		if errors.As(err, &pathErr) {
			return fmt.Errorf("failed to read %s: %w", path, pathErr.Err)
		}
		return fmt.Errorf("failed to read %s: %w", path, err)
	}

	receipt, err := ingestService.Ingest(ctx, domain.IngestRequest{
		DocumentID: documentIDForPath(path),
		URI:        path,
		Title:      displayTitle(ingestTitle, filepath.Base(path)),
		Content:    content,
	})
	if err != nil {
		return fmt.Errorf("failed to ingest %s: %w", path, err)
	}

	printReceipt(cmd, path, receipt)
	return nil
}

func printReceipt(cmd *cobra.Command, label string, receipt *domain.IngestReceipt) {
	verb := "Ingested"
	if receipt.Replaced {
		verb = "Replaced"
	}
	cmd.Printf("%s %s: %d chunks (document %s)\n", verb, label, receipt.ChunkCount, receipt.DocumentID)
}

func displayTitle(override, fallback string) string {
	if override != "" {
		return override
	}
	return fallback
}

// documentIDForPath derives a stable document ID from the absolute file
// path, so re-ingesting a file replaces its prior version. The watch
// command uses the same derivation.
func documentIDForPath(path string) string {
	abs, err := filepath.Abs(path)
	if err != nil {
		abs = filepath.Clean(path)
	}
	sum := sha256.Sum256([]byte(abs))
	return hex.EncodeToString(sum[:])
}
