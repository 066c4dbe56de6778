package cli

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"
)

var showContent bool

var documentCmd = &cobra.Command{
	Use:   "document",
	Short: "Manage ingested documents",
	Long:  `List, inspect, or delete documents in the knowledge base.`,
}

var documentListCmd = &cobra.Command{
	Use:   "list",
	Short: "List ingested documents",
	RunE:  runDocumentList,
}

var documentShowCmd = &cobra.Command{
	Use:   "show [doc-id]",
	Short: "Show document details",
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentShow,
}

var documentDeleteCmd = &cobra.Command{
	Use:   "delete [doc-id]",
	Short: "Delete a document",
	Long:  `Removes a document, its chunks and its vector index entries.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runDocumentDelete,
}

func init() {
	documentShowCmd.Flags().BoolVar(&showContent, "content", false, "print the full normalised content")
	documentCmd.AddCommand(documentListCmd)
	documentCmd.AddCommand(documentShowCmd)
	documentCmd.AddCommand(documentDeleteCmd)
	rootCmd.AddCommand(documentCmd)
}

func runDocumentList(cmd *cobra.Command, _ []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	documents, err := documentService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list documents: %w", err)
	}

	if len(documents) == 0 {
		cmd.Println("No documents ingested.")
		return nil
	}

	cmd.Printf("Documents (%d):\n", len(documents))
	for _, doc := range documents {
		title := doc.Title
		if title == "" {
			title = "(untitled)"
		}
		cmd.Printf("  %s\n", doc.ID)
		cmd.Printf("    Title:    %s\n", title)
		cmd.Printf("    Format:   %s\n", doc.Format)
		cmd.Printf("    Ingested: %s\n", doc.UpdatedAt.Format("2006-01-02 15:04:05"))
	}
	return nil
}

func runDocumentShow(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	docID := args[0]
	ctx := context.Background()

	details, err := documentService.GetDetails(ctx, docID)
	if err != nil {
		return fmt.Errorf("failed to get document: %w", err)
	}

	cmd.Printf("Document: %s\n", details.ID)
	cmd.Printf("  Title:   %s\n", details.Title)
	cmd.Printf("  Format:  %s\n", details.Format)
	if details.URI != "" {
		cmd.Printf("  URI:     %s\n", details.URI)
	}
	cmd.Printf("  Chunks:  %d\n", details.ChunkCount)
	cmd.Printf("  Created: %s\n", details.CreatedAt.Format("2006-01-02 15:04:05"))
	cmd.Printf("  Updated: %s\n", details.UpdatedAt.Format("2006-01-02 15:04:05"))

	if len(details.Metadata) > 0 {
		cmd.Println("  Metadata:")
		keys := make([]string, 0, len(details.Metadata))
		for k := range details.Metadata {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("    %s: %s\n", k, details.Metadata[k])
		}
	}

	if showContent {
		content, err := documentService.GetContent(ctx, docID)
		if err != nil {
			return fmt.Errorf("failed to get document content: %w", err)
		}
		cmd.Println()
		cmd.Println(content)
	}
	return nil
}

func runDocumentDelete(cmd *cobra.Command, args []string) error {
	if documentService == nil {
		return errors.New("document service not configured")
	}

	ctx := context.Background()
	if err := documentService.Delete(ctx, args[0]); err != nil {
		return fmt.Errorf("failed to delete document: %w", err)
	}

	cmd.Printf("Document %s deleted.\n", args[0])
	return nil
}
