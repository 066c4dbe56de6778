package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

var (
	askNoRAG    bool
	askModel    string
	askTopK     int
	askBudget   int
	askCategory string
	askJSON     bool
)

var askCmd = &cobra.Command{
	Use:   "ask [question]",
	Short: "Ask a question grounded in the knowledge base",
	Long: `Answers a question using retrieved document context. The answer cites
the documents it drew from, with similarity scores.

Use --no-rag to ask the model directly without retrieval, and --model to
bypass routing and force a specific model.`,
	Args: cobra.ExactArgs(1),
	RunE: runAsk,
}

func init() {
	askCmd.Flags().BoolVar(&askNoRAG, "no-rag", false, "answer without document retrieval")
	askCmd.Flags().StringVarP(&askModel, "model", "m", "", "force a specific model, bypassing routing")
	askCmd.Flags().IntVarP(&askTopK, "top-k", "k", 0, "number of chunks to retrieve (0 = configured default)")
	askCmd.Flags().IntVar(&askBudget, "budget", 0, "maximum model cost for routing (0 = configured default)")
	askCmd.Flags().StringVar(&askCategory, "category", "", "model category for routing")
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output the answer as JSON")
	rootCmd.AddCommand(askCmd)
}

func runAsk(cmd *cobra.Command, args []string) error {
	if queryService == nil {
		return errors.New("query service not configured")
	}

	var category domain.ModelCategory
	if askCategory != "" {
		category = domain.ModelCategory(askCategory)
		if !category.IsValid() {
			return domain.Errorf(domain.CodeInvalidInput,
				"unknown category %q (expected one of %v)", askCategory, domain.AllModelCategories())
		}
	}

	ctx := context.Background()
	answer, err := queryService.Answer(ctx, domain.QueryRequest{
		Query:          args[0],
		UseRAG:         !askNoRAG,
		ModelOverride:  askModel,
		Category:       category,
		ResourceBudget: askBudget,
		TopK:           askTopK,
	})
	if err != nil {
		return fmt.Errorf("query failed: %w", err)
	}

	if askJSON {
		return outputAnswerJSON(cmd, answer)
	}

	return outputAnswerText(cmd, answer)
}

func outputAnswerJSON(cmd *cobra.Command, answer *domain.Answer) error {
	data, err := json.MarshalIndent(answer, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal answer: %w", err)
	}
	cmd.Println(string(data))
	return nil
}

func outputAnswerText(cmd *cobra.Command, answer *domain.Answer) error {
	cmd.Println(answer.Text)
	cmd.Println()
	cmd.Printf("Model: %s  Confidence: %.2f\n", answer.ModelUsed, answer.Confidence)

	if !answer.RAGUsed {
		cmd.Println("(answered without retrieval)")
		return nil
	}

	if len(answer.Sources) == 0 {
		cmd.Println("No sources matched the question.")
		return nil
	}

	cmd.Println("Sources:")
	for i, src := range answer.Sources {
		title := src.Title
		if title == "" {
			title = src.DocumentID
		}
		cmd.Printf("  [%d] %s (%.2f)\n", i+1, title, src.Score)
		if src.Excerpt != "" {
			cmd.Printf("      %s\n", src.Excerpt)
		}
	}
	return nil
}
