package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

var (
	recommendCategory string
	recommendBudget   int
)

var modelsCmd = &cobra.Command{
	Use:   "models",
	Short: "Manage the model registry",
	Long: `Lists registered models with their routing attributes and observed
performance. Deactivated models are never routed to.`,
	RunE: runModelsList,
}

var modelsEnableCmd = &cobra.Command{
	Use:   "enable [model]",
	Short: "Activate a model for routing",
	Args:  cobra.ExactArgs(1),
	RunE:  runModelsEnable,
}

var modelsDisableCmd = &cobra.Command{
	Use:   "disable [model]",
	Short: "Deactivate a model",
	Long: `Deactivates a model so the router skips it. Stats are kept and the
model can be re-enabled later.`,
	Args: cobra.ExactArgs(1),
	RunE: runModelsDisable,
}

var modelsRecommendCmd = &cobra.Command{
	Use:   "recommend",
	Short: "Show which model the router would pick",
	RunE:  runModelsRecommend,
}

func init() {
	modelsRecommendCmd.Flags().StringVarP(&recommendCategory, "category", "c",
		string(domain.CategoryGeneralChat), "model category to route for")
	modelsRecommendCmd.Flags().IntVarP(&recommendBudget, "budget", "b", 0,
		"maximum model cost (0 = unconstrained)")
	modelsCmd.AddCommand(modelsEnableCmd)
	modelsCmd.AddCommand(modelsDisableCmd)
	modelsCmd.AddCommand(modelsRecommendCmd)
	rootCmd.AddCommand(modelsCmd)
}

func runModelsList(cmd *cobra.Command, _ []string) error {
	if modelsService == nil {
		return errors.New("models service not configured")
	}

	ctx := context.Background()
	snapshots, err := modelsService.List(ctx)
	if err != nil {
		return fmt.Errorf("failed to list models: %w", err)
	}

	if len(snapshots) == 0 {
		cmd.Println("No models registered.")
		return nil
	}

	cmd.Printf("%-16s %-10s %-18s %5s %-8s %6s %8s %9s\n",
		"NAME", "PROVIDER", "CATEGORY", "COST", "ACTIVE", "CALLS", "SUCCESS", "LATENCY")
	for _, snap := range snapshots {
		d := snap.Descriptor
		cmd.Printf("%-16s %-10s %-18s %5d %-8s %6d %8s %9s\n",
			d.Name, d.Provider, d.Category, d.Cost, activeLabel(d.Active),
			snap.Stats.Invocations(), successLabel(snap.Stats), latencyLabel(snap.Stats))
	}
	return nil
}

func runModelsEnable(cmd *cobra.Command, args []string) error {
	return setModelActive(cmd, args[0], true)
}

func runModelsDisable(cmd *cobra.Command, args []string) error {
	return setModelActive(cmd, args[0], false)
}

func setModelActive(cmd *cobra.Command, name string, active bool) error {
	if modelsService == nil {
		return errors.New("models service not configured")
	}

	ctx := context.Background()
	if err := modelsService.SetActive(ctx, name, active); err != nil {
		if active {
			return fmt.Errorf("failed to enable model %s: %w", name, err)
		}
		return fmt.Errorf("failed to disable model %s: %w", name, err)
	}

	if active {
		cmd.Printf("Model %s enabled.\n", name)
	} else {
		cmd.Printf("Model %s disabled.\n", name)
	}
	return nil
}

func runModelsRecommend(cmd *cobra.Command, _ []string) error {
	if modelRouter == nil {
		return errors.New("model router not configured")
	}

	category := domain.ModelCategory(recommendCategory)
	if !category.IsValid() {
		return domain.Errorf(domain.CodeInvalidInput,
			"unknown category %q (expected one of %v)", recommendCategory, domain.AllModelCategories())
	}

	ctx := context.Background()
	descriptor, err := modelRouter.Recommend(ctx, category, recommendBudget)
	if err != nil {
		return fmt.Errorf("no model available: %w", err)
	}

	cmd.Printf("Recommended: %s (%s, %s, cost %d)\n",
		descriptor.Name, descriptor.Provider, descriptor.Category, descriptor.Cost)
	return nil
}

func activeLabel(active bool) string {
	if active {
		return "yes"
	}
	return "no"
}

// successLabel formats the success rate, or a dash for models that have
// never been invoked (their nominal rate of 1.0 would mislead here).
func successLabel(stats domain.ModelStats) string {
	if stats.Invocations() == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0f%%", stats.SuccessRate()*100)
}

func latencyLabel(stats domain.ModelStats) string {
	if stats.Invocations() == 0 {
		return "-"
	}
	return fmt.Sprintf("%.0fms", stats.LatencyEWMAMs)
}
