package cli

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/term"

	"github.com/arcanum-labs/grimoire/internal/core/domain"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Manage configuration",
	Long: `Inspect and change configuration values.

Keys use dotted paths matching the configuration file, for example
embedding.provider, vector.backend or retrieval.top_k. API keys are
prompted for without echo when no value is given.`,
}

var configListCmd = &cobra.Command{
	Use:   "list",
	Short: "Show the effective configuration",
	RunE:  runConfigList,
}

var configGetCmd = &cobra.Command{
	Use:   "get [key]",
	Short: "Print a configuration value",
	Args:  cobra.ExactArgs(1),
	RunE:  runConfigGet,
}

var configSetCmd = &cobra.Command{
	Use:   "set [key] [value]",
	Short: "Set a configuration value",
	Long: `Sets a configuration value and persists it immediately. Values are
stored as booleans or numbers when they parse as such, otherwise as
strings.

For API key settings the value may be omitted; it is then read from the
terminal without echo.`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runConfigSet,
}

var configValidateCmd = &cobra.Command{
	Use:   "validate",
	Short: "Check configuration and backend connectivity",
	Long: `Checks that the configuration is internally consistent, then pings the
configured embedding and generation backends.`,
	RunE: runConfigValidate,
}

func init() {
	configCmd.AddCommand(configListCmd)
	configCmd.AddCommand(configGetCmd)
	configCmd.AddCommand(configSetCmd)
	configCmd.AddCommand(configValidateCmd)
	rootCmd.AddCommand(configCmd)
}

func runConfigList(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	if configStore != nil {
		cmd.Printf("Configuration (%s):\n", configStore.Path())
	} else {
		cmd.Println("Configuration:")
	}

	cmd.Println("  Embedding:")
	cmd.Printf("    Provider:   %s\n", settings.Embedding.Provider)
	cmd.Printf("    Model:      %s\n", settings.Embedding.Model)
	if settings.Embedding.BaseURL != "" {
		cmd.Printf("    Base URL:   %s\n", settings.Embedding.BaseURL)
	}
	if settings.Embedding.APIKey != "" {
		cmd.Printf("    API key:    %s\n", maskAPIKey(settings.Embedding.APIKey))
	}
	cmd.Printf("    Cache size: %d\n", settings.Embedding.CacheSize)
	if settings.Embedding.RateLimit > 0 {
		cmd.Printf("    Rate limit: %.1f req/s (burst %d)\n",
			settings.Embedding.RateLimit, settings.Embedding.RateBurst)
	}

	cmd.Println("  Vector store:")
	cmd.Printf("    Backend:    %s\n", settings.VectorStore.Backend)
	cmd.Printf("    Dimensions: %d\n", settings.VectorStore.Dimensions)
	switch settings.VectorStore.Backend {
	case domain.VectorBackendMilvus:
		cmd.Printf("    Address:    %s\n", settings.VectorStore.Address)
		cmd.Printf("    Collection: %s\n", settings.VectorStore.Collection)
	case domain.VectorBackendPgvector:
		cmd.Printf("    Table:      %s\n", settings.VectorStore.Collection)
	}

	cmd.Println("  Retrieval:")
	cmd.Printf("    Top K:          %d\n", settings.Retrieval.TopK)
	cmd.Printf("    Min similarity: %.2f\n", settings.Retrieval.MinSimilarity)
	cmd.Printf("    Context budget: %d chars\n", settings.Retrieval.ContextBudget)

	cmd.Println("  Routing:")
	cmd.Printf("    Default category: %s\n", settings.Routing.DefaultCategory)
	cmd.Printf("    Default budget:   %s\n", budgetLabel(settings.Routing.DefaultBudget))

	cmd.Println("  Generation:")
	for _, provider := range sortedProviders(settings.Providers) {
		conn := settings.Providers[provider]
		line := string(provider)
		if conn.BaseURL != "" {
			line += " at " + conn.BaseURL
		}
		if conn.APIKey != "" {
			line += " (key " + maskAPIKey(conn.APIKey) + ")"
		}
		cmd.Printf("    Provider: %s\n", line)
	}
	cmd.Printf("    Temperature: %.2f\n", settings.Generation.Temperature)
	if settings.Generation.MaxTokens > 0 {
		cmd.Printf("    Max tokens:  %d\n", settings.Generation.MaxTokens)
	}
	cmd.Printf("    Timeout:     %ds\n", settings.Generation.TimeoutSeconds)

	return nil
}

func runConfigGet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]
	value, ok := configStore.Get(key)
	if !ok {
		return fmt.Errorf("key %q is not set", key)
	}

	if isSecretKey(key) {
		if s, isString := value.(string); isString {
			cmd.Println(maskAPIKey(s))
			return nil
		}
	}
	cmd.Printf("%v\n", value)
	return nil
}

func runConfigSet(cmd *cobra.Command, args []string) error {
	if configStore == nil {
		return errors.New("config store not configured")
	}

	key := args[0]

	var value any
	if len(args) == 2 {
		value = parseConfigValue(args[1])
	} else {
		if !isSecretKey(key) {
			return fmt.Errorf("no value given for %q", key)
		}
		cmd.Printf("Enter value for %s: ", key)
		secret, err := readPassword()
		if err != nil {
			return fmt.Errorf("failed to read value: %w", err)
		}
		if secret == "" {
			return errors.New("empty value")
		}
		value = secret
	}

	if err := configStore.Set(key, value); err != nil {
		return fmt.Errorf("failed to set %s: %w", key, err)
	}

	if isSecretKey(key) {
		if s, isString := value.(string); isString {
			cmd.Printf("Set %s = %s\n", key, maskAPIKey(s))
			return nil
		}
	}
	cmd.Printf("Set %s = %v\n", key, value)
	return nil
}

func runConfigValidate(cmd *cobra.Command, _ []string) error {
	if settingsService == nil {
		return errors.New("settings service not configured")
	}

	settings, err := settingsService.Get()
	if err != nil {
		return fmt.Errorf("failed to load settings: %w", err)
	}

	cmd.Println("Validating configuration...")
	failures := 0

	cmd.Print("  Settings: ")
	if err := settingsService.Validate(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failures++
	} else {
		cmd.Println("OK")
	}

	cmd.Printf("  Embedding (%s/%s): ", settings.Embedding.Provider, settings.Embedding.Model)
	if err := settingsService.ValidateEmbeddingConfig(); err != nil {
		cmd.Printf("FAILED: %v\n", err)
		failures++
	} else {
		cmd.Println("OK")
	}

	for _, provider := range sortedProviders(settings.Providers) {
		cmd.Printf("  Generation (%s): ", provider)
		if err := settingsService.ValidateGenerationConfig(provider); err != nil {
			cmd.Printf("FAILED: %v\n", err)
			failures++
		} else {
			cmd.Println("OK")
		}
	}

	if failures > 0 {
		return fmt.Errorf("configuration has %d problem(s)", failures)
	}
	cmd.Println("Configuration is valid.")
	return nil
}

// parseConfigValue converts a CLI argument to the most specific type it
// parses as. Integers are tried before booleans so "1" stays numeric.
func parseConfigValue(raw string) any {
	if v, err := strconv.ParseInt(raw, 10, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseFloat(raw, 64); err == nil {
		return v
	}
	if v, err := strconv.ParseBool(raw); err == nil {
		return v
	}
	return raw
}

// isSecretKey reports whether a config key holds a credential.
func isSecretKey(key string) bool {
	return strings.HasSuffix(key, "api_key")
}

// readPassword reads a value from stdin without echoing it. Falls back
// to plain line reading when stdin is not a terminal (pipes, tests).
func readPassword() (string, error) {
	fd := int(os.Stdin.Fd())
	if term.IsTerminal(fd) {
		raw, err := term.ReadPassword(fd)
		fmt.Println()
		if err != nil {
			return "", err
		}
		return strings.TrimSpace(string(raw)), nil
	}

	reader := bufio.NewReader(os.Stdin)
	line, err := reader.ReadString('\n')
	if err != nil && !errors.Is(err, io.EOF) {
		return "", err
	}
	return strings.TrimSpace(line), nil
}

// maskAPIKey hides the middle of an API key for display.
func maskAPIKey(key string) string {
	if len(key) <= 8 {
		return "****"
	}
	return key[:4] + "..." + key[len(key)-4:]
}

func budgetLabel(budget int) string {
	if budget <= 0 {
		return "unconstrained"
	}
	return strconv.Itoa(budget)
}

func sortedProviders(providers map[domain.AIProvider]domain.ProviderSettings) []domain.AIProvider {
	names := make([]domain.AIProvider, 0, len(providers))
	for provider := range providers {
		names = append(names, provider)
	}
	sort.Slice(names, func(i, j int) bool { return names[i] < names[j] })
	return names
}
