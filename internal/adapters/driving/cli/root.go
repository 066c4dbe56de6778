// Package cli implements the grimoire command line interface.
//
// Commands are thin adapters over the driving ports: they parse flags,
// call a service and format the result. The composition root injects
// service implementations via SetServices before Execute runs.
package cli

import (
	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/core/ports/driven"
	"github.com/arcanum-labs/grimoire/internal/core/ports/driving"
	"github.com/arcanum-labs/grimoire/internal/logger"
)

// version is overridden at build time via -ldflags.
var version = "dev"

// Services injected by the composition root. Commands nil-check the
// ones they need so a partially wired binary fails with a clear message
// instead of a panic.
var (
	ingestService   driving.IngestService
	queryService    driving.QueryService
	modelsService   driving.ModelsService
	modelRouter     driving.ModelRouter
	documentService driving.DocumentService
	settingsService driving.SettingsService
	configStore     driven.ConfigStore
)

var verbose bool

var rootCmd = &cobra.Command{
	Use:   "grimoire",
	Short: "Local-first document Q&A with model routing",
	Long: `Grimoire ingests documents into a local knowledge base and answers
questions grounded in them, with citations back to the source documents.
A model router picks the cheapest capable model for each request based
on category, cost and observed performance.`,
	SilenceUsage: true,
	PersistentPreRun: func(_ *cobra.Command, _ []string) {
		logger.SetVerbose(verbose)
	},
}

// Services groups the implementations the CLI commands depend on.
type Services struct {
	Ingest   driving.IngestService
	Query    driving.QueryService
	Models   driving.ModelsService
	Router   driving.ModelRouter
	Document driving.DocumentService
	Settings driving.SettingsService
	Config   driven.ConfigStore
}

// SetServices wires service implementations into the commands.
func SetServices(s Services) {
	ingestService = s.Ingest
	queryService = s.Query
	modelsService = s.Models
	modelRouter = s.Router
	documentService = s.Document
	settingsService = s.Settings
	configStore = s.Config
}

// SetVersion sets the version string reported by the version command.
func SetVersion(v string) {
	if v != "" {
		version = v
	}
}

func init() {
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")
}

// Execute runs the root command.
func Execute() error {
	return rootCmd.Execute()
}
