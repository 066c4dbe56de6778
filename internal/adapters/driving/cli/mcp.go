package cli

import (
	"github.com/spf13/cobra"

	"github.com/arcanum-labs/grimoire/internal/adapters/driving/mcp"
)

var mcpHTTPAddr string

var mcpCmd = &cobra.Command{
	Use:   "mcp",
	Short: "Start the MCP server",
	Long: `Start the Model Context Protocol server for AI assistant integration.

By default the server communicates over stdio using JSON-RPC and can be
used with Claude Desktop and other MCP-compatible assistants. Use --http
to serve over HTTP instead, for MCP Inspector or remote access.

Examples:
  # Stdio mode (default)
  grimoire mcp

  # HTTP mode
  grimoire mcp --http :8080

Claude Desktop configuration (claude_desktop_config.json):
  {
    "mcpServers": {
      "grimoire": {
        "command": "/path/to/grimoire",
        "args": ["mcp"]
      }
    }
  }`,
	RunE: runMCP,
}

func init() {
	mcpCmd.Flags().StringVar(&mcpHTTPAddr, "http", "", "serve over HTTP on this address instead of stdio")
	rootCmd.AddCommand(mcpCmd)
}

func runMCP(cmd *cobra.Command, _ []string) error {
	ports := &mcp.Ports{
		Query:    queryService,
		Ingest:   ingestService,
		Models:   modelsService,
		Document: documentService,
	}

	server, err := mcp.NewServer(ports)
	if err != nil {
		return err
	}

	if mcpHTTPAddr != "" {
		cmd.Printf("MCP server listening on %s\n", mcpHTTPAddr)
		return server.RunHTTP(cmd.Context(), mcpHTTPAddr)
	}

	return server.Run(cmd.Context())
}
