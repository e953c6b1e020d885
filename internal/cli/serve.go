package cli

import (
	"github.com/spf13/cobra"

	"github.com/lumera-labs/cascade-memory/internal/mcp"
)

// Version is stamped at build time.
var Version = "0.1.0"

func init() {
	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Serve the memory tools over MCP stdio",
		Run:   runServe,
	}

	RootCmd.AddCommand(cmd)
}

func runServe(cmd *cobra.Command, args []string) {
	pipe, cleanup, err := openPipeline()
	if err != nil {
		exitErr("open pipeline", err)
	}
	defer cleanup()

	srv := mcp.NewServer(pipe, Version, newLogger())
	if err := srv.ServeStdio(); err != nil {
		exitErr("serve", err)
	}
}
