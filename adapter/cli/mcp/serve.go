package mcp

import (
	"context"
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	mcpinternal "github.com/felixgeelhaar/logmyjob/internal/mcp"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Start the MCP server without the proxy or background replay",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Container == nil {
			return errors.New("mcp serve requires a fully initialized container")
		}
		container := app.Container

		err := mcpinternal.Serve(cmd.Context(), container.Config, mcpinternal.ToolDependencies(container), container.Logger)
		if err != nil && !errors.Is(err, context.Canceled) {
			return err
		}
		return nil
	},
}
