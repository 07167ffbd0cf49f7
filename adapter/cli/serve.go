package cli

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/internal/worker"
)

var serveMCP bool

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Run the proxy, background replay and reminders",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Container == nil {
			return errors.New("serve requires a fully initialized container")
		}
		return worker.Run(cmd.Context(), app.Container, worker.Options{MCP: serveMCP})
	},
}

func init() {
	serveCmd.Flags().BoolVar(&serveMCP, "mcp", false, "also serve the MCP tools")
	rootCmd.AddCommand(serveCmd)
}
