package queue

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

var dropCmd = &cobra.Command{
	Use:   "drop <id>",
	Short: "Delete one pending mutation without replaying it",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireQueue()
		if err != nil {
			return err
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if err := app.Queue.Remove(ctx, id); err != nil {
			return err
		}
		if app.Held != nil {
			if _, err := app.Held.Release(ctx, id); err != nil {
				return err
			}
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"id": id, "dropped": true})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %d dropped.\n", id)
		return nil
	},
}
