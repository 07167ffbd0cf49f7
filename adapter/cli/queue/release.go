package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

var releaseCmd = &cobra.Command{
	Use:   "release <id>",
	Short: "Let the next sync retry a record the data store rejected",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireQueue()
		if err != nil {
			return err
		}
		if app.Held == nil {
			return errors.New("held set not configured")
		}
		id, err := parseID(args[0])
		if err != nil {
			return err
		}

		released, err := app.Held.Release(cmd.Context(), id)
		if err != nil {
			return err
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{"id": id, "released": released})
		}
		if !released {
			fmt.Fprintf(cmd.OutOrStdout(), "Record %d was not held.\n", id)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Record %d released.\n", id)
		return nil
	},
}
