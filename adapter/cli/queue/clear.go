package queue

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

var confirm bool

var clearCmd = &cobra.Command{
	Use:   "clear",
	Short: "Delete every pending mutation without replaying it",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireQueue()
		if err != nil {
			return err
		}
		if !confirm {
			return errors.New("refusing to clear the queue without --yes")
		}
		ctx := cmd.Context()

		n, err := app.Queue.Count(ctx)
		if err != nil {
			return err
		}
		if err := app.Queue.Clear(ctx); err != nil {
			return err
		}
		if app.Held != nil {
			if _, err := app.Held.Prune(ctx, map[int64]bool{}); err != nil {
				return err
			}
		}

		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"cleared": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d mutation(s).\n", n)
		return nil
	},
}

func init() {
	clearCmd.Flags().BoolVarP(&confirm, "yes", "y", false, "confirm deletion")
}
