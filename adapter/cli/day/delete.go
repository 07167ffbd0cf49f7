package day

import (
	"strconv"

	"github.com/spf13/cobra"
)

var deleteCmd = &cobra.Command{
	Use:   "delete <id>",
	Short: "Delete a logged day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireRemote(dayOffline)
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if dayOffline {
			id, err := app.Queuer.QueueDayDelete(ctx, args[0])
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), outcome{Action: "deleted", ID: args[0], Queued: true, QueueID: strconv.FormatInt(id, 10)})
		}

		if err := app.Remote.DeleteDay(ctx, args[0]); err != nil {
			o, err := queuedOutcome("deleted", args[0], err)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), o)
		}
		return report(cmd.OutOrStdout(), outcome{Action: "deleted", ID: args[0]})
	},
}

func init() {
	deleteCmd.Flags().BoolVar(&dayOffline, "offline", false, "queue without trying the network")
}
