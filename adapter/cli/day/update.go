package day

import (
	"strconv"

	"github.com/spf13/cobra"
)

var updateCmd = &cobra.Command{
	Use:   "update <id>",
	Short: "Replace the fields of a logged day",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireRemote(dayOffline)
		if err != nil {
			return err
		}
		d, err := dayFromFlags()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		if dayOffline {
			id, err := app.Queuer.QueueDayUpdate(ctx, args[0], d)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), outcome{Action: "updated", ID: args[0], Queued: true, QueueID: strconv.FormatInt(id, 10)})
		}

		updated, err := app.Remote.UpdateDay(ctx, args[0], d)
		if err != nil {
			o, err := queuedOutcome("updated", args[0], err)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), o)
		}
		return report(cmd.OutOrStdout(), outcome{Action: "updated", ID: updated.ID, Day: &updated})
	},
}

func init() {
	dayFlags(updateCmd)
}
