package day

import (
	"errors"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/internal/remote"
)

var (
	dayDate    string
	dayClient  string
	dayHalf    bool
	dayNotes   string
	dayOffline bool
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Log a workday",
	Example: `  logmyjob day add --client Acme
  logmyjob day add --date 2026-03-10 --client Acme --half --offline`,
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
			id, err := app.Queuer.QueueDayCreate(ctx, d)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), outcome{Action: "created", Queued: true, QueueID: strconv.FormatInt(id, 10)})
		}

		created, err := app.Remote.CreateDay(ctx, d)
		if err != nil {
			o, err := queuedOutcome("created", "", err)
			if err != nil {
				return err
			}
			return report(cmd.OutOrStdout(), o)
		}
		return report(cmd.OutOrStdout(), outcome{Action: "created", ID: created.ID, Day: &created})
	},
}

// dayFromFlags builds a day from the shared flags. The date defaults to today.
func dayFromFlags() (remote.Day, error) {
	if dayClient == "" {
		return remote.Day{}, errors.New("missing --client")
	}
	date := dayDate
	if date == "" {
		date = time.Now().Format(time.DateOnly)
	}
	if _, err := time.Parse(time.DateOnly, date); err != nil {
		return remote.Day{}, errors.New("invalid --date, want YYYY-MM-DD")
	}

	d := remote.Day{Date: date, Client: dayClient, Duration: remote.DurationFullDay}
	if dayHalf {
		d.Duration = remote.DurationHalfDay
	}
	if dayNotes != "" {
		notes := dayNotes
		d.Notes = &notes
	}
	return d, nil
}

func dayFlags(cmd *cobra.Command) {
	cmd.Flags().StringVar(&dayDate, "date", "", "day, YYYY-MM-DD (defaults to today)")
	cmd.Flags().StringVar(&dayClient, "client", "", "client name")
	cmd.Flags().BoolVar(&dayHalf, "half", false, "half day instead of a full day")
	cmd.Flags().StringVar(&dayNotes, "notes", "", "free-form notes")
	cmd.Flags().BoolVar(&dayOffline, "offline", false, "queue without trying the network")
}

func init() {
	dayFlags(addCmd)
}
