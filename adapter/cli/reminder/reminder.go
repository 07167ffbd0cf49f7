package reminder

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
)

// Cmd is the reminder command group
var Cmd = &cobra.Command{
	Use:   "reminder",
	Short: "Manage the daily logging reminder",
}

var (
	enable   bool
	atTime   string
	weekdays []int
)

func init() {
	Cmd.AddCommand(checkCmd)
	Cmd.AddCommand(settingsCmd)
	Cmd.AddCommand(disableCmd)

	settingsCmd.Flags().BoolVar(&enable, "enable", false, "turn reminders on (--enable=false turns them off)")
	settingsCmd.Flags().StringVar(&atTime, "time", "", "local reminder time, HH:MM")
	settingsCmd.Flags().IntSliceVar(&weekdays, "weekdays", nil, "active weekdays, 0=Sunday..6=Saturday")
}

var checkCmd = &cobra.Command{
	Use:   "check",
	Short: "Evaluate the reminder now and show it when due",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Scheduler == nil {
			return errors.New("reminder scheduler not configured")
		}
		d, err := app.Scheduler.Check(cmd.Context(), reminder.SourceManual)
		if err != nil {
			return err
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(d)
		}
		if d.Fire {
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder shown for %s.\n", d.Date)
			return nil
		}
		fmt.Fprintf(cmd.OutOrStdout(), "No reminder: %s.\n", d.Reason)
		return nil
	},
}

var settingsCmd = &cobra.Command{
	Use:   "settings",
	Short: "Show or change reminder settings",
	Long: `Without flags, print the current settings. With flags, merge them into
the saved settings and check right away.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Reminders == nil {
			return errors.New("reminder settings not configured")
		}
		ctx := cmd.Context()

		settings, err := app.Reminders.Settings(ctx)
		if err != nil {
			return err
		}

		flags := cmd.Flags()
		changed := flags.Changed("enable") || flags.Changed("time") || flags.Changed("weekdays")
		var decision *reminder.Decision
		if changed {
			if flags.Changed("enable") {
				settings.Enabled = enable
			}
			if flags.Changed("time") {
				settings.Time = atTime
			}
			if flags.Changed("weekdays") {
				settings.Weekdays = weekdays
			}
			d, err := app.Reminders.UpdateSettings(ctx, settings)
			if err != nil {
				return err
			}
			decision = &d
			settings = settings.Normalize()
		}

		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]any{
				"settings": settings,
				"decision": decision,
			})
		}
		printSettings(cmd, settings)
		if decision != nil && decision.Fire {
			fmt.Fprintf(cmd.OutOrStdout(), "Reminder shown for %s.\n", decision.Date)
		}
		return nil
	},
}

var disableCmd = &cobra.Command{
	Use:   "disable",
	Short: "Turn reminders off, keeping time and weekdays",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := cli.GetApp()
		if app == nil || app.Reminders == nil {
			return errors.New("reminder settings not configured")
		}
		if err := app.Reminders.Cancel(cmd.Context()); err != nil {
			return err
		}
		fmt.Fprintln(cmd.OutOrStdout(), "Reminders disabled.")
		return nil
	},
}

func printSettings(cmd *cobra.Command, s domain.NotificationSettings) {
	state := "off"
	if s.Enabled {
		state = "on"
	}
	days := make([]string, 0, len(s.Weekdays))
	for _, d := range s.Weekdays {
		days = append(days, strconv.Itoa(d))
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Reminders %s at %s on days %s\n", state, s.Time, strings.Join(days, ","))
}
