package vacation

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/vacation/caldav"
)

var exportICS bool

var exportCmd = &cobra.Command{
	Use:   "export",
	Short: "Publish vacation windows to the CalDAV calendar",
	Long: `Write every vacation window to the configured CalDAV calendar, or with
--ics print them as iCalendar to stdout.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireVacations()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		windows, err := app.Vacations.List(ctx)
		if err != nil {
			return err
		}

		if exportICS {
			return writeICS(cmd.OutOrStdout(), windows)
		}
		if app.Importer == nil {
			return errors.New("CalDAV not configured; set CALDAV_URL or use --ics")
		}
		n, err := app.Importer.Export(ctx, windows)
		if err != nil {
			return err
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"exported": n})
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Exported %d vacation(s).\n", n)
		return nil
	},
}

func writeICS(out io.Writer, windows []domain.VacationWindow) error {
	feed := caldav.ToFeed(windows, time.Now())
	if len(feed.Children) == 0 {
		return errors.New("no vacations to export")
	}
	ics, err := caldav.Encode(feed)
	if err != nil {
		return err
	}
	_, err = io.WriteString(out, ics)
	return err
}

func init() {
	exportCmd.Flags().BoolVar(&exportICS, "ics", false, "print iCalendar instead of publishing")
}
