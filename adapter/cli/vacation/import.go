package vacation

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/security"
	"github.com/felixgeelhaar/logmyjob/internal/vacation/caldav"
)

var (
	importFile  string
	importFrom  string
	importTo    string
	importTimed bool
)

var importCmd = &cobra.Command{
	Use:   "import",
	Short: "Import absences from an .ics file or the CalDAV calendar",
	Long: `Import all-day events as vacation windows. Events that overlap an
existing window are skipped.

With --file the events are read from an iCalendar file, otherwise from the
configured CalDAV calendar between --from and --to.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireVacations()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		var res caldav.Result
		if importFile != "" {
			f, err := security.SafeOpen(importFile)
			if err != nil {
				return err
			}
			defer f.Close()

			importer := app.Importer
			if importer == nil {
				importer = caldav.NewImporter("", "", "", nil)
			}
			res, err = importer.WithTimedEvents(importTimed).ImportFile(ctx, app.Vacations, f)
			if err != nil {
				return err
			}
		} else {
			if app.Importer == nil {
				return errors.New("CalDAV not configured; set CALDAV_URL or use --file")
			}
			from, to, err := importRange()
			if err != nil {
				return err
			}
			res, err = app.Importer.WithTimedEvents(importTimed).Import(ctx, app.Vacations, from, to)
			if err != nil {
				return err
			}
		}

		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(res)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Imported %d, skipped %d, failed %d.\n", res.Added, res.Skipped, res.Failed)
		return nil
	},
}

// importRange defaults to the current year.
func importRange() (time.Time, time.Time, error) {
	now := time.Now()
	from := time.Date(now.Year(), 1, 1, 0, 0, 0, 0, time.Local)
	to := from.AddDate(1, 0, 0)
	if importFrom != "" {
		t, err := time.ParseInLocation(domain.DateLayout, importFrom, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --from: %w", err)
		}
		from = t
	}
	if importTo != "" {
		t, err := time.ParseInLocation(domain.DateLayout, importTo, time.Local)
		if err != nil {
			return from, to, fmt.Errorf("invalid --to: %w", err)
		}
		to = t.AddDate(0, 0, 1)
	}
	if !to.After(from) {
		return from, to, errors.New("--to must not be before --from")
	}
	return from, to, nil
}

func init() {
	importCmd.Flags().StringVarP(&importFile, "file", "f", "", "iCalendar file to read")
	importCmd.Flags().StringVar(&importFrom, "from", "", "first day to fetch from CalDAV, YYYY-MM-DD")
	importCmd.Flags().StringVar(&importTo, "to", "", "last day to fetch from CalDAV, YYYY-MM-DD")
	importCmd.Flags().BoolVar(&importTimed, "timed", false, "also import events with a time of day")
}
