package vacation

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

var (
	addFrom string
	addTo   string
	addType string
)

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Add a vacation window",
	Example: `  logmyjob vacation add --from 2026-08-03 --to 2026-08-21
  logmyjob vacation add --from 2026-11-11 --type holiday`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireVacations()
		if err != nil {
			return err
		}
		if addFrom == "" {
			return errors.New("missing --from")
		}
		to := addTo
		if to == "" {
			to = addFrom
		}

		w, err := app.Vacations.Add(cmd.Context(), domain.VacationWindow{
			DateStart: addFrom,
			DateEnd:   to,
			Type:      addType,
		})
		if err != nil {
			return err
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(w)
		}
		fmt.Fprintf(cmd.OutOrStdout(), "Added %s %s..%s (%s)\n", w.Type, w.DateStart, w.DateEnd, w.ID)
		return nil
	},
}

func init() {
	addCmd.Flags().StringVar(&addFrom, "from", "", "first day, YYYY-MM-DD")
	addCmd.Flags().StringVar(&addTo, "to", "", "last day, YYYY-MM-DD (defaults to --from)")
	addCmd.Flags().StringVar(&addType, "type", vacation.TypeVacation, "vacation, sick, holiday or other")
}
