package vacation

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List vacation windows by start date",
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
		if cli.JSONOutput() {
			if windows == nil {
				windows = []domain.VacationWindow{}
			}
			return json.NewEncoder(cmd.OutOrStdout()).Encode(windows)
		}
		if len(windows) == 0 {
			fmt.Fprintln(cmd.OutOrStdout(), "No vacations.")
			return nil
		}

		current, onVacation, err := app.Vacations.Current(ctx, time.Now().Format(domain.DateLayout))
		if err != nil {
			return err
		}
		for _, w := range windows {
			marker := ""
			if onVacation && w.ID == current.ID {
				marker = " (now)"
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s  %s..%s  %-8s%s\n", w.ID, w.DateStart, w.DateEnd, w.Type, marker)
		}
		return nil
	},
}
