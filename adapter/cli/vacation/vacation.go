package vacation

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

// Cmd is the vacation command group
var Cmd = &cobra.Command{
	Use:   "vacation",
	Short: "Manage vacation windows",
	Long:  `Days inside a vacation window never trigger the daily reminder.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(removeCmd)
	Cmd.AddCommand(importCmd)
	Cmd.AddCommand(exportCmd)
}

func requireVacations() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Vacations == nil {
		return nil, errors.New("vacation service not configured")
	}
	return app, nil
}
