package queue

import (
	"encoding/json"
	"errors"
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

// Cmd is the queue command group
var Cmd = &cobra.Command{
	Use:   "queue",
	Short: "Inspect and manage the offline queue",
	Long:  `Count, list, release, drop or clear mutations waiting for replay.`,
}

func init() {
	Cmd.AddCommand(countCmd)
	Cmd.AddCommand(listCmd)
	Cmd.AddCommand(clearCmd)
	Cmd.AddCommand(releaseCmd)
	Cmd.AddCommand(dropCmd)
}

var countCmd = &cobra.Command{
	Use:   "count",
	Short: "Print the number of pending mutations",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireQueue()
		if err != nil {
			return err
		}
		n, err := app.Queue.Count(cmd.Context())
		if err != nil {
			return err
		}
		if cli.JSONOutput() {
			return json.NewEncoder(cmd.OutOrStdout()).Encode(map[string]int{"pending": n})
		}
		fmt.Fprintln(cmd.OutOrStdout(), n)
		return nil
	},
}

func requireQueue() (*cli.App, error) {
	app := cli.GetApp()
	if app == nil || app.Queue == nil {
		return nil, errors.New("offline queue not configured")
	}
	return app, nil
}

func parseID(arg string) (int64, error) {
	id, err := strconv.ParseInt(arg, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid record id %q", arg)
	}
	return id, nil
}
