package day

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/remote"
)

// Cmd is the day command group
var Cmd = &cobra.Command{
	Use:   "day",
	Short: "Log workdays",
	Long: `Create, update and delete logged workdays.

Requests go through the offline interceptor: when the data store cannot be
reached the change is queued and replayed later. With --offline the change
is written to the queue directly without trying the network.`,
}

func init() {
	Cmd.AddCommand(addCmd)
	Cmd.AddCommand(updateCmd)
	Cmd.AddCommand(deleteCmd)
}

func requireRemote(offline bool) (*cli.App, error) {
	app := cli.GetApp()
	if app == nil {
		return nil, errors.New("app not initialized")
	}
	if offline && app.Queuer == nil {
		return nil, errors.New("offline queue not configured")
	}
	if !offline && app.Remote == nil {
		return nil, errors.New("data store client not configured")
	}
	return app, nil
}

// outcome is what a day command reports.
type outcome struct {
	Action  string      `json:"action"`
	ID      string      `json:"id,omitempty"`
	Queued  bool        `json:"queued"`
	QueueID string      `json:"queue_id,omitempty"`
	Day     *remote.Day `json:"day,omitempty"`
}

// queuedOutcome turns an interceptor 202 into an outcome. A capture
// failure stays an error: the change was not saved anywhere.
func queuedOutcome(action, id string, err error) (outcome, error) {
	var queued *remote.QueuedError
	if !errors.As(err, &queued) {
		return outcome{}, err
	}
	if queued.Failure != "" {
		return outcome{}, err
	}
	return outcome{Action: action, ID: id, Queued: true, QueueID: queued.ID}, nil
}

func report(w io.Writer, o outcome) error {
	if cli.JSONOutput() {
		return json.NewEncoder(w).Encode(o)
	}
	switch {
	case o.Queued:
		fmt.Fprintf(w, "Offline: day %s queued as %s, it will sync when the data store is reachable.\n", o.Action, o.QueueID)
	case o.Day != nil:
		fmt.Fprintf(w, "Day %s: %s %s %s (%s)\n", o.Action, o.Day.Date, o.Day.Client, o.Day.Duration, o.Day.ID)
	default:
		fmt.Fprintf(w, "Day %s: %s\n", o.Action, o.ID)
	}
	return nil
}
