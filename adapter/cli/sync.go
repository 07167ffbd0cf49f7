package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
)

var syncCmd = &cobra.Command{
	Use:   "sync",
	Short: "Replay queued offline mutations now",
	Long: `Replay every pending mutation against the data store, oldest first.

A pass stops at the first network failure and leaves the rest queued.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Engine == nil {
			return errors.New("replay engine not configured")
		}

		res, err := app.Engine.Drain(cmd.Context(), replay.TriggerForce)
		if errors.Is(err, domain.ErrDrainInProgress) {
			return errors.New("a sync is already running, try again shortly")
		}
		if err != nil {
			return err
		}

		out := cmd.OutOrStdout()
		if JSONOutput() {
			return json.NewEncoder(out).Encode(map[string]any{
				"processed": res.Processed,
				"failed":    res.Failed,
				"skipped":   res.Skipped,
				"stopped":   res.Stopped,
				"duration":  res.Duration.Round(time.Millisecond).String(),
			})
		}

		fmt.Fprintf(out, "Replayed %d, failed %d, skipped %d.\n", res.Processed, res.Failed, res.Skipped)
		if res.Stopped {
			fmt.Fprintln(out, "Stopped early: the data store is unreachable.")
		}
		if Verbose() {
			for _, r := range res.Records {
				status := "ok"
				if r.Err != nil {
					status = r.Err.Error()
				}
				fmt.Fprintf(out, "  #%d %s -> %s\n", r.ID, r.URL, status)
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(syncCmd)
}
