package cli

import (
	"encoding/json"
	"errors"
	"fmt"
	"sort"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

var healthCmd = &cobra.Command{
	Use:   "health",
	Short: "Check storage, broker and replay health",
	RunE: func(cmd *cobra.Command, args []string) error {
		app := GetApp()
		if app == nil || app.Health == nil {
			return errors.New("app not initialized")
		}

		health := app.Health.Check(cmd.Context())
		out := cmd.OutOrStdout()
		if JSONOutput() {
			if err := json.NewEncoder(out).Encode(health); err != nil {
				return err
			}
		} else {
			fmt.Fprintln(out, health.Status)
			names := make([]string, 0, len(health.Checks))
			for name := range health.Checks {
				names = append(names, name)
			}
			sort.Strings(names)
			for _, name := range names {
				check := health.Checks[name]
				line := fmt.Sprintf("  %-10s %s", name, check.Status)
				if check.Message != "" {
					line += " (" + check.Message + ")"
				}
				fmt.Fprintln(out, line)
			}
		}

		if health.Status == observability.HealthStatusUnhealthy {
			return errors.New("unhealthy")
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(healthCmd)
}
