package queue

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
)

var limit int

type recordView struct {
	ID        int64     `json:"id"`
	Timestamp time.Time `json:"timestamp"`
	Kind      string    `json:"kind"`
	Method    string    `json:"method"`
	URL       string    `json:"url"`
	BodyBytes int       `json:"body_bytes"`
	Held      bool      `json:"held"`
	Error     string    `json:"error,omitempty"`
}

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List pending mutations in replay order",
	RunE: func(cmd *cobra.Command, args []string) error {
		app, err := requireQueue()
		if err != nil {
			return err
		}
		ctx := cmd.Context()

		pending, err := app.Queue.ListPending(ctx)
		if err != nil {
			return err
		}
		held := map[int64]bool{}
		if app.Held != nil {
			ids, err := app.Held.List(ctx)
			if err != nil {
				return err
			}
			for _, id := range ids {
				held[id] = true
			}
		}
		if limit > 0 && len(pending) > limit {
			pending = pending[:limit]
		}

		views := make([]recordView, 0, len(pending))
		for _, m := range pending {
			v := recordView{
				ID:        m.ID,
				Timestamp: m.Timestamp,
				Kind:      m.Kind,
				Method:    m.Method,
				URL:       m.URL,
				BodyBytes: len(m.Body),
				Held:      held[m.ID],
			}
			if err := m.Validate(); err != nil {
				v.Error = err.Error()
			}
			views = append(views, v)
		}

		out := cmd.OutOrStdout()
		if cli.JSONOutput() {
			return json.NewEncoder(out).Encode(views)
		}
		if len(views) == 0 {
			fmt.Fprintln(out, "Queue is empty.")
			return nil
		}
		for _, v := range views {
			flag := ""
			if v.Held {
				flag = " [held]"
			}
			if v.Error != "" {
				flag += " [" + v.Error + "]"
			}
			fmt.Fprintf(out, "%d  %s  %-6s %s%s\n", v.ID, v.Timestamp.Local().Format("2006-01-02 15:04:05"), v.Method, v.URL, flag)
		}
		return nil
	},
}

func init() {
	listCmd.Flags().IntVarP(&limit, "limit", "n", 0, "show at most n records")
}
