package mcp

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterPrompts registers prompts for common maintenance workflows.
func RegisterPrompts(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Prompt("sync_troubleshooting").
		Description("Work out why offline changes are not reaching the server and fix it.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Offline sync troubleshooting",
				Messages: []mcp.PromptMessage{{
					Role: string(mcp.RoleUser),
					Content: mcp.TextContent{
						Type: "text",
						Text: `My offline changes are not syncing. Please:

1. Read logmyjob://queue/status to see how many records are pending or held
2. Read logmyjob://queue to inspect them in replay order
3. Run sync.force once and report what happened

For each held record, explain the likely rejection cause from its kind and URL.
Only suggest queue.release for records that may succeed on retry, and queue.drop
for records the server will never accept. Ask me before dropping anything.`,
					},
				}},
			}, nil
		})

	srv.Prompt("reminder_setup").
		Description("Set up the daily reminder to log the workday.").
		Handler(func(ctx context.Context, args map[string]string) (*mcp.PromptResult, error) {
			return &mcp.PromptResult{
				Description: "Daily reminder setup",
				Messages: []mcp.PromptMessage{{
					Role: string(mcp.RoleUser),
					Content: mcp.TextContent{
						Type: "text",
						Text: `Help me configure my daily reminder. Read logmyjob://reminder/settings,
ask which time and weekdays suit me, then apply them with reminder.settings.set.
Check vacation.list for upcoming absences and finish with reminder.check.`,
					},
				}},
			}, nil
		})

	return nil
}
