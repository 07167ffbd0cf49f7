package mcp

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/felixgeelhaar/mcp-go"
)

// RegisterResources exposes queue and reminder state as JSON resources.
func RegisterResources(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return fmt.Errorf("server is required")
	}

	srv.Resource("logmyjob://queue").
		Name("Offline queue").
		Description("Pending offline mutations in replay order").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			records, err := listRecords(ctx, deps, 0)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, records)
		})

	srv.Resource("logmyjob://queue/status").
		Name("Sync status").
		Description("Queue depth, held records and replay statistics").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			status, err := statusOf(ctx, deps)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, status)
		})

	srv.Resource("logmyjob://reminder/settings").
		Name("Reminder settings").
		Description("Daily reminder time and weekdays").
		MimeType("application/json").
		Handler(func(ctx context.Context, uri string, params map[string]string) (*mcp.ResourceContent, error) {
			if deps.Reminders == nil {
				return nil, fmt.Errorf("reminder settings not configured")
			}
			settings, err := deps.Reminders.Settings(ctx)
			if err != nil {
				return nil, err
			}
			return jsonResource(uri, settings)
		})

	return nil
}

func jsonResource(uri string, v any) (*mcp.ResourceContent, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, err
	}
	return &mcp.ResourceContent{URI: uri, MimeType: "application/json", Text: string(data)}, nil
}
