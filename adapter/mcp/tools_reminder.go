package mcp

import (
	"context"
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
)

type reminderSettingsInput struct {
	Enabled  *bool  `json:"enabled,omitempty"`
	Time     string `json:"time,omitempty"`
	Weekdays []int  `json:"weekdays,omitempty"`
}

func registerReminderTools(srv *mcp.Server, deps ToolDependencies) error {
	srv.Tool("reminder.check").
		Description("Run the daily reminder check now and explain the decision").
		Handler(func(ctx context.Context, input struct{}) (reminder.Decision, error) {
			if deps.Scheduler == nil {
				return reminder.Decision{}, errors.New("reminder scheduler not configured")
			}
			return deps.Scheduler.Check(ctx, reminder.SourceManual)
		})

	srv.Tool("reminder.settings.get").
		Description("Show the daily reminder settings").
		Handler(func(ctx context.Context, input struct{}) (domain.NotificationSettings, error) {
			if deps.Reminders == nil {
				return domain.NotificationSettings{}, errors.New("reminder settings not configured")
			}
			return deps.Reminders.Settings(ctx)
		})

	srv.Tool("reminder.settings.set").
		Description("Change the daily reminder: enabled, time (HH:MM) and weekdays (0 = Sunday)").
		Handler(func(ctx context.Context, input reminderSettingsInput) (map[string]any, error) {
			return updateReminder(ctx, deps, input)
		})

	srv.Tool("reminder.disable").
		Description("Turn the daily reminder off").
		Handler(func(ctx context.Context, input struct{}) (map[string]any, error) {
			if deps.Reminders == nil {
				return nil, errors.New("reminder settings not configured")
			}
			if err := deps.Reminders.Cancel(ctx); err != nil {
				return nil, err
			}
			return map[string]any{"enabled": false}, nil
		})

	return nil
}

// updateReminder merges input over the saved settings.
func updateReminder(ctx context.Context, deps ToolDependencies, input reminderSettingsInput) (map[string]any, error) {
	if deps.Reminders == nil {
		return nil, errors.New("reminder settings not configured")
	}
	settings, err := deps.Reminders.Settings(ctx)
	if err != nil {
		return nil, err
	}
	if input.Enabled != nil {
		settings.Enabled = *input.Enabled
	}
	if input.Time != "" {
		settings.Time = input.Time
	}
	if input.Weekdays != nil {
		settings.Weekdays = input.Weekdays
	}

	decision, err := deps.Reminders.UpdateSettings(ctx, settings)
	if err != nil {
		return nil, err
	}
	return map[string]any{"settings": settings, "decision": decision}, nil
}
