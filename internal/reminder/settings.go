package reminder

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
)

// SettingsService saves reminder settings and re-checks immediately.
type SettingsService struct {
	state     state.Store
	scheduler *Scheduler
}

// NewSettingsService creates the service.
func NewSettingsService(store state.Store, scheduler *Scheduler) *SettingsService {
	return &SettingsService{state: store, scheduler: scheduler}
}

// Settings returns the current settings.
func (s *SettingsService) Settings(ctx context.Context) (domain.NotificationSettings, error) {
	return s.scheduler.Settings(ctx)
}

// UpdateSettings validates and saves settings, then runs a check so a
// reminder already due today shows right away.
func (s *SettingsService) UpdateSettings(ctx context.Context, settings domain.NotificationSettings) (Decision, error) {
	if err := settings.Validate(); err != nil {
		return Decision{}, fmt.Errorf("invalid notification settings: %w", err)
	}
	settings = settings.Normalize()
	if err := state.SetJSON(ctx, s.state, state.KeyNotificationSettings, settings); err != nil {
		return Decision{}, err
	}
	return s.scheduler.Check(ctx, SourceSettingsChange)
}

// Cancel disables reminders, keeping time and weekdays.
func (s *SettingsService) Cancel(ctx context.Context) error {
	_, err := state.UpdateJSON(ctx, s.state, state.KeyNotificationSettings,
		func(current domain.NotificationSettings, found bool) (domain.NotificationSettings, error) {
			if !found {
				current = domain.DefaultNotificationSettings()
			}
			current.Enabled = false
			return current, nil
		})
	return err
}
