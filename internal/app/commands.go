package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

// CommandDeps are the components inbound commands act on.
type CommandDeps struct {
	Interceptor *interceptor.Interceptor
	Engine      *replay.Engine
	Scheduler   *reminder.Scheduler
	Reminders   *reminder.SettingsService
	Vacations   *vacation.Service
	Emitter     *messages.Emitter
}

// CommandHandler answers the commands the application posts on the bus.
type CommandHandler struct {
	deps   CommandDeps
	logger *slog.Logger
}

// NewCommandHandler creates the handler.
func NewCommandHandler(deps CommandDeps, logger *slog.Logger) *CommandHandler {
	if logger == nil {
		logger = slog.Default()
	}
	return &CommandHandler{deps: deps, logger: logger}
}

// MessageTypes implements eventbus.Handler.
func (h *CommandHandler) MessageTypes() []string {
	return []string{
		messages.TypeGetSyncStatus,
		messages.TypeForceSync,
		messages.TypeCheckNotification,
		messages.TypeUpdateNotificationSettings,
		messages.TypeScheduleNotifications,
		messages.TypeCancelNotifications,
		messages.TypeUpdateVacations,
		messages.TypeSkipWaiting,
	}
}

// Handle implements eventbus.Handler. Undecodable payloads are dropped;
// operation failures are returned so a broker can redeliver.
func (h *CommandHandler) Handle(ctx context.Context, env *eventbus.Envelope) error {
	switch env.Type {
	case messages.TypeGetSyncStatus:
		return h.syncStatus(ctx)

	case messages.TypeForceSync:
		res, err := h.deps.Engine.Drain(ctx, replay.TriggerForce)
		if errors.Is(err, domain.ErrDrainInProgress) {
			h.logger.InfoContext(ctx, "forced sync skipped, drain already running")
			return nil
		}
		if err != nil {
			return fmt.Errorf("forced sync: %w", err)
		}
		h.logger.InfoContext(ctx, "forced sync finished", "processed", res.Processed, "failed", res.Failed)
		return nil

	case messages.TypeCheckNotification:
		_, err := h.deps.Scheduler.Check(ctx, reminder.SourceAppOpen)
		return err

	case messages.TypeUpdateNotificationSettings, messages.TypeScheduleNotifications:
		cmd, err := messages.Decode[messages.UpdateNotificationSettings](env)
		if err != nil {
			h.logger.WarnContext(ctx, "dropping notification settings", "message_id", env.ID, "error", err)
			return nil
		}
		_, err = h.deps.Reminders.UpdateSettings(ctx, cmd.Settings)
		return h.result(ctx, env, "update notification settings", err)

	case messages.TypeCancelNotifications:
		return h.deps.Reminders.Cancel(ctx)

	case messages.TypeUpdateVacations:
		cmd, err := messages.Decode[messages.UpdateVacations](env)
		if err != nil {
			h.logger.WarnContext(ctx, "dropping vacations update", "message_id", env.ID, "error", err)
			return nil
		}
		return h.result(ctx, env, "update vacations", h.deps.Vacations.Replace(ctx, cmd.Vacations))

	case messages.TypeSkipWaiting:
		dropped, err := h.deps.Interceptor.Activate(ctx)
		if err != nil {
			return err
		}
		h.logger.InfoContext(ctx, "caches activated", "dropped", dropped)
		return nil
	}
	return nil
}

// result returns storage failures for redelivery and drops everything
// else, since an invalid command stays invalid.
func (h *CommandHandler) result(ctx context.Context, env *eventbus.Envelope, op string, err error) error {
	switch {
	case err == nil:
		return nil
	case errors.Is(err, domain.ErrStorageUnavailable):
		return fmt.Errorf("%s: %w", op, err)
	default:
		h.logger.WarnContext(ctx, "dropping invalid command", "op", op, "message_id", env.ID, "error", err)
		return nil
	}
}

func (h *CommandHandler) syncStatus(ctx context.Context) error {
	pending, err := h.deps.Interceptor.Pending(ctx)
	if err != nil {
		h.logger.WarnContext(ctx, "pending count unavailable", "error", err)
	}
	return h.deps.Emitter.Emit(ctx, messages.TypeSyncStatus, messages.SyncStatus{
		Supported: h.deps.Interceptor.Native(),
		Pending:   pending,
	})
}
