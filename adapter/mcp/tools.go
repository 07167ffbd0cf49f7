package mcp

import (
	"errors"

	"github.com/felixgeelhaar/mcp-go"

	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

// ToolDependencies are the components the tools act on.
type ToolDependencies struct {
	Queue       queue.Store
	Held        *replay.HeldSet
	Engine      *replay.Engine
	Interceptor *interceptor.Interceptor
	Scheduler   *reminder.Scheduler
	Reminders   *reminder.SettingsService
	Vacations   *vacation.Service
}

// RegisterTools registers every tool on srv.
func RegisterTools(srv *mcp.Server, deps ToolDependencies) error {
	if srv == nil {
		return errors.New("server is required")
	}
	if deps.Queue == nil {
		return errors.New("queue is required")
	}

	if err := registerQueueTools(srv, deps); err != nil {
		return err
	}
	if err := registerReminderTools(srv, deps); err != nil {
		return err
	}
	return registerVacationTools(srv, deps)
}
