package cli

import (
	appcontainer "github.com/felixgeelhaar/logmyjob/internal/app"
	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/internal/offline/replay"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
	"github.com/felixgeelhaar/logmyjob/internal/remote"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
	"github.com/felixgeelhaar/logmyjob/internal/vacation/caldav"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// App holds the CLI application dependencies. Commands check the field
// they need, so tests can fill in only part of it.
type App struct {
	// Container is set when the CLI runs against a full container; serve
	// needs it.
	Container *appcontainer.Container

	Queue       queue.Store
	Held        *replay.HeldSet
	Engine      *replay.Engine
	Interceptor *interceptor.Interceptor

	Remote *remote.Client
	Queuer *remote.Queuer

	Scheduler *reminder.Scheduler
	Reminders *reminder.SettingsService

	Vacations *vacation.Service
	Importer  *caldav.Importer

	Health *observability.HealthRegistry
}

// NewApp exposes the parts of c the commands use.
func NewApp(c *appcontainer.Container) *App {
	return &App{
		Container:   c,
		Queue:       c.Queue,
		Held:        c.Held,
		Engine:      c.Engine,
		Interceptor: c.Interceptor,
		Remote:      c.Remote,
		Queuer:      c.Queuer,
		Scheduler:   c.Scheduler,
		Reminders:   c.Reminders,
		Vacations:   c.Vacations,
		Importer:    c.Importer,
		Health:      c.Health,
	}
}

// app is the global CLI application instance
var app *App

// SetApp sets the global CLI application instance.
func SetApp(a *App) {
	app = a
}

// GetApp returns the global CLI application instance.
func GetApp() *App {
	return app
}
