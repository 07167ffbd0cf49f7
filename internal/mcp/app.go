package mcp

import (
	mcplocal "github.com/felixgeelhaar/logmyjob/adapter/mcp"
	"github.com/felixgeelhaar/logmyjob/internal/app"
)

// ToolDependencies exposes the container components the tools act on.
func ToolDependencies(container *app.Container) mcplocal.ToolDependencies {
	return mcplocal.ToolDependencies{
		Queue:       container.Queue,
		Held:        container.Held,
		Engine:      container.Engine,
		Interceptor: container.Interceptor,
		Scheduler:   container.Scheduler,
		Reminders:   container.Reminders,
		Vacations:   container.Vacations,
	}
}
