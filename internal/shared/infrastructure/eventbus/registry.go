package eventbus

import (
	"context"
	"errors"
	"log/slog"
	"sync"
)

// Wildcard subscribes a handler to every message type.
const Wildcard = "*"

// Registry maps message types to handlers.
type Registry struct {
	mu       sync.RWMutex
	handlers map[string][]Handler
	logger   *slog.Logger
}

// NewRegistry creates an empty registry.
func NewRegistry(logger *slog.Logger) *Registry {
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		handlers: make(map[string][]Handler),
		logger:   logger,
	}
}

// Register adds a handler for each of its declared types.
func (r *Registry) Register(h Handler) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, t := range h.MessageTypes() {
		r.handlers[t] = append(r.handlers[t], h)
		r.logger.Debug("registered handler", "message_type", t)
	}
}

// Types returns every type with at least one handler, wildcard excluded.
func (r *Registry) Types() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	types := make([]string, 0, len(r.handlers))
	for t := range r.handlers {
		if t != Wildcard {
			types = append(types, t)
		}
	}
	return types
}

// HasWildcard reports whether some handler listens to every type.
func (r *Registry) HasWildcard() bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.handlers[Wildcard]) > 0
}

// Dispatch hands env to every matching handler. A failing handler does not
// stop the others; all failures are joined.
func (r *Registry) Dispatch(ctx context.Context, env *Envelope) error {
	r.mu.RLock()
	matched := append(append([]Handler(nil), r.handlers[env.Type]...), r.handlers[Wildcard]...)
	r.mu.RUnlock()

	if len(matched) == 0 {
		r.logger.Debug("no handlers for message type", "message_type", env.Type)
		return nil
	}

	var errs []error
	for _, h := range matched {
		if err := h.Handle(ctx, env); err != nil {
			r.logger.Error("handler failed",
				"message_type", env.Type,
				"message_id", env.ID,
				"error", err,
			)
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
