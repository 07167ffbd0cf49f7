package eventbus

import (
	"context"
	"encoding/json"
	"log/slog"
	"time"
)

// InProcessBus delivers envelopes synchronously to handlers registered in
// the same process. Handlers may publish again from inside Handle.
type InProcessBus struct {
	registry *Registry
	logger   *slog.Logger
}

// NewInProcessBus creates a new in-process bus.
func NewInProcessBus(logger *slog.Logger) *InProcessBus {
	if logger == nil {
		logger = slog.Default()
	}
	return &InProcessBus{
		registry: NewRegistry(logger),
		logger:   logger,
	}
}

// RegisterHandler registers a handler.
func (b *InProcessBus) RegisterHandler(h Handler) {
	b.registry.Register(h)
}

// Publish decodes the envelope and dispatches it. Handler failures are
// logged, never returned: the publisher has already done its part.
func (b *InProcessBus) Publish(ctx context.Context, routingKey string, payload []byte) error {
	env := &Envelope{}
	if err := json.Unmarshal(payload, env); err != nil {
		b.logger.Error("failed to unmarshal envelope", "routing_key", routingKey, "error", err)
		return nil
	}
	if env.Type == "" {
		env.Type = routingKey
	}

	start := time.Now()
	if err := b.registry.Dispatch(ctx, env); err != nil {
		b.logger.Warn("message dispatch failed",
			"message_type", env.Type,
			"message_id", env.ID,
			"duration_ms", time.Since(start).Milliseconds(),
			"error", err,
		)
		return nil
	}

	b.logger.Debug("message dispatched",
		"message_type", env.Type,
		"message_id", env.ID,
		"duration_ms", time.Since(start).Milliseconds(),
	)
	return nil
}

// Close is a no-op for in-process bus.
func (b *InProcessBus) Close() error {
	return nil
}
