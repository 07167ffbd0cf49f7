// Package eventbus carries application messages between the offline layer
// and the application, either in process or through RabbitMQ.
package eventbus

import (
	"context"
	"errors"
	"log/slog"
)

// Publisher sends a payload under a routing key.
type Publisher interface {
	Publish(ctx context.Context, routingKey string, payload []byte) error
	Close() error
}

// NoopPublisher drops every message. Used when no bus is configured.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that does nothing.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// Publish logs the message but doesn't actually publish.
func (p *NoopPublisher) Publish(_ context.Context, routingKey string, payload []byte) error {
	p.logger.Debug("noop publish", "routing_key", routingKey, "size", len(payload))
	return nil
}

// Close is a no-op.
func (p *NoopPublisher) Close() error {
	return nil
}

// TeePublisher publishes every message to all of its targets, for example
// local handlers plus a broker that reaches the application process.
type TeePublisher struct {
	targets []Publisher
}

// NewTeePublisher combines publishers. Nil targets are skipped.
func NewTeePublisher(targets ...Publisher) *TeePublisher {
	t := &TeePublisher{}
	for _, p := range targets {
		if p != nil {
			t.targets = append(t.targets, p)
		}
	}
	return t
}

// Publish delivers to every target and joins their errors.
func (t *TeePublisher) Publish(ctx context.Context, routingKey string, payload []byte) error {
	var errs []error
	for _, p := range t.targets {
		if err := p.Publish(ctx, routingKey, payload); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Close closes every target.
func (t *TeePublisher) Close() error {
	var errs []error
	for _, p := range t.targets {
		if err := p.Close(); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}
