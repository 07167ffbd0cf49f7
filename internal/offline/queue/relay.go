package queue

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
)

// Relay hands a captured mutation to another process that owns a store.
// It is used by an interceptor running without durable storage of its own.
type Relay struct {
	emitter *messages.Emitter
}

// NewRelay creates a relay publishing QUEUE_TO_INDEXEDDB messages.
func NewRelay(emitter *messages.Emitter) *Relay {
	return &Relay{emitter: emitter}
}

// Relay publishes m. A nil error only means the bus accepted the message.
func (r *Relay) Relay(ctx context.Context, m *domain.QueuedMutation) error {
	return r.emitter.Emit(ctx, messages.TypeQueueToIndexedDB, messages.QueueToIndexedDB{
		Method:    m.Method,
		URL:       m.URL,
		Body:      m.Body,
		Headers:   m.Headers,
		Kind:      m.Kind,
		Timestamp: m.Timestamp,
	})
}

// RelayConsumer is the application-side end of the relay: it persists each
// QUEUE_TO_INDEXEDDB request into the local store.
type RelayConsumer struct {
	store   Store
	emitter *messages.Emitter
	logger  *slog.Logger
}

// NewRelayConsumer creates the consumer.
func NewRelayConsumer(store Store, emitter *messages.Emitter, logger *slog.Logger) *RelayConsumer {
	if logger == nil {
		logger = slog.Default()
	}
	return &RelayConsumer{store: store, emitter: emitter, logger: logger}
}

// MessageTypes implements eventbus.Handler.
func (c *RelayConsumer) MessageTypes() []string {
	return []string{messages.TypeQueueToIndexedDB}
}

// Handle implements eventbus.Handler. A storage failure is returned so a
// broker can redeliver the message.
func (c *RelayConsumer) Handle(ctx context.Context, env *eventbus.Envelope) error {
	req, err := messages.Decode[messages.QueueToIndexedDB](env)
	if err != nil {
		c.logger.ErrorContext(ctx, "dropping undecodable relay message", "message_id", env.ID, "error", err)
		return nil
	}

	m := domain.NewQueuedMutation(req.Kind, req.Method, req.URL, req.Body, req.Headers)
	m.Timestamp = req.Timestamp
	if m.Timestamp.IsZero() {
		m.Timestamp = env.OccurredAt
	}

	id, err := c.store.Enqueue(ctx, m)
	if err != nil {
		return fmt.Errorf("persist relayed request: %w", err)
	}

	c.logger.InfoContext(ctx, "relayed request queued", "id", id, "method", m.Method, "url", m.URL)
	c.emitter.Toast(ctx, messages.ToastSavedLocally, messages.ToastInfo)
	return nil
}
