package eventbus

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Envelope is the wire form of every message on the bus.
type Envelope struct {
	ID            uuid.UUID       `json:"id"`
	Type          string          `json:"type"`
	OccurredAt    time.Time       `json:"occurred_at"`
	Payload       json.RawMessage `json:"payload"`
	CorrelationID string          `json:"correlation_id,omitempty"`
}

// NewEnvelope wraps an already encoded payload.
func NewEnvelope(messageType string, payload json.RawMessage, correlationID string) *Envelope {
	return &Envelope{
		ID:            uuid.New(),
		Type:          messageType,
		OccurredAt:    time.Now().UTC(),
		Payload:       payload,
		CorrelationID: correlationID,
	}
}

// Handler receives envelopes of the types it declares.
type Handler interface {
	// MessageTypes returns the routing keys this handler accepts.
	// "*" subscribes to everything.
	MessageTypes() []string
	Handle(ctx context.Context, env *Envelope) error
}

// HandlerFunc adapts a function to Handler.
type HandlerFunc struct {
	Types []string
	Fn    func(ctx context.Context, env *Envelope) error
}

// MessageTypes implements Handler.
func (h HandlerFunc) MessageTypes() []string { return h.Types }

// Handle implements Handler.
func (h HandlerFunc) Handle(ctx context.Context, env *Envelope) error { return h.Fn(ctx, env) }

// Consumer pulls envelopes from a broker and dispatches them to handlers.
type Consumer interface {
	// Start blocks until ctx is cancelled or the consumer is closed.
	Start(ctx context.Context) error
	RegisterHandler(h Handler)
	Close() error
}
