package messages

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Emitter publishes typed messages.
type Emitter struct {
	publisher eventbus.Publisher
	logger    *slog.Logger
}

// NewEmitter creates an emitter. A nil publisher drops every message.
func NewEmitter(publisher eventbus.Publisher, logger *slog.Logger) *Emitter {
	if logger == nil {
		logger = slog.Default()
	}
	if publisher == nil {
		publisher = eventbus.NewNoopPublisher(logger)
	}
	return &Emitter{publisher: publisher, logger: logger}
}

// Emit publishes payload under messageType. Delivery failures are logged
// and returned; no caller treats them as fatal.
func (e *Emitter) Emit(ctx context.Context, messageType string, payload any) error {
	raw, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("encode %s: %w", messageType, err)
	}
	env := eventbus.NewEnvelope(messageType, raw, observability.CorrelationIDFromContext(ctx))
	body, err := json.Marshal(env)
	if err != nil {
		return fmt.Errorf("encode envelope: %w", err)
	}
	if err := e.publisher.Publish(ctx, messageType, body); err != nil {
		e.logger.WarnContext(ctx, "failed to publish message", "message_type", messageType, "error", err)
		return err
	}
	return nil
}

// RequestQueued emits REQUEST_QUEUED.
func (e *Emitter) RequestQueued(ctx context.Context, method, url string, id int64) {
	_ = e.Emit(ctx, TypeRequestQueued, RequestQueued{Method: method, URL: url, ID: id})
}

// SyncComplete emits SYNC_COMPLETE.
func (e *Emitter) SyncComplete(ctx context.Context, url string, id int64) {
	_ = e.Emit(ctx, TypeSyncComplete, SyncComplete{URL: url, ID: id})
}

// OfflineSyncComplete emits offline-sync-complete.
func (e *Emitter) OfflineSyncComplete(ctx context.Context, processed, failed int) {
	_ = e.Emit(ctx, TypeOfflineSyncComplete, OfflineSyncComplete{Processed: processed, Failed: failed})
}

// Toast emits show-toast.
func (e *Emitter) Toast(ctx context.Context, message, toastType string) {
	_ = e.Emit(ctx, TypeShowToast, ShowToast{Message: message, Type: toastType})
}

// Decode unmarshals the payload of an envelope.
func Decode[T any](env *eventbus.Envelope) (T, error) {
	var out T
	if err := json.Unmarshal(env.Payload, &out); err != nil {
		return out, fmt.Errorf("decode %s payload: %w", env.Type, err)
	}
	return out, nil
}
