package messages

import (
	"context"
	"fmt"

	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
)

// User-facing toast texts.
const (
	ToastSavedLocally = "Modification sauvegardée localement"
	ToastSynced       = "Modification synchronisée"
	ToastQueueFailed  = "Impossible d'enregistrer la modification hors ligne"
)

// SyncSummary renders the toast for a finished drain pass. ok is false when
// nothing happened and no toast should be shown.
func SyncSummary(processed, failed int) (message, toastType string, ok bool) {
	switch {
	case processed == 0 && failed == 0:
		return "", "", false
	case failed == 0:
		return fmt.Sprintf("%d modifications synchronisées", processed), ToastSuccess, true
	default:
		return fmt.Sprintf("Synchronisation : %d réussies, %d échouées", processed, failed), ToastWarning, true
	}
}

// SyncToaster turns each SYNC_COMPLETE into a success toast.
type SyncToaster struct {
	emitter *Emitter
}

// NewSyncToaster creates the handler.
func NewSyncToaster(emitter *Emitter) *SyncToaster {
	return &SyncToaster{emitter: emitter}
}

// MessageTypes implements eventbus.Handler.
func (t *SyncToaster) MessageTypes() []string {
	return []string{TypeSyncComplete}
}

// Handle implements eventbus.Handler.
func (t *SyncToaster) Handle(ctx context.Context, _ *eventbus.Envelope) error {
	t.emitter.Toast(ctx, ToastSynced, ToastSuccess)
	return nil
}
