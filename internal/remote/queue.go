package remote

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"net/url"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
)

// Queuer writes day mutations straight into the durable queue, stamped
// with the same headers a live request would carry. It is used when the
// caller already knows it is offline.
type Queuer struct {
	client  *Client
	store   queue.Store
	emitter *messages.Emitter
}

// NewQueuer creates a queuer for client's endpoints. Each queued record is
// announced with REQUEST_QUEUED on emitter, which may be nil.
func NewQueuer(client *Client, store queue.Store, emitter *messages.Emitter) *Queuer {
	return &Queuer{client: client, store: store, emitter: emitter}
}

// QueueDayCreate queues the creation of d for the signed-in user.
func (q *Queuer) QueueDayCreate(ctx context.Context, d Day) (int64, error) {
	if q.client.auth == nil {
		return 0, fmt.Errorf("queue day create: no signed-in user")
	}
	user, err := q.client.auth.CurrentUser(ctx)
	if err != nil {
		return 0, err
	}
	d.UserID = user.ID
	return q.enqueue(ctx, domain.KindDayCreate, http.MethodPost, q.client.ResourceURL(ResourceDays, nil), d)
}

// QueueDayUpdate queues a patch of the day with id.
func (q *Queuer) QueueDayUpdate(ctx context.Context, id string, d Day) (int64, error) {
	d.ID, d.UserID = "", ""
	u := q.client.ResourceURL(ResourceDays, url.Values{"id": {"eq." + id}})
	return q.enqueue(ctx, domain.KindDayUpdate, http.MethodPatch, u, d)
}

// QueueDayDelete queues the deletion of the day with id.
func (q *Queuer) QueueDayDelete(ctx context.Context, id string) (int64, error) {
	u := q.client.ResourceURL(ResourceDays, url.Values{"id": {"eq." + id}})
	return q.enqueue(ctx, domain.KindDayDelete, http.MethodDelete, u, nil)
}

func (q *Queuer) enqueue(ctx context.Context, kind, method, u string, body any) (int64, error) {
	var raw []byte
	if body != nil {
		var err error
		if raw, err = json.Marshal(body); err != nil {
			return 0, fmt.Errorf("encode %s body: %w", kind, err)
		}
	}
	headers, err := q.client.Headers(ctx)
	if err != nil {
		return 0, err
	}
	if kind == domain.KindDayDelete {
		delete(headers, "Prefer")
	}
	headers[domain.MutationKindHeader] = kind

	id, err := q.store.Enqueue(ctx, domain.NewQueuedMutation(kind, method, u, raw, headers))
	if err != nil {
		return 0, err
	}
	if q.emitter != nil {
		q.emitter.RequestQueued(ctx, method, u, id)
	}
	return id, nil
}
