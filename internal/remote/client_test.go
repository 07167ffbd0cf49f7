package remote_test

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/auth"
	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/queue"
	"github.com/felixgeelhaar/logmyjob/internal/offline/storage"
	"github.com/felixgeelhaar/logmyjob/internal/remote"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
)

// seenRequest is what the fake API received.
type seenRequest struct {
	Method string
	Path   string
	Query  url.Values
	Header http.Header
	Body   string
}

type fakeAPI struct {
	mu     sync.Mutex
	seen   []seenRequest
	status int
	reply  string
}

func (f *fakeAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.seen = append(f.seen, seenRequest{r.Method, r.URL.Path, r.URL.Query(), r.Header.Clone(), string(body)})
	status, reply := f.status, f.reply
	f.mu.Unlock()

	if status == 0 {
		status = http.StatusOK
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, reply)
}

func (f *fakeAPI) Last(t *testing.T) seenRequest {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.seen)
	return f.seen[len(f.seen)-1]
}

func newClient(t *testing.T, api *fakeAPI) (*remote.Client, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(api)
	t.Cleanup(srv.Close)
	provider := auth.NewStaticProvider("user-1", "token-1")
	return remote.NewClient(srv.URL+"/", "anon-key", provider, srv.Client()), srv
}

func TestClient_ListDays(t *testing.T) {
	api := &fakeAPI{reply: `[{"id":"d1","user_id":"user-1","date":"2026-03-10","client":"Acme","duration":"journee_complete","notes":null,"billing_month":null}]`}
	c, _ := newClient(t, api)

	days, err := c.ListDays(context.Background(), remote.DayFilter{Year: 2026, Month: 2, Client: "Acme", Limit: 10})
	require.NoError(t, err)
	require.Len(t, days, 1)
	assert.Equal(t, "d1", days[0].ID)
	assert.Equal(t, remote.DurationFullDay, days[0].Duration)

	got := api.Last(t)
	assert.Equal(t, http.MethodGet, got.Method)
	assert.Equal(t, "/rest/v1/days", got.Path)
	assert.Equal(t, []string{"gte.2026-02-01", "lte.2026-02-28"}, got.Query["date"])
	assert.Equal(t, "eq.Acme", got.Query.Get("client"))
	assert.Equal(t, "10", got.Query.Get("limit"))
	assert.Equal(t, "date.desc", got.Query.Get("order"))
	assert.Equal(t, "anon-key", got.Header.Get("apikey"))
	assert.Equal(t, "Bearer token-1", got.Header.Get("Authorization"))
	assert.Empty(t, got.Header.Get(domain.MutationKindHeader))
}

func TestClient_CreateDay_StampsUserAndKind(t *testing.T) {
	api := &fakeAPI{status: http.StatusCreated, reply: `[{"id":"d2","user_id":"user-1","date":"2026-03-10","client":"Acme","duration":"demi_journee"}]`}
	c, _ := newClient(t, api)

	day, err := c.CreateDay(context.Background(), remote.Day{Date: "2026-03-10", Client: "Acme", Duration: remote.DurationHalfDay})
	require.NoError(t, err)
	assert.Equal(t, "d2", day.ID)

	got := api.Last(t)
	assert.Equal(t, http.MethodPost, got.Method)
	assert.Equal(t, domain.KindDayCreate, got.Header.Get(domain.MutationKindHeader))
	assert.Equal(t, "return=representation", got.Header.Get("Prefer"))

	var sent map[string]any
	require.NoError(t, json.Unmarshal([]byte(got.Body), &sent))
	assert.Equal(t, "user-1", sent["user_id"])
	assert.NotContains(t, sent, "id")
}

func TestClient_DeleteDays(t *testing.T) {
	api := &fakeAPI{status: http.StatusNoContent}
	c, _ := newClient(t, api)

	require.NoError(t, c.DeleteDays(context.Background(), []string{"a", "b"}))
	got := api.Last(t)
	assert.Equal(t, http.MethodDelete, got.Method)
	assert.Equal(t, "in.(a,b)", got.Query.Get("id"))
	assert.Equal(t, domain.KindDayDeleteMany, got.Header.Get(domain.MutationKindHeader))

	// An empty selection sends nothing.
	api.mu.Lock()
	n := len(api.seen)
	api.mu.Unlock()
	require.NoError(t, c.DeleteDays(context.Background(), nil))
	api.mu.Lock()
	assert.Len(t, api.seen, n)
	api.mu.Unlock()
}

func TestClient_Get_NotFound(t *testing.T) {
	c, _ := newClient(t, &fakeAPI{reply: `[]`})

	var day remote.Day
	err := c.Get(context.Background(), remote.ResourceDays, "missing", &day)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestClient_ClassifiesFailures(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"conflict", http.StatusConflict, domain.ErrRemoteRejected},
		{"bad request", http.StatusBadRequest, domain.ErrRemoteRejected},
		{"server error", http.StatusBadGateway, domain.ErrNetworkUnreachable},
		{"rate limited", http.StatusTooManyRequests, domain.ErrNetworkUnreachable},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c, _ := newClient(t, &fakeAPI{status: tt.status, reply: `{"message":"nope"}`})
			err := c.DeleteDay(context.Background(), "d1")
			assert.ErrorIs(t, err, tt.want)
		})
	}

	c, _ := newClient(t, &fakeAPI{status: http.StatusConflict, reply: `{"message":"duplicate"}`})
	err := c.DeleteDay(context.Background(), "d1")
	var rejected *domain.RejectedError
	require.ErrorAs(t, err, &rejected)
	assert.Equal(t, http.StatusConflict, rejected.Status)
	assert.Contains(t, rejected.Body, "duplicate")
}

type downTransport struct{}

func (downTransport) RoundTrip(*http.Request) (*http.Response, error) {
	return nil, errors.New("dial tcp: network is unreachable")
}

func TestClient_OfflineMutationIsQueued(t *testing.T) {
	ctx := context.Background()
	b, err := storage.Open(ctx, filepath.Join(t.TempDir(), "queue.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	store := queue.NewSQLiteStore(b.SQL)

	apiURL, _ := url.Parse("https://abc.supabase.co")
	appURL, _ := url.Parse("https://app.logmyjob.test")
	ic := interceptor.New(interceptor.Config{
		AppOrigin:  appURL,
		APIBase:    apiURL,
		APITimeout: time.Second,
	}, downTransport{}, cache.NewMemoryStorage(), interceptor.WithStore(store))

	c := remote.NewClient(apiURL.String(), "anon-key", auth.NewStaticProvider("user-1", "token-1"), &http.Client{Transport: ic})
	_, err = c.CreateDay(ctx, remote.Day{Date: "2026-03-10", Client: "Acme", Duration: remote.DurationFullDay})
	require.ErrorIs(t, err, remote.ErrQueued)

	var queued *remote.QueuedError
	require.ErrorAs(t, err, &queued)
	assert.NotEmpty(t, queued.ID)
	assert.Empty(t, queued.Failure)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1)
	assert.Equal(t, domain.KindDayCreate, pending[0].Kind)
	assert.Equal(t, http.MethodPost, pending[0].Method)
	assert.Equal(t, "Bearer token-1", pending[0].Headers["Authorization"])

	// Reads fall through to the network error, there is nothing cached.
	_, err = c.ListDays(ctx, remote.DayFilter{})
	assert.ErrorIs(t, err, domain.ErrNetworkUnreachable)
}

// recorder captures every message published on the bus.
type recorder struct {
	mu   sync.Mutex
	envs []*eventbus.Envelope
}

func (r *recorder) MessageTypes() []string { return []string{eventbus.Wildcard} }

func (r *recorder) Handle(_ context.Context, env *eventbus.Envelope) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.envs = append(r.envs, env)
	return nil
}

func (r *recorder) OfType(messageType string) []*eventbus.Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*eventbus.Envelope
	for _, e := range r.envs {
		if e.Type == messageType {
			out = append(out, e)
		}
	}
	return out
}

func TestQueuer(t *testing.T) {
	ctx := context.Background()
	b, err := storage.Open(ctx, filepath.Join(t.TempDir(), "queue.db"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { b.Close() })
	store := queue.NewSQLiteStore(b.SQL)

	bus := eventbus.NewInProcessBus(nil)
	rec := &recorder{}
	bus.RegisterHandler(rec)

	c := remote.NewClient("https://abc.supabase.co", "anon-key", auth.NewStaticProvider("user-1", "token-1"), nil)
	q := remote.NewQueuer(c, store, messages.NewEmitter(bus, nil))

	_, err = q.QueueDayCreate(ctx, remote.Day{Date: "2026-03-10", Client: "Acme", Duration: remote.DurationFullDay})
	require.NoError(t, err)
	_, err = q.QueueDayUpdate(ctx, "d1", remote.Day{Date: "2026-03-11", Client: "Acme", Duration: remote.DurationHalfDay})
	require.NoError(t, err)
	_, err = q.QueueDayDelete(ctx, "d1")
	require.NoError(t, err)

	pending, err := store.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 3)

	assert.Equal(t, domain.KindDayCreate, pending[0].Kind)
	assert.Contains(t, string(pending[0].Body), `"user_id":"user-1"`)
	assert.Equal(t, domain.KindDayUpdate, pending[1].Kind)
	assert.Equal(t, http.MethodPatch, pending[1].Method)
	assert.Equal(t, "https://abc.supabase.co/rest/v1/days?id=eq.d1", pending[1].URL)
	assert.Equal(t, domain.KindDayDelete, pending[2].Kind)
	assert.Empty(t, pending[2].Body)
	assert.NotContains(t, pending[2].Headers, "Prefer")
	assert.Equal(t, "anon-key", pending[2].Headers["apikey"])

	queued := rec.OfType(messages.TypeRequestQueued)
	require.Len(t, queued, 3)
	last, err := messages.Decode[messages.RequestQueued](queued[2])
	require.NoError(t, err)
	assert.Equal(t, http.MethodDelete, last.Method)
	assert.Equal(t, pending[2].ID, last.ID)

	anon := remote.NewQueuer(remote.NewClient("https://abc.supabase.co", "anon-key", nil, nil), store, nil)
	_, err = anon.QueueDayCreate(ctx, remote.Day{Date: "2026-03-10"})
	assert.Error(t, err)
}
