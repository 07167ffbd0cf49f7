package app_test

import (
	"context"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/app"
	"github.com/felixgeelhaar/logmyjob/internal/offline/cache"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/interceptor"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/remote"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/logmyjob/pkg/config"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

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

func testConfig(t *testing.T, apiURL string) *config.Config {
	t.Helper()
	return &config.Config{
		AppEnv:               "development",
		UserID:               "user-1",
		Timezone:             "UTC",
		SQLitePath:           filepath.Join(t.TempDir(), "queue.db"),
		APIBaseURL:           apiURL,
		APIKey:               "anon-key",
		AccessToken:          "token-1",
		AppOrigin:            "http://localhost:8080",
		PrecacheVersion:      "v1",
		APITimeout:           time.Second,
		NavigationTimeout:    time.Second,
		ReplayTimeout:        time.Second,
		SyncInterval:         time.Minute,
		SyncStatsInterval:    time.Minute,
		RejectionPolicy:      "retain",
		ConnectivityInterval: time.Minute,
		ReminderInterval:     time.Minute,
	}
}

func newContainer(t *testing.T) (*app.Container, *recorder, *httptest.Server) {
	t.Helper()
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`[]`))
	}))
	t.Cleanup(srv.Close)

	c, err := app.NewContainer(context.Background(), testConfig(t, srv.URL), nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)

	rec := &recorder{}
	c.Bus.RegisterHandler(rec)
	return c, rec, srv
}

func TestContainer_Wiring(t *testing.T) {
	c, _, _ := newContainer(t)

	assert.True(t, c.Interceptor.Native())
	assert.Nil(t, c.Broker)
	assert.Nil(t, c.Consumer)
	assert.Nil(t, c.Importer)

	health := c.Health.Check(context.Background())
	assert.Equal(t, observability.HealthStatusHealthy, health.Status)
}

func TestContainer_RelayMode(t *testing.T) {
	ctx := context.Background()
	down := httptest.NewServer(http.NotFoundHandler())
	down.Close()

	cfg := testConfig(t, down.URL)
	cfg.QueueMode = app.QueueModeRelay
	c, err := app.NewContainer(ctx, cfg, nil)
	require.NoError(t, err)
	t.Cleanup(c.Close)
	rec := &recorder{}
	c.Bus.RegisterHandler(rec)

	assert.False(t, c.Interceptor.Native())

	_, err = c.Remote.CreateDay(ctx, remote.Day{Date: "2026-03-10", Client: "Acme", Duration: remote.DurationFullDay})
	var queued *remote.QueuedError
	require.ErrorAs(t, err, &queued)
	assert.Equal(t, interceptor.RelayedID, queued.ID)

	assert.Len(t, rec.OfType(messages.TypeQueueToIndexedDB), 1)
	pending, err := c.Queue.ListPending(ctx)
	require.NoError(t, err)
	require.Len(t, pending, 1, "the in-process relay consumer stores the request")
	assert.Equal(t, domain.KindDayCreate, pending[0].Kind)

	toasts := rec.OfType(messages.TypeShowToast)
	require.NotEmpty(t, toasts)
	toast, err := messages.Decode[messages.ShowToast](toasts[len(toasts)-1])
	require.NoError(t, err)
	assert.Equal(t, messages.ToastSavedLocally, toast.Message)

	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeGetSyncStatus, struct{}{}))
	replies := rec.OfType(messages.TypeSyncStatus)
	require.Len(t, replies, 1)
	status, err := messages.Decode[messages.SyncStatus](replies[0])
	require.NoError(t, err)
	assert.False(t, status.Supported)
}

func TestContainer_QueueModes(t *testing.T) {
	for _, mode := range []string{"", app.QueueModeAuto, app.QueueModeNative, "NATIVE"} {
		cfg := testConfig(t, "http://127.0.0.1:1")
		cfg.QueueMode = mode
		c, err := app.NewContainer(context.Background(), cfg, nil)
		require.NoError(t, err, mode)
		assert.True(t, c.Interceptor.Native(), mode)
		c.Close()
	}

	cfg := testConfig(t, "http://127.0.0.1:1")
	cfg.QueueMode = "carrier-pigeon"
	_, err := app.NewContainer(context.Background(), cfg, nil)
	assert.ErrorContains(t, err, "QUEUE_MODE")
}

func TestCommands_SyncStatusAndForceSync(t *testing.T) {
	ctx := context.Background()
	c, rec, _ := newContainer(t)

	_, err := c.Queuer.QueueDayCreate(ctx, remote.Day{Date: "2026-03-10", Client: "Acme", Duration: remote.DurationFullDay})
	require.NoError(t, err)

	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeGetSyncStatus, struct{}{}))
	replies := rec.OfType(messages.TypeSyncStatus)
	require.Len(t, replies, 1)
	status, err := messages.Decode[messages.SyncStatus](replies[0])
	require.NoError(t, err)
	assert.Equal(t, messages.SyncStatus{Supported: true, Pending: 1}, status)

	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeForceSync, struct{}{}))
	n, err := c.Queue.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Len(t, rec.OfType(messages.TypeSyncComplete), 1)
	assert.Len(t, rec.OfType(messages.TypeOfflineSyncComplete), 1)
}

func TestCommands_Vacations(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t)

	windows := []domain.VacationWindow{
		{ID: "b", DateStart: "2026-08-03", DateEnd: "2026-08-21", Type: "vacation"},
		{ID: "a", DateStart: "2026-02-16", DateEnd: "2026-02-20", Type: "sick"},
	}
	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeUpdateVacations, messages.UpdateVacations{Vacations: windows}))

	list, err := c.Vacations.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "a", list[0].ID)

	// An inverted window is dropped and the stored list stays as it was.
	bad := []domain.VacationWindow{{ID: "x", DateStart: "2026-09-10", DateEnd: "2026-09-01"}}
	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeUpdateVacations, messages.UpdateVacations{Vacations: bad}))
	list, err = c.Vacations.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestCommands_NotificationSettings(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t)

	settings := domain.NotificationSettings{Enabled: true, Time: "23:59", Weekdays: []int{1, 2, 3, 4, 5}}
	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeUpdateNotificationSettings, messages.UpdateNotificationSettings{Settings: settings}))

	got, err := c.Reminders.Settings(ctx)
	require.NoError(t, err)
	assert.True(t, got.Enabled)
	assert.Equal(t, "23:59", got.Time)

	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeCancelNotifications, struct{}{}))
	var stored domain.NotificationSettings
	found, err := state.GetJSON(ctx, c.State, state.KeyNotificationSettings, &stored)
	require.NoError(t, err)
	require.True(t, found)
	assert.False(t, stored.Enabled)
}

func TestCommands_SkipWaitingActivatesCaches(t *testing.T) {
	ctx := context.Background()
	c, _, _ := newContainer(t)

	require.NoError(t, c.Caches.Put(ctx, "precache-v0", &cache.Entry{Key: "http://localhost:8080/", Status: http.StatusOK, StoredAt: time.Now()}))
	require.NoError(t, c.Emitter.Emit(ctx, messages.TypeSkipWaiting, struct{}{}))

	names, err := c.Caches.Names(ctx)
	require.NoError(t, err)
	assert.NotContains(t, names, "precache-v0")
}
