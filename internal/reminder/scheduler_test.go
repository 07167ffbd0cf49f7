package reminder_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
	"github.com/felixgeelhaar/logmyjob/internal/shared/infrastructure/eventbus"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// mockNotifier records reminders and can be told to fail.
type mockNotifier struct {
	mu    sync.Mutex
	shown []reminder.Reminder
	err   error
}

func (n *mockNotifier) Notify(_ context.Context, r reminder.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.err != nil {
		return n.err
	}
	n.shown = append(n.shown, r)
	return nil
}

func (n *mockNotifier) Shown() []reminder.Reminder {
	n.mu.Lock()
	defer n.mu.Unlock()
	return append([]reminder.Reminder(nil), n.shown...)
}

type clock struct {
	mu  sync.Mutex
	now time.Time
}

func (c *clock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *clock) Set(t time.Time) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = t
}

func newScheduler(t *testing.T, store state.Store, notifier reminder.Notifier, at time.Time) (*reminder.Scheduler, *clock) {
	t.Helper()
	c := &clock{now: at}
	s := reminder.NewScheduler(store, notifier, paris, observability.NewInMemoryMetrics(), nil)
	s.SetClock(c.Now)
	return s, c
}

func TestScheduler_TuesdayScenario(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	notifier := &mockNotifier{}
	s, c := newScheduler(t, store, notifier, tuesday(17, 59))
	require.NoError(t, state.SetJSON(ctx, store, state.KeyNotificationSettings, enabled()))

	d, err := s.Check(ctx, reminder.SourceAppOpen)
	require.NoError(t, err)
	assert.False(t, d.Fire)
	assert.Equal(t, reminder.ReasonBeforeTime, d.Reason)

	c.Set(tuesday(18, 1))
	d, err = s.Check(ctx, reminder.SourcePeriodic)
	require.NoError(t, err)
	assert.True(t, d.Fire)

	for _, at := range []time.Time{tuesday(18, 2), tuesday(21, 0), tuesday(23, 59)} {
		c.Set(at)
		d, err = s.Check(ctx, reminder.SourceAppOpen)
		require.NoError(t, err)
		assert.False(t, d.Fire)
		assert.Equal(t, reminder.ReasonAlreadyFired, d.Reason)
	}

	shown := notifier.Shown()
	require.Len(t, shown, 1)
	assert.Equal(t, reminder.DailyReminder("2026-03-10"), shown[0])

	last, err := store.Get(ctx, state.KeyLastNotificationDate)
	require.NoError(t, err)
	assert.Equal(t, "2026-03-10", last)

	c.Set(time.Date(2026, 3, 11, 18, 30, 0, 0, paris))
	d, err = s.Check(ctx, reminder.SourcePeriodic)
	require.NoError(t, err)
	assert.True(t, d.Fire, "a new day resets the cycle")
}

func TestScheduler_ConcurrentChecksFireOnce(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	notifier := &mockNotifier{}
	s, _ := newScheduler(t, store, notifier, tuesday(19, 0))
	require.NoError(t, state.SetJSON(ctx, store, state.KeyNotificationSettings, enabled()))

	var wg sync.WaitGroup
	for range 20 {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := s.Check(ctx, reminder.SourcePeriodic)
			assert.NoError(t, err)
		}()
	}
	wg.Wait()
	assert.Len(t, notifier.Shown(), 1)
}

func TestScheduler_VacationSuppresses(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	notifier := &mockNotifier{}
	s, _ := newScheduler(t, store, notifier, tuesday(19, 0))
	require.NoError(t, state.SetJSON(ctx, store, state.KeyNotificationSettings, enabled()))
	require.NoError(t, state.SetJSON(ctx, store, state.KeyVacations, []domain.VacationWindow{
		{ID: "v1", DateStart: "2026-03-09", DateEnd: "2026-03-13", Type: "vacation"},
	}))

	d, err := s.Check(ctx, reminder.SourceAppOpen)
	require.NoError(t, err)
	assert.Equal(t, reminder.ReasonOnVacation, d.Reason)
	assert.Empty(t, notifier.Shown())
}

func TestScheduler_FailedDisplayIsRetried(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	notifier := &mockNotifier{err: errors.New("permission denied")}
	s, _ := newScheduler(t, store, notifier, tuesday(19, 0))
	require.NoError(t, state.SetJSON(ctx, store, state.KeyNotificationSettings, enabled()))

	_, err := s.Check(ctx, reminder.SourceAppOpen)
	assert.Error(t, err)
	last, err := store.Get(ctx, state.KeyLastNotificationDate)
	require.NoError(t, err)
	assert.Empty(t, last, "the claim is released")

	notifier.mu.Lock()
	notifier.err = nil
	notifier.mu.Unlock()

	d, err := s.Check(ctx, reminder.SourceAppOpen)
	require.NoError(t, err)
	assert.True(t, d.Fire)
}

func TestScheduler_RunWithoutInterval(t *testing.T) {
	store := state.NewMemoryStore()
	notifier := &mockNotifier{}
	s, _ := newScheduler(t, store, notifier, tuesday(19, 0))
	require.NoError(t, state.SetJSON(context.Background(), store, state.KeyNotificationSettings, enabled()))

	for _, interval := range []time.Duration{0, -time.Minute} {
		ctx, cancel := context.WithCancel(context.Background())
		done := make(chan error, 1)
		go func() { done <- s.Run(ctx, interval) }()

		require.Eventually(t, func() bool { return len(notifier.Shown()) == 1 }, time.Second, 10*time.Millisecond,
			"the first check runs immediately")
		cancel()
		select {
		case err := <-done:
			assert.ErrorIs(t, err, context.Canceled)
		case <-time.After(time.Second):
			t.Fatal("Run did not stop after cancel")
		}
	}
}

func TestSettingsService(t *testing.T) {
	ctx := context.Background()
	store := state.NewMemoryStore()
	notifier := &mockNotifier{}
	s, _ := newScheduler(t, store, notifier, tuesday(19, 0))
	svc := reminder.NewSettingsService(store, s)

	settings, err := svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, domain.DefaultNotificationSettings(), settings)

	_, err = svc.UpdateSettings(ctx, domain.NotificationSettings{Enabled: true, Time: "25:00", Weekdays: []int{1}})
	assert.Error(t, err)
	_, err = svc.UpdateSettings(ctx, domain.NotificationSettings{Enabled: true, Time: "18:00", Weekdays: []int{7}})
	assert.Error(t, err)

	d, err := svc.UpdateSettings(ctx, domain.NotificationSettings{Enabled: true, Time: "18:00", Weekdays: []int{5, 2, 2}})
	require.NoError(t, err)
	assert.True(t, d.Fire, "saving settings checks immediately")
	assert.Len(t, notifier.Shown(), 1)

	settings, err = svc.Settings(ctx)
	require.NoError(t, err)
	assert.Equal(t, []int{2, 5}, settings.Weekdays)

	require.NoError(t, svc.Cancel(ctx))
	settings, err = svc.Settings(ctx)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Equal(t, "18:00", settings.Time)
}

func TestEmitterNotifier(t *testing.T) {
	bus := eventbus.NewInProcessBus(nil)
	var got []messages.ShowNotification
	bus.RegisterHandler(eventbus.HandlerFunc{
		Types: []string{messages.TypeShowNotification},
		Fn: func(_ context.Context, env *eventbus.Envelope) error {
			n, err := messages.Decode[messages.ShowNotification](env)
			got = append(got, n)
			return err
		},
	})

	n := reminder.NewEmitterNotifier(messages.NewEmitter(bus, nil))
	require.NoError(t, n.Notify(context.Background(), reminder.DailyReminder("2026-03-10")))
	require.Len(t, got, 1)
	assert.Equal(t, "Log My Job", got[0].Title)
	assert.Equal(t, "daily-reminder", got[0].Tag)
}
