package reminder

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/messages"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/pkg/observability"
)

// Source names what invoked a check.
type Source string

const (
	SourceSettingsChange Source = "settings-change"
	SourceAppOpen        Source = "app-open"
	SourcePeriodic       Source = "periodic"
	SourceManual         Source = "manual"
)

// Reminder is the notification content.
type Reminder struct {
	Title string
	Body  string
	Tag   string
	Date  string
}

// DailyReminder is the reminder shown for date.
func DailyReminder(date string) Reminder {
	return Reminder{
		Title: "Log My Job",
		Body:  "N'oublie pas de logger ta journée client !",
		Tag:   "daily-reminder",
		Date:  date,
	}
}

// Notifier displays a reminder.
type Notifier interface {
	Notify(ctx context.Context, r Reminder) error
}

// EmitterNotifier shows reminders by publishing show-notification.
type EmitterNotifier struct {
	emitter *messages.Emitter
}

// NewEmitterNotifier creates the notifier.
func NewEmitterNotifier(emitter *messages.Emitter) *EmitterNotifier {
	return &EmitterNotifier{emitter: emitter}
}

// Notify implements Notifier.
func (n *EmitterNotifier) Notify(ctx context.Context, r Reminder) error {
	return n.emitter.Emit(ctx, messages.TypeShowNotification, messages.ShowNotification{
		Title: r.Title,
		Body:  r.Body,
		Tag:   r.Tag,
		Date:  r.Date,
	})
}

// Scheduler evaluates Decide against persisted state and fires the reminder.
type Scheduler struct {
	state    state.Store
	notifier Notifier
	location *time.Location
	now      func() time.Time
	metrics  observability.Metrics
	logger   *slog.Logger
}

// NewScheduler creates a scheduler evaluating local time in loc.
func NewScheduler(store state.Store, notifier Notifier, loc *time.Location, metrics observability.Metrics, logger *slog.Logger) *Scheduler {
	if loc == nil {
		loc = time.Local
	}
	if metrics == nil {
		metrics = observability.NoopMetrics{}
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scheduler{
		state:    store,
		notifier: notifier,
		location: loc,
		now:      time.Now,
		metrics:  metrics,
		logger:   logger,
	}
}

// SetClock overrides the time source.
func (s *Scheduler) SetClock(now func() time.Time) {
	s.now = now
}

// Settings loads the saved settings, or the defaults.
func (s *Scheduler) Settings(ctx context.Context) (domain.NotificationSettings, error) {
	settings := domain.DefaultNotificationSettings()
	if _, err := state.GetJSON(ctx, s.state, state.KeyNotificationSettings, &settings); err != nil {
		return settings, err
	}
	return settings, nil
}

// Check decides and, when due, claims today and shows the reminder.
// Claiming is a compare-and-swap on the last-fired marker, so concurrent
// checks show at most one reminder per day.
func (s *Scheduler) Check(ctx context.Context, source Source) (Decision, error) {
	s.metrics.Counter(observability.MetricReminderChecks, 1, observability.T("source", string(source)))

	settings, err := s.Settings(ctx)
	if err != nil {
		return Decision{}, fmt.Errorf("load notification settings: %w", err)
	}
	lastFired, err := s.state.Get(ctx, state.KeyLastNotificationDate)
	if err != nil {
		return Decision{}, fmt.Errorf("load last notification date: %w", err)
	}
	var vacations []domain.VacationWindow
	if _, err := state.GetJSON(ctx, s.state, state.KeyVacations, &vacations); err != nil {
		// A reminder during a vacation is a smaller harm than none at all.
		s.logger.WarnContext(ctx, "vacations unavailable, checking without them", "error", err)
	}

	d := Decide(s.now().In(s.location), settings, lastFired, vacations)
	if !d.Fire {
		s.logger.DebugContext(ctx, "reminder not due", "source", source, "reason", d.Reason, "date", d.Date)
		return d, nil
	}

	claimed, err := s.state.CompareAndSwap(ctx, state.KeyLastNotificationDate, lastFired, d.Date)
	if err != nil {
		return Decision{}, fmt.Errorf("claim reminder for %s: %w", d.Date, err)
	}
	if !claimed {
		return Decision{Reason: ReasonAlreadyFired, Date: d.Date}, nil
	}

	if err := s.notifier.Notify(ctx, DailyReminder(d.Date)); err != nil {
		s.release(ctx, lastFired, d.Date)
		return Decision{}, fmt.Errorf("show reminder: %w", err)
	}

	s.metrics.Counter(observability.MetricReminderFired, 1, observability.T("source", string(source)))
	s.logger.InfoContext(ctx, "daily reminder shown", "source", source, "date", d.Date)
	return d, nil
}

// release gives today back after a failed display so a later check retries.
func (s *Scheduler) release(ctx context.Context, previous, today string) {
	ctx = context.WithoutCancel(ctx)
	var err error
	if previous == "" {
		err = s.state.Delete(ctx, state.KeyLastNotificationDate)
	} else {
		_, err = s.state.CompareAndSwap(ctx, state.KeyLastNotificationDate, today, previous)
	}
	if err != nil {
		s.logger.ErrorContext(ctx, "failed to release reminder claim", "date", today, "error", err)
	}
}

// DefaultInterval is the periodic check interval used when none is given.
const DefaultInterval = 15 * time.Minute

// Run checks on every tick until ctx is cancelled. A non-positive interval
// falls back to DefaultInterval.
func (s *Scheduler) Run(ctx context.Context, interval time.Duration) error {
	if interval <= 0 {
		interval = DefaultInterval
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	s.check(ctx, SourcePeriodic)
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case <-ticker.C:
			s.check(ctx, SourcePeriodic)
		}
	}
}

func (s *Scheduler) check(ctx context.Context, source Source) {
	if _, err := s.Check(ctx, source); err != nil {
		s.logger.ErrorContext(ctx, "reminder check failed", "source", source, "error", err)
	}
}
