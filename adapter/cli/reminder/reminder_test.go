package reminder

import (
	"context"
	"encoding/json"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/reminder"
)

type recordingNotifier struct {
	mu    sync.Mutex
	shown []reminder.Reminder
}

func (n *recordingNotifier) Notify(_ context.Context, r reminder.Reminder) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.shown = append(n.shown, r)
	return nil
}

func setup(t *testing.T, now time.Time) *recordingNotifier {
	t.Helper()
	store := state.NewMemoryStore()
	notifier := &recordingNotifier{}
	scheduler := reminder.NewScheduler(store, notifier, time.UTC, nil, nil)
	scheduler.SetClock(func() time.Time { return now })

	cli.SetApp(&cli.App{
		Scheduler: scheduler,
		Reminders: reminder.NewSettingsService(store, scheduler),
	})
	t.Cleanup(func() {
		cli.SetApp(nil)
		cli.SetJSONOutput(false)
		settingsCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })
		enable, atTime, weekdays = false, "", nil
	})
	return notifier
}

func run(t *testing.T, cmd *cobra.Command) string {
	t.Helper()
	var out strings.Builder
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	require.NoError(t, cmd.RunE(cmd, nil))
	return out.String()
}

// Tuesday 2026-10-13 19:00 UTC.
var tuesdayEvening = time.Date(2026, 10, 13, 19, 0, 0, 0, time.UTC)

func TestSettings_ShowsDefaults(t *testing.T) {
	setup(t, tuesdayEvening)
	out := run(t, settingsCmd)
	assert.Equal(t, "Reminders off at 18:00 on days 1,2,3,4,5\n", out)
}

func TestSettings_EnableFiresWhenDue(t *testing.T) {
	notifier := setup(t, tuesdayEvening)

	flags := settingsCmd.Flags()
	require.NoError(t, flags.Set("enable", "true"))
	require.NoError(t, flags.Set("time", "18:30"))
	require.NoError(t, flags.Set("weekdays", "2,1,2"))

	cli.SetJSONOutput(true)
	out := run(t, settingsCmd)

	var got struct {
		Settings struct {
			Enabled  bool   `json:"enabled"`
			Time     string `json:"time"`
			Weekdays []int  `json:"weekdays"`
		} `json:"settings"`
		Decision reminder.Decision `json:"decision"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.True(t, got.Settings.Enabled)
	assert.Equal(t, "18:30", got.Settings.Time)
	assert.Equal(t, []int{1, 2}, got.Settings.Weekdays)
	assert.True(t, got.Decision.Fire)
	assert.Equal(t, "2026-10-13", got.Decision.Date)
	assert.Len(t, notifier.shown, 1)

	cli.SetJSONOutput(false)
	out = run(t, checkCmd)
	assert.Contains(t, out, string(reminder.ReasonAlreadyFired))
	assert.Len(t, notifier.shown, 1)
}

func TestSettings_InvalidTime(t *testing.T) {
	setup(t, tuesdayEvening)
	require.NoError(t, settingsCmd.Flags().Set("time", "7pm"))

	settingsCmd.SetContext(context.Background())
	settingsCmd.SetOut(&strings.Builder{})
	assert.Error(t, settingsCmd.RunE(settingsCmd, nil))
}

func TestDisable(t *testing.T) {
	setup(t, tuesdayEvening)
	require.NoError(t, settingsCmd.Flags().Set("enable", "true"))
	run(t, settingsCmd)
	settingsCmd.Flags().VisitAll(func(f *pflag.Flag) { f.Changed = false })

	assert.Contains(t, run(t, disableCmd), "disabled")
	assert.Contains(t, run(t, settingsCmd), "Reminders off at 18:00")
}

func TestCheck_NotConfigured(t *testing.T) {
	cli.SetApp(nil)
	checkCmd.SetContext(context.Background())
	assert.Error(t, checkCmd.RunE(checkCmd, nil))
}
