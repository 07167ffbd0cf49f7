package vacation

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/adapter/cli"
	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

func setup(t *testing.T) *vacation.Service {
	t.Helper()
	svc := vacation.NewService(state.NewMemoryStore())
	cli.SetApp(&cli.App{Vacations: svc})
	t.Cleanup(func() {
		cli.SetApp(nil)
		cli.SetJSONOutput(false)
		addFrom, addTo, addType = "", "", vacation.TypeVacation
		importFile, importFrom, importTo, importTimed = "", "", "", false
		exportICS = false
	})
	return svc
}

func run(t *testing.T, cmd *cobra.Command, args ...string) (string, error) {
	t.Helper()
	var out strings.Builder
	cmd.SetContext(context.Background())
	cmd.SetOut(&out)
	err := cmd.RunE(cmd, args)
	return out.String(), err
}

func TestAddListRemove(t *testing.T) {
	svc := setup(t)

	addFrom, addTo = "2026-08-03", "2026-08-21"
	cli.SetJSONOutput(true)
	out, err := run(t, addCmd)
	require.NoError(t, err)
	var added domain.VacationWindow
	require.NoError(t, json.Unmarshal([]byte(out), &added))
	assert.NotEmpty(t, added.ID)
	assert.Equal(t, vacation.TypeVacation, added.Type)

	addFrom, addTo, addType = "2026-08-10", "", vacation.TypeSick
	_, err = run(t, addCmd)
	assert.ErrorIs(t, err, vacation.ErrOverlap)

	addFrom, addType = "2026-11-11", vacation.TypeHoliday
	_, err = run(t, addCmd)
	require.NoError(t, err)

	out, err = run(t, listCmd)
	require.NoError(t, err)
	var windows []domain.VacationWindow
	require.NoError(t, json.Unmarshal([]byte(out), &windows))
	require.Len(t, windows, 2)
	assert.Equal(t, "2026-11-11", windows[1].DateEnd)

	cli.SetJSONOutput(false)
	out, err = run(t, removeCmd, added.ID)
	require.NoError(t, err)
	assert.Contains(t, out, added.ID)

	remaining, err := svc.List(context.Background())
	require.NoError(t, err)
	assert.Len(t, remaining, 1)
}

func TestAdd_RequiresFrom(t *testing.T) {
	setup(t)
	_, err := run(t, addCmd)
	assert.Error(t, err)
}

func TestList_Empty(t *testing.T) {
	setup(t)
	out, err := run(t, listCmd)
	require.NoError(t, err)
	assert.Equal(t, "No vacations.\n", out)

	cli.SetJSONOutput(true)
	out, err = run(t, listCmd)
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, out)
}

const absences = "BEGIN:VCALENDAR\r\n" +
	"VERSION:2.0\r\n" +
	"PRODID:-//Example//Calendar//EN\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:summer\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20260803\r\n" +
	"DTEND;VALUE=DATE:20260822\r\n" +
	"SUMMARY:Congés d'été\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART:20260310T090000Z\r\n" +
	"DTEND:20260310T093000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestImportFileAndExportICS(t *testing.T) {
	svc := setup(t)
	path := filepath.Join(t.TempDir(), "absences.ics")
	require.NoError(t, os.WriteFile(path, []byte(absences), 0o600))

	importFile = path
	out, err := run(t, importCmd)
	require.NoError(t, err)
	assert.Equal(t, "Imported 1, skipped 0, failed 0.\n", out)

	out, err = run(t, importCmd)
	require.NoError(t, err)
	assert.Equal(t, "Imported 0, skipped 1, failed 0.\n", out)

	windows, err := svc.List(context.Background())
	require.NoError(t, err)
	require.Len(t, windows, 1)
	assert.Equal(t, "2026-08-21", windows[0].DateEnd)

	exportICS = true
	out, err = run(t, exportCmd)
	require.NoError(t, err)
	assert.Contains(t, out, "BEGIN:VEVENT")
	assert.Contains(t, out, "DTEND;VALUE=DATE:20260822")
	assert.Contains(t, out, "X-LOGMYJOB:1")
}

func TestImport_WithoutCalDAV(t *testing.T) {
	setup(t)
	_, err := run(t, importCmd)
	assert.ErrorContains(t, err, "CalDAV not configured")
}
