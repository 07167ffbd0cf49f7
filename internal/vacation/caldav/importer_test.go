package caldav

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/emersion/go-ical"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/offline/state"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

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
	"UID:flu\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART;VALUE=DATE:20260216\r\n" +
	"DTEND;VALUE=DATE:20260217\r\n" +
	"SUMMARY:Absent\r\n" +
	"CATEGORIES:Sick\r\n" +
	"END:VEVENT\r\n" +
	"BEGIN:VEVENT\r\n" +
	"UID:standup\r\n" +
	"DTSTAMP:20260101T000000Z\r\n" +
	"DTSTART:20260310T090000Z\r\n" +
	"DTEND:20260310T093000Z\r\n" +
	"SUMMARY:Standup\r\n" +
	"END:VEVENT\r\n" +
	"END:VCALENDAR\r\n"

func TestParseICS_AllDayOnly(t *testing.T) {
	im := NewImporter("https://caldav.example.com", "user", "pass", nil)

	windows, err := im.ParseICS(strings.NewReader(absences))
	require.NoError(t, err)
	require.Len(t, windows, 2)

	assert.Equal(t, "2026-08-03", windows[0].DateStart)
	assert.Equal(t, "2026-08-21", windows[0].DateEnd)
	assert.Equal(t, vacation.TypeVacation, windows[0].Type)
	assert.Empty(t, windows[0].ID)

	assert.Equal(t, "2026-02-16", windows[1].DateStart)
	assert.Equal(t, "2026-02-16", windows[1].DateEnd)
	assert.Equal(t, vacation.TypeSick, windows[1].Type)
}

func TestParseICS_TimedEvents(t *testing.T) {
	im := NewImporter("https://caldav.example.com", "user", "pass", nil).WithTimedEvents(true)

	windows, err := im.ParseICS(strings.NewReader(absences))
	require.NoError(t, err)
	require.Len(t, windows, 3)
	assert.Equal(t, "2026-03-10", windows[2].DateStart)
	assert.Equal(t, "2026-03-10", windows[2].DateEnd)
}

func TestParseICS_Malformed(t *testing.T) {
	im := NewImporter("https://caldav.example.com", "user", "pass", nil)
	_, err := im.ParseICS(strings.NewReader("BEGIN:VCALENDAR\r\nBROKEN"))
	assert.Error(t, err)
}

func TestImportFile_SkipsOverlaps(t *testing.T) {
	ctx := context.Background()
	svc := vacation.NewService(state.NewMemoryStore())
	_, err := svc.Add(ctx, domain.VacationWindow{DateStart: "2026-08-10", DateEnd: "2026-08-12"})
	require.NoError(t, err)

	im := NewImporter("https://caldav.example.com", "user", "pass", nil)
	res, err := im.ImportFile(ctx, svc, strings.NewReader(absences))
	require.NoError(t, err)
	assert.Equal(t, Result{Added: 1, Skipped: 1}, res)

	list, err := svc.List(ctx)
	require.NoError(t, err)
	assert.Len(t, list, 2)
}

func TestToICalendar_RoundTrip(t *testing.T) {
	w := domain.VacationWindow{ID: "w-1", DateStart: "2026-12-24", DateEnd: "2026-12-31", Type: vacation.TypeHoliday}

	cal, err := ToICalendar(w, time.Date(2026, 3, 10, 8, 0, 0, 0, time.UTC))
	require.NoError(t, err)
	require.Len(t, cal.Children, 1)

	event := cal.Children[0]
	assert.Equal(t, ical.CompEvent, event.Name)
	assert.Equal(t, "w-1", event.Props.Get(ical.PropUID).Value)
	assert.Equal(t, "20261224", event.Props.Get(ical.PropDateTimeStart).Value)
	assert.Equal(t, "20270101", event.Props.Get(ical.PropDateTimeEnd).Value)
	assert.Equal(t, "1", event.Props.Get(PropXLogMyJob).Value)

	text, err := Encode(cal)
	require.NoError(t, err)

	im := NewImporter("https://caldav.example.com", "user", "pass", nil)
	back, err := im.ParseICS(strings.NewReader(text))
	require.NoError(t, err)
	require.Len(t, back, 1)
	assert.Equal(t, w.ID, back[0].ID)
	assert.Equal(t, w.DateStart, back[0].DateStart)
	assert.Equal(t, w.DateEnd, back[0].DateEnd)
	assert.Equal(t, vacation.TypeHoliday, back[0].Type)
}

func TestToICalendar_InvalidWindow(t *testing.T) {
	_, err := ToICalendar(domain.VacationWindow{ID: "x", DateStart: "2026-12-31", DateEnd: "2026-12-01"}, time.Now())
	assert.Error(t, err)
}

func TestToFeed_RoundTrip(t *testing.T) {
	windows := []domain.VacationWindow{
		{ID: "a", DateStart: "2026-08-03", DateEnd: "2026-08-21", Type: vacation.TypeVacation},
		{ID: "bad", DateStart: "2026-12-31", DateEnd: "2026-12-01", Type: vacation.TypeOther},
		{ID: "b", DateStart: "2026-11-11", DateEnd: "2026-11-11", Type: vacation.TypeHoliday},
	}
	feed := ToFeed(windows, time.Date(2026, 10, 1, 0, 0, 0, 0, time.UTC))
	require.Len(t, feed.Children, 2)

	ics, err := Encode(feed)
	require.NoError(t, err)

	parsed, err := NewImporter("", "", "", nil).ParseICS(strings.NewReader(ics))
	require.NoError(t, err)
	require.Len(t, parsed, 2)
	assert.Equal(t, "a", parsed[0].ID)
	assert.Equal(t, "2026-08-21", parsed[0].DateEnd)
	assert.Equal(t, vacation.TypeHoliday, parsed[1].Type)
}
