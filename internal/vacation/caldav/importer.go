// Package caldav imports absences from a CalDAV calendar (Apple Calendar,
// Fastmail, Nextcloud) or an .ics file as vacation windows, and exports
// vacation windows back as all-day events.
package caldav

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/emersion/go-ical"
	"github.com/emersion/go-webdav"
	"github.com/emersion/go-webdav/caldav"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

// PropXLogMyJob marks events written by Export.
const PropXLogMyJob = "X-LOGMYJOB"

// Windows is where imported windows end up. vacation.Service satisfies it.
type Windows interface {
	Add(ctx context.Context, w domain.VacationWindow) (domain.VacationWindow, error)
	List(ctx context.Context) ([]domain.VacationWindow, error)
}

// Result counts what an import did.
type Result struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Failed  int `json:"failed"`
}

// Importer reads absences from a CalDAV server.
type Importer struct {
	baseURL      string
	username     string
	password     string
	calendarPath string
	allDayOnly   bool
	httpClient   *http.Client
	logger       *slog.Logger
}

// NewImporter creates an importer for the server at baseURL. Only all-day
// events are imported unless WithTimedEvents is set.
func NewImporter(baseURL, username, password string, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	return &Importer{
		baseURL:    baseURL,
		username:   username,
		password:   password,
		allDayOnly: true,
		httpClient: &http.Client{Timeout: 30 * time.Second},
		logger:     logger,
	}
}

// WithCalendarPath sets the calendar to read; the first calendar of the
// user is used otherwise.
func (im *Importer) WithCalendarPath(path string) *Importer {
	im.calendarPath = path
	return im
}

// WithTimedEvents also imports events with a time of day, covering every
// date they touch.
func (im *Importer) WithTimedEvents(enabled bool) *Importer {
	im.allDayOnly = !enabled
	return im
}

// WithHTTPClient replaces the default client.
func (im *Importer) WithHTTPClient(c *http.Client) *Importer {
	im.httpClient = c
	return im
}

// Fetch returns the absences between from and to.
func (im *Importer) Fetch(ctx context.Context, from, to time.Time) ([]domain.VacationWindow, error) {
	client, err := im.client()
	if err != nil {
		return nil, err
	}
	calPath, err := im.findCalendarPath(ctx, client)
	if err != nil {
		return nil, fmt.Errorf("find calendar: %w", err)
	}

	query := &caldav.CalendarQuery{
		CompRequest: caldav.CalendarCompRequest{
			Name:  "VCALENDAR",
			Props: []string{"VERSION"},
			Comps: []caldav.CalendarCompRequest{{
				Name:  "VEVENT",
				Props: []string{"UID", "SUMMARY", "DTSTART", "DTEND", "CATEGORIES", PropXLogMyJob},
			}},
		},
		CompFilter: caldav.CompFilter{
			Name:  "VCALENDAR",
			Comps: []caldav.CompFilter{{Name: "VEVENT", Start: from, End: to}},
		},
	}
	objects, err := client.QueryCalendar(ctx, calPath, query)
	if err != nil {
		return nil, fmt.Errorf("query calendar: %w", err)
	}

	var windows []domain.VacationWindow
	for _, obj := range objects {
		if obj.Data == nil {
			continue
		}
		windows = append(windows, im.windows(obj.Data)...)
	}
	return windows, nil
}

// Import fetches absences and adds each to dst. Windows overlapping an
// existing one are skipped.
func (im *Importer) Import(ctx context.Context, dst Windows, from, to time.Time) (Result, error) {
	windows, err := im.Fetch(ctx, from, to)
	if err != nil {
		return Result{}, err
	}
	return Merge(ctx, dst, windows, im.logger), nil
}

// ImportFile reads an iCalendar stream and adds its absences to dst.
func (im *Importer) ImportFile(ctx context.Context, dst Windows, r io.Reader) (Result, error) {
	windows, err := im.ParseICS(r)
	if err != nil {
		return Result{}, err
	}
	return Merge(ctx, dst, windows, im.logger), nil
}

// ParseICS decodes every calendar in r and returns its absences.
func (im *Importer) ParseICS(r io.Reader) ([]domain.VacationWindow, error) {
	dec := ical.NewDecoder(r)
	var windows []domain.VacationWindow
	for {
		cal, err := dec.Decode()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("decode ics: %w", err)
		}
		windows = append(windows, im.windows(cal)...)
	}
	return windows, nil
}

// Merge adds windows to dst one by one.
func Merge(ctx context.Context, dst Windows, windows []domain.VacationWindow, logger *slog.Logger) Result {
	var res Result
	for _, w := range windows {
		if _, err := dst.Add(ctx, w); err != nil {
			if errors.Is(err, vacation.ErrOverlap) {
				res.Skipped++
				continue
			}
			logger.WarnContext(ctx, "vacation import failed", "start", w.DateStart, "end", w.DateEnd, "error", err)
			res.Failed++
			continue
		}
		res.Added++
	}
	return res
}

func (im *Importer) windows(cal *ical.Calendar) []domain.VacationWindow {
	var out []domain.VacationWindow
	for _, child := range cal.Children {
		if child.Name != ical.CompEvent {
			continue
		}
		w, ok := toWindow(child, im.allDayOnly)
		if !ok {
			continue
		}
		out = append(out, w)
	}
	return out
}

// toWindow converts a VEVENT. DTEND of an all-day event is exclusive, the
// window end is inclusive.
func toWindow(comp *ical.Component, allDayOnly bool) (domain.VacationWindow, bool) {
	event := &ical.Event{Component: comp}
	start, err := event.DateTimeStart(time.UTC)
	if err != nil {
		return domain.VacationWindow{}, false
	}
	allDay := isDateValue(comp.Props.Get(ical.PropDateTimeStart))
	if allDayOnly && !allDay {
		return domain.VacationWindow{}, false
	}

	end, err := event.DateTimeEnd(time.UTC)
	switch {
	case err != nil || !end.After(start):
		end = start
	case allDay:
		end = end.AddDate(0, 0, -1)
	default:
		// A timed event ending at midnight does not touch that day.
		end = end.Add(-time.Nanosecond)
	}

	w := domain.VacationWindow{
		DateStart: start.Format(domain.DateLayout),
		DateEnd:   end.Format(domain.DateLayout),
		Type:      typeOf(comp),
	}
	if uid := comp.Props.Get(ical.PropUID); uid != nil && comp.Props.Get(PropXLogMyJob) != nil {
		w.ID = uid.Value
	}
	return w, w.Validate() == nil
}

func isDateValue(p *ical.Prop) bool {
	if p == nil {
		return false
	}
	if p.ValueType() == ical.ValueDate {
		return true
	}
	return len(p.Value) == len("20060102")
}

// typeOf picks the window type from CATEGORIES or, failing that, SUMMARY.
func typeOf(comp *ical.Component) string {
	var words []string
	for _, p := range comp.Props[ical.PropCategories] {
		words = append(words, strings.ToLower(p.Value))
	}
	if p := comp.Props.Get(ical.PropSummary); p != nil {
		words = append(words, strings.ToLower(p.Value))
	}
	text := strings.Join(words, " ")
	switch {
	case strings.Contains(text, "sick"), strings.Contains(text, "malad"):
		return vacation.TypeSick
	case strings.Contains(text, "holiday"), strings.Contains(text, "férié"), strings.Contains(text, "ferie"):
		return vacation.TypeHoliday
	default:
		return vacation.TypeVacation
	}
}

func (im *Importer) client() (*caldav.Client, error) {
	client, err := caldav.NewClient(webdav.HTTPClientWithBasicAuth(im.httpClient, im.username, im.password), im.baseURL)
	if err != nil {
		return nil, fmt.Errorf("create caldav client: %w", err)
	}
	return client, nil
}

func (im *Importer) findCalendarPath(ctx context.Context, client *caldav.Client) (string, error) {
	if im.calendarPath != "" {
		return im.calendarPath, nil
	}
	principal, err := client.FindCurrentUserPrincipal(ctx)
	if err != nil {
		return "", fmt.Errorf("find principal: %w", err)
	}
	homeSet, err := client.FindCalendarHomeSet(ctx, principal)
	if err != nil {
		return "", fmt.Errorf("find calendar home set: %w", err)
	}
	cals, err := client.FindCalendars(ctx, homeSet)
	if err != nil {
		return "", fmt.Errorf("find calendars: %w", err)
	}
	if len(cals) == 0 {
		return "", errors.New("no calendars found")
	}
	return cals[0].Path, nil
}
