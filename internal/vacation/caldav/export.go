package caldav

import (
	"bytes"
	"context"
	"fmt"
	"time"

	"github.com/emersion/go-ical"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
	"github.com/felixgeelhaar/logmyjob/internal/vacation"
)

const productID = "-//LogMyJob//Vacations//FR"

// Export writes each window as an all-day event named after its id, so
// exporting again updates rather than duplicates.
func (im *Importer) Export(ctx context.Context, windows []domain.VacationWindow) (int, error) {
	client, err := im.client()
	if err != nil {
		return 0, err
	}
	calPath, err := im.findCalendarPath(ctx, client)
	if err != nil {
		return 0, fmt.Errorf("find calendar: %w", err)
	}

	written := 0
	for _, w := range windows {
		cal, err := ToICalendar(w, time.Now())
		if err != nil {
			im.logger.WarnContext(ctx, "skipping vacation window", "id", w.ID, "error", err)
			continue
		}
		if _, err := client.PutCalendarObject(ctx, calPath+w.ID+".ics", cal); err != nil {
			return written, fmt.Errorf("put %s: %w", w.ID, err)
		}
		written++
	}
	return written, nil
}

// ToICalendar renders w as a calendar holding one all-day event.
func ToICalendar(w domain.VacationWindow, stamp time.Time) (*ical.Calendar, error) {
	if err := w.Validate(); err != nil {
		return nil, err
	}
	start, _ := time.Parse(domain.DateLayout, w.DateStart)
	end, _ := time.Parse(domain.DateLayout, w.DateEnd)

	cal := ical.NewCalendar()
	cal.Props.SetText(ical.PropVersion, "2.0")
	cal.Props.SetText(ical.PropProductID, productID)

	event := ical.NewEvent()
	event.Props.SetText(ical.PropUID, w.ID)
	event.Props.SetDateTime(ical.PropDateTimeStamp, stamp.UTC())
	event.Props.SetDate(ical.PropDateTimeStart, start)
	event.Props.SetDate(ical.PropDateTimeEnd, end.AddDate(0, 0, 1))
	event.Props.SetText(ical.PropSummary, summaries[w.Type])
	event.Props.SetText(ical.PropCategories, w.Type)

	marker := ical.NewProp(PropXLogMyJob)
	marker.Value = "1"
	event.Props[PropXLogMyJob] = []ical.Prop{*marker}

	cal.Children = append(cal.Children, event.Component)
	return cal, nil
}

// ToFeed renders every valid window into a single calendar. Invalid windows
// are left out.
func ToFeed(windows []domain.VacationWindow, stamp time.Time) *ical.Calendar {
	feed := ical.NewCalendar()
	feed.Props.SetText(ical.PropVersion, "2.0")
	feed.Props.SetText(ical.PropProductID, productID)
	for _, w := range windows {
		cal, err := ToICalendar(w, stamp)
		if err != nil {
			continue
		}
		feed.Children = append(feed.Children, cal.Children...)
	}
	return feed
}

var summaries = map[string]string{
	vacation.TypeVacation: "Congés",
	vacation.TypeSick:     "Arrêt maladie",
	vacation.TypeHoliday:  "Jour férié",
	vacation.TypeOther:    "Absence",
}

// Encode serializes cal.
func Encode(cal *ical.Calendar) (string, error) {
	var buf bytes.Buffer
	if err := ical.NewEncoder(&buf).Encode(cal); err != nil {
		return "", err
	}
	return buf.String(), nil
}
