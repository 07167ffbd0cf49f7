package domain

import (
	"fmt"
	"slices"
	"sort"
	"strconv"
	"strings"
	"time"
)

// DateLayout is the ISO calendar date used by every persisted marker.
const DateLayout = "2006-01-02"

// NotificationSettings configures the daily reminder.
type NotificationSettings struct {
	Enabled bool   `json:"enabled"`
	Time    string `json:"time"`
	// Weekdays holds active days, 0 = Sunday .. 6 = Saturday.
	Weekdays []int `json:"weekdays"`
}

// DefaultNotificationSettings is used until the user saves settings.
func DefaultNotificationSettings() NotificationSettings {
	return NotificationSettings{
		Enabled:  false,
		Time:     "18:00",
		Weekdays: []int{1, 2, 3, 4, 5},
	}
}

// Validate checks the time format and weekday range.
func (s NotificationSettings) Validate() error {
	if _, err := s.TargetMinute(); err != nil {
		return err
	}
	for _, d := range s.Weekdays {
		if d < 0 || d > 6 {
			return fmt.Errorf("weekday %d out of range 0..6", d)
		}
	}
	return nil
}

// Normalize sorts and deduplicates weekdays.
func (s NotificationSettings) Normalize() NotificationSettings {
	days := append([]int(nil), s.Weekdays...)
	sort.Ints(days)
	s.Weekdays = slices.Compact(days)
	return s
}

// TargetMinute returns the configured time as minutes after midnight.
func (s NotificationSettings) TargetMinute() (int, error) {
	hh, mm, ok := strings.Cut(s.Time, ":")
	if !ok || len(hh) != 2 || len(mm) != 2 {
		return 0, fmt.Errorf("time %q is not HH:MM", s.Time)
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("time %q has an invalid hour", s.Time)
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("time %q has invalid minutes", s.Time)
	}
	return h*60 + m, nil
}

// ActiveOn reports whether reminders are wanted on the given weekday.
func (s NotificationSettings) ActiveOn(day time.Weekday) bool {
	return slices.Contains(s.Weekdays, int(day))
}

// VacationWindow is a date range, inclusive at both ends, during which
// reminders are suppressed.
type VacationWindow struct {
	ID        string    `json:"id"`
	DateStart string    `json:"date_start"`
	DateEnd   string    `json:"date_end"`
	Type      string    `json:"type"`
	CreatedAt time.Time `json:"created_at"`
}

// Validate checks both dates parse and the range is not inverted.
func (v VacationWindow) Validate() error {
	start, err := time.Parse(DateLayout, v.DateStart)
	if err != nil {
		return fmt.Errorf("invalid start date %q: %w", v.DateStart, err)
	}
	end, err := time.Parse(DateLayout, v.DateEnd)
	if err != nil {
		return fmt.Errorf("invalid end date %q: %w", v.DateEnd, err)
	}
	if end.Before(start) {
		return fmt.Errorf("end date %s is before start date %s", v.DateEnd, v.DateStart)
	}
	return nil
}

// Contains reports whether the ISO date falls inside the window. ISO dates
// order lexically, so no parsing is needed.
func (v VacationWindow) Contains(date string) bool {
	return v.DateStart <= date && date <= v.DateEnd
}

// Overlaps reports whether two windows share at least one day.
func (v VacationWindow) Overlaps(o VacationWindow) bool {
	return v.DateStart <= o.DateEnd && o.DateStart <= v.DateEnd
}
