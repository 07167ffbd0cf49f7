// Package reminder decides when the daily "log your day" reminder is due
// and shows it at most once per calendar day.
//
// Nothing here keeps a timer. Every invocation re-evaluates the decision
// from persisted state, so it stays correct however often, or rarely, it
// is called.
package reminder

import (
	"time"

	"github.com/felixgeelhaar/logmyjob/internal/offline/domain"
)

// Reason explains a Decision.
type Reason string

const (
	ReasonDisabled        Reason = "disabled"
	ReasonInactiveWeekday Reason = "inactive-weekday"
	ReasonBeforeTime      Reason = "before-time"
	ReasonAlreadyFired    Reason = "already-fired"
	ReasonOnVacation      Reason = "on-vacation"
	ReasonFire            Reason = "fire"
)

// Decision is the outcome of one evaluation.
type Decision struct {
	Fire   bool   `json:"fire"`
	Reason Reason `json:"reason"`
	Date   string `json:"date"`
}

// Decide evaluates the rules in order against local time now. lastFired is
// the ISO date of the last reminder, empty when none was ever shown.
func Decide(now time.Time, settings domain.NotificationSettings, lastFired string, vacations []domain.VacationWindow) Decision {
	today := now.Format(domain.DateLayout)
	no := func(r Reason) Decision { return Decision{Reason: r, Date: today} }

	if !settings.Enabled {
		return no(ReasonDisabled)
	}
	if !settings.ActiveOn(now.Weekday()) {
		return no(ReasonInactiveWeekday)
	}
	target, err := settings.TargetMinute()
	if err != nil || now.Hour()*60+now.Minute() < target {
		return no(ReasonBeforeTime)
	}
	if lastFired == today {
		return no(ReasonAlreadyFired)
	}
	for _, v := range vacations {
		if v.Contains(today) {
			return no(ReasonOnVacation)
		}
	}
	return Decision{Fire: true, Reason: ReasonFire, Date: today}
}
