package agenda

import (
	"fmt"
	"time"
)

// Rejection reasons are shown to clinic staff as-is.
const (
	ReasonMissingRange  = "start and end are required."
	ReasonInvalidRange  = "invalid time range: end must be after start."
	ReasonCrossesDay    = "appointment must start and end on the same day."
	reasonExceptionShut = "schedule closed due to a date-specific closure"
	reasonHoliday       = "schedule closed for a holiday"
	reasonWeekdayShut   = "schedule closed on %s"
	reasonOutsideHours  = "requested time falls outside %s (%s to %s)."
)

// WindowSource tells which rule decided a date's opening window.
type WindowSource string

const (
	SourceException WindowSource = "exception"
	SourceHoliday   WindowSource = "holiday"
	SourceWeekly    WindowSource = "weekly"
)

// DayStatus is the resolved agenda of a single date.
type DayStatus struct {
	Date     string       `json:"date"`
	Weekday  string       `json:"weekday"`
	Open     bool         `json:"open"`
	OpensAt  string       `json:"opens_at,omitempty"`
	ClosesAt string       `json:"closes_at,omitempty"`
	Source   WindowSource `json:"source"`
	Reason   string       `json:"reason,omitempty"`
}

// ResolveDay applies exceptions, then holidays, then the weekly schedule to
// the calendar date of day. The first rule that matches decides.
func ResolveDay(day time.Time, weekly WeeklySchedule, holidays []Holiday, exceptions []ScheduleException) DayStatus {
	status := DayStatus{
		Date:    day.Format(dateLayout),
		Weekday: WeekdayName(day),
	}

	if exc, ok := findException(exceptions, status.Date); ok {
		status.Source = SourceException
		if !exc.Active {
			status.Reason = withDetail(reasonExceptionShut, exc.Reason)
			return status
		}
		status.Open = true
		status.OpensAt, status.ClosesAt = normalizeWindow(exc.OpensAt, exc.ClosesAt, defaultExceptionWindow)
		return status
	}

	if h, ok := findHoliday(holidays, status.Date); ok {
		status.Source = SourceHoliday
		status.Reason = withDetail(reasonHoliday, h.Description)
		return status
	}

	status.Source = SourceWeekly
	entry := weekly.Entry(day)
	if !entry.Active {
		status.Reason = fmt.Sprintf(reasonWeekdayShut, status.Weekday) + "."
		return status
	}
	def, _ := DefaultWeekdayEntry(WeekdayKey(day))
	status.Open = true
	status.OpensAt, status.ClosesAt = normalizeWindow(entry.OpensAt, entry.ClosesAt, window{def.OpensAt, def.ClosesAt})
	return status
}

// ValidateAvailability reports whether an appointment from start to end (local
// wall-clock times) fits the clinic agenda. When it does not, the second value
// explains why. It never fails and has no side effects.
func ValidateAvailability(start, end time.Time, weekly WeeklySchedule, holidays []Holiday, exceptions []ScheduleException) (bool, string) {
	if start.IsZero() || end.IsZero() {
		return false, ReasonMissingRange
	}
	if !end.After(start) {
		return false, ReasonInvalidRange
	}
	if !sameDate(start, end) {
		return false, ReasonCrossesDay
	}

	day := ResolveDay(start, weekly, holidays, exceptions)
	if !day.Open {
		return false, day.Reason
	}

	opens, _ := clockMinutes(day.OpensAt)
	closes, _ := clockMinutes(day.ClosesAt)
	if minuteOfDay(start) < opens || minuteOfDay(end) > closes {
		hours := "business hours"
		if day.Source == SourceException {
			hours = "this date's exception hours"
		}
		return false, fmt.Sprintf(reasonOutsideHours, hours, day.OpensAt, day.ClosesAt)
	}
	return true, ""
}

// Validate is ValidateAvailability against a canonical config.
func (c *Config) Validate(start, end time.Time) (bool, string) {
	return ValidateAvailability(start, end, c.WeeklySchedule, c.Holidays, c.Exceptions)
}

func findException(exceptions []ScheduleException, date string) (ScheduleException, bool) {
	for _, exc := range exceptions {
		if exc.Date == date {
			return exc, true
		}
	}
	return ScheduleException{}, false
}

func findHoliday(holidays []Holiday, date string) (Holiday, bool) {
	for _, h := range holidays {
		if h.Date == date {
			return h, true
		}
	}
	return Holiday{}, false
}

func withDetail(reason, detail string) string {
	if detail == "" {
		return reason + "."
	}
	return fmt.Sprintf("%s (%s).", reason, detail)
}

func sameDate(a, b time.Time) bool {
	ay, am, ad := a.Date()
	by, bm, bd := b.Date()
	return ay == by && am == bm && ad == bd
}

func minuteOfDay(t time.Time) int {
	return t.Hour()*60 + t.Minute()
}
