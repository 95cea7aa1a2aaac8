package agenda

import (
	"errors"
	"time"
)

// MaxCalendarDays bounds a single calendar query.
const MaxCalendarDays = 366

var (
	ErrCalendarOrder = errors.New("calendar end date is before start date")
	ErrCalendarSpan  = errors.New("calendar range exceeds 366 days")
)

// ParseDate parses a "YYYY-MM-DD" date as midnight UTC.
func ParseDate(s string) (time.Time, error) {
	return time.Parse(dateLayout, s)
}

// ResolveRange resolves every date from 'from' to 'to', both inclusive.
func (c *Config) ResolveRange(from, to time.Time) ([]DayStatus, error) {
	first := truncateDate(from)
	last := truncateDate(to)
	if last.Before(first) {
		return nil, ErrCalendarOrder
	}
	if int(last.Sub(first).Hours()/24)+1 > MaxCalendarDays {
		return nil, ErrCalendarSpan
	}

	var days []DayStatus
	for d := first; !d.After(last); d = d.AddDate(0, 0, 1) {
		days = append(days, ResolveDay(d, c.WeeklySchedule, c.Holidays, c.Exceptions))
	}
	return days, nil
}

func truncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
