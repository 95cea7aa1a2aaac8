package agenda

import "time"

// JSON field names follow the persisted settings columns, so a canonical value
// serialized with Serialize can be stored and normalized again unchanged.

// WeeklyScheduleEntry is the opening window of one weekday.
type WeeklyScheduleEntry struct {
	Active   bool   `json:"ativo"`
	OpensAt  string `json:"inicio"`
	ClosesAt string `json:"fim"`
}

// WeeklySchedule is keyed by ISO weekday: "1" (Monday) through "7" (Sunday).
type WeeklySchedule map[string]WeeklyScheduleEntry

// Entry returns the entry for the weekday of t. Missing keys resolve to the
// built-in default for that weekday.
func (w WeeklySchedule) Entry(t time.Time) WeeklyScheduleEntry {
	key := WeekdayKey(t)
	if e, ok := w[key]; ok {
		return e
	}
	e, _ := DefaultWeekdayEntry(key)
	return e
}

type HolidayKind string

const (
	HolidayNational HolidayKind = "nacional"
	HolidayLocal    HolidayKind = "local"
)

// Holiday closes the clinic for a whole date.
type Holiday struct {
	Date        string      `json:"data"`
	Description string      `json:"descricao"`
	Kind        HolidayKind `json:"tipo"`
}

// ScheduleException overrides both the weekly schedule and holidays for a date.
type ScheduleException struct {
	Date     string `json:"data"`
	Active   bool   `json:"ativo"`
	OpensAt  string `json:"inicio"`
	ClosesAt string `json:"fim"`
	Reason   string `json:"motivo"`
}

// Config is the canonical agenda configuration of a clinic.
type Config struct {
	WeeklySchedule WeeklySchedule      `json:"horario_semanal"`
	Holidays       []Holiday           `json:"feriados"`
	Exceptions     []ScheduleException `json:"excecoes"`
}

// DefaultConfig returns the configuration used when nothing is persisted.
func DefaultConfig() *Config {
	return &Config{
		WeeklySchedule: DefaultWeeklySchedule(),
		Holidays:       []Holiday{},
		Exceptions:     []ScheduleException{},
	}
}

const dateLayout = "2006-01-02"

type window struct {
	opens, closes string
}

var defaultExceptionWindow = window{opens: "08:00", closes: "18:00"}

// WeekdayKeys lists the weekly schedule keys in ISO order.
var WeekdayKeys = [7]string{"1", "2", "3", "4", "5", "6", "7"}

// weekdayDefaults is indexed by ISO weekday - 1. Arrays are copied on read.
var weekdayDefaults = [7]WeeklyScheduleEntry{
	{Active: true, OpensAt: "08:00", ClosesAt: "14:00"},
	{Active: true, OpensAt: "08:00", ClosesAt: "14:00"},
	{Active: true, OpensAt: "08:00", ClosesAt: "14:00"},
	{Active: true, OpensAt: "08:00", ClosesAt: "14:00"},
	{Active: true, OpensAt: "08:00", ClosesAt: "14:00"},
	{Active: true, OpensAt: "09:00", ClosesAt: "13:00"},
	{Active: false, OpensAt: "09:00", ClosesAt: "13:00"},
}

var weekdayNames = [7]string{
	"segunda-feira",
	"terça-feira",
	"quarta-feira",
	"quinta-feira",
	"sexta-feira",
	"sábado",
	"domingo",
}

// DefaultWeeklySchedule returns a fresh copy of the built-in weekly template.
func DefaultWeeklySchedule() WeeklySchedule {
	out := make(WeeklySchedule, len(WeekdayKeys))
	for i, key := range WeekdayKeys {
		out[key] = weekdayDefaults[i]
	}
	return out
}

// DefaultWeekdayEntry returns the built-in entry for a weekday key.
func DefaultWeekdayEntry(key string) (WeeklyScheduleEntry, bool) {
	idx := weekdayIndex(key)
	if idx < 0 {
		return WeeklyScheduleEntry{}, false
	}
	return weekdayDefaults[idx], true
}

// WeekdayKey returns the ISO weekday key ("1".."7") of t.
func WeekdayKey(t time.Time) string {
	return WeekdayKeys[isoWeekdayIndex(t)]
}

// WeekdayName returns the Portuguese weekday name of t, e.g. "domingo".
func WeekdayName(t time.Time) string {
	return weekdayNames[isoWeekdayIndex(t)]
}

func isoWeekdayIndex(t time.Time) int {
	// time.Sunday is 0; ISO puts it last.
	return (int(t.Weekday()) + 6) % 7
}

func weekdayIndex(key string) int {
	for i, k := range WeekdayKeys {
		if k == key {
			return i
		}
	}
	return -1
}
