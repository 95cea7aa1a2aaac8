package agenda

import (
	"bytes"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/goccy/go-json"
)

// ParseRaw turns a persisted column value into a generic JSON structure.
// It accepts nil, JSON text (string, *string or []byte) or an already decoded
// value. Typed Go values are round-tripped through JSON so they normalize the
// same way as their persisted form. Empty or invalid JSON yields nil.
func ParseRaw(value interface{}) interface{} {
	switch v := value.(type) {
	case nil:
		return nil
	case string:
		return decodeJSON([]byte(v))
	case *string:
		if v == nil {
			return nil
		}
		return decodeJSON([]byte(*v))
	case []byte:
		return decodeJSON(v)
	case map[string]interface{}, []interface{}, bool, float64:
		return v
	default:
		b, err := json.Marshal(v)
		if err != nil {
			return nil
		}
		return decodeJSON(b)
	}
}

func decodeJSON(b []byte) interface{} {
	if len(bytes.TrimSpace(b)) == 0 {
		return nil
	}
	var out interface{}
	if err := json.Unmarshal(b, &out); err != nil {
		return nil
	}
	return out
}

// IsMalformed reports whether a non-empty persisted value failed to parse.
func IsMalformed(value interface{}) bool {
	switch v := value.(type) {
	case nil:
		return false
	case string:
		return strings.TrimSpace(v) != "" && ParseRaw(v) == nil
	case *string:
		return v != nil && IsMalformed(*v)
	case []byte:
		return IsMalformed(string(v))
	}
	return false
}

// NormalizeWeeklySchedule returns all seven weekdays, falling back to the
// built-in default per field.
func NormalizeWeeklySchedule(raw interface{}) WeeklySchedule {
	data, _ := ParseRaw(raw).(map[string]interface{})

	out := make(WeeklySchedule, len(WeekdayKeys))
	for i, key := range WeekdayKeys {
		def := weekdayDefaults[i]
		entry, _ := data[key].(map[string]interface{})

		opens, closes := normalizeWindow(entry["inicio"], entry["fim"], window{def.OpensAt, def.ClosesAt})
		out[key] = WeeklyScheduleEntry{
			Active:   coerceBool(entry["ativo"], def.Active),
			OpensAt:  opens,
			ClosesAt: closes,
		}
	}
	return out
}

// NormalizeHolidays keeps the first holiday seen for each date and sorts the
// result by date.
func NormalizeHolidays(raw interface{}) []Holiday {
	items, _ := ParseRaw(raw).([]interface{})

	seen := make(map[string]bool, len(items))
	out := make([]Holiday, 0, len(items))
	for _, item := range items {
		var h Holiday
		switch v := item.(type) {
		case string:
			date, ok := parseDate(v)
			if !ok {
				continue
			}
			h = Holiday{Date: date, Kind: HolidayLocal}
		case map[string]interface{}:
			date, ok := parseDate(v["data"])
			if !ok {
				continue
			}
			h = Holiday{
				Date:        date,
				Description: coerceText(v["descricao"]),
				Kind:        normalizeHolidayKind(v["tipo"]),
			}
		default:
			continue
		}

		if seen[h.Date] {
			continue
		}
		seen[h.Date] = true
		out = append(out, h)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// NormalizeExceptions keeps the last exception seen for each date and sorts
// the result by date.
func NormalizeExceptions(raw interface{}) []ScheduleException {
	items, _ := ParseRaw(raw).([]interface{})

	byDate := make(map[string]ScheduleException, len(items))
	for _, item := range items {
		m, ok := item.(map[string]interface{})
		if !ok {
			continue
		}
		date, ok := parseDate(m["data"])
		if !ok {
			continue
		}
		opens, closes := normalizeWindow(m["inicio"], m["fim"], defaultExceptionWindow)
		byDate[date] = ScheduleException{
			Date:     date,
			Active:   coerceBool(m["ativo"], false),
			OpensAt:  opens,
			ClosesAt: closes,
			Reason:   coerceText(m["motivo"]),
		}
	}

	out := make([]ScheduleException, 0, len(byDate))
	for _, exc := range byDate {
		out = append(out, exc)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Date < out[j].Date })
	return out
}

// NormalizeConfig normalizes the three persisted columns at once.
func NormalizeConfig(weekly, holidays, exceptions interface{}) *Config {
	return &Config{
		WeeklySchedule: NormalizeWeeklySchedule(weekly),
		Holidays:       NormalizeHolidays(holidays),
		Exceptions:     NormalizeExceptions(exceptions),
	}
}

// Serialize encodes a value for persistence. Non-ASCII text and HTML
// characters are written literally.
func Serialize(value interface{}) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(value); err != nil {
		return "", fmt.Errorf("encode agenda value: %w", err)
	}
	return strings.TrimRight(buf.String(), "\n"), nil
}

// normalizeWindow validates each bound on its own, then replaces the pair with
// the default when it is not strictly increasing.
func normalizeWindow(rawOpens, rawCloses interface{}, def window) (string, string) {
	opens, ok := parseClock(rawOpens)
	if !ok {
		opens = def.opens
	}
	closes, ok := parseClock(rawCloses)
	if !ok {
		closes = def.closes
	}

	o, _ := clockMinutes(opens)
	c, _ := clockMinutes(closes)
	if o >= c {
		return def.opens, def.closes
	}
	return opens, closes
}

// parseClock accepts exactly "HH:MM" with hour 00-23 and minute 00-59.
func parseClock(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	if _, ok := clockMinutes(s); !ok {
		return "", false
	}
	return s, true
}

func clockMinutes(s string) (int, bool) {
	if len(s) != 5 || s[2] != ':' {
		return 0, false
	}
	h, ok := twoDigits(s[0:2])
	if !ok || h > 23 {
		return 0, false
	}
	m, ok := twoDigits(s[3:5])
	if !ok || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}

func twoDigits(s string) (int, bool) {
	if s[0] < '0' || s[0] > '9' || s[1] < '0' || s[1] > '9' {
		return 0, false
	}
	return int(s[0]-'0')*10 + int(s[1]-'0'), true
}

func parseDate(v interface{}) (string, bool) {
	s, ok := v.(string)
	if !ok {
		return "", false
	}
	t, err := time.Parse(dateLayout, s)
	if err != nil {
		return "", false
	}
	return t.Format(dateLayout), true
}

// coerceBool applies truthiness to a decoded JSON value. Absent or null
// values take the fallback.
func coerceBool(v interface{}, fallback bool) bool {
	switch b := v.(type) {
	case nil:
		return fallback
	case bool:
		return b
	case float64:
		return b != 0
	case string:
		switch strings.ToLower(strings.TrimSpace(b)) {
		case "", "0", "false", "f", "no", "n", "off", "nao", "não":
			return false
		}
		return true
	case []interface{}:
		return len(b) > 0
	case map[string]interface{}:
		return len(b) > 0
	}
	return fallback
}

func coerceText(v interface{}) string {
	switch s := v.(type) {
	case nil:
		return ""
	case string:
		return strings.TrimSpace(s)
	case float64, bool:
		return fmt.Sprint(s)
	}
	return ""
}

func normalizeHolidayKind(v interface{}) HolidayKind {
	if s, ok := v.(string); ok && s == string(HolidayNational) {
		return HolidayNational
	}
	return HolidayLocal
}
