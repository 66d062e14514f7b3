package timecalc

import (
	"fmt"
	"time"

	"github.com/Tiliavir/horas/internal/model"
)

// WorklogHour is the local hour at which created worklogs are dated.
const WorklogHour = 18

// FormatDuration formats seconds as a human-readable string like "1h 40m" or "45m" or "30s".
func FormatDuration(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	if h > 0 {
		return fmt.Sprintf("%dh %dm", h, m)
	}
	if m > 0 {
		return fmt.Sprintf("%dm", m)
	}
	return fmt.Sprintf("%ds", s)
}

// FormatDurationHHMMSS formats seconds as HH:MM:SS.
func FormatDurationHHMMSS(seconds int64) string {
	h := seconds / 3600
	m := (seconds % 3600) / 60
	s := seconds % 60
	return fmt.Sprintf("%02d:%02d:%02d", h, m, s)
}

// WeekRange returns the Monday and Sunday of the ISO week containing t.
func WeekRange(t time.Time) (time.Time, time.Time) {
	// Go's weekday: Sunday=0, Monday=1, …, Saturday=6
	wd := int(t.Weekday())
	if wd == 0 {
		wd = 7 // treat Sunday as 7 (ISO)
	}
	y, m, d := t.Date()
	monday := DayStart(y, m, d-(wd-1), t.Location())
	sunday := DayStart(y, m, d-(wd-1)+6, t.Location())
	return monday, sunday
}

// ISOWeekLabel returns a label like "2026-W09".
func ISOWeekLabel(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

// DayStart returns the first instant of the civil date y-m-d in loc. That is
// local midnight, unless a DST transition skips midnight, in which case it is
// the instant the clocks jump to. Out-of-range days normalize like time.Date.
func DayStart(y int, m time.Month, d int, loc *time.Location) time.Time {
	t := time.Date(y, m, d, 0, 0, 0, 0, loc)
	want := time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
	if ty, tm, td := t.Date(); time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Before(want) {
		// time.Date resolved the missing midnight with the previous zone,
		// landing on the evening before. The day starts where that zone ends.
		if _, end := t.ZoneBounds(); !end.IsZero() {
			t = end.In(loc)
		}
	}
	return t
}

// StartOfDay returns the first instant of t's calendar day in t's location.
func StartOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return DayStart(y, m, d, t.Location())
}

// NextDay returns the first instant of the calendar day after day.
func NextDay(day time.Time) time.Time {
	y, m, d := day.Date()
	return DayStart(y, m, d+1, day.Location())
}

// DayKey formats t as a calendar day in its own location.
func DayKey(t time.Time) string {
	return t.Format(model.DateLayout)
}

// DayKeyIn formats the calendar day of instant t as observed in loc.
func DayKeyIn(t time.Time, loc *time.Location) string {
	return t.In(loc).Format(model.DateLayout)
}

// ParseDay parses a YYYY-MM-DD date as the start of that day in loc.
func ParseDay(s string, loc *time.Location) (time.Time, error) {
	d, err := time.Parse(model.DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DayStart(d.Year(), d.Month(), d.Day(), loc), nil
}

// Days returns the start of every calendar day in p, in loc. Days are walked
// by civil date, so DayKey of each entry is exactly one date of the period.
func Days(p model.Period, loc *time.Location) ([]time.Time, error) {
	fy, fm, fd := p.From.Date()
	ty, tm, td := p.To.Date()
	fromKey := time.Date(fy, fm, fd, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
	toKey := time.Date(ty, tm, td, 0, 0, 0, 0, time.UTC).Format(model.DateLayout)
	if toKey < fromKey {
		return nil, fmt.Errorf("period ends (%s) before it starts (%s)", toKey, fromKey)
	}
	var days []time.Time
	for i := 0; ; i++ {
		d := DayStart(fy, fm, fd+i, loc)
		if DayKey(d) > toKey {
			break
		}
		days = append(days, d)
	}
	return days, nil
}

// WorklogStart returns WorklogHour:00 on the given day in loc. Every run
// dates the same task at the same instant, whatever time the work happened.
func WorklogStart(date string, loc *time.Location) (time.Time, error) {
	d, err := ParseDay(date, loc)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(d.Year(), d.Month(), d.Day(), WorklogHour, 0, 0, 0, loc), nil
}
