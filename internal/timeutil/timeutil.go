// Package timeutil converts between "HH:MM" clock text and minute-of-day
// integers, and provides the weekday/date-range helpers used by slot
// generation. Stored clock values are text but are never compared lexically;
// everything goes through minutes.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	// MinutesPerDay bounds valid minute-of-day values: [0, 1440).
	MinutesPerDay = 24 * 60

	// DateLayout is the wire/storage format for calendar dates.
	DateLayout = "2006-01-02"
)

// ParseClock parses "HH:MM" into minutes from midnight.
func ParseClock(s string) (int, error) {
	parts := strings.Split(strings.TrimSpace(s), ":")
	if len(parts) != 2 {
		return 0, fmt.Errorf("invalid time %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(parts[0])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	m, err := strconv.Atoi(parts[1])
	if err != nil {
		return 0, fmt.Errorf("invalid time %q: %w", s, err)
	}
	if h < 0 || h > 23 || m < 0 || m > 59 {
		return 0, fmt.Errorf("invalid time %q: out of range", s)
	}
	return h*60 + m, nil
}

// FormatClock renders minutes from midnight as zero-padded "HH:MM".
func FormatClock(minutes int) string {
	return fmt.Sprintf("%02d:%02d", minutes/60, minutes%60)
}

// Overlaps reports whether two half-open minute intervals [aStart,aEnd) and
// [bStart,bEnd) intersect.
func Overlaps(aStart, aEnd, bStart, bEnd int) bool {
	return aStart < bEnd && aEnd > bStart
}

// weekdayNames is the fixed lookup from pattern day names to time.Weekday.
var weekdayNames = map[string]time.Weekday{
	"sunday":    time.Sunday,
	"monday":    time.Monday,
	"tuesday":   time.Tuesday,
	"wednesday": time.Wednesday,
	"thursday":  time.Thursday,
	"friday":    time.Friday,
	"saturday":  time.Saturday,
}

// WeekdayNumber resolves a day name such as "Monday" (case-insensitive) to
// its time.Weekday. The second return is false for unknown names.
func WeekdayNumber(name string) (time.Weekday, bool) {
	wd, ok := weekdayNames[strings.ToLower(strings.TrimSpace(name))]
	return wd, ok
}

// ParseDate parses a "YYYY-MM-DD" date in UTC.
func ParseDate(s string) (time.Time, error) {
	d, err := time.ParseInLocation(DateLayout, s, time.UTC)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: want YYYY-MM-DD", s)
	}
	return d, nil
}

// FormatDate renders a date as "YYYY-MM-DD".
func FormatDate(t time.Time) string {
	return t.Format(DateLayout)
}

// DatesForWeekday returns every date in [start, end] (inclusive, day
// granularity) falling on the given weekday.
func DatesForWeekday(start, end time.Time, wd time.Weekday) []time.Time {
	var dates []time.Time
	// Advance to the first occurrence of wd at or after start.
	cur := start.AddDate(0, 0, (7+int(wd)-int(start.Weekday()))%7)
	for !cur.After(end) {
		dates = append(dates, cur)
		cur = cur.AddDate(0, 0, 7)
	}
	return dates
}
