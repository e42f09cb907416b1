// Package timeutil converts between clock strings, minute offsets and
// canonical date keys.
package timeutil

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

const (
	MinutesPerDay = 24 * 60

	// DateLayout is the canonical date key format. Keys are fixed width and
	// zero padded, so lexicographic order equals chronological order.
	DateLayout  = "2006-01-02"
	ClockLayout = "15:04"
)

// TimeToMinutes returns the minutes since midnight for an "HH:MM" string.
// Empty input is 0. Malformed input keeps the leading digits of each
// component and the result is folded into [0, 1439].
func TimeToMinutes(s string) int {
	if m, err := ParseClock(s); err == nil {
		return m
	}
	hPart, mPart, _ := strings.Cut(strings.TrimSpace(s), ":")
	total := leadingInt(hPart)*60 + leadingInt(mPart)
	return wrap(total)
}

// ParseClock is the strict form of TimeToMinutes.
func ParseClock(s string) (int, error) {
	hPart, mPart, ok := strings.Cut(s, ":")
	if !ok || len(hPart) == 0 || len(hPart) > 2 || len(mPart) != 2 {
		return 0, fmt.Errorf("parse clock %q: want HH:MM", s)
	}
	h, err := strconv.Atoi(hPart)
	if err != nil || h < 0 || h > 23 {
		return 0, fmt.Errorf("parse clock %q: bad hour", s)
	}
	m, err := strconv.Atoi(mPart)
	if err != nil || m < 0 || m > 59 {
		return 0, fmt.Errorf("parse clock %q: bad minute", s)
	}
	return h*60 + m, nil
}

// MinutesToTime formats minutes since midnight as "HH:MM", wrapping past
// midnight in either direction.
func MinutesToTime(m int) string {
	m = wrap(m)
	return fmt.Sprintf("%02d:%02d", m/60, m%60)
}

// CurrentTimeString returns the wall-clock time of now as "HH:MM".
func CurrentTimeString(now time.Time) string {
	return fmt.Sprintf("%02d:%02d", now.Hour(), now.Minute())
}

// AddMinutes returns the clock time n minutes after start.
func AddMinutes(start string, n int) string {
	return MinutesToTime(TimeToMinutes(start) + n)
}

// SpanMinutes returns the length of the start..end span. An end before the
// start means the span runs into the next day.
func SpanMinutes(start, end string) int {
	s, e := TimeToMinutes(start), TimeToMinutes(end)
	if e < s {
		e += MinutesPerDay
	}
	return e - s
}

// DateKey returns the canonical "YYYY-MM-DD" key of t in t's location.
func DateKey(t time.Time) string {
	return t.Format(DateLayout)
}

// ParseDateKey parses a date key as midnight in loc.
func ParseDateKey(key string, loc *time.Location) (time.Time, error) {
	if loc == nil {
		loc = time.Local
	}
	t, err := time.ParseInLocation(DateLayout, key, loc)
	if err != nil {
		return time.Time{}, fmt.Errorf("parse date key %q: %w", key, err)
	}
	return t, nil
}

// StartOfDay truncates t to midnight in its own location.
func StartOfDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, t.Location())
}

// StartOfWeek returns midnight of the Sunday on or before t.
func StartOfWeek(t time.Time) time.Time {
	day := StartOfDay(t)
	return day.AddDate(0, 0, -int(day.Weekday()))
}

// AddDays shifts t by n calendar days, keeping the wall clock.
func AddDays(t time.Time, n int) time.Time {
	return t.AddDate(0, 0, n)
}

// DaysBetween counts calendar days from a to b, ignoring clock time and DST.
func DaysBetween(a, b time.Time) int {
	ua := time.Date(a.Year(), a.Month(), a.Day(), 0, 0, 0, 0, time.UTC)
	ub := time.Date(b.Year(), b.Month(), b.Day(), 0, 0, 0, 0, time.UTC)
	return int((ub.Unix() - ua.Unix()) / 86400)
}

func wrap(m int) int {
	m %= MinutesPerDay
	if m < 0 {
		m += MinutesPerDay
	}
	return m
}

func leadingInt(s string) int {
	s = strings.TrimSpace(s)
	n := 0
	for _, r := range s {
		if r < '0' || r > '9' {
			break
		}
		n = n*10 + int(r-'0')
		if n > MinutesPerDay*60 {
			break
		}
	}
	return n
}
