package timeutil

import (
	"testing"
	"time"
)

func TestTimeToMinutes(t *testing.T) {
	tests := []struct {
		in   string
		want int
	}{
		{"09:30", 570},
		{"00:00", 0},
		{"23:59", 1439},
		{"7:05", 425},
		{"", 0},
		{"12", 720},
		{"10:3x", 603},
		{"ab:cd", 0},
		{"25:00", 60},
	}
	for _, tt := range tests {
		got := TimeToMinutes(tt.in)
		if got != tt.want {
			t.Errorf("TimeToMinutes(%q) = %d, want %d", tt.in, got, tt.want)
		}
	}
}

func TestParseClockRejectsMalformed(t *testing.T) {
	for _, in := range []string{"", "9", "24:00", "12:60", "12:5", "aa:bb", "123:00"} {
		if _, err := ParseClock(in); err == nil {
			t.Errorf("ParseClock(%q): expected error", in)
		}
	}
}

func TestMinutesToTime(t *testing.T) {
	tests := []struct {
		in   int
		want string
	}{
		{0, "00:00"},
		{570, "09:30"},
		{1439, "23:59"},
		{1440, "00:00"},
		{1500, "01:00"},
		{-30, "23:30"},
		{3 * 1440, "00:00"},
	}
	for _, tt := range tests {
		got := MinutesToTime(tt.in)
		if got != tt.want {
			t.Errorf("MinutesToTime(%d) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMinutesRoundTrip(t *testing.T) {
	for m := 0; m < 3*MinutesPerDay; m += 7 {
		want := MinutesToTime(m)
		got := MinutesToTime(TimeToMinutes(want))
		if got != want {
			t.Fatalf("round trip of %d: got %q, want %q", m, got, want)
		}
	}
}

func TestCurrentTimeString(t *testing.T) {
	now := time.Date(2024, 6, 10, 7, 4, 59, 0, time.UTC)
	if got := CurrentTimeString(now); got != "07:04" {
		t.Fatalf("got %q", got)
	}
}

func TestAddMinutesWrapsPastMidnight(t *testing.T) {
	if got := AddMinutes("23:00", 120); got != "01:00" {
		t.Fatalf("got %q, want 01:00", got)
	}
	if got := AddMinutes("09:15", 60); got != "10:15" {
		t.Fatalf("got %q, want 10:15", got)
	}
}

func TestSpanMinutes(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"09:00", "11:00", 120},
		{"23:00", "01:00", 120},
		{"10:00", "10:00", 0},
	}
	for _, tt := range tests {
		if got := SpanMinutes(tt.start, tt.end); got != tt.want {
			t.Errorf("SpanMinutes(%q, %q) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestDateKey(t *testing.T) {
	d := time.Date(2024, 1, 5, 23, 59, 0, 0, time.UTC)
	if got := DateKey(d); got != "2024-01-05" {
		t.Fatalf("got %q", got)
	}
}

func TestParseDateKey(t *testing.T) {
	d, err := ParseDateKey("2024-02-29", time.UTC)
	if err != nil {
		t.Fatal(err)
	}
	if d.Year() != 2024 || d.Month() != time.February || d.Day() != 29 {
		t.Fatalf("unexpected date %v", d)
	}
	if _, err := ParseDateKey("2023-02-29", time.UTC); err == nil {
		t.Fatal("expected error for invalid calendar date")
	}
	if _, err := ParseDateKey("garbage", nil); err == nil {
		t.Fatal("expected error for malformed key")
	}
}

func TestStartOfWeekIsSunday(t *testing.T) {
	// Wednesday 2024-01-03 -> Sunday 2023-12-31, crossing a year boundary.
	wed := time.Date(2024, 1, 3, 15, 0, 0, 0, time.UTC)
	got := StartOfWeek(wed)
	if DateKey(got) != "2023-12-31" || got.Hour() != 0 {
		t.Fatalf("got %v", got)
	}
	sun := time.Date(2024, 6, 9, 8, 0, 0, 0, time.UTC)
	if DateKey(StartOfWeek(sun)) != "2024-06-09" {
		t.Fatal("sunday should start its own week")
	}
}

func TestDaysBetween(t *testing.T) {
	a := time.Date(2024, 1, 1, 23, 0, 0, 0, time.UTC)
	b := time.Date(2024, 1, 5, 1, 0, 0, 0, time.UTC)
	if got := DaysBetween(a, b); got != 4 {
		t.Fatalf("got %d, want 4", got)
	}
	if got := DaysBetween(b, a); got != -4 {
		t.Fatalf("got %d, want -4", got)
	}
}

func TestDaysBetweenLongSpans(t *testing.T) {
	tests := []struct {
		a, b time.Time
		want int
	}{
		{time.Date(1700, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC), 118338},
		{time.Date(1, 1, 1, 0, 0, 0, 0, time.UTC), time.Date(9999, 12, 31, 0, 0, 0, 0, time.UTC), 3652058},
		{time.Date(9999, 12, 31, 12, 0, 0, 0, time.UTC), time.Date(1, 1, 1, 12, 0, 0, 0, time.UTC), -3652058},
	}
	for _, tt := range tests {
		if got := DaysBetween(tt.a, tt.b); got != tt.want {
			t.Errorf("DaysBetween(%s, %s) = %d, want %d", DateKey(tt.a), DateKey(tt.b), got, tt.want)
		}
	}
}
