// Package window resolves symbolic date ranges into inclusive date-key
// bounds and filters tasks by them.
package window

import (
	"fmt"
	"strings"
	"time"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
)

type Range string

const (
	RangeAll         Range = "all"
	RangeLast7Days   Range = "7d"
	RangeLast30Days  Range = "30d"
	RangeCurrentWeek Range = "week"
	RangeCustom      Range = "custom"
)

// Ranges lists the selectable ranges in menu order.
var Ranges = []Range{RangeAll, RangeLast7Days, RangeLast30Days, RangeCurrentWeek, RangeCustom}

var rangeLabels = map[Range]string{
	RangeAll:         "All time",
	RangeLast7Days:   "Last 7 days",
	RangeLast30Days:  "Last 30 days",
	RangeCurrentWeek: "This week",
	RangeCustom:      "Custom",
}

func (r Range) Label() string {
	if l, ok := rangeLabels[r]; ok {
		return l
	}
	return string(r)
}

// Next returns the following range in menu order.
func (r Range) Next() Range {
	for i, x := range Ranges {
		if x == r {
			return Ranges[(i+1)%len(Ranges)]
		}
	}
	return RangeAll
}

// Selector is a range request. Start and End are date keys and only matter
// for RangeCustom.
type Selector struct {
	Range Range  `json:"range" yaml:"range"`
	Start string `json:"start,omitempty" yaml:"start,omitempty"`
	End   string `json:"end,omitempty" yaml:"end,omitempty"`
}

func All() Selector { return Selector{Range: RangeAll} }

func Custom(start, end string) Selector {
	return Selector{Range: RangeCustom, Start: start, End: end}
}

// Parse reads "all", "7d", "30d", "week" or "custom:START..END".
func Parse(s string) (Selector, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return All(), nil
	}
	if rest, ok := strings.CutPrefix(s, string(RangeCustom)); ok {
		rest = strings.TrimPrefix(rest, ":")
		start, end, _ := strings.Cut(rest, "..")
		return Custom(start, end), nil
	}
	r := Range(s)
	switch r {
	case RangeAll, RangeLast7Days, RangeLast30Days, RangeCurrentWeek:
		return Selector{Range: r}, nil
	}
	return Selector{}, fmt.Errorf("unknown range %q", s)
}

func (s Selector) String() string {
	if s.Range == RangeCustom {
		return fmt.Sprintf("custom:%s..%s", s.Start, s.End)
	}
	return string(s.Range)
}

// Bounds is an inclusive date-key range. Unbounded means no filtering.
type Bounds struct {
	Start     string `json:"start,omitempty" yaml:"start,omitempty"`
	End       string `json:"end,omitempty" yaml:"end,omitempty"`
	Unbounded bool   `json:"unbounded" yaml:"unbounded"`
}

// Resolve maps a selector and the current instant to concrete bounds.
// Weeks start on Sunday. A custom selector missing either bound is
// unbounded, as is an unknown range.
func Resolve(sel Selector, now time.Time) Bounds {
	today := timeutil.StartOfDay(now)
	todayKey := timeutil.DateKey(today)

	switch sel.Range {
	case RangeLast7Days:
		return Bounds{Start: timeutil.DateKey(today.AddDate(0, 0, -6)), End: todayKey}
	case RangeLast30Days:
		return Bounds{Start: timeutil.DateKey(today.AddDate(0, 0, -29)), End: todayKey}
	case RangeCurrentWeek:
		start := timeutil.StartOfWeek(today)
		return Bounds{Start: timeutil.DateKey(start), End: timeutil.DateKey(start.AddDate(0, 0, 6))}
	case RangeCustom:
		if sel.Start == "" || sel.End == "" {
			return Bounds{Unbounded: true}
		}
		return Bounds{Start: sel.Start, End: sel.End}
	}
	return Bounds{Unbounded: true}
}

// Contains reports whether key lies within the bounds, inclusive.
func (b Bounds) Contains(key string) bool {
	if b.Unbounded {
		return true
	}
	return key >= b.Start && key <= b.End
}

// Filter keeps the tasks whose date lies within b, in input order.
// Archived tasks are not treated specially.
func Filter(tasks []task.Task, b Bounds) []task.Task {
	if b.Unbounded {
		return tasks
	}
	out := make([]task.Task, 0, len(tasks))
	for _, t := range tasks {
		if b.Contains(t.Date) {
			out = append(out, t)
		}
	}
	return out
}
