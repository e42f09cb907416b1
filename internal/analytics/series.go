package analytics

import (
	"time"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
	"github.com/sadopc/planr/internal/window"
)

// DefaultSeriesDays is the trailing window charted for "all" and for an
// incomplete custom range.
const DefaultSeriesDays = 14

// Point is one day of the created-vs-completed trend.
type Point struct {
	Label     string `json:"label" yaml:"label"`
	Key       string `json:"key" yaml:"key"`
	Created   int    `json:"created" yaml:"created"`
	Completed int    `json:"completed" yaml:"completed"`
}

// SampleWindow returns the first day and day count charted for sel. This
// is independent of the filter bounds from window.Resolve: "all" filters
// nothing but charts the trailing two weeks.
func SampleWindow(sel window.Selector, now time.Time) (time.Time, int) {
	today := timeutil.StartOfDay(now)
	switch sel.Range {
	case window.RangeLast7Days:
		return today.AddDate(0, 0, -6), 7
	case window.RangeLast30Days:
		return today.AddDate(0, 0, -29), 30
	case window.RangeCurrentWeek:
		return timeutil.StartOfWeek(today), 7
	case window.RangeCustom:
		start, errS := timeutil.ParseDateKey(sel.Start, now.Location())
		end, errE := timeutil.ParseDateKey(sel.End, now.Location())
		if errS == nil && errE == nil {
			days := timeutil.DaysBetween(start, end)
			if days < 0 {
				days = -days
			}
			return start, days + 1
		}
	}
	return today.AddDate(0, 0, -(DefaultSeriesDays - 1)), DefaultSeriesDays
}

// BuildSeries emits one point per day of the sampling window. Created
// comes from the creation-day counts, Completed from the Completed bucket
// of the scheduled-day counts.
func BuildSeries(sel window.Selector, created map[string]int, byDay map[string]StatusCounts, now time.Time) []Point {
	start, days := SampleWindow(sel, now)
	points := make([]Point, 0, days)
	for i := 0; i < days; i++ {
		d := start.AddDate(0, 0, i)
		key := timeutil.DateKey(d)
		p := Point{
			Label:   d.Format("Jan 2"),
			Key:     key,
			Created: created[key],
		}
		if c, ok := byDay[key]; ok {
			p.Completed = c[task.StatusCompleted]
		}
		points = append(points, p)
	}
	return points
}
