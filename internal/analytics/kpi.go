package analytics

import (
	"time"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
)

// StatusCounts always carries every status key.
type StatusCounts map[task.Status]int

func NewStatusCounts() StatusCounts {
	c := make(StatusCounts, len(task.Statuses))
	for _, s := range task.Statuses {
		c[s] = 0
	}
	return c
}

// Sum returns the total over the known statuses.
func (c StatusCounts) Sum() int {
	n := 0
	for _, s := range task.Statuses {
		n += c[s]
	}
	return n
}

// CountByStatus counts tasks per status. Unknown statuses are not counted.
func CountByStatus(tasks []task.Task) StatusCounts {
	c := NewStatusCounts()
	for _, t := range tasks {
		if t.Status.Valid() {
			c[t.Status]++
		}
	}
	return c
}

// CreatedByDay counts tasks per creation day (not the scheduled date),
// keyed in loc.
func CreatedByDay(tasks []task.Task, loc *time.Location) map[string]int {
	if loc == nil {
		loc = time.Local
	}
	out := make(map[string]int)
	for _, t := range tasks {
		out[timeutil.DateKey(t.CreatedAt.In(loc))]++
	}
	return out
}

// StatusByDay counts tasks per scheduled date and status.
func StatusByDay(tasks []task.Task) map[string]StatusCounts {
	out := make(map[string]StatusCounts)
	for _, t := range tasks {
		c, ok := out[t.Date]
		if !ok {
			c = NewStatusCounts()
			out[t.Date] = c
		}
		c[t.Status]++
	}
	return out
}

type KPI struct {
	Total    int          `json:"total" yaml:"total"`
	ByStatus StatusCounts `json:"byStatus" yaml:"byStatus"`
	Overdue  int          `json:"overdue" yaml:"overdue"`
	DueToday int          `json:"dueToday" yaml:"dueToday"`
	ThisWeek int          `json:"thisWeek" yaml:"thisWeek"`
}

// ComputeKPI rolls up tasks relative to now.
//
// Overdue and DueToday compare date keys. ThisWeek parses each task date
// as a calendar date in now's location and checks it against
// [Sunday 00:00, Saturday 23:59:59.999]; unparseable dates do not count.
func ComputeKPI(tasks []task.Task, now time.Time) KPI {
	todayKey := timeutil.DateKey(now)
	weekStart := timeutil.StartOfWeek(now)
	weekEnd := weekStart.AddDate(0, 0, 7).Add(-time.Millisecond)

	k := KPI{
		Total:    len(tasks),
		ByStatus: CountByStatus(tasks),
	}
	for _, t := range tasks {
		if t.Date < todayKey && t.Status != task.StatusCompleted {
			k.Overdue++
		}
		if t.Date == todayKey {
			k.DueToday++
		}
		d, err := timeutil.ParseDateKey(t.Date, now.Location())
		if err != nil {
			continue
		}
		if !d.Before(weekStart) && !d.After(weekEnd) {
			k.ThisWeek++
		}
	}
	return k
}
