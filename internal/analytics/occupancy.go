// Package analytics derives calendar occupancy, KPIs, status distribution
// and trend series from a read-only task snapshot.
package analytics

import (
	"slices"
	"time"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
)

// Entry is the preview of a task inside a calendar day.
type Entry struct {
	ID        string      `json:"id" yaml:"id"`
	Title     string      `json:"title" yaml:"title"`
	Status    task.Status `json:"status" yaml:"status"`
	StartTime string      `json:"startTime" yaml:"startTime"`
}

// Day groups the tasks scheduled on one date. Entries keep source order.
type Day struct {
	Key           string  `json:"key" yaml:"key"`
	Entries       []Entry `json:"entries" yaml:"entries"`
	HasNotStarted bool    `json:"hasNotStarted" yaml:"hasNotStarted"`
	HasInProgress bool    `json:"hasInProgress" yaml:"hasInProgress"`
	HasCompleted  bool    `json:"hasCompleted" yaml:"hasCompleted"`
}

// Preview returns at most limit entries and how many were left out.
func (d Day) Preview(limit int) ([]Entry, int) {
	if limit < 0 || len(d.Entries) <= limit {
		return d.Entries, 0
	}
	return d.Entries[:limit], len(d.Entries) - limit
}

// Occupancy maps date keys to their day. Days with no tasks are absent.
type Occupancy map[string]Day

// BuildOccupancy groups tasks by scheduled date and OR-reduces the status
// flags of each day.
func BuildOccupancy(tasks []task.Task) Occupancy {
	occ := make(Occupancy)
	for _, t := range tasks {
		d := occ[t.Date]
		d.Key = t.Date
		d.Entries = append(d.Entries, Entry{ID: t.ID, Title: t.Title, Status: t.Status, StartTime: t.StartTime})
		switch t.Status {
		case task.StatusNotStarted:
			d.HasNotStarted = true
		case task.StatusInProgress:
			d.HasInProgress = true
		case task.StatusCompleted:
			d.HasCompleted = true
		}
		occ[t.Date] = d
	}
	return occ
}

// Day returns the day for key; the zero Day when nothing is scheduled.
func (o Occupancy) Day(key string) Day {
	if d, ok := o[key]; ok {
		return d
	}
	return Day{Key: key}
}

// Keys returns the occupied date keys in chronological order.
func (o Occupancy) Keys() []string {
	keys := make([]string, 0, len(o))
	for k := range o {
		keys = append(keys, k)
	}
	slices.Sort(keys)
	return keys
}

// Between returns the occupied days with first <= key <= last.
func (o Occupancy) Between(first, last string) Occupancy {
	out := make(Occupancy)
	for k, d := range o {
		if k >= first && k <= last {
			out[k] = d
		}
	}
	return out
}

// Month is one calendar page: the occupied days of a month in order.
type Month struct {
	Month        string `json:"month" yaml:"month"`
	Today        string `json:"today" yaml:"today"`
	PreviewLimit int    `json:"previewLimit" yaml:"previewLimit"`
	Days         []Day  `json:"days" yaml:"days"`
}

// MonthOf slices occ to the month containing first.
func MonthOf(occ Occupancy, first time.Time, today string, limit int) Month {
	first = time.Date(first.Year(), first.Month(), 1, 0, 0, 0, 0, first.Location())
	last := first.AddDate(0, 1, -1)
	page := occ.Between(timeutil.DateKey(first), timeutil.DateKey(last))

	m := Month{
		Month:        first.Format("2006-01"),
		Today:        today,
		PreviewLimit: limit,
		Days:         make([]Day, 0, len(page)),
	}
	for _, k := range page.Keys() {
		m.Days = append(m.Days, page[k])
	}
	return m
}
