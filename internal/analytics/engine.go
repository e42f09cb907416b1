package analytics

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/mitchellh/hashstructure/v2"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
	"github.com/sadopc/planr/internal/window"
)

// Snapshot is a read-only view of the task collection. Version changes
// whenever the collection changes; zero means the provider has no version
// and the content is hashed instead.
type Snapshot struct {
	Version uint64
	Tasks   []task.Task
}

// Source hands out task snapshots.
type Source interface {
	Snapshot(ctx context.Context) (Snapshot, error)
}

type fingerprint struct {
	ID        string
	Title     string
	Date      string
	StartTime string
	Status    string
	Archived  bool
	CreatedAt int64
	UpdatedAt int64
}

// Key identifies the snapshot content for memoization.
func (s Snapshot) Key() string {
	if s.Version != 0 {
		return fmt.Sprintf("v%d", s.Version)
	}
	fps := make([]fingerprint, len(s.Tasks))
	for i, t := range s.Tasks {
		fps[i] = fingerprint{
			ID:        t.ID,
			Title:     t.Title,
			Date:      t.Date,
			StartTime: t.StartTime,
			Status:    string(t.Status),
			Archived:  t.Archived,
			CreatedAt: t.CreatedAt.UnixNano(),
			UpdatedAt: t.UpdatedAt.UnixNano(),
		}
	}
	h, err := hashstructure.Hash(fps, hashstructure.FormatV2, nil)
	if err != nil {
		// Never shares a key with another snapshot.
		return fmt.Sprintf("p%p", &fps)
	}
	return fmt.Sprintf("h%x", h)
}

// Report bundles every dashboard aggregate for one selector.
type Report struct {
	Selector window.Selector `json:"selector" yaml:"selector"`
	Bounds   window.Bounds   `json:"bounds" yaml:"bounds"`
	Today    string          `json:"today" yaml:"today"`
	KPI      KPI             `json:"kpi" yaml:"kpi"`
	Pie      []Segment       `json:"pie" yaml:"pie"`
	Series   []Point         `json:"series" yaml:"series"`
	MaxValue int             `json:"maxValue" yaml:"maxValue"`
	YTicks   []int           `json:"yTicks" yaml:"yTicks"`
	Layout   ChartLayout     `json:"layout" yaml:"layout"`
}

// BuildReport filters tasks by sel and computes every aggregate.
func BuildReport(tasks []task.Task, sel window.Selector, now time.Time, layout ChartLayout) Report {
	bounds := window.Resolve(sel, now)
	filtered := window.Filter(tasks, bounds)

	kpi := ComputeKPI(filtered, now)
	series := BuildSeries(sel, CreatedByDay(filtered, now.Location()), StatusByDay(filtered), now)
	maxVal := MaxValue(series)

	return Report{
		Selector: sel,
		Bounds:   bounds,
		Today:    timeutil.DateKey(now),
		KPI:      kpi,
		Pie:      PieSegments(kpi.ByStatus),
		Series:   series,
		MaxValue: maxVal,
		YTicks:   YTicks(maxVal),
		Layout:   layout,
	}
}

type reportKey struct {
	snapshot string
	selector window.Selector
	today    string
}

type calendarKey struct {
	snapshot string
}

// Engine memoizes the latest report and calendar occupancy. Results are
// recomputed only when the snapshot, the selector or the current day
// changes. Safe for concurrent use.
type Engine struct {
	now    func() time.Time
	layout ChartLayout

	mu          sync.Mutex
	reportKey   reportKey
	report      *Report
	calendarKey calendarKey
	calendar    Occupancy

	builds int
}

// NewEngine returns an engine reading the clock from now (time.Now when
// nil).
func NewEngine(now func() time.Time) *Engine {
	if now == nil {
		now = time.Now
	}
	return &Engine{now: now, layout: DefaultLayout()}
}

func (e *Engine) Now() time.Time { return e.now() }

// WithLayout sets the chart layout used by future reports.
func (e *Engine) WithLayout(l ChartLayout) *Engine {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.layout = l
	e.report = nil
	return e
}

// Report returns the aggregates of snap for sel.
func (e *Engine) Report(snap Snapshot, sel window.Selector) Report {
	now := e.now()
	key := reportKey{snapshot: snap.Key(), selector: sel, today: timeutil.DateKey(now)}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.report != nil && e.reportKey == key {
		return *e.report
	}
	r := BuildReport(snap.Tasks, sel, now, e.layout)
	e.report = &r
	e.reportKey = key
	e.builds++
	return r
}

// Calendar returns the occupancy of the non-archived tasks in snap.
func (e *Engine) Calendar(snap Snapshot) Occupancy {
	key := calendarKey{snapshot: snap.Key()}

	e.mu.Lock()
	defer e.mu.Unlock()
	if e.calendar != nil && e.calendarKey == key {
		return e.calendar
	}
	e.calendar = BuildOccupancy(task.Active(snap.Tasks))
	e.calendarKey = key
	e.builds++
	return e.calendar
}
