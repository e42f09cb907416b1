// Package task holds the task model, its mutations and the store contract.
package task

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sadopc/planr/internal/timeutil"
)

// DefaultDuration is the default task length in minutes.
const DefaultDuration = 120

// ErrNotFound is returned by a Repository when no task has the given id.
var ErrNotFound = errors.New("task not found")

// ErrInvalid wraps every rejection from Task.Check.
var ErrInvalid = errors.New("invalid task")

type Status string

const (
	StatusNotStarted Status = "Not Started"
	StatusInProgress Status = "In Progress"
	StatusCompleted  Status = "Completed"
)

// Statuses lists every status in display order.
var Statuses = []Status{StatusNotStarted, StatusInProgress, StatusCompleted}

func (s Status) Valid() bool {
	return slices.Contains(Statuses, s)
}

// Next cycles NotStarted -> InProgress -> Completed -> NotStarted.
func (s Status) Next() Status {
	switch s {
	case StatusNotStarted:
		return StatusInProgress
	case StatusInProgress:
		return StatusCompleted
	default:
		return StatusNotStarted
	}
}

// ParseStatus accepts the wire form ("In Progress") as well as
// "InProgress", "in-progress" and "in_progress".
func ParseStatus(s string) (Status, error) {
	norm := strings.ToLower(strings.NewReplacer(" ", "", "-", "", "_", "").Replace(s))
	for _, st := range Statuses {
		if strings.ToLower(strings.ReplaceAll(string(st), " ", "")) == norm {
			return st, nil
		}
	}
	return "", fmt.Errorf("unknown status %q", s)
}

type Subtask struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Completed bool   `json:"completed" yaml:"completed"`
}

type Task struct {
	ID          string    `json:"id" yaml:"id"`
	Title       string    `json:"title" yaml:"title" validate:"required"`
	Description string    `json:"description" yaml:"description"`
	Date        string    `json:"date" yaml:"date" validate:"required,datetime=2006-01-02"`
	StartTime   string    `json:"startTime" yaml:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime     string    `json:"endTime" yaml:"endTime" validate:"omitempty,datetime=15:04"`
	Subtasks    []Subtask `json:"subtasks" yaml:"subtasks"`
	Status      Status    `json:"status" yaml:"status" validate:"required,taskstatus"`
	Archived    bool      `json:"archived" yaml:"archived"`
	CreatedAt   time.Time `json:"createdAt" yaml:"createdAt"`
	UpdatedAt   time.Time `json:"updatedAt" yaml:"updatedAt"`
}

// Check reports the first field a store would refuse.
func (t Task) Check() error {
	if strings.TrimSpace(t.Title) == "" {
		return fmt.Errorf("%w: title is required", ErrInvalid)
	}
	if _, err := timeutil.ParseDateKey(t.Date, time.UTC); err != nil {
		return fmt.Errorf("%w: date %q", ErrInvalid, t.Date)
	}
	if !t.Status.Valid() {
		return fmt.Errorf("%w: status %q", ErrInvalid, t.Status)
	}
	return nil
}

// Draft holds the fields a caller supplies when creating a task.
type Draft struct {
	Title       string    `json:"title" validate:"required"`
	Description string    `json:"description"`
	Date        string    `json:"date" validate:"omitempty,datetime=2006-01-02"`
	StartTime   string    `json:"startTime" validate:"omitempty,datetime=15:04"`
	EndTime     string    `json:"endTime" validate:"omitempty,datetime=15:04"`
	Subtasks    []Subtask `json:"subtasks"`
	Status      Status    `json:"status" validate:"omitempty,taskstatus"`
	Archived    bool      `json:"archived"`
}

// Build turns the draft into a task, filling the creation defaults.
// duration is the default length in minutes used when EndTime is empty.
func (d Draft) Build(id string, now time.Time, duration int) Task {
	if duration <= 0 {
		duration = DefaultDuration
	}
	t := Task{
		ID:          id,
		Title:       d.Title,
		Description: d.Description,
		Date:        d.Date,
		StartTime:   d.StartTime,
		EndTime:     d.EndTime,
		Subtasks:    slices.Clone(d.Subtasks),
		Status:      d.Status,
		Archived:    d.Archived,
		CreatedAt:   now,
		UpdatedAt:   now,
	}
	if t.Date == "" {
		t.Date = timeutil.DateKey(now)
	}
	if t.StartTime == "" {
		t.StartTime = timeutil.CurrentTimeString(now)
	}
	if t.EndTime == "" {
		t.EndTime = timeutil.AddMinutes(t.StartTime, duration)
	}
	if t.Status == "" {
		t.Status = StatusNotStarted
	}
	if t.Subtasks == nil {
		t.Subtasks = []Subtask{}
	}
	return t
}

// DraftOf copies the editable fields of t.
func DraftOf(t Task) Draft {
	return Draft{
		Title:       t.Title,
		Description: t.Description,
		Date:        t.Date,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Subtasks:    slices.Clone(t.Subtasks),
		Status:      t.Status,
		Archived:    t.Archived,
	}
}

// Clone returns a deep copy; the subtask slice is not shared.
func (t Task) Clone() Task {
	c := t
	c.Subtasks = slices.Clone(t.Subtasks)
	if c.Subtasks == nil {
		c.Subtasks = []Subtask{}
	}
	return c
}

// Duration returns the scheduled length in minutes, or fallback when the
// span is empty.
func (t Task) Duration(fallback int) int {
	end := t.EndTime
	if end == "" {
		end = t.StartTime
	}
	if d := timeutil.SpanMinutes(t.StartTime, end); d > 0 {
		return d
	}
	return fallback
}

// Progress returns completed and total subtask counts.
func (t Task) Progress() (done, total int) {
	for _, st := range t.Subtasks {
		if st.Completed {
			done++
		}
	}
	return done, len(t.Subtasks)
}

// Touch advances UpdatedAt to now. It never moves backwards and never falls
// behind CreatedAt.
func (t *Task) Touch(now time.Time) {
	if now.Before(t.UpdatedAt) {
		return
	}
	if now.Before(t.CreatedAt) {
		now = t.CreatedAt
	}
	t.UpdatedAt = now
}

func (t *Task) SetStatus(s Status) {
	t.Status = s
}

func (t *Task) ToggleArchived() {
	t.Archived = !t.Archived
}

// SetSchedule sets start and end. An empty end is start plus duration.
func (t *Task) SetSchedule(start, end string, duration int) {
	t.StartTime = start
	if end == "" {
		end = timeutil.AddMinutes(start, duration)
	}
	t.EndTime = end
}

// AddSubtask appends a new subtask and returns its id. Blank titles are
// ignored and return "".
func (t *Task) AddSubtask(title string) string {
	title = strings.TrimSpace(title)
	if title == "" {
		return ""
	}
	st := Subtask{ID: uuid.NewString(), Title: title}
	t.Subtasks = append(slices.Clone(t.Subtasks), st)
	return st.ID
}

func (t *Task) RemoveSubtask(id string) bool {
	i := t.subtaskIndex(id)
	if i < 0 {
		return false
	}
	t.Subtasks = slices.Delete(slices.Clone(t.Subtasks), i, i+1)
	return true
}

// RenameSubtask keeps the old title when the new one is blank.
func (t *Task) RenameSubtask(id, title string) bool {
	i := t.subtaskIndex(id)
	if i < 0 {
		return false
	}
	title = strings.TrimSpace(title)
	if title == "" {
		return true
	}
	t.Subtasks = slices.Clone(t.Subtasks)
	t.Subtasks[i].Title = title
	return true
}

func (t *Task) ToggleSubtask(id string) bool {
	i := t.subtaskIndex(id)
	if i < 0 {
		return false
	}
	t.Subtasks = slices.Clone(t.Subtasks)
	t.Subtasks[i].Completed = !t.Subtasks[i].Completed
	return true
}

// MoveSubtask moves the subtask activeID to the position held by overID,
// shifting the ones in between.
func (t *Task) MoveSubtask(activeID, overID string) bool {
	from, to := t.subtaskIndex(activeID), t.subtaskIndex(overID)
	if from < 0 || to < 0 {
		return false
	}
	if from == to {
		return true
	}
	subs := slices.Clone(t.Subtasks)
	moved := subs[from]
	subs = slices.Delete(subs, from, from+1)
	subs = slices.Insert(subs, to, moved)
	t.Subtasks = subs
	return true
}

func (t *Task) subtaskIndex(id string) int {
	return slices.IndexFunc(t.Subtasks, func(st Subtask) bool { return st.ID == id })
}

// SortByStart orders tasks by start time, keeping ties in input order.
func SortByStart(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		return strings.Compare(a.StartTime, b.StartTime)
	})
}

// SortByDateTime orders tasks by date, then start time.
func SortByDateTime(tasks []Task) {
	slices.SortStableFunc(tasks, func(a, b Task) int {
		if c := strings.Compare(a.Date, b.Date); c != 0 {
			return c
		}
		return strings.Compare(a.StartTime, b.StartTime)
	})
}

// Active drops archived tasks.
func Active(tasks []Task) []Task {
	out := make([]Task, 0, len(tasks))
	for _, t := range tasks {
		if !t.Archived {
			out = append(out, t)
		}
	}
	return out
}

// OnDate returns the tasks scheduled on the given date key.
func OnDate(tasks []Task, key string) []Task {
	var out []Task
	for _, t := range tasks {
		if t.Date == key {
			out = append(out, t)
		}
	}
	return out
}
