package store

import (
	"encoding/json"
	"fmt"
	"time"

	"github.com/sadopc/planr/internal/task"
)

// taskRow is the column layout of the tasks table. Timestamps are
// RFC3339Nano text in UTC and subtasks a JSON array.
type taskRow struct {
	ID          string `db:"id"`
	Title       string `db:"title"`
	Description string `db:"description"`
	Date        string `db:"date"`
	StartTime   string `db:"start_time"`
	EndTime     string `db:"end_time"`
	Subtasks    string `db:"subtasks"`
	Status      string `db:"status"`
	Archived    bool   `db:"archived"`
	CreatedAt   string `db:"created_at"`
	UpdatedAt   string `db:"updated_at"`
}

const taskColumns = `id, title, description, date, start_time, end_time, subtasks, status, archived, created_at, updated_at`

func rowFromTask(t task.Task) (taskRow, error) {
	subs := t.Subtasks
	if subs == nil {
		subs = []task.Subtask{}
	}
	raw, err := json.Marshal(subs)
	if err != nil {
		return taskRow{}, fmt.Errorf("encode subtasks: %w", err)
	}
	return taskRow{
		ID:          t.ID,
		Title:       t.Title,
		Description: t.Description,
		Date:        t.Date,
		StartTime:   t.StartTime,
		EndTime:     t.EndTime,
		Subtasks:    string(raw),
		Status:      string(t.Status),
		Archived:    t.Archived,
		CreatedAt:   formatTime(t.CreatedAt),
		UpdatedAt:   formatTime(t.UpdatedAt),
	}, nil
}

func (r taskRow) toTask() (task.Task, error) {
	t := task.Task{
		ID:          r.ID,
		Title:       r.Title,
		Description: r.Description,
		Date:        r.Date,
		StartTime:   r.StartTime,
		EndTime:     r.EndTime,
		Status:      task.Status(r.Status),
		Archived:    r.Archived,
		Subtasks:    []task.Subtask{},
	}
	if r.Subtasks != "" {
		if err := json.Unmarshal([]byte(r.Subtasks), &t.Subtasks); err != nil {
			return task.Task{}, fmt.Errorf("decode subtasks of %s: %w", r.ID, err)
		}
	}
	var err error
	if t.CreatedAt, err = parseTime(r.CreatedAt); err != nil {
		return task.Task{}, fmt.Errorf("created_at of %s: %w", r.ID, err)
	}
	if t.UpdatedAt, err = parseTime(r.UpdatedAt); err != nil {
		return task.Task{}, fmt.Errorf("updated_at of %s: %w", r.ID, err)
	}
	return t, nil
}

func formatTime(t time.Time) string {
	return t.UTC().Format(time.RFC3339Nano)
}

func parseTime(s string) (time.Time, error) {
	return time.Parse(time.RFC3339Nano, s)
}

type Setting struct {
	Key   string `db:"key" json:"key" yaml:"key"`
	Value string `db:"value" json:"value" yaml:"value"`
}
