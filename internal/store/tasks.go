package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
)

var (
	_ task.Repository  = (*Store)(nil)
	_ analytics.Source = (*Store)(nil)
)

// ListTasks returns every task, archived included, ordered by date and
// start time.
func (s *Store) ListTasks(ctx context.Context) ([]task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.listTasks(ctx)
}

func (s *Store) listTasks(ctx context.Context) ([]task.Task, error) {
	var rows []taskRow
	err := s.db.SelectContext(ctx, &rows,
		`SELECT `+taskColumns+` FROM tasks ORDER BY date, start_time, created_at, id`)
	if err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	tasks := make([]task.Task, 0, len(rows))
	for _, r := range rows {
		t, err := r.toTask()
		if err != nil {
			return nil, fmt.Errorf("list tasks: %w", err)
		}
		tasks = append(tasks, t)
	}
	return tasks, nil
}

func (s *Store) GetTask(ctx context.Context, id string) (*task.Task, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.getTask(ctx, id)
}

func (s *Store) getTask(ctx context.Context, id string) (*task.Task, error) {
	var r taskRow
	err := s.db.GetContext(ctx, &r, `SELECT `+taskColumns+` FROM tasks WHERE id = ?`, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get task %s: %w", id, task.ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	t, err := r.toTask()
	if err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

// CreateTask assigns a fresh id and both timestamps, filling the draft's
// blanks from the current time and the default_duration setting.
func (s *Store) CreateTask(ctx context.Context, d task.Draft) (*task.Task, error) {
	duration, err := s.DefaultDuration(ctx)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	t := d.Build(uuid.NewString(), s.now().UTC(), duration)
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	row, err := rowFromTask(t)
	if err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	_, err = s.db.NamedExecContext(ctx,
		`INSERT INTO tasks (`+taskColumns+`) VALUES
		(:id, :title, :description, :date, :start_time, :end_time, :subtasks, :status, :archived, :created_at, :updated_at)`,
		row,
	)
	if err != nil {
		return nil, fmt.Errorf("insert task: %w", err)
	}
	s.version++
	return s.getTask(ctx, t.ID)
}

// UpdateTask replaces every editable field of the stored task. CreatedAt
// is kept from the database and UpdatedAt advances to now.
func (s *Store) UpdateTask(ctx context.Context, t task.Task) (*task.Task, error) {
	if err := t.Check(); err != nil {
		return nil, fmt.Errorf("update task %s: %w", t.ID, err)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	old, err := s.getTask(ctx, t.ID)
	if err != nil {
		return nil, fmt.Errorf("update task: %w", err)
	}
	t.CreatedAt = old.CreatedAt
	t.UpdatedAt = old.UpdatedAt
	t.Touch(s.now().UTC())

	row, err := rowFromTask(t)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", t.ID, err)
	}
	_, err = s.db.NamedExecContext(ctx,
		`UPDATE tasks SET title = :title, description = :description, date = :date,
		start_time = :start_time, end_time = :end_time, subtasks = :subtasks,
		status = :status, archived = :archived, updated_at = :updated_at
		WHERE id = :id`,
		row,
	)
	if err != nil {
		return nil, fmt.Errorf("update task %s: %w", t.ID, err)
	}
	s.version++
	return s.getTask(ctx, t.ID)
}

func (s *Store) DeleteTask(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	if n == 0 {
		return fmt.Errorf("delete task %s: %w", id, task.ErrNotFound)
	}
	s.version++
	return nil
}

// Snapshot returns all tasks tagged with a version that changes on every
// commit, whether it came through this Store or another connection to the
// same file.
func (s *Store) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	// Read the version before the rows: a commit landing in between then
	// pairs new rows with an old version, never old rows with a new one.
	var dataVersion uint64
	if err := s.db.GetContext(ctx, &dataVersion, `PRAGMA data_version`); err != nil {
		return analytics.Snapshot{}, fmt.Errorf("snapshot: read data_version: %w", err)
	}
	tasks, err := s.listTasks(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return analytics.Snapshot{Version: snapshotVersion(dataVersion, s.version), Tasks: tasks}, nil
}

// snapshotVersion combines sqlite's data_version, which only moves for
// commits from other connections, with the local write counter.
func snapshotVersion(dataVersion, local uint64) uint64 {
	return dataVersion<<32 | local&0xffffffff
}
