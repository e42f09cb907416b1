package task

import (
	"context"
	"fmt"

	"go.uber.org/multierr"
)

// Repository is the task store contract. CreateTask assigns the id and
// both timestamps; UpdateTask replaces the whole record and refreshes
// UpdatedAt.
type Repository interface {
	ListTasks(ctx context.Context) ([]Task, error)
	CreateTask(ctx context.Context, d Draft) (*Task, error)
	UpdateTask(ctx context.Context, t Task) (*Task, error)
	DeleteTask(ctx context.Context, id string) error
}

// BulkSetStatus sets the status of every task in tasks whose id is in ids.
// Failures are collected; the remaining tasks are still updated.
func BulkSetStatus(ctx context.Context, repo Repository, tasks []Task, ids []string, s Status) (int, error) {
	return bulkUpdate(ctx, repo, tasks, ids, func(t *Task) { t.SetStatus(s) })
}

// BulkSetArchived sets the archived flag on the selected tasks.
func BulkSetArchived(ctx context.Context, repo Repository, tasks []Task, ids []string, archived bool) (int, error) {
	return bulkUpdate(ctx, repo, tasks, ids, func(t *Task) { t.Archived = archived })
}

// BulkDelete deletes every id, collecting failures.
func BulkDelete(ctx context.Context, repo Repository, ids []string) (int, error) {
	var errs error
	n := 0
	for _, id := range ids {
		if err := repo.DeleteTask(ctx, id); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("delete %s: %w", id, err))
			continue
		}
		n++
	}
	return n, errs
}

func bulkUpdate(ctx context.Context, repo Repository, tasks []Task, ids []string, fn func(*Task)) (int, error) {
	selected := make(map[string]bool, len(ids))
	for _, id := range ids {
		selected[id] = true
	}

	var errs error
	n := 0
	for _, t := range tasks {
		if !selected[t.ID] {
			continue
		}
		c := t.Clone()
		fn(&c)
		if _, err := repo.UpdateTask(ctx, c); err != nil {
			errs = multierr.Append(errs, fmt.Errorf("update %s: %w", t.ID, err))
			continue
		}
		n++
	}
	return n, errs
}
