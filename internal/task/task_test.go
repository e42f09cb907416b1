package task

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"go.uber.org/multierr"
)

var now = time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC)

// ============================================================
// Status
// ============================================================

func TestParseStatus(t *testing.T) {
	tests := []struct {
		in   string
		want Status
	}{
		{"Not Started", StatusNotStarted},
		{"NotStarted", StatusNotStarted},
		{"not-started", StatusNotStarted},
		{"in_progress", StatusInProgress},
		{"COMPLETED", StatusCompleted},
	}
	for _, tt := range tests {
		got, err := ParseStatus(tt.in)
		if err != nil {
			t.Fatalf("ParseStatus(%q): %v", tt.in, err)
		}
		if got != tt.want {
			t.Errorf("ParseStatus(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
	if _, err := ParseStatus("done"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestStatusNextCycles(t *testing.T) {
	s := StatusNotStarted
	for i := 0; i < 3; i++ {
		s = s.Next()
	}
	if s != StatusNotStarted {
		t.Fatalf("expected full cycle, got %q", s)
	}
	if Status("bogus").Next() != StatusNotStarted {
		t.Fatal("unknown status should cycle to NotStarted")
	}
}

func TestStatusValid(t *testing.T) {
	if !StatusInProgress.Valid() || Status("Done").Valid() {
		t.Fatal("Valid mismatch")
	}
}

// ============================================================
// Draft defaults
// ============================================================

func TestDraftBuildDefaults(t *testing.T) {
	tk := Draft{Title: "Write report"}.Build("id-1", now, 0)

	if tk.ID != "id-1" || tk.Title != "Write report" {
		t.Fatalf("unexpected task: %+v", tk)
	}
	if tk.Date != "2024-06-10" {
		t.Fatalf("expected today's date, got %q", tk.Date)
	}
	if tk.StartTime != "09:30" || tk.EndTime != "11:30" {
		t.Fatalf("expected 09:30-11:30, got %s-%s", tk.StartTime, tk.EndTime)
	}
	if tk.Status != StatusNotStarted {
		t.Fatalf("expected NotStarted, got %q", tk.Status)
	}
	if tk.Subtasks == nil || len(tk.Subtasks) != 0 {
		t.Fatal("expected empty, non-nil subtasks")
	}
	if !tk.CreatedAt.Equal(tk.UpdatedAt) {
		t.Fatal("create should set both timestamps equal")
	}
}

func TestDraftBuildCustomDurationWraps(t *testing.T) {
	tk := Draft{Title: "Late", StartTime: "23:30"}.Build("x", now, 60)
	if tk.EndTime != "00:30" {
		t.Fatalf("expected wrap to 00:30, got %q", tk.EndTime)
	}
}

func TestDraftBuildKeepsExplicitFields(t *testing.T) {
	d := Draft{
		Title:     "Explicit",
		Date:      "2024-01-01",
		StartTime: "08:00",
		EndTime:   "08:15",
		Status:    StatusCompleted,
		Subtasks:  []Subtask{{ID: "a", Title: "A"}},
	}
	tk := d.Build("x", now, 120)
	if tk.Date != "2024-01-01" || tk.EndTime != "08:15" || tk.Status != StatusCompleted {
		t.Fatalf("explicit fields overwritten: %+v", tk)
	}
	d.Subtasks[0].Title = "changed"
	if tk.Subtasks[0].Title != "A" {
		t.Fatal("task shares subtask storage with the draft")
	}
}

func TestDuration(t *testing.T) {
	tests := []struct {
		start, end string
		want       int
	}{
		{"09:00", "10:30", 90},
		{"22:00", "01:00", 180},
		{"09:00", "09:00", 45},
		{"09:00", "", 45},
	}
	for _, tt := range tests {
		tk := Task{StartTime: tt.start, EndTime: tt.end}
		if got := tk.Duration(45); got != tt.want {
			t.Errorf("Duration(%s-%s) = %d, want %d", tt.start, tt.end, got, tt.want)
		}
	}
}

func TestTouchNeverMovesBackwards(t *testing.T) {
	tk := Task{CreatedAt: now, UpdatedAt: now.Add(time.Hour)}
	tk.Touch(now.Add(30 * time.Minute))
	if !tk.UpdatedAt.Equal(now.Add(time.Hour)) {
		t.Fatal("UpdatedAt moved backwards")
	}
	tk.Touch(now.Add(2 * time.Hour))
	if !tk.UpdatedAt.Equal(now.Add(2 * time.Hour)) {
		t.Fatal("UpdatedAt not advanced")
	}
}

// ============================================================
// Subtasks
// ============================================================

func subtaskTitles(tk Task) string {
	var parts []string
	for _, st := range tk.Subtasks {
		parts = append(parts, st.Title)
	}
	return strings.Join(parts, ",")
}

func newWithSubtasks(titles ...string) Task {
	tk := Draft{Title: "T"}.Build("t", now, 0)
	for _, title := range titles {
		tk.AddSubtask(title)
	}
	return tk
}

func TestAddSubtaskAppendsInOrder(t *testing.T) {
	tk := newWithSubtasks("a", "b", "c")
	if subtaskTitles(tk) != "a,b,c" {
		t.Fatalf("got %s", subtaskTitles(tk))
	}
	if id := tk.AddSubtask("   "); id != "" {
		t.Fatal("blank subtask should be ignored")
	}
	if len(tk.Subtasks) != 3 {
		t.Fatal("blank subtask was added")
	}
	if tk.Subtasks[0].ID == tk.Subtasks[1].ID {
		t.Fatal("subtask ids should be unique")
	}
}

func TestRemoveSubtaskPreservesOrder(t *testing.T) {
	tk := newWithSubtasks("a", "b", "c")
	if !tk.RemoveSubtask(tk.Subtasks[1].ID) {
		t.Fatal("remove failed")
	}
	if subtaskTitles(tk) != "a,c" {
		t.Fatalf("got %s", subtaskTitles(tk))
	}
	if tk.RemoveSubtask("missing") {
		t.Fatal("removing a missing id should report false")
	}
}

func TestRenameSubtaskBlankKeepsTitle(t *testing.T) {
	tk := newWithSubtasks("a")
	id := tk.Subtasks[0].ID
	tk.RenameSubtask(id, "  ")
	if tk.Subtasks[0].Title != "a" {
		t.Fatal("blank rename should keep title")
	}
	tk.RenameSubtask(id, "renamed")
	if tk.Subtasks[0].Title != "renamed" {
		t.Fatal("rename failed")
	}
}

func TestToggleSubtaskDoesNotAliasClone(t *testing.T) {
	orig := newWithSubtasks("a", "b")
	c := orig.Clone()
	c.ToggleSubtask(c.Subtasks[0].ID)
	if orig.Subtasks[0].Completed {
		t.Fatal("toggle on clone leaked into original")
	}
	if !c.Subtasks[0].Completed {
		t.Fatal("toggle failed")
	}
	done, total := c.Progress()
	if done != 1 || total != 2 {
		t.Fatalf("progress = %d/%d", done, total)
	}
}

func TestMoveSubtask(t *testing.T) {
	tests := []struct {
		from, to int
		want     string
	}{
		{0, 2, "b,c,a"},
		{2, 0, "c,a,b"},
		{1, 1, "a,b,c"},
		{0, 1, "b,a,c"},
	}
	for _, tt := range tests {
		tk := newWithSubtasks("a", "b", "c")
		tk.MoveSubtask(tk.Subtasks[tt.from].ID, tk.Subtasks[tt.to].ID)
		if got := subtaskTitles(tk); got != tt.want {
			t.Errorf("move %d->%d = %s, want %s", tt.from, tt.to, got, tt.want)
		}
	}
}

// ============================================================
// Ordering
// ============================================================

func TestSortByDateTime(t *testing.T) {
	tasks := []Task{
		{ID: "3", Date: "2024-06-11", StartTime: "08:00"},
		{ID: "2", Date: "2024-06-10", StartTime: "12:00"},
		{ID: "1", Date: "2024-06-10", StartTime: "09:00"},
	}
	SortByDateTime(tasks)
	if tasks[0].ID != "1" || tasks[1].ID != "2" || tasks[2].ID != "3" {
		t.Fatalf("unexpected order: %s %s %s", tasks[0].ID, tasks[1].ID, tasks[2].ID)
	}
}

func TestActiveAndOnDate(t *testing.T) {
	tasks := []Task{
		{ID: "a", Date: "2024-06-10"},
		{ID: "b", Date: "2024-06-10", Archived: true},
		{ID: "c", Date: "2024-06-11"},
	}
	if got := Active(tasks); len(got) != 2 {
		t.Fatalf("expected 2 active, got %d", len(got))
	}
	if got := OnDate(tasks, "2024-06-10"); len(got) != 2 {
		t.Fatalf("expected 2 on date, got %d", len(got))
	}
}

// ============================================================
// Bulk edits
// ============================================================

type fakeRepo struct {
	UpdateFunc func(ctx context.Context, t Task) (*Task, error)
	DeleteFunc func(ctx context.Context, id string) error
	updated    []Task
}

func (f *fakeRepo) ListTasks(ctx context.Context) ([]Task, error) { return nil, nil }

func (f *fakeRepo) CreateTask(ctx context.Context, d Draft) (*Task, error) {
	tk := d.Build("new", now, 0)
	return &tk, nil
}

func (f *fakeRepo) UpdateTask(ctx context.Context, t Task) (*Task, error) {
	if f.UpdateFunc != nil {
		return f.UpdateFunc(ctx, t)
	}
	f.updated = append(f.updated, t)
	return &t, nil
}

func (f *fakeRepo) DeleteTask(ctx context.Context, id string) error {
	if f.DeleteFunc != nil {
		return f.DeleteFunc(ctx, id)
	}
	return nil
}

func TestBulkSetStatus(t *testing.T) {
	repo := &fakeRepo{}
	tasks := []Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	n, err := BulkSetStatus(context.Background(), repo, tasks, []string{"a", "c"}, StatusCompleted)
	if err != nil {
		t.Fatal(err)
	}
	if n != 2 || len(repo.updated) != 2 {
		t.Fatalf("expected 2 updates, got %d", n)
	}
	for _, u := range repo.updated {
		if u.Status != StatusCompleted {
			t.Fatalf("task %s not completed", u.ID)
		}
	}
	if tasks[0].Status != "" {
		t.Fatal("bulk edit mutated the input snapshot")
	}
}

func TestBulkSetArchivedCollectsErrors(t *testing.T) {
	boom := errors.New("boom")
	repo := &fakeRepo{}
	repo.UpdateFunc = func(ctx context.Context, tk Task) (*Task, error) {
		if tk.ID == "b" {
			return nil, boom
		}
		return &tk, nil
	}
	tasks := []Task{{ID: "a"}, {ID: "b"}, {ID: "c"}}
	n, err := BulkSetArchived(context.Background(), repo, tasks, []string{"a", "b", "c"}, true)
	if n != 2 {
		t.Fatalf("expected 2 successes, got %d", n)
	}
	if !errors.Is(err, boom) {
		t.Fatalf("expected wrapped boom, got %v", err)
	}
	if len(multierr.Errors(err)) != 1 {
		t.Fatalf("expected one collected error, got %v", err)
	}
}

func TestBulkDelete(t *testing.T) {
	repo := &fakeRepo{}
	repo.DeleteFunc = func(ctx context.Context, id string) error {
		if id == "missing" {
			return ErrNotFound
		}
		return nil
	}
	n, err := BulkDelete(context.Background(), repo, []string{"a", "missing", "b"})
	if n != 2 {
		t.Fatalf("expected 2 deletes, got %d", n)
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}
