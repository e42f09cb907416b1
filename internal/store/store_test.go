package store

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

var ctx = context.Background()

func newTestStore(t *testing.T) *Store {
	t.Helper()
	s, err := NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// withClock pins the store clock and returns a function that moves it.
func withClock(s *Store, start time.Time) func(time.Duration) {
	cur := start
	s.now = func() time.Time { return cur }
	return func(d time.Duration) { cur = cur.Add(d) }
}

func createTask(t *testing.T, s *Store, d task.Draft) *task.Task {
	t.Helper()
	tk, err := s.CreateTask(ctx, d)
	if err != nil {
		t.Fatalf("create task: %v", err)
	}
	return tk
}

func hasColumn(t *testing.T, db *sqlx.DB, name string) bool {
	t.Helper()
	rows, err := db.Queryx("PRAGMA table_info(tasks)")
	if err != nil {
		t.Fatal(err)
	}
	defer rows.Close()
	for rows.Next() {
		cols, err := rows.SliceScan()
		if err != nil {
			t.Fatal(err)
		}
		if n, ok := cols[1].(string); ok && n == name {
			return true
		}
	}
	return false
}

// ============================================================
// Store initialization
// ============================================================

func TestNewMemory(t *testing.T) {
	s := newTestStore(t)

	var version int
	if err := s.db.Get(&version, "PRAGMA user_version"); err != nil {
		t.Fatal(err)
	}
	if version != currentVersion {
		t.Fatalf("expected user_version %d, got %d", currentVersion, version)
	}
	if !hasColumn(t, s.db, "archived") {
		t.Fatal("archived column missing after migration")
	}
}

func TestNewWithPath(t *testing.T) {
	path := filepath.Join(t.TempDir(), "sub", "planr.db")
	s, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	createTask(t, s, task.Draft{Title: "persisted", Date: "2024-06-10"})
	s.Close()

	s2, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer s2.Close()
	tasks, err := s2.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 1 || tasks[0].Title != "persisted" {
		t.Fatalf("expected persisted task, got %+v", tasks)
	}
}

func TestMigrateAddsArchivedToV1Database(t *testing.T) {
	path := filepath.Join(t.TempDir(), "old.db")
	db, err := sqlx.Open("sqlite", path)
	if err != nil {
		t.Fatal(err)
	}
	old := &Store{db: db}
	if err := old.migrateV1(); err != nil {
		t.Fatal(err)
	}
	db.MustExec(`INSERT INTO tasks (id, title, date, status, created_at, updated_at)
		VALUES ('t1', 'legacy', '2024-01-02', 'Completed', '2024-01-01T00:00:00Z', '2024-01-01T00:00:00Z')`)
	db.MustExec("PRAGMA user_version = 1")
	db.Close()

	s, err := New(path)
	if err != nil {
		t.Fatalf("reopen: %v", err)
	}
	defer s.Close()

	got, err := s.GetTask(ctx, "t1")
	if err != nil {
		t.Fatal(err)
	}
	if got.Archived || got.Status != task.StatusCompleted || len(got.Subtasks) != 0 {
		t.Fatalf("unexpected legacy task: %+v", got)
	}
}

func TestMigrationIdempotent(t *testing.T) {
	s := newTestStore(t)
	if err := s.migrate(); err != nil {
		t.Fatalf("second migration failed: %v", err)
	}
	if err := s.migrateV2(); err != nil {
		t.Fatalf("v2 on migrated schema: %v", err)
	}
}

func TestDefaultDBPath(t *testing.T) {
	path, err := DefaultDBPath()
	if err != nil {
		t.Fatal(err)
	}
	if filepath.Base(path) != "planr.db" {
		t.Fatalf("unexpected path %q", path)
	}
}

// ============================================================
// Tasks
// ============================================================

func TestCreateAndGetTask(t *testing.T) {
	s := newTestStore(t)
	withClock(s, time.Date(2024, 6, 10, 9, 30, 0, 0, time.UTC))

	tk := createTask(t, s, task.Draft{
		Title:    "Plan sprint",
		Subtasks: []task.Subtask{{ID: "s1", Title: "agenda"}},
	})
	if tk.ID == "" {
		t.Fatal("expected generated id")
	}
	if tk.Date != "2024-06-10" || tk.StartTime != "09:30" || tk.EndTime != "11:30" {
		t.Fatalf("defaults not applied: %+v", tk)
	}
	if tk.Status != task.StatusNotStarted || tk.Archived {
		t.Fatalf("unexpected status/archived: %+v", tk)
	}
	if !tk.CreatedAt.Equal(tk.UpdatedAt) || tk.CreatedAt.IsZero() {
		t.Fatalf("timestamps: %v %v", tk.CreatedAt, tk.UpdatedAt)
	}

	got, err := s.GetTask(ctx, tk.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Subtasks) != 1 || got.Subtasks[0].Title != "agenda" {
		t.Fatalf("subtasks not round-tripped: %+v", got.Subtasks)
	}
}

func TestCreateTaskUsesDefaultDurationSetting(t *testing.T) {
	s := newTestStore(t)
	withClock(s, time.Date(2024, 6, 10, 23, 30, 0, 0, time.UTC))
	if err := s.SetSetting(ctx, KeyDefaultDuration, "45"); err != nil {
		t.Fatal(err)
	}

	tk := createTask(t, s, task.Draft{Title: "late"})
	if tk.EndTime != "00:15" {
		t.Fatalf("expected wrap to 00:15, got %q", tk.EndTime)
	}
}

func TestCreateTaskRejectsInvalid(t *testing.T) {
	s := newTestStore(t)
	tests := []task.Draft{
		{Title: "  "},
		{Title: "x", Date: "2024-13-01"},
		{Title: "x", Status: "Done"},
	}
	for _, d := range tests {
		_, err := s.CreateTask(ctx, d)
		if !errors.Is(err, task.ErrInvalid) {
			t.Errorf("CreateTask(%+v): expected ErrInvalid, got %v", d, err)
		}
	}
	if s.Version() != 1 {
		t.Fatalf("rejected writes should not bump version, got %d", s.Version())
	}
}

func TestGetTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetTask(ctx, "missing")
	if !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestListTasksOrder(t *testing.T) {
	s := newTestStore(t)
	createTask(t, s, task.Draft{Title: "c", Date: "2024-06-11", StartTime: "08:00"})
	createTask(t, s, task.Draft{Title: "b", Date: "2024-06-10", StartTime: "14:00"})
	createTask(t, s, task.Draft{Title: "a", Date: "2024-06-10", StartTime: "09:00"})

	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 3 || tasks[0].Title != "a" || tasks[1].Title != "b" || tasks[2].Title != "c" {
		t.Fatalf("unexpected order: %+v", tasks)
	}
}

func TestListTasksEmpty(t *testing.T) {
	s := newTestStore(t)
	tasks, err := s.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if tasks == nil || len(tasks) != 0 {
		t.Fatalf("expected empty non-nil slice, got %#v", tasks)
	}
}

func TestUpdateTask(t *testing.T) {
	s := newTestStore(t)
	advance := withClock(s, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	tk := createTask(t, s, task.Draft{Title: "draft", Date: "2024-06-10"})

	advance(time.Hour)
	edit := tk.Clone()
	edit.Title = "final"
	edit.SetStatus(task.StatusInProgress)
	edit.Archived = true
	edit.AddSubtask("review")
	edit.CreatedAt = time.Time{}

	got, err := s.UpdateTask(ctx, edit)
	if err != nil {
		t.Fatal(err)
	}
	if got.Title != "final" || got.Status != task.StatusInProgress || !got.Archived || len(got.Subtasks) != 1 {
		t.Fatalf("update not applied: %+v", got)
	}
	if !got.CreatedAt.Equal(tk.CreatedAt) {
		t.Fatalf("CreatedAt changed: %v -> %v", tk.CreatedAt, got.CreatedAt)
	}
	if !got.UpdatedAt.Equal(tk.CreatedAt.Add(time.Hour)) {
		t.Fatalf("UpdatedAt = %v", got.UpdatedAt)
	}
}

func TestUpdateTaskNeverMovesUpdatedAtBack(t *testing.T) {
	s := newTestStore(t)
	advance := withClock(s, time.Date(2024, 6, 10, 9, 0, 0, 0, time.UTC))
	tk := createTask(t, s, task.Draft{Title: "x", Date: "2024-06-10"})

	advance(-time.Hour)
	got, err := s.UpdateTask(ctx, *tk)
	if err != nil {
		t.Fatal(err)
	}
	if got.UpdatedAt.Before(tk.UpdatedAt) {
		t.Fatalf("UpdatedAt moved back: %v < %v", got.UpdatedAt, tk.UpdatedAt)
	}
}

func TestUpdateTaskNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.UpdateTask(ctx, task.Task{ID: "nope", Title: "x", Date: "2024-06-10", Status: task.StatusCompleted})
	if !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
}

func TestDeleteTask(t *testing.T) {
	s := newTestStore(t)
	tk := createTask(t, s, task.Draft{Title: "gone"})

	if err := s.DeleteTask(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if _, err := s.GetTask(ctx, tk.ID); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound after delete, got %v", err)
	}
	if err := s.DeleteTask(ctx, tk.ID); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("second delete: expected ErrNotFound, got %v", err)
	}
}

func TestBulkOperationsThroughStore(t *testing.T) {
	s := newTestStore(t)
	a := createTask(t, s, task.Draft{Title: "a"})
	b := createTask(t, s, task.Draft{Title: "b"})
	createTask(t, s, task.Draft{Title: "c"})

	tasks, _ := s.ListTasks(ctx)
	n, err := task.BulkSetStatus(ctx, s, tasks, []string{a.ID, b.ID}, task.StatusCompleted)
	if err != nil || n != 2 {
		t.Fatalf("BulkSetStatus = %d, %v", n, err)
	}

	n, err = task.BulkDelete(ctx, s, []string{a.ID, "missing"})
	if n != 1 || !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("BulkDelete = %d, %v", n, err)
	}

	tasks, _ = s.ListTasks(ctx)
	if len(tasks) != 2 {
		t.Fatalf("expected 2 tasks left, got %d", len(tasks))
	}
}

// ============================================================
// Snapshot
// ============================================================

func TestSnapshotVersionBumpsOnWrites(t *testing.T) {
	s := newTestStore(t)
	v0 := s.Version()
	if v0 == 0 {
		t.Fatal("version must never be zero")
	}

	tk := createTask(t, s, task.Draft{Title: "x"})
	snap, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if snap.Version&0xffffffff != v0+1 || len(snap.Tasks) != 1 {
		t.Fatalf("after create: version %d, %d tasks", snap.Version, len(snap.Tasks))
	}

	if _, err := s.UpdateTask(ctx, *tk); err != nil {
		t.Fatal(err)
	}
	if err := s.DeleteTask(ctx, tk.ID); err != nil {
		t.Fatal(err)
	}
	if s.Version() != v0+3 {
		t.Fatalf("expected version %d, got %d", v0+3, s.Version())
	}

	if err := s.SetSetting(ctx, KeyPreviewLimit, "5"); err != nil {
		t.Fatal(err)
	}
	if s.Version() != v0+3 {
		t.Fatal("settings writes should not bump the task version")
	}
}

func TestSnapshotSeesWritesFromAnotherStore(t *testing.T) {
	path := filepath.Join(t.TempDir(), "shared.db")
	a, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer a.Close()
	b, err := New(path)
	if err != nil {
		t.Fatal(err)
	}
	defer b.Close()

	engine := analytics.NewEngine(nil)
	before, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r := engine.Report(before, window.All()); r.KPI.Total != 0 {
		t.Fatalf("empty store reported %d tasks", r.KPI.Total)
	}

	createTask(t, b, task.Draft{Title: "from b", Date: "2024-06-12"})

	after, err := a.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(after.Tasks) != 1 {
		t.Fatalf("expected 1 task, got %d", len(after.Tasks))
	}
	if after.Key() == before.Key() {
		t.Fatalf("key %s did not change after a write from another store", after.Key())
	}
	if r := engine.Report(after, window.All()); r.KPI.Total != 1 {
		t.Fatalf("stale report: total=%d, snapshot has %d tasks", r.KPI.Total, len(after.Tasks))
	}
	if occ := engine.Calendar(after); len(occ.Day("2024-06-12").Entries) != 1 {
		t.Fatal("stale calendar after a write from another store")
	}
}

func TestSnapshotVersionStableWithoutWrites(t *testing.T) {
	s := newTestStore(t)
	createTask(t, s, task.Draft{Title: "x"})
	first, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	second, err := s.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if first.Version != second.Version {
		t.Fatalf("version moved without a write: %d -> %d", first.Version, second.Version)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettingsDefaults(t *testing.T) {
	s := newTestStore(t)

	d, err := s.DefaultDuration(ctx)
	if err != nil || d != 120 {
		t.Fatalf("DefaultDuration = %d, %v", d, err)
	}
	p, err := s.PreviewLimit(ctx)
	if err != nil || p != 3 {
		t.Fatalf("PreviewLimit = %d, %v", p, err)
	}
	r, err := s.DefaultRange(ctx)
	if err != nil || r.Range != window.RangeAll {
		t.Fatalf("DefaultRange = %+v, %v", r, err)
	}
}

func TestSetSetting(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting(ctx, KeyDefaultRange, "custom:2024-01-01..2024-01-31"); err != nil {
		t.Fatal(err)
	}
	r, err := s.DefaultRange(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if r != window.Custom("2024-01-01", "2024-01-31") {
		t.Fatalf("DefaultRange = %+v", r)
	}
}

func TestSetSettingValidates(t *testing.T) {
	s := newTestStore(t)
	bad := map[string]string{
		KeyDefaultDuration: "0",
		KeyPreviewLimit:    "many",
		KeyDefaultRange:    "fortnight",
	}
	for k, v := range bad {
		if err := s.SetSetting(ctx, k, v); err == nil {
			t.Errorf("SetSetting(%q, %q): expected error", k, v)
		}
	}
}

func TestSetSettingNewKey(t *testing.T) {
	s := newTestStore(t)
	if err := s.SetSetting(ctx, "theme", "dark"); err != nil {
		t.Fatal(err)
	}
	v, err := s.GetSetting(ctx, "theme")
	if err != nil || v != "dark" {
		t.Fatalf("GetSetting = %q, %v", v, err)
	}
}

func TestGetSettingNotFound(t *testing.T) {
	s := newTestStore(t)
	_, err := s.GetSetting(ctx, "nonexistent")
	if !errors.Is(err, ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}

func TestGetAllSettings(t *testing.T) {
	s := newTestStore(t)
	settings, err := s.GetAllSettings(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(settings) != 3 {
		t.Fatalf("expected 3 default settings, got %d", len(settings))
	}
	if settings[0].Key != KeyDefaultDuration {
		t.Fatalf("expected sorted keys, got %+v", settings)
	}
}

// ============================================================
// Close
// ============================================================

func TestCloseTwice(t *testing.T) {
	s, err := NewMemory()
	if err != nil {
		t.Fatal(err)
	}
	if err := s.Close(); err != nil {
		t.Fatal(err)
	}
	s.Close()
}
