package client

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"go.uber.org/zap/zaptest"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/config"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/server"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

var (
	ctx = context.Background()
	now = time.Date(2024, 6, 12, 15, 0, 0, 0, time.UTC)
)

func newTestClient(t *testing.T) (*Client, *store.Store) {
	t.Helper()
	st, err := store.NewMemory()
	if err != nil {
		t.Fatalf("new memory store: %v", err)
	}
	t.Cleanup(func() { st.Close() })

	engine := analytics.NewEngine(func() time.Time { return now })
	srv := server.New(config.ServerConfig{CORSAllowedOrigins: "*"}, st, engine, logging.FromZap(zaptest.NewLogger(t)))
	ts := httptest.NewServer(srv.Handler())
	t.Cleanup(ts.Close)

	return New(ts.URL+"/", time.Second), st
}

// ============================================================
// Tasks
// ============================================================

func TestTaskRoundTrip(t *testing.T) {
	c, _ := newTestClient(t)

	created, err := c.CreateTask(ctx, task.Draft{Title: "remote", Date: "2024-06-12", StartTime: "10:00"})
	if err != nil {
		t.Fatal(err)
	}
	if created.ID == "" || created.EndTime != "12:00" {
		t.Fatalf("unexpected created task: %+v", created)
	}

	created.SetStatus(task.StatusInProgress)
	created.AddSubtask("step one")
	updated, err := c.UpdateTask(ctx, *created)
	if err != nil {
		t.Fatal(err)
	}
	if updated.Status != task.StatusInProgress || len(updated.Subtasks) != 1 {
		t.Fatalf("update not applied: %+v", updated)
	}

	got, err := c.GetTask(ctx, created.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Subtasks[0].Title != "step one" {
		t.Fatalf("subtasks = %+v", got.Subtasks)
	}

	if err := c.DeleteTask(ctx, created.ID); err != nil {
		t.Fatal(err)
	}
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		t.Fatal(err)
	}
	if len(tasks) != 0 {
		t.Fatalf("expected no tasks, got %d", len(tasks))
	}
}

func TestErrorMapping(t *testing.T) {
	c, _ := newTestClient(t)

	if _, err := c.GetTask(ctx, "missing"); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := c.DeleteTask(ctx, "missing"); !errors.Is(err, task.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := c.CreateTask(ctx, task.Draft{Title: ""}); !errors.Is(err, task.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
}

func TestBulkThroughClient(t *testing.T) {
	c, _ := newTestClient(t)
	a, _ := c.CreateTask(ctx, task.Draft{Title: "a", Date: "2024-06-12"})
	b, _ := c.CreateTask(ctx, task.Draft{Title: "b", Date: "2024-06-12"})

	tasks, _ := c.ListTasks(ctx)
	n, err := task.BulkSetArchived(ctx, c, tasks, []string{a.ID, b.ID}, true)
	if err != nil || n != 2 {
		t.Fatalf("BulkSetArchived = %d, %v", n, err)
	}
	tasks, _ = c.ListTasks(ctx)
	if len(task.Active(tasks)) != 0 {
		t.Fatal("expected every task archived")
	}
}

func TestUnreachableServer(t *testing.T) {
	ts := httptest.NewServer(http.NotFoundHandler())
	url := ts.URL
	ts.Close()

	c := New(url, 200*time.Millisecond)
	if _, err := c.ListTasks(ctx); err == nil {
		t.Fatal("expected error from closed server")
	}
	if err := c.Ping(ctx); err == nil {
		t.Fatal("expected ping to fail")
	}
}

// ============================================================
// Snapshot and aggregates
// ============================================================

func TestSnapshotKeysOnContent(t *testing.T) {
	c, _ := newTestClient(t)
	c.CreateTask(ctx, task.Draft{Title: "a", Date: "2024-06-10"})

	s1, err := c.Snapshot(ctx)
	if err != nil {
		t.Fatal(err)
	}
	s2, _ := c.Snapshot(ctx)
	if s1.Version != 0 || s1.Key() != s2.Key() {
		t.Fatalf("expected stable content key, got %q vs %q", s1.Key(), s2.Key())
	}

	c.CreateTask(ctx, task.Draft{Title: "b", Date: "2024-06-11"})
	s3, _ := c.Snapshot(ctx)
	if s3.Key() == s1.Key() {
		t.Fatal("new task should change the content key")
	}
}

func TestStatsMatchesLocalEngine(t *testing.T) {
	c, st := newTestClient(t)
	c.CreateTask(ctx, task.Draft{Title: "a", Date: "2024-06-10", Status: task.StatusCompleted})
	c.CreateTask(ctx, task.Draft{Title: "b", Date: "2024-06-10"})
	c.CreateTask(ctx, task.Draft{Title: "c", Date: "2024-06-12", Status: task.StatusInProgress})

	sel := window.Custom("2024-06-10", "2024-06-12")
	remote, err := c.Stats(ctx, sel)
	if err != nil {
		t.Fatal(err)
	}

	snap, _ := st.Snapshot(ctx)
	local := analytics.NewEngine(func() time.Time { return now }).Report(snap, sel)

	if remote.KPI.Total != local.KPI.Total || remote.KPI.Overdue != local.KPI.Overdue {
		t.Fatalf("remote %+v vs local %+v", remote.KPI, local.KPI)
	}
	if len(remote.Series) != 3 || remote.Series[0].Completed != 1 {
		t.Fatalf("series = %+v", remote.Series)
	}
}

func TestCalendar(t *testing.T) {
	c, _ := newTestClient(t)
	c.CreateTask(ctx, task.Draft{Title: "a", Date: "2024-06-03"})

	m, err := c.Calendar(ctx, "2024-06")
	if err != nil {
		t.Fatal(err)
	}
	if m.Month != "2024-06" || len(m.Days) != 1 || m.PreviewLimit != 3 {
		t.Fatalf("unexpected month: %+v", m)
	}
}

// ============================================================
// Settings
// ============================================================

func TestSettings(t *testing.T) {
	c, _ := newTestClient(t)

	d, err := c.DefaultDuration(ctx)
	if err != nil || d != 120 {
		t.Fatalf("DefaultDuration = %d, %v", d, err)
	}
	if err := c.SetSetting(ctx, store.KeyDefaultRange, "30d"); err != nil {
		t.Fatal(err)
	}
	sel, err := c.DefaultRange(ctx)
	if err != nil || sel.Range != window.RangeLast30Days {
		t.Fatalf("DefaultRange = %+v, %v", sel, err)
	}
	if err := c.SetSetting(ctx, store.KeyPreviewLimit, "-1"); !errors.Is(err, task.ErrInvalid) {
		t.Fatalf("expected rejection, got %v", err)
	}
	if _, err := c.GetSetting(ctx, "nope"); !errors.Is(err, store.ErrUnknownSetting) {
		t.Fatalf("expected ErrUnknownSetting, got %v", err)
	}
}
