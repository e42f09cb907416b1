package tui

import (
	"context"
	"fmt"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/dustin/go-humanize"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

// Backend is what the TUI needs from persistence. Both *store.Store and
// *client.Client satisfy it.
type Backend interface {
	task.Repository
	analytics.Source
	GetAllSettings(ctx context.Context) ([]store.Setting, error)
	SetSetting(ctx context.Context, key, value string) error
	DefaultDuration(ctx context.Context) (int, error)
	PreviewLimit(ctx context.Context) (int, error)
	DefaultRange(ctx context.Context) (window.Selector, error)
}

// opTimeout bounds every backend call made from a command.
const opTimeout = 5 * time.Second

// statusTTL is how long a status banner stays up.
const statusTTL = 4 * time.Second

// viewState represents the currently active view.
type viewState int

const (
	viewCalendar viewState = iota
	viewDashboard
	viewAdmin
	viewSettings
)

var viewNames = []string{"Calendar", "Dashboard", "Admin", "Settings"}

// --- Messages ---

// dataMsg carries a fresh snapshot plus the settings views depend on.
type dataMsg struct {
	snap            analytics.Snapshot
	previewLimit    int
	defaultDuration int
	defaultRange    window.Selector
}

type statusMsg struct {
	text    string
	isError bool
}

type clearStatusMsg struct {
	seq int
}

// changedMsg reports a successful write; the app reloads its snapshot.
type changedMsg struct {
	text string
}

// taskSavedMsg is a changedMsg that also carries the stored task.
type taskSavedMsg struct {
	task task.Task
	text string
}

type openDetailMsg struct {
	id string
}

type closeDetailMsg struct{}

type exportDoneMsg struct {
	path string
}

// --- Commands ---

func loadCmd(b Backend) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		snap, err := b.Snapshot(ctx)
		if err != nil {
			return errMsg("Load failed", err)
		}
		msg := dataMsg{snap: snap}
		if msg.previewLimit, err = b.PreviewLimit(ctx); err != nil {
			return errMsg("Load settings failed", err)
		}
		if msg.defaultDuration, err = b.DefaultDuration(ctx); err != nil {
			return errMsg("Load settings failed", err)
		}
		if msg.defaultRange, err = b.DefaultRange(ctx); err != nil {
			return errMsg("Load settings failed", err)
		}
		return msg
	}
}

func saveTaskCmd(b Backend, t task.Task, text string) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		saved, err := b.UpdateTask(ctx, t)
		if err != nil {
			return errMsg("Save failed", err)
		}
		return taskSavedMsg{task: *saved, text: text}
	}
}

func createTaskCmd(b Backend, d task.Draft) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		created, err := b.CreateTask(ctx, d)
		if err != nil {
			return errMsg("Create failed", err)
		}
		return taskSavedMsg{task: *created, text: fmt.Sprintf("Created %q", created.Title)}
	}
}

func deleteTaskCmd(b Backend, t task.Task) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		if err := b.DeleteTask(ctx, t.ID); err != nil {
			return errMsg("Delete failed", err)
		}
		return changedMsg{text: fmt.Sprintf("Deleted %q", t.Title)}
	}
}

func errMsg(prefix string, err error) statusMsg {
	return statusMsg{text: fmt.Sprintf("%s: %v", prefix, err), isError: true}
}

func msgCmd(msg tea.Msg) tea.Cmd {
	return func() tea.Msg { return msg }
}

// --- Helpers ---

func findTask(tasks []task.Task, id string) (task.Task, bool) {
	for _, t := range tasks {
		if t.ID == id {
			return t, true
		}
	}
	return task.Task{}, false
}

func statusDot(s task.Status) string {
	return statusStyle(s).Render("●")
}

func relTime(t, now time.Time) string {
	if t.IsZero() {
		return "never"
	}
	return humanize.RelTime(t, now, "ago", "from now")
}

func truncate(s string, w int) string {
	if w <= 0 {
		return ""
	}
	r := []rune(s)
	if len(r) <= w {
		return s
	}
	if w == 1 {
		return "…"
	}
	return string(r[:w-1]) + "…"
}

func progressLabel(t task.Task) string {
	done, total := t.Progress()
	if total == 0 {
		return ""
	}
	return fmt.Sprintf("%d/%d", done, total)
}
