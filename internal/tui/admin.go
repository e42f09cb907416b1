package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/task"
)

type adminForm int

const (
	adminFormNone adminForm = iota
	adminFormStatus
	adminFormDelete
)

// adminModel lists every task, archived included, and applies bulk edits
// to the marked ones (or the one under the cursor when nothing is marked).
type adminModel struct {
	backend Backend
	width   int
	height  int

	tasks  []task.Task
	cursor int
	marks  map[string]bool

	formKind   adminForm
	form       *huh.Form
	bulkStatus *string
	confirm    *bool
}

func newAdminModel(b Backend) adminModel {
	status, confirm := string(task.StatusCompleted), false
	return adminModel{
		backend:    b,
		marks:      map[string]bool{},
		bulkStatus: &status,
		confirm:    &confirm,
	}
}

func (a *adminModel) setSize(w, h int) {
	a.width = w
	a.height = h
}

func (a *adminModel) setData(msg dataMsg) {
	a.tasks = make([]task.Task, len(msg.snap.Tasks))
	copy(a.tasks, msg.snap.Tasks)
	task.SortByDateTime(a.tasks)

	live := make(map[string]bool, len(a.tasks))
	for _, t := range a.tasks {
		live[t.ID] = true
	}
	for id := range a.marks {
		if !live[id] {
			delete(a.marks, id)
		}
	}
	if a.cursor >= len(a.tasks) {
		a.cursor = max(0, len(a.tasks)-1)
	}
}

func (a adminModel) formActive() bool {
	return a.formKind != adminFormNone && a.form != nil
}

// selection returns the marked ids in list order, or the cursor task.
func (a adminModel) selection() []string {
	var ids []string
	for _, t := range a.tasks {
		if a.marks[t.ID] {
			ids = append(ids, t.ID)
		}
	}
	if len(ids) == 0 && a.cursor < len(a.tasks) {
		ids = []string{a.tasks[a.cursor].ID}
	}
	return ids
}

func (a adminModel) update(msg tea.Msg) (adminModel, tea.Cmd) {
	if a.formActive() {
		return a.updateForm(msg)
	}

	switch msg := msg.(type) {
	case dataMsg:
		a.setData(msg)
		return a, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Up):
			if a.cursor > 0 {
				a.cursor--
			}
		case key.Matches(msg, keys.Down):
			if a.cursor < len(a.tasks)-1 {
				a.cursor++
			}
		case key.Matches(msg, keys.Mark):
			if a.cursor < len(a.tasks) {
				id := a.tasks[a.cursor].ID
				if a.marks[id] {
					delete(a.marks, id)
				} else {
					a.marks[id] = true
				}
				if a.cursor < len(a.tasks)-1 {
					a.cursor++
				}
			}
		case key.Matches(msg, keys.Enter):
			if a.cursor < len(a.tasks) {
				return a, msgCmd(openDetailMsg{id: a.tasks[a.cursor].ID})
			}
		case key.Matches(msg, keys.Status):
			if len(a.selection()) > 0 {
				return a.showStatusForm()
			}
		case key.Matches(msg, keys.Archive):
			if ids := a.selection(); len(ids) > 0 {
				t, _ := findTask(a.tasks, ids[0])
				return a, a.bulkArchive(ids, !t.Archived)
			}
		case key.Matches(msg, keys.Delete):
			if len(a.selection()) > 0 {
				return a.showDeleteForm()
			}
		}
	}
	return a, nil
}

func (a adminModel) showStatusForm() (adminModel, tea.Cmd) {
	opts := make([]huh.Option[string], 0, len(task.Statuses))
	for _, s := range task.Statuses {
		opts = append(opts, huh.NewOption(string(s), string(s)))
	}
	a.formKind = adminFormStatus
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewSelect[string]().
				Title(fmt.Sprintf("Set status of %d task(s)", len(a.selection()))).
				Options(opts...).
				Value(a.bulkStatus),
		),
	).WithShowHelp(true)
	return a, a.form.Init()
}

func (a adminModel) showDeleteForm() (adminModel, tea.Cmd) {
	*a.confirm = false
	a.formKind = adminFormDelete
	a.form = huh.NewForm(
		huh.NewGroup(
			huh.NewConfirm().
				Title(fmt.Sprintf("Delete %d task(s)?", len(a.selection()))).
				Affirmative("Delete").
				Negative("Cancel").
				Value(a.confirm),
		),
	).WithShowHelp(true)
	return a, a.form.Init()
}

func (a adminModel) updateForm(msg tea.Msg) (adminModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			a.formKind = adminFormNone
			a.form = nil
			return a, nil
		}
	}

	form, cmd := a.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		a.form = f
	}
	if a.form.State != huh.StateCompleted {
		return a, cmd
	}

	kind := a.formKind
	a.formKind = adminFormNone
	a.form = nil
	return a, a.submit(kind)
}

func (a adminModel) submit(kind adminForm) tea.Cmd {
	ids := a.selection()
	switch kind {
	case adminFormStatus:
		return a.bulkStatusCmd(ids, task.Status(*a.bulkStatus))
	case adminFormDelete:
		if *a.confirm {
			return a.bulkDelete(ids)
		}
	}
	return nil
}

func (a adminModel) bulkStatusCmd(ids []string, s task.Status) tea.Cmd {
	tasks := a.tasks
	a.clearMarks()
	return bulkCmd("Set "+string(s)+" on", func(ctx context.Context) (int, error) {
		return task.BulkSetStatus(ctx, a.backend, tasks, ids, s)
	})
}

func (a adminModel) bulkArchive(ids []string, archived bool) tea.Cmd {
	tasks := a.tasks
	verb := "Archived"
	if !archived {
		verb = "Restored"
	}
	a.clearMarks()
	return bulkCmd(verb, func(ctx context.Context) (int, error) {
		return task.BulkSetArchived(ctx, a.backend, tasks, ids, archived)
	})
}

func (a adminModel) bulkDelete(ids []string) tea.Cmd {
	a.clearMarks()
	return bulkCmd("Deleted", func(ctx context.Context) (int, error) {
		return task.BulkDelete(ctx, a.backend, ids)
	})
}

func (a adminModel) clearMarks() {
	for id := range a.marks {
		delete(a.marks, id)
	}
}

// bulkCmd runs fn and reports how many tasks it touched. Partial failures
// still reload the snapshot so the list reflects what was written.
func bulkCmd(verb string, fn func(ctx context.Context) (int, error)) tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		n, err := fn(ctx)
		if err != nil {
			return tea.BatchMsg{
				msgCmd(changedMsg{}),
				msgCmd(statusMsg{text: fmt.Sprintf("%s %d task(s); failures: %v", verb, n, err), isError: true}),
			}
		}
		return changedMsg{text: fmt.Sprintf("%s %d task(s)", verb, n)}
	}
}

func (a adminModel) view() string {
	w := a.width - 4

	if a.formActive() {
		return activePanelStyle.Width(w).Render(a.form.View())
	}

	title := titleStyle.Render(fmt.Sprintf("All tasks (%d)", len(a.tasks)))
	if n := len(a.marks); n > 0 {
		title += highlightStyle.Render(fmt.Sprintf("  %d marked", n))
	}
	rows := []string{title, ""}

	if len(a.tasks) == 0 {
		rows = append(rows, mutedStyle.Render("  No tasks yet"))
	} else {
		rows = append(rows, mutedStyle.Render(fmt.Sprintf("     %-10s %-11s %-13s %s", "Date", "Time", "Status", "Title")))
		rows = append(rows, mutedStyle.Render("  "+strings.Repeat("─", max(0, min(w-6, 70)))))

		visible := max(1, a.height-10)
		offset := max(0, a.cursor-visible+1)
		end := min(len(a.tasks), offset+visible)
		for i := offset; i < end; i++ {
			rows = append(rows, a.renderRow(i, w))
		}
	}

	rows = append(rows, "", mutedStyle.Render("  space: mark  enter: details  s: status  a: archive  d: delete"))
	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a adminModel) renderRow(i, w int) string {
	t := a.tasks[i]
	cursor := "  "
	style := normalItemStyle
	if i == a.cursor {
		cursor = "> "
		style = selectedItemStyle
	}
	mark := " "
	if a.marks[t.ID] {
		mark = "✓"
	}
	title := truncate(t.Title, max(8, w-50))
	if t.Archived {
		title = mutedStyle.Render(title + " (archived)")
	}
	row := fmt.Sprintf("%s%s  %-10s %s-%s %s %-11s %s",
		cursor, mark, t.Date, t.StartTime, t.EndTime, statusDot(t.Status), t.Status, title)
	if p := progressLabel(t); p != "" {
		row += mutedStyle.Render("  " + p)
	}
	return style.Render(row)
}
