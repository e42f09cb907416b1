package tui

import (
	"fmt"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
)

type detailForm int

const (
	detailFormNone detailForm = iota
	detailFormAdd
	detailFormRename
	detailFormEdit
)

// detailModel shows one task and edits its status, archive flag and
// subtasks. Every change is written through immediately.
type detailModel struct {
	backend Backend
	engine  *analytics.Engine
	width   int
	height  int

	task     task.Task
	duration int
	cursor   int

	formKind detailForm
	form     *huh.Form
	input    *string
	values   *taskForm
}

func newDetailModel(b Backend, e *analytics.Engine) detailModel {
	in := ""
	return detailModel{
		backend:  b,
		engine:   e,
		duration: task.DefaultDuration,
		input:    &in,
		values:   newTaskForm(),
	}
}

func (d *detailModel) setSize(w, h int) {
	d.width = w
	d.height = h
}

func (d *detailModel) open(t task.Task, duration int) {
	if duration <= 0 {
		duration = task.DefaultDuration
	}
	d.task = t.Clone()
	d.duration = duration
	d.cursor = 0
	d.formKind = detailFormNone
	d.form = nil
}

func (d detailModel) formActive() bool {
	return d.formKind != detailFormNone && d.form != nil
}

func (d detailModel) selectedSubtask() (task.Subtask, bool) {
	if d.cursor < 0 || d.cursor >= len(d.task.Subtasks) {
		return task.Subtask{}, false
	}
	return d.task.Subtasks[d.cursor], true
}

func (d detailModel) update(msg tea.Msg) (detailModel, tea.Cmd) {
	if d.formActive() {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case taskSavedMsg:
		if msg.task.ID == d.task.ID {
			d.task = msg.task
			if d.cursor >= len(d.task.Subtasks) {
				d.cursor = max(0, len(d.task.Subtasks)-1)
			}
		}
		return d, nil

	case tea.KeyMsg:
		return d.updateKeys(msg)
	}
	return d, nil
}

func (d detailModel) updateKeys(msg tea.KeyMsg) (detailModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Back):
		return d, msgCmd(closeDetailMsg{})
	case key.Matches(msg, keys.Up):
		if d.cursor > 0 {
			d.cursor--
		}
		return d, nil
	case key.Matches(msg, keys.Down):
		if d.cursor < len(d.task.Subtasks)-1 {
			d.cursor++
		}
		return d, nil
	case key.Matches(msg, keys.Status):
		u := d.task.Clone()
		u.SetStatus(d.task.Status.Next())
		return d, saveTaskCmd(d.backend, u, "Status: "+string(u.Status))
	case key.Matches(msg, keys.Archive):
		u := d.task.Clone()
		u.ToggleArchived()
		text := "Archived"
		if !u.Archived {
			text = "Restored"
		}
		return d, saveTaskCmd(d.backend, u, text)
	case key.Matches(msg, keys.New):
		*d.input = ""
		return d.showInput(detailFormAdd, "New subtask")
	case key.Matches(msg, keys.Edit):
		d.values.fillTask(d.task, d.duration)
		d.formKind = detailFormEdit
		d.form = d.values.form("Edit task")
		return d, d.form.Init()
	}

	st, ok := d.selectedSubtask()
	if !ok {
		return d, nil
	}
	u := d.task.Clone()
	switch {
	case key.Matches(msg, keys.Mark), key.Matches(msg, keys.Enter):
		u.ToggleSubtask(st.ID)
		return d, saveTaskCmd(d.backend, u, "")
	case key.Matches(msg, keys.Delete):
		u.RemoveSubtask(st.ID)
		return d, saveTaskCmd(d.backend, u, fmt.Sprintf("Removed %q", st.Title))
	case msg.String() == "r":
		*d.input = st.Title
		return d.showInput(detailFormRename, "Rename subtask")
	case key.Matches(msg, keys.MoveUp):
		if d.cursor > 0 {
			u.MoveSubtask(st.ID, d.task.Subtasks[d.cursor-1].ID)
			d.cursor--
			return d, saveTaskCmd(d.backend, u, "")
		}
	case key.Matches(msg, keys.MoveDown):
		if d.cursor < len(d.task.Subtasks)-1 {
			u.MoveSubtask(st.ID, d.task.Subtasks[d.cursor+1].ID)
			d.cursor++
			return d, saveTaskCmd(d.backend, u, "")
		}
	}
	return d, nil
}

func (d detailModel) showInput(kind detailForm, title string) (detailModel, tea.Cmd) {
	d.formKind = kind
	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title(title).Value(d.input),
		),
	).WithShowHelp(true)
	return d, d.form.Init()
}

func (d detailModel) updateForm(msg tea.Msg) (detailModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formKind = detailFormNone
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}
	if d.form.State != huh.StateCompleted {
		return d, cmd
	}

	kind := d.formKind
	d.formKind = detailFormNone
	d.form = nil
	return d.submit(kind)
}

// submit applies a completed form of the given kind.
func (d detailModel) submit(kind detailForm) (detailModel, tea.Cmd) {
	u := d.task.Clone()
	switch kind {
	case detailFormAdd:
		if u.AddSubtask(*d.input) == "" {
			return d, nil
		}
		d.cursor = len(u.Subtasks) - 1
		return d, saveTaskCmd(d.backend, u, "Added subtask")
	case detailFormRename:
		st, ok := d.selectedSubtask()
		if !ok {
			return d, nil
		}
		u.RenameSubtask(st.ID, *d.input)
		return d, saveTaskCmd(d.backend, u, "Renamed subtask")
	case detailFormEdit:
		return d, saveTaskCmd(d.backend, d.values.apply(d.task, d.duration), fmt.Sprintf("Saved %q", *d.values.title))
	}
	return d, nil
}

func (d detailModel) view() string {
	w := d.width - 4
	if d.formActive() {
		return activePanelStyle.Width(w).Render(d.form.View())
	}

	t := d.task
	now := d.engine.Now()

	title := titleStyle.Render(t.Title)
	if t.Archived {
		title += mutedStyle.Render("  (archived)")
	}

	mins := t.Duration(d.duration)
	rows := []string{
		title,
		fmt.Sprintf("%s %s", statusDot(t.Status), statusStyle(t.Status).Render(string(t.Status))),
		fmt.Sprintf("%s  %s-%s  %s", t.Date, t.StartTime, t.EndTime, mutedStyle.Render(fmt.Sprintf("(%dh%02dm)", mins/60, mins%60))),
	}
	if t.Description != "" {
		rows = append(rows, "", t.Description)
	}

	done, total := t.Progress()
	rows = append(rows, "", titleStyle.Render(fmt.Sprintf("Subtasks %d/%d", done, total)))
	if total == 0 {
		rows = append(rows, mutedStyle.Render("  No subtasks. Press n to add one."))
	}
	for i, st := range t.Subtasks {
		cursor := "  "
		style := normalItemStyle
		if i == d.cursor {
			cursor = "> "
			style = selectedItemStyle
		}
		check := "[ ]"
		if st.Completed {
			check = successStyle.Render("[x]")
		}
		rows = append(rows, style.Render(fmt.Sprintf("%s%s %s", cursor, check, st.Title)))
	}

	rows = append(rows, "",
		mutedStyle.Render(fmt.Sprintf("Created %s · updated %s", relTime(t.CreatedAt, now), relTime(t.UpdatedAt, now))),
		"",
		mutedStyle.Render("s: status  a: archive  i: edit  n: add  r: rename  d: remove  space: toggle  K/J: reorder  esc: back"),
	)

	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

