package tui

import (
	"fmt"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
)

var weekdayNames = []string{"Sun", "Mon", "Tue", "Wed", "Thu", "Fri", "Sat"}

// calendarModel is the month grid plus the panel for the selected day.
type calendarModel struct {
	backend Backend
	engine  *analytics.Engine
	width   int
	height  int

	snap         analytics.Snapshot
	occ          analytics.Occupancy
	previewLimit int
	duration     int

	cursor    time.Time // selected day, midnight
	dayFocus  bool
	dayCursor int

	formActive bool
	form       *huh.Form
	values     *taskForm
	editingID  string
}

func newCalendarModel(b Backend, e *analytics.Engine) calendarModel {
	return calendarModel{
		backend:      b,
		engine:       e,
		occ:          analytics.Occupancy{},
		previewLimit: store.DefaultPreviewLimit,
		duration:     task.DefaultDuration,
		cursor:       timeutil.StartOfDay(e.Now()),
		values:       newTaskForm(),
	}
}

func (c *calendarModel) setSize(w, h int) {
	c.width = w
	c.height = h
}

func (c *calendarModel) setData(msg dataMsg) {
	c.snap = msg.snap
	c.occ = c.engine.Calendar(msg.snap)
	c.previewLimit = msg.previewLimit
	c.duration = msg.defaultDuration
	if n := len(c.dayTasks()); c.dayCursor >= n {
		c.dayCursor = max(0, n-1)
	}
	if c.dayFocus && len(c.dayTasks()) == 0 {
		c.dayFocus = false
	}
}

func (c calendarModel) selectedKey() string {
	return timeutil.DateKey(c.cursor)
}

// dayTasks lists the non-archived tasks on the selected day by start time.
func (c calendarModel) dayTasks() []task.Task {
	tasks := task.OnDate(task.Active(c.snap.Tasks), c.selectedKey())
	task.SortByStart(tasks)
	return tasks
}

func (c calendarModel) selectedTask() (task.Task, bool) {
	tasks := c.dayTasks()
	if c.dayCursor < 0 || c.dayCursor >= len(tasks) {
		return task.Task{}, false
	}
	return tasks[c.dayCursor], true
}

func (c calendarModel) update(msg tea.Msg) (calendarModel, tea.Cmd) {
	if c.formActive && c.form != nil {
		return c.updateForm(msg)
	}

	switch msg := msg.(type) {
	case dataMsg:
		c.setData(msg)
		return c, nil

	case tea.KeyMsg:
		if c.dayFocus {
			return c.updateDay(msg)
		}
		return c.updateGrid(msg)
	}
	return c, nil
}

func (c calendarModel) updateGrid(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Left):
		c.moveCursor(c.cursor.AddDate(0, 0, -1))
	case key.Matches(msg, keys.Right):
		c.moveCursor(c.cursor.AddDate(0, 0, 1))
	case key.Matches(msg, keys.Up):
		c.moveCursor(c.cursor.AddDate(0, 0, -7))
	case key.Matches(msg, keys.Down):
		c.moveCursor(c.cursor.AddDate(0, 0, 7))
	case key.Matches(msg, keys.PrevMonth):
		c.moveCursor(shiftMonth(c.cursor, -1))
	case key.Matches(msg, keys.NextMonth):
		c.moveCursor(shiftMonth(c.cursor, 1))
	case key.Matches(msg, keys.Today):
		c.moveCursor(timeutil.StartOfDay(c.engine.Now()))
	case key.Matches(msg, keys.Enter):
		if len(c.dayTasks()) > 0 {
			c.dayFocus = true
			c.dayCursor = 0
		}
	case key.Matches(msg, keys.New):
		return c.showNewForm()
	}
	return c, nil
}

func (c calendarModel) updateDay(msg tea.KeyMsg) (calendarModel, tea.Cmd) {
	tasks := c.dayTasks()
	switch {
	case key.Matches(msg, keys.Up):
		if c.dayCursor > 0 {
			c.dayCursor--
		}
	case key.Matches(msg, keys.Down):
		if c.dayCursor < len(tasks)-1 {
			c.dayCursor++
		}
	case key.Matches(msg, keys.Back):
		c.dayFocus = false
	case key.Matches(msg, keys.New):
		return c.showNewForm()
	}

	t, ok := c.selectedTask()
	if !ok {
		return c, nil
	}
	switch {
	case key.Matches(msg, keys.Enter):
		return c, msgCmd(openDetailMsg{id: t.ID})
	case key.Matches(msg, keys.Edit):
		return c.showEditForm(t)
	case key.Matches(msg, keys.Status):
		u := t.Clone()
		u.SetStatus(t.Status.Next())
		return c, saveTaskCmd(c.backend, u, fmt.Sprintf("%q is now %s", t.Title, u.Status))
	case key.Matches(msg, keys.Archive):
		u := t.Clone()
		u.ToggleArchived()
		return c, saveTaskCmd(c.backend, u, fmt.Sprintf("Archived %q", t.Title))
	case key.Matches(msg, keys.Delete):
		return c, deleteTaskCmd(c.backend, t)
	}
	return c, nil
}

func (c *calendarModel) moveCursor(t time.Time) {
	c.cursor = timeutil.StartOfDay(t)
	c.dayCursor = 0
}

// shiftMonth moves by n months, clamping the day to the target month.
func shiftMonth(t time.Time, n int) time.Time {
	first := time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, t.Location()).AddDate(0, n, 0)
	last := first.AddDate(0, 1, -1).Day()
	return first.AddDate(0, 0, min(t.Day(), last)-1)
}

func (c calendarModel) showNewForm() (calendarModel, tea.Cmd) {
	c.values.fillNew(c.selectedKey(), c.engine.Now(), c.duration)
	c.editingID = ""
	c.form = c.values.form("New task")
	c.formActive = true
	return c, c.form.Init()
}

func (c calendarModel) showEditForm(t task.Task) (calendarModel, tea.Cmd) {
	c.values.fillTask(t, c.duration)
	c.editingID = t.ID
	c.form = c.values.form("Edit task")
	c.formActive = true
	return c, c.form.Init()
}

func (c calendarModel) updateForm(msg tea.Msg) (calendarModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			c.formActive = false
			c.form = nil
			return c, nil
		}
	}

	form, cmd := c.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		c.form = f
	}

	if c.form.State == huh.StateCompleted {
		c.formActive = false
		c.form = nil
		return c, c.submitForm()
	}
	return c, cmd
}

func (c calendarModel) submitForm() tea.Cmd {
	if c.editingID == "" {
		return createTaskCmd(c.backend, c.values.draft())
	}
	t, ok := findTask(c.snap.Tasks, c.editingID)
	if !ok {
		return msgCmd(errMsg("Save failed", task.ErrNotFound))
	}
	return saveTaskCmd(c.backend, c.values.apply(t, c.duration), fmt.Sprintf("Saved %q", *c.values.title))
}

func (c calendarModel) view() string {
	w := c.width - 4

	if c.formActive && c.form != nil {
		return activePanelStyle.Width(w).Render(c.form.View())
	}

	grid := c.renderGrid(w)
	day := c.renderDayPanel(w)
	return lipgloss.JoinVertical(lipgloss.Left, grid, day)
}

func (c calendarModel) renderGrid(w int) string {
	first := time.Date(c.cursor.Year(), c.cursor.Month(), 1, 0, 0, 0, 0, c.cursor.Location())
	start := timeutil.StartOfWeek(first)
	last := first.AddDate(0, 1, -1)
	weeks := (timeutil.DaysBetween(start, last) / 7) + 1
	todayKey := timeutil.DateKey(c.engine.Now())

	cellW := max(6, w/7-2)
	// Previews never exceed the preview limit and shrink to fit the terminal.
	rows := c.previewLimit
	if avail := (c.height-14)/weeks - 3; avail < rows {
		rows = max(0, avail)
	}

	header := titleStyle.Render(first.Format("January 2006"))
	var names []string
	for _, n := range weekdayNames {
		names = append(names, mutedStyle.Width(cellW+2).Align(lipgloss.Center).Render(n))
	}

	lines := []string{header, lipgloss.JoinHorizontal(lipgloss.Top, names...)}
	day := start
	for wk := 0; wk < weeks; wk++ {
		var cells []string
		for i := 0; i < 7; i++ {
			cells = append(cells, c.renderCell(day, first.Month(), todayKey, cellW, rows))
			day = day.AddDate(0, 0, 1)
		}
		lines = append(lines, lipgloss.JoinHorizontal(lipgloss.Top, cells...))
	}
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (c calendarModel) renderCell(day time.Time, month time.Month, todayKey string, w, rows int) string {
	k := timeutil.DateKey(day)
	style := cellStyle
	if k == c.selectedKey() {
		style = selectedCellStyle
	}
	style = style.Width(w).Height(rows + 1)

	if day.Month() != month {
		return style.Render(mutedStyle.Render(fmt.Sprintf("%2d", day.Day())))
	}

	num := fmt.Sprintf("%2d", day.Day())
	if k == todayKey {
		num = todayStyle.Render(num)
	}

	d := c.occ.Day(k)
	var dots string
	if d.HasNotStarted {
		dots += statusDot(task.StatusNotStarted)
	}
	if d.HasInProgress {
		dots += statusDot(task.StatusInProgress)
	}
	if d.HasCompleted {
		dots += statusDot(task.StatusCompleted)
	}

	lines := []string{num + " " + dots}
	entries, more := d.Preview(min(rows, c.previewLimit))
	for _, e := range entries {
		lines = append(lines, statusStyle(e.Status).Render(truncate(e.Title, w)))
	}
	if more > 0 {
		lines = append(lines, mutedStyle.Render(fmt.Sprintf("+%d more", more)))
	}
	return style.Render(strings.Join(lines, "\n"))
}

func (c calendarModel) renderDayPanel(w int) string {
	title := titleStyle.Render(c.cursor.Format("Monday, Jan 2 2006"))
	tasks := c.dayTasks()
	if len(tasks) == 0 {
		return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
			title,
			mutedStyle.Render("No tasks. Press n to add one."),
		))
	}

	rows := []string{title}
	for i, t := range tasks {
		cursor := "  "
		style := normalItemStyle
		if c.dayFocus && i == c.dayCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		row := fmt.Sprintf("%s%s %s-%s  %s", cursor, statusDot(t.Status), t.StartTime, t.EndTime, t.Title)
		if p := progressLabel(t); p != "" {
			row += mutedStyle.Render("  " + p)
		}
		rows = append(rows, style.Render(row))
	}
	hint := "enter: focus day  n: new  [/]: month  t: today"
	if c.dayFocus {
		hint = "enter: details  i: edit  s: status  a: archive  d: delete  esc: back"
	}
	rows = append(rows, "", mutedStyle.Render(hint))

	style := panelStyle
	if c.dayFocus {
		style = activePanelStyle
	}
	return style.Width(w).Render(strings.Join(rows, "\n"))
}
