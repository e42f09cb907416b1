package tui

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/export"
	"github.com/sadopc/planr/internal/logging"
	"github.com/sadopc/planr/internal/task"
)

// App is the root Bubble Tea model.
type App struct {
	backend Backend
	engine  *analytics.Engine
	logger  *logging.Logger
	width   int
	height  int

	activeView    viewState
	showHelp      bool
	exportPicking bool
	exportCursor  int
	exportDir     string
	detailOpen    bool

	data dataMsg

	calendar  calendarModel
	dashboard dashboardModel
	admin     adminModel
	settings  settingsModel
	detail    detailModel

	help      help.Model
	status    string
	statusErr bool
	statusSeq int
}

func NewApp(b Backend, e *analytics.Engine, logger *logging.Logger) App {
	h := help.New()
	h.ShowAll = false

	if logger == nil {
		logger = logging.NewNop()
	}
	dir, err := os.UserHomeDir()
	if err != nil {
		dir = "."
	}

	return App{
		backend:    b,
		engine:     e,
		logger:     logger.WithComponent("tui"),
		activeView: viewCalendar,
		exportDir:  dir,
		calendar:   newCalendarModel(b, e),
		dashboard:  newDashboardModel(e),
		admin:      newAdminModel(b),
		settings:   newSettingsModel(b),
		detail:     newDetailModel(b, e),
		help:       h,
	}
}

func (a App) Init() tea.Cmd {
	return tea.Batch(
		loadCmd(a.backend),
		a.settings.refresh(),
	)
}

func (a App) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		a.width = msg.Width
		a.height = msg.Height
		a.help.Width = msg.Width
		contentHeight := a.height - 4 // header + footer
		a.calendar.setSize(a.width, contentHeight)
		a.dashboard.setSize(a.width, contentHeight)
		a.admin.setSize(a.width, contentHeight)
		a.settings.setSize(a.width, contentHeight)
		a.detail.setSize(a.width, contentHeight)
		return a, nil

	case tea.KeyMsg:
		// Export picker
		if a.exportPicking {
			return a.updateExportPicker(msg)
		}

		// If a child view is capturing input (e.g. form), delegate first.
		if a.isFormActive() {
			return a.updateActiveView(msg)
		}

		switch {
		case key.Matches(msg, keys.Export):
			a.exportPicking = true
			a.exportCursor = 0
			return a, nil
		case key.Matches(msg, keys.Quit):
			return a, tea.Quit
		case key.Matches(msg, keys.Help):
			a.showHelp = !a.showHelp
			a.help.ShowAll = a.showHelp
			return a, nil
		case key.Matches(msg, keys.Tab1):
			return a.switchView(viewCalendar)
		case key.Matches(msg, keys.Tab2):
			return a.switchView(viewDashboard)
		case key.Matches(msg, keys.Tab3):
			return a.switchView(viewAdmin)
		case key.Matches(msg, keys.Tab4):
			return a.switchView(viewSettings)
		case key.Matches(msg, keys.Tab):
			return a.switchView((a.activeView + 1) % viewState(len(viewNames)))
		}

	case dataMsg:
		a.data = msg
		a.calendar.setData(msg)
		a.dashboard.setData(msg)
		a.admin.setData(msg)
		if a.detailOpen {
			if t, ok := findTask(msg.snap.Tasks, a.detail.task.ID); ok {
				a.detail.task = t
			} else {
				a.detailOpen = false
			}
		}
		return a, nil

	case settingsDataMsg:
		a.settings, _ = a.settings.update(msg)
		return a, nil

	case statusMsg:
		return a.setStatus(msg.text, msg.isError)

	case clearStatusMsg:
		if msg.seq == a.statusSeq {
			a.status = ""
			a.statusErr = false
		}
		return a, nil

	case changedMsg:
		cmds := []tea.Cmd{loadCmd(a.backend), a.settings.refresh()}
		if msg.text != "" {
			var cmd tea.Cmd
			a, cmd = a.withStatus(msg.text, false)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case taskSavedMsg:
		a.detail, _ = a.detail.update(msg)
		cmds := []tea.Cmd{loadCmd(a.backend)}
		if msg.text != "" {
			var cmd tea.Cmd
			a, cmd = a.withStatus(msg.text, false)
			cmds = append(cmds, cmd)
		}
		return a, tea.Batch(cmds...)

	case openDetailMsg:
		t, ok := findTask(a.data.snap.Tasks, msg.id)
		if !ok {
			return a.setStatus("Task no longer exists", true)
		}
		a.detail.open(t, a.data.defaultDuration)
		a.detailOpen = true
		return a, nil

	case closeDetailMsg:
		a.detailOpen = false
		return a, nil

	case exportDoneMsg:
		a.exportPicking = false
		return a.setStatus("Exported to "+msg.path, false)
	}

	return a.updateActiveView(msg)
}

func (a App) switchView(v viewState) (tea.Model, tea.Cmd) {
	a.activeView = v
	a.detailOpen = false
	if v == viewSettings {
		return a, a.settings.refresh()
	}
	return a, loadCmd(a.backend)
}

func (a App) setStatus(text string, isErr bool) (tea.Model, tea.Cmd) {
	a, cmd := a.withStatus(text, isErr)
	return a, cmd
}

// withStatus shows a transient banner and schedules its removal.
func (a App) withStatus(text string, isErr bool) (App, tea.Cmd) {
	if isErr {
		a.logger.Warnw("operation failed", "error", text)
	}
	a.status = text
	a.statusErr = isErr
	a.statusSeq++
	seq := a.statusSeq
	return a, tea.Tick(statusTTL, func(time.Time) tea.Msg {
		return clearStatusMsg{seq: seq}
	})
}

func (a App) updateActiveView(msg tea.Msg) (tea.Model, tea.Cmd) {
	var cmd tea.Cmd
	if a.detailOpen {
		a.detail, cmd = a.detail.update(msg)
		return a, cmd
	}
	switch a.activeView {
	case viewCalendar:
		a.calendar, cmd = a.calendar.update(msg)
	case viewDashboard:
		a.dashboard, cmd = a.dashboard.update(msg)
	case viewAdmin:
		a.admin, cmd = a.admin.update(msg)
	case viewSettings:
		a.settings, cmd = a.settings.update(msg)
	}
	return a, cmd
}

func (a App) isFormActive() bool {
	if a.detailOpen {
		return a.detail.formActive()
	}
	switch a.activeView {
	case viewCalendar:
		return a.calendar.formActive
	case viewDashboard:
		return a.dashboard.formActive
	case viewAdmin:
		return a.admin.formActive()
	case viewSettings:
		return a.settings.formActive
	}
	return false
}

func (a App) View() string {
	if a.width == 0 {
		return "Loading..."
	}

	header := a.renderHeader()
	footer := a.renderFooter()

	var content string
	switch {
	case a.detailOpen:
		content = a.detail.view()
	case a.activeView == viewCalendar:
		content = a.calendar.view()
	case a.activeView == viewDashboard:
		content = a.dashboard.view()
	case a.activeView == viewAdmin:
		content = a.admin.view()
	case a.activeView == viewSettings:
		content = a.settings.view()
	}

	// Calculate available height for content
	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := a.height - headerHeight - footerHeight
	if contentHeight < 1 {
		contentHeight = 1
	}

	// Show export picker overlay
	if a.exportPicking {
		content = a.renderExportPicker()
	}

	content = lipgloss.NewStyle().
		Width(a.width).
		Height(contentHeight).
		Render(content)

	return lipgloss.JoinVertical(lipgloss.Left, header, content, footer)
}

func (a App) renderHeader() string {
	var tabs []string
	for i, name := range viewNames {
		if viewState(i) == a.activeView {
			tabs = append(tabs, activeTabStyle.Render(name))
		} else {
			tabs = append(tabs, inactiveTabStyle.Render(name))
		}
	}

	tabRow := lipgloss.JoinHorizontal(lipgloss.Bottom, tabs...)

	title := lipgloss.NewStyle().Bold(true).Foreground(colorPrimary).Render("planr")
	gap := a.width - lipgloss.Width(title) - lipgloss.Width(tabRow) - 4
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return headerStyle.Render(
		lipgloss.JoinHorizontal(lipgloss.Bottom, title, spacer, tabRow),
	)
}

func (a App) renderFooter() string {
	helpView := a.help.View(keys)

	status := ""
	if a.status != "" {
		if a.statusErr {
			status = errorStyle.Render(" " + a.status)
		} else {
			status = successStyle.Render(" " + a.status)
		}
	}

	left := footerStyle.Render(helpView)

	gap := a.width - lipgloss.Width(left) - lipgloss.Width(status) - 2
	if gap < 1 {
		gap = 1
	}
	spacer := lipgloss.NewStyle().Width(gap).Render("")

	return lipgloss.JoinHorizontal(lipgloss.Bottom, left, spacer, status)
}

func (a App) renderExportPicker() string {
	title := titleStyle.Render("Export Format")
	var rows []string
	rows = append(rows, title)
	rows = append(rows, mutedStyle.Render("Dashboard range: "+a.dashboard.sel.Range.Label()))
	rows = append(rows, "")
	for i, f := range export.Formats {
		cursor := "  "
		style := normalItemStyle
		if i == a.exportCursor {
			cursor = "> "
			style = selectedItemStyle
		}
		rows = append(rows, style.Render(cursor+strings.ToUpper(string(f))))
	}
	rows = append(rows, "")
	rows = append(rows, mutedStyle.Render("  enter: export  esc: cancel"))

	w := a.width - 4
	return activePanelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func (a App) updateExportPicker(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, keys.Up):
		if a.exportCursor > 0 {
			a.exportCursor--
		}
	case key.Matches(msg, keys.Down):
		if a.exportCursor < len(export.Formats)-1 {
			a.exportCursor++
		}
	case key.Matches(msg, keys.Enter):
		a.exportPicking = false
		return a, a.doExport(export.Formats[a.exportCursor])
	case key.Matches(msg, keys.Back):
		a.exportPicking = false
	}
	return a, nil
}

// doExport writes every task plus the report for the dashboard's range.
func (a App) doExport(f export.Format) tea.Cmd {
	sel := a.dashboard.sel
	duration := a.data.defaultDuration
	if duration <= 0 {
		duration = task.DefaultDuration
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()

		snap, err := a.backend.Snapshot(ctx)
		if err != nil {
			return errMsg("Export failed", err)
		}
		now := a.engine.Now()
		report := a.engine.Report(snap, sel)
		doc := export.NewDocument(snap.Tasks, &report, now)

		path := filepath.Join(a.exportDir, export.FileName(f, now))
		if err := export.Write(f, doc, duration, path); err != nil {
			return errMsg("Export failed", err)
		}
		return exportDoneMsg{path: path}
	}
}
