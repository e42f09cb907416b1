package tui

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/NimbleMarkets/ntcharts/barchart"
	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

const distributionWidth = 30

type dashboardModel struct {
	engine *analytics.Engine
	width  int
	height int

	snap   analytics.Snapshot
	sel    window.Selector
	selSet bool
	report analytics.Report
	chart  barchart.Model

	formActive  bool
	form        *huh.Form
	customStart *string
	customEnd   *string
}

func newDashboardModel(e *analytics.Engine) dashboardModel {
	start, end := "", ""
	return dashboardModel{
		engine:      e,
		sel:         window.All(),
		chart:       barchart.New(60, 12),
		customStart: &start,
		customEnd:   &end,
	}
}

func (d *dashboardModel) setSize(w, h int) {
	d.width = w
	d.height = h
	d.recompute()
}

func (d *dashboardModel) setData(msg dataMsg) {
	d.snap = msg.snap
	if !d.selSet {
		d.sel = msg.defaultRange
		d.selSet = true
	}
	d.recompute()
}

func (d *dashboardModel) setSelector(sel window.Selector) {
	d.sel = sel
	d.selSet = true
	d.recompute()
}

func (d *dashboardModel) recompute() {
	d.report = d.engine.Report(d.snap, d.sel)
	d.buildChart()
}

func (d dashboardModel) update(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if d.formActive && d.form != nil {
		return d.updateForm(msg)
	}

	switch msg := msg.(type) {
	case dataMsg:
		d.setData(msg)
		return d, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Range):
			// Custom bounds need a form; only c opens it.
			next := d.sel.Range.Next()
			if next == window.RangeCustom {
				next = next.Next()
			}
			d.setSelector(window.Selector{Range: next})
		case key.Matches(msg, keys.Custom):
			return d.showCustomForm()
		}
	}
	return d, nil
}

func (d dashboardModel) showCustomForm() (dashboardModel, tea.Cmd) {
	*d.customStart = d.sel.Start
	*d.customEnd = d.sel.End
	if *d.customStart == "" {
		*d.customStart = d.report.Bounds.Start
	}
	if *d.customEnd == "" {
		*d.customEnd = d.report.Today
	}

	d.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("From (YYYY-MM-DD)").Value(d.customStart).Validate(validateDate),
			huh.NewInput().Title("To (YYYY-MM-DD)").Value(d.customEnd).Validate(validateDate),
		).Title("Custom range"),
	).WithShowHelp(true).WithShowErrors(true)
	d.formActive = true
	return d, d.form.Init()
}

func (d dashboardModel) updateForm(msg tea.Msg) (dashboardModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			d.formActive = false
			d.form = nil
			return d, nil
		}
	}

	form, cmd := d.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		d.form = f
	}

	if d.form.State == huh.StateCompleted {
		d.formActive = false
		d.form = nil
		d.setSelector(window.Custom(strings.TrimSpace(*d.customStart), strings.TrimSpace(*d.customEnd)))
		return d, nil
	}
	return d, cmd
}

func (d *dashboardModel) buildChart() {
	chartWidth := max(20, d.width-14)
	chartHeight := 10
	if d.height > 36 {
		chartHeight = 14
	}
	d.chart = barchart.New(chartWidth, chartHeight)

	created := lipgloss.NewStyle().Foreground(colorCreated)
	completed := lipgloss.NewStyle().Foreground(colorSuccess)

	bars := make([]barchart.BarData, 0, len(d.report.Series))
	for _, p := range d.report.Series {
		bars = append(bars, barchart.BarData{
			Label: dayLabel(p),
			Values: []barchart.BarValue{
				{Name: "Created", Value: float64(p.Created), Style: created},
				{Name: "Completed", Value: float64(p.Completed), Style: completed},
			},
		})
	}
	d.chart.PushAll(bars)
	d.chart.Draw()
}

// dayLabel is the day of month, which is all that fits under a bar.
func dayLabel(p analytics.Point) string {
	if len(p.Key) == len("2006-01-02") {
		if n, err := strconv.Atoi(p.Key[8:]); err == nil {
			return strconv.Itoa(n)
		}
	}
	return p.Label
}

func (d dashboardModel) view() string {
	w := d.width - 4

	if d.formActive && d.form != nil {
		return activePanelStyle.Width(w).Render(d.form.View())
	}

	header := lipgloss.JoinHorizontal(lipgloss.Bottom,
		titleStyle.Render("Dashboard"), "  ",
		activeTabStyle.Render(d.sel.Range.Label()), "  ",
		mutedStyle.Render(boundsLabel(d.report.Bounds)),
	)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left,
		header, "",
		d.renderKPIs(w),
		"",
		titleStyle.Render("Status distribution"),
		d.renderDistribution(),
		"",
		titleStyle.Render("Created vs completed"),
		d.renderChart(),
		"",
		mutedStyle.Render("  r: next range  c: custom range"),
	))
}

func boundsLabel(b window.Bounds) string {
	if b.Unbounded {
		return "all dates"
	}
	return fmt.Sprintf("%s → %s", b.Start, b.End)
}

func (d dashboardModel) renderKPIs(w int) string {
	k := d.report.KPI
	cards := []struct {
		label string
		value int
		style lipgloss.Style
	}{
		{"Total", k.Total, highlightStyle},
		{"Completed", k.ByStatus[task.StatusCompleted], successStyle},
		{"Overdue", k.Overdue, errorStyle},
		{"Due today", k.DueToday, warningStyle},
		{"This week", k.ThisWeek, highlightStyle},
	}
	cardW := max(10, w/len(cards)-4)
	out := make([]string, len(cards))
	for i, c := range cards {
		out[i] = cardStyle.Width(cardW).Render(lipgloss.JoinVertical(lipgloss.Center,
			c.style.Bold(true).Render(strconv.Itoa(c.value)),
			mutedStyle.Render(c.label),
		))
	}
	return lipgloss.JoinHorizontal(lipgloss.Top, out...)
}

func (d dashboardModel) renderDistribution() string {
	if len(d.report.Pie) == 0 {
		return mutedStyle.Render("  No tasks in this range")
	}
	rows := make([]string, 0, len(d.report.Pie))
	for _, seg := range d.report.Pie {
		n := int(seg.Percent / 100 * distributionWidth)
		if n == 0 && seg.Value > 0 {
			n = 1
		}
		bar := statusStyle(seg.Status).Render(strings.Repeat("█", n))
		rows = append(rows, fmt.Sprintf("  %-12s %s%s %5.1f%% (%d)",
			seg.Status, bar, strings.Repeat(" ", distributionWidth-n), seg.Percent, seg.Value))
	}
	return strings.Join(rows, "\n")
}

func (d dashboardModel) renderChart() string {
	ticks := make([]string, len(d.report.YTicks))
	for i, t := range d.report.YTicks {
		ticks[i] = strconv.Itoa(t)
	}
	legend := fmt.Sprintf("  %s Created  %s Completed   %s",
		lipgloss.NewStyle().Foreground(colorCreated).Render("█"),
		successStyle.Render("█"),
		mutedStyle.Render("y: "+strings.Join(ticks, " · ")),
	)
	return lipgloss.JoinVertical(lipgloss.Left, d.chart.View(), legend)
}
