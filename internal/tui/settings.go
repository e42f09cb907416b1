package tui

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/huh"
	"github.com/charmbracelet/lipgloss"
	"go.uber.org/multierr"

	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

type settingsModel struct {
	backend Backend
	width   int
	height  int

	settings   []store.Setting
	formActive bool
	form       *huh.Form

	// Form values as pointers (survive value copies)
	defaultDuration *string
	previewLimit    *string
	defaultRange    *string
}

func newSettingsModel(b Backend) settingsModel {
	dd, pl, dr := "", "", ""
	return settingsModel{
		backend:         b,
		defaultDuration: &dd,
		previewLimit:    &pl,
		defaultRange:    &dr,
	}
}

func (s *settingsModel) setSize(w, h int) {
	s.width = w
	s.height = h
}

type settingsDataMsg struct {
	settings []store.Setting
}

func (s settingsModel) refresh() tea.Cmd {
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		settings, err := s.backend.GetAllSettings(ctx)
		if err != nil {
			return errMsg("Load settings failed", err)
		}
		return settingsDataMsg{settings: settings}
	}
}

func (s settingsModel) update(msg tea.Msg) (settingsModel, tea.Cmd) {
	if s.formActive && s.form != nil {
		return s.updateForm(msg)
	}

	switch msg := msg.(type) {
	case settingsDataMsg:
		s.settings = msg.settings
		return s, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Enter), key.Matches(msg, keys.Edit):
			return s.showForm()
		}
	}
	return s, nil
}

func (s settingsModel) showForm() (settingsModel, tea.Cmd) {
	*s.defaultDuration = s.getVal(store.KeyDefaultDuration, fmt.Sprint(task.DefaultDuration))
	*s.previewLimit = s.getVal(store.KeyPreviewLimit, fmt.Sprint(store.DefaultPreviewLimit))
	*s.defaultRange = s.getVal(store.KeyDefaultRange, string(window.RangeAll))

	rangeOpts := make([]huh.Option[string], 0, len(window.Ranges))
	for _, r := range window.Ranges {
		if r == window.RangeCustom {
			continue
		}
		rangeOpts = append(rangeOpts, huh.NewOption(r.Label(), string(r)))
	}
	if sel, err := window.Parse(*s.defaultRange); err == nil && sel.Range == window.RangeCustom {
		rangeOpts = append(rangeOpts, huh.NewOption(sel.String(), sel.String()))
	}

	s.form = huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Default task duration (min)").Value(s.defaultDuration).
				Validate(settingValidator(store.KeyDefaultDuration)),
			huh.NewInput().Title("Tasks previewed per calendar day").Value(s.previewLimit).
				Validate(settingValidator(store.KeyPreviewLimit)),
			huh.NewSelect[string]().Title("Dashboard range on startup").
				Options(rangeOpts...).Value(s.defaultRange),
		).Title("Preferences"),
	).WithShowHelp(true).WithShowErrors(true)

	s.formActive = true
	return s, s.form.Init()
}

func settingValidator(k string) func(string) error {
	return func(v string) error {
		if err := store.ValidateSetting(k, strings.TrimSpace(v)); err != nil {
			return fmt.Errorf("must be a positive number")
		}
		return nil
	}
}

func (s settingsModel) updateForm(msg tea.Msg) (settingsModel, tea.Cmd) {
	if msg, ok := msg.(tea.KeyMsg); ok {
		if msg.String() == "esc" {
			s.formActive = false
			s.form = nil
			return s, nil
		}
	}

	form, cmd := s.form.Update(msg)
	if f, ok := form.(*huh.Form); ok {
		s.form = f
	}

	if s.form.State == huh.StateCompleted {
		s.formActive = false
		s.form = nil
		return s, s.saveSettings()
	}

	return s, cmd
}

func (s settingsModel) saveSettings() tea.Cmd {
	values := map[string]string{
		store.KeyDefaultDuration: strings.TrimSpace(*s.defaultDuration),
		store.KeyPreviewLimit:    strings.TrimSpace(*s.previewLimit),
		store.KeyDefaultRange:    *s.defaultRange,
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), opTimeout)
		defer cancel()
		var errs error
		for k, v := range values {
			errs = multierr.Append(errs, s.backend.SetSetting(ctx, k, v))
		}
		if errs != nil {
			return errMsg("Save settings failed", errs)
		}
		return changedMsg{text: "Settings saved"}
	}
}

func (s settingsModel) getVal(k, fallback string) string {
	for _, setting := range s.settings {
		if setting.Key == k {
			return setting.Value
		}
	}
	return fallback
}

func (s settingsModel) view() string {
	w := s.width - 4

	if s.formActive && s.form != nil {
		title := titleStyle.Render("Settings")
		formView := s.form.View()
		return panelStyle.Width(w).Render(
			lipgloss.JoinVertical(lipgloss.Left, title, "", formView),
		)
	}

	title := titleStyle.Render("Settings")
	hint := mutedStyle.Render("Press enter to edit settings")

	var rows []string
	rows = append(rows, title)
	rows = append(rows, "")

	for _, setting := range s.settings {
		label := lipgloss.NewStyle().Width(24).Render(setting.Key)
		value := highlightStyle.Render(formatSettingValue(setting.Key, setting.Value))
		rows = append(rows, fmt.Sprintf("  %s %s", label, value))
	}

	rows = append(rows, "")
	rows = append(rows, hint)

	return panelStyle.Width(w).Render(lipgloss.JoinVertical(lipgloss.Left, rows...))
}

func formatSettingValue(k, v string) string {
	switch k {
	case store.KeyDefaultDuration:
		return v + " min"
	case store.KeyPreviewLimit:
		return v + " per day"
	case store.KeyDefaultRange:
		if sel, err := window.Parse(v); err == nil {
			if sel.Range == window.RangeCustom {
				return fmt.Sprintf("%s (%s → %s)", sel.Range.Label(), sel.Start, sel.End)
			}
			return sel.Range.Label()
		}
	}
	return v
}
