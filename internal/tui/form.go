package tui

import (
	"errors"
	"strings"
	"time"

	"github.com/charmbracelet/huh"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
)

// taskForm holds the create/edit form values. Fields are pointers so they
// survive the value copies Bubble Tea makes of the owning model.
type taskForm struct {
	title       *string
	description *string
	date        *string
	start       *string
	end         *string
	status      *string
}

func newTaskForm() *taskForm {
	title, desc, date, start, end, status := "", "", "", "", "", string(task.StatusNotStarted)
	return &taskForm{
		title:       &title,
		description: &desc,
		date:        &date,
		start:       &start,
		end:         &end,
		status:      &status,
	}
}

// fillNew prefills a creation form for date.
func (f *taskForm) fillNew(date string, now time.Time, duration int) {
	start := timeutil.CurrentTimeString(now)
	*f.title = ""
	*f.description = ""
	*f.date = date
	*f.start = start
	*f.end = timeutil.AddMinutes(start, duration)
	*f.status = string(task.StatusNotStarted)
}

// fillTask prefills an edit form. An empty span is shown as start plus the
// default duration.
func (f *taskForm) fillTask(t task.Task, duration int) {
	*f.title = t.Title
	*f.description = t.Description
	*f.date = t.Date
	*f.start = t.StartTime
	*f.end = t.EndTime
	if timeutil.SpanMinutes(t.StartTime, t.EndTime) == 0 {
		*f.end = timeutil.AddMinutes(t.StartTime, duration)
	}
	*f.status = string(t.Status)
}

func (f *taskForm) form(title string) *huh.Form {
	statusOpts := make([]huh.Option[string], 0, len(task.Statuses))
	for _, s := range task.Statuses {
		statusOpts = append(statusOpts, huh.NewOption(string(s), string(s)))
	}

	return huh.NewForm(
		huh.NewGroup(
			huh.NewInput().Title("Title").Value(f.title).Validate(validateTitle),
			huh.NewText().Title("Description").Value(f.description).Lines(3),
			huh.NewInput().Title("Date (YYYY-MM-DD)").Value(f.date).Validate(validateDate),
			huh.NewInput().Title("Start (HH:MM)").Value(f.start).Validate(validateClock),
			huh.NewInput().Title("End (HH:MM)").Value(f.end).Validate(validateClock),
			huh.NewSelect[string]().Title("Status").Options(statusOpts...).Value(f.status),
		).Title(title),
	).WithShowHelp(true).WithShowErrors(true)
}

func (f *taskForm) draft() task.Draft {
	return task.Draft{
		Title:       strings.TrimSpace(*f.title),
		Description: *f.description,
		Date:        strings.TrimSpace(*f.date),
		StartTime:   strings.TrimSpace(*f.start),
		EndTime:     strings.TrimSpace(*f.end),
		Status:      task.Status(*f.status),
	}
}

// apply copies the form onto a clone of t.
func (f *taskForm) apply(t task.Task, duration int) task.Task {
	d := f.draft()
	c := t.Clone()
	c.Title = d.Title
	c.Description = d.Description
	c.Date = d.Date
	c.SetSchedule(d.StartTime, d.EndTime, duration)
	c.SetStatus(d.Status)
	return c
}

func validateTitle(s string) error {
	if strings.TrimSpace(s) == "" {
		return errors.New("title is required")
	}
	return nil
}

func validateDate(s string) error {
	if _, err := timeutil.ParseDateKey(strings.TrimSpace(s), time.UTC); err != nil {
		return errors.New("use YYYY-MM-DD")
	}
	return nil
}

func validateClock(s string) error {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil
	}
	if _, err := timeutil.ParseClock(s); err != nil {
		return errors.New("use HH:MM")
	}
	return nil
}
