package server

import (
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/timeutil"
	"github.com/sadopc/planr/internal/window"
)

// listTasks returns every task. ?date= narrows to one day and
// ?archived=false hides archived tasks.
func (s *Server) listTasks(c echo.Context) error {
	tasks, err := s.store.ListTasks(c.Request().Context())
	if err != nil {
		return err
	}
	if date := c.QueryParam("date"); date != "" {
		if _, err := timeutil.ParseDateKey(date, time.UTC); err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "date must be YYYY-MM-DD")
		}
		tasks = task.OnDate(tasks, date)
	}
	if c.QueryParam("archived") == "false" {
		tasks = task.Active(tasks)
	}
	return c.JSON(http.StatusOK, tasks)
}

func (s *Server) createTask(c echo.Context) error {
	var d task.Draft
	if err := c.Bind(&d); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&d); err != nil {
		return err
	}
	t, err := s.store.CreateTask(c.Request().Context(), d)
	if err != nil {
		return err
	}
	s.logger.Debugw("Task created", "id", t.ID, "date", t.Date)
	return c.JSON(http.StatusCreated, t)
}

func (s *Server) getTask(c echo.Context) error {
	t, err := s.store.GetTask(c.Request().Context(), c.Param("id"))
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, t)
}

// updateTask replaces the whole record. The id in the body, when present,
// must match the path.
func (s *Server) updateTask(c echo.Context) error {
	id := c.Param("id")
	var t task.Task
	if err := c.Bind(&t); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if t.ID == "" {
		t.ID = id
	}
	if t.ID != id {
		return echo.NewHTTPError(http.StatusBadRequest, "id in body does not match path")
	}
	if err := c.Validate(&t); err != nil {
		return err
	}
	updated, err := s.store.UpdateTask(c.Request().Context(), t)
	if err != nil {
		return err
	}
	return c.JSON(http.StatusOK, updated)
}

func (s *Server) deleteTask(c echo.Context) error {
	if err := s.store.DeleteTask(c.Request().Context(), c.Param("id")); err != nil {
		return err
	}
	return c.NoContent(http.StatusNoContent)
}

// selectorFromQuery reads ?range= with optional ?start= and ?end=. An empty
// range falls back to the stored default.
func (s *Server) selectorFromQuery(c echo.Context) (window.Selector, error) {
	raw := c.QueryParam("range")
	start, end := c.QueryParam("start"), c.QueryParam("end")
	for _, d := range []string{start, end} {
		if d == "" {
			continue
		}
		if _, err := timeutil.ParseDateKey(d, time.UTC); err != nil {
			return window.Selector{}, echo.NewHTTPError(http.StatusBadRequest, "start and end must be YYYY-MM-DD")
		}
	}
	var sel window.Selector
	switch {
	case raw == "" && (start != "" || end != ""):
		sel = window.Custom(start, end)
	case raw == "":
		return s.store.DefaultRange(c.Request().Context())
	default:
		var err error
		if sel, err = window.Parse(raw); err != nil {
			return window.Selector{}, echo.NewHTTPError(http.StatusBadRequest, err.Error())
		}
		if sel.Range == window.RangeCustom && sel.Start == "" && sel.End == "" {
			sel = window.Custom(start, end)
		}
	}
	if customSpan(sel) > maxCustomDays {
		return window.Selector{}, echo.NewHTTPError(http.StatusBadRequest,
			fmt.Sprintf("custom range spans more than %d days", maxCustomDays))
	}
	return sel, nil
}

// maxCustomDays bounds the daily series a custom range can ask for.
const maxCustomDays = 3660

// customSpan is the inclusive day count of a fully bounded custom range, or
// zero when a bound is missing.
func customSpan(sel window.Selector) int {
	if sel.Range != window.RangeCustom || sel.Start == "" || sel.End == "" {
		return 0
	}
	a, errA := timeutil.ParseDateKey(sel.Start, time.UTC)
	b, errB := timeutil.ParseDateKey(sel.End, time.UTC)
	if errA != nil || errB != nil {
		return 0
	}
	n := timeutil.DaysBetween(a, b)
	if n < 0 {
		n = -n
	}
	return n + 1
}

func (s *Server) stats(c echo.Context) error {
	sel, err := s.selectorFromQuery(c)
	if err != nil {
		return err
	}
	snap, err := s.store.Snapshot(c.Request().Context())
	if err != nil {
		return err
	}
	report := s.engine.Report(snap, sel)
	s.metrics.observeReport(report)
	return c.JSON(http.StatusOK, report)
}

func (s *Server) calendar(c echo.Context) error {
	ctx := c.Request().Context()
	now := s.engine.Now()

	first := now
	if m := c.QueryParam("month"); m != "" {
		t, err := time.ParseInLocation("2006-01", m, now.Location())
		if err != nil {
			return echo.NewHTTPError(http.StatusBadRequest, "month must be YYYY-MM")
		}
		first = t
	}

	limit, err := s.store.PreviewLimit(ctx)
	if err != nil {
		return err
	}
	snap, err := s.store.Snapshot(ctx)
	if err != nil {
		return err
	}
	month := analytics.MonthOf(s.engine.Calendar(snap), first, timeutil.DateKey(now), limit)
	return c.JSON(http.StatusOK, month)
}

func (s *Server) listSettings(c echo.Context) error {
	settings, err := s.store.GetAllSettings(c.Request().Context())
	if err != nil {
		return err
	}
	if settings == nil {
		settings = []store.Setting{}
	}
	return c.JSON(http.StatusOK, settings)
}

type settingRequest struct {
	Value string `json:"value" validate:"required"`
}

func (s *Server) putSetting(c echo.Context) error {
	key := c.Param("key")
	var req settingRequest
	if err := c.Bind(&req); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, "Invalid request format")
	}
	if err := c.Validate(&req); err != nil {
		return err
	}
	if err := s.store.SetSetting(c.Request().Context(), key, req.Value); err != nil {
		return err
	}
	s.logger.Infow("Setting changed", "key", key, "value", req.Value)
	return c.JSON(http.StatusOK, store.Setting{Key: key, Value: req.Value})
}
