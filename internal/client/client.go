// Package client talks to a running planr server. It satisfies the same
// task and snapshot contracts as the local store, so the CLI and the TUI
// can run against either.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/store"
	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

var (
	_ task.Repository  = (*Client)(nil)
	_ analytics.Source = (*Client)(nil)
)

// ErrServer is wrapped around every non-2xx response that has no more
// specific meaning.
var ErrServer = errors.New("server error")

const defaultTimeout = 10 * time.Second

type Client struct {
	baseURL string
	client  *http.Client
}

// New returns a client for the server at baseURL, e.g.
// "http://127.0.0.1:8080".
func New(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = defaultTimeout
	}
	return &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type errorBody struct {
	Error string `json:"error"`
}

// do sends in as JSON (when non-nil) and decodes the response into out
// (when non-nil).
func (c *Client) do(ctx context.Context, method, path string, in, out interface{}) error {
	var body io.Reader
	if in != nil {
		data, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshal request: %w", err)
		}
		body = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if in != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}

	if resp.StatusCode >= 300 {
		var e errorBody
		msg := strings.TrimSpace(string(data))
		if json.Unmarshal(data, &e) == nil && e.Error != "" {
			msg = e.Error
		}
		switch resp.StatusCode {
		case http.StatusNotFound:
			return fmt.Errorf("%s %s: %w: %s", method, path, task.ErrNotFound, msg)
		case http.StatusBadRequest:
			return fmt.Errorf("%s %s: %w: %s", method, path, task.ErrInvalid, msg)
		}
		return fmt.Errorf("%s %s: %w: %d %s", method, path, ErrServer, resp.StatusCode, msg)
	}

	if out == nil || len(data) == 0 {
		return nil
	}
	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

func (c *Client) ListTasks(ctx context.Context) ([]task.Task, error) {
	tasks := []task.Task{}
	if err := c.do(ctx, http.MethodGet, "/api/tasks", nil, &tasks); err != nil {
		return nil, fmt.Errorf("list tasks: %w", err)
	}
	return tasks, nil
}

func (c *Client) GetTask(ctx context.Context, id string) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodGet, "/api/tasks/"+url.PathEscape(id), nil, &t); err != nil {
		return nil, fmt.Errorf("get task %s: %w", id, err)
	}
	return &t, nil
}

func (c *Client) CreateTask(ctx context.Context, d task.Draft) (*task.Task, error) {
	var t task.Task
	if err := c.do(ctx, http.MethodPost, "/api/tasks", d, &t); err != nil {
		return nil, fmt.Errorf("create task: %w", err)
	}
	return &t, nil
}

func (c *Client) UpdateTask(ctx context.Context, t task.Task) (*task.Task, error) {
	var out task.Task
	if err := c.do(ctx, http.MethodPut, "/api/tasks/"+url.PathEscape(t.ID), t, &out); err != nil {
		return nil, fmt.Errorf("update task %s: %w", t.ID, err)
	}
	return &out, nil
}

func (c *Client) DeleteTask(ctx context.Context, id string) error {
	if err := c.do(ctx, http.MethodDelete, "/api/tasks/"+url.PathEscape(id), nil, nil); err != nil {
		return fmt.Errorf("delete task %s: %w", id, err)
	}
	return nil
}

// Snapshot lists every task. The server exposes no revision, so Version
// is zero and consumers key on content.
func (c *Client) Snapshot(ctx context.Context) (analytics.Snapshot, error) {
	tasks, err := c.ListTasks(ctx)
	if err != nil {
		return analytics.Snapshot{}, fmt.Errorf("snapshot: %w", err)
	}
	return analytics.Snapshot{Tasks: tasks}, nil
}

// Stats asks the server for the report of sel.
func (c *Client) Stats(ctx context.Context, sel window.Selector) (analytics.Report, error) {
	q := url.Values{}
	q.Set("range", string(sel.Range))
	if sel.Range == window.RangeCustom {
		q.Set("start", sel.Start)
		q.Set("end", sel.End)
	}
	var r analytics.Report
	if err := c.do(ctx, http.MethodGet, "/api/stats?"+q.Encode(), nil, &r); err != nil {
		return analytics.Report{}, fmt.Errorf("stats: %w", err)
	}
	return r, nil
}

// Calendar fetches the month page for month ("YYYY-MM"; empty is the
// server's current month).
func (c *Client) Calendar(ctx context.Context, month string) (analytics.Month, error) {
	path := "/api/calendar"
	if month != "" {
		path += "?month=" + url.QueryEscape(month)
	}
	var m analytics.Month
	if err := c.do(ctx, http.MethodGet, path, nil, &m); err != nil {
		return analytics.Month{}, fmt.Errorf("calendar: %w", err)
	}
	return m, nil
}

func (c *Client) GetAllSettings(ctx context.Context) ([]store.Setting, error) {
	var settings []store.Setting
	if err := c.do(ctx, http.MethodGet, "/api/settings", nil, &settings); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

func (c *Client) GetSetting(ctx context.Context, key string) (string, error) {
	settings, err := c.GetAllSettings(ctx)
	if err != nil {
		return "", err
	}
	for _, s := range settings {
		if s.Key == key {
			return s.Value, nil
		}
	}
	return "", fmt.Errorf("get setting %q: %w", key, store.ErrUnknownSetting)
}

func (c *Client) SetSetting(ctx context.Context, key, value string) error {
	body := map[string]string{"value": value}
	if err := c.do(ctx, http.MethodPut, "/api/settings/"+url.PathEscape(key), body, nil); err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (c *Client) DefaultDuration(ctx context.Context) (int, error) {
	return c.intSetting(ctx, store.KeyDefaultDuration, task.DefaultDuration)
}

func (c *Client) PreviewLimit(ctx context.Context) (int, error) {
	return c.intSetting(ctx, store.KeyPreviewLimit, store.DefaultPreviewLimit)
}

func (c *Client) DefaultRange(ctx context.Context) (window.Selector, error) {
	v, err := c.GetSetting(ctx, store.KeyDefaultRange)
	if errors.Is(err, store.ErrUnknownSetting) {
		return window.All(), nil
	}
	if err != nil {
		return window.Selector{}, err
	}
	sel, err := window.Parse(v)
	if err != nil {
		return window.All(), nil
	}
	return sel, nil
}

func (c *Client) intSetting(ctx context.Context, key string, fallback int) (int, error) {
	v, err := c.GetSetting(ctx, key)
	if errors.Is(err, store.ErrUnknownSetting) {
		return fallback, nil
	}
	if err != nil {
		return 0, err
	}
	n, err := strconv.Atoi(v)
	if err != nil || n <= 0 {
		return fallback, nil
	}
	return n, nil
}

// Ping checks that the server is reachable and healthy.
func (c *Client) Ping(ctx context.Context) error {
	if err := c.do(ctx, http.MethodGet, "/health", nil, nil); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
