package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/sadopc/planr/internal/task"
	"github.com/sadopc/planr/internal/window"
)

// Setting keys.
const (
	KeyDefaultDuration = "default_duration"
	KeyPreviewLimit    = "preview_limit"
	KeyDefaultRange    = "default_range"
)

// DefaultPreviewLimit is how many tasks a calendar cell lists before "+N".
const DefaultPreviewLimit = 3

// ErrUnknownSetting is returned when reading a key that was never set.
var ErrUnknownSetting = errors.New("unknown setting")

// ErrInvalidSetting wraps every rejection from ValidateSetting.
var ErrInvalidSetting = errors.New("invalid setting")

func (s *Store) GetSetting(ctx context.Context, key string) (string, error) {
	var value string
	err := s.db.GetContext(ctx, &value, `SELECT value FROM settings WHERE key = ?`, key)
	if errors.Is(err, sql.ErrNoRows) {
		return "", fmt.Errorf("get setting %q: %w", key, ErrUnknownSetting)
	}
	if err != nil {
		return "", fmt.Errorf("get setting %q: %w", key, err)
	}
	return value, nil
}

// SetSetting stores value under key. Known keys are validated first.
func (s *Store) SetSetting(ctx context.Context, key, value string) error {
	if err := ValidateSetting(key, value); err != nil {
		return err
	}
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO settings (key, value) VALUES (?, ?) ON CONFLICT(key) DO UPDATE SET value = excluded.value`,
		key, value,
	)
	if err != nil {
		return fmt.Errorf("set setting %q: %w", key, err)
	}
	return nil
}

func (s *Store) GetAllSettings(ctx context.Context) ([]Setting, error) {
	var settings []Setting
	if err := s.db.SelectContext(ctx, &settings, `SELECT key, value FROM settings ORDER BY key`); err != nil {
		return nil, fmt.Errorf("list settings: %w", err)
	}
	return settings, nil
}

// ValidateSetting rejects malformed values for the known keys.
func ValidateSetting(key, value string) error {
	switch key {
	case KeyDefaultDuration, KeyPreviewLimit:
		n, err := strconv.Atoi(value)
		if err != nil || n <= 0 {
			return fmt.Errorf("%w: %q must be a positive integer, got %q", ErrInvalidSetting, key, value)
		}
	case KeyDefaultRange:
		if _, err := window.Parse(value); err != nil {
			return fmt.Errorf("%w: %q: %v", ErrInvalidSetting, key, err)
		}
	}
	return nil
}

// DefaultDuration is the task length in minutes used when a draft has no
// end time.
func (s *Store) DefaultDuration(ctx context.Context) (int, error) {
	return s.intSetting(ctx, KeyDefaultDuration, task.DefaultDuration)
}

func (s *Store) PreviewLimit(ctx context.Context) (int, error) {
	return s.intSetting(ctx, KeyPreviewLimit, DefaultPreviewLimit)
}

// DefaultRange is the dashboard selector shown on startup.
func (s *Store) DefaultRange(ctx context.Context) (window.Selector, error) {
	v, err := s.GetSetting(ctx, KeyDefaultRange)
	if errors.Is(err, ErrUnknownSetting) {
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

func (s *Store) intSetting(ctx context.Context, key string, fallback int) (int, error) {
	v, err := s.GetSetting(ctx, key)
	if errors.Is(err, ErrUnknownSetting) {
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
