// Package export writes tasks and dashboard reports to CSV, JSON, YAML and
// SVG files.
package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"strconv"
	"time"

	"github.com/sadopc/planr/internal/task"
)

var csvHeader = []string{
	"ID", "Title", "Date", "Start", "End", "Duration (min)", "Duration",
	"Status", "Archived", "Subtasks", "Description", "Created", "Updated",
}

// ToCSV writes one row per task. durationFallback is used for tasks whose
// span is empty.
func ToCSV(tasks []task.Task, durationFallback int, path string) error {
	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create csv file: %w", err)
	}
	defer f.Close()

	if err := WriteCSV(f, tasks, durationFallback); err != nil {
		return fmt.Errorf("write csv: %w", err)
	}
	return f.Close()
}

func WriteCSV(out io.Writer, tasks []task.Task, durationFallback int) error {
	w := csv.NewWriter(out)
	if err := w.Write(csvHeader); err != nil {
		return err
	}

	for _, t := range tasks {
		mins := t.Duration(durationFallback)
		done, total := t.Progress()
		row := []string{
			t.ID,
			t.Title,
			t.Date,
			t.StartTime,
			t.EndTime,
			strconv.Itoa(mins),
			formatDuration(mins),
			string(t.Status),
			strconv.FormatBool(t.Archived),
			fmt.Sprintf("%d/%d", done, total),
			t.Description,
			t.CreatedAt.Local().Format(time.RFC3339),
			t.UpdatedAt.Local().Format(time.RFC3339),
		}
		if err := w.Write(row); err != nil {
			return err
		}
	}

	w.Flush()
	return w.Error()
}

// formatDuration renders minutes as H:MM.
func formatDuration(mins int) string {
	if mins < 0 {
		mins = 0
	}
	return fmt.Sprintf("%d:%02d", mins/60, mins%60)
}
