package export

import (
	"encoding/json"
	"fmt"
	"os"
	"time"

	"github.com/sadopc/planr/internal/analytics"
	"github.com/sadopc/planr/internal/task"
)

// Document is the structured export shared by JSON and YAML.
type Document struct {
	ExportedAt string            `json:"exported_at" yaml:"exported_at"`
	Count      int               `json:"count" yaml:"count"`
	Tasks      []task.Task       `json:"tasks" yaml:"tasks"`
	Report     *analytics.Report `json:"report,omitempty" yaml:"report,omitempty"`
}

// NewDocument bundles tasks with an optional report.
func NewDocument(tasks []task.Task, report *analytics.Report, at time.Time) Document {
	if tasks == nil {
		tasks = []task.Task{}
	}
	return Document{
		ExportedAt: at.UTC().Format(time.RFC3339),
		Count:      len(tasks),
		Tasks:      tasks,
		Report:     report,
	}
}

func ToJSON(doc Document, path string) error {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal json: %w", err)
	}

	if err := os.WriteFile(path, data, 0o644); err != nil {
		return fmt.Errorf("write json file: %w", err)
	}
	return nil
}
