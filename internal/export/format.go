package export

import (
	"fmt"
	"strings"
	"time"
)

type Format string

const (
	FormatCSV  Format = "csv"
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
	FormatSVG  Format = "svg"
)

var Formats = []Format{FormatCSV, FormatJSON, FormatYAML, FormatSVG}

func ParseFormat(s string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(s))); f {
	case FormatCSV, FormatJSON, FormatYAML, FormatSVG:
		return f, nil
	case "yml":
		return FormatYAML, nil
	}
	return "", fmt.Errorf("unknown export format %q", s)
}

// FileName is the default export file name, e.g. planr-20240612-150405.csv.
func FileName(f Format, at time.Time) string {
	return fmt.Sprintf("planr-%s.%s", at.Format("20060102-150405"), f)
}

// Write exports doc to path in format f. SVG needs doc.Report.
func Write(f Format, doc Document, durationFallback int, path string) error {
	switch f {
	case FormatCSV:
		return ToCSV(doc.Tasks, durationFallback, path)
	case FormatJSON:
		return ToJSON(doc, path)
	case FormatYAML:
		return ToYAML(doc, path)
	case FormatSVG:
		if doc.Report == nil {
			return fmt.Errorf("svg export needs a report")
		}
		return ToSVG(*doc.Report, path)
	}
	return fmt.Errorf("unknown export format %q", f)
}
