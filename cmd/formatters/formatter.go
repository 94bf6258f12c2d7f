package formatters

import "github.com/dataops-tools/model-diff/cmd/report"

// Formatter renders a diff report into one output format.
type Formatter interface {
	// Render produces the formatted report bytes.
	Render(r *report.Report) ([]byte, error)

	// Extension returns the file extension for this format (e.g., ".json").
	Extension() string

	// MIMEType returns the MIME type for this format.
	MIMEType() string
}

// GetFormatter returns the formatter for a format string.
func GetFormatter(format string) Formatter {
	switch format {
	case "json":
		return NewJSONFormatter()
	case "markdown":
		return NewMarkdownFormatter()
	default:
		return NewTextFormatter()
	}
}
