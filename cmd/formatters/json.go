package formatters

import (
	"encoding/json"
	"fmt"

	"github.com/dataops-tools/model-diff/cmd/report"
)

// JSONFormatter renders the report as indented JSON for machine consumption.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Render marshals the report with stable field names.
func (f *JSONFormatter) Render(r *report.Report) ([]byte, error) {
	data, err := json.MarshalIndent(r, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal report: %w", err)
	}
	return append(data, '\n'), nil
}

// Extension returns the file extension for JSON output.
func (f *JSONFormatter) Extension() string {
	return ".json"
}

// MIMEType returns the MIME type for JSON output.
func (f *JSONFormatter) MIMEType() string {
	return "application/json"
}
