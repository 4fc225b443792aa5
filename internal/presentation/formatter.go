package presentation

import (
	"encoding/json"
	"io"
)

// Formatter handles output formatting
type Formatter struct {
	writer io.Writer
}

// NewFormatter creates a new formatter
func NewFormatter(writer io.Writer) *Formatter {
	return &Formatter{
		writer: writer,
	}
}

// FormatModels formats a list of models as JSON
func (f *Formatter) FormatModels(models []ModelDTO) error {
	return f.encode(models)
}

// FormatRuns formats run summaries as JSON
func (f *Formatter) FormatRuns(runs []RunSummaryDTO) error {
	return f.encode(runs)
}

// FormatResult formats any command result (execution result, validation
// report, run record) as JSON
func (f *Formatter) FormatResult(result any) error {
	return f.encode(result)
}

func (f *Formatter) encode(v any) error {
	encoder := json.NewEncoder(f.writer)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}
