package output

import (
	"encoding/json"
	"fmt"
	"io"

	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// JSONFormatter writes indented JSON.
type JSONFormatter struct{}

// NewJSONFormatter creates a new JSON formatter.
func NewJSONFormatter() *JSONFormatter {
	return &JSONFormatter{}
}

// Format writes the whole snapshot.
func (f *JSONFormatter) Format(w io.Writer, s stack.Snapshot) error {
	return encodeJSON(w, s)
}

// FormatToast writes a single toast.
func (f *JSONFormatter) FormatToast(w io.Writer, t model.Toast) error {
	return encodeJSON(w, t)
}

func encodeJSON(w io.Writer, v any) error {
	encoder := json.NewEncoder(w)
	encoder.SetIndent("", "  ")
	return encoder.Encode(v)
}

// YAMLFormatter writes YAML documents.
type YAMLFormatter struct{}

// NewYAMLFormatter creates a new YAML formatter.
func NewYAMLFormatter() *YAMLFormatter {
	return &YAMLFormatter{}
}

// Format writes the whole snapshot.
func (f *YAMLFormatter) Format(w io.Writer, s stack.Snapshot) error {
	return encodeYAML(w, s)
}

// FormatToast writes a single toast.
func (f *YAMLFormatter) FormatToast(w io.Writer, t model.Toast) error {
	return encodeYAML(w, t)
}

func encodeYAML(w io.Writer, v any) error {
	encoder := yaml.NewEncoder(w)
	encoder.SetIndent(2)
	if err := encoder.Encode(v); err != nil {
		return fmt.Errorf("encode yaml: %w", err)
	}
	return encoder.Close()
}
