// Package output provides output formatters for stack snapshots and toasts.
package output

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// Formatter writes stack state for the CLI.
type Formatter interface {
	// Format writes every toast of a snapshot.
	Format(w io.Writer, s stack.Snapshot) error
	// FormatToast writes a single toast.
	FormatToast(w io.Writer, t model.Toast) error
}

// FormatType represents an output format type.
type FormatType string

const (
	FormatDmenu FormatType = "dmenu"
	FormatIDs   FormatType = "ids"
	FormatJSON  FormatType = "json"
	FormatPlain FormatType = "plain"
	FormatYAML  FormatType = "yaml"
)

// FormatTypes lists the supported formats.
func FormatTypes() []FormatType {
	return []FormatType{FormatPlain, FormatJSON, FormatYAML, FormatIDs, FormatDmenu}
}

// NewFormatter creates a formatter for the specified format type.
func NewFormatter(format FormatType, opts FormatterOptions) (Formatter, error) {
	switch format {
	case FormatJSON:
		return NewJSONFormatter(), nil
	case FormatYAML:
		return NewYAMLFormatter(), nil
	case FormatIDs:
		return NewIDsFormatter(), nil
	case FormatDmenu:
		return NewDmenuFormatter(opts), nil
	case FormatPlain, "":
		return NewPlainFormatter(opts), nil
	default:
		return nil, fmt.Errorf("unknown output format %q", format)
	}
}

// FormatterOptions configures formatter behavior.
type FormatterOptions struct {
	Template   string           // Custom template for dmenu/plain format
	ShowIndex  bool             // Show 1-based index prefix
	ShowTime   bool             // Show toast age
	ShowApp    bool             // Show app name
	BodyMaxLen int              // Maximum body length (0 = unlimited)
	Separator  string           // Field separator for dmenu format
	Now        func() time.Time // Clock for ages; defaults to time.Now
}

// DefaultFormatterOptions returns sensible defaults.
func DefaultFormatterOptions() FormatterOptions {
	return FormatterOptions{
		ShowIndex:  true,
		ShowTime:   true,
		ShowApp:    true,
		BodyMaxLen: 80,
		Separator:  " | ",
	}
}

func (o FormatterOptions) now() time.Time {
	if o.Now != nil {
		return o.Now()
	}
	return time.Now()
}

// parts splits toast content into app name, summary and body.
func parts(t model.Toast) (app, summary, body string) {
	return core.Parts(t)
}

// FormatField outputs a specific field of a toast.
func FormatField(t model.Toast, field string) string {
	app, summary, body := parts(t)
	switch strings.ToLower(field) {
	case "id":
		return t.ID
	case "app", "app_name", "appname":
		return app
	case "summary":
		return summary
	case "body":
		return body
	case "category":
		return core.Category(t)
	case "icon":
		return t.Options.IconOr("")
	case "type":
		return t.Options.TypeOr(model.TypeNormal)
	case "urgency":
		return t.Options.UrgencyOr(model.UrgencyNormal).String()
	case "open":
		return fmt.Sprint(t.Open)
	case "all", "full", "text":
		return t.Text()
	default:
		return summary
	}
}

// sanitizeBody collapses whitespace and truncates body text for single-line display.
func sanitizeBody(body string, maxLen int) string {
	if maxLen <= 0 {
		return strings.Join(strings.Fields(body), " ")
	}
	return model.Truncate(body, maxLen)
}
