package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// DmenuFormatter formats toasts for dmenu/rofi/fuzzel, one per line.
type DmenuFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewDmenuFormatter creates a new dmenu formatter.
func NewDmenuFormatter(opts FormatterOptions) *DmenuFormatter {
	f := &DmenuFormatter{opts: opts}
	if opts.Template != "" {
		if tmpl, err := template.New("dmenu").Funcs(templateFuncs(opts)).Parse(opts.Template); err == nil {
			f.template = tmpl
		}
	}
	return f
}

// Format writes one line per toast, foreground first.
func (f *DmenuFormatter) Format(w io.Writer, s stack.Snapshot) error {
	for i, t := range s.Toasts() {
		foreground := i == 0 && !s.Foreground.Empty()
		if _, err := fmt.Fprintln(w, f.formatLine(i+1, t, foreground)); err != nil {
			return err
		}
	}
	return nil
}

// FormatToast writes a single line.
func (f *DmenuFormatter) FormatToast(w io.Writer, t model.Toast) error {
	_, err := fmt.Fprintln(w, f.formatLine(1, t, false))
	return err
}

// formatLine renders: index | age | app | summary: body
func (f *DmenuFormatter) formatLine(index int, t model.Toast, foreground bool) string {
	if f.template != nil {
		var buf strings.Builder
		if err := f.template.Execute(&buf, newTemplateData(index, t, foreground, f.opts)); err == nil {
			return buf.String()
		}
	}

	sep := f.opts.Separator
	if sep == "" {
		sep = " | "
	}
	app, summary, body := parts(t)

	var fields []string
	if f.opts.ShowIndex {
		fields = append(fields, fmt.Sprintf("%d", index))
	}
	if f.opts.ShowTime {
		fields = append(fields, compactAge(t.CreatedAt, f.opts.now()))
	}
	if f.opts.ShowApp && app != "" {
		fields = append(fields, app)
	}
	text := sanitizeBody(summary, 0)
	if b := sanitizeBody(body, f.opts.BodyMaxLen); b != "" {
		text += ": " + b
	}
	fields = append(fields, text)

	return strings.Join(fields, sep)
}

// templateData provides data for custom templates.
type templateData struct {
	Index      int
	Toast      model.Toast
	ID         string
	App        string
	Summary    string
	Body       string
	Age        string
	Foreground bool
}

func newTemplateData(index int, t model.Toast, foreground bool, opts FormatterOptions) templateData {
	app, summary, body := parts(t)
	return templateData{
		Index:      index,
		Toast:      t,
		ID:         t.ID,
		App:        app,
		Summary:    summary,
		Body:       body,
		Age:        compactAge(t.CreatedAt, opts.now()),
		Foreground: foreground,
	}
}

// templateFuncs returns template helper functions.
func templateFuncs(opts FormatterOptions) template.FuncMap {
	return template.FuncMap{
		"truncate": model.Truncate,
		"age": func(t time.Time) string {
			return humanAge(t, opts.now())
		},
		"urgencyIcon": func(t model.Toast) string {
			switch t.Options.UrgencyOr(model.UrgencyNormal) {
			case model.UrgencyLow:
				return "L"
			case model.UrgencyCritical:
				return "!"
			default:
				return "-"
			}
		},
	}
}

// compactAge returns ages like "now", "5m", "2h", "3d", "2w".
func compactAge(created, now time.Time) string {
	if created.IsZero() {
		return "unknown"
	}
	d := now.Sub(created)
	switch {
	case d < time.Minute:
		return "now"
	case d < time.Hour:
		return fmt.Sprintf("%dm", int(d.Minutes()))
	case d < 24*time.Hour:
		return fmt.Sprintf("%dh", int(d.Hours()))
	case d < 7*24*time.Hour:
		return fmt.Sprintf("%dd", int(d.Hours()/24))
	default:
		return fmt.Sprintf("%dw", int(d.Hours()/24/7))
	}
}
