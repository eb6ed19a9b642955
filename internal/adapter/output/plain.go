package output

import (
	"fmt"
	"io"
	"strings"
	"text/template"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// PlainFormatter formats toasts as human-readable text.
type PlainFormatter struct {
	opts     FormatterOptions
	template *template.Template
}

// NewPlainFormatter creates a new plain text formatter.
// An invalid custom template falls back to the default layout.
func NewPlainFormatter(opts FormatterOptions) *PlainFormatter {
	f := &PlainFormatter{opts: opts}
	if opts.Template != "" {
		if tmpl, err := template.New("plain").Funcs(templateFuncs(opts)).Parse(opts.Template); err == nil {
			f.template = tmpl
		}
	}
	return f
}

// Format writes a summary line for the stack followed by every toast,
// foreground first.
func (f *PlainFormatter) Format(w io.Writer, s stack.Snapshot) error {
	if _, err := fmt.Fprintln(w, stateLine(s)); err != nil {
		return err
	}
	for i, t := range s.Toasts() {
		foreground := i == 0 && !s.Foreground.Empty()
		if err := f.formatToast(w, i+1, t, foreground); err != nil {
			return err
		}
	}
	return nil
}

// FormatToast writes a single toast.
func (f *PlainFormatter) FormatToast(w io.Writer, t model.Toast) error {
	return f.formatToast(w, 1, t, false)
}

func (f *PlainFormatter) formatToast(w io.Writer, index int, t model.Toast, foreground bool) error {
	if f.template != nil {
		if err := f.template.Execute(w, newTemplateData(index, t, foreground, f.opts)); err != nil {
			return err
		}
		_, err := fmt.Fprintln(w)
		return err
	}

	app, summary, body := parts(t)
	var sb strings.Builder

	if f.opts.ShowIndex {
		fmt.Fprintf(&sb, "[%d] ", index)
	}
	if foreground {
		sb.WriteString("* ")
	}
	if f.opts.ShowApp && app != "" {
		fmt.Fprintf(&sb, "<%s> ", app)
	}
	sb.WriteString(summary)
	if !t.Open {
		sb.WriteString(" [closed]")
	}
	if f.opts.ShowTime {
		fmt.Fprintf(&sb, " (%s)", humanAge(t.CreatedAt, f.opts.now()))
	}
	sb.WriteString("\n")

	if body != "" {
		sb.WriteString("    " + sanitizeBody(body, f.opts.BodyMaxLen) + "\n")
	}

	_, err := io.WriteString(w, sb.String())
	return err
}

func stateLine(s stack.Snapshot) string {
	visibility := "visible"
	if !s.Visible {
		visibility = "hidden"
	}
	mode := "folded"
	if s.Unfolded {
		mode = "unfolded"
	}
	count := "no toasts"
	switch n := s.Len(); n {
	case 0:
	case 1:
		count = "1 toast"
	default:
		count = fmt.Sprintf("%d toasts", n)
	}
	return fmt.Sprintf("%s, %s, %s", visibility, mode, count)
}

// humanAge returns "3 minutes ago" style ages.
func humanAge(created, now time.Time) string {
	if created.IsZero() {
		return "unknown"
	}
	if now.Sub(created) < time.Second {
		return "now"
	}
	return humanize.RelTime(created, now, "ago", "from now")
}
