package output

import (
	"fmt"
	"io"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// IDsFormatter outputs just the toast ids, one per line.
// Useful for piping to other commands (e.g., toast hide).
type IDsFormatter struct{}

// NewIDsFormatter creates a new IDs formatter.
func NewIDsFormatter() *IDsFormatter {
	return &IDsFormatter{}
}

// Format writes ids foreground first.
func (f *IDsFormatter) Format(w io.Writer, s stack.Snapshot) error {
	for _, id := range s.IDs() {
		if _, err := fmt.Fprintln(w, id); err != nil {
			return err
		}
	}
	return nil
}

// FormatToast writes the toast's id.
func (f *IDsFormatter) FormatToast(w io.Writer, t model.Toast) error {
	_, err := fmt.Fprintln(w, t.ID)
	return err
}
