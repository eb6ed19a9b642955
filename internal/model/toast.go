// Package model defines the core data structures for toastd.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/oklog/ulid/v2"
)

// Urgency levels matching the freedesktop notification spec.
type Urgency int

const (
	UrgencyLow      Urgency = 0
	UrgencyNormal   Urgency = 1
	UrgencyCritical Urgency = 2
)

// UrgencyNames maps urgency levels to human-readable names.
var UrgencyNames = map[Urgency]string{
	UrgencyLow:      "low",
	UrgencyNormal:   "normal",
	UrgencyCritical: "critical",
}

// String returns the human-readable urgency name.
func (u Urgency) String() string {
	if name, ok := UrgencyNames[u]; ok {
		return name
	}
	return "unknown"
}

// ParseUrgency converts a name ("low", "normal", "critical") to an Urgency.
func ParseUrgency(s string) (Urgency, error) {
	for level, name := range UrgencyNames {
		if strings.EqualFold(s, name) {
			return level, nil
		}
	}
	return UrgencyNormal, fmt.Errorf("%w: %q", ErrInvalidUrgency, s)
}

// Placement is a renderer hint for where the stack is anchored.
type Placement string

const (
	PlacementTop    Placement = "top"
	PlacementBottom Placement = "bottom"
	PlacementCenter Placement = "center"
)

// ValidPlacements returns all valid placement values.
func ValidPlacements() []Placement {
	return []Placement{PlacementTop, PlacementBottom, PlacementCenter}
}

// ParsePlacement validates a placement name.
func ParsePlacement(s string) (Placement, error) {
	for _, p := range ValidPlacements() {
		if strings.EqualFold(s, string(p)) {
			return p, nil
		}
	}
	return PlacementBottom, fmt.Errorf("%w: %q", ErrInvalidPlacement, s)
}

// Style variants understood by renderers. Callers may pass any other string;
// renderers fall back to TypeNormal for names they don't know.
const (
	TypeNormal    = "normal"
	TypeSuccess   = "success"
	TypeWarning   = "warning"
	TypeDanger    = "danger"
	TypeMultiple  = "multiple"
	TypeCloseable = "closeable"
)

// Message is the structured content used by the D-Bus bridge and internal notices.
// Any other content type is carried through untouched.
type Message struct {
	AppName string `json:"app_name,omitempty" yaml:"app_name,omitempty"`
	Summary string `json:"summary" yaml:"summary"`
	Body    string `json:"body,omitempty" yaml:"body,omitempty"`
}

// String renders the message as a single line.
func (m Message) String() string {
	var b strings.Builder
	if m.AppName != "" {
		b.WriteString(m.AppName)
		b.WriteString(": ")
	}
	b.WriteString(m.Summary)
	if m.Body != "" {
		if m.Summary != "" {
			b.WriteString(" - ")
		}
		b.WriteString(m.Body)
	}
	return b.String()
}

// Toast is one notification record tracked by the stack manager.
// Records handed out by the manager are copies; mutating them has no effect on the stack.
type Toast struct {
	ID        string    `json:"id" yaml:"id"`
	Content   any       `json:"content" yaml:"content"`
	Open      bool      `json:"open" yaml:"open"`
	Options   Options   `json:"options" yaml:"options"`
	CreatedAt time.Time `json:"created_at" yaml:"created_at"`
	UpdatedAt time.Time `json:"updated_at" yaml:"updated_at"`

	// OnHide requests dismissal of this toast. Bound to its own id by the manager.
	OnHide func() `json:"-" yaml:"-"`
	// OnDestroy requests permanent removal of this toast. Renderers call it once
	// their exit transition is done.
	OnDestroy func() `json:"-" yaml:"-"`
}

// UnmarshalJSON decodes a toast. Object content carrying a summary is restored
// as a Message; other content decodes as generic JSON values.
func (t *Toast) UnmarshalJSON(data []byte) error {
	type plain Toast
	aux := struct {
		*plain
		Content json.RawMessage `json:"content"`
	}{plain: (*plain)(t)}
	if err := json.Unmarshal(data, &aux); err != nil {
		return err
	}
	content, err := decodeContent(aux.Content)
	if err != nil {
		return fmt.Errorf("decode toast content: %w", err)
	}
	t.Content = content
	return nil
}

func decodeContent(raw json.RawMessage) (any, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil
	}
	if raw[0] == '{' {
		var probe map[string]json.RawMessage
		if err := json.Unmarshal(raw, &probe); err != nil {
			return nil, err
		}
		if _, ok := probe["summary"]; ok {
			var m Message
			if err := json.Unmarshal(raw, &m); err != nil {
				return nil, err
			}
			return m, nil
		}
	}
	var v any
	if err := json.Unmarshal(raw, &v); err != nil {
		return nil, err
	}
	return v, nil
}

// Text returns the content as plain text.
func (t Toast) Text() string {
	return ContentText(t.Content)
}

// Clone returns a copy that shares no mutable maps with t.
func (t Toast) Clone() Toast {
	clone := t
	clone.Options = t.Options.Clone()
	return clone
}

// ContentText renders opaque toast content as plain text.
func ContentText(content any) string {
	switch c := content.(type) {
	case nil:
		return ""
	case string:
		return c
	case Message:
		return c.String()
	case *Message:
		if c == nil {
			return ""
		}
		return c.String()
	case fmt.Stringer:
		return c.String()
	default:
		return fmt.Sprint(c)
	}
}

// Truncate collapses whitespace and cuts s to maxLen characters, appending "..." when cut.
func Truncate(s string, maxLen int) string {
	if maxLen <= 0 {
		return ""
	}
	s = strings.Join(strings.Fields(s), " ")
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	if maxLen <= 3 {
		return string(r[:maxLen])
	}
	return string(r[:maxLen-3]) + "..."
}

// NewID generates a fresh toast id.
func NewID() string {
	return ulid.Make().String()
}
