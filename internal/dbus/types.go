package dbus

import (
	"github.com/godbus/dbus/v5"

	"github.com/jmylchreest/toastd/internal/model"
)

// CloseReason is the reason sent with NotificationClosed.
// Values are fixed by the freedesktop.org notification specification.
type CloseReason uint32

const (
	// CloseReasonExpired indicates the notification timed out.
	CloseReasonExpired CloseReason = 1
	// CloseReasonDismissed indicates the user dismissed the notification.
	CloseReasonDismissed CloseReason = 2
	// CloseReasonClosed indicates a CloseNotification call.
	CloseReasonClosed CloseReason = 3
	// CloseReasonUndefined is reserved.
	CloseReasonUndefined CloseReason = 4
)

// String returns the string representation of the close reason.
func (r CloseReason) String() string {
	switch r {
	case CloseReasonExpired:
		return "expired"
	case CloseReasonDismissed:
		return "dismissed"
	case CloseReasonClosed:
		return "closed"
	case CloseReasonUndefined:
		return "undefined"
	default:
		return "unknown"
	}
}

// DefaultActionKey is the action invoked when the notification itself is pressed.
const DefaultActionKey = "default"

// Notification holds the arguments of one Notify call.
type Notification struct {
	AppName       string
	ReplacesID    uint32
	AppIcon       string
	Summary       string
	Body          string
	Actions       []string // Alternating key, label pairs
	Hints         map[string]dbus.Variant
	ExpireTimeout int32 // -1 = server default, 0 = never expire
}

// Action is one key/label pair from the actions array.
type Action struct {
	Key   string `json:"key"`
	Label string `json:"label"`
}

// ParsedActions pairs up the actions array. A trailing key without a label is dropped.
func (n *Notification) ParsedActions() []Action {
	actions := make([]Action, 0, len(n.Actions)/2)
	for i := 0; i+1 < len(n.Actions); i += 2 {
		actions = append(actions, Action{Key: n.Actions[i], Label: n.Actions[i+1]})
	}
	return actions
}

// HasAction reports whether the sender offered the action key.
func (n *Notification) HasAction(key string) bool {
	for _, a := range n.ParsedActions() {
		if a.Key == key {
			return true
		}
	}
	return false
}

// Message returns the notification text as toast content.
func (n *Notification) Message() model.Message {
	return model.Message{AppName: n.AppName, Summary: n.Summary, Body: n.Body}
}

func hint[T any](hints map[string]dbus.Variant, key string) (T, bool) {
	var zero T
	v, ok := hints[key]
	if !ok {
		return zero, false
	}
	t, ok := v.Value().(T)
	return t, ok
}

func hintInt(hints map[string]dbus.Variant, key string) (int, bool) {
	v, ok := hints[key]
	if !ok {
		return 0, false
	}
	switch val := v.Value().(type) {
	case byte:
		return int(val), true
	case int16:
		return int(val), true
	case uint16:
		return int(val), true
	case int32:
		return int(val), true
	case uint32:
		return int(val), true
	case int64:
		return int(val), true
	case uint64:
		return int(val), true
	case int:
		return val, true
	}
	return 0, false
}

// Urgency returns the urgency hint, or normal when absent or out of range.
func (n *Notification) Urgency() model.Urgency {
	if u, ok := hintInt(n.Hints, "urgency"); ok {
		if _, known := model.UrgencyNames[model.Urgency(u)]; known {
			return model.Urgency(u)
		}
	}
	return model.UrgencyNormal
}

// Category returns the category hint.
func (n *Notification) Category() string {
	s, _ := hint[string](n.Hints, "category")
	return s
}

// DesktopEntry returns the desktop-entry hint.
func (n *Notification) DesktopEntry() string {
	s, _ := hint[string](n.Hints, "desktop-entry")
	return s
}

// ImagePath returns the image-path hint.
func (n *Notification) ImagePath() string {
	s, _ := hint[string](n.Hints, "image-path")
	return s
}

// SoundFile returns the sound-file hint.
func (n *Notification) SoundFile() string {
	s, _ := hint[string](n.Hints, "sound-file")
	return s
}

// SuppressSound reports whether the suppress-sound hint is set.
func (n *Notification) SuppressSound() bool {
	b, _ := hint[bool](n.Hints, "suppress-sound")
	return b
}

// Transient reports whether the transient hint is set.
func (n *Notification) Transient() bool {
	b, _ := hint[bool](n.Hints, "transient")
	return b
}

// Resident reports whether the resident hint is set.
// Resident notifications stay after an action is invoked.
func (n *Notification) Resident() bool {
	b, _ := hint[bool](n.Hints, "resident")
	return b
}

// StackTag returns the x-dunst-stack-tag or stack-tag hint.
// Notifications sharing a tag replace each other.
func (n *Notification) StackTag() string {
	if s, ok := hint[string](n.Hints, "x-dunst-stack-tag"); ok && s != "" {
		return s
	}
	s, _ := hint[string](n.Hints, "stack-tag")
	return s
}

// Progress returns the value hint (0-100), or -1 when absent.
func (n *Notification) Progress() int {
	if v, ok := hintInt(n.Hints, "value"); ok {
		return v
	}
	return -1
}

// PlainHints flattens the hints with scalar values into a plain map.
// Binary payloads such as image-data are left out.
func (n *Notification) PlainHints() map[string]any {
	out := make(map[string]any, len(n.Hints))
	for k, v := range n.Hints {
		switch val := v.Value().(type) {
		case string, bool, int16, uint16, int32, uint32, int64, uint64, float64:
			out[k] = val
		case byte:
			out[k] = int(val)
		}
	}
	return out
}

// ServerCapabilities lists the capabilities advertised by toastd.
var ServerCapabilities = []string{
	"actions",
	"body",
	"body-markup",
	"icon-static",
	"sound",
}

// ServerInfo is returned by GetServerInformation.
type ServerInfo struct {
	Name        string
	Vendor      string
	Version     string
	SpecVersion string
}

// DefaultServerInfo returns the server information with a placeholder version.
func DefaultServerInfo() ServerInfo {
	return ServerInfo{
		Name:        "toastd",
		Vendor:      "toastd",
		Version:     "dev",
		SpecVersion: "1.2",
	}
}
