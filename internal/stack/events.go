package stack

import "github.com/jmylchreest/toastd/internal/model"

// EventKind identifies what happened to the stack during a frame.
type EventKind int

const (
	// EventShown indicates a toast became the foreground.
	EventShown EventKind = iota
	// EventUpdated indicates a toast's content or options changed.
	EventUpdated
	// EventHidden indicates a toast was closed and awaits destruction.
	EventHidden
	// EventDestroyed indicates a toast was removed from tracking.
	EventDestroyed
	// EventEvicted indicates a toast was dropped because history was full.
	EventEvicted
	// EventSuperseded indicates a toast was replaced by a show with the same id.
	EventSuperseded
	// EventCleared indicates an immediate hide-all emptied the stack.
	EventCleared
	// EventViewChanged indicates the visible or unfolded flag changed.
	EventViewChanged
)

var eventKindNames = map[EventKind]string{
	EventShown:       "shown",
	EventUpdated:     "updated",
	EventHidden:      "hidden",
	EventDestroyed:   "destroyed",
	EventEvicted:     "evicted",
	EventSuperseded:  "superseded",
	EventCleared:     "cleared",
	EventViewChanged: "view_changed",
}

// String returns the event kind name.
func (k EventKind) String() string {
	if name, ok := eventKindNames[k]; ok {
		return name
	}
	return "unknown"
}

// Removal reports whether the event ends the toast's tracking.
func (k EventKind) Removal() bool {
	return k == EventDestroyed || k == EventEvicted || k == EventSuperseded
}

// Event describes a single applied change.
// Toast holds the affected record as of the change; it is zero for stack-wide events.
type Event struct {
	Kind  EventKind
	ID    string
	Toast model.Toast
}

// Observer receives events after each frame, outside the manager lock.
type Observer func(Event)
