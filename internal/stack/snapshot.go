package stack

import "github.com/jmylchreest/toastd/internal/model"

// Snapshot is an immutable view of the committed stack state.
// Renderers paint from snapshots and never see records the manager still owns.
type Snapshot struct {
	Version    uint64        `json:"version" yaml:"version"`
	Foreground Slot          `json:"foreground" yaml:"foreground"`
	History    []model.Toast `json:"history" yaml:"history"`
	Unfolded   bool          `json:"unfolded" yaml:"unfolded"`
	Visible    bool          `json:"visible" yaml:"visible"`
}

// Prominent returns the toast a folded view shows: the foreground,
// or the most recently demoted history entry when the foreground is empty.
func (s Snapshot) Prominent() (model.Toast, bool) {
	if t, ok := s.Foreground.Get(); ok {
		return t, true
	}
	if len(s.History) > 0 {
		return s.History[0], true
	}
	return model.Toast{}, false
}

// Stacked reports whether there is history behind the foreground,
// in which case pressing the folded view unfolds instead of pressing through.
func (s Snapshot) Stacked() bool {
	return !s.Foreground.Empty() && len(s.History) > 0
}

// Len returns the number of tracked toasts.
func (s Snapshot) Len() int {
	n := len(s.History)
	if !s.Foreground.Empty() {
		n++
	}
	return n
}

// Empty reports whether nothing is tracked.
func (s Snapshot) Empty() bool {
	return s.Len() == 0
}

// Toasts returns the foreground followed by history.
func (s Snapshot) Toasts() []model.Toast {
	out := make([]model.Toast, 0, s.Len())
	if t, ok := s.Foreground.Get(); ok {
		out = append(out, t)
	}
	return append(out, s.History...)
}

// IDs returns the tracked ids, foreground first.
func (s Snapshot) IDs() []string {
	ids := make([]string, 0, s.Len())
	for _, t := range s.Toasts() {
		ids = append(ids, t.ID)
	}
	return ids
}

// Find looks up a toast by id within the snapshot.
func (s Snapshot) Find(id string) (model.Toast, bool) {
	if s.Foreground.Has(id) {
		t, _ := s.Foreground.Get()
		return t, true
	}
	for _, t := range s.History {
		if t.ID == id {
			return t, true
		}
	}
	return model.Toast{}, false
}
