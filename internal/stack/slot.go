package stack

import (
	"bytes"
	"encoding/json"

	"github.com/jmylchreest/toastd/internal/model"
)

// Slot holds the foreground toast, or nothing.
// The zero value is an empty slot.
type Slot struct {
	toast    model.Toast
	occupied bool
}

// Occupied returns a slot holding t.
func Occupied(t model.Toast) Slot {
	return Slot{toast: t, occupied: true}
}

// Get returns the held toast and whether the slot is occupied.
func (s Slot) Get() (model.Toast, bool) {
	if !s.occupied {
		return model.Toast{}, false
	}
	return s.toast, true
}

// Empty reports whether the slot holds nothing.
func (s Slot) Empty() bool {
	return !s.occupied
}

// Has reports whether the slot holds the toast with the given id.
func (s Slot) Has(id string) bool {
	return s.occupied && s.toast.ID == id
}

// MarshalJSON encodes an empty slot as null and an occupied slot as its toast.
func (s Slot) MarshalJSON() ([]byte, error) {
	if !s.occupied {
		return []byte("null"), nil
	}
	return json.Marshal(s.toast)
}

// MarshalYAML encodes an empty slot as null and an occupied slot as its toast.
func (s Slot) MarshalYAML() (any, error) {
	if !s.occupied {
		return nil, nil
	}
	return s.toast, nil
}

// UnmarshalJSON decodes null as an empty slot and anything else as an occupied one.
func (s *Slot) UnmarshalJSON(data []byte) error {
	if string(bytes.TrimSpace(data)) == "null" {
		*s = Slot{}
		return nil
	}
	var t model.Toast
	if err := json.Unmarshal(data, &t); err != nil {
		return err
	}
	*s = Occupied(t)
	return nil
}
