package model

import (
	"errors"
	"maps"
	"reflect"
	"time"
)

// Validation errors.
var (
	ErrInvalidUrgency   = errors.New("urgency must be low, normal or critical")
	ErrInvalidPlacement = errors.New("placement must be top, bottom or center")
)

// Options holds the caller-supplied display options of a toast.
// Every field is optional: a nil pointer, nil func or missing hint means "not provided".
type Options struct {
	// ID requests an explicit identity. Only honoured by Show; never merged.
	ID string `json:"id,omitempty" yaml:"id,omitempty"`

	Placement *Placement     `json:"placement,omitempty" yaml:"placement,omitempty"`
	Icon      *string        `json:"icon,omitempty" yaml:"icon,omitempty"`
	Type      *string        `json:"type,omitempty" yaml:"type,omitempty"`
	Urgency   *Urgency       `json:"urgency,omitempty" yaml:"urgency,omitempty"`
	Duration  *time.Duration `json:"duration,omitempty" yaml:"duration,omitempty"` // Auto-dismiss hint, honoured by callers

	// OnPress is forwarded to renderers; the stack never calls it.
	OnPress func() `json:"-" yaml:"-"`
	// OnClose fires once when the toast is permanently removed.
	OnClose func() `json:"-" yaml:"-"`

	// Hints are arbitrary display hints carried opaquely.
	Hints map[string]any `json:"hints,omitempty" yaml:"hints,omitempty"`
}

// Ptr returns a pointer to v. Handy for filling optional fields.
func Ptr[T any](v T) *T {
	return &v
}

// Clone returns a copy of o with its own hints map.
func (o Options) Clone() Options {
	clone := o
	if o.Hints != nil {
		clone.Hints = maps.Clone(o.Hints)
	}
	return clone
}

// Merge applies patch over o and reports whether anything changed.
// A field is taken from patch only when it is provided; hints merge key by key
// and nil hint values are skipped. The ID is never merged.
func (o Options) Merge(patch *Options) (Options, bool) {
	merged := o.Clone()
	if patch == nil {
		return merged, false
	}
	changed := false

	if patch.Placement != nil && (merged.Placement == nil || *merged.Placement != *patch.Placement) {
		merged.Placement = Ptr(*patch.Placement)
		changed = true
	}
	if patch.Icon != nil && (merged.Icon == nil || *merged.Icon != *patch.Icon) {
		merged.Icon = Ptr(*patch.Icon)
		changed = true
	}
	if patch.Type != nil && (merged.Type == nil || *merged.Type != *patch.Type) {
		merged.Type = Ptr(*patch.Type)
		changed = true
	}
	if patch.Urgency != nil && (merged.Urgency == nil || *merged.Urgency != *patch.Urgency) {
		merged.Urgency = Ptr(*patch.Urgency)
		changed = true
	}
	if patch.Duration != nil && (merged.Duration == nil || *merged.Duration != *patch.Duration) {
		merged.Duration = Ptr(*patch.Duration)
		changed = true
	}
	if patch.OnPress != nil {
		merged.OnPress = patch.OnPress
		changed = true
	}
	if patch.OnClose != nil {
		merged.OnClose = patch.OnClose
		changed = true
	}

	for k, v := range patch.Hints {
		if v == nil {
			continue
		}
		if cur, ok := merged.Hints[k]; ok && reflect.DeepEqual(cur, v) {
			continue
		}
		if merged.Hints == nil {
			merged.Hints = make(map[string]any, len(patch.Hints))
		}
		merged.Hints[k] = v
		changed = true
	}

	return merged, changed
}

// PlacementOr returns the placement or def when unset.
func (o Options) PlacementOr(def Placement) Placement {
	if o.Placement == nil {
		return def
	}
	return *o.Placement
}

// IconOr returns the icon or def when unset.
func (o Options) IconOr(def string) string {
	if o.Icon == nil {
		return def
	}
	return *o.Icon
}

// TypeOr returns the style variant or def when unset.
func (o Options) TypeOr(def string) string {
	if o.Type == nil {
		return def
	}
	return *o.Type
}

// UrgencyOr returns the urgency or def when unset.
func (o Options) UrgencyOr(def Urgency) Urgency {
	if o.Urgency == nil {
		return def
	}
	return *o.Urgency
}

// Hint returns a string hint, or "" when absent or not a string.
func (o Options) Hint(key string) string {
	if s, ok := o.Hints[key].(string); ok {
		return s
	}
	return ""
}
