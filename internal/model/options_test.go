package model

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

func TestOptionsMerge_NilPatch(t *testing.T) {
	base := Options{Icon: Ptr("info")}

	merged, changed := base.Merge(nil)

	assert.False(t, changed)
	assert.Equal(t, "info", merged.IconOr(""))
}

func TestOptionsMerge_EmptyPatchIsNoop(t *testing.T) {
	base := Options{
		Icon:      Ptr("info"),
		Placement: Ptr(PlacementTop),
		Hints:     map[string]any{"color": "red"},
	}

	merged, changed := base.Merge(&Options{})

	assert.False(t, changed)
	assert.Equal(t, base.Icon, merged.Icon)
	assert.Equal(t, base.Placement, merged.Placement)
	assert.Equal(t, base.Hints, merged.Hints)
}

func TestOptionsMerge_PartialPatch(t *testing.T) {
	base := Options{
		Icon:      Ptr("info"),
		Placement: Ptr(PlacementTop),
		Type:      Ptr(TypeSuccess),
	}

	merged, changed := base.Merge(&Options{Icon: Ptr("warn")})

	assert.True(t, changed)
	assert.Equal(t, "warn", merged.IconOr(""))
	assert.Equal(t, PlacementTop, merged.PlacementOr(PlacementBottom))
	assert.Equal(t, TypeSuccess, merged.TypeOr(TypeNormal))
	// Base is untouched
	assert.Equal(t, "info", base.IconOr(""))
}

func TestOptionsMerge_SameValueIsNotAChange(t *testing.T) {
	base := Options{Urgency: Ptr(UrgencyCritical), Duration: Ptr(5 * time.Second)}

	_, changed := base.Merge(&Options{Urgency: Ptr(UrgencyCritical), Duration: Ptr(5 * time.Second)})

	assert.False(t, changed)
}

func TestOptionsMerge_IDNeverMerged(t *testing.T) {
	base := Options{ID: "keep"}

	merged, changed := base.Merge(&Options{ID: "other"})

	assert.False(t, changed)
	assert.Equal(t, "keep", merged.ID)
}

func TestOptionsMerge_Hints(t *testing.T) {
	base := Options{Hints: map[string]any{"a": 1, "b": "two"}}

	merged, changed := base.Merge(&Options{Hints: map[string]any{
		"b": "deux",
		"c": true,
		"a": nil, // absent, keeps the old value
	}})

	assert.True(t, changed)
	assert.Equal(t, map[string]any{"a": 1, "b": "deux", "c": true}, merged.Hints)
	assert.Equal(t, map[string]any{"a": 1, "b": "two"}, base.Hints)
}

func TestOptionsMerge_HintsOnEmptyBase(t *testing.T) {
	merged, changed := Options{}.Merge(&Options{Hints: map[string]any{"x": "y"}})

	assert.True(t, changed)
	assert.Equal(t, "y", merged.Hint("x"))
}

func TestOptionsMerge_Callbacks(t *testing.T) {
	calls := 0
	base := Options{OnClose: func() { calls++ }}

	merged, changed := base.Merge(&Options{OnPress: func() { calls += 10 }})

	assert.True(t, changed)
	merged.OnPress()
	merged.OnClose()
	assert.Equal(t, 11, calls)
}

func TestOptionsAccessorsDefaults(t *testing.T) {
	var o Options

	assert.Equal(t, PlacementBottom, o.PlacementOr(PlacementBottom))
	assert.Equal(t, "bell", o.IconOr("bell"))
	assert.Equal(t, TypeNormal, o.TypeOr(TypeNormal))
	assert.Equal(t, UrgencyNormal, o.UrgencyOr(UrgencyNormal))
	assert.Equal(t, "", o.Hint("missing"))
}
