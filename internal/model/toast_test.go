package model

import (
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stringer struct{ s string }

func (s stringer) String() string { return s.s }

func TestNewID(t *testing.T) {
	a := NewID()
	b := NewID()

	assert.Len(t, a, 26)
	assert.NotEqual(t, a, b)
}

func TestParseUrgency(t *testing.T) {
	tests := []struct {
		input    string
		expected Urgency
		wantErr  bool
	}{
		{"low", UrgencyLow, false},
		{"Normal", UrgencyNormal, false},
		{"CRITICAL", UrgencyCritical, false},
		{"urgent", UrgencyNormal, true},
	}

	for _, tt := range tests {
		t.Run(tt.input, func(t *testing.T) {
			got, err := ParseUrgency(tt.input)
			if tt.wantErr {
				require.Error(t, err)
				assert.True(t, errors.Is(err, ErrInvalidUrgency))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.expected, got)
		})
	}
}

func TestUrgencyString(t *testing.T) {
	assert.Equal(t, "low", UrgencyLow.String())
	assert.Equal(t, "critical", UrgencyCritical.String())
	assert.Equal(t, "unknown", Urgency(7).String())
}

func TestParsePlacement(t *testing.T) {
	p, err := ParsePlacement("Top")
	require.NoError(t, err)
	assert.Equal(t, PlacementTop, p)

	_, err = ParsePlacement("left")
	assert.ErrorIs(t, err, ErrInvalidPlacement)
}

func TestContentText(t *testing.T) {
	tests := []struct {
		name     string
		content  any
		expected string
	}{
		{"nil", nil, ""},
		{"string", "saved", "saved"},
		{"message", Message{AppName: "mail", Summary: "New mail", Body: "from bob"}, "mail: New mail - from bob"},
		{"message summary only", Message{Summary: "Done"}, "Done"},
		{"message pointer", &Message{Summary: "Ptr"}, "Ptr"},
		{"nil message pointer", (*Message)(nil), ""},
		{"stringer", stringer{"custom"}, "custom"},
		{"other", 42, "42"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, ContentText(tt.content))
		})
	}
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "", Truncate("anything", 0))
	assert.Equal(t, "short", Truncate("short", 10))
	assert.Equal(t, "a b c", Truncate("a\n  b\tc", 10))
	assert.Equal(t, "hello w...", Truncate("hello world again", 10))
	assert.Equal(t, "hel", Truncate("hello", 3))
}

func TestToastClone(t *testing.T) {
	orig := Toast{
		ID:        "x1",
		Content:   "hi",
		Open:      true,
		Options:   Options{Hints: map[string]any{"k": "v"}},
		CreatedAt: time.Now(),
	}

	clone := orig.Clone()
	clone.Options.Hints["k"] = "changed"

	assert.Equal(t, "v", orig.Options.Hints["k"])
	assert.Equal(t, "hi", clone.Text())
}

func TestToast_UnmarshalJSONContent(t *testing.T) {
	tests := []struct {
		name     string
		json     string
		expected any
	}{
		{"string", `{"id":"a","content":"hello"}`, "hello"},
		{"message", `{"id":"a","content":{"app_name":"mail","summary":"New","body":"x"}}`, Message{AppName: "mail", Summary: "New", Body: "x"}},
		{"other object", `{"id":"a","content":{"n":1}}`, map[string]any{"n": 1.0}},
		{"number", `{"id":"a","content":42}`, 42.0},
		{"null", `{"id":"a","content":null}`, nil},
		{"missing", `{"id":"a"}`, nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got Toast
			require.NoError(t, json.Unmarshal([]byte(tt.json), &got))
			assert.Equal(t, "a", got.ID)
			assert.Equal(t, tt.expected, got.Content)
		})
	}
}

func TestToast_JSONRoundTripKeepsFields(t *testing.T) {
	created := time.Date(2025, 3, 1, 10, 0, 0, 0, time.UTC)
	in := Toast{
		ID:        "a",
		Content:   Message{Summary: "hi"},
		Open:      true,
		Options:   Options{Icon: Ptr("bell"), Urgency: Ptr(UrgencyCritical)},
		CreatedAt: created,
		UpdatedAt: created,
	}
	data, err := json.Marshal(in)
	require.NoError(t, err)

	var out Toast
	require.NoError(t, json.Unmarshal(data, &out))
	assert.Equal(t, in.Content, out.Content)
	assert.True(t, out.Open)
	assert.Equal(t, "bell", out.Options.IconOr(""))
	assert.Equal(t, UrgencyCritical, out.Options.UrgencyOr(UrgencyLow))
	assert.True(t, created.Equal(out.CreatedAt))
}
