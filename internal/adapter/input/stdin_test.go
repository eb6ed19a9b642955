package input

import (
	"context"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jmylchreest/toastd/internal/model"
)

func importString(t *testing.T, s string) ([]string, error) {
	t.Helper()
	requests, err := NewStdinAdapterWithReader(strings.NewReader(s)).Import(context.Background())
	if err != nil {
		return nil, err
	}
	texts := make([]string, 0, len(requests))
	for _, req := range requests {
		texts = append(texts, model.ContentText(req.ContentValue()))
	}
	return texts, nil
}

func TestStdinAdapter_Name(t *testing.T) {
	assert.Equal(t, "stdin", NewStdinAdapter().Name())
}

func TestStdinAdapter_Formats(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{"empty", "  \n", []string{}},
		{"text lines", "first\n\n  second  \n", []string{"first", "second"}},
		{"json array", `[{"content": "a"}, {"summary": "b", "body": "c"}, {"content": " "}]`, []string{"a", "b - c"}},
		{"json lines", "{\"content\": \"a\"}\n{\"content\": \"b\"}\n", []string{"a", "b"}},
		{"dunst history", `{"type": "aa{sv}", "data": [[{"summary": {"type": "s", "data": "from dunst"}}]]}`, []string{"from dunst"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			texts, err := importString(t, tt.input)
			require.NoError(t, err)
			assert.Equal(t, tt.expected, texts)
		})
	}
}

func TestStdinAdapter_JSONLinesKeepOptions(t *testing.T) {
	input := `{"summary": "Build", "body": "passed", "app_name": "ci", "urgency": "low", "duration": "3s", "hints": {"category": "ci"}}`
	requests, err := NewStdinAdapterWithReader(strings.NewReader(input)).Import(context.Background())
	require.NoError(t, err)
	require.Len(t, requests, 1)

	opts, err := requests[0].Options()
	require.NoError(t, err)
	assert.Equal(t, model.UrgencyLow, opts.UrgencyOr(model.UrgencyNormal))
	assert.Equal(t, "ci", opts.Hint("category"))
	assert.Equal(t, model.Message{AppName: "ci", Summary: "Build", Body: "passed"}, requests[0].ContentValue())
}

func TestStdinAdapter_InvalidJSON(t *testing.T) {
	_, err := importString(t, `[{"content": `)
	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "stdin", adapterErr.Source)

	_, err = importString(t, "{\"content\": \"a\"}\n{broken\n")
	assert.Error(t, err)
}

func TestStdinAdapter_CancelledContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := NewStdinAdapterWithReader(strings.NewReader("x")).Import(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}

func TestNewAdapter(t *testing.T) {
	a, err := NewAdapter("stdin")
	require.NoError(t, err)
	assert.Equal(t, "stdin", a.Name())

	a, err = NewAdapter("dunst")
	require.NoError(t, err)
	assert.Equal(t, "dunst", a.Name())

	_, err = NewAdapter("mako")
	var adapterErr *AdapterError
	require.ErrorAs(t, err, &adapterErr)
	assert.Equal(t, "mako: unknown or unavailable adapter", err.Error())
}
