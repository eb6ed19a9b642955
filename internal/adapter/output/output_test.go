package output

import (
	"bytes"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gopkg.in/yaml.v3"

	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

var now = time.Date(2025, 6, 1, 12, 0, 0, 0, time.UTC)

func testOptions() FormatterOptions {
	opts := DefaultFormatterOptions()
	opts.Now = func() time.Time { return now }
	return opts
}

func testSnapshot() stack.Snapshot {
	return stack.Snapshot{
		Version: 4,
		Foreground: stack.Occupied(model.Toast{
			ID:        "abc123",
			Content:   model.Message{AppName: "Firefox", Summary: "Download Complete", Body: "myfile.zip has finished downloading"},
			Open:      true,
			CreatedAt: now.Add(-5 * time.Minute),
		}),
		History: []model.Toast{{
			ID:        "def456",
			Content:   "Hello from John",
			Open:      false,
			Options:   model.Options{Hints: map[string]any{"app_name": "Slack"}, Urgency: model.Ptr(model.UrgencyCritical)},
			CreatedAt: now.Add(-2 * time.Hour),
		}},
		Unfolded: true,
		Visible:  true,
	}
}

func TestPlainFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, testSnapshot()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 4)
	assert.Equal(t, "visible, unfolded, 2 toasts", lines[0])
	assert.Equal(t, "[1] * <Firefox> Download Complete (5 minutes ago)", lines[1])
	assert.Equal(t, "    myfile.zip has finished downloading", lines[2])
	assert.Equal(t, "[2] <Slack> Hello from John [closed] (2 hours ago)", lines[3])
}

func TestPlainFormatter_Empty(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(testOptions()).Format(&buf, stack.Snapshot{}))
	assert.Equal(t, "hidden, folded, no toasts\n", buf.String())
}

func TestPlainFormatter_Options(t *testing.T) {
	opts := testOptions()
	opts.ShowIndex = false
	opts.ShowTime = false
	opts.ShowApp = false
	opts.BodyMaxLen = 10

	var buf bytes.Buffer
	fg, _ := testSnapshot().Foreground.Get()
	require.NoError(t, NewPlainFormatter(opts).FormatToast(&buf, fg))
	assert.Equal(t, "Download Complete\n    myfile....\n", buf.String())
}

func TestPlainFormatter_CustomTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.Index}}: {{.App}} - {{.Summary}} {{urgencyIcon .Toast}}"

	var buf bytes.Buffer
	require.NoError(t, NewPlainFormatter(opts).Format(&buf, testSnapshot()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 3)
	assert.Equal(t, "1: Firefox - Download Complete -", lines[1])
	assert.Equal(t, "2: Slack - Hello from John !", lines[2])
}

func TestDmenuFormatter_Format(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(testOptions()).Format(&buf, testSnapshot()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	require.Len(t, lines, 2)
	assert.Equal(t, "1 | 5m | Firefox | Download Complete: myfile.zip has finished downloading", lines[0])
	assert.Equal(t, "2 | 2h | Slack | Hello from John", lines[1])
}

func TestDmenuFormatter_TruncateBody(t *testing.T) {
	opts := testOptions()
	opts.BodyMaxLen = 20

	var buf bytes.Buffer
	fg, _ := testSnapshot().Foreground.Get()
	require.NoError(t, NewDmenuFormatter(opts).FormatToast(&buf, fg))

	assert.Contains(t, buf.String(), "...")
	assert.NotContains(t, buf.String(), "finished downloading")
}

func TestDmenuFormatter_CustomTemplate(t *testing.T) {
	opts := testOptions()
	opts.Template = "{{.ID}} {{.Age}} {{truncate .Summary 8}}"

	var buf bytes.Buffer
	require.NoError(t, NewDmenuFormatter(opts).Format(&buf, testSnapshot()))

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	assert.Equal(t, "abc123 5m Downl...", lines[0])
	assert.Equal(t, "def456 2h Hello...", lines[1])
}

func TestJSONFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewJSONFormatter().Format(&buf, testSnapshot()))

	var decoded stack.Snapshot
	require.NoError(t, json.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, []string{"abc123", "def456"}, decoded.IDs())
	fg, _ := decoded.Foreground.Get()
	assert.Equal(t, "Firefox", fg.Content.(model.Message).AppName)

	buf.Reset()
	require.NoError(t, NewJSONFormatter().FormatToast(&buf, fg))
	var single model.Toast
	require.NoError(t, json.Unmarshal(buf.Bytes(), &single))
	assert.Equal(t, "abc123", single.ID)
}

func TestYAMLFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewYAMLFormatter().Format(&buf, testSnapshot()))

	var decoded map[string]any
	require.NoError(t, yaml.Unmarshal(buf.Bytes(), &decoded))
	assert.Equal(t, 4, decoded["version"])
	assert.Equal(t, true, decoded["unfolded"])
	fg, ok := decoded["foreground"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "abc123", fg["id"])
}

func TestIDsFormatter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewIDsFormatter().Format(&buf, testSnapshot()))
	assert.Equal(t, "abc123\ndef456\n", buf.String())
}

func TestFormatField(t *testing.T) {
	fg, _ := testSnapshot().Foreground.Get()
	fg.Options.Icon = model.Ptr("firefox")

	tests := []struct {
		field    string
		expected string
	}{
		{"id", "abc123"},
		{"app", "Firefox"},
		{"app_name", "Firefox"},
		{"summary", "Download Complete"},
		{"body", "myfile.zip has finished downloading"},
		{"icon", "firefox"},
		{"urgency", "normal"},
		{"type", "normal"},
		{"open", "true"},
		{"all", "Firefox: Download Complete - myfile.zip has finished downloading"},
		{"unknown", "Download Complete"},
	}
	for _, tt := range tests {
		t.Run(tt.field, func(t *testing.T) {
			assert.Equal(t, tt.expected, FormatField(fg, tt.field))
		})
	}
}

func TestParts_MultilineStringContent(t *testing.T) {
	app, summary, body := parts(model.Toast{Content: "Title\nmore detail"})
	assert.Empty(t, app)
	assert.Equal(t, "Title", summary)
	assert.Equal(t, "more detail", body)
}

func TestNewFormatter(t *testing.T) {
	opts := DefaultFormatterOptions()

	tests := []struct {
		format FormatType
		check  func(Formatter) bool
	}{
		{FormatPlain, func(f Formatter) bool { _, ok := f.(*PlainFormatter); return ok }},
		{"", func(f Formatter) bool { _, ok := f.(*PlainFormatter); return ok }},
		{FormatJSON, func(f Formatter) bool { _, ok := f.(*JSONFormatter); return ok }},
		{FormatYAML, func(f Formatter) bool { _, ok := f.(*YAMLFormatter); return ok }},
		{FormatIDs, func(f Formatter) bool { _, ok := f.(*IDsFormatter); return ok }},
		{FormatDmenu, func(f Formatter) bool { _, ok := f.(*DmenuFormatter); return ok }},
	}
	for _, tt := range tests {
		t.Run(string(tt.format), func(t *testing.T) {
			f, err := NewFormatter(tt.format, opts)
			require.NoError(t, err)
			assert.True(t, tt.check(f))
		})
	}

	_, err := NewFormatter("xml", opts)
	assert.Error(t, err)
}

func TestSanitizeBody(t *testing.T) {
	tests := []struct {
		name     string
		body     string
		maxLen   int
		expected string
	}{
		{"simple", "hello world", 0, "hello world"},
		{"with newlines", "hello\nworld", 0, "hello world"},
		{"truncate", "hello world", 8, "hello..."},
		{"multiple spaces", "hello   world", 0, "hello world"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, sanitizeBody(tt.body, tt.maxLen))
		})
	}
}

func TestAges(t *testing.T) {
	tests := []struct {
		name    string
		ago     time.Duration
		compact string
	}{
		{"now", 0, "now"},
		{"30 seconds", 30 * time.Second, "now"},
		{"5 minutes", 5 * time.Minute, "5m"},
		{"2 hours", 2 * time.Hour, "2h"},
		{"3 days", 72 * time.Hour, "3d"},
		{"2 weeks", 14 * 24 * time.Hour, "2w"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.compact, compactAge(now.Add(-tt.ago), now))
		})
	}
	assert.Equal(t, "unknown", compactAge(time.Time{}, now))
	assert.Equal(t, "unknown", humanAge(time.Time{}, now))
	assert.Equal(t, "now", humanAge(now, now))
	assert.Equal(t, "3 days ago", humanAge(now.Add(-72*time.Hour), now))
}
