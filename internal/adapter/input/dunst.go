package input

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"os/exec"
	"strconv"
	"strings"
	"time"

	"github.com/jmylchreest/toastd/internal/httpapi"
	"github.com/jmylchreest/toastd/internal/model"
)

// Hint keys set on imported dunst entries.
const (
	HintSource    = "import_source"
	HintDunstID   = "dunst_id"
	HintTimestamp = "timestamp"
	HintCategory  = "category"
	HintStackTag  = "x-dunst-stack-tag"
	HintProgress  = "value"
	HintURLs      = "urls"
)

// DunstAdapter fetches notifications from dunstctl history.
type DunstAdapter struct {
	run func(ctx context.Context) ([]byte, error)
	now func() time.Time
}

// NewDunstAdapter creates a new DunstAdapter.
func NewDunstAdapter() *DunstAdapter {
	return &DunstAdapter{
		run: func(ctx context.Context) ([]byte, error) {
			return exec.CommandContext(ctx, "dunstctl", "history").Output()
		},
		now: time.Now,
	}
}

// Name returns the adapter identifier.
func (a *DunstAdapter) Name() string {
	return "dunst"
}

// Import runs dunstctl history and converts each entry to a toast request.
func (a *DunstAdapter) Import(ctx context.Context) ([]httpapi.ToastRequest, error) {
	output, err := a.run(ctx)
	if err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to execute dunstctl history",
			Err:     err,
		}
	}
	return parseDunstHistory(output, a.now())
}

// dunstHistory represents the top-level dunstctl history JSON structure.
type dunstHistory struct {
	Type string         `json:"type"`
	Data [][]dunstEntry `json:"data"`
}

// dunstEntry represents a single notification in dunstctl history.
type dunstEntry struct {
	ID            dunstValue `json:"id"`
	AppName       dunstValue `json:"appname"`
	Summary       dunstValue `json:"summary"`
	Body          dunstValue `json:"body"`
	Timestamp     dunstValue `json:"timestamp"`
	Timeout       dunstValue `json:"timeout"`
	Urgency       dunstValue `json:"urgency"`
	Category      dunstValue `json:"category"`
	IconPath      dunstValue `json:"icon_path"`
	DefaultAction dunstValue `json:"default_action_name"`
	Progress      dunstValue `json:"progress"`
	Message       dunstValue `json:"message"`
	URLs          dunstValue `json:"urls"`
	Foreground    dunstValue `json:"fg"`
	Background    dunstValue `json:"bg"`
	StackTag      dunstValue `json:"stack_tag"`
}

// dunstValue represents a typed value in dunst JSON.
// dunst uses {"type": "INT", "data": 123} format.
type dunstValue struct {
	Type string `json:"type"`
	Data any    `json:"data"`
}

// String returns the value as a string.
func (v dunstValue) String() string {
	switch d := v.Data.(type) {
	case string:
		return d
	case float64:
		return strconv.FormatFloat(d, 'f', -1, 64)
	case int64:
		return strconv.FormatInt(d, 10)
	case nil:
		return ""
	default:
		return fmt.Sprintf("%v", d)
	}
}

// Int returns the value as an int.
func (v dunstValue) Int() int {
	return int(v.Int64())
}

// Int64 returns the value as an int64.
func (v dunstValue) Int64() int64 {
	switch d := v.Data.(type) {
	case float64:
		return int64(d)
	case int64:
		return d
	case string:
		i, _ := strconv.ParseInt(d, 10, 64)
		return i
	default:
		return 0
	}
}

// ParseDunstHistory parses dunstctl history JSON output.
func ParseDunstHistory(data []byte) ([]httpapi.ToastRequest, error) {
	return parseDunstHistory(data, time.Now())
}

func parseDunstHistory(data []byte, now time.Time) ([]httpapi.ToastRequest, error) {
	var history dunstHistory
	if err := json.Unmarshal(data, &history); err != nil {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: "failed to parse dunstctl history JSON",
			Err:     err,
		}
	}
	if history.Type != "" && history.Type != "aa{sv}" && history.Type != "array" {
		return nil, &AdapterError{
			Source:  "dunst",
			Message: fmt.Sprintf("unexpected history type %q", history.Type),
		}
	}

	var requests []httpapi.ToastRequest

	// dunst uses nested arrays: data is [[entry1, entry2, ...]]
	for _, group := range history.Data {
		for _, entry := range group {
			req, ok := convertDunstEntry(entry, now)
			if !ok {
				continue
			}
			requests = append(requests, req)
		}
	}
	return requests, nil
}

// convertDunstEntry converts a dunst entry to a toast request. Entries
// without a summary or body are skipped.
func convertDunstEntry(entry dunstEntry, now time.Time) (httpapi.ToastRequest, bool) {
	req := httpapi.ToastRequest{
		AppName: sanitizeString(entry.AppName.String()),
		Summary: sanitizeString(entry.Summary.String()),
		Body:    sanitizeString(entry.Body.String()),
	}
	if req.Summary == "" && req.Body == "" {
		return req, false
	}

	urgency := model.Urgency(entry.Urgency.Int())
	if urgency < model.UrgencyLow || urgency > model.UrgencyCritical {
		urgency = model.UrgencyNormal
	}
	req.Urgency = model.Ptr(urgency.String())
	if icon := entry.IconPath.String(); icon != "" {
		req.Icon = model.Ptr(icon)
	}

	req.Hints = map[string]any{
		HintSource:    "dunst",
		HintDunstID:   entry.ID.Int(),
		HintTimestamp: convertDunstTimestamp(entry.Timestamp.Int64(), now),
	}
	if req.AppName != "" {
		req.Hints["app_name"] = req.AppName
	}
	optional := map[string]string{
		HintCategory: entry.Category.String(),
		HintStackTag: entry.StackTag.String(),
		HintURLs:     entry.URLs.String(),
		"fgcolor":    entry.Foreground.String(),
		"bgcolor":    entry.Background.String(),
	}
	for key, value := range optional {
		if value != "" {
			req.Hints[key] = value
		}
	}
	if progress := entry.Progress.Int(); progress >= 0 && progress <= 100 && entry.Progress.Data != nil {
		req.Hints[HintProgress] = progress
	}
	return req, true
}

// convertDunstTimestamp converts dunst timestamp to Unix timestamp.
// Dunst timestamps are microseconds since boot.
func convertDunstTimestamp(dunstTimestamp int64, now time.Time) int64 {
	if dunstTimestamp == 0 {
		return now.Unix()
	}

	uptime, err := readUptime()
	if err != nil {
		// Assume the timestamp is already Unix time if it looks like it.
		if dunstTimestamp > 1000000000 {
			return dunstTimestamp
		}
		return now.Unix()
	}

	bootMicros := now.UnixMicro() - uptime.Microseconds()
	return (bootMicros + dunstTimestamp) / 1000000
}

var readUptime = func() (time.Duration, error) {
	data, err := os.ReadFile("/proc/uptime")
	if err != nil {
		return 0, err
	}
	fields := strings.Fields(string(data))
	if len(fields) == 0 {
		return 0, fmt.Errorf("empty /proc/uptime")
	}
	seconds, err := strconv.ParseFloat(fields[0], 64)
	if err != nil {
		return 0, err
	}
	return time.Duration(seconds * float64(time.Second)), nil
}

// sanitizeString removes control characters and trims whitespace.
func sanitizeString(s string) string {
	var result strings.Builder
	for _, r := range s {
		if r < 32 && r != '\n' && r != '\t' {
			result.WriteRune(' ')
		} else {
			result.WriteRune(r)
		}
	}
	return strings.TrimSpace(result.String())
}
