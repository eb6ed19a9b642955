package main

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

var statusOpts struct {
	all bool // Count closed toasts too
}

// WaybarStatus represents the Waybar custom module JSON format.
type WaybarStatus struct {
	Text       string `json:"text"`
	Alt        string `json:"alt,omitempty"`
	Tooltip    string `json:"tooltip,omitempty"`
	Class      string `json:"class,omitempty"`
	Percentage int    `json:"percentage,omitempty"`
}

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Output Waybar-compatible JSON status",
	Long: `Output stack status in Waybar's custom module JSON format.

By default only open toasts are counted. Use --all to include closed
toasts still in history.

  "custom/toasts": {
    "exec": "toast status",
    "interval": 5,
    "return-type": "json",
    "on-click": "toast unfold",
    "on-click-right": "toast visible toggle"
  }

The class is one of empty, hidden, low, normal or critical.`,
	Args: cobra.NoArgs,
	RunE: runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)

	statusCmd.Flags().BoolVar(&statusOpts.all, "all", false,
		"Include closed toasts in the count")
}

func runStatus(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.State(commandContext(cmd))
	if err != nil {
		logger.Debug("state unavailable", "error", err)
		return outputStatus(cmd, WaybarStatus{Alt: "error", Class: "error", Tooltip: err.Error()})
	}
	return outputStatus(cmd, generateStatus(snap, statusOpts.all))
}

// generateStatus summarizes a snapshot for a status bar.
func generateStatus(snap stack.Snapshot, includeClosed bool) WaybarStatus {
	toasts := snap.Toasts()
	open := core.Filter(toasts, core.FilterOptions{Open: model.Ptr(true)})
	count := len(open)
	if includeClosed {
		count = len(toasts)
	}

	if count == 0 {
		return WaybarStatus{Alt: "empty", Class: "empty"}
	}

	class := "normal"
	switch {
	case !snap.Visible:
		class = "hidden"
	case len(open) == 0:
		class = "low"
	case len(core.Filter(open, core.FilterOptions{Urgency: model.Ptr(model.UrgencyCritical)})) > 0:
		class = "critical"
	}

	return WaybarStatus{
		Text:       fmt.Sprintf("%d", count),
		Alt:        class,
		Tooltip:    buildTooltip(snap, len(open), len(toasts)-len(open)),
		Class:      class,
		Percentage: min(count, 100),
	}
}

// buildTooltip creates a tooltip showing the stack breakdown.
func buildTooltip(snap stack.Snapshot, open, closed int) string {
	var lines []string
	if p, ok := snap.Prominent(); ok {
		_, summary, _ := core.Parts(p)
		if app := core.App(p); app != "" {
			summary = app + ": " + summary
		}
		lines = append(lines, model.Truncate(summary, 60))
	}
	if open > 0 {
		lines = append(lines, fmt.Sprintf("Open: %d", open))
	}
	if closed > 0 {
		lines = append(lines, fmt.Sprintf("Closed: %d", closed))
	}
	if !snap.Visible {
		lines = append(lines, "Hidden")
	}
	return strings.Join(lines, "\n")
}

// outputStatus writes the status as JSON.
func outputStatus(cmd *cobra.Command, status WaybarStatus) error {
	return json.NewEncoder(cmd.OutOrStdout()).Encode(status)
}
