package main

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/output"
	"github.com/jmylchreest/toastd/internal/client"
	"github.com/jmylchreest/toastd/internal/core"
	"github.com/jmylchreest/toastd/internal/model"
	"github.com/jmylchreest/toastd/internal/stack"
)

// getOptions holds the get command flags.
type getOptions struct {
	// Filter options
	since   string
	app     string
	urgency string
	open    bool
	closed  bool
	limit   int
	search  string
	filter  string

	// Sort options; an empty field keeps stack order
	sortBy    string
	sortOrder string

	// Output options
	format   string
	field    string
	template string
}

var getOpts getOptions

var getCmd = &cobra.Command{
	Use:     "get [index|id]",
	Aliases: []string{"list", "ls"},
	Short:   "Print the toast stack",
	Long: `Print the toast stack, foreground first, in various formats.

With an index (1-based, after filtering) or id argument, prints that
toast. A full dmenu line is accepted too, so selections can be piped back.

Examples:
  # Everything in the stack
  toast get

  # Open critical toasts as JSON
  toast get --open --urgency critical --format json

  # Filter expressions
  toast get --filter "app=slack,summary~deploy"

  # Pick a toast with fuzzel and copy its body
  toast get -f dmenu | fuzzel -d | toast get --field body | wl-copy`,
	Args: cobra.MaximumNArgs(1),
	RunE: runGet,
}

func init() {
	rootCmd.AddCommand(getCmd)

	getCmd.Flags().StringVar(&getOpts.since, "since", "",
		"Only toasts created within the duration (e.g., 1h, 7d, 1w)")
	getCmd.Flags().StringVar(&getOpts.app, "app", "",
		"Filter by application name (exact match)")
	getCmd.Flags().StringVar(&getOpts.urgency, "urgency", "",
		"Filter by urgency (low, normal, critical)")
	getCmd.Flags().BoolVar(&getOpts.open, "open", false,
		"Only open toasts")
	getCmd.Flags().BoolVar(&getOpts.closed, "closed", false,
		"Only closed toasts")
	getCmd.Flags().IntVarP(&getOpts.limit, "limit", "n", 0,
		"Maximum number of toasts to show (0=unlimited)")
	getCmd.Flags().StringVarP(&getOpts.search, "search", "s", "",
		"Search in summary and body")
	getCmd.Flags().StringVar(&getOpts.filter, "filter", "",
		"Filter expression (e.g. \"app=slack,urgency>=normal,created>1h\")")

	getCmd.Flags().StringVar(&getOpts.sortBy, "sort", "",
		"Sort by field (created, app, urgency; default stack order)")
	getCmd.Flags().StringVar(&getOpts.sortOrder, "order", "desc",
		"Sort order (asc, desc)")

	getCmd.Flags().StringVarP(&getOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, ids, dmenu; default from config)")
	getCmd.Flags().StringVar(&getOpts.field, "field", "",
		"Output a single field (id, app, summary, body, category, icon, type, urgency, open, all)")
	getCmd.Flags().StringVar(&getOpts.template, "template", "",
		"Custom Go template for plain and dmenu output")
}

func runGet(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)
	if getOpts.open && getOpts.closed {
		return errors.New("--open and --closed are mutually exclusive")
	}

	snap, err := apiClient.State(ctx)
	if err != nil {
		return err
	}

	toasts, err := applyFilters(snap.Toasts())
	if err != nil {
		return err
	}
	applySort(toasts)

	if len(args) > 0 {
		t, err := lookup(cmd, toasts, args[0])
		if err != nil {
			return err
		}
		return outputToast(cmd, t)
	}

	formatter, err := createFormatter(getOpts.format)
	if err != nil {
		return err
	}
	return formatter.Format(cmd.OutOrStdout(), filteredSnapshot(snap, toasts))
}

// applyFilters applies the filter flags to toasts.
func applyFilters(toasts []model.Toast) ([]model.Toast, error) {
	opts := core.FilterOptions{
		AppFilter: getOpts.app,
		Limit:     getOpts.limit,
	}
	if getOpts.since != "" {
		d, err := core.ParseDuration(getOpts.since)
		if err != nil {
			return nil, err
		}
		opts.Since = d
	}
	if getOpts.urgency != "" {
		u, err := core.ParseUrgency(getOpts.urgency)
		if err != nil {
			return nil, err
		}
		opts.Urgency = &u
	}
	switch {
	case getOpts.open:
		opts.Open = model.Ptr(true)
	case getOpts.closed:
		opts.Open = model.Ptr(false)
	}

	expr, err := core.ParseFilter(getOpts.filter)
	if err != nil {
		return nil, err
	}
	toasts = core.FilterWithExpr(toasts, expr)
	toasts = core.Search(toasts, getOpts.search)
	return core.Filter(toasts, opts), nil
}

// applySort sorts toasts when a sort field was requested.
func applySort(toasts []model.Toast) {
	if getOpts.sortBy == "" {
		return
	}
	core.Sort(toasts, core.SortOptions{
		Field: core.ParseSortField(getOpts.sortBy),
		Order: core.ParseSortOrder(getOpts.sortOrder),
	})
}

// lookup resolves an index, id or dmenu line against the filtered toasts,
// asking the daemon for ids not in the list.
func lookup(cmd *cobra.Command, toasts []model.Toast, arg string) (model.Toast, error) {
	sel := parseDmenuSelection(arg)
	if idx, err := strconv.Atoi(sel); err == nil && idx > 0 {
		if t := core.LookupByIndex(toasts, idx); t != nil {
			return *t, nil
		}
		return model.Toast{}, fmt.Errorf("toast at index %d not found", idx)
	}
	if t := core.LookupByID(toasts, sel); t != nil {
		return *t, nil
	}

	t, err := apiClient.Get(commandContext(cmd), sel)
	if errors.Is(err, client.ErrNotFound) {
		return model.Toast{}, fmt.Errorf("toast with id %s not found", sel)
	}
	return t, err
}

// parseDmenuSelection extracts the index from a dmenu line such as
// "1 | 5m | Firefox | Download Complete: file.zip", or returns the input.
func parseDmenuSelection(selection string) string {
	selection = strings.TrimSpace(selection)
	if !strings.Contains(selection, "|") {
		return selection
	}
	first, _, _ := strings.Cut(selection, "|")
	first = strings.TrimSpace(first)
	if idx, err := strconv.Atoi(first); err == nil && idx > 0 {
		return first
	}
	return selection
}

func outputToast(cmd *cobra.Command, t model.Toast) error {
	if getOpts.field != "" {
		_, err := fmt.Fprintln(cmd.OutOrStdout(), output.FormatField(t, getOpts.field))
		return err
	}

	// Single toasts default to JSON
	format := getOpts.format
	if format == "" {
		format = string(output.FormatJSON)
	}
	formatter, err := createFormatter(format)
	if err != nil {
		return err
	}
	return formatter.FormatToast(cmd.OutOrStdout(), t)
}

// filteredSnapshot rebuilds a snapshot around a filtered toast list, keeping
// the foreground in place when it survived filtering.
func filteredSnapshot(s stack.Snapshot, toasts []model.Toast) stack.Snapshot {
	out := stack.Snapshot{
		Version:  s.Version,
		Unfolded: s.Unfolded,
		Visible:  s.Visible,
	}
	if fg, ok := s.Foreground.Get(); ok && len(toasts) > 0 && toasts[0].ID == fg.ID {
		out.Foreground = stack.Occupied(toasts[0])
		toasts = toasts[1:]
	}
	out.History = toasts
	return out
}

// createFormatter creates the output formatter, falling back to the
// configured default format.
func createFormatter(format string) (output.Formatter, error) {
	opts := output.DefaultFormatterOptions()
	opts.Template = getOpts.template
	if cfg != nil && cfg.Output.MaxWidth > 0 {
		opts.BodyMaxLen = cfg.Output.MaxWidth
	}
	return output.NewFormatter(resolveFormat(format), opts)
}

func resolveFormat(format string) output.FormatType {
	if format == "" && cfg != nil {
		format = cfg.Output.Format
	}
	return output.FormatType(strings.ToLower(format))
}
