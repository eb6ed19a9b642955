package main

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/input"
	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/httpapi"
)

var importOpts struct {
	duration string
	limit    int
	dryRun   bool
}

var importCmd = &cobra.Command{
	Use:   "import [dunst|stdin]",
	Short: "Show toasts imported from another source",
	Long: `Import notifications from another source and show each as a toast.

Sources:
  dunst  the history of a running dunst, via dunstctl
  stdin  JSON (array or one object per line), dunst history JSON,
         or plain text with one toast per line

Without a source, a running dunst is detected.

Examples:
  # Bring dunst's history into the stack
  toast import dunst --limit 10

  # One toast per line of a log, each expiring after ten seconds
  tail -n 5 build.log | toast import stdin --duration 10s

  # Preview what would be sent
  toast import dunst --dry-run`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"dunst", "stdin"},
	RunE:      runImport,
}

func init() {
	rootCmd.AddCommand(importCmd)

	importCmd.Flags().StringVarP(&importOpts.duration, "duration", "d", "",
		"Expire imported toasts after this duration")
	importCmd.Flags().IntVarP(&importOpts.limit, "limit", "n", 0,
		"Maximum number of toasts to import (0=unlimited)")
	importCmd.Flags().BoolVar(&importOpts.dryRun, "dry-run", false,
		"Print the requests as JSON lines instead of sending them")
}

func runImport(cmd *cobra.Command, args []string) error {
	ctx := commandContext(cmd)

	source := ""
	if len(args) > 0 {
		source = args[0]
	} else if source = input.DetectDaemon(); source == "" {
		return errors.New("no notification daemon detected; specify a source")
	}

	var adapter input.Adapter
	if source == "stdin" {
		adapter = input.NewStdinAdapterWithReader(cmd.InOrStdin())
	} else {
		var err error
		if adapter, err = input.NewAdapter(source); err != nil {
			return err
		}
	}

	requests, err := adapter.Import(ctx)
	if err != nil {
		return fmt.Errorf("failed to import from %s: %w", adapter.Name(), err)
	}
	logger.Debug("imported", "source", adapter.Name(), "count", len(requests))

	// dunst lists its history newest first
	newestFirst := adapter.Name() == "dunst"
	requests, err = prepareImport(requests, importOpts.duration, importOpts.limit, newestFirst)
	if err != nil {
		return err
	}

	if importOpts.dryRun {
		enc := json.NewEncoder(cmd.OutOrStdout())
		for _, req := range requests {
			if err := enc.Encode(req); err != nil {
				return err
			}
		}
		return nil
	}

	shown := 0
	for _, req := range requests {
		if _, err := apiClient.Show(ctx, req); err != nil {
			return fmt.Errorf("showed %d of %d toasts: %w", shown, len(requests), err)
		}
		shown++
	}
	_, err = fmt.Fprintf(cmd.OutOrStdout(), "imported %d toasts from %s\n", shown, adapter.Name())
	return err
}

// prepareImport applies the limit and duration flags and returns the
// requests oldest first, so the newest ends up in the foreground.
func prepareImport(requests []httpapi.ToastRequest, duration string, limit int, newestFirst bool) ([]httpapi.ToastRequest, error) {
	if limit > 0 && len(requests) > limit {
		requests = requests[:limit]
	}

	var d *config.Duration
	if duration != "" {
		d = new(config.Duration)
		if err := d.UnmarshalText([]byte(duration)); err != nil {
			return nil, err
		}
	}

	out := make([]httpapi.ToastRequest, 0, len(requests))
	for i := range requests {
		req := requests[i]
		if newestFirst {
			req = requests[len(requests)-1-i]
		}
		if d != nil {
			req.Duration = d
		}
		out = append(out, req)
	}
	return out, nil
}
