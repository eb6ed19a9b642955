package main

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"regexp"
	"strings"

	"github.com/spf13/cobra"
)

var hideOpts struct {
	stdin   bool // Read ids from stdin
	destroy bool // Remove instead of closing
}

var hideCmd = &cobra.Command{
	Use:   "hide [id...]",
	Short: "Close toasts",
	Long: `Close toasts by id. Closed toasts stay in the stack history, dimmed,
until they are destroyed or pushed out.

IDs can be provided as positional arguments or via stdin (--stdin).
When using --stdin, each line is scanned for a toast id.

Examples:
  # Close a specific toast
  toast hide 01HZ3X2J5YFMK2V3P4Q6R7S8T9

  # Close every toast from an app
  toast get --filter "app=discord" --format ids | toast hide --stdin

  # Remove toasts entirely
  toast hide --destroy ID1 ID2`,
	RunE: runHide,
}

var destroyCmd = &cobra.Command{
	Use:   "destroy [id...]",
	Short: "Remove toasts from the stack",
	Long: `Remove toasts from the stack, foreground and history alike.

Accepts ids the same way as hide.`,
	RunE: func(cmd *cobra.Command, args []string) error {
		hideOpts.destroy = true
		return runHide(cmd, args)
	},
}

var clearCmd = &cobra.Command{
	Use:     "clear",
	Aliases: []string{"hide-all"},
	Short:   "Close every toast",
	Long: `Close every open toast. Depending on the daemon's hide_all setting
closed toasts either stay in history or are removed.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return apiClient.HideAll(commandContext(cmd))
	},
}

func init() {
	rootCmd.AddCommand(hideCmd)
	rootCmd.AddCommand(destroyCmd)
	rootCmd.AddCommand(clearCmd)

	for _, cmd := range []*cobra.Command{hideCmd, destroyCmd} {
		cmd.Flags().BoolVar(&hideOpts.stdin, "stdin", false,
			"Read ids from stdin (one per line, or scans for a ULID)")
	}
	hideCmd.Flags().BoolVar(&hideOpts.destroy, "destroy", false,
		"Remove the toasts instead of closing them")
}

func runHide(cmd *cobra.Command, args []string) error {
	ids := args
	if hideOpts.stdin {
		read, err := readIDs(cmd.InOrStdin())
		if err != nil {
			return err
		}
		ids = append(ids, read...)
	}
	ids = uniqueStrings(ids)
	if len(ids) == 0 {
		return errors.New("no toast ids given")
	}

	ctx := commandContext(cmd)
	action := apiClient.Hide
	verb := "hide"
	if hideOpts.destroy {
		action = apiClient.Destroy
		verb = "destroy"
	}

	var errs []error
	for _, id := range ids {
		if err := action(ctx, id); err != nil {
			if errors.Is(err, context.Canceled) {
				return err
			}
			errs = append(errs, fmt.Errorf("%s %s: %w", verb, id, err))
			continue
		}
		logger.Debug("toast "+verb, "id", id)
	}
	return errors.Join(errs...)
}

// ulidPattern matches ids generated by the daemon.
var ulidPattern = regexp.MustCompile(`\b[0-9A-HJ-KM-NP-TV-Z]{26}\b`)

// readIDs reads one id per line. Lines containing a ULID yield it; other
// lines are used whole when they are a single word.
func readIDs(r io.Reader) ([]string, error) {
	var ids []string
	scanner := bufio.NewScanner(r)
	for scanner.Scan() {
		if id := extractID(scanner.Text()); id != "" {
			ids = append(ids, id)
		}
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("failed to read stdin: %w", err)
	}
	return ids, nil
}

func extractID(line string) string {
	line = strings.TrimSpace(line)
	if line == "" {
		return ""
	}
	if match := ulidPattern.FindString(line); match != "" {
		return match
	}
	if strings.ContainsAny(line, " \t|") {
		return ""
	}
	return line
}

// uniqueStrings removes duplicates, keeping first occurrences.
func uniqueStrings(input []string) []string {
	seen := make(map[string]bool, len(input))
	result := make([]string, 0, len(input))
	for _, s := range input {
		if !seen[s] {
			seen[s] = true
			result = append(result, s)
		}
	}
	return result
}
