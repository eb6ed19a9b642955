package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/adapter/output"
	"github.com/jmylchreest/toastd/internal/stack"
)

var watchOpts struct {
	format string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Stream stack changes",
	Long: `Print the stack every time it changes, until interrupted or the
daemon goes away. The current stack is printed first.

Examples:
  # Follow the stack as JSON documents
  toast watch --format json

  # Keep a status bar fed
  toast watch --format ids | while read -r id; do ...; done`,
	Args: cobra.NoArgs,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchOpts.format, "format", "f", "",
		"Output format (plain, json, yaml, ids, dmenu; default from config)")
}

func runWatch(cmd *cobra.Command, args []string) error {
	formatter, err := createFormatter(watchOpts.format)
	if err != nil {
		return err
	}

	w := cmd.OutOrStdout()
	var writeErr error
	err = apiClient.Watch(commandContext(cmd), func(s stack.Snapshot) {
		if writeErr != nil {
			return
		}
		if err := formatter.Format(w, s); err != nil {
			writeErr = err
			return
		}
		// Blank line between frames for line-oriented formats
		if f := resolveFormat(watchOpts.format); f != output.FormatJSON && f != output.FormatYAML {
			_, writeErr = fmt.Fprintln(w)
		}
	})
	if err != nil {
		return err
	}
	return writeErr
}
