package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/model"
)

var visibleOpts struct {
	quiet bool // Suppress output
}

// visibleCmd represents the visible command group.
var visibleCmd = &cobra.Command{
	Use:   "visible",
	Short: "Show or hide the toast stack",
	Long: `Show or hide the whole toast stack without touching its contents.

Use 'toast visible status' to check the current state.
Use 'toast visible on' to show the stack.
Use 'toast visible off' to hide the stack.
Use 'toast visible toggle' to switch between the two.`,
	RunE: visibleStatusRun,
}

var visibleOnCmd = &cobra.Command{
	Use:   "on",
	Short: "Show the toast stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVisible(cmd, true)
	},
}

var visibleOffCmd = &cobra.Command{
	Use:   "off",
	Short: "Hide the toast stack",
	RunE: func(cmd *cobra.Command, args []string) error {
		return setVisible(cmd, false)
	},
}

var visibleToggleCmd = &cobra.Command{
	Use:   "toggle",
	Short: "Toggle stack visibility",
	RunE: func(cmd *cobra.Command, args []string) error {
		snap, err := apiClient.State(commandContext(cmd))
		if err != nil {
			return err
		}
		return setVisible(cmd, !snap.Visible)
	},
}

var visibleStatusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show whether the stack is visible",
	RunE:  visibleStatusRun,
}

// unfoldCmd switches between the folded and unfolded views.
var unfoldCmd = &cobra.Command{
	Use:   "unfold [on|off|toggle]",
	Short: "Unfold or fold the toast stack",
	Long: `Switch the stack between its folded view, which shows the prominent
toast with a count of the rest, and its unfolded view, which lists every toast.

Without an argument the view is toggled.`,
	Args:      cobra.MaximumNArgs(1),
	ValidArgs: []string{"on", "off", "toggle"},
	RunE:      runUnfold,
}

func init() {
	visibleCmd.AddCommand(visibleOnCmd)
	visibleCmd.AddCommand(visibleOffCmd)
	visibleCmd.AddCommand(visibleToggleCmd)
	visibleCmd.AddCommand(visibleStatusCmd)
	rootCmd.AddCommand(visibleCmd)
	rootCmd.AddCommand(unfoldCmd)

	for _, cmd := range []*cobra.Command{visibleCmd, visibleOnCmd, visibleOffCmd, visibleToggleCmd, visibleStatusCmd} {
		cmd.Flags().BoolVarP(&visibleOpts.quiet, "quiet", "q", false,
			"Suppress output")
	}
}

func setVisible(cmd *cobra.Command, visible bool) error {
	if err := apiClient.SetVisible(commandContext(cmd), visible); err != nil {
		return err
	}
	return printVisibility(cmd, visible)
}

func visibleStatusRun(cmd *cobra.Command, args []string) error {
	snap, err := apiClient.State(commandContext(cmd))
	if err != nil {
		return err
	}
	return printVisibility(cmd, snap.Visible)
}

func printVisibility(cmd *cobra.Command, visible bool) error {
	if visibleOpts.quiet {
		return nil
	}
	state := "hidden"
	if visible {
		state = "visible"
	}
	_, err := fmt.Fprintln(cmd.OutOrStdout(), state)
	return err
}

func runUnfold(cmd *cobra.Command, args []string) error {
	var unfolded *bool
	if len(args) > 0 {
		switch args[0] {
		case "on":
			unfolded = model.Ptr(true)
		case "off":
			unfolded = model.Ptr(false)
		case "toggle":
		default:
			return fmt.Errorf("invalid argument %q (use on, off or toggle)", args[0])
		}
	}
	return apiClient.Unfold(commandContext(cmd), unfolded)
}
