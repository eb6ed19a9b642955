package main

import (
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/jmylchreest/toastd/internal/config"
	"github.com/jmylchreest/toastd/internal/httpapi"
)

// toastFlags are the flags shared by send and update.
type toastFlags struct {
	app       string
	summary   string
	body      string
	id        string
	placement string
	icon      string
	typ       string
	urgency   string
	duration  string
	hints     map[string]string
}

var (
	sendOpts   toastFlags
	updateOpts toastFlags
)

var sendCmd = &cobra.Command{
	Use:   "send [content|-]",
	Short: "Show a new toast",
	Long: `Show a new toast and print its id.

The content is either a positional argument, "-" to read it from stdin,
or a structured message built from --app, --summary and --body.

Examples:
  # Plain text toast
  toast send "Build finished"

  # Structured message that expires after five seconds
  toast send --app make --summary "Build finished" --body "0 errors" --duration 5s

  # Replace an existing toast by id
  toast send --id build "Build running..."

  # Content from a pipe
  make 2>&1 | tail -n1 | toast send -`,
	Args: cobra.MaximumNArgs(1),
	RunE: runSend,
}

var updateCmd = &cobra.Command{
	Use:   "update <id> [content|-]",
	Short: "Update an existing toast",
	Long: `Update the content or options of an existing toast.

Only the flags given are changed; everything else keeps its value.

Examples:
  toast update 01HZ3X2J5YFMK2V3P4Q6R7S8T9 "Build 80%"
  toast update build --type success --summary "Build finished"`,
	Args: cobra.RangeArgs(1, 2),
	RunE: runUpdate,
}

func init() {
	rootCmd.AddCommand(sendCmd)
	rootCmd.AddCommand(updateCmd)

	addToastFlags(sendCmd, &sendOpts)
	sendCmd.Flags().StringVar(&sendOpts.id, "id", "",
		"Toast id; an existing toast with this id is replaced")
	addToastFlags(updateCmd, &updateOpts)
}

func addToastFlags(cmd *cobra.Command, f *toastFlags) {
	cmd.Flags().StringVarP(&f.app, "app", "a", "", "Application name")
	cmd.Flags().StringVarP(&f.summary, "summary", "s", "", "Message summary")
	cmd.Flags().StringVarP(&f.body, "body", "b", "", "Message body")
	cmd.Flags().StringVarP(&f.placement, "placement", "p", "", "Placement (top, bottom, center)")
	cmd.Flags().StringVarP(&f.icon, "icon", "i", "", "Icon name or path")
	cmd.Flags().StringVarP(&f.typ, "type", "t", "", "Toast type (normal, success, warning, danger, multiple, closeable)")
	cmd.Flags().StringVarP(&f.urgency, "urgency", "u", "", "Urgency (low, normal, critical)")
	cmd.Flags().StringVarP(&f.duration, "duration", "d", "", "Expire after this duration (e.g. 5s, 1m, 1500 for ms)")
	cmd.Flags().StringToStringVar(&f.hints, "hint", nil, "Extra hints as key=value (repeatable)")
}

func runSend(cmd *cobra.Command, args []string) error {
	content, err := readContent(args, 0, cmd.InOrStdin())
	if err != nil {
		return err
	}
	req, err := sendOpts.request(content)
	if err != nil {
		return err
	}
	if req.ContentValue() == nil {
		return errors.New("nothing to send: give content or --summary/--body")
	}

	id, err := apiClient.Show(commandContext(cmd), req)
	if err != nil {
		return err
	}
	logger.Debug("toast shown", "id", id)
	_, err = fmt.Fprintln(cmd.OutOrStdout(), id)
	return err
}

func runUpdate(cmd *cobra.Command, args []string) error {
	content, err := readContent(args, 1, cmd.InOrStdin())
	if err != nil {
		return err
	}
	req, err := updateOpts.request(content)
	if err != nil {
		return err
	}
	return apiClient.Update(commandContext(cmd), args[0], req)
}

// readContent returns the positional argument at i, reading stdin for "-".
func readContent(args []string, i int, stdin io.Reader) (string, error) {
	if len(args) <= i {
		return "", nil
	}
	if args[i] != "-" {
		return args[i], nil
	}
	data, err := io.ReadAll(io.LimitReader(stdin, 1<<20))
	if err != nil {
		return "", fmt.Errorf("failed to read stdin: %w", err)
	}
	return strings.TrimRight(string(data), "\n"), nil
}

// request builds the API request. Empty flags are left out so an update
// keeps the toast's current values.
func (f toastFlags) request(content string) (httpapi.ToastRequest, error) {
	req := httpapi.ToastRequest{
		AppName:   f.app,
		Summary:   f.summary,
		Body:      f.body,
		ID:        f.id,
		Placement: optional(f.placement),
		Icon:      optional(f.icon),
		Type:      optional(f.typ),
		Urgency:   optional(f.urgency),
	}
	if content != "" {
		req.Content = content
	}
	if f.duration != "" {
		var d config.Duration
		if err := d.UnmarshalText([]byte(f.duration)); err != nil {
			return req, err
		}
		req.Duration = &d
	}
	if len(f.hints) > 0 {
		req.Hints = make(map[string]any, len(f.hints))
		for k, v := range f.hints {
			req.Hints[k] = v
		}
	}
	return req, nil
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
