package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/ajmitchell/switchboard/chatloop"
)

type runCommandArgs struct {
	Command     string `json:"command" jsonschema:"description=The shell command to run."`
	TimeoutMs   int    `json:"timeout_ms,omitempty" jsonschema:"description=Override the default command timeout in milliseconds."`
	WorkingDir  string `json:"working_dir,omitempty" jsonschema:"description=Directory to run in. Default: workspace root."`
	Description string `json:"description,omitempty" jsonschema:"description=Human-readable description of what this command does."`
}

func registerRunCommand(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameRunCommand,
		Description: "Execute a shell command in the workspace. Returns stdout, stderr, and exit code. Requires approval.",
		Schema:      schemaFor(&runCommandArgs{}),
		Confirm: func(input json.RawMessage) (*chatloop.Confirmation, error) {
			var args runCommandArgs
			if err := decodeArgs(input, &args); err != nil {
				return nil, err
			}
			message := "Run this command?"
			if args.Description != "" {
				message = fmt.Sprintf("Run this command? (%s)", args.Description)
			}
			return &chatloop.Confirmation{
				Title:   "Run command",
				Message: message,
				Preview: "$ " + args.Command,
			}, nil
		},
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args runCommandArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Command == "" {
				return chatloop.Outcome{}, fmt.Errorf("command is required")
			}

			timeout := opts.DefaultCommandTimeout
			if args.TimeoutMs > 0 {
				timeout = time.Duration(args.TimeoutMs) * time.Millisecond
			}
			if timeout > opts.MaxCommandTimeout {
				timeout = opts.MaxCommandTimeout
			}

			result, err := ws.Exec(ctx, args.Command, timeout, args.WorkingDir)
			if err != nil {
				return chatloop.Outcome{}, err
			}

			var sb strings.Builder
			sb.WriteString(result.Output())
			if result.TimedOut {
				fmt.Fprintf(&sb, "\n\n[Command timed out after %s. Partial output is shown above. Retry with a larger timeout_ms if needed.]", timeout)
			} else if result.ExitCode != 0 {
				fmt.Fprintf(&sb, "\n\n[Exit code: %d]", result.ExitCode)
			}
			return chatloop.SuccessText(truncateOutput(sb.String(), NameRunCommand, opts.CharLimits)), nil
		},
	})
}
