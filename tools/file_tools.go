package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajmitchell/switchboard/chatloop"
)

type readFileArgs struct {
	Path   string `json:"path" jsonschema:"description=Path to the file, relative to the workspace root or absolute."`
	Offset int    `json:"offset,omitempty" jsonschema:"description=1-based line number to start reading from."`
	Limit  int    `json:"limit,omitempty" jsonschema:"description=Maximum number of lines to read. Default: 2000."`
}

func registerReadFile(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameReadFile,
		Description: "Read a file from the workspace. Returns line-numbered content.",
		Schema:      schemaFor(&readFileArgs{}),
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args readFileArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Path == "" {
				return chatloop.Outcome{}, fmt.Errorf("path is required")
			}
			limit := args.Limit
			if limit == 0 {
				limit = 2000
			}
			content, err := ws.ReadFile(args.Path, args.Offset, limit)
			if err != nil {
				return chatloop.Outcome{}, err
			}
			return chatloop.SuccessText(truncateOutput(content, NameReadFile, opts.CharLimits)), nil
		},
	})
}

type writeFileArgs struct {
	Path    string `json:"path" jsonschema:"description=Path to write, relative to the workspace root or absolute."`
	Content string `json:"content" jsonschema:"description=The full file content to write."`
}

func registerWriteFile(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameWriteFile,
		Description: "Write content to a file. Creates the file and parent directories if needed. Requires approval.",
		Schema:      schemaFor(&writeFileArgs{}),
		Confirm: func(input json.RawMessage) (*chatloop.Confirmation, error) {
			var args writeFileArgs
			if err := decodeArgs(input, &args); err != nil {
				return nil, err
			}
			current := ""
			if ws.FileExists(args.Path) {
				current, _ = ws.ReadRaw(args.Path)
			}
			return fileChangeConfirmation("Write "+args.Path, args.Path, current, args.Content)
		},
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args writeFileArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Path == "" {
				return chatloop.Outcome{}, fmt.Errorf("path is required")
			}
			if err := ws.WriteFile(args.Path, args.Content); err != nil {
				return chatloop.Outcome{}, err
			}
			msg := fmt.Sprintf("Wrote %d bytes to %s", len(args.Content), args.Path)
			return chatloop.SuccessText(truncateOutput(msg, NameWriteFile, opts.CharLimits)), nil
		},
	})
}

type editFileArgs struct {
	Path       string `json:"path" jsonschema:"description=Path to the file to edit."`
	OldString  string `json:"old_string" jsonschema:"description=Exact text to find in the file."`
	NewString  string `json:"new_string" jsonschema:"description=Replacement text."`
	ReplaceAll bool   `json:"replace_all,omitempty" jsonschema:"description=Replace all occurrences. Default: false."`
}

// applyEdit computes the edited content, enforcing old_string uniqueness
// unless replace_all is set.
func applyEdit(content string, args editFileArgs) (string, int, error) {
	count := strings.Count(content, args.OldString)
	if count == 0 {
		return "", 0, fmt.Errorf("old_string not found in %s", args.Path)
	}
	if count > 1 && !args.ReplaceAll {
		return "", 0, fmt.Errorf("old_string found %d times in %s; provide more context or set replace_all", count, args.Path)
	}
	if args.ReplaceAll {
		return strings.ReplaceAll(content, args.OldString, args.NewString), count, nil
	}
	return strings.Replace(content, args.OldString, args.NewString, 1), 1, nil
}

func registerEditFile(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameEditFile,
		Description: "Replace an exact string occurrence in a file. The old_string must be unique unless replace_all is true. Requires approval.",
		Schema:      schemaFor(&editFileArgs{}),
		Confirm: func(input json.RawMessage) (*chatloop.Confirmation, error) {
			var args editFileArgs
			if err := decodeArgs(input, &args); err != nil {
				return nil, err
			}
			current, err := ws.ReadRaw(args.Path)
			if err != nil {
				return nil, err
			}
			proposed, _, err := applyEdit(current, args)
			if err != nil {
				return nil, err
			}
			return fileChangeConfirmation("Edit "+args.Path, args.Path, current, proposed)
		},
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args editFileArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Path == "" || args.OldString == "" {
				return chatloop.Outcome{}, fmt.Errorf("path and old_string are required")
			}
			current, err := ws.ReadRaw(args.Path)
			if err != nil {
				return chatloop.Outcome{}, err
			}
			edited, replacements, err := applyEdit(current, args)
			if err != nil {
				return chatloop.Outcome{}, err
			}
			if err := ws.WriteFile(args.Path, edited); err != nil {
				return chatloop.Outcome{}, err
			}
			msg := fmt.Sprintf("Replaced %d occurrence(s) in %s", replacements, args.Path)
			return chatloop.SuccessText(truncateOutput(msg, NameEditFile, opts.CharLimits)), nil
		},
	})
}

type listDirArgs struct {
	Path string `json:"path,omitempty" jsonschema:"description=Directory to list. Default: workspace root."`
}

func registerListDir(reg *chatloop.Registry, ws Workspace) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameListDir,
		Description: "List the entries of a directory with sizes.",
		Schema:      schemaFor(&listDirArgs{}),
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args listDirArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			path := args.Path
			if path == "" {
				path = "."
			}
			entries, err := ws.ListDir(path)
			if err != nil {
				return chatloop.Outcome{}, err
			}
			if len(entries) == 0 {
				return chatloop.SuccessText("(empty directory)"), nil
			}
			var sb strings.Builder
			for _, e := range entries {
				if e.IsDir {
					fmt.Fprintf(&sb, "%s/\n", e.Name)
				} else {
					fmt.Fprintf(&sb, "%s (%d bytes)\n", e.Name, e.Size)
				}
			}
			return chatloop.SuccessText(sb.String()), nil
		},
	})
}
