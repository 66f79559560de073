package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/ajmitchell/switchboard/chatloop"
)

type searchTextArgs struct {
	Pattern         string `json:"pattern" jsonschema:"description=Regex pattern to search for."`
	Path            string `json:"path,omitempty" jsonschema:"description=Directory or file to search. Default: workspace root."`
	GlobFilter      string `json:"glob_filter,omitempty" jsonschema:"description=File pattern filter (e.g. *.go)."`
	CaseInsensitive bool   `json:"case_insensitive,omitempty" jsonschema:"description=Case insensitive search. Default: false."`
	MaxResults      int    `json:"max_results,omitempty" jsonschema:"description=Maximum matches per file. Default: 100."`
}

func registerSearchText(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameSearchText,
		Description: "Search file contents with a regex. Returns matching lines with file paths and line numbers.",
		Schema:      schemaFor(&searchTextArgs{}),
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args searchTextArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Pattern == "" {
				return chatloop.Outcome{}, fmt.Errorf("pattern is required")
			}
			maxResults := args.MaxResults
			if maxResults <= 0 {
				maxResults = 100
			}
			out, err := ws.SearchText(ctx, args.Pattern, args.Path, SearchOptions{
				GlobFilter:      args.GlobFilter,
				CaseInsensitive: args.CaseInsensitive,
				MaxResults:      maxResults,
			})
			if err != nil {
				return chatloop.Outcome{}, err
			}
			if out == "" {
				return chatloop.SuccessText("No matches."), nil
			}
			return chatloop.SuccessText(truncateOutput(out, NameSearchText, opts.CharLimits)), nil
		},
	})
}

type findFilesArgs struct {
	Pattern string `json:"pattern" jsonschema:"description=Glob pattern (e.g. *.go)."`
	Path    string `json:"path,omitempty" jsonschema:"description=Base directory. Default: workspace root."`
}

func registerFindFiles(reg *chatloop.Registry, ws Workspace, opts Options) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameFindFiles,
		Description: "Find files matching a glob pattern. Returns workspace-relative paths.",
		Schema:      schemaFor(&findFilesArgs{}),
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			var args findFilesArgs
			if err := decodeArgs(input, &args); err != nil {
				return chatloop.Outcome{}, err
			}
			if args.Pattern == "" {
				return chatloop.Outcome{}, fmt.Errorf("pattern is required")
			}
			matches, err := ws.FindFiles(args.Pattern, args.Path)
			if err != nil {
				return chatloop.Outcome{}, err
			}
			if len(matches) == 0 {
				return chatloop.SuccessText("No files matched the pattern."), nil
			}
			out := strings.Join(matches, "\n")
			return chatloop.SuccessText(truncateOutput(out, NameFindFiles, opts.CharLimits)), nil
		},
	})
}

type workspaceInfoArgs struct{}

func registerWorkspaceInfo(reg *chatloop.Registry, ws Workspace) {
	reg.MustRegister(chatloop.ToolDescriptor{
		Name:        NameWorkspaceInfo,
		Description: "Report the workspace root directory and platform.",
		Schema:      schemaFor(&workspaceInfoArgs{}),
		Invoke: func(ctx context.Context, input json.RawMessage) (chatloop.Outcome, error) {
			info := fmt.Sprintf("root: %s\nplatform: %s\n", ws.Root(), ws.Platform())
			return chatloop.SuccessText(info), nil
		},
	})
}
