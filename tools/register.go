package tools

import (
	"time"

	"github.com/ajmitchell/switchboard/chatloop"
)

// Namespace prefixes every builtin tool name so host integrations can
// distinguish this tool set from tools contributed elsewhere.
const Namespace = "swb_"

// Builtin tool names.
const (
	NameReadFile      = Namespace + "readFile"
	NameWriteFile     = Namespace + "writeFile"
	NameEditFile      = Namespace + "editFile"
	NameListDir       = Namespace + "listDir"
	NameRunCommand    = Namespace + "runCommand"
	NameSearchText    = Namespace + "searchText"
	NameFindFiles     = Namespace + "findFiles"
	NameWorkspaceInfo = Namespace + "workspaceInfo"
)

// Options configures the builtin tool set.
type Options struct {
	// DefaultCommandTimeout bounds swb_runCommand when the model does not
	// ask for a timeout.
	DefaultCommandTimeout time.Duration
	// MaxCommandTimeout caps any model-requested timeout.
	MaxCommandTimeout time.Duration
	// CharLimits overrides per-tool output character limits.
	CharLimits map[string]int
}

// DefaultOptions returns the standard tool options.
func DefaultOptions() Options {
	return Options{
		DefaultCommandTimeout: 10 * time.Second,
		MaxCommandTimeout:     10 * time.Minute,
	}
}

// RegisterAll registers the full builtin tool set on a registry.
func RegisterAll(reg *chatloop.Registry, ws Workspace, opts Options) {
	if opts.DefaultCommandTimeout <= 0 {
		opts.DefaultCommandTimeout = 10 * time.Second
	}
	if opts.MaxCommandTimeout <= 0 {
		opts.MaxCommandTimeout = 10 * time.Minute
	}

	registerReadFile(reg, ws, opts)
	registerWriteFile(reg, ws, opts)
	registerEditFile(reg, ws, opts)
	registerListDir(reg, ws)
	registerRunCommand(reg, ws, opts)
	registerSearchText(reg, ws, opts)
	registerFindFiles(reg, ws, opts)
	registerWorkspaceInfo(reg, ws)
}
