package tools

import (
	"bytes"
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"runtime"
	"strings"
	"syscall"
	"time"
)

// ExecResult holds the result of a command execution.
type ExecResult struct {
	Stdout     string `json:"stdout"`
	Stderr     string `json:"stderr"`
	ExitCode   int    `json:"exit_code"`
	TimedOut   bool   `json:"timed_out"`
	DurationMs int64  `json:"duration_ms"`
}

// Output returns combined stdout and stderr.
func (r ExecResult) Output() string {
	if r.Stderr == "" {
		return r.Stdout
	}
	if r.Stdout == "" {
		return r.Stderr
	}
	return r.Stdout + "\n" + r.Stderr
}

// DirEntry represents a directory listing entry.
type DirEntry struct {
	Name  string `json:"name"`
	IsDir bool   `json:"is_dir"`
	Size  int64  `json:"size,omitempty"`
}

// SearchOptions configures text search.
type SearchOptions struct {
	GlobFilter      string `json:"glob_filter,omitempty"`
	CaseInsensitive bool   `json:"case_insensitive,omitempty"`
	MaxResults      int    `json:"max_results,omitempty"`
}

// Workspace abstracts where tools operate: a project directory plus the
// primitives the builtin tools need. Concurrent use is permitted; any
// consistency of concurrent external mutation is the filesystem's problem,
// not the tool layer's.
type Workspace interface {
	// ReadFile returns line-numbered content, windowed by a 1-based
	// offset and a line limit (0 means no limit).
	ReadFile(path string, offset, limit int) (string, error)
	// ReadRaw returns file content exactly as stored.
	ReadRaw(path string) (string, error)
	WriteFile(path string, content string) error
	FileExists(path string) bool
	ListDir(path string) ([]DirEntry, error)

	// Exec runs a shell command with a wall-clock timeout. A timed-out
	// command is killed at the process-group level and reported via
	// ExecResult.TimedOut rather than an error.
	Exec(ctx context.Context, command string, timeout time.Duration, workingDir string) (*ExecResult, error)

	SearchText(ctx context.Context, pattern string, path string, opts SearchOptions) (string, error)
	FindFiles(pattern string, path string) ([]string, error)

	Root() string
	Platform() string
}

// sensitiveEnvSuffixes are case-insensitive suffixes for environment
// variables excluded from spawned commands.
var sensitiveEnvSuffixes = []string{
	"_API_KEY",
	"_SECRET",
	"_TOKEN",
	"_PASSWORD",
	"_CREDENTIAL",
}

// safeEnvVars are always included regardless of filtering.
var safeEnvVars = map[string]bool{
	"PATH": true, "HOME": true, "USER": true, "SHELL": true,
	"LANG": true, "TERM": true, "TMPDIR": true,
	"GOPATH": true, "GOROOT": true,
	"XDG_CONFIG_HOME": true, "XDG_DATA_HOME": true, "XDG_CACHE_HOME": true,
}

func isSensitiveEnvVar(name string) bool {
	upper := strings.ToUpper(name)
	for _, suffix := range sensitiveEnvSuffixes {
		if strings.HasSuffix(upper, suffix) {
			return true
		}
	}
	return false
}

func filterEnvironment() []string {
	var filtered []string
	for _, env := range os.Environ() {
		parts := strings.SplitN(env, "=", 2)
		if len(parts) != 2 {
			continue
		}
		if safeEnvVars[parts[0]] || !isSensitiveEnvVar(parts[0]) {
			filtered = append(filtered, env)
		}
	}
	return filtered
}

// LocalWorkspace runs tools on the local machine rooted at one directory.
type LocalWorkspace struct {
	root     string
	platform string
}

// NewLocalWorkspace creates a workspace rooted at dir. An empty dir means
// the current working directory.
func NewLocalWorkspace(dir string) *LocalWorkspace {
	if dir == "" {
		dir, _ = os.Getwd()
	}
	return &LocalWorkspace{root: dir, platform: runtime.GOOS + "/" + runtime.GOARCH}
}

func (w *LocalWorkspace) Root() string     { return w.root }
func (w *LocalWorkspace) Platform() string { return w.platform }

func (w *LocalWorkspace) resolve(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(w.root, path)
}

func (w *LocalWorkspace) ReadFile(path string, offset, limit int) (string, error) {
	raw, err := w.ReadRaw(path)
	if err != nil {
		return "", err
	}
	lines := strings.Split(raw, "\n")

	start := 0
	if offset > 0 {
		start = offset - 1
	}
	if start >= len(lines) {
		return "", nil
	}
	end := len(lines)
	if limit > 0 && start+limit < end {
		end = start + limit
	}

	var sb strings.Builder
	for i := start; i < end; i++ {
		fmt.Fprintf(&sb, "%d | %s\n", i+1, lines[i])
	}
	return sb.String(), nil
}

func (w *LocalWorkspace) ReadRaw(path string) (string, error) {
	data, err := os.ReadFile(w.resolve(path))
	if err != nil {
		return "", fmt.Errorf("read %s: %w", path, err)
	}
	return string(data), nil
}

func (w *LocalWorkspace) WriteFile(path string, content string) error {
	resolved := w.resolve(path)
	if err := os.MkdirAll(filepath.Dir(resolved), 0755); err != nil {
		return fmt.Errorf("write %s: create directory: %w", path, err)
	}
	return os.WriteFile(resolved, []byte(content), 0644)
}

func (w *LocalWorkspace) FileExists(path string) bool {
	_, err := os.Stat(w.resolve(path))
	return err == nil
}

func (w *LocalWorkspace) ListDir(path string) ([]DirEntry, error) {
	entries, err := os.ReadDir(w.resolve(path))
	if err != nil {
		return nil, fmt.Errorf("list %s: %w", path, err)
	}
	var result []DirEntry
	for _, entry := range entries {
		de := DirEntry{Name: entry.Name(), IsDir: entry.IsDir()}
		if info, err := entry.Info(); err == nil {
			de.Size = info.Size()
		}
		result = append(result, de)
	}
	return result, nil
}

func (w *LocalWorkspace) Exec(ctx context.Context, command string, timeout time.Duration, workingDir string) (*ExecResult, error) {
	if workingDir == "" {
		workingDir = w.root
	} else {
		workingDir = w.resolve(workingDir)
	}

	if timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, timeout)
		defer cancel()
	}

	shell, shellArg := "/bin/bash", "-c"
	if runtime.GOOS == "windows" {
		shell, shellArg = "cmd.exe", "/c"
	}

	cmd := exec.CommandContext(ctx, shell, shellArg, command)
	cmd.Dir = workingDir
	cmd.Env = filterEnvironment()
	// Own process group so a timeout kills the whole tree.
	cmd.SysProcAttr = &syscall.SysProcAttr{Setpgid: true}

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	err := cmd.Run()

	result := &ExecResult{
		Stdout:     stdout.String(),
		Stderr:     stderr.String(),
		DurationMs: time.Since(start).Milliseconds(),
	}

	if err != nil {
		if ctx.Err() == context.DeadlineExceeded {
			result.TimedOut = true
			result.ExitCode = -1
			if cmd.Process != nil {
				_ = syscall.Kill(-cmd.Process.Pid, syscall.SIGKILL)
			}
		} else if exitErr, ok := err.(*exec.ExitError); ok {
			result.ExitCode = exitErr.ExitCode()
		} else {
			return nil, fmt.Errorf("exec: %w", err)
		}
	}

	return result, nil
}

func (w *LocalWorkspace) SearchText(ctx context.Context, pattern string, path string, opts SearchOptions) (string, error) {
	if path == "" {
		path = w.root
	} else {
		path = w.resolve(path)
	}

	rgPath, err := exec.LookPath("rg")
	if err != nil {
		return w.searchFallback(ctx, pattern, path, opts)
	}

	args := []string{pattern, path, "--line-number", "--no-heading"}
	if opts.CaseInsensitive {
		args = append(args, "-i")
	}
	if opts.GlobFilter != "" {
		args = append(args, "--glob", opts.GlobFilter)
	}
	if opts.MaxResults > 0 {
		args = append(args, "--max-count", fmt.Sprintf("%d", opts.MaxResults))
	}

	cmd := exec.CommandContext(ctx, rgPath, args...)
	cmd.Dir = w.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run() // rg exits 1 on no matches
	return stdout.String(), nil
}

func (w *LocalWorkspace) searchFallback(ctx context.Context, pattern string, path string, opts SearchOptions) (string, error) {
	args := []string{"-rn", pattern, path}
	if opts.CaseInsensitive {
		args = append([]string{"-i"}, args...)
	}
	cmd := exec.CommandContext(ctx, "grep", args...)
	cmd.Dir = w.root
	var stdout bytes.Buffer
	cmd.Stdout = &stdout
	_ = cmd.Run()
	return stdout.String(), nil
}

func (w *LocalWorkspace) FindFiles(pattern string, path string) ([]string, error) {
	if path == "" {
		path = w.root
	} else {
		path = w.resolve(path)
	}

	matches, err := filepath.Glob(filepath.Join(path, pattern))
	if err != nil {
		return nil, fmt.Errorf("find files: %w", err)
	}

	result := make([]string, len(matches))
	for i, m := range matches {
		if rel, err := filepath.Rel(w.root, m); err == nil {
			result[i] = rel
		} else {
			result[i] = m
		}
	}
	return result, nil
}
