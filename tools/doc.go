// Package tools ships the builtin tool set the chat loop orchestrates:
// file reads and writes, exact-string edits, shell commands, text search,
// file finding, and workspace metadata.
//
// Tools run against a Workspace, an abstraction over the directory the
// agent operates in, so the whole set is testable against a temp dir.
// Side-effecting tools (write, edit, run) declare confirmation steps; file
// mutations preview as unified diffs. Input schemas are reflected from
// typed argument structs. Output truncation is applied inside each tool,
// before results reach the loop.
package tools
