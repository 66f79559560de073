package tools

import (
	"fmt"
	"strings"
)

// TruncationMode specifies how oversized output is trimmed.
type TruncationMode string

const (
	TruncateHeadTail TruncationMode = "head_tail"
	TruncateTail     TruncationMode = "tail"
)

// Default character limits per tool. Truncation is each tool's own
// responsibility; the loop and gate pass content through untouched.
var defaultCharLimits = map[string]int{
	NameReadFile:   50000,
	NameRunCommand: 30000,
	NameSearchText: 20000,
	NameFindFiles:  20000,
	NameEditFile:   10000,
	NameWriteFile:  1000,
}

var defaultTruncationModes = map[string]TruncationMode{
	NameReadFile:   TruncateHeadTail,
	NameRunCommand: TruncateHeadTail,
	NameSearchText: TruncateTail,
	NameFindFiles:  TruncateTail,
	NameEditFile:   TruncateTail,
	NameWriteFile:  TruncateTail,
}

var defaultLineLimits = map[string]int{
	NameRunCommand: 256,
	NameSearchText: 200,
	NameFindFiles:  500,
}

const fallbackCharLimit = 30000

// truncateChars applies character-based truncation.
func truncateChars(output string, maxChars int, mode TruncationMode) string {
	if len(output) <= maxChars {
		return output
	}
	removed := len(output) - maxChars

	switch mode {
	case TruncateTail:
		return fmt.Sprintf("[Output truncated: first %d characters removed. Re-run with narrower parameters for the full output.]\n\n", removed) +
			output[len(output)-maxChars:]
	default: // head_tail
		half := maxChars / 2
		return output[:half] +
			fmt.Sprintf("\n\n[Output truncated: %d characters removed from the middle. Re-run with narrower parameters for the full output.]\n\n", removed) +
			output[len(output)-half:]
	}
}

// truncateLines applies line-based truncation with a head/tail split.
func truncateLines(output string, maxLines int) string {
	lines := strings.Split(output, "\n")
	if len(lines) <= maxLines {
		return output
	}
	head := maxLines / 2
	tail := maxLines - head
	omitted := len(lines) - head - tail
	return strings.Join(lines[:head], "\n") +
		fmt.Sprintf("\n[... %d lines omitted ...]\n", omitted) +
		strings.Join(lines[len(lines)-tail:], "\n")
}

// truncateOutput applies the per-tool truncation pipeline: characters
// first, then lines.
func truncateOutput(output, toolName string, charLimits map[string]int) string {
	maxChars, ok := charLimits[toolName]
	if !ok {
		maxChars, ok = defaultCharLimits[toolName]
		if !ok {
			maxChars = fallbackCharLimit
		}
	}
	mode, ok := defaultTruncationModes[toolName]
	if !ok {
		mode = TruncateHeadTail
	}
	result := truncateChars(output, maxChars, mode)

	if maxLines, ok := defaultLineLimits[toolName]; ok {
		result = truncateLines(result, maxLines)
	}
	return result
}
