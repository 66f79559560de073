package tools

import (
	"fmt"

	"github.com/pmezard/go-difflib/difflib"

	"github.com/ajmitchell/switchboard/chatloop"
)

// fileChangeConfirmation builds a confirmation whose preview is a unified
// diff between the file's current and proposed content.
func fileChangeConfirmation(title, path, current, proposed string) (*chatloop.Confirmation, error) {
	diff, err := difflib.GetUnifiedDiffString(difflib.UnifiedDiff{
		A:        difflib.SplitLines(current),
		B:        difflib.SplitLines(proposed),
		FromFile: path + " (current)",
		ToFile:   path + " (proposed)",
		Context:  3,
	})
	if err != nil {
		return nil, fmt.Errorf("render diff for %s: %w", path, err)
	}
	if diff == "" {
		diff = "(no changes)"
	}
	return &chatloop.Confirmation{
		Title:   title,
		Message: fmt.Sprintf("Apply the proposed change to %s?", path),
		Preview: diff,
	}, nil
}
