// Package router decides which model tier serves a prompt. A heuristic
// complexity score is compared against a threshold: prompts at or above it
// route to the premium tier, the rest to the free tier. Model selection
// comes from the modelkit catalog; when the premium tier has no available
// model the router serves a free model and says so explicitly.
package router

import (
	"regexp"
	"strings"
)

// Scoring weights. Each signal marks the prompt as more likely to need a
// stronger model: sheer length, embedded code, multi-step phrasing,
// references to concrete files, and imperative engineering verbs.
const (
	lengthStep       = 200 // one point per this many characters
	maxLengthPoints  = 5
	codeFencePoints  = 3
	multiStepPoints  = 2
	filePathPoints   = 1
	verbPoints       = 1
	questionDiscount = 1
)

var multiStepMarkers = []string{
	"then", "after that", "step by step", "first", "finally",
	"refactor", "migrate", "and also",
}

var imperativeVerbs = []string{
	"implement", "refactor", "debug", "optimize", "fix", "migrate",
	"design", "rewrite", "analyze", "generate",
}

var filePathPattern = regexp.MustCompile(`[\w./-]+\.(go|py|ts|js|rs|java|c|cpp|h|md|json|yaml|yml|toml)\b`)

// Score computes the heuristic complexity score for a prompt. Higher means
// more complex. The score is stable for identical input.
func Score(prompt string) int {
	trimmed := strings.TrimSpace(prompt)
	if trimmed == "" {
		return 0
	}
	lower := strings.ToLower(trimmed)

	score := 0

	points := len(trimmed) / lengthStep
	if points > maxLengthPoints {
		points = maxLengthPoints
	}
	score += points

	if strings.Contains(trimmed, "```") {
		score += codeFencePoints
	}

	for _, marker := range multiStepMarkers {
		if strings.Contains(lower, marker) {
			score += multiStepPoints
			break
		}
	}

	if filePathPattern.MatchString(trimmed) {
		score += filePathPoints
	}

	for _, verb := range imperativeVerbs {
		if strings.Contains(lower, verb) {
			score += verbPoints
			break
		}
	}

	// A short pure question ("what does X mean?") reads as simple.
	if strings.HasSuffix(trimmed, "?") && len(trimmed) < lengthStep {
		score -= questionDiscount
	}

	if score < 0 {
		score = 0
	}
	return score
}
