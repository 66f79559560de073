package router

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestScoreEmptyPrompt(t *testing.T) {
	assert.Equal(t, 0, Score(""))
	assert.Equal(t, 0, Score("   \n\t  "))
}

func TestScoreShortQuestionReadsSimple(t *testing.T) {
	assert.Equal(t, 0, Score("What is a goroutine?"))
	assert.Equal(t, 0, Score("how do I print a string?"))
}

func TestScoreCodeFence(t *testing.T) {
	prompt := "Why does this fail:\n```go\nfunc main() {}\n```"
	assert.GreaterOrEqual(t, Score(prompt), codeFencePoints)
}

func TestScoreMultiStepAndVerbs(t *testing.T) {
	prompt := "Refactor the parser in internal/parser/parser.go and then update the tests"
	// refactor is both a multi-step marker and an imperative verb, and the
	// prompt names a concrete file.
	assert.GreaterOrEqual(t, Score(prompt), multiStepPoints+verbPoints+filePathPoints)
}

func TestScoreLengthCapped(t *testing.T) {
	long := strings.Repeat("describe this without any other signal words ", 100)
	score := Score(long)
	assert.LessOrEqual(t, score, maxLengthPoints)
	assert.Greater(t, score, 0)
}

func TestScoreIsStable(t *testing.T) {
	prompt := "Implement a cache with TTL eviction in cache.go, then add tests"
	first := Score(prompt)
	for i := 0; i < 5; i++ {
		assert.Equal(t, first, Score(prompt))
	}
}

func TestScoreNeverNegative(t *testing.T) {
	assert.GreaterOrEqual(t, Score("hi?"), 0)
}
