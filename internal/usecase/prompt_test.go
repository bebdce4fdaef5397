package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestBuildInstructions_EmptySnippet(t *testing.T) {
	require.Equal(t, buildConciergePrompt(), buildInstructions(""))
	require.Equal(t, buildConciergePrompt(), buildInstructions("   \n"))
}

func TestBuildInstructions_AppendsSnippet(t *testing.T) {
	got := buildInstructions("Opening reception on Friday.")
	require.Contains(t, got, buildConciergePrompt())
	require.Contains(t, got, "\n\nOpening reception on Friday.")
}

func TestBuildEvaluatorPrompt_Contract(t *testing.T) {
	p := buildEvaluatorPrompt()
	require.Contains(t, p, "QUALIFIED: [short reason]")
	require.Contains(t, p, "NOT_QUALIFIED")
}
