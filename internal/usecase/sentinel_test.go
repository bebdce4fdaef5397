package usecase

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestExtractSentinel_StripsExactTag(t *testing.T) {
	visible, reason, found := extractSentinel("Noted. [SEND_EMAIL:Collector, budget 200K]")
	require.True(t, found)
	require.Equal(t, "Noted.", visible)
	require.Equal(t, "Collector, budget 200K", reason)
}

func TestExtractSentinel_NoTag(t *testing.T) {
	visible, reason, found := extractSentinel("Happy to help with exhibition dates.")
	require.False(t, found)
	require.Equal(t, "Happy to help with exhibition dates.", visible)
	require.Empty(t, reason)
}

func TestExtractSentinel_TagOnly(t *testing.T) {
	visible, reason, found := extractSentinel("[SEND_EMAIL:viewing request]")
	require.True(t, found)
	require.Empty(t, visible)
	require.Equal(t, "viewing request", reason)
}

func TestExtractSentinel_EmptyReason(t *testing.T) {
	visible, reason, found := extractSentinel("Of course. [SEND_EMAIL:]")
	require.True(t, found)
	require.Equal(t, "Of course.", visible)
	require.Empty(t, reason)
}

func TestExtractSentinel_OnlyFirstTagExtracted(t *testing.T) {
	visible, reason, found := extractSentinel("Yes. [SEND_EMAIL:first] [SEND_EMAIL:second]")
	require.True(t, found)
	require.Equal(t, "Yes.  [SEND_EMAIL:second]", visible)
	require.Equal(t, "first", reason)
}
