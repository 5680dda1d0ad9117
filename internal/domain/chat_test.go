package domain

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestNewPendingMessage(t *testing.T) {
	m := NewPendingMessage("What is X?")
	require.Equal(t, "What is X?", m.Question)
	require.Equal(t, PendingAnswer, m.Answer)
	require.True(t, m.Pending())
}

func TestResolved(t *testing.T) {
	m := NewPendingMessage("Q").Resolved("the answer")
	require.Equal(t, "the answer", m.Answer)
	require.Equal(t, StatusResolved, m.Status)
	require.False(t, m.Pending())
	require.Equal(t, "Q", m.Question)
}

func TestFailed_PreservesQuestion(t *testing.T) {
	m := NewPendingMessage("Q").Failed("❌ Error: model timeout")
	require.Equal(t, "❌ Error: model timeout", m.Answer)
	require.Equal(t, StatusFailed, m.Status)
	require.Equal(t, "Q", m.Question)
}
