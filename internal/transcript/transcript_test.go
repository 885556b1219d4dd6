package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestAppendPreservesOrder(t *testing.T) {
	tr := New()
	tr.AppendUser("alice", "hi")
	tr.AppendAssistant("bot", "hello")
	tr.AppendUser("alice", "bye")

	turns := tr.Turns()
	require.Len(t, turns, 3)
	assert.Equal(t, RoleUser, turns[0].Role)
	assert.Equal(t, RoleAssistant, turns[1].Role)
	assert.Equal(t, "bye", turns[2].Text)
}

func TestEnsureSystemSeedsOnceAndFirst(t *testing.T) {
	tr := New()
	tr.AppendAssistant("bot", "welcome")
	tr.EnsureSystem("system", "you are a support agent")
	tr.EnsureSystem("system", "a different persona")

	turns := tr.Turns()
	require.Len(t, turns, 2)
	assert.Equal(t, RoleSystem, turns[0].Role)
	assert.Equal(t, "you are a support agent", turns[0].Text)
	assert.Equal(t, RoleAssistant, turns[1].Role)
}

func TestRender(t *testing.T) {
	tr := New()
	tr.AppendUser("alice", "my printer is on fire")
	tr.AppendAssistant("bot", "have you tried water")

	assert.Equal(t, "alice: my printer is on fire\nbot: have you tried water", tr.Render())
}

func TestRenderFallsBackToRole(t *testing.T) {
	tr := New()
	tr.AppendUser("", "hello")
	assert.Equal(t, "user: hello", tr.Render())
}

func TestReset(t *testing.T) {
	tr := New()
	tr.AppendUser("alice", "hi")
	tr.Reset()
	assert.Zero(t, tr.Len())
	assert.Equal(t, "", tr.Render())
}
