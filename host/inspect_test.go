package host

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/termfx/ecmacore/internal/hostrecord"
)

func openTestStore(t *testing.T) *hostrecord.Store {
	t.Helper()
	store, err := hostrecord.Open(":memory:", false)
	require.NoError(t, err)
	return store
}

func TestInspectorRunsListsScriptRuns(t *testing.T) {
	store := openTestStore(t)
	sessionID, err := store.BeginSession(nil)
	require.NoError(t, err)

	_, err = store.RecordScriptRun(hostrecord.ScriptRunInput{
		SessionID: sessionID,
		Kind:      "eval",
		Specifier: "<eval>",
		Source:    "1 + 1",
		Success:   true,
	})
	require.NoError(t, err)

	ins := NewInspector(store)
	runs, err := ins.Runs(sessionID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "eval", runs[0].Kind)
	assert.True(t, runs[0].Success)
}

func TestInspectorDiffRendersUnifiedDiff(t *testing.T) {
	store := openTestStore(t)
	sessionID, err := store.BeginSession(nil)
	require.NoError(t, err)

	fromID, err := store.RecordScriptRun(hostrecord.ScriptRunInput{
		SessionID: sessionID, Kind: "run", Specifier: "a.js", Source: "let x = 1;\n", Success: true,
	})
	require.NoError(t, err)
	toID, err := store.RecordScriptRun(hostrecord.ScriptRunInput{
		SessionID: sessionID, Kind: "run", Specifier: "a.js", Source: "let x = 2;\n", Success: true,
	})
	require.NoError(t, err)

	ins := NewInspector(store)
	diff, err := ins.Diff(sessionID, fromID, toID)
	require.NoError(t, err)
	assert.Contains(t, diff, "-let x = 1;")
	assert.Contains(t, diff, "+let x = 2;")
}

func TestInspectorDiffEmptyWhenIdentical(t *testing.T) {
	store := openTestStore(t)
	sessionID, err := store.BeginSession(nil)
	require.NoError(t, err)

	fromID, err := store.RecordScriptRun(hostrecord.ScriptRunInput{
		SessionID: sessionID, Kind: "run", Specifier: "a.js", Source: "same", Success: true,
	})
	require.NoError(t, err)
	toID, err := store.RecordScriptRun(hostrecord.ScriptRunInput{
		SessionID: sessionID, Kind: "run", Specifier: "a.js", Source: "same", Success: true,
	})
	require.NoError(t, err)

	ins := NewInspector(store)
	diff, err := ins.Diff(sessionID, fromID, toID)
	require.NoError(t, err)
	assert.Empty(t, diff)
}

func TestInspectorDiffUnknownRunErrors(t *testing.T) {
	store := openTestStore(t)
	sessionID, err := store.BeginSession(nil)
	require.NoError(t, err)

	ins := NewInspector(store)
	_, err = ins.Diff(sessionID, "missing-from", "missing-to")
	assert.Error(t, err)
}
