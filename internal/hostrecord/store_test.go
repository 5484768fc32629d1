package hostrecord

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectInMemoryAndMigrate(t *testing.T) {
	db, err := Connect(":memory:", false)
	require.NoError(t, err)
	assert.True(t, db.Migrator().HasTable(&RealmSession{}))
	assert.True(t, db.Migrator().HasTable(&ScriptRun{}))
	assert.True(t, db.Migrator().HasTable(&JobRecord{}))
}

func TestConnectRejectsUnreachableLibsqlURL(t *testing.T) {
	_, err := Connect("libsql://127.0.0.1:19999", false)
	require.Error(t, err)
}

func TestStoreSessionAndScriptRunLifecycle(t *testing.T) {
	s, err := Open(":memory:", false)
	require.NoError(t, err)

	sessionID, err := s.BeginSession(nil)
	require.NoError(t, err)
	assert.NotEmpty(t, sessionID)

	start := time.Now()
	_, err = s.RecordScriptRun(ScriptRunInput{
		SessionID:  sessionID,
		Kind:       "script",
		Source:     "1 + 1",
		Success:    true,
		StartedAt:  start,
		FinishedAt: start,
	})
	require.NoError(t, err)

	require.NoError(t, s.EndSession(sessionID))

	session, err := s.Session(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.ScriptsRun)
	assert.NotNil(t, session.EndedAt)

	runs, err := s.ScriptRuns(sessionID)
	require.NoError(t, err)
	require.Len(t, runs, 1)
	assert.Equal(t, "script", runs[0].Kind)
}

func TestStoreRecordJobBumpsCounter(t *testing.T) {
	s, err := Open(":memory:", false)
	require.NoError(t, err)

	sessionID, err := s.BeginSession(nil)
	require.NoError(t, err)

	_, err = s.RecordJob(sessionID, "", "sync", true, "")
	require.NoError(t, err)

	session, err := s.Session(sessionID)
	require.NoError(t, err)
	assert.Equal(t, 1, session.JobsRun)
}
