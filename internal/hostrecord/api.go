package hostrecord

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// Store is the host-facing handle onto a connected database: one gorm.DB
// plus the per-entity helpers a CLI/inspector actually calls, grounded on
// the teacher's BeginRun/AppendOp style (one function per row kind, uuid
// generated here rather than left to the caller).
type Store struct {
	db *gorm.DB
}

// Open connects to dsn and returns a ready-to-use Store.
func Open(dsn string, debug bool) (*Store, error) {
	db, err := Connect(dsn, debug)
	if err != nil {
		return nil, err
	}
	return &Store{db: db}, nil
}

// DB exposes the underlying *gorm.DB for callers needing a raw query
// (cmd/ecmacore's inspect subcommand lists/filters rows directly).
func (s *Store) DB() *gorm.DB { return s.db }

// BeginSession inserts a new RealmSession row and returns its ID.
func (s *Store) BeginSession(clientInfo datatypes.JSON) (string, error) {
	session := RealmSession{ID: uuid.NewString(), ClientInfo: clientInfo}
	if err := s.db.Create(&session).Error; err != nil {
		return "", err
	}
	return session.ID, nil
}

// EndSession stamps sessionID's EndedAt.
func (s *Store) EndSession(sessionID string) error {
	now := time.Now()
	return s.db.Model(&RealmSession{}).Where("id = ?", sessionID).
		Update("ended_at", &now).Error
}

// ScriptRunInput is what the caller already knows about a completed Eval/
// EvalModule call; RecordScriptRun fills in the ID and persists it.
type ScriptRunInput struct {
	SessionID    string
	Kind         string
	Specifier    string
	Source       string
	ResultJSON   datatypes.JSON
	Success      bool
	ErrorCode    string
	ErrorMessage string
	StartedAt    time.Time
	FinishedAt   time.Time
}

// RecordScriptRun persists one evaluation and bumps the owning session's
// ScriptsRun counter.
func (s *Store) RecordScriptRun(in ScriptRunInput) (string, error) {
	run := ScriptRun{
		ID:           uuid.NewString(),
		SessionID:    in.SessionID,
		Kind:         in.Kind,
		Specifier:    in.Specifier,
		Source:       in.Source,
		ResultJSON:   in.ResultJSON,
		Success:      in.Success,
		ErrorCode:    in.ErrorCode,
		ErrorMessage: in.ErrorMessage,
		StartedAt:    in.StartedAt,
		FinishedAt:   in.FinishedAt,
		DurationMS:   in.FinishedAt.Sub(in.StartedAt).Milliseconds(),
	}
	return run.ID, s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&run).Error; err != nil {
			return err
		}
		return tx.Model(&RealmSession{}).Where("id = ?", in.SessionID).
			UpdateColumn("scripts_run", gorm.Expr("scripts_run + 1")).Error
	})
}

// RecordJob persists one tracked job-queue drain outcome and bumps the
// owning session's JobsRun counter.
func (s *Store) RecordJob(sessionID, runID, kind string, success bool, errMsg string) (string, error) {
	now := time.Now()
	job := JobRecord{
		ID:           uuid.NewString(),
		SessionID:    sessionID,
		RunID:        runID,
		Kind:         kind,
		Success:      success,
		ErrorMessage: errMsg,
		RanAt:        &now,
	}
	return job.ID, s.db.Transaction(func(tx *gorm.DB) error {
		if err := tx.Create(&job).Error; err != nil {
			return err
		}
		return tx.Model(&RealmSession{}).Where("id = ?", sessionID).
			UpdateColumn("jobs_run", gorm.Expr("jobs_run + 1")).Error
	})
}

// ScriptRuns returns every recorded evaluation for sessionID, most
// recent first — the read path host/inspect.go's diff view is built on.
func (s *Store) ScriptRuns(sessionID string) ([]ScriptRun, error) {
	var runs []ScriptRun
	err := s.db.Where("session_id = ?", sessionID).Order("started_at desc").Find(&runs).Error
	return runs, err
}

// Session looks up one RealmSession by ID.
func (s *Store) Session(sessionID string) (*RealmSession, error) {
	var session RealmSession
	if err := s.db.First(&session, "id = ?", sessionID).Error; err != nil {
		return nil, err
	}
	return &session, nil
}
