// Package hostrecord persists an embedder's session/run history to a
// sqlite (or Turso libsql) database — the core itself persists nothing
// (spec.md §6); this is purely a host-side convenience for a CLI/
// inspector built on top of internal/engine, grounded on the teacher's
// staged-session persistence layer (models/models.go, db/sqlite.go).
package hostrecord

import (
	"time"

	"gorm.io/datatypes"
)

// RealmSession records one internal/engine.Realm's lifetime: when it was
// created, how long it lived, and how many scripts/jobs it ran.
// Mirrors the teacher's Session row, generalized from an MCP session to
// an engine realm.
type RealmSession struct {
	ID        string     `gorm:"primaryKey;type:varchar(36)"`
	StartedAt time.Time  `gorm:"autoCreateTime"`
	EndedAt   *time.Time

	ScriptsRun int `gorm:"default:0"`
	JobsRun    int `gorm:"default:0"`

	// ClientInfo is whatever the embedder wants attached to the session
	// (process name, version, invoking command) — opaque to this package.
	ClientInfo datatypes.JSON `gorm:"type:jsonb"`
}

// ScriptRun records one Eval/EvalModule call: its source, how it was
// classified (script vs module), and its outcome. Mirrors the teacher's
// Stage row (a pending transformation with before/after state), adapted
// from "pending code edit" to "one engine evaluation."
type ScriptRun struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	SessionID string `gorm:"type:varchar(36);index"`

	Kind       string `gorm:"type:varchar(10);not null"` // "script" or "module"
	Specifier  string `gorm:"type:varchar(255)"`         // module specifier, empty for a bare script
	Source     string `gorm:"type:text"`
	ResultJSON datatypes.JSON `gorm:"type:jsonb"` // the completion value, structured-cloned to JSON-ish form by the host

	Success      bool   `gorm:"default:false"`
	ErrorCode    string `gorm:"type:varchar(32)"`
	ErrorMessage string `gorm:"type:text"`

	StartedAt  time.Time `gorm:"autoCreateTime"`
	FinishedAt time.Time
	DurationMS int64
}

// JobRecord records one job-queue task this package's caller chose to
// track (typically one per RunJobs/RunJobsAsync call, not one per
// internal job — the queue itself is in-memory and short-lived, this is
// just an audit trail for a host that wants "what ran and when").
// Mirrors the teacher's Apply row (a committed, auditable action).
type JobRecord struct {
	ID        string `gorm:"primaryKey;type:varchar(36)"`
	SessionID string `gorm:"type:varchar(36);index"`
	RunID     string `gorm:"type:varchar(36);index"` // the ScriptRun that enqueued this job, if known

	Kind string `gorm:"type:varchar(10);not null"` // "sync" or "async"

	Success      bool   `gorm:"default:false"`
	ErrorMessage string `gorm:"type:text"`

	EnqueuedAt time.Time `gorm:"autoCreateTime"`
	RanAt      *time.Time
}

func (RealmSession) TableName() string { return "realm_sessions" }
func (ScriptRun) TableName() string    { return "script_runs" }
func (JobRecord) TableName() string    { return "job_records" }
