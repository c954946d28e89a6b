// Package audit persists each session's guardrail, moderation, eligibility
// and anomaly trail to SQLite.
package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	_ "modernc.org/sqlite"

	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
)

const schema = `
CREATE TABLE IF NOT EXISTS sessions (
	session_id  TEXT PRIMARY KEY,
	channel     TEXT NOT NULL,
	model       TEXT,
	started_at  TEXT NOT NULL,
	ended_at    TEXT,
	status      TEXT,
	message     TEXT
);

CREATE TABLE IF NOT EXISTS guardrail_events (
	id            TEXT PRIMARY KEY,
	session_id    TEXT NOT NULL,
	state         TEXT NOT NULL,
	action        TEXT NOT NULL,
	pii_json      TEXT NOT NULL,
	violations    TEXT NOT NULL,
	risk_notes    TEXT,
	high_severity INTEGER NOT NULL,
	created_at    TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS moderation_events (
	id              TEXT PRIMARY KEY,
	session_id      TEXT NOT NULL,
	phase           TEXT NOT NULL,
	text            TEXT NOT NULL,
	flagged         INTEGER,
	categories_json TEXT,
	error           TEXT,
	created_at      TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS eligibility_events (
	id           TEXT PRIMARY KEY,
	session_id   TEXT NOT NULL,
	eligibility  TEXT NOT NULL,
	reasons_json TEXT NOT NULL,
	created_at   TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);

CREATE TABLE IF NOT EXISTS anomalies (
	id          TEXT PRIMARY KEY,
	session_id  TEXT NOT NULL,
	kind        TEXT NOT NULL,
	detail      TEXT,
	created_at  TEXT NOT NULL,
	FOREIGN KEY (session_id) REFERENCES sessions(session_id)
);
`

// ErrNotFound is returned when a session id is unknown.
var ErrNotFound = errors.New("audit: session not found")

// Store is the audit ledger. Write failures are logged and never surface to
// the session.
type Store struct {
	db  *sql.DB
	log *zap.Logger
}

// Open opens a SQLite database and runs migrations.
func Open(dbPath string, log *zap.Logger) (*Store, error) {
	if log == nil {
		log = zap.NewNop()
	}
	db, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("open db: %w", err)
	}
	// pragmas are per connection
	db.SetMaxOpenConns(1)
	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma: %w", err)
	}
	if _, err := db.Exec("PRAGMA foreign_keys=ON"); err != nil {
		db.Close()
		return nil, fmt.Errorf("pragma fk: %w", err)
	}
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate: %w", err)
	}
	return &Store{db: db, log: log}, nil
}

func (s *Store) Close() error { return s.db.Close() }

func ts(t time.Time) string { return t.UTC().Format(time.RFC3339Nano) }

func (s *Store) exec(ctx context.Context, what, query string, args ...any) {
	if _, err := s.db.ExecContext(ctx, query, args...); err != nil {
		s.log.Warn("audit write failed", zap.String("event", what), zap.Error(err))
	}
}

func mustJSON(v any) string {
	b, err := json.Marshal(v)
	if err != nil {
		return "null"
	}
	return string(b)
}

func (s *Store) SessionStarted(ctx context.Context, sessionID, channel, model string, at time.Time) {
	s.exec(ctx, "session_started",
		`INSERT INTO sessions (session_id, channel, model, started_at) VALUES (?, ?, ?, ?)`,
		sessionID, channel, model, ts(at))
}

func (s *Store) GuardrailDeclared(ctx context.Context, sessionID string, u guardrail.Update, high bool, at time.Time) {
	s.exec(ctx, "guardrail_declared",
		`INSERT INTO guardrail_events (id, session_id, state, action, pii_json, violations, risk_notes, high_severity, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(u.State), string(u.Action),
		mustJSON(u.PIIRequested), mustJSON(u.Violations), u.RiskNotes, boolInt(high), ts(at))
}

func (s *Store) ModerationChecked(ctx context.Context, sessionID string, r moderation.Record) {
	var flagged any
	if r.Flagged != nil {
		flagged = boolInt(*r.Flagged)
	}
	var categories any
	if r.Categories != nil {
		categories = mustJSON(r.Categories)
	}
	s.exec(ctx, "moderation_checked",
		`INSERT INTO moderation_events (id, session_id, phase, text, flagged, categories_json, error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(r.Phase), r.Text, flagged, categories, r.Error, ts(r.Timestamp))
}

func (s *Store) EligibilityRecorded(ctx context.Context, sessionID string, e eligibility.Summary) {
	s.exec(ctx, "eligibility_recorded",
		`INSERT INTO eligibility_events (id, session_id, eligibility, reasons_json, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, string(e.Eligibility), mustJSON(e.Reasons), ts(e.RecordedAt))
}

func (s *Store) AnomalyDetected(ctx context.Context, sessionID, kind, detail string, at time.Time) {
	s.exec(ctx, "anomaly_detected",
		`INSERT INTO anomalies (id, session_id, kind, detail, created_at) VALUES (?, ?, ?, ?, ?)`,
		uuid.NewString(), sessionID, kind, detail, ts(at))
}

func (s *Store) SessionEnded(ctx context.Context, sessionID, status, message string, at time.Time) {
	s.exec(ctx, "session_ended",
		`UPDATE sessions SET ended_at = ?, status = ?, message = ? WHERE session_id = ?`,
		ts(at), status, message, sessionID)
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
