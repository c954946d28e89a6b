package audit

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
)

// Session is one row of the sessions table.
type Session struct {
	SessionID string `json:"session_id"`
	Channel   string `json:"channel"`
	Model     string `json:"model,omitempty"`
	StartedAt string `json:"started_at"`
	EndedAt   string `json:"ended_at,omitempty"`
	Status    string `json:"status,omitempty"`
	Message   string `json:"message,omitempty"`
}

type GuardrailEvent struct {
	State        string   `json:"state"`
	Action       string   `json:"action"`
	PIIRequested []string `json:"pii_requested"`
	Violations   []string `json:"violations"`
	RiskNotes    string   `json:"risk_notes,omitempty"`
	HighSeverity bool     `json:"high_severity"`
	CreatedAt    string   `json:"created_at"`
}

type ModerationEvent struct {
	Phase      string         `json:"phase"`
	Text       string         `json:"text"`
	Flagged    *bool          `json:"flagged,omitempty"`
	Categories map[string]any `json:"categories,omitempty"`
	Error      string         `json:"error,omitempty"`
	CreatedAt  string         `json:"created_at"`
}

type EligibilityEvent struct {
	Eligibility string   `json:"eligibility"`
	Reasons     []string `json:"reasons"`
	CreatedAt   string   `json:"created_at"`
}

type AnomalyEvent struct {
	Kind      string `json:"kind"`
	Detail    string `json:"detail,omitempty"`
	CreatedAt string `json:"created_at"`
}

// Detail is a session with its full event trail, oldest first.
type Detail struct {
	Session     Session            `json:"session"`
	Guardrail   []GuardrailEvent   `json:"guardrail"`
	Moderation  []ModerationEvent  `json:"moderation"`
	Eligibility []EligibilityEvent `json:"eligibility"`
	Anomalies   []AnomalyEvent     `json:"anomalies"`
}

// Sessions returns the most recent sessions, newest first.
func (s *Store) Sessions(ctx context.Context, limit int) ([]Session, error) {
	if limit <= 0 {
		limit = 20
	}
	rows, err := s.db.QueryContext(ctx,
		`SELECT session_id, channel, COALESCE(model, ''), started_at, COALESCE(ended_at, ''), COALESCE(status, ''), COALESCE(message, '')
		 FROM sessions ORDER BY started_at DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query sessions: %w", err)
	}
	defer rows.Close()
	var out []Session
	for rows.Next() {
		var r Session
		if err := rows.Scan(&r.SessionID, &r.Channel, &r.Model, &r.StartedAt, &r.EndedAt, &r.Status, &r.Message); err != nil {
			return nil, fmt.Errorf("scan session: %w", err)
		}
		out = append(out, r)
	}
	return out, rows.Err()
}

// SessionDetail returns one session and every event recorded for it.
func (s *Store) SessionDetail(ctx context.Context, id string) (Detail, error) {
	var d Detail
	err := s.db.QueryRowContext(ctx,
		`SELECT session_id, channel, COALESCE(model, ''), started_at, COALESCE(ended_at, ''), COALESCE(status, ''), COALESCE(message, '')
		 FROM sessions WHERE session_id = ?`, id).
		Scan(&d.Session.SessionID, &d.Session.Channel, &d.Session.Model, &d.Session.StartedAt, &d.Session.EndedAt, &d.Session.Status, &d.Session.Message)
	if errors.Is(err, sql.ErrNoRows) {
		return Detail{}, ErrNotFound
	}
	if err != nil {
		return Detail{}, fmt.Errorf("query session: %w", err)
	}

	if err := s.each(ctx,
		`SELECT state, action, pii_json, violations, COALESCE(risk_notes, ''), high_severity, created_at
		 FROM guardrail_events WHERE session_id = ? ORDER BY created_at`, id,
		func(rows *sql.Rows) error {
			var e GuardrailEvent
			var pii, viol string
			var high int
			if err := rows.Scan(&e.State, &e.Action, &pii, &viol, &e.RiskNotes, &high, &e.CreatedAt); err != nil {
				return err
			}
			_ = json.Unmarshal([]byte(pii), &e.PIIRequested)
			_ = json.Unmarshal([]byte(viol), &e.Violations)
			e.HighSeverity = high == 1
			d.Guardrail = append(d.Guardrail, e)
			return nil
		}); err != nil {
		return Detail{}, err
	}

	if err := s.each(ctx,
		`SELECT phase, text, flagged, categories_json, COALESCE(error, ''), created_at
		 FROM moderation_events WHERE session_id = ? ORDER BY created_at`, id,
		func(rows *sql.Rows) error {
			var e ModerationEvent
			var flagged sql.NullInt64
			var categories sql.NullString
			if err := rows.Scan(&e.Phase, &e.Text, &flagged, &categories, &e.Error, &e.CreatedAt); err != nil {
				return err
			}
			if flagged.Valid {
				f := flagged.Int64 == 1
				e.Flagged = &f
			}
			if categories.Valid {
				_ = json.Unmarshal([]byte(categories.String), &e.Categories)
			}
			d.Moderation = append(d.Moderation, e)
			return nil
		}); err != nil {
		return Detail{}, err
	}

	if err := s.each(ctx,
		`SELECT eligibility, reasons_json, created_at FROM eligibility_events WHERE session_id = ? ORDER BY created_at`, id,
		func(rows *sql.Rows) error {
			var e EligibilityEvent
			var reasons string
			if err := rows.Scan(&e.Eligibility, &reasons, &e.CreatedAt); err != nil {
				return err
			}
			_ = json.Unmarshal([]byte(reasons), &e.Reasons)
			d.Eligibility = append(d.Eligibility, e)
			return nil
		}); err != nil {
		return Detail{}, err
	}

	if err := s.each(ctx,
		`SELECT kind, COALESCE(detail, ''), created_at FROM anomalies WHERE session_id = ? ORDER BY created_at`, id,
		func(rows *sql.Rows) error {
			var e AnomalyEvent
			if err := rows.Scan(&e.Kind, &e.Detail, &e.CreatedAt); err != nil {
				return err
			}
			d.Anomalies = append(d.Anomalies, e)
			return nil
		}); err != nil {
		return Detail{}, err
	}
	return d, nil
}

func (s *Store) each(ctx context.Context, query, id string, fn func(*sql.Rows) error) error {
	rows, err := s.db.QueryContext(ctx, query, id)
	if err != nil {
		return fmt.Errorf("query events: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		if err := fn(rows); err != nil {
			return fmt.Errorf("scan event: %w", err)
		}
	}
	return rows.Err()
}
