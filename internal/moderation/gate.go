package moderation

import (
	"context"
	"encoding/json"
	"errors"
	"time"
)

// Error codes reported by the gate.
const (
	CodeUnreachable = "moderation_unreachable"
	CodeFailed      = "moderation_failed"
	CodeMissingKey  = "missing_openai_api_key"
)

// Classifier is the remote scoring service.
type Classifier interface {
	Moderate(ctx context.Context, text string) (json.RawMessage, error)
}

// Verdict is what the gate reports back to the caller.
type Verdict struct {
	Moderated  bool           `json:"moderated"`
	Flagged    *bool          `json:"flagged,omitempty"`
	Categories map[string]any `json:"categories,omitempty"`
	Error      string         `json:"error,omitempty"`
}

// Gate runs checks and records every outcome, success or not, in its log.
type Gate struct {
	classifier Classifier
	log        *Log
	onRecord   func(Record)
	now        func() time.Time
}

func NewGate(c Classifier, log *Log) *Gate {
	if log == nil {
		log = NewLog(LogCapacity)
	}
	return &Gate{classifier: c, log: log, now: time.Now}
}

// OnRecord installs a callback invoked after each record is appended.
func (g *Gate) OnRecord(fn func(Record)) { g.onRecord = fn }

func (g *Gate) Log() *Log { return g.log }

// Check classifies text for phase. Exactly one Record is appended per call.
func (g *Gate) Check(ctx context.Context, text string, phase Phase) Verdict {
	text = Truncate(text)
	rec := Record{Phase: phase, Text: text, Timestamp: g.now()}

	var (
		raw json.RawMessage
		err error
	)
	if g.classifier == nil {
		err = ErrMissingAPIKey
	} else {
		raw, err = g.classifier.Moderate(ctx, text)
	}
	var v Verdict
	if err != nil {
		var se *StatusError
		switch {
		case errors.As(err, &se):
			code := se.Code
			if code == "" {
				code = CodeFailed
			}
			v = Verdict{Moderated: false, Error: code}
		case errors.Is(err, ErrMissingAPIKey):
			v = Verdict{Moderated: false, Error: CodeMissingKey}
		default:
			v = Verdict{Moderated: false, Error: CodeUnreachable}
		}
		rec.Error = v.Error
	} else {
		flagged, categories := firstResult(raw)
		v = Verdict{Moderated: true, Flagged: &flagged, Categories: categories}
		rec.Flagged = &flagged
		rec.Categories = categories
	}

	g.log.Append(rec)
	if g.onRecord != nil {
		g.onRecord(rec)
	}
	return v
}

// firstResult extracts results[0].flagged and results[0].categories,
// defaulting to false/nil when the shape is unexpected.
func firstResult(raw json.RawMessage) (bool, map[string]any) {
	var body struct {
		Results []struct {
			Flagged    bool           `json:"flagged"`
			Categories map[string]any `json:"categories"`
		} `json:"results"`
	}
	if err := json.Unmarshal(raw, &body); err != nil || len(body.Results) == 0 {
		return false, nil
	}
	return body.Results[0].Flagged, body.Results[0].Categories
}
