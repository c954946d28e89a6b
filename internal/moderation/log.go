package moderation

import (
	"sync"
	"time"
)

// LogCapacity is how many records a Log retains.
const LogCapacity = 10

// Phase says where the checked text came from.
type Phase string

const (
	PhaseUserInput     Phase = "user-input"
	PhaseAssistantPlan Phase = "assistant-plan"
)

// ParsePhase rejects anything outside the two phases.
func ParsePhase(s string) (Phase, bool) {
	switch p := Phase(s); p {
	case PhaseUserInput, PhaseAssistantPlan:
		return p, true
	}
	return "", false
}

// Record is one moderation check outcome. Flagged and Categories are set on
// success; Error is set instead when the check failed.
type Record struct {
	Phase      Phase          `json:"phase"`
	Text       string         `json:"text"`
	Flagged    *bool          `json:"flagged,omitempty"`
	Categories map[string]any `json:"categories,omitempty"`
	Error      string         `json:"error,omitempty"`
	Timestamp  time.Time      `json:"timestamp"`
}

// Log is a bounded FIFO of records.
type Log struct {
	mu      sync.Mutex
	cap     int
	records []Record
}

func NewLog(capacity int) *Log {
	if capacity <= 0 {
		capacity = LogCapacity
	}
	return &Log{cap: capacity}
}

// Append adds r, evicting the oldest entries beyond capacity.
func (l *Log) Append(r Record) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.records = append(l.records, r)
	if over := len(l.records) - l.cap; over > 0 {
		l.records = append([]Record(nil), l.records[over:]...)
	}
}

// Records returns a copy, oldest first.
func (l *Log) Records() []Record {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]Record(nil), l.records...)
}

func (l *Log) Len() int {
	l.mu.Lock()
	defer l.mu.Unlock()
	return len(l.records)
}
