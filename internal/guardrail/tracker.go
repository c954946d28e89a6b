package guardrail

import (
	"strings"
	"sync"
)

// highSeverity is the fixed set of violations that force session termination.
var highSeverity = map[Violation]struct{}{
	ViolationEmergencySignal: {},
	ViolationMinorUser:       {},
	ViolationNoConsent:       {},
}

// IsHighSeverity reports whether v alone forces termination.
func IsHighSeverity(v Violation) bool {
	_, ok := highSeverity[v]
	return ok
}

// Classify returns true iff u declares at least one high-severity violation.
func Classify(u Update) bool {
	for _, v := range u.Violations {
		if IsHighSeverity(v) {
			return true
		}
	}
	return false
}

// TerminationMessage is the user-visible reason for a guardrail-triggered teardown:
// the declaration's risk notes if present, else the joined violation tags.
func TerminationMessage(u Update) string {
	if notes := strings.TrimSpace(u.RiskNotes); notes != "" {
		return notes
	}
	tags := make([]string, 0, len(u.Violations))
	for _, v := range u.Violations {
		tags = append(tags, string(v))
	}
	return "Guardrail triggered: " + strings.Join(tags, ", ")
}

// Tracker holds the latest declaration for one session.
type Tracker struct {
	mu       sync.Mutex
	current  *Update
	declared bool // a declaration arrived since the last assistant turn
}

func NewTracker() *Tracker { return &Tracker{} }

// Update replaces the tracked declaration. Nothing is merged.
func (t *Tracker) Update(u Update) {
	cp := u
	cp.PIIRequested = append([]PII{}, u.PIIRequested...)
	cp.Violations = append([]Violation{}, u.Violations...)
	t.mu.Lock()
	t.current = &cp
	t.declared = true
	t.mu.Unlock()
}

// Current returns the latest declaration, if any.
func (t *Tracker) Current() (Update, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.current == nil {
		return Update{}, false
	}
	return *t.current, true
}

// AssistantTurn marks that the agent spoke. It returns false when no
// declaration preceded the turn, which callers treat as an anomaly.
func (t *Tracker) AssistantTurn() bool {
	t.mu.Lock()
	defer t.mu.Unlock()
	ok := t.declared
	t.declared = false
	return ok
}
