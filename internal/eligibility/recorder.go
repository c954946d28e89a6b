package eligibility

import (
	"fmt"
	"strings"
	"sync"
	"time"
)

// Outcome is the terminal screening decision.
type Outcome string

const (
	Eligible   Outcome = "eligible"
	Ineligible Outcome = "ineligible"
	Review     Outcome = "review"
)

// PlaceholderReason stands in when the agent supplies no usable reasons.
const PlaceholderReason = "No reasons provided."

// ParseOutcome rejects anything outside the three valid outcomes.
func ParseOutcome(s string) (Outcome, error) {
	switch o := Outcome(s); o {
	case Eligible, Ineligible, Review:
		return o, nil
	}
	return "", fmt.Errorf("unknown eligibility %q", s)
}

// Summary is the session's terminal artifact.
type Summary struct {
	Eligibility Outcome   `json:"eligibility"`
	Reasons     []string  `json:"reasons"`
	RecordedAt  time.Time `json:"recorded_at"`
}

// NormalizeReasons trims each reason, drops empties, and substitutes the
// placeholder when nothing remains.
func NormalizeReasons(reasons []string) []string {
	out := make([]string, 0, len(reasons))
	for _, r := range reasons {
		if r = strings.TrimSpace(r); r != "" {
			out = append(out, r)
		}
	}
	if len(out) == 0 {
		return []string{PlaceholderReason}
	}
	return out
}

// Recorder keeps the last recorded summary. Later calls overwrite earlier ones.
type Recorder struct {
	mu      sync.Mutex
	summary *Summary
	now     func() time.Time
}

func NewRecorder() *Recorder { return &Recorder{now: time.Now} }

// Record stores the outcome with normalized reasons and returns the stored summary.
func (r *Recorder) Record(outcome Outcome, reasons []string) Summary {
	s := Summary{Eligibility: outcome, Reasons: NormalizeReasons(reasons), RecordedAt: r.now()}
	r.mu.Lock()
	r.summary = &s
	r.mu.Unlock()
	return s
}

// Summary returns the recorded outcome, if any.
func (r *Recorder) Summary() (Summary, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.summary == nil {
		return Summary{}, false
	}
	s := *r.summary
	s.Reasons = append([]string(nil), r.summary.Reasons...)
	return s, true
}
