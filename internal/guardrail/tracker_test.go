package guardrail

import "testing"

func TestClassify(t *testing.T) {
	cases := []struct {
		name string
		in   []Violation
		want bool
	}{
		{"none", nil, false},
		{"out_of_scope", []Violation{ViolationOutOfScope}, false},
		{"medical_advice_and_efficacy", []Violation{ViolationMedicalAdvice, ViolationEfficacyClaim}, false},
		{"minor_user", []Violation{ViolationMinorUser}, true},
		{"emergency", []Violation{ViolationEmergencySignal}, true},
		{"no_consent_mixed", []Violation{ViolationOutOfScope, ViolationNoConsent}, true},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			if got := Classify(Update{Violations: tc.in}); got != tc.want {
				t.Fatalf("Classify(%v) = %v, want %v", tc.in, got, tc.want)
			}
		})
	}
}

func TestTracker_UpdateReplacesWholesale(t *testing.T) {
	tr := NewTracker()
	if _, ok := tr.Current(); ok {
		t.Fatalf("expected no state before first update")
	}
	tr.Update(Update{State: StateScreening, Action: ActionAsk, PIIRequested: []PII{PIIAge}, RiskNotes: "asking age"})
	tr.Update(Update{State: StateTrialInfo, Action: ActionAnswer, PIIRequested: []PII{}, Violations: []Violation{}})

	cur, ok := tr.Current()
	if !ok {
		t.Fatalf("expected current state")
	}
	if cur.State != StateTrialInfo || cur.Action != ActionAnswer {
		t.Fatalf("unexpected state: %+v", cur)
	}
	if len(cur.PIIRequested) != 0 || cur.RiskNotes != "" {
		t.Fatalf("expected previous fields to be dropped, got %+v", cur)
	}
}

func TestTracker_UpdateCopiesSlices(t *testing.T) {
	tr := NewTracker()
	v := []Violation{ViolationOutOfScope}
	tr.Update(Update{State: StateScreening, Action: ActionAsk, Violations: v})
	v[0] = ViolationMinorUser
	cur, _ := tr.Current()
	if cur.Violations[0] != ViolationOutOfScope {
		t.Fatalf("tracked state aliased caller slice")
	}
}

func TestTracker_AssistantTurnDetectsUndeclaredTurns(t *testing.T) {
	tr := NewTracker()
	if tr.AssistantTurn() {
		t.Fatalf("expected first turn without declaration to be flagged")
	}
	tr.Update(Update{State: StateConsentPending, Action: ActionAsk})
	if !tr.AssistantTurn() {
		t.Fatalf("expected declared turn to pass")
	}
	if tr.AssistantTurn() {
		t.Fatalf("declaration must not carry over to the next turn")
	}
}

func TestTerminationMessage(t *testing.T) {
	if got := TerminationMessage(Update{Violations: []Violation{ViolationEmergencySignal}}); got != "Guardrail triggered: emergency-signal" {
		t.Fatalf("unexpected message %q", got)
	}
	if got := TerminationMessage(Update{Violations: []Violation{ViolationMinorUser}, RiskNotes: "User said they are 15."}); got != "User said they are 15." {
		t.Fatalf("expected risk notes, got %q", got)
	}
}

func TestParseEnums(t *testing.T) {
	for _, s := range States {
		if _, err := ParseState(string(s)); err != nil {
			t.Fatalf("ParseState(%q): %v", s, err)
		}
	}
	for _, a := range Actions {
		if _, err := ParseAction(string(a)); err != nil {
			t.Fatalf("ParseAction(%q): %v", a, err)
		}
	}
	for _, p := range PIIs {
		if _, err := ParsePII(string(p)); err != nil {
			t.Fatalf("ParsePII(%q): %v", p, err)
		}
	}
	for _, v := range Violations {
		if _, err := ParseViolation(string(v)); err != nil {
			t.Fatalf("ParseViolation(%q): %v", v, err)
		}
	}
	if _, err := ParseState("Screening"); err == nil {
		t.Fatalf("expected case-sensitive mismatch to fail")
	}
	if _, err := ParseViolation("self-harm"); err == nil {
		t.Fatalf("expected unknown violation to fail")
	}
}
