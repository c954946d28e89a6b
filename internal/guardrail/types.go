package guardrail

import "fmt"

// State is the conversation phase the agent declares for its upcoming turn.
type State string

const (
	StateConsentPending State = "consent-pending"
	StateConsentDenied  State = "consent-denied"
	StateAgeGate        State = "age-gate"
	StateScreening      State = "screening"
	StateTrialInfo      State = "trial-info"
	StateSchedule       State = "schedule"
	StateHumanHandoff   State = "human-handoff"
	StateEnd            State = "end"
)

// Action is the speech act the upcoming utterance performs.
type Action string

const (
	ActionAsk            Action = "ask"
	ActionAnswer         Action = "answer"
	ActionRefuse         Action = "refuse"
	ActionEscalateCrisis Action = "escalate-crisis"
	ActionConfirm        Action = "confirm"
	ActionSummarize      Action = "summarize"
	ActionGoodbye        Action = "goodbye"
)

// PII is a category of personal data the agent may solicit.
type PII string

const (
	PIIName         PII = "name"
	PIIEmail        PII = "email"
	PIIPhone        PII = "phone"
	PIIZip          PII = "zip"
	PIICity         PII = "city"
	PIIState        PII = "state"
	PIIAge          PII = "age"
	PIIDobMonthYear PII = "dob-month-year"
)

// Violation is a policy-violation tag the agent self-reports.
type Violation string

const (
	ViolationMedicalAdvice       Violation = "medical-advice"
	ViolationExcessPIICollection Violation = "excess-pii-collection"
	ViolationMinorUser           Violation = "minor-user"
	ViolationEmergencySignal     Violation = "emergency-signal"
	ViolationEfficacyClaim       Violation = "efficacy-claim"
	ViolationNoConsent           Violation = "no-consent"
	ViolationOutOfScope          Violation = "out-of-scope"
)

var (
	States     = []State{StateConsentPending, StateConsentDenied, StateAgeGate, StateScreening, StateTrialInfo, StateSchedule, StateHumanHandoff, StateEnd}
	Actions    = []Action{ActionAsk, ActionAnswer, ActionRefuse, ActionEscalateCrisis, ActionConfirm, ActionSummarize, ActionGoodbye}
	PIIs       = []PII{PIIName, PIIEmail, PIIPhone, PIIZip, PIICity, PIIState, PIIAge, PIIDobMonthYear}
	Violations = []Violation{ViolationMedicalAdvice, ViolationExcessPIICollection, ViolationMinorUser, ViolationEmergencySignal, ViolationEfficacyClaim, ViolationNoConsent, ViolationOutOfScope}
)

// Update is one per-turn declaration. It replaces the previous one wholesale.
type Update struct {
	State        State       `json:"state"`
	Action       Action      `json:"action"`
	PIIRequested []PII       `json:"pii_requested"`
	Violations   []Violation `json:"violations"`
	RiskNotes    string      `json:"risk_notes,omitempty"`
}

// ParseState returns the State named by s or an error for anything outside the enumeration.
func ParseState(s string) (State, error) {
	switch v := State(s); v {
	case StateConsentPending, StateConsentDenied, StateAgeGate, StateScreening,
		StateTrialInfo, StateSchedule, StateHumanHandoff, StateEnd:
		return v, nil
	}
	return "", fmt.Errorf("unknown state %q", s)
}

func ParseAction(s string) (Action, error) {
	switch v := Action(s); v {
	case ActionAsk, ActionAnswer, ActionRefuse, ActionEscalateCrisis,
		ActionConfirm, ActionSummarize, ActionGoodbye:
		return v, nil
	}
	return "", fmt.Errorf("unknown action %q", s)
}

func ParsePII(s string) (PII, error) {
	switch v := PII(s); v {
	case PIIName, PIIEmail, PIIPhone, PIIZip, PIICity, PIIState, PIIAge, PIIDobMonthYear:
		return v, nil
	}
	return "", fmt.Errorf("unknown pii category %q", s)
}

func ParseViolation(s string) (Violation, error) {
	switch v := Violation(s); v {
	case ViolationMedicalAdvice, ViolationExcessPIICollection, ViolationMinorUser,
		ViolationEmergencySignal, ViolationEfficacyClaim, ViolationNoConsent, ViolationOutOfScope:
		return v, nil
	}
	return "", fmt.Errorf("unknown violation %q", s)
}
