package tools

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"

	"github.com/kaptinlin/jsonrepair"

	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
)

// Error codes returned in declined acknowledgements.
const (
	ErrInvalidGuardrailState = "invalid_guardrail_state_payload"
	ErrInvalidEligibility    = "invalid_eligibility_payload"
	ErrInvalidModeration     = "invalid_moderation_payload"
	ErrInvalidLookup         = "invalid_lookup_payload"
	ErrUnknownTool           = "unknown_tool"
	ErrTrialUnavailable      = "trial_info_unavailable"
)

// decodeStrict unmarshals a single JSON object, rejecting unknown fields and trailing data.
func decodeStrict(args string, v any) error {
	if strings.TrimSpace(args) == "" {
		return errors.New("empty arguments")
	}
	dec := json.NewDecoder(strings.NewReader(args))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return err
	}
	if _, err := dec.Token(); err != io.EOF {
		return errors.New("trailing data after arguments")
	}
	return nil
}

type guardrailArgs struct {
	State        *string  `json:"state"`
	Action       *string  `json:"action"`
	PIIRequested []string `json:"pii_requested"`
	Violations   []string `json:"violations"`
	RiskNotes    *string  `json:"risk_notes"`
}

// DecodeGuardrailState validates a guardrail_state payload. Absent arrays
// become empty arrays; every enum value must match exactly.
func DecodeGuardrailState(args string) (guardrail.Update, error) {
	var a guardrailArgs
	if err := decodeStrict(args, &a); err != nil {
		return guardrail.Update{}, fmt.Errorf("guardrail_state: %w", err)
	}
	if a.State == nil || a.Action == nil {
		return guardrail.Update{}, errors.New("guardrail_state: state and action are required")
	}
	st, err := guardrail.ParseState(*a.State)
	if err != nil {
		return guardrail.Update{}, fmt.Errorf("guardrail_state: %w", err)
	}
	act, err := guardrail.ParseAction(*a.Action)
	if err != nil {
		return guardrail.Update{}, fmt.Errorf("guardrail_state: %w", err)
	}
	u := guardrail.Update{
		State:        st,
		Action:       act,
		PIIRequested: make([]guardrail.PII, 0, len(a.PIIRequested)),
		Violations:   make([]guardrail.Violation, 0, len(a.Violations)),
	}
	for _, p := range a.PIIRequested {
		v, err := guardrail.ParsePII(p)
		if err != nil {
			return guardrail.Update{}, fmt.Errorf("guardrail_state: %w", err)
		}
		u.PIIRequested = append(u.PIIRequested, v)
	}
	for _, s := range a.Violations {
		v, err := guardrail.ParseViolation(s)
		if err != nil {
			return guardrail.Update{}, fmt.Errorf("guardrail_state: %w", err)
		}
		u.Violations = append(u.Violations, v)
	}
	if a.RiskNotes != nil {
		u.RiskNotes = *a.RiskNotes
	}
	return u, nil
}

type eligibilityArgs struct {
	Eligibility *string  `json:"eligibility"`
	Reasons     []string `json:"reasons"`
}

// DecodeEligibility validates a record_eligibility payload. Reasons must be a
// non-empty array; normalization of its entries happens in the recorder.
func DecodeEligibility(args string) (eligibility.Outcome, []string, error) {
	var a eligibilityArgs
	if err := decodeStrict(args, &a); err != nil {
		return "", nil, fmt.Errorf("record_eligibility: %w", err)
	}
	if a.Eligibility == nil {
		return "", nil, errors.New("record_eligibility: eligibility is required")
	}
	o, err := eligibility.ParseOutcome(*a.Eligibility)
	if err != nil {
		return "", nil, fmt.Errorf("record_eligibility: %w", err)
	}
	if len(a.Reasons) == 0 {
		return "", nil, errors.New("record_eligibility: reasons must be a non-empty array")
	}
	return o, a.Reasons, nil
}

type moderationArgs struct {
	Text  *string `json:"text"`
	Phase *string `json:"phase"`
}

// DecodeModerationCheck validates a moderation_check payload and truncates its text.
func DecodeModerationCheck(args string) (string, moderation.Phase, error) {
	var a moderationArgs
	if err := decodeStrict(args, &a); err != nil {
		return "", "", fmt.Errorf("moderation_check: %w", err)
	}
	if a.Text == nil || strings.TrimSpace(*a.Text) == "" {
		return "", "", errors.New("moderation_check: text is required")
	}
	if a.Phase == nil {
		return "", "", errors.New("moderation_check: phase is required")
	}
	p, ok := moderation.ParsePhase(*a.Phase)
	if !ok {
		return "", "", fmt.Errorf("moderation_check: unknown phase %q", *a.Phase)
	}
	return moderation.Truncate(*a.Text), p, nil
}

// DecodeLookup extracts the question. lookup_info has no safety bearing, so
// malformed JSON from the agent is repaired rather than rejected.
func DecodeLookup(args string) (string, error) {
	var a struct {
		Question string `json:"question"`
	}
	if strings.TrimSpace(args) == "" {
		return "", nil
	}
	if err := json.Unmarshal([]byte(args), &a); err != nil {
		fixed, rerr := jsonrepair.JSONRepair(args)
		if rerr != nil {
			return "", fmt.Errorf("lookup_info: %w", err)
		}
		if err := json.Unmarshal([]byte(fixed), &a); err != nil {
			return "", fmt.Errorf("lookup_info: %w", err)
		}
	}
	return a.Question, nil
}
