// Package tools is the callable surface exposed to the remote agent. Every
// inbound payload is decoded strictly here before it reaches business logic.
package tools

import (
	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
)

// Tool names. These must match the agent configuration exactly.
const (
	NameGuardrailState    = "guardrail_state"
	NameRecordEligibility = "record_eligibility"
	NameModerationCheck   = "moderation_check"
	NameLookupInfo        = "lookup_info"
)

// Definition is a function tool as advertised to the realtime session.
type Definition struct {
	Type        string         `json:"type"`
	Name        string         `json:"name"`
	Description string         `json:"description"`
	Parameters  map[string]any `json:"parameters"`
}

func enumOf[T ~string](vals []T) []string {
	out := make([]string, 0, len(vals))
	for _, v := range vals {
		out = append(out, string(v))
	}
	return out
}

// Definitions lists every tool the agent may call.
func Definitions() []Definition {
	return []Definition{
		{
			Type:        "function",
			Name:        NameGuardrailState,
			Description: "Declare the conversation state, intended speech act, requested personal data and any policy violations BEFORE every spoken turn.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"state":  map[string]any{"type": "string", "enum": enumOf(guardrail.States)},
					"action": map[string]any{"type": "string", "enum": enumOf(guardrail.Actions)},
					"pii_requested": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "enum": enumOf(guardrail.PIIs)},
					},
					"violations": map[string]any{
						"type":  "array",
						"items": map[string]any{"type": "string", "enum": enumOf(guardrail.Violations)},
					},
					"risk_notes": map[string]any{"type": "string"},
				},
				"required":             []string{"state", "action"},
				"additionalProperties": false,
			},
		},
		{
			Type:        "function",
			Name:        NameRecordEligibility,
			Description: "Record the final screening outcome with the reasons for it.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"eligibility": map[string]any{"type": "string", "enum": []string{string(eligibility.Eligible), string(eligibility.Ineligible), string(eligibility.Review)}},
					"reasons":     map[string]any{"type": "array", "minItems": 1, "items": map[string]any{"type": "string"}},
				},
				"required":             []string{"eligibility", "reasons"},
				"additionalProperties": false,
			},
		},
		{
			Type:        "function",
			Name:        NameModerationCheck,
			Description: "Run a safety moderation check on the participant's input or on your planned reply.",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"text":  map[string]any{"type": "string"},
					"phase": map[string]any{"type": "string", "enum": []string{string(moderation.PhaseUserInput), string(moderation.PhaseAssistantPlan)}},
				},
				"required":             []string{"text", "phase"},
				"additionalProperties": false,
			},
		},
		{
			Type:        "function",
			Name:        NameLookupInfo,
			Description: "Look up approved facts about the trial (overview, status, eligibility, procedures, locations, compensation, risks, contact).",
			Parameters: map[string]any{
				"type": "object",
				"properties": map[string]any{
					"question": map[string]any{"type": "string"},
				},
				"required": []string{"question"},
			},
		},
	}
}
