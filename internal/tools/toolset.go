package tools

import (
	"context"

	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

// GuardrailAck is returned by guardrail_state.
type GuardrailAck struct {
	Acknowledged bool   `json:"acknowledged"`
	Error        string `json:"error,omitempty"`
}

// EligibilityAck is returned by record_eligibility.
type EligibilityAck struct {
	Recorded bool   `json:"recorded"`
	Error    string `json:"error,omitempty"`
}

// ErrorResult is returned for unknown tools and undecodable lookups.
type ErrorResult struct {
	Error string `json:"error"`
}

// Outcome is the result of one tool invocation. Output goes back to the agent;
// the remaining fields describe side effects the caller may act on.
type Outcome struct {
	Output      any
	Guardrail   *guardrail.Update
	Eligibility *eligibility.Summary
	Moderation  *moderation.Verdict
	Rejected    bool
}

// Toolset binds the tool surface to one session's components.
type Toolset struct {
	Tracker  *guardrail.Tracker
	Gate     *moderation.Gate
	Recorder *eligibility.Recorder
	Trial    *trialinfo.Document
	Logger   *zap.Logger
}

// IsAsync reports whether the named tool suspends on a network round trip.
func IsAsync(name string) bool { return name == NameModerationCheck }

// Invoke validates args for the named tool and applies its side effect.
// It never returns an error: failures become declined acknowledgements.
func (t *Toolset) Invoke(ctx context.Context, name, args string) Outcome {
	log := t.Logger
	if log == nil {
		log = zap.NewNop()
	}
	switch name {
	case NameGuardrailState:
		u, err := DecodeGuardrailState(args)
		if err != nil {
			log.Info("guardrail_state rejected", zap.Error(err))
			return Outcome{Output: GuardrailAck{Acknowledged: false, Error: ErrInvalidGuardrailState}, Rejected: true}
		}
		t.Tracker.Update(u)
		return Outcome{Output: GuardrailAck{Acknowledged: true}, Guardrail: &u}

	case NameRecordEligibility:
		o, reasons, err := DecodeEligibility(args)
		if err != nil {
			log.Info("record_eligibility rejected", zap.Error(err))
			return Outcome{Output: EligibilityAck{Recorded: false, Error: ErrInvalidEligibility}, Rejected: true}
		}
		s := t.Recorder.Record(o, reasons)
		return Outcome{Output: EligibilityAck{Recorded: true}, Eligibility: &s}

	case NameModerationCheck:
		text, phase, err := DecodeModerationCheck(args)
		if err != nil {
			log.Info("moderation_check rejected", zap.Error(err))
			v := moderation.Verdict{Moderated: false, Error: ErrInvalidModeration}
			return Outcome{Output: v, Moderation: &v, Rejected: true}
		}
		v := t.Gate.Check(ctx, text, phase)
		return Outcome{Output: v, Moderation: &v}

	case NameLookupInfo:
		q, err := DecodeLookup(args)
		if err != nil {
			log.Info("lookup_info rejected", zap.Error(err))
			return Outcome{Output: ErrorResult{Error: ErrInvalidLookup}, Rejected: true}
		}
		if t.Trial == nil {
			log.Warn("lookup_info without trial record")
			return Outcome{Output: ErrorResult{Error: ErrTrialUnavailable}, Rejected: true}
		}
		return Outcome{Output: t.Trial.Lookup(q)}
	}
	log.Warn("unknown tool requested", zap.String("tool", name))
	return Outcome{Output: ErrorResult{Error: ErrUnknownTool}, Rejected: true}
}
