package supervisor

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/realtime"
	"github.com/ainergiz/oai-realtime/internal/tools"
)

// dispatch routes one transport event through the handler table. Events for a
// session that is no longer current are dropped.
func (s *Supervisor) dispatch(sess *session, ev realtime.Event) {
	h, ok := s.handlers[ev.Kind]
	if !ok || !s.live(sess) {
		return
	}
	h(sess, ev)
}

func (s *Supervisor) onSessionCreated(sess *session, ev realtime.Event) {
	sess.log.Debug("remote session created")
}

func (s *Supervisor) onFunctionCall(sess *session, ev realtime.Event) {
	if tools.IsAsync(ev.Name) {
		go func() {
			ctx, cancel := context.WithTimeout(context.Background(), asyncToolTimeout)
			defer cancel()
			out := sess.tools.Invoke(ctx, ev.Name, ev.Arguments)
			if !s.live(sess) {
				sess.log.Debug("dropping stale tool result", zap.String("tool", ev.Name))
				return
			}
			s.reply(sess, ev.CallID, out.Output, true)
			s.notify()
		}()
		return
	}

	out := sess.tools.Invoke(context.Background(), ev.Name, ev.Arguments)
	if u := out.Guardrail; u != nil {
		high := guardrail.Classify(*u)
		if s.cfg.Audit != nil {
			s.cfg.Audit.GuardrailDeclared(context.Background(), sess.id, *u, high, s.now())
		}
		if high {
			sess.log.Warn("high-severity guardrail declared",
				zap.String("state", string(u.State)),
				zap.Any("violations", u.Violations))
			s.reply(sess, ev.CallID, out.Output, false)
			_ = s.fail(sess, guardrail.TerminationMessage(*u), nil)
			return
		}
		sess.log.Info("guardrail declared",
			zap.String("state", string(u.State)),
			zap.String("action", string(u.Action)),
			zap.Any("violations", u.Violations))
	}
	if e := out.Eligibility; e != nil {
		sess.log.Info("eligibility recorded", zap.String("eligibility", string(e.Eligibility)))
		if s.cfg.Audit != nil {
			s.cfg.Audit.EligibilityRecorded(context.Background(), sess.id, *e)
		}
	}
	s.reply(sess, ev.CallID, out.Output, true)
	s.notify()
}

// reply returns a tool output and, if respond is set, asks the agent to continue.
func (s *Supervisor) reply(sess *session, callID string, output any, respond bool) {
	ctx := context.Background()
	if err := sess.transport.SendToolResult(ctx, callID, output); err != nil {
		sess.log.Warn("send tool result failed", zap.String("call_id", callID), zap.Error(err))
		return
	}
	if respond {
		if err := sess.transport.CreateResponse(ctx, ""); err != nil {
			sess.log.Warn("response.create failed", zap.Error(err))
		}
	}
}

func (s *Supervisor) onUserTranscript(sess *session, ev realtime.Event) {
	text := strings.TrimSpace(ev.Transcript)
	if text == "" {
		return
	}
	s.appendTurn("user", text)
	s.notify()
}

// onAssistantTranscript records the turn and flags it when no guardrail_state
// preceded it. The session is never terminated for this.
func (s *Supervisor) onAssistantTranscript(sess *session, ev realtime.Event) {
	text := strings.TrimSpace(ev.Transcript)
	if text == "" {
		return
	}
	s.appendTurn("assistant", text)

	declared := sess.tools.Tracker.AssistantTurn()
	var a Anomaly
	s.mu.Lock()
	if !declared {
		a = Anomaly{Kind: AnomalyUndeclaredTurn, Detail: text, At: s.now()}
		s.anomalies = append(s.anomalies, a)
	}
	s.mu.Unlock()

	if !declared {
		sess.log.Warn("assistant turn without guardrail declaration", zap.String("anomaly", AnomalyUndeclaredTurn))
		if s.cfg.Audit != nil {
			s.cfg.Audit.AnomalyDetected(context.Background(), sess.id, a.Kind, a.Detail, a.At)
		}
	}
	s.notify()
}

func (s *Supervisor) onAudioDelta(sess *session, ev realtime.Event) {
	if p := s.playback(sess); p != nil {
		p.Play(ev.Audio)
	}
}

func (s *Supervisor) onSpeechStarted(sess *session, ev realtime.Event) {
	if p := s.playback(sess); p != nil {
		p.Interrupt()
	}
}

func (s *Supervisor) onTransportError(sess *session, ev realtime.Event) {
	msg := ev.Message
	if msg == "" && ev.Err != nil {
		msg = ev.Err.Error()
	}
	if msg == "" {
		msg = "unknown error"
	}
	prefix := "Realtime error: "
	if ev.Kind == realtime.KindClosed {
		prefix = "Connection lost: "
	}
	_ = s.fail(sess, prefix+msg, ev.Err)
}

func (s *Supervisor) appendTurn(role, text string) {
	s.mu.Lock()
	s.history = append(s.history, Turn{Role: role, Text: text, At: s.now()})
	s.mu.Unlock()
}
