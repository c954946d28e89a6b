// Package supervisor owns the lifecycle of one screening conversation: it
// connects the transport, routes tool calls, and tears the session down when
// the agent declares a high-severity violation.
package supervisor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/realtime"
	"github.com/ainergiz/oai-realtime/internal/tools"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

const (
	asyncToolTimeout = 15 * time.Second
	archiveTimeout   = 10 * time.Second
)

// ErrNoSession is returned by Connect when the session was torn down before
// the connection completed.
var ErrNoSession = errors.New("supervisor: session ended")

// Config wires a Supervisor to its collaborators. Credentials, Dialer and
// Media are required. Without a Classifier moderation checks report
// missing_openai_api_key; without a Trial lookups are declined.
type Config struct {
	Channel  string
	Model    string
	Session  realtime.SessionConfig
	Greeting string

	Credentials CredentialSource
	Dialer      Dialer
	Media       MediaSource
	Classifier  moderation.Classifier
	Trial       *trialinfo.Document

	Audit    AuditSink
	Archiver Archiver
	Observer func(Snapshot)
	Logger   *zap.Logger
}

type handlerFunc func(sess *session, ev realtime.Event)

// session holds the resources one connection owns. It is released by teardown.
type session struct {
	id          string
	transport   Transport
	media       *Media
	unsubscribe func()
	tools       *tools.Toolset
	log         *zap.Logger
}

// Supervisor runs one conversation at a time.
type Supervisor struct {
	cfg      Config
	log      *zap.Logger
	handlers map[realtime.Kind]handlerFunc
	now      func() time.Time

	mu        sync.Mutex
	status    Status
	errMsg    string
	sess      *session
	sessionID string
	history   []Turn
	anomalies []Anomaly
	tracker   *guardrail.Tracker
	modLog    *moderation.Log
	recorder  *eligibility.Recorder
}

// New returns an idle Supervisor.
func New(cfg Config) *Supervisor {
	log := cfg.Logger
	if log == nil {
		log = zap.NewNop()
	}
	if cfg.Channel == "" {
		cfg.Channel = "web"
	}
	s := &Supervisor{
		cfg:      cfg,
		log:      log,
		now:      time.Now,
		status:   StatusIdle,
		tracker:  guardrail.NewTracker(),
		modLog:   moderation.NewLog(moderation.LogCapacity),
		recorder: eligibility.NewRecorder(),
	}
	s.handlers = map[realtime.Kind]handlerFunc{
		realtime.KindSessionCreated:      s.onSessionCreated,
		realtime.KindFunctionCall:        s.onFunctionCall,
		realtime.KindUserTranscript:      s.onUserTranscript,
		realtime.KindAssistantTranscript: s.onAssistantTranscript,
		realtime.KindAudioDelta:          s.onAudioDelta,
		realtime.KindSpeechStarted:       s.onSpeechStarted,
		realtime.KindError:               s.onTransportError,
		realtime.KindClosed:              s.onTransportError,
	}
	return s
}

// Status returns the current lifecycle state and error message.
func (s *Supervisor) Status() (Status, string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status, s.errMsg
}

// HasMedia reports whether a media stream is currently held.
func (s *Supervisor) HasMedia() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess != nil && s.sess.media != nil
}

// Connect starts a session. It is a no-op while connecting or connected.
// Any failure tears down what was acquired and leaves the supervisor in error.
func (s *Supervisor) Connect(ctx context.Context) error {
	s.mu.Lock()
	if st := s.status; st == StatusConnecting || st == StatusConnected {
		s.mu.Unlock()
		s.log.Debug("connect ignored", zap.String("status", string(st)))
		return nil
	}
	sess := &session{id: uuid.NewString()}
	sess.log = s.log.With(zap.String("session_id", sess.id), zap.String("channel", s.cfg.Channel))
	s.sess = sess
	s.sessionID = sess.id
	s.status = StatusConnecting
	s.errMsg = ""
	s.resetLocked()
	gate := moderation.NewGate(s.cfg.Classifier, s.modLog)
	sess.tools = &tools.Toolset{Tracker: s.tracker, Gate: gate, Recorder: s.recorder, Trial: s.cfg.Trial, Logger: sess.log}
	s.mu.Unlock()

	gate.OnRecord(func(r moderation.Record) {
		if s.cfg.Audit != nil {
			s.cfg.Audit.ModerationChecked(context.Background(), sess.id, r)
		}
	})
	if s.cfg.Audit != nil {
		s.cfg.Audit.SessionStarted(ctx, sess.id, s.cfg.Channel, s.cfg.Model, s.now())
	}
	sess.log.Info("session connecting", zap.String("model", s.cfg.Model))
	s.notify()

	secret, err := s.cfg.Credentials.Mint(ctx)
	if err != nil {
		return s.fail(sess, fmt.Sprintf("Failed to create session credentials: %v", err), err)
	}
	if !s.live(sess) {
		return ErrNoSession
	}

	media, err := s.cfg.Media.Acquire(ctx)
	if err != nil {
		return s.fail(sess, fmt.Sprintf("Failed to acquire audio: %v", err), err)
	}
	if !s.attach(sess, func() { sess.media = media }) {
		releaseMedia(sess.log, media)
		return ErrNoSession
	}

	tr, err := s.cfg.Dialer.Dial(ctx, secret)
	if err != nil {
		return s.fail(sess, fmt.Sprintf("Failed to connect: %v", err), err)
	}
	if !s.attach(sess, func() { sess.transport = tr }) {
		_ = tr.Close()
		return ErrNoSession
	}
	unsub := tr.Subscribe(func(ev realtime.Event) { s.dispatch(sess, ev) })
	if !s.attach(sess, func() { sess.unsubscribe = unsub }) {
		unsub()
		return ErrNoSession
	}

	cfg := s.cfg.Session
	if len(cfg.Tools) == 0 {
		cfg.Tools = toolDefinitions()
	}
	if err := tr.Configure(ctx, cfg); err != nil {
		return s.fail(sess, fmt.Sprintf("Failed to configure session: %v", err), err)
	}
	if media.Capture != nil {
		media.Capture.Stream(func(chunk []byte) {
			if err := tr.AppendAudio(chunk); err != nil && !errors.Is(err, realtime.ErrClosed) {
				sess.log.Debug("append audio failed", zap.Error(err))
			}
		})
	}

	s.mu.Lock()
	if s.sess != sess {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.status = StatusConnected
	s.mu.Unlock()
	sess.log.Info("session connected")
	s.notify()

	if strings.TrimSpace(s.cfg.Greeting) != "" {
		if err := tr.CreateResponse(ctx, s.cfg.Greeting); err != nil {
			sess.log.Warn("greeting failed", zap.Error(err))
		}
	}
	return nil
}

// Disconnect tears down any session and clears all per-session state.
func (s *Supervisor) Disconnect(ctx context.Context) {
	s.mu.Lock()
	sess := s.sess
	s.sess = nil
	report := s.snapshotLocked()
	report.Status = StatusIdle
	s.status = StatusIdle
	s.errMsg = ""
	s.sessionID = ""
	s.resetLocked()
	s.mu.Unlock()

	if sess != nil {
		s.teardown(sess)
		sess.log.Info("session disconnected")
		// a session that already failed was closed out by fail
		s.finish(ctx, report)
	}
	s.notify()
}

// Interrupt drops queued agent audio.
func (s *Supervisor) Interrupt() {
	s.mu.Lock()
	sess := s.sess
	s.mu.Unlock()
	if sess == nil {
		return
	}
	if p := s.playback(sess); p != nil {
		p.Interrupt()
	}
}

// playback returns sess's playback, read under the lock that guards attach.
func (s *Supervisor) playback(sess *session) Playback {
	s.mu.Lock()
	defer s.mu.Unlock()
	if sess.media == nil {
		return nil
	}
	return sess.media.Playback
}

// Snapshot returns a copy of the observable session state.
func (s *Supervisor) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

func (s *Supervisor) snapshotLocked() Snapshot {
	snap := Snapshot{
		SessionID:  s.sessionID,
		Channel:    s.cfg.Channel,
		Status:     s.status,
		Error:      s.errMsg,
		History:    append([]Turn{}, s.history...),
		Moderation: append([]moderation.Record{}, s.modLog.Records()...),
		Anomalies:  append([]Anomaly{}, s.anomalies...),
	}
	if u, ok := s.tracker.Current(); ok {
		snap.Guardrail = &u
	}
	if e, ok := s.recorder.Summary(); ok {
		snap.Eligibility = &e
	}
	return snap
}

// resetLocked replaces the per-session observability state. Stale completions
// still holding the old components write into objects nobody reads.
func (s *Supervisor) resetLocked() {
	s.history = nil
	s.anomalies = nil
	s.tracker = guardrail.NewTracker()
	s.modLog = moderation.NewLog(moderation.LogCapacity)
	s.recorder = eligibility.NewRecorder()
}

func (s *Supervisor) live(sess *session) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sess == sess
}

// attach runs set under the lock if sess is still current.
func (s *Supervisor) attach(sess *session, set func()) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.sess != sess {
		return false
	}
	set()
	return true
}

// fail tears sess down and then surfaces msg. Calls for a session that is no
// longer current are ignored.
func (s *Supervisor) fail(sess *session, msg string, cause error) error {
	s.mu.Lock()
	if s.sess != sess {
		s.mu.Unlock()
		return ErrNoSession
	}
	s.sess = nil
	s.mu.Unlock()

	s.teardown(sess)

	s.mu.Lock()
	s.status = StatusError
	s.errMsg = msg
	report := s.snapshotLocked()
	s.mu.Unlock()

	sess.log.Warn("session failed", zap.String("message", msg), zap.Error(cause))
	s.finish(context.Background(), report)
	s.notify()
	if cause == nil {
		cause = errors.New(msg)
	}
	return cause
}

// teardown releases sess in a fixed order: handlers, analyzer, capture,
// playback, transport.
func (s *Supervisor) teardown(sess *session) {
	if sess.unsubscribe != nil {
		sess.unsubscribe()
	}
	if sess.media != nil {
		releaseMedia(sess.log, sess.media)
	}
	if sess.transport != nil {
		if err := sess.transport.Close(); err != nil {
			sess.log.Debug("transport close", zap.Error(err))
		}
	}
}

func releaseMedia(log *zap.Logger, m *Media) {
	if m.Analyzer != nil {
		if err := m.Analyzer.Close(); err != nil {
			log.Debug("analyzer close", zap.Error(err))
		}
	}
	if m.Capture != nil {
		if err := m.Capture.Close(); err != nil {
			log.Debug("capture close", zap.Error(err))
		}
	}
	if m.Playback != nil {
		if err := m.Playback.Close(); err != nil {
			log.Debug("playback close", zap.Error(err))
		}
	}
}

// finish closes out the audit trail and archives the report.
func (s *Supervisor) finish(ctx context.Context, report Snapshot) {
	if report.SessionID == "" {
		return
	}
	if s.cfg.Audit != nil {
		s.cfg.Audit.SessionEnded(ctx, report.SessionID, string(report.Status), report.Error, s.now())
	}
	if s.cfg.Archiver != nil {
		actx, cancel := context.WithTimeout(context.WithoutCancel(ctx), archiveTimeout)
		defer cancel()
		if err := s.cfg.Archiver.Archive(actx, report.SessionID, report); err != nil {
			s.log.Warn("archive report failed", zap.String("session_id", report.SessionID), zap.Error(err))
		}
	}
}

func (s *Supervisor) notify() {
	if s.cfg.Observer == nil {
		return
	}
	s.cfg.Observer(s.Snapshot())
}

func toolDefinitions() []realtime.Tool {
	defs := tools.Definitions()
	out := make([]realtime.Tool, 0, len(defs))
	for _, d := range defs {
		out = append(out, realtime.Tool{Type: d.Type, Name: d.Name, Description: d.Description, Parameters: d.Parameters})
	}
	return out
}
