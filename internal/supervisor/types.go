package supervisor

import (
	"context"
	"io"
	"time"

	"github.com/ainergiz/oai-realtime/internal/credentials"
	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/realtime"
)

// Status is the supervisor's lifecycle state.
type Status string

const (
	StatusIdle       Status = "idle"
	StatusConnecting Status = "connecting"
	StatusConnected  Status = "connected"
	StatusError      Status = "error"
)

// CredentialSource mints the short-lived secret a transport authenticates with.
type CredentialSource interface {
	Mint(ctx context.Context) (credentials.ClientSecret, error)
}

// Transport is the bidirectional channel to the remote agent.
// *realtime.Conn satisfies it.
type Transport interface {
	Subscribe(fn func(realtime.Event)) (unsubscribe func())
	Configure(ctx context.Context, cfg realtime.SessionConfig) error
	AppendAudio(chunk []byte) error
	SendToolResult(ctx context.Context, callID string, output any) error
	CreateResponse(ctx context.Context, instructions string) error
	Close() error
}

// Dialer opens a transport with a minted secret.
type Dialer interface {
	Dial(ctx context.Context, secret credentials.ClientSecret) (Transport, error)
}

// DialFunc adapts a function to Dialer.
type DialFunc func(ctx context.Context, secret credentials.ClientSecret) (Transport, error)

func (f DialFunc) Dial(ctx context.Context, secret credentials.ClientSecret) (Transport, error) {
	return f(ctx, secret)
}

// Capture is the participant's audio input. Stream installs the sink that
// receives chunks in the transport's input format.
type Capture interface {
	Stream(fn func(chunk []byte))
	Close() error
}

// Playback renders agent audio. Interrupt drops anything queued (barge-in).
type Playback interface {
	Play(chunk []byte)
	Interrupt()
	Close() error
}

// Media is the set of audio resources owned by one session.
type Media struct {
	Analyzer io.Closer
	Capture  Capture
	Playback Playback
}

// MediaSource acquires media for a new session.
type MediaSource interface {
	Acquire(ctx context.Context) (*Media, error)
}

// MediaFunc adapts a function to MediaSource.
type MediaFunc func(ctx context.Context) (*Media, error)

func (f MediaFunc) Acquire(ctx context.Context) (*Media, error) { return f(ctx) }

// AuditSink receives the session's observability trail. Implementations must
// not block for long and must not fail the session.
type AuditSink interface {
	SessionStarted(ctx context.Context, sessionID, channel, model string, at time.Time)
	GuardrailDeclared(ctx context.Context, sessionID string, u guardrail.Update, highSeverity bool, at time.Time)
	ModerationChecked(ctx context.Context, sessionID string, r moderation.Record)
	EligibilityRecorded(ctx context.Context, sessionID string, s eligibility.Summary)
	AnomalyDetected(ctx context.Context, sessionID, kind, detail string, at time.Time)
	SessionEnded(ctx context.Context, sessionID, status, message string, at time.Time)
}

// Archiver stores the end-of-session report.
type Archiver interface {
	Archive(ctx context.Context, sessionID string, report any) error
}

// Turn is one transcript line.
type Turn struct {
	Role string    `json:"role"` // "user" or "assistant"
	Text string    `json:"text"`
	At   time.Time `json:"at"`
}

// Anomaly kinds.
const AnomalyUndeclaredTurn = "undeclared_turn"

// Anomaly is a detected deviation from the declare-before-speaking protocol.
type Anomaly struct {
	Kind   string    `json:"kind"`
	Detail string    `json:"detail"`
	At     time.Time `json:"at"`
}

// Snapshot is a copy of everything a caller may display about the session.
type Snapshot struct {
	SessionID   string               `json:"session_id,omitempty"`
	Channel     string               `json:"channel,omitempty"`
	Status      Status               `json:"status"`
	Error       string               `json:"error,omitempty"`
	History     []Turn               `json:"history"`
	Guardrail   *guardrail.Update    `json:"guardrail,omitempty"`
	Moderation  []moderation.Record  `json:"moderation"`
	Eligibility *eligibility.Summary `json:"eligibility,omitempty"`
	Anomalies   []Anomaly            `json:"anomalies"`
}
