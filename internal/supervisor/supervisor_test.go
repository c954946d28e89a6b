package supervisor

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ainergiz/oai-realtime/internal/credentials"
	"github.com/ainergiz/oai-realtime/internal/eligibility"
	"github.com/ainergiz/oai-realtime/internal/guardrail"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/realtime"
	"github.com/ainergiz/oai-realtime/internal/tools"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

type orderLog struct {
	mu     sync.Mutex
	events []string
}

func (o *orderLog) add(e string) {
	o.mu.Lock()
	o.events = append(o.events, e)
	o.mu.Unlock()
}

func (o *orderLog) list() []string {
	o.mu.Lock()
	defer o.mu.Unlock()
	return append([]string(nil), o.events...)
}

type toolResult struct {
	CallID string
	Output any
}

type fakeTransport struct {
	order *orderLog

	mu         sync.Mutex
	fn         func(realtime.Event)
	configured []realtime.SessionConfig
	results    []toolResult
	responses  []string
	appended   int
	closed     bool
}

func (t *fakeTransport) Subscribe(fn func(realtime.Event)) func() {
	t.mu.Lock()
	t.fn = fn
	t.mu.Unlock()
	return func() {
		t.order.add("unsubscribe")
		t.mu.Lock()
		t.fn = nil
		t.mu.Unlock()
	}
}

func (t *fakeTransport) emit(ev realtime.Event) {
	t.mu.Lock()
	fn := t.fn
	t.mu.Unlock()
	if fn != nil {
		fn(ev)
	}
}

func (t *fakeTransport) Configure(_ context.Context, cfg realtime.SessionConfig) error {
	t.mu.Lock()
	t.configured = append(t.configured, cfg)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) AppendAudio(chunk []byte) error {
	t.mu.Lock()
	t.appended++
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) SendToolResult(_ context.Context, callID string, output any) error {
	t.mu.Lock()
	t.results = append(t.results, toolResult{callID, output})
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) CreateResponse(_ context.Context, instructions string) error {
	t.mu.Lock()
	t.responses = append(t.responses, instructions)
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) Close() error {
	t.order.add("transport")
	t.mu.Lock()
	t.closed = true
	t.mu.Unlock()
	return nil
}

func (t *fakeTransport) resultCount() int {
	t.mu.Lock()
	defer t.mu.Unlock()
	return len(t.results)
}

func (t *fakeTransport) lastResult() toolResult {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.results[len(t.results)-1]
}

type closer struct {
	order *orderLog
	name  string
}

func (c closer) Close() error { c.order.add(c.name); return nil }

type fakeCapture struct {
	closer
	sink func([]byte)
}

func (c *fakeCapture) Stream(fn func([]byte)) { c.sink = fn }

type fakePlayback struct {
	closer
	mu         sync.Mutex
	played     int
	interrupts int
}

func (p *fakePlayback) Play(chunk []byte) { p.mu.Lock(); p.played++; p.mu.Unlock() }
func (p *fakePlayback) Interrupt()        { p.mu.Lock(); p.interrupts++; p.mu.Unlock() }

type fakeCreds struct {
	calls int32
	err   error
	block chan struct{}
}

func (c *fakeCreds) Mint(ctx context.Context) (credentials.ClientSecret, error) {
	atomic.AddInt32(&c.calls, 1)
	if c.block != nil {
		<-c.block
	}
	if c.err != nil {
		return credentials.ClientSecret{}, c.err
	}
	return credentials.ClientSecret{ID: "cs_1", Value: "ek_test", ExpiresAt: time.Now().Add(time.Minute).Unix()}, nil
}

type fakeClassifier struct {
	started chan struct{}
	release chan struct{}
}

func (c *fakeClassifier) Moderate(ctx context.Context, text string) (json.RawMessage, error) {
	if c.started != nil {
		c.started <- struct{}{}
	}
	if c.release != nil {
		<-c.release
	}
	return json.RawMessage(`{"results":[{"flagged":false,"categories":{"violence":false}}]}`), nil
}

type fakeAudit struct {
	mu         sync.Mutex
	started    int
	guardrails []bool
	moderation int
	eligible   int
	anomalies  []string
	ended      []string
}

func (a *fakeAudit) SessionStarted(context.Context, string, string, string, time.Time) {
	a.mu.Lock()
	a.started++
	a.mu.Unlock()
}
func (a *fakeAudit) GuardrailDeclared(_ context.Context, _ string, _ guardrail.Update, high bool, _ time.Time) {
	a.mu.Lock()
	a.guardrails = append(a.guardrails, high)
	a.mu.Unlock()
}
func (a *fakeAudit) ModerationChecked(context.Context, string, moderation.Record) {
	a.mu.Lock()
	a.moderation++
	a.mu.Unlock()
}
func (a *fakeAudit) EligibilityRecorded(context.Context, string, eligibility.Summary) {
	a.mu.Lock()
	a.eligible++
	a.mu.Unlock()
}
func (a *fakeAudit) AnomalyDetected(_ context.Context, _, kind, _ string, _ time.Time) {
	a.mu.Lock()
	a.anomalies = append(a.anomalies, kind)
	a.mu.Unlock()
}
func (a *fakeAudit) SessionEnded(_ context.Context, _, status, _ string, _ time.Time) {
	a.mu.Lock()
	a.ended = append(a.ended, status)
	a.mu.Unlock()
}

type fakeArchiver struct {
	mu      sync.Mutex
	reports []Snapshot
}

func (f *fakeArchiver) Archive(_ context.Context, _ string, report any) error {
	f.mu.Lock()
	f.reports = append(f.reports, report.(Snapshot))
	f.mu.Unlock()
	return nil
}

type harness struct {
	sup        *Supervisor
	order      *orderLog
	tr         *fakeTransport
	capture    *fakeCapture
	playback   *fakePlayback
	creds      *fakeCreds
	classifier *fakeClassifier
	audit      *fakeAudit
	archiver   *fakeArchiver
	acquired   int32
}

func newHarness(t *testing.T, logger *zap.Logger) *harness {
	t.Helper()
	if logger == nil {
		logger = zaptest.NewLogger(t)
	}
	doc, err := trialinfo.Load("")
	if err != nil {
		t.Fatalf("trial info: %v", err)
	}
	order := &orderLog{}
	h := &harness{
		order:      order,
		tr:         &fakeTransport{order: order},
		capture:    &fakeCapture{closer: closer{order, "capture"}},
		playback:   &fakePlayback{closer: closer{order: order, name: "playback"}},
		creds:      &fakeCreds{},
		classifier: &fakeClassifier{},
		audit:      &fakeAudit{},
		archiver:   &fakeArchiver{},
	}
	h.sup = New(Config{
		Channel:     "web",
		Model:       "gpt-realtime-mini",
		Greeting:    "Greet the caller.",
		Credentials: h.creds,
		Dialer: DialFunc(func(ctx context.Context, s credentials.ClientSecret) (Transport, error) {
			return h.tr, nil
		}),
		Media: MediaFunc(func(ctx context.Context) (*Media, error) {
			atomic.AddInt32(&h.acquired, 1)
			return &Media{Analyzer: closer{order, "analyzer"}, Capture: h.capture, Playback: h.playback}, nil
		}),
		Classifier: h.classifier,
		Trial:      doc,
		Audit:      h.audit,
		Archiver:   h.archiver,
		Logger:     logger,
	})
	return h
}

func (h *harness) connect(t *testing.T) {
	t.Helper()
	if err := h.sup.Connect(context.Background()); err != nil {
		t.Fatalf("connect: %v", err)
	}
	if st, msg := h.sup.Status(); st != StatusConnected {
		t.Fatalf("expected connected, got %s (%s)", st, msg)
	}
}

func (h *harness) call(name, args string) {
	h.tr.emit(realtime.Event{Kind: realtime.KindFunctionCall, CallID: "call_" + name, Name: name, Arguments: args})
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("condition not met in time")
}

func TestConnect_ConfiguresToolsAndGreets(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	if len(h.tr.configured) != 1 {
		t.Fatalf("expected one session.update, got %d", len(h.tr.configured))
	}
	names := map[string]bool{}
	for _, tool := range h.tr.configured[0].Tools {
		names[tool.Name] = true
	}
	for _, n := range []string{"guardrail_state", "record_eligibility", "moderation_check", "lookup_info"} {
		if !names[n] {
			t.Fatalf("tool %s not advertised", n)
		}
	}
	if len(h.tr.responses) != 1 || h.tr.responses[0] != "Greet the caller." {
		t.Fatalf("expected greeting response, got %v", h.tr.responses)
	}
	if !h.sup.HasMedia() {
		t.Fatalf("expected media to be held while connected")
	}
	h.capture.sink([]byte{1, 2})
	if h.tr.appended != 1 {
		t.Fatalf("expected captured audio to reach the transport")
	}
}

func TestConnect_IgnoredWhileConnecting(t *testing.T) {
	h := newHarness(t, nil)
	h.creds.block = make(chan struct{})

	done := make(chan error, 1)
	go func() { done <- h.sup.Connect(context.Background()) }()
	eventually(t, func() bool { return atomic.LoadInt32(&h.creds.calls) == 1 })

	if st, _ := h.sup.Status(); st != StatusConnecting {
		t.Fatalf("expected connecting, got %s", st)
	}
	if err := h.sup.Connect(context.Background()); err != nil {
		t.Fatalf("second connect should be a no-op, got %v", err)
	}
	close(h.creds.block)
	if err := <-done; err != nil {
		t.Fatalf("connect: %v", err)
	}
	if n := atomic.LoadInt32(&h.creds.calls); n != 1 {
		t.Fatalf("expected one credential request, got %d", n)
	}
	if err := h.sup.Connect(context.Background()); err != nil {
		t.Fatalf("connect while connected: %v", err)
	}
	if n := atomic.LoadInt32(&h.acquired); n != 1 {
		t.Fatalf("expected media acquired once, got %d", n)
	}
}

func TestGuardrail_EmergencyTerminatesSession(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)

	h.call("guardrail_state", `{"state":"screening","action":"escalate-crisis","violations":["emergency-signal"]}`)

	st, msg := h.sup.Status()
	if st != StatusError {
		t.Fatalf("expected error status, got %s", st)
	}
	if msg != "Guardrail triggered: emergency-signal" {
		t.Fatalf("unexpected message %q", msg)
	}
	if h.sup.HasMedia() {
		t.Fatalf("expected media reference to be cleared")
	}
	want := []string{"unsubscribe", "analyzer", "capture", "playback", "transport"}
	if got := h.order.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("teardown order = %v, want %v", got, want)
	}
	snap := h.sup.Snapshot()
	if snap.Guardrail == nil || snap.Guardrail.Violations[0] != guardrail.ViolationEmergencySignal {
		t.Fatalf("expected declaration to stay visible after termination, got %+v", snap.Guardrail)
	}
	if len(h.audit.guardrails) != 1 || !h.audit.guardrails[0] {
		t.Fatalf("expected high-severity audit entry, got %v", h.audit.guardrails)
	}
	if len(h.audit.ended) != 1 || h.audit.ended[0] != "error" {
		t.Fatalf("expected session closed out as error, got %v", h.audit.ended)
	}
	if len(h.archiver.reports) != 1 || h.archiver.reports[0].Error != msg {
		t.Fatalf("expected archived report with the termination message")
	}
	// no follow-up response is requested from a terminated agent
	if len(h.tr.responses) != 1 {
		t.Fatalf("expected only the greeting response, got %v", h.tr.responses)
	}

	// events after teardown are ignored
	h.tr.emit(realtime.Event{Kind: realtime.KindError, Message: "late"})
	if _, msg2 := h.sup.Status(); msg2 != msg {
		t.Fatalf("stale event changed message to %q", msg2)
	}
}

func TestGuardrail_RiskNotesBecomeMessage(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("guardrail_state", `{"state":"age-gate","action":"goodbye","violations":["minor-user"],"risk_notes":"Participant said they are 15."}`)
	if st, msg := h.sup.Status(); st != StatusError || msg != "Participant said they are 15." {
		t.Fatalf("got %s %q", st, msg)
	}
}

func TestGuardrail_LowSeverityContinues(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("guardrail_state", `{"state":"trial-info","action":"refuse","violations":["medical-advice","out-of-scope"]}`)

	if st, _ := h.sup.Status(); st != StatusConnected {
		t.Fatalf("expected session to continue, got %s", st)
	}
	b, _ := json.Marshal(h.tr.lastResult().Output)
	if string(b) != `{"acknowledged":true}` {
		t.Fatalf("unexpected ack %s", b)
	}
	if len(h.tr.responses) != 2 {
		t.Fatalf("expected response.create after the ack, got %v", h.tr.responses)
	}
}

func TestGuardrail_InvalidPayloadDeclined(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("guardrail_state", `{"state":"screening","action":"ask"}`)
	h.call("guardrail_state", `{"state":"panic","action":"ask","violations":["emergency-signal"]}`)

	if st, _ := h.sup.Status(); st != StatusConnected {
		t.Fatalf("invalid payload must not terminate, got %s", st)
	}
	b, _ := json.Marshal(h.tr.lastResult().Output)
	if string(b) != `{"acknowledged":false,"error":"invalid_guardrail_state_payload"}` {
		t.Fatalf("unexpected decline %s", b)
	}
	snap := h.sup.Snapshot()
	if snap.Guardrail == nil || snap.Guardrail.State != guardrail.StateScreening {
		t.Fatalf("tracked state must be unchanged by an invalid payload, got %+v", snap.Guardrail)
	}
}

func TestEligibility_RecordedAndAudited(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("record_eligibility", `{"eligibility":"review","reasons":[" low HIT-6 score "]}`)

	snap := h.sup.Snapshot()
	if snap.Eligibility == nil || !reflect.DeepEqual(snap.Eligibility.Reasons, []string{"low HIT-6 score"}) {
		t.Fatalf("unexpected eligibility %+v", snap.Eligibility)
	}
	if h.audit.eligible != 1 {
		t.Fatalf("expected eligibility audit")
	}
}

func TestTransportError_TearsDown(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.tr.emit(realtime.Event{Kind: realtime.KindError, Code: "server_error", Message: "boom"})

	st, msg := h.sup.Status()
	if st != StatusError || msg != "Realtime error: boom" {
		t.Fatalf("got %s %q", st, msg)
	}
	if !h.tr.closed || h.sup.HasMedia() {
		t.Fatalf("expected resources released")
	}
}

func TestTransportClosed_TearsDown(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.tr.emit(realtime.Event{Kind: realtime.KindClosed, Err: errors.New("EOF")})
	if st, msg := h.sup.Status(); st != StatusError || msg != "Connection lost: EOF" {
		t.Fatalf("got %s %q", st, msg)
	}
}

func TestConnect_CredentialFailure(t *testing.T) {
	h := newHarness(t, nil)
	h.creds.err = &credentials.StatusError{Status: 401}
	if err := h.sup.Connect(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	if st, _ := h.sup.Status(); st != StatusError {
		t.Fatalf("expected error status, got %s", st)
	}
	if atomic.LoadInt32(&h.acquired) != 0 {
		t.Fatalf("media must not be acquired after credential failure")
	}
	// a new connect is allowed from error
	h.creds.err = nil
	h.connect(t)
}

func TestConnect_DialFailureReleasesMedia(t *testing.T) {
	h := newHarness(t, nil)
	h.sup.cfg.Dialer = DialFunc(func(context.Context, credentials.ClientSecret) (Transport, error) {
		return nil, errors.New("handshake failed")
	})
	if err := h.sup.Connect(context.Background()); err == nil {
		t.Fatalf("expected error")
	}
	want := []string{"analyzer", "capture", "playback"}
	if got := h.order.list(); !reflect.DeepEqual(got, want) {
		t.Fatalf("release order = %v, want %v", got, want)
	}
}

func TestDisconnect_ClearsState(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("guardrail_state", `{"state":"screening","action":"ask","pii_requested":["age"]}`)
	h.tr.emit(realtime.Event{Kind: realtime.KindUserTranscript, Transcript: "I'm 34"})
	h.tr.emit(realtime.Event{Kind: realtime.KindAssistantTranscript, Transcript: "Thanks."})
	h.call("record_eligibility", `{"eligibility":"eligible","reasons":["fits"]}`)
	h.call("moderation_check", `{"text":"hello","phase":"user-input"}`)
	eventually(t, func() bool { return len(h.sup.Snapshot().Moderation) == 1 })

	h.sup.Disconnect(context.Background())

	snap := h.sup.Snapshot()
	if snap.Status != StatusIdle || snap.Error != "" {
		t.Fatalf("expected idle, got %+v", snap)
	}
	if len(snap.History) != 0 || snap.Guardrail != nil || len(snap.Moderation) != 0 || snap.Eligibility != nil || len(snap.Anomalies) != 0 {
		t.Fatalf("expected cleared state, got %+v", snap)
	}
	if h.sup.HasMedia() {
		t.Fatalf("expected media released")
	}
	if len(h.archiver.reports) != 1 || len(h.archiver.reports[0].History) != 2 {
		t.Fatalf("expected the pre-disconnect state to be archived")
	}
	if h.audit.ended[len(h.audit.ended)-1] != "idle" {
		t.Fatalf("expected idle close-out, got %v", h.audit.ended)
	}
}

func TestModeration_ResultReturnedAsync(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.call("moderation_check", `{"text":"I feel fine","phase":"user-input"}`)
	eventually(t, func() bool { return h.tr.resultCount() == 1 })

	v, ok := h.tr.lastResult().Output.(moderation.Verdict)
	if !ok || !v.Moderated || v.Flagged == nil || *v.Flagged {
		t.Fatalf("unexpected verdict %+v", h.tr.lastResult().Output)
	}
	if h.audit.moderation != 1 {
		t.Fatalf("expected moderation audit")
	}
}

func TestModeration_StaleCompletionIgnored(t *testing.T) {
	h := newHarness(t, nil)
	h.classifier.started = make(chan struct{}, 1)
	h.classifier.release = make(chan struct{})
	h.connect(t)

	h.call("moderation_check", `{"text":"hello","phase":"assistant-plan"}`)
	<-h.classifier.started
	h.sup.Disconnect(context.Background())
	close(h.classifier.release)

	time.Sleep(50 * time.Millisecond)
	if n := h.tr.resultCount(); n != 0 {
		t.Fatalf("stale moderation result was sent (%d)", n)
	}
	if n := len(h.sup.Snapshot().Moderation); n != 0 {
		t.Fatalf("stale record leaked into the new state: %d", n)
	}
}

func TestTools_UnsetCollaboratorsAreDeclined(t *testing.T) {
	h := newHarness(t, nil)
	h.sup.cfg.Classifier = nil
	h.sup.cfg.Trial = nil
	h.connect(t)

	h.call("lookup_info", `{"question":"Where are the study sites?"}`)
	if n := h.tr.resultCount(); n != 1 {
		t.Fatalf("expected lookup result, got %d", n)
	}
	if out, ok := h.tr.lastResult().Output.(tools.ErrorResult); !ok || out.Error != tools.ErrTrialUnavailable {
		t.Fatalf("unexpected lookup output %+v", h.tr.lastResult().Output)
	}

	h.call("moderation_check", `{"text":"hello","phase":"user-input"}`)
	eventually(t, func() bool { return h.tr.resultCount() == 2 })
	v, ok := h.tr.lastResult().Output.(moderation.Verdict)
	if !ok || v.Moderated || v.Error != moderation.CodeMissingKey {
		t.Fatalf("unexpected verdict %+v", h.tr.lastResult().Output)
	}
	if st, _ := h.sup.Status(); st != StatusConnected {
		t.Fatalf("session must survive, got %s", st)
	}
	if n := len(h.sup.Snapshot().Moderation); n != 1 {
		t.Fatalf("expected the failed check to be logged, got %d", n)
	}
}

func TestAssistantTurn_WithoutDeclarationIsAnomaly(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	h := newHarness(t, zap.New(core))
	h.connect(t)

	h.tr.emit(realtime.Event{Kind: realtime.KindAssistantTranscript, Transcript: "Hello there."})
	h.call("guardrail_state", `{"state":"consent-pending","action":"ask"}`)
	h.tr.emit(realtime.Event{Kind: realtime.KindAssistantTranscript, Transcript: "Do you consent?"})

	if st, _ := h.sup.Status(); st != StatusConnected {
		t.Fatalf("anomaly must not terminate, got %s", st)
	}
	snap := h.sup.Snapshot()
	if len(snap.Anomalies) != 1 || snap.Anomalies[0].Kind != AnomalyUndeclaredTurn {
		t.Fatalf("expected one anomaly, got %+v", snap.Anomalies)
	}
	if n := logs.FilterMessage("assistant turn without guardrail declaration").Len(); n != 1 {
		t.Fatalf("expected one anomaly log, got %d", n)
	}
	if len(h.audit.anomalies) != 1 {
		t.Fatalf("expected anomaly audit")
	}
}

func TestAudio_PlaybackAndBargeIn(t *testing.T) {
	h := newHarness(t, nil)
	h.connect(t)
	h.tr.emit(realtime.Event{Kind: realtime.KindAudioDelta, Audio: []byte{0, 1}})
	h.tr.emit(realtime.Event{Kind: realtime.KindSpeechStarted})
	h.sup.Interrupt()
	if h.playback.played != 1 || h.playback.interrupts != 2 {
		t.Fatalf("played=%d interrupts=%d", h.playback.played, h.playback.interrupts)
	}
}

func TestInterrupt_DuringConnect(t *testing.T) {
	h := newHarness(t, nil)
	h.creds.block = make(chan struct{})
	done := make(chan error, 1)
	go func() { done <- h.sup.Connect(context.Background()) }()

	stop := make(chan struct{})
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for {
			select {
			case <-stop:
				return
			default:
				h.sup.Interrupt()
			}
		}
	}()
	close(h.creds.block)
	if err := <-done; err != nil {
		t.Fatalf("connect: %v", err)
	}
	close(stop)
	wg.Wait()

	h.playback.mu.Lock()
	before := h.playback.interrupts
	h.playback.mu.Unlock()
	h.sup.Interrupt()
	h.playback.mu.Lock()
	defer h.playback.mu.Unlock()
	if h.playback.interrupts != before+1 {
		t.Fatalf("expected interrupt to reach playback once connected")
	}
}

func TestObserver_ReceivesSnapshots(t *testing.T) {
	h := newHarness(t, nil)
	var mu sync.Mutex
	var statuses []Status
	h.sup.cfg.Observer = func(s Snapshot) {
		mu.Lock()
		statuses = append(statuses, s.Status)
		mu.Unlock()
	}
	h.connect(t)
	h.sup.Disconnect(context.Background())
	mu.Lock()
	defer mu.Unlock()
	want := []Status{StatusConnecting, StatusConnected, StatusIdle}
	if !reflect.DeepEqual(statuses, want) {
		t.Fatalf("statuses = %v, want %v", statuses, want)
	}
}
