// Package rtc bridges a browser WebRTC peer to a session supervisor: mic
// audio flows to the realtime model, agent audio is paced back out as Opus,
// and a "control" data channel drives connect/disconnect.
package rtc

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hraban/opus"
	"github.com/pion/interceptor"
	"github.com/pion/webrtc/v3"
	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/supervisor"
)

// SessionDescription is a small DTO to avoid exposing webrtc types in transport.
type SessionDescription struct {
	Type string `json:"type"`
	SDP  string `json:"sdp"`
}

// Factory builds the supervisor for one peer.
type Factory func(log *zap.Logger, media supervisor.MediaSource, observer func(supervisor.Snapshot)) *supervisor.Supervisor

// Handler accepts offers and runs one supervised session per peer.
type Handler struct {
	newSupervisor Factory
	iceServers    []webrtc.ICEServer
	log           *zap.Logger
}

func NewHandler(f Factory, iceServers []webrtc.ICEServer, log *zap.Logger) *Handler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Handler{newSupervisor: f, iceServers: iceServers, log: log}
}

// ParseICEServers decodes ICE_SERVERS_JSON, falling back to a public STUN server.
func ParseICEServers(iceJSON string) []webrtc.ICEServer {
	var servers []webrtc.ICEServer
	if err := json.Unmarshal([]byte(iceJSON), &servers); err == nil && len(servers) > 0 {
		return servers
	}
	return []webrtc.ICEServer{{URLs: []string{"stun:stun.l.google.com:19302"}}}
}

// HandleOffer accepts an SDP offer and returns an SDP answer.
func (h *Handler) HandleOffer(ctx context.Context, offer SessionDescription) (SessionDescription, error) {
	if offer.Type != "offer" || offer.SDP == "" {
		return SessionDescription{}, errors.New("invalid offer")
	}

	mediaEngine := &webrtc.MediaEngine{}
	if err := mediaEngine.RegisterDefaultCodecs(); err != nil {
		return SessionDescription{}, err
	}
	ir := &interceptor.Registry{}
	if err := webrtc.RegisterDefaultInterceptors(mediaEngine, ir); err != nil {
		return SessionDescription{}, err
	}
	api := webrtc.NewAPI(webrtc.WithMediaEngine(mediaEngine), webrtc.WithInterceptorRegistry(ir))

	pc, err := api.NewPeerConnection(webrtc.Configuration{ICEServers: h.iceServers})
	if err != nil {
		return SessionDescription{}, err
	}
	outTrack, err := webrtc.NewTrackLocalStaticSample(webrtc.RTPCodecCapability{MimeType: webrtc.MimeTypeOpus, ClockRate: 48000, Channels: 1}, "agent-audio", "agent")
	if err != nil {
		_ = pc.Close()
		return SessionDescription{}, err
	}
	if _, err := pc.AddTrack(outTrack); err != nil {
		_ = pc.Close()
		return SessionDescription{}, err
	}

	p := newPeer(pc, outTrack, h.log)
	p.sup = h.newSupervisor(p.log, supervisor.MediaFunc(p.acquire), p.sendSnapshot)
	p.attach()

	remoteOffer := webrtc.SessionDescription{Type: webrtc.SDPTypeOffer, SDP: offer.SDP}
	if err := pc.SetRemoteDescription(remoteOffer); err != nil {
		p.close()
		return SessionDescription{}, err
	}
	answer, err := pc.CreateAnswer(nil)
	if err != nil {
		p.close()
		return SessionDescription{}, err
	}
	gatherComplete := webrtc.GatheringCompletePromise(pc)
	if err := pc.SetLocalDescription(answer); err != nil {
		p.close()
		return SessionDescription{}, err
	}
	select {
	case <-gatherComplete:
	case <-ctx.Done():
		p.close()
		return SessionDescription{}, ctx.Err()
	}
	local := pc.LocalDescription()
	if local == nil {
		p.close()
		return SessionDescription{}, errors.New("no local description")
	}
	return SessionDescription{Type: "answer", SDP: local.SDP}, nil
}

// peer is one browser connection and the media it exposes to its supervisor.
type peer struct {
	id  string
	pc  *webrtc.PeerConnection
	out *webrtc.TrackLocalStaticSample
	log *zap.Logger
	sup *supervisor.Supervisor

	ctx    context.Context
	cancel context.CancelFunc

	trackReady chan struct{}
	readyOnce  sync.Once
	closeOnce  sync.Once

	mu      sync.Mutex
	dc      *webrtc.DataChannel
	capture *micCapture
}

func newPeer(pc *webrtc.PeerConnection, out *webrtc.TrackLocalStaticSample, log *zap.Logger) *peer {
	ctx, cancel := context.WithCancel(context.Background())
	id := uuid.NewString()
	return &peer{
		id:         id,
		pc:         pc,
		out:        out,
		log:        log.With(zap.String("peer_id", id)),
		ctx:        ctx,
		cancel:     cancel,
		trackReady: make(chan struct{}),
	}
}

func (p *peer) attach() {
	p.pc.OnConnectionStateChange(func(state webrtc.PeerConnectionState) {
		p.log.Info("peer connection state", zap.String("state", state.String()))
		switch state {
		case webrtc.PeerConnectionStateFailed, webrtc.PeerConnectionStateClosed, webrtc.PeerConnectionStateDisconnected:
			p.close()
		}
	})
	p.pc.OnICEConnectionStateChange(func(state webrtc.ICEConnectionState) {
		p.log.Debug("ice state", zap.String("state", state.String()))
	})
	p.pc.OnDataChannel(func(dc *webrtc.DataChannel) {
		if dc.Label() != "control" {
			return
		}
		p.mu.Lock()
		p.dc = dc
		p.mu.Unlock()
		p.log.Info("control channel opened")
		dc.OnOpen(func() { p.sendSnapshot(p.sup.Snapshot()) })
		dc.OnMessage(func(msg webrtc.DataChannelMessage) { p.handleControl(parseControl(msg.Data)) })
	})
	p.pc.OnTrack(func(remote *webrtc.TrackRemote, _ *webrtc.RTPReceiver) {
		if remote.Kind() != webrtc.RTPCodecTypeAudio {
			return
		}
		p.log.Info("remote audio track received", zap.String("codec", remote.Codec().MimeType))
		go p.readMic(remote)
		p.readyOnce.Do(func() { close(p.trackReady) })
	})
}

func (p *peer) handleControl(cmd string) {
	switch cmd {
	case "connect":
		go func() {
			if err := p.sup.Connect(p.ctx); err != nil {
				p.log.Warn("connect failed", zap.Error(err))
			}
		}()
	case "disconnect":
		go p.sup.Disconnect(p.ctx)
	case "stop", "stop-speaking", "cancel", "barge-in":
		p.sup.Interrupt()
	case "":
	default:
		p.log.Debug("unknown control command", zap.String("cmd", cmd))
	}
}

// parseControl accepts either a bare command or {"type":"<command>"}.
func parseControl(data []byte) string {
	s := strings.TrimSpace(string(data))
	if strings.HasPrefix(s, "{") {
		var m struct {
			Type string `json:"type"`
		}
		if json.Unmarshal([]byte(s), &m) != nil {
			return ""
		}
		s = m.Type
	}
	return strings.ToLower(strings.TrimSpace(s))
}

// acquire hands the supervisor fresh media for a new session once the
// browser's microphone track has arrived.
func (p *peer) acquire(ctx context.Context) (*supervisor.Media, error) {
	select {
	case <-p.trackReady:
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-p.ctx.Done():
		return nil, errors.New("peer closed")
	}
	playback, err := NewOpusPacedWriter(p.out, SampleRate)
	if err != nil {
		return nil, err
	}
	meter := NewLevelMeter(100*time.Millisecond, p.sendLevel)
	capture := newMicCapture(meter)
	p.mu.Lock()
	p.capture = capture
	p.mu.Unlock()
	return &supervisor.Media{Analyzer: meter, Capture: capture, Playback: playback}, nil
}

// readMic decodes the browser's Opus track for the lifetime of the peer and
// forwards PCM to whichever capture is current.
func (p *peer) readMic(remote *webrtc.TrackRemote) {
	dec, err := opus.NewDecoder(SampleRate, 1)
	if err != nil {
		p.log.Error("opus decoder", zap.Error(err))
		return
	}
	samples := make([]int16, SampleRate*120/1000)
	for {
		pkt, _, err := remote.ReadRTP()
		if err != nil {
			p.log.Debug("rtp read ended", zap.Error(err))
			return
		}
		if len(pkt.Payload) == 0 {
			continue
		}
		n, err := dec.Decode(pkt.Payload, samples)
		if err != nil {
			p.log.Debug("opus decode", zap.Error(err))
			continue
		}
		p.mu.Lock()
		c := p.capture
		p.mu.Unlock()
		if c != nil {
			c.writeSamples(samples[:n])
		}
	}
}

type controlMessage struct {
	Type     string               `json:"type"`
	Snapshot *supervisor.Snapshot `json:"snapshot,omitempty"`
	Level    *Level               `json:"level,omitempty"`
}

func (p *peer) sendSnapshot(s supervisor.Snapshot) { p.send(controlMessage{Type: "snapshot", Snapshot: &s}) }

func (p *peer) sendLevel(l Level) { p.send(controlMessage{Type: "level", Level: &l}) }

func (p *peer) send(m controlMessage) {
	p.mu.Lock()
	dc := p.dc
	p.mu.Unlock()
	if dc == nil || dc.ReadyState() != webrtc.DataChannelStateOpen {
		return
	}
	b, err := json.Marshal(m)
	if err != nil {
		return
	}
	if err := dc.SendText(string(b)); err != nil {
		p.log.Debug("control send", zap.Error(err))
	}
}

func (p *peer) close() {
	p.closeOnce.Do(func() {
		p.cancel()
		if p.sup != nil {
			p.sup.Disconnect(context.Background())
		}
		_ = p.pc.Close()
		p.log.Info("peer closed")
	})
}
