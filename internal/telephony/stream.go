package telephony

import (
	"context"
	"encoding/base64"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"
)

// streamMessage is a Twilio Media Streams frame in either direction.
type streamMessage struct {
	Event     string       `json:"event"`
	StreamSID string       `json:"streamSid,omitempty"`
	Start     *streamStart `json:"start,omitempty"`
	Media     *streamMedia `json:"media,omitempty"`
}

type streamStart struct {
	StreamSID        string            `json:"streamSid"`
	CallSID          string            `json:"callSid"`
	CustomParameters map[string]string `json:"customParameters"`
}

type streamMedia struct {
	Payload string `json:"payload"`
}

// CallHanger ends a live call.
type CallHanger interface {
	Hangup(ctx context.Context, callSID string) error
}

// callStream is one phone call's media stream. Its capture and playback
// halves are handed to the supervisor as the session's media.
type callStream struct {
	ws        *websocket.Conn
	streamSID string
	callSID   string
	hanger    CallHanger
	log       *zap.Logger

	writeMu sync.Mutex

	mu          sync.Mutex
	sink        func([]byte)
	remoteEnded bool
	hungUp      bool
}

func (s *callStream) write(m streamMessage) error {
	s.writeMu.Lock()
	defer s.writeMu.Unlock()
	_ = s.ws.SetWriteDeadline(time.Now().Add(5 * time.Second))
	return s.ws.WriteJSON(m)
}

// deliver forwards an inbound μ-law payload to the session.
func (s *callStream) deliver(payload string) {
	b, err := base64.StdEncoding.DecodeString(payload)
	if err != nil || len(b) == 0 {
		return
	}
	s.mu.Lock()
	sink := s.sink
	s.mu.Unlock()
	if sink != nil {
		sink(b)
	}
}

func (s *callStream) markRemoteEnded() {
	s.mu.Lock()
	s.remoteEnded = true
	s.mu.Unlock()
}

type streamCapture struct{ s *callStream }

func (c streamCapture) Stream(fn func([]byte)) {
	c.s.mu.Lock()
	c.s.sink = fn
	c.s.mu.Unlock()
}

// Close detaches the caller's audio and hangs up unless the caller already did.
func (c streamCapture) Close() error {
	c.s.mu.Lock()
	c.s.sink = nil
	hangup := !c.s.remoteEnded && !c.s.hungUp && c.s.hanger != nil && c.s.callSID != ""
	c.s.hungUp = c.s.hungUp || hangup
	c.s.mu.Unlock()
	if !hangup {
		return nil
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := c.s.hanger.Hangup(ctx, c.s.callSID); err != nil {
		c.s.log.Warn("hangup failed", zap.String("call_sid", c.s.callSID), zap.Error(err))
		return err
	}
	c.s.log.Info("call hung up", zap.String("call_sid", c.s.callSID))
	return nil
}

type streamPlayback struct{ s *callStream }

// Play sends agent μ-law audio back into the call.
func (p streamPlayback) Play(chunk []byte) {
	if len(chunk) == 0 {
		return
	}
	err := p.s.write(streamMessage{
		Event:     "media",
		StreamSID: p.s.streamSID,
		Media:     &streamMedia{Payload: base64.StdEncoding.EncodeToString(chunk)},
	})
	if err != nil {
		p.s.log.Debug("stream media write", zap.Error(err))
	}
}

// Interrupt clears Twilio's buffered playback.
func (p streamPlayback) Interrupt() {
	if err := p.s.write(streamMessage{Event: "clear", StreamSID: p.s.streamSID}); err != nil {
		p.s.log.Debug("stream clear write", zap.Error(err))
	}
}

func (p streamPlayback) Close() error { return nil }
