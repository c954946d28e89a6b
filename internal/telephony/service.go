// Package telephony puts the screening agent on the phone: Twilio calls are
// answered with a bidirectional media stream bridged to a session supervisor.
package telephony

import (
	"context"
	"encoding/json"
	"net/http"

	"github.com/gorilla/websocket"
	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go"
	twilioApi "github.com/twilio/twilio-go/rest/api/v2010"
	"github.com/twilio/twilio-go/twiml"
	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/supervisor"
)

// Factory builds the supervisor for one call.
type Factory func(log *zap.Logger, media supervisor.MediaSource, observer func(supervisor.Snapshot)) *supervisor.Supervisor

type Config struct {
	AccountSID    string
	AuthToken     string
	PublicBaseURL string
}

// Service serves the voice webhook and the media stream endpoint.
type Service struct {
	config        Config
	hanger        CallHanger
	newSupervisor Factory
	log           *zap.Logger
	upgrader      websocket.Upgrader
}

func New(config Config, f Factory, log *zap.Logger) *Service {
	if log == nil {
		log = zap.NewNop()
	}
	client := twilio.NewRestClientWithParams(twilio.ClientParams{
		Username: config.AccountSID,
		Password: config.AuthToken,
	})
	return &Service{
		config:        config,
		hanger:        restHanger{client: client},
		newSupervisor: f,
		log:           log,
		upgrader:      websocket.Upgrader{ReadBufferSize: 16384, WriteBufferSize: 16384},
	}
}

func (s *Service) RegisterHandlers(e *echo.Echo) {
	e.POST("/twilio/voice", s.handleVoice, SignatureAuth(s.config.AuthToken, s.config.PublicBaseURL))
	e.GET("/twilio/stream", s.handleStream)
}

func (s *Service) handleVoice(c echo.Context) error {
	params, ok := c.Get(paramsKey).(map[string]string)
	if !ok {
		return c.String(http.StatusInternalServerError, "Failed to get Twilio parameters")
	}
	callSID := params["CallSid"]
	s.log.Info("incoming call", zap.String("call_sid", callSID), zap.String("from", params["From"]))

	streamURL := websocketURL(BuildAbsoluteURL(c.Request(), s.config.PublicBaseURL, "/twilio/stream"))
	stream := &twiml.VoiceStream{
		Url: streamURL,
		InnerElements: []twiml.Element{
			&twiml.VoiceParameter{Name: "token", Value: streamToken(s.config.AuthToken, callSID)},
		},
	}
	connect := &twiml.VoiceConnect{InnerElements: []twiml.Element{stream}}
	response, err := twiml.Voice([]twiml.Element{connect})
	if err != nil {
		return c.String(http.StatusInternalServerError, "failed to build TwiML")
	}
	c.Response().Header().Set(echo.HeaderContentType, "application/xml")
	return c.String(http.StatusOK, response)
}

// handleStream bridges one Twilio media stream until it stops.
func (s *Service) handleStream(c echo.Context) error {
	ws, err := s.upgrader.Upgrade(c.Response(), c.Request(), nil)
	if err != nil {
		s.log.Warn("stream upgrade failed", zap.Error(err))
		return nil
	}
	defer ws.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	var (
		call *callStream
		sup  *supervisor.Supervisor
	)
	defer func() {
		if sup != nil {
			sup.Disconnect(context.Background())
		}
	}()

	for {
		_, data, err := ws.ReadMessage()
		if err != nil {
			if call != nil {
				call.markRemoteEnded()
			}
			s.log.Debug("stream closed", zap.Error(err))
			return nil
		}
		var m streamMessage
		if err := json.Unmarshal(data, &m); err != nil {
			continue
		}
		switch m.Event {
		case "start":
			if m.Start == nil || sup != nil {
				continue
			}
			if !s.authorizeStream(m.Start) {
				s.log.Warn("stream rejected", zap.String("call_sid", m.Start.CallSID))
				return nil
			}
			call = &callStream{
				ws:        ws,
				streamSID: firstNonEmpty(m.Start.StreamSID, m.StreamSID),
				callSID:   m.Start.CallSID,
				hanger:    s.hanger,
				log:       s.log.With(zap.String("call_sid", m.Start.CallSID)),
			}
			media := supervisor.MediaFunc(func(context.Context) (*supervisor.Media, error) {
				return &supervisor.Media{Capture: streamCapture{call}, Playback: streamPlayback{call}}, nil
			})
			sup = s.newSupervisor(call.log, media, func(snap supervisor.Snapshot) {
				if snap.Status == supervisor.StatusError {
					call.log.Warn("call session ended", zap.String("error", snap.Error))
				}
			})
			go func() {
				if err := sup.Connect(ctx); err != nil {
					call.log.Warn("connect failed", zap.Error(err))
				}
			}()
		case "media":
			if call != nil && m.Media != nil {
				call.deliver(m.Media.Payload)
			}
		case "stop":
			if call != nil {
				call.markRemoteEnded()
			}
			return nil
		}
	}
}

func (s *Service) authorizeStream(st *streamStart) bool {
	if s.config.AuthToken == "" {
		return true
	}
	return validStreamToken(s.config.AuthToken, st.CallSID, st.CustomParameters["token"])
}

type restHanger struct{ client *twilio.RestClient }

// Hangup completes the call through the REST API.
func (h restHanger) Hangup(_ context.Context, callSID string) error {
	params := &twilioApi.UpdateCallParams{}
	params.SetStatus("completed")
	_, err := h.client.Api.UpdateCall(callSID, params)
	return err
}

func firstNonEmpty(vals ...string) string {
	for _, v := range vals {
		if v != "" {
			return v
		}
	}
	return ""
}
