// Package httpserver exposes the HTTP surface: health, credential exchange,
// the moderation proxy, trial lookup, WebRTC offers and the phone webhooks.
package httpserver

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"
	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/credentials"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/rtc"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

// SecretMinter issues ephemeral realtime client secrets.
type SecretMinter interface {
	Mint(ctx context.Context) (credentials.ClientSecret, error)
}

// OfferHandler answers WebRTC offers.
type OfferHandler interface {
	HandleOffer(ctx context.Context, offer rtc.SessionDescription) (rtc.SessionDescription, error)
}

// RouteRegistrar mounts extra routes, such as the phone channel.
type RouteRegistrar interface {
	RegisterHandlers(e *echo.Echo)
}

// Deps are the collaborators behind the routes. Nil members disable their routes.
type Deps struct {
	AuthPassword string
	Credentials  SecretMinter
	Moderator    moderation.Classifier
	Trial        *trialinfo.Document
	RTC          OfferHandler
	Telephony    RouteRegistrar
	Logger       *zap.Logger
}

// Server bundles HTTP router and dependencies.
type Server struct {
	Router http.Handler
	deps   Deps
	log    *zap.Logger
}

type errorBody struct {
	Error   string          `json:"error"`
	Details json.RawMessage `json:"details,omitempty"`
}

// New constructs the HTTP server with routes.
func New(deps Deps) *Server {
	log := deps.Logger
	if log == nil {
		log = zap.NewNop()
	}
	s := &Server{deps: deps, log: log}
	e := newEcho(log)

	e.GET("/healthz", func(c echo.Context) error { return c.String(http.StatusOK, "ok") })

	api := e.Group("/api", requireAuth(deps.AuthPassword))
	api.POST("/session", s.session)
	api.POST("/moderation", s.moderation)
	api.POST("/lookup", s.lookup)

	e.Any("/call", s.call)

	if deps.Telephony != nil {
		deps.Telephony.RegisterHandlers(e)
	}
	s.Router = e
	return s
}

func (s *Server) session(c echo.Context) error {
	if s.deps.Credentials == nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "client_secret_unavailable"})
	}
	secret, err := s.deps.Credentials.Mint(c.Request().Context())
	if err != nil {
		var se *credentials.StatusError
		switch {
		case errors.Is(err, credentials.ErrMissingAPIKey):
			return c.JSON(http.StatusInternalServerError, errorBody{Error: "missing_openai_api_key"})
		case errors.As(err, &se):
			s.log.Warn("client secret rejected", zap.Int("status", se.Status))
			return c.JSON(se.Status, errorBody{Error: "client_secret_failed", Details: se.Details})
		}
		s.log.Error("client secret request failed", zap.Error(err))
		return c.JSON(http.StatusBadGateway, errorBody{Error: "client_secret_unreachable"})
	}
	return c.JSON(http.StatusOK, secret)
}

type moderationRequest struct {
	Text  string `json:"text"`
	Phase string `json:"phase"`
}

type moderationResponse struct {
	Phase  string          `json:"phase"`
	Result json.RawMessage `json:"result"`
}

func (s *Server) moderation(c echo.Context) error {
	var req moderationRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_json"})
	}
	text := strings.TrimSpace(req.Text)
	if text == "" {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "missing_text"})
	}
	if s.deps.Moderator == nil {
		return c.JSON(http.StatusInternalServerError, errorBody{Error: moderation.CodeMissingKey})
	}
	result, err := s.deps.Moderator.Moderate(c.Request().Context(), moderation.Truncate(text))
	if err != nil {
		var se *moderation.StatusError
		switch {
		case errors.Is(err, moderation.ErrMissingAPIKey):
			return c.JSON(http.StatusInternalServerError, errorBody{Error: moderation.CodeMissingKey})
		case errors.As(err, &se):
			return c.JSON(se.Status, errorBody{Error: moderation.CodeFailed, Details: se.Details})
		}
		s.log.Error("moderation request failed", zap.Error(err))
		return c.JSON(http.StatusInternalServerError, errorBody{Error: moderation.CodeUnreachable})
	}
	return c.JSON(http.StatusOK, moderationResponse{Phase: req.Phase, Result: result})
}

type lookupRequest struct {
	Question string `json:"question"`
}

func (s *Server) lookup(c echo.Context) error {
	var req lookupRequest
	if err := json.NewDecoder(c.Request().Body).Decode(&req); err != nil {
		return c.JSON(http.StatusBadRequest, errorBody{Error: "invalid_json"})
	}
	if s.deps.Trial == nil {
		return c.JSON(http.StatusServiceUnavailable, errorBody{Error: "trial_info_unavailable"})
	}
	return c.JSON(http.StatusOK, s.deps.Trial.Lookup(req.Question))
}

// call is the WebRTC signaling route.
func (s *Server) call(c echo.Context) error {
	cors(c)
	r := c.Request()
	if r.Method == http.MethodOptions {
		return c.NoContent(http.StatusNoContent)
	}
	if r.Method != http.MethodPost {
		return c.NoContent(http.StatusMethodNotAllowed)
	}
	if !rtcAuthOK(r, s.deps.AuthPassword) {
		return c.NoContent(http.StatusUnauthorized)
	}

	var offer rtc.SessionDescription
	if err := json.NewDecoder(r.Body).Decode(&offer); err != nil {
		s.log.Info("invalid offer", zap.Error(err))
		return c.NoContent(http.StatusBadRequest)
	}
	if s.deps.RTC == nil {
		return c.NoContent(http.StatusServiceUnavailable)
	}
	answer, err := s.deps.RTC.HandleOffer(r.Context(), offer)
	if err != nil {
		s.log.Error("webrtc handle offer failed", zap.Error(err))
		return c.NoContent(http.StatusInternalServerError)
	}
	return c.JSON(http.StatusOK, answer)
}
