package telephony

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"

	"github.com/labstack/echo/v4"
	"github.com/twilio/twilio-go/client"
)

const paramsKey = "twilioParams"

// ValidateSignature verifies an X-Twilio-Signature over fullURL and the form params.
func ValidateSignature(authToken, signature, fullURL string, params map[string]string) bool {
	if authToken == "" || signature == "" {
		return false
	}
	v := client.NewRequestValidator(authToken)
	return v.Validate(fullURL, params, signature)
}

// SignatureAuth validates webhook requests and stores the parsed form params
// on the context.
func SignatureAuth(authToken, publicBaseURL string) echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if authToken == "" {
				return c.String(http.StatusInternalServerError, "TWILIO_AUTH_TOKEN not configured")
			}
			body, err := io.ReadAll(c.Request().Body)
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to read request body")
			}
			form, err := url.ParseQuery(string(body))
			if err != nil {
				return c.String(http.StatusBadRequest, "Failed to parse form data")
			}
			params := make(map[string]string, len(form))
			for k, v := range form {
				if len(v) > 0 {
					params[k] = v[0]
				}
			}
			signature := c.Request().Header.Get("X-Twilio-Signature")
			fullURL := BuildAbsoluteURL(c.Request(), publicBaseURL, c.Request().URL.RequestURI())
			if !ValidateSignature(authToken, signature, fullURL, params) {
				return c.String(http.StatusUnauthorized, "Invalid Twilio signature")
			}
			c.Set(paramsKey, params)
			return next(c)
		}
	}
}

// BuildAbsoluteURL builds a public absolute URL for callbacks.
// Priority: configured base URL > X-Forwarded-* headers > request Host heuristic.
func BuildAbsoluteURL(r *http.Request, baseURL, path string) string {
	baseURL = strings.TrimRight(baseURL, "/")
	if baseURL == "" {
		proto := r.Header.Get("X-Forwarded-Proto")
		host := r.Header.Get("X-Forwarded-Host")
		if proto != "" && host != "" {
			baseURL = fmt.Sprintf("%s://%s", proto, host)
		}
	}
	if baseURL == "" {
		host := r.Host
		proto := "https"
		if strings.HasPrefix(host, "localhost:") || strings.HasPrefix(host, "127.0.0.1:") {
			proto = "http"
		}
		baseURL = fmt.Sprintf("%s://%s", proto, host)
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	return baseURL + path
}

// websocketURL converts an http(s) URL to ws(s).
func websocketURL(u string) string {
	switch {
	case strings.HasPrefix(u, "https://"):
		return "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		return "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u
}

// streamToken binds a media stream to the call the signed webhook announced.
// Twilio relays it back as a custom parameter of the stream's start event.
func streamToken(authToken, callSID string) string {
	mac := hmac.New(sha1.New, []byte(authToken))
	mac.Write([]byte("stream:" + callSID))
	return base64.RawURLEncoding.EncodeToString(mac.Sum(nil))
}

func validStreamToken(authToken, callSID, token string) bool {
	return token != "" && hmac.Equal([]byte(token), []byte(streamToken(authToken, callSID)))
}
