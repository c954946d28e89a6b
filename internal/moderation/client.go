package moderation

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// MaxTextLength is the number of characters forwarded to the classifier.
const MaxTextLength = 8000

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("moderation: api key missing")

// StatusError is a non-success response from the classifier.
type StatusError struct {
	Status  int
	Code    string
	Details json.RawMessage
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("moderation error: status=%d code=%s body=%s", e.Status, e.Code, string(e.Details))
}

// Truncate cuts text to MaxTextLength characters.
func Truncate(text string) string {
	if len(text) <= MaxTextLength {
		return text
	}
	r := []rune(text)
	if len(r) <= MaxTextLength {
		return text
	}
	return string(r[:MaxTextLength])
}

// Client calls the remote moderation endpoint.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string
	Model      string
}

type moderationRequest struct {
	Model string `json:"model,omitempty"`
	Input string `json:"input"`
}

func NewClient(apiKey, baseURL, model string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 15 * time.Second},
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
		Model:      model,
	}
}

// Moderate classifies text (truncated to MaxTextLength) and returns the raw
// classifier response body.
func (c *Client) Moderate(ctx context.Context, text string) (json.RawMessage, error) {
	if c.APIKey == "" {
		return nil, ErrMissingAPIKey
	}
	reqBody, _ := json.Marshal(moderationRequest{Model: c.Model, Input: Truncate(text)})
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/moderations", bytes.NewReader(reqBody))
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("moderation request: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("moderation read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, &StatusError{Status: resp.StatusCode, Code: errorCode(b), Details: detailsJSON(b)}
	}
	if !json.Valid(b) {
		return nil, &StatusError{Status: http.StatusBadGateway, Code: "moderation_failed", Details: detailsJSON(b)}
	}
	return json.RawMessage(b), nil
}

// errorCode pulls an error code out of a classifier error body. The body's
// "error" may be a plain string or an object with code/type.
func errorCode(body []byte) string {
	var envelope struct {
		Error json.RawMessage `json:"error"`
	}
	if err := json.Unmarshal(body, &envelope); err != nil || len(envelope.Error) == 0 {
		return "moderation_failed"
	}
	var s string
	if err := json.Unmarshal(envelope.Error, &s); err == nil && s != "" {
		return s
	}
	var obj struct {
		Code string `json:"code"`
		Type string `json:"type"`
	}
	if err := json.Unmarshal(envelope.Error, &obj); err == nil {
		if obj.Code != "" {
			return obj.Code
		}
		if obj.Type != "" {
			return obj.Type
		}
	}
	return "moderation_failed"
}

func detailsJSON(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(string(body))
	return b
}
