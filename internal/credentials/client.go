// Package credentials exchanges the long-lived server key for a short-lived
// client secret accepted by the realtime endpoint.
package credentials

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// ErrMissingAPIKey is returned before any network call when no key is configured.
var ErrMissingAPIKey = errors.New("credentials: api key missing")

// StatusError is a non-success response from the provider.
type StatusError struct {
	Status  int
	Details json.RawMessage
}

func (e *StatusError) Error() string {
	return fmt.Sprintf("client secret error: status=%d body=%s", e.Status, string(e.Details))
}

// ClientSecret is the short-lived secret handed to the realtime transport.
type ClientSecret struct {
	ID        string `json:"client_secret_id"`
	Value     string `json:"client_secret"`
	ExpiresAt int64  `json:"expires_at"`
}

// Expired reports whether the secret is past its expiry.
func (s ClientSecret) Expired(now time.Time) bool {
	return s.ExpiresAt > 0 && now.Unix() >= s.ExpiresAt
}

type secretResponse struct {
	ID        string `json:"id"`
	Object    string `json:"object"`
	Created   int64  `json:"created"`
	ExpiresAt int64  `json:"expires_at"`
	Value     string `json:"value"`
}

// Client mints client secrets.
type Client struct {
	HTTPClient *http.Client
	APIKey     string
	BaseURL    string
}

func NewClient(apiKey, baseURL string) *Client {
	if baseURL == "" {
		baseURL = "https://api.openai.com"
	}
	return &Client{
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
		APIKey:     apiKey,
		BaseURL:    strings.TrimRight(baseURL, "/"),
	}
}

// Mint performs one request/response exchange with an empty body.
func (c *Client) Mint(ctx context.Context) (ClientSecret, error) {
	if c.APIKey == "" {
		return ClientSecret{}, ErrMissingAPIKey
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.BaseURL+"/v1/realtime/client_secrets", http.NoBody)
	if err != nil {
		return ClientSecret{}, err
	}
	req.Header.Set("Authorization", "Bearer "+c.APIKey)

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return ClientSecret{}, fmt.Errorf("client secret request: %w", err)
	}
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		return ClientSecret{}, fmt.Errorf("client secret read: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return ClientSecret{}, &StatusError{Status: resp.StatusCode, Details: details(b)}
	}
	var sr secretResponse
	if err := json.Unmarshal(b, &sr); err != nil {
		return ClientSecret{}, fmt.Errorf("client secret decode: %w", err)
	}
	if sr.Value == "" {
		return ClientSecret{}, errors.New("client secret: empty value")
	}
	return ClientSecret{ID: sr.ID, Value: sr.Value, ExpiresAt: sr.ExpiresAt}, nil
}

func details(body []byte) json.RawMessage {
	if json.Valid(body) {
		return json.RawMessage(body)
	}
	b, _ := json.Marshal(string(body))
	return b
}
