package credentials

import (
	"context"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func TestMint_NoKey(t *testing.T) {
	c := NewClient("", "")
	if _, err := c.Mint(context.Background()); !errors.Is(err, ErrMissingAPIKey) {
		t.Fatalf("expected ErrMissingAPIKey, got %v", err)
	}
}

func TestMint_Success(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/v1/realtime/client_secrets" {
			t.Errorf("unexpected request %s %s", r.Method, r.URL.Path)
		}
		if r.Header.Get("Authorization") != "Bearer server-key" {
			t.Errorf("missing bearer")
		}
		if b, _ := io.ReadAll(r.Body); len(b) != 0 {
			t.Errorf("expected empty body, got %q", b)
		}
		_, _ = w.Write([]byte(`{"id":"cs_1","object":"realtime.client_secret","created":1,"expires_at":4102444800,"value":"ek_abc"}`))
	}))
	defer srv.Close()

	s, err := NewClient("server-key", srv.URL).Mint(context.Background())
	if err != nil {
		t.Fatalf("mint: %v", err)
	}
	if s.Value != "ek_abc" || s.ID != "cs_1" || s.ExpiresAt != 4102444800 {
		t.Fatalf("unexpected secret %+v", s)
	}
	if s.Expired(time.Now()) {
		t.Fatalf("secret should not be expired")
	}
}

func TestMint_Failures(t *testing.T) {
	cases := []struct {
		name    string
		handler http.HandlerFunc
		status  int
	}{
		{"unauthorized", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(401)
			_, _ = w.Write([]byte(`{"error":{"message":"bad key"}}`))
		}, 401},
		{"bad_json", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte("not-json")) }, 0},
		{"empty_value", func(w http.ResponseWriter, r *http.Request) { _, _ = w.Write([]byte(`{"id":"x"}`)) }, 0},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			srv := httptest.NewServer(tc.handler)
			defer srv.Close()
			_, err := NewClient("k", srv.URL).Mint(context.Background())
			if err == nil {
				t.Fatalf("expected error")
			}
			var se *StatusError
			if tc.status != 0 && (!errors.As(err, &se) || se.Status != tc.status) {
				t.Fatalf("expected status %d, got %v", tc.status, err)
			}
		})
	}
}
