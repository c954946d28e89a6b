// Package storage archives end-of-session screening reports to Supabase
// object storage.
package storage

import (
	"bytes"
	"errors"
	"fmt"

	"github.com/supabase-community/supabase-go"
)

type Config struct {
	URL            string
	ServiceRoleKey string
	Bucket         string
}

// Enabled reports whether enough is configured to upload.
func (c Config) Enabled() bool { return c.URL != "" && c.ServiceRoleKey != "" && c.Bucket != "" }

// Supabase uploads objects into one bucket.
type Supabase struct {
	client *supabase.Client
	bucket string
}

func NewSupabase(config Config) (*Supabase, error) {
	if !config.Enabled() {
		return nil, errors.New("missing Supabase configuration: SUPABASE_URL, SUPABASE_SERVICE_ROLE_KEY and SUPABASE_BUCKET required")
	}
	client, err := supabase.NewClient(config.URL, config.ServiceRoleKey, &supabase.ClientOptions{})
	if err != nil {
		return nil, fmt.Errorf("create Supabase client: %w", err)
	}
	return &Supabase{client: client, bucket: config.Bucket}, nil
}

func (s *Supabase) Upload(key, contentType string, data []byte) error {
	if _, err := s.client.Storage.UploadFile(s.bucket, key, bytes.NewReader(data)); err != nil {
		return fmt.Errorf("failed to upload to Supabase: %w", err)
	}
	return nil
}
