package storage

import (
	"context"
	"encoding/json"
	"fmt"
	"path"

	"github.com/tidwall/pretty"
	"go.uber.org/zap"
)

// Uploader stores one object.
type Uploader interface {
	Upload(key, contentType string, data []byte) error
}

// ReportArchiver writes session reports to reports/<session-id>.json.
type ReportArchiver struct {
	store Uploader
	log   *zap.Logger
}

func NewReportArchiver(store Uploader, log *zap.Logger) *ReportArchiver {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportArchiver{store: store, log: log}
}

// ReportKey is the object key for a session's report.
func ReportKey(sessionID string) string { return path.Join("reports", sessionID+".json") }

// Archive uploads report as indented JSON. The upload runs to completion even
// if ctx expires first; only the wait is abandoned.
func (a *ReportArchiver) Archive(ctx context.Context, sessionID string, report any) error {
	if sessionID == "" {
		return fmt.Errorf("archive report: empty session id")
	}
	raw, err := json.Marshal(report)
	if err != nil {
		return fmt.Errorf("marshal report: %w", err)
	}
	data := pretty.Pretty(raw)
	key := ReportKey(sessionID)

	done := make(chan error, 1)
	go func() { done <- a.store.Upload(key, "application/json", data) }()
	select {
	case err := <-done:
		if err != nil {
			return err
		}
		a.log.Info("report archived", zap.String("key", key), zap.Int("bytes", len(data)))
		return nil
	case <-ctx.Done():
		return fmt.Errorf("archive report %s: %w", key, ctx.Err())
	}
}
