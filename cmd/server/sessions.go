package main

import (
	"context"
	"strings"

	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/audit"
	"github.com/ainergiz/oai-realtime/internal/config"
	"github.com/ainergiz/oai-realtime/internal/credentials"
	"github.com/ainergiz/oai-realtime/internal/infra/storage"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/realtime"
	"github.com/ainergiz/oai-realtime/internal/script"
	"github.com/ainergiz/oai-realtime/internal/supervisor"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

// sessionFactory builds one supervisor per browser peer or phone call.
type sessionFactory struct {
	cfg        config.Config
	script     script.Script
	trial      *trialinfo.Document
	creds      *credentials.Client
	classifier *moderation.Client
	dialer     realtime.Dialer
	audit      *audit.Store
	archiver   *storage.ReportArchiver
}

func (f *sessionFactory) build(channel string, format realtime.AudioFormat) func(*zap.Logger, supervisor.MediaSource, func(supervisor.Snapshot)) *supervisor.Supervisor {
	return func(log *zap.Logger, media supervisor.MediaSource, observer func(supervisor.Snapshot)) *supervisor.Supervisor {
		cfg := supervisor.Config{
			Channel: channel,
			Model:   f.cfg.RealtimeModel,
			Session: realtime.SessionConfig{
				Instructions: f.script.Instructions,
				Voice:        f.script.Voice,
				Input:        format,
				Output:       format,
			},
			Greeting:    f.script.Greeting,
			Credentials: f.creds,
			Dialer:      supervisor.DialFunc(f.dial),
			Media:       media,
			Classifier:  f.classifier,
			Trial:       f.trial,
			Observer:    observer,
			Logger:      log,
		}
		// Assigned only when set so the interfaces stay nil otherwise.
		if f.audit != nil {
			cfg.Audit = f.audit
		}
		if f.archiver != nil {
			cfg.Archiver = f.archiver
		}
		return supervisor.New(cfg)
	}
}

func (f *sessionFactory) dial(ctx context.Context, secret credentials.ClientSecret) (supervisor.Transport, error) {
	conn, err := f.dialer.Dial(ctx, secret.Value)
	if err != nil {
		return nil, err
	}
	return conn, nil
}

// realtimeURL derives the websocket endpoint from the REST base URL.
func realtimeURL(baseURL string) string {
	u := strings.TrimRight(baseURL, "/")
	switch {
	case strings.HasPrefix(u, "https://"):
		u = "wss://" + strings.TrimPrefix(u, "https://")
	case strings.HasPrefix(u, "http://"):
		u = "ws://" + strings.TrimPrefix(u, "http://")
	}
	return u + "/v1/realtime"
}
