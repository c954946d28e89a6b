package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/ainergiz/oai-realtime/internal/audit"
	"github.com/ainergiz/oai-realtime/internal/config"
	"github.com/ainergiz/oai-realtime/internal/credentials"
	"github.com/ainergiz/oai-realtime/internal/httpserver"
	"github.com/ainergiz/oai-realtime/internal/infra/storage"
	"github.com/ainergiz/oai-realtime/internal/logging"
	"github.com/ainergiz/oai-realtime/internal/moderation"
	"github.com/ainergiz/oai-realtime/internal/realtime"
	"github.com/ainergiz/oai-realtime/internal/rtc"
	"github.com/ainergiz/oai-realtime/internal/script"
	"github.com/ainergiz/oai-realtime/internal/telephony"
	"github.com/ainergiz/oai-realtime/internal/trialinfo"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func run() error {
	cfg := config.Load()

	log, err := logging.New(cfg.LogLevel, cfg.LogDevelopment)
	if err != nil {
		return err
	}
	defer func() { _ = log.Sync() }()
	for _, w := range cfg.Warnings {
		log.Warn(w)
	}

	sc, err := script.Load(cfg.ScriptPath)
	if err != nil {
		return err
	}
	trial, err := trialinfo.Load(cfg.TrialInfoPath)
	if err != nil {
		return err
	}

	creds := credentials.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL)
	classifier := moderation.NewClient(cfg.OpenAIKey, cfg.OpenAIBaseURL, cfg.ModerationModel)

	sessions := &sessionFactory{
		cfg:        cfg,
		script:     sc,
		trial:      trial,
		creds:      creds,
		classifier: classifier,
		dialer: realtime.Dialer{
			URL:    realtimeURL(cfg.OpenAIBaseURL),
			Model:  cfg.RealtimeModel,
			Logger: log.Named("realtime"),
		},
	}

	if cfg.AuditDBPath != "" {
		store, err := audit.Open(cfg.AuditDBPath, log.Named("audit"))
		if err != nil {
			return err
		}
		defer store.Close()
		sessions.audit = store
		log.Info("audit ledger open", zap.String("path", cfg.AuditDBPath))
	}

	sb := storage.Config{URL: cfg.SupabaseURL, ServiceRoleKey: cfg.SupabaseKey, Bucket: cfg.SupabaseBucket}
	if sb.Enabled() {
		uploader, err := storage.NewSupabase(sb)
		if err != nil {
			return err
		}
		sessions.archiver = storage.NewReportArchiver(uploader, log.Named("storage"))
		log.Info("report archive enabled", zap.String("bucket", cfg.SupabaseBucket))
	}

	deps := httpserver.Deps{
		AuthPassword: cfg.AuthPassword,
		Credentials:  creds,
		Moderator:    classifier,
		Trial:        trial,
		RTC:          rtc.NewHandler(sessions.build("web", realtime.FormatPCM24k), rtc.ParseICEServers(cfg.ICEServersJSON), log.Named("rtc")),
		Logger:       log.Named("http"),
	}
	if cfg.TwilioEnabled() {
		deps.Telephony = telephony.New(telephony.Config{
			AccountSID:    cfg.TwilioAccountSID,
			AuthToken:     cfg.TwilioAuthToken,
			PublicBaseURL: cfg.PublicBaseURL,
		}, sessions.build("phone", realtime.FormatPCMU), log.Named("telephony"))
		log.Info("phone channel enabled")
	}
	srv := httpserver.New(deps)

	server := &http.Server{
		Addr:              cfg.HTTPAddress,
		Handler:           srv.Router,
		ReadHeaderTimeout: 10 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	serverErrors := make(chan error, 1)
	go func() {
		log.Info("server listening", zap.String("addr", cfg.HTTPAddress), zap.String("model", cfg.RealtimeModel))
		serverErrors <- server.ListenAndServe()
	}()

	sigChan := make(chan os.Signal, 1)
	signal.Notify(sigChan, os.Interrupt, syscall.SIGTERM)

	select {
	case err := <-serverErrors:
		if err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("server error: %w", err)
		}
	case sig := <-sigChan:
		log.Info("shutdown signal received", zap.String("signal", sig.String()))
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		log.Warn("graceful shutdown failed", zap.Error(err))
		_ = server.Close()
	}
	return nil
}
