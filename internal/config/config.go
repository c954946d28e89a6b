package config

import (
	"os"
	"strings"

	"github.com/joho/godotenv"
)

const (
	ModelStandard = "gpt-realtime-mini"
	ModelHigh     = "gpt-realtime"

	defaultICEServers = `[{"urls":["stun:stun.l.google.com:19302"]}]`
)

// Config holds application configuration.
type Config struct {
	HTTPAddress    string
	AuthPassword   string
	ICEServersJSON string

	OpenAIKey       string
	OpenAIBaseURL   string
	RealtimeModel   string
	ModerationModel string

	ScriptPath    string
	TrialInfoPath string
	AuditDBPath   string

	SupabaseURL    string
	SupabaseKey    string
	SupabaseBucket string

	TwilioAccountSID string
	TwilioAuthToken  string
	PublicBaseURL    string

	LogLevel       string
	LogDevelopment bool

	// Warnings lists missing settings; the caller logs them once a logger exists.
	Warnings []string
}

// Load reads .env (if present) and the environment, applying defaults.
func Load() Config {
	var warnings []string
	if err := godotenv.Load(); err != nil && !os.IsNotExist(err) {
		warnings = append(warnings, "Error loading .env file: "+err.Error())
	}

	cfg := Config{
		HTTPAddress:    getenv("HTTP_ADDRESS", ":8080"),
		AuthPassword:   os.Getenv("AUTH_PASSWORD"),
		ICEServersJSON: getenv("ICE_SERVERS_JSON", defaultICEServers),

		OpenAIKey:       os.Getenv("OPENAI_API_KEY"),
		OpenAIBaseURL:   getenv("OPENAI_BASE_URL", "https://api.openai.com"),
		RealtimeModel:   SelectModel(os.Getenv("OPENAI_REALTIME_MODEL"), os.Getenv("REALTIME_QUALITY")),
		ModerationModel: getenv("OPENAI_MODERATION_MODEL", "omni-moderation-latest"),

		ScriptPath:    os.Getenv("SCRIPT_PATH"),
		TrialInfoPath: os.Getenv("TRIAL_INFO_PATH"),

		SupabaseURL:    os.Getenv("SUPABASE_URL"),
		SupabaseKey:    os.Getenv("SUPABASE_SERVICE_ROLE_KEY"),
		SupabaseBucket: getenv("SUPABASE_BUCKET", "screening-reports"),

		TwilioAccountSID: os.Getenv("TWILIO_ACCOUNT_SID"),
		TwilioAuthToken:  os.Getenv("TWILIO_AUTH_TOKEN"),
		PublicBaseURL:    os.Getenv("PUBLIC_BASE_URL"),

		LogLevel:       getenv("LOG_LEVEL", "info"),
		LogDevelopment: parseBool(os.Getenv("LOG_DEVELOPMENT")),
	}

	// An explicitly empty AUDIT_DB_PATH disables the ledger.
	if v, ok := os.LookupEnv("AUDIT_DB_PATH"); ok {
		cfg.AuditDBPath = v
	} else {
		cfg.AuditDBPath = "screening-audit.db"
	}

	if cfg.OpenAIKey == "" {
		warnings = append(warnings, "OPENAI_API_KEY not set - sessions and moderation will fail")
	}
	if cfg.TwilioAccountSID != "" && (cfg.TwilioAuthToken == "" || cfg.PublicBaseURL == "") {
		warnings = append(warnings, "TWILIO_ACCOUNT_SID set without TWILIO_AUTH_TOKEN and PUBLIC_BASE_URL - phone calls disabled")
	}
	cfg.Warnings = warnings
	return cfg
}

// TwilioEnabled reports whether the phone channel can be served.
func (c Config) TwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.PublicBaseURL != ""
}

// SelectModel picks the realtime model: an explicit override wins, otherwise
// quality "high" selects the full model and anything else the cheaper one.
func SelectModel(override, quality string) string {
	if m := strings.TrimSpace(override); m != "" {
		return m
	}
	if strings.EqualFold(strings.TrimSpace(quality), "high") {
		return ModelHigh
	}
	return ModelStandard
}

func getenv(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func parseBool(v string) bool {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "1", "true", "yes", "on":
		return true
	}
	return false
}
