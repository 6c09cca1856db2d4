package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

type AuthMode string

const (
	AuthModeRequired AuthMode = "required"
	AuthModeOptional AuthMode = "optional"
	AuthModeDisabled AuthMode = "disabled"
)

type Config struct {
	Addr string

	AuthMode AuthMode
	APIKeys  map[string]struct{}

	// GeminiAPIKey is the credential handed to every live session.
	GeminiAPIKey string

	// DatabaseURL selects the durable history store; empty keeps history
	// in memory for the process lifetime.
	DatabaseURL string

	// Live session tuning.
	Model              string
	SilenceThreshold   float64
	SilenceDuration    time.Duration
	ReconnectAttempts  int
	ReconnectDelay     time.Duration
	SampleRate         int
	EnableGoogleSearch bool

	// Live WebSocket surface (/v1/live).
	WSPingInterval     time.Duration
	WSWriteTimeout     time.Duration
	WSHandshakeTimeout time.Duration
	WSMaxMessageBytes  int64
	MaxAudioFrameBytes int

	// Operational defaults.
	ReadHeaderTimeout   time.Duration
	ReadTimeout         time.Duration
	ShutdownGracePeriod time.Duration
}

// fileConfig is the optional YAML overlay. Environment variables always win.
type fileConfig struct {
	Addr              string   `yaml:"addr"`
	AuthMode          string   `yaml:"auth_mode"`
	APIKeys           []string `yaml:"api_keys"`
	GeminiAPIKey      string   `yaml:"gemini_api_key"`
	DatabaseURL       string   `yaml:"database_url"`
	Model             string   `yaml:"model"`
	SilenceThreshold  float64  `yaml:"silence_threshold"`
	SilenceDurationMs int      `yaml:"silence_duration_ms"`
	ReconnectAttempts int      `yaml:"reconnect_attempts"`
	ReconnectDelayMs  int      `yaml:"reconnect_delay_ms"`
	SampleRate        int      `yaml:"sample_rate"`
}

// Load reads the optional YAML file named by LOCKIN_CONFIG_FILE, then
// overlays environment variables, then validates.
func Load() (Config, error) {
	var fc fileConfig
	if path := strings.TrimSpace(os.Getenv("LOCKIN_CONFIG_FILE")); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return Config{}, fmt.Errorf("read config file %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &fc); err != nil {
			return Config{}, fmt.Errorf("parse config file %q: %w", path, err)
		}
	}

	cfg := Config{
		Addr:                envOr("LOCKIN_ADDR", strOr(fc.Addr, ":8080")),
		AuthMode:            AuthMode(envOr("LOCKIN_AUTH_MODE", strOr(fc.AuthMode, string(AuthModeRequired)))),
		APIKeys:             make(map[string]struct{}),
		GeminiAPIKey:        envOr("LOCKIN_GEMINI_API_KEY", fc.GeminiAPIKey),
		DatabaseURL:         envOr("LOCKIN_DATABASE_URL", fc.DatabaseURL),
		Model:               envOr("LOCKIN_MODEL", strOr(fc.Model, "gemini-live-2.5-flash-preview")),
		SilenceThreshold:    envFloat64Or("LOCKIN_SILENCE_THRESHOLD", floatOr(fc.SilenceThreshold, 0.01)),
		SilenceDuration:     envDurationOr("LOCKIN_SILENCE_DURATION", msOr(fc.SilenceDurationMs, time.Second)),
		ReconnectAttempts:   envIntOr("LOCKIN_RECONNECT_ATTEMPTS", intOr(fc.ReconnectAttempts, 3)),
		ReconnectDelay:      envDurationOr("LOCKIN_RECONNECT_DELAY", msOr(fc.ReconnectDelayMs, 2*time.Second)),
		SampleRate:          envIntOr("LOCKIN_SAMPLE_RATE", intOr(fc.SampleRate, 24000)),
		EnableGoogleSearch:  envBoolOr("LOCKIN_ENABLE_GOOGLE_SEARCH", true),
		WSPingInterval:      envDurationOr("LOCKIN_WS_PING_INTERVAL", 20*time.Second),
		WSWriteTimeout:      envDurationOr("LOCKIN_WS_WRITE_TIMEOUT", 5*time.Second),
		WSHandshakeTimeout:  envDurationOr("LOCKIN_WS_HANDSHAKE_TIMEOUT", 5*time.Second),
		WSMaxMessageBytes:   envInt64Or("LOCKIN_WS_MAX_MESSAGE_BYTES", 1<<20),
		MaxAudioFrameBytes:  envIntOr("LOCKIN_MAX_AUDIO_FRAME_BYTES", 65536),
		ReadHeaderTimeout:   envDurationOr("LOCKIN_READ_HEADER_TIMEOUT", 10*time.Second),
		ReadTimeout:         envDurationOr("LOCKIN_READ_TIMEOUT", 30*time.Second),
		ShutdownGracePeriod: envDurationOr("LOCKIN_SHUTDOWN_GRACE_PERIOD", 30*time.Second),
	}

	for _, key := range fc.APIKeys {
		if key = strings.TrimSpace(key); key != "" {
			cfg.APIKeys[key] = struct{}{}
		}
	}
	for _, key := range splitCSV(os.Getenv("LOCKIN_API_KEYS")) {
		cfg.APIKeys[key] = struct{}{}
	}

	switch cfg.AuthMode {
	case AuthModeRequired, AuthModeOptional, AuthModeDisabled:
	default:
		return Config{}, fmt.Errorf("LOCKIN_AUTH_MODE must be one of required|optional|disabled")
	}
	if cfg.AuthMode == AuthModeRequired && len(cfg.APIKeys) == 0 {
		return Config{}, fmt.Errorf("LOCKIN_API_KEYS must be set when auth is required")
	}
	if cfg.GeminiAPIKey == "" {
		return Config{}, fmt.Errorf("LOCKIN_GEMINI_API_KEY must be set")
	}
	if cfg.SilenceThreshold <= 0 || cfg.SilenceThreshold >= 1 {
		return Config{}, fmt.Errorf("LOCKIN_SILENCE_THRESHOLD must be in (0, 1)")
	}
	if cfg.SilenceDuration <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_SILENCE_DURATION must be > 0")
	}
	if cfg.ReconnectAttempts <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_RECONNECT_ATTEMPTS must be > 0")
	}
	if cfg.ReconnectDelay <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_RECONNECT_DELAY must be > 0")
	}
	if cfg.SampleRate <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_SAMPLE_RATE must be > 0")
	}
	if cfg.WSMaxMessageBytes <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_WS_MAX_MESSAGE_BYTES must be > 0")
	}
	if cfg.MaxAudioFrameBytes <= 0 {
		return Config{}, fmt.Errorf("LOCKIN_MAX_AUDIO_FRAME_BYTES must be > 0")
	}

	return cfg, nil
}

func envOr(key, fallback string) string {
	if v, ok := os.LookupEnv(key); ok && strings.TrimSpace(v) != "" {
		return strings.TrimSpace(v)
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.Atoi(strings.TrimSpace(v)); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64Or(key string, fallback int64) int64 {
	if v, ok := os.LookupEnv(key); ok {
		if n, err := strconv.ParseInt(strings.TrimSpace(v), 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat64Or(key string, fallback float64) float64 {
	if v, ok := os.LookupEnv(key); ok {
		if f, err := strconv.ParseFloat(strings.TrimSpace(v), 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBoolOr(key string, fallback bool) bool {
	if v, ok := os.LookupEnv(key); ok {
		if b, err := strconv.ParseBool(strings.TrimSpace(v)); err == nil {
			return b
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v, ok := os.LookupEnv(key); ok {
		if d, err := time.ParseDuration(strings.TrimSpace(v)); err == nil {
			return d
		}
	}
	return fallback
}

func splitCSV(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

func strOr(v, fallback string) string {
	if strings.TrimSpace(v) != "" {
		return v
	}
	return fallback
}

func intOr(v, fallback int) int {
	if v > 0 {
		return v
	}
	return fallback
}

func floatOr(v, fallback float64) float64 {
	if v > 0 {
		return v
	}
	return fallback
}

func msOr(ms int, fallback time.Duration) time.Duration {
	if ms > 0 {
		return time.Duration(ms) * time.Millisecond
	}
	return fallback
}
