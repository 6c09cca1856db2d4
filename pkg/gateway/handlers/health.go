package handlers

import (
	"encoding/json"
	"net/http"

	"github.com/lockin-live/lockin/pkg/gateway/config"
)

type HealthHandler struct{}

func (h HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write([]byte("ok\n"))
}

type ReadyHandler struct {
	Config config.Config
}

func (h ReadyHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	type readyResp struct {
		OK           bool     `json:"ok"`
		AuthMode     string   `json:"auth_mode"`
		DurableStore bool     `json:"durable_store"`
		Issues       []string `json:"issues,omitempty"`
	}

	issues := make([]string, 0, 4)

	switch h.Config.AuthMode {
	case config.AuthModeRequired, config.AuthModeOptional, config.AuthModeDisabled:
	default:
		issues = append(issues, "invalid auth_mode")
	}
	if h.Config.AuthMode == config.AuthModeRequired && len(h.Config.APIKeys) == 0 {
		issues = append(issues, "auth_mode=required but no api keys configured")
	}
	if h.Config.GeminiAPIKey == "" {
		issues = append(issues, "gemini api key is not configured")
	}
	if h.Config.SilenceThreshold <= 0 || h.Config.SilenceThreshold >= 1 {
		issues = append(issues, "silence threshold must be in (0, 1)")
	}
	if h.Config.SilenceDuration <= 0 {
		issues = append(issues, "silence duration must be > 0")
	}
	if h.Config.ReconnectAttempts <= 0 || h.Config.ReconnectDelay <= 0 {
		issues = append(issues, "reconnect policy must be > 0")
	}
	if h.Config.WSMaxMessageBytes <= 0 || h.Config.MaxAudioFrameBytes <= 0 {
		issues = append(issues, "websocket budgets must be > 0")
	}
	if h.Config.ReadHeaderTimeout <= 0 || h.Config.ReadTimeout <= 0 {
		issues = append(issues, "timeouts must be > 0")
	}

	ok := len(issues) == 0
	status := http.StatusOK
	if !ok {
		status = http.StatusInternalServerError
	}

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(readyResp{
		OK:           ok,
		AuthMode:     string(h.Config.AuthMode),
		DurableStore: h.Config.DatabaseURL != "",
		Issues:       issues,
	})
}

type NotFoundHandler struct{}

func (h NotFoundHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	reqID := requestIDFromContext(r)
	writeJSONNotFound(w, reqID)
}
