package handlers

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/lockin-live/lockin/pkg/gateway/config"
)

func validConfig() config.Config {
	return config.Config{
		AuthMode:           config.AuthModeDisabled,
		GeminiAPIKey:       "gk-test",
		SilenceThreshold:   0.01,
		SilenceDuration:    time.Second,
		ReconnectAttempts:  3,
		ReconnectDelay:     2 * time.Second,
		WSMaxMessageBytes:  1 << 20,
		MaxAudioFrameBytes: 65536,
		ReadHeaderTimeout:  10 * time.Second,
		ReadTimeout:        30 * time.Second,
	}
}

func TestHealthHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	HealthHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/healthz", nil))

	if rec.Code != http.StatusOK {
		t.Errorf("status = %d, want 200", rec.Code)
	}
	if rec.Body.String() != "ok\n" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func TestReadyHandler_OK(t *testing.T) {
	rec := httptest.NewRecorder()
	ReadyHandler{Config: validConfig()}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusOK {
		t.Fatalf("status = %d, body = %s", rec.Code, rec.Body.String())
	}
	var resp struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if !resp.OK || len(resp.Issues) != 0 {
		t.Errorf("resp = %+v", resp)
	}
}

func TestReadyHandler_ReportsIssues(t *testing.T) {
	cfg := validConfig()
	cfg.GeminiAPIKey = ""
	cfg.SilenceThreshold = 2

	rec := httptest.NewRecorder()
	ReadyHandler{Config: cfg}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Fatalf("status = %d, want 500", rec.Code)
	}
	var resp struct {
		OK     bool     `json:"ok"`
		Issues []string `json:"issues"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if resp.OK || len(resp.Issues) < 2 {
		t.Errorf("resp = %+v, want at least two issues", resp)
	}
}

func TestNotFoundHandler(t *testing.T) {
	rec := httptest.NewRecorder()
	NotFoundHandler{}.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))

	if rec.Code != http.StatusNotFound {
		t.Errorf("status = %d, want 404", rec.Code)
	}
	if ct := rec.Header().Get("Content-Type"); ct != "application/json; charset=utf-8" {
		t.Errorf("content type = %q", ct)
	}
}
