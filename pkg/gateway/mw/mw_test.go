package mw

import (
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/lockin-live/lockin/pkg/gateway/config"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestRequestID_Generated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))

	if !strings.HasPrefix(seen, "req_") {
		t.Errorf("request id = %q, want req_ prefix", seen)
	}
	if got := rec.Header().Get("X-Request-ID"); got != seen {
		t.Errorf("header = %q, context = %q", got, seen)
	}
}

func TestRequestID_Propagated(t *testing.T) {
	var seen string
	h := RequestID(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen, _ = RequestIDFrom(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/", nil)
	req.Header.Set("X-Request-ID", "req_custom")
	h.ServeHTTP(httptest.NewRecorder(), req)

	if seen != "req_custom" {
		t.Errorf("request id = %q, want req_custom", seen)
	}
}

func TestAuth(t *testing.T) {
	keys := map[string]struct{}{"sk-valid": {}}

	tests := []struct {
		name       string
		mode       config.AuthMode
		header     string
		query      string
		wantStatus int
	}{
		{name: "disabled ignores everything", mode: config.AuthModeDisabled, wantStatus: http.StatusOK},
		{name: "required with valid bearer", mode: config.AuthModeRequired, header: "Bearer sk-valid", wantStatus: http.StatusOK},
		{name: "required with query key", mode: config.AuthModeRequired, query: "sk-valid", wantStatus: http.StatusOK},
		{name: "required missing", mode: config.AuthModeRequired, wantStatus: http.StatusUnauthorized},
		{name: "required invalid", mode: config.AuthModeRequired, header: "Bearer sk-wrong", wantStatus: http.StatusUnauthorized},
		{name: "optional missing passes", mode: config.AuthModeOptional, wantStatus: http.StatusOK},
		{name: "optional invalid rejected", mode: config.AuthModeOptional, header: "Bearer sk-wrong", wantStatus: http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := config.Config{AuthMode: tt.mode, APIKeys: keys}
			h := Auth(cfg, okHandler())

			target := "/v1/live"
			if tt.query != "" {
				target += "?api_key=" + tt.query
			}
			req := httptest.NewRequest(http.MethodGet, target, nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}

			rec := httptest.NewRecorder()
			h.ServeHTTP(rec, req)
			if rec.Code != tt.wantStatus {
				t.Errorf("status = %d, want %d", rec.Code, tt.wantStatus)
			}
		})
	}
}

func TestRecover(t *testing.T) {
	h := Recover(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("boom")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
}

func TestAccessLog_PreservesStatus(t *testing.T) {
	h := AccessLog(nil, http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	if rec.Code != http.StatusTeapot {
		t.Errorf("status = %d, want 418", rec.Code)
	}
}
