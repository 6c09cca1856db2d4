package server

import (
	"log/slog"
	"net/http"

	"github.com/lockin-live/lockin/pkg/core/live"
	"github.com/lockin-live/lockin/pkg/gateway/config"
	"github.com/lockin-live/lockin/pkg/gateway/handlers"
	"github.com/lockin-live/lockin/pkg/gateway/mw"
	"github.com/lockin-live/lockin/pkg/history"
)

type Server struct {
	cfg    config.Config
	logger *slog.Logger
	mux    *http.ServeMux

	store     history.Store
	connector live.Connector
}

func New(cfg config.Config, store history.Store, connector live.Connector, logger *slog.Logger) *Server {
	if logger == nil {
		logger = slog.Default()
	}

	s := &Server{
		cfg:       cfg,
		logger:    logger,
		mux:       http.NewServeMux(),
		store:     store,
		connector: connector,
	}

	s.routes()
	return s
}

func (s *Server) routes() {
	s.mux.Handle("/healthz", handlers.HealthHandler{})
	s.mux.Handle("/readyz", handlers.ReadyHandler{Config: s.cfg})

	s.mux.Handle("/v1/live", handlers.LiveHandler{
		Config:          s.cfg,
		Logger:          s.logger,
		NewOrchestrator: s.newOrchestrator,
	})

	sessions := handlers.SessionsHandler{Store: s.store}
	s.mux.HandleFunc("GET /v1/sessions", sessions.List)
	s.mux.HandleFunc("GET /v1/sessions/{session_id}", sessions.Get)

	s.mux.Handle("/", handlers.NotFoundHandler{})
}

func (s *Server) newOrchestrator() *live.Orchestrator {
	return live.NewOrchestrator(s.sessionConfig(), s.cfg.GeminiAPIKey, s.connector, s.store, s.logger)
}

// sessionConfig projects the gateway configuration onto the session core.
func (s *Server) sessionConfig() live.SessionConfig {
	cfg := live.DefaultSessionConfig()
	if s.cfg.Model != "" {
		cfg.Model = s.cfg.Model
	}
	if s.cfg.SilenceThreshold > 0 {
		cfg.Segmenter.SilenceThreshold = s.cfg.SilenceThreshold
	}
	if s.cfg.SilenceDuration > 0 {
		cfg.Segmenter.SilenceDuration = s.cfg.SilenceDuration
	}
	if s.cfg.ReconnectAttempts > 0 {
		cfg.Reconnect.MaxAttempts = s.cfg.ReconnectAttempts
	}
	if s.cfg.ReconnectDelay > 0 {
		cfg.Reconnect.Delay = s.cfg.ReconnectDelay
	}
	if s.cfg.SampleRate > 0 {
		cfg.Audio.SampleRate = s.cfg.SampleRate
	}
	cfg.EnableGoogleSearch = s.cfg.EnableGoogleSearch
	return cfg
}

func (s *Server) Handler() http.Handler {
	var h http.Handler = s.mux
	h = mw.Auth(s.cfg, h)
	h = mw.Recover(s.logger, h)
	h = mw.AccessLog(s.logger, h)
	h = mw.RequestID(h)
	return h
}
