package live

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/lockin-live/lockin/pkg/core"
)

// LifecycleHandlers is the callback set the session forwards remote
// activity on. Callbacks run on the connection's receive goroutine.
type LifecycleHandlers struct {
	// OnMessage delivers each decoded inbound message.
	OnMessage func(ServerMessage)
	// OnStatus delivers user-visible status text.
	OnStatus func(text string)
	// OnError surfaces a non-fatal error.
	OnError func(err error)
}

// TimingObserver is an optional hook for connect/send latency measurements.
type TimingObserver func(op string, d time.Duration)

// SessionLifecycle owns the connection to the remote conversational
// endpoint: initialize, send, close, and the reconnect trigger on remote
// close. Exactly one session may be live per lifecycle; a concurrent
// initialize fails fast instead of queuing.
type SessionLifecycle struct {
	connector Connector
	cfg       SessionConfig
	logger    *slog.Logger
	now       func() time.Time

	handlers LifecycleHandlers
	observe  TimingObserver

	reconnect func() // set via SetReconnectTrigger, invoked on remote close

	mu                sync.Mutex
	status            SessionStatus
	sessionID         string
	params            *SessionParams
	reconnectAttempts int
	conn              Conn
}

// NewSessionLifecycle creates an uninitialized lifecycle.
func NewSessionLifecycle(cfg SessionConfig, connector Connector, logger *slog.Logger) *SessionLifecycle {
	if logger == nil {
		logger = slog.Default()
	}
	return &SessionLifecycle{
		connector: connector,
		cfg:       cfg,
		logger:    logger,
		now:       time.Now,
		status:    StatusUninitialized,
	}
}

// SetHandlers sets the outbound callback set. Call before Initialize.
func (s *SessionLifecycle) SetHandlers(h LifecycleHandlers) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.handlers = h
}

// SetTimingObserver installs an optional latency hook.
func (s *SessionLifecycle) SetTimingObserver(obs TimingObserver) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.observe = obs
}

// SetReconnectTrigger installs the function invoked when the remote closes
// with retained params and remaining attempts. The reconnection policy owns
// the retry loop; the lifecycle only decides whether to fire it.
func (s *SessionLifecycle) SetReconnectTrigger(fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnect = fn
}

// Initialize opens the remote live connection. On non-reconnect calls it
// snapshots params, resets the attempt counter, and starts a fresh session
// ID. It returns only after the handshake completes.
func (s *SessionLifecycle) Initialize(ctx context.Context, params SessionParams, isReconnection bool) error {
	s.mu.Lock()
	if s.status == StatusInitializing || s.status == StatusConnected {
		s.mu.Unlock()
		return core.NewAlreadyInitializingError()
	}
	s.status = StatusInitializing
	if !isReconnection {
		snapshot := params
		s.params = &snapshot
		s.reconnectAttempts = 0
		s.sessionID = fmt.Sprintf("%d", s.now().UnixMilli())
	}
	observe := s.observe
	s.mu.Unlock()

	s.logger.Info("initializing live session",
		"profile", params.ProfileID,
		"language", params.Language,
		"reconnection", isReconnection,
	)

	ccfg := ConnectorConfig{
		Model:                          s.cfg.Model,
		Credential:                     params.Credential,
		SystemInstruction:              BuildSystemPrompt(params.ProfileID, params.CustomPrompt, s.cfg.EnableGoogleSearch),
		Language:                       params.Language,
		EnableGoogleSearch:             s.cfg.EnableGoogleSearch,
		EnableInputTranscription:       s.cfg.EnableInputTranscription,
		EnableSlidingWindowCompression: s.cfg.EnableSlidingWindowCompression,
	}

	start := s.now()
	conn, err := s.connector.Connect(ctx, ccfg, ConnHandlers{
		OnMessage: s.handleMessage,
		OnError:   s.handleError,
		OnClose:   s.handleClose,
	})
	if observe != nil {
		observe("connect", s.now().Sub(start))
	}
	if err != nil {
		s.mu.Lock()
		s.status = StatusErrored
		s.mu.Unlock()
		s.logger.Warn("live connect failed", "error", err)
		return core.NewRemoteConnectError(err)
	}

	s.mu.Lock()
	s.conn = conn
	s.status = StatusConnected
	s.mu.Unlock()

	s.emitStatus("Live session connected")
	s.logger.Info("live session connected", "session_id", s.SessionID())
	return nil
}

// SendText sends a text input. Fails with NotConnected when no open
// connection handle exists.
func (s *SessionLifecycle) SendText(ctx context.Context, text string) error {
	conn, err := s.openConn("send_text")
	if err != nil {
		return err
	}
	return conn.SendText(ctx, text)
}

// SendAudio sends one PCM frame.
func (s *SessionLifecycle) SendAudio(ctx context.Context, data []byte, mimeType string) error {
	conn, err := s.openConn("send_audio")
	if err != nil {
		return err
	}
	return conn.SendAudio(ctx, data, mimeType)
}

// SendImage sends an encoded image buffer.
func (s *SessionLifecycle) SendImage(ctx context.Context, data []byte, mimeType string) error {
	conn, err := s.openConn("send_image")
	if err != nil {
		return err
	}
	return conn.SendMedia(ctx, data, mimeType)
}

func (s *SessionLifecycle) openConn(op string) (Conn, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.conn == nil {
		return nil, core.NewNotConnectedError(op)
	}
	return s.conn, nil
}

// CloseSession closes the remote connection if open and clears the saved
// params so no further reconnection is attempted. Idempotent and safe to
// call at any time, including mid-reconnect.
func (s *SessionLifecycle) CloseSession() {
	s.mu.Lock()
	conn := s.conn
	s.conn = nil
	s.params = nil
	if conn != nil {
		s.status = StatusClosing
	}
	s.mu.Unlock()

	if conn != nil {
		if err := conn.Close(); err != nil {
			s.logger.Warn("close live connection", "error", err)
		}
	}

	s.mu.Lock()
	s.status = StatusClosed
	s.mu.Unlock()
}

// IsConnected reports whether an open connection handle exists.
func (s *SessionLifecycle) IsConnected() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.conn != nil
}

// Status returns the current lifecycle status.
func (s *SessionLifecycle) Status() SessionStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// SessionID returns the current session identifier.
func (s *SessionLifecycle) SessionID() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.sessionID
}

// SavedParams returns a copy of the retained session params, or nil after
// CloseSession. The reconnection policy treats nil as its cancellation flag.
func (s *SessionLifecycle) SavedParams() *SessionParams {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.params == nil {
		return nil
	}
	p := *s.params
	return &p
}

// ReconnectAttempts returns the attempt counter for the current disconnect.
func (s *SessionLifecycle) ReconnectAttempts() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.reconnectAttempts
}

func (s *SessionLifecycle) nextReconnectAttempt() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectAttempts++
	return s.reconnectAttempts
}

func (s *SessionLifecycle) resetReconnectAttempts() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.reconnectAttempts = 0
}

func (s *SessionLifecycle) handleMessage(msg ServerMessage) {
	s.mu.Lock()
	onMessage := s.handlers.OnMessage
	s.mu.Unlock()
	if onMessage != nil {
		onMessage(msg)
	}
}

// handleError surfaces a runtime error without closing the connection. The
// remote's own close event, if it follows, is what triggers reconnection.
func (s *SessionLifecycle) handleError(err error) {
	s.logger.Warn("live session error", "error", err)
	s.emitError(core.NewRemoteRuntimeError(err))
	s.emitStatus("Error: " + err.Error())
}

func (s *SessionLifecycle) handleClose(reason string) {
	s.mu.Lock()
	s.conn = nil
	if s.status != StatusClosing && s.status != StatusClosed {
		s.status = StatusClosed
	}
	shouldReconnect := s.params != nil && s.reconnectAttempts < s.cfg.Reconnect.MaxAttempts
	trigger := s.reconnect
	s.mu.Unlock()

	s.logger.Info("live session closed", "reason", reason)
	s.emitStatus("Session closed")

	if shouldReconnect && trigger != nil {
		go trigger()
	}
}

func (s *SessionLifecycle) emitStatus(text string) {
	s.mu.Lock()
	onStatus := s.handlers.OnStatus
	s.mu.Unlock()
	if onStatus != nil {
		onStatus(text)
	}
}

func (s *SessionLifecycle) emitError(err error) {
	s.mu.Lock()
	onError := s.handlers.OnError
	s.mu.Unlock()
	if onError != nil {
		onError(err)
	}
}
