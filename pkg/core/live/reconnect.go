package live

import (
	"context"
	"log/slog"
	"strings"
	"time"
)

// reconnectContextPrefix is the instruction prepended to the replayed
// transcript after a successful reconnect.
const reconnectContextPrefix = "Till now all these questions were asked in the interview, answer the last one please:\n\n"

// ReplaySource supplies the transcriptions recorded for a session, in
// insertion order, for reconnection context replay.
type ReplaySource interface {
	Transcriptions(ctx context.Context, sessionID string) ([]string, error)
}

// ReconnectionPolicy retries the live handshake after a remote disconnect:
// a bounded number of attempts with a fixed delay between them, then context
// replay so the remote model regains conversational state.
//
// The replay sends the entire transcript history as one message on every
// reconnect. Long sessions grow it without bound; that is a known
// scalability limitation carried over deliberately.
type ReconnectionPolicy struct {
	cfg    ReconnectConfig
	logger *slog.Logger
}

// NewReconnectionPolicy creates a policy with the given bounds.
func NewReconnectionPolicy(cfg ReconnectConfig, logger *slog.Logger) *ReconnectionPolicy {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = DefaultReconnectConfig().MaxAttempts
	}
	if cfg.Delay <= 0 {
		cfg.Delay = DefaultReconnectConfig().Delay
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ReconnectionPolicy{cfg: cfg, logger: logger}
}

// AttemptReconnect drives the retry loop. It returns true when a reconnect
// succeeded and false on exhaustion or cancellation. Cleared params (an
// explicit CloseSession) act as the cancellation flag, checked before each
// attempt and again after each delay.
func (p *ReconnectionPolicy) AttemptReconnect(ctx context.Context, s *SessionLifecycle, history ReplaySource) bool {
	for {
		params := s.SavedParams()
		if params == nil {
			p.logger.Info("reconnect cancelled, session params cleared")
			return false
		}
		if s.ReconnectAttempts() >= p.cfg.MaxAttempts {
			p.logger.Info("reconnect attempts exhausted", "max_attempts", p.cfg.MaxAttempts)
			s.emitStatus("Session closed")
			return false
		}

		attempt := s.nextReconnectAttempt()
		p.logger.Info("attempting reconnection", "attempt", attempt, "max_attempts", p.cfg.MaxAttempts)

		if !sleepCtx(ctx, p.cfg.Delay) {
			return false
		}
		if s.SavedParams() == nil {
			p.logger.Info("reconnect cancelled during delay")
			return false
		}

		err := s.Initialize(ctx, *params, true)
		if err == nil {
			s.resetReconnectAttempts()
			p.logger.Info("live session reconnected", "attempt", attempt)
			p.replayContext(ctx, s, history)
			return true
		}

		p.logger.Warn("reconnection attempt failed", "attempt", attempt, "error", err)
		if s.ReconnectAttempts() >= p.cfg.MaxAttempts {
			p.logger.Info("all reconnection attempts failed")
			s.emitStatus("Session closed")
			return false
		}
	}
}

// replayContext sends one synthetic text message concatenating all recorded
// transcriptions, newline-joined, but only when at least one non-empty
// transcription exists. Replay failures are logged and swallowed.
func (p *ReconnectionPolicy) replayContext(ctx context.Context, s *SessionLifecycle, history ReplaySource) {
	if history == nil {
		return
	}
	all, err := history.Transcriptions(ctx, s.SessionID())
	if err != nil {
		p.logger.Warn("load reconnection context", "error", err)
		return
	}

	transcriptions := make([]string, 0, len(all))
	for _, t := range all {
		if strings.TrimSpace(t) != "" {
			transcriptions = append(transcriptions, t)
		}
	}
	if len(transcriptions) == 0 {
		return
	}

	msg := reconnectContextPrefix + strings.Join(transcriptions, "\n")
	p.logger.Info("sending reconnection context", "questions", len(transcriptions))
	if err := s.SendText(ctx, msg); err != nil {
		p.logger.Warn("send reconnection context", "error", err)
	}
}

// sleepCtx waits for d or until ctx is done. Returns false on cancellation.
func sleepCtx(ctx context.Context, d time.Duration) bool {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-timer.C:
		return true
	case <-ctx.Done():
		return false
	}
}
