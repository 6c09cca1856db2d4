package live

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/lockin-live/lockin/pkg/history"
)

// Orchestrator wires capture events, the response aggregator, the session
// lifecycle, and the history store, and exposes the operations the UI/IPC
// layer calls. It owns its collaborators; nothing is looked up globally.
type Orchestrator struct {
	cfg        SessionConfig
	credential string
	logger     *slog.Logger

	lifecycle  *SessionLifecycle
	aggregator *ResponseAggregator
	segmenter  *SilenceSegmenter
	policy     *ReconnectionPolicy
	store      history.Store

	events chan Event

	mu             sync.Mutex
	capturing      bool
	lastVoiceEndAt time.Time
}

// NewOrchestrator builds a fully wired session core. The credential is the
// remote endpoint key used for every session this orchestrator starts.
func NewOrchestrator(cfg SessionConfig, credential string, connector Connector, store history.Store, logger *slog.Logger) *Orchestrator {
	if logger == nil {
		logger = slog.Default()
	}

	o := &Orchestrator{
		cfg:        cfg,
		credential: credential,
		logger:     logger,
		lifecycle:  NewSessionLifecycle(cfg, connector, logger),
		aggregator: NewResponseAggregator(),
		segmenter:  NewSilenceSegmenter(cfg.Segmenter),
		policy:     NewReconnectionPolicy(cfg.Reconnect, logger),
		store:      store,
		events:     make(chan Event, 100),
	}

	o.lifecycle.SetHandlers(LifecycleHandlers{
		OnMessage: o.handleServerMessage,
		OnStatus:  func(text string) { o.emit(&StatusChangedEvent{Text: text}) },
		OnError:   func(err error) { o.emit(&ErrorOccurredEvent{Message: err.Error()}) },
	})
	o.lifecycle.SetReconnectTrigger(func() {
		o.policy.AttemptReconnect(context.Background(), o.lifecycle, o)
	})

	o.aggregator.SetCallbacks(
		func(text string, index int) { o.emit(&ResponseUpdatedEvent{Text: text, Index: index}) },
		o.saveTurn,
	)

	return o
}

// Events returns the channel carrying events for the UI/IPC layer.
func (o *Orchestrator) Events() <-chan Event {
	return o.events
}

// Lifecycle exposes the session lifecycle, mainly for status inspection.
func (o *Orchestrator) Lifecycle() *SessionLifecycle {
	return o.lifecycle
}

// StartSession initializes a live session and begins accepting capture
// input. Fails fast when a session is already initializing or connected.
func (o *Orchestrator) StartSession(ctx context.Context, profileID, language, customPrompt string) error {
	params := SessionParams{
		Credential:   o.credential,
		CustomPrompt: customPrompt,
		ProfileID:    profileID,
		Language:     language,
	}
	if err := o.lifecycle.Initialize(ctx, params, false); err != nil {
		return err
	}
	o.aggregator.Reset()
	o.StartCapture()
	return nil
}

// StopSession stops capture and closes the session. Idempotent.
func (o *Orchestrator) StopSession() {
	o.StopCapture()
	o.lifecycle.CloseSession()
}

// SendUserText sends a user-typed message and marks the next reply fragment
// as the start of a new turn.
func (o *Orchestrator) SendUserText(ctx context.Context, text string) error {
	o.aggregator.BeginAwaitingTurn()
	return o.lifecycle.SendText(ctx, text)
}

// StartCapture begins accepting audio frames.
func (o *Orchestrator) StartCapture() {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.capturing = true
}

// StopCapture stops accepting audio frames and resets silence state.
// Safe to call at any time, including mid-reconnect.
func (o *Orchestrator) StopCapture() {
	o.mu.Lock()
	o.capturing = false
	o.mu.Unlock()
	o.segmenter.Reset()
}

// ProcessFrame is the single ingestion point for capture audio. Frames are
// fire and forget: a disconnected session or a failed send drops the frame
// and never interrupts the capture loop.
func (o *Orchestrator) ProcessFrame(ctx context.Context, frame []float64) {
	o.mu.Lock()
	capturing := o.capturing
	o.mu.Unlock()
	if !capturing {
		return
	}

	switch ev := o.segmenter.Observe(frame).(type) {
	case SilenceStarted:
		o.logger.Debug("silence detected", "rms", ev.RMS)
	case VoiceEnded:
		o.mu.Lock()
		o.lastVoiceEndAt = ev.At
		o.mu.Unlock()
		o.logger.Debug("voice end detected", "at", ev.At)
	case VoiceResumed:
		o.logger.Debug("voice detected", "rms", ev.RMS)
	}

	if !o.lifecycle.IsConnected() {
		return
	}
	pcm := Float64ToPCM16(frame)
	if err := o.lifecycle.SendAudio(ctx, pcm, o.cfg.Audio.MIMEType()); err != nil {
		o.logger.Warn("send audio frame", "error", err)
	}
}

// ProcessScreenshot forwards an encoded image buffer to the session.
// Like audio, failures are logged and swallowed.
func (o *Orchestrator) ProcessScreenshot(ctx context.Context, data []byte, mimeType string) {
	if !o.lifecycle.IsConnected() {
		return
	}
	if mimeType == "" {
		mimeType = "image/jpeg"
	}
	if err := o.lifecycle.SendImage(ctx, data, mimeType); err != nil {
		o.logger.Warn("send screenshot", "error", err)
	}
}

// LastVoiceEndAt returns the timestamp of the most recent voice-end event.
func (o *Orchestrator) LastVoiceEndAt() time.Time {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.lastVoiceEndAt
}

// Transcriptions implements ReplaySource over the history store.
func (o *Orchestrator) Transcriptions(ctx context.Context, sessionID string) ([]string, error) {
	if o.store == nil {
		return nil, nil
	}
	rec, err := o.store.GetSession(ctx, sessionID)
	if err != nil || rec == nil {
		return nil, err
	}
	out := make([]string, 0, len(rec.Turns))
	for _, t := range rec.Turns {
		out = append(out, t.Transcription)
	}
	return out, nil
}

func (o *Orchestrator) handleServerMessage(msg ServerMessage) {
	switch m := msg.(type) {
	case TranscriptionFragment:
		o.aggregator.OnTranscription(m.Text)
	case ResponseFragment:
		o.aggregator.OnFragment(m.Text)
	case GenerationComplete:
		o.aggregator.OnGenerationComplete()
		o.emit(&StatusChangedEvent{Text: "Listening..."})
	case TurnComplete:
		o.aggregator.OnTurnComplete()
		o.emit(&StatusChangedEvent{Text: "Ready"})
	default:
		o.logger.Debug("unhandled server message", "kind", msg.Kind())
	}
}

// saveTurn persists a finished turn. Storage failures are surfaced as error
// events but never touch the session.
func (o *Orchestrator) saveTurn(transcription, response string) {
	if o.store == nil {
		return
	}
	sessionID := o.lifecycle.SessionID()
	turn, err := o.store.SaveTurn(context.Background(), sessionID, transcription, response)
	if err != nil {
		o.logger.Error("save conversation turn", "session_id", sessionID, "error", err)
		o.emit(&ErrorOccurredEvent{Message: err.Error()})
		return
	}
	o.emit(&TurnSavedEvent{
		SessionID:     sessionID,
		Transcription: turn.Transcription,
		Response:      turn.AIResponse,
	})
}

// emit delivers an event without blocking; a full buffer drops the event.
func (o *Orchestrator) emit(ev Event) {
	select {
	case o.events <- ev:
	default:
		o.logger.Debug("event buffer full, dropping", "type", ev.EventType())
	}
}
