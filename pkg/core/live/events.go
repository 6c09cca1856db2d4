package live

import "time"

// Event is the interface for all events the session core emits toward the
// UI/IPC layer.
type Event interface {
	// EventType returns the event type string for serialization.
	EventType() string
}

// ResponseUpdatedEvent carries the full text of the currently streaming turn.
// It fires once per inbound fragment, replacing the previous text.
type ResponseUpdatedEvent struct {
	Text  string `json:"text"`
	Index int    `json:"index"`
}

func (e *ResponseUpdatedEvent) EventType() string { return "response.updated" }

// StatusChangedEvent is emitted when the user-visible session status changes.
type StatusChangedEvent struct {
	Text string `json:"text"`
}

func (e *StatusChangedEvent) EventType() string { return "status.changed" }

// ErrorOccurredEvent surfaces a non-fatal session error.
type ErrorOccurredEvent struct {
	Message string `json:"message"`
}

func (e *ErrorOccurredEvent) EventType() string { return "error.occurred" }

// TurnSavedEvent is emitted after a completed turn is persisted.
type TurnSavedEvent struct {
	SessionID     string `json:"session_id"`
	Transcription string `json:"transcription"`
	Response      string `json:"response"`
}

func (e *TurnSavedEvent) EventType() string { return "turn.saved" }

// SilenceEvent is the interface for silence segmentation events.
type SilenceEvent interface {
	silenceEvent()
}

// SilenceStarted is emitted when a frame first drops below the threshold.
type SilenceStarted struct {
	RMS float64
}

func (SilenceStarted) silenceEvent() {}

// VoiceEnded is emitted exactly once per silence span, after the debounce
// duration has elapsed.
type VoiceEnded struct {
	At time.Time
}

func (VoiceEnded) silenceEvent() {}

// VoiceResumed is emitted when a voiced frame follows a silence span.
type VoiceResumed struct {
	RMS float64
}

func (VoiceResumed) silenceEvent() {}
