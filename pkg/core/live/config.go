package live

import (
	"strconv"
	"time"
)

// SessionStatus represents the lifecycle state of the live session.
type SessionStatus int

const (
	// StatusUninitialized is the state before the first initialize call.
	StatusUninitialized SessionStatus = iota
	// StatusInitializing is the state while the live handshake is in flight.
	StatusInitializing
	// StatusConnected is the state with an open remote connection.
	StatusConnected
	// StatusClosing is the state while an explicit close is in progress.
	StatusClosing
	// StatusClosed is the state after an explicit close or remote close.
	StatusClosed
	// StatusErrored is the state after a failed handshake. Only the
	// reconnection policy moves a session out of it.
	StatusErrored
)

// String returns a human-readable status name.
func (s SessionStatus) String() string {
	switch s {
	case StatusUninitialized:
		return "UNINITIALIZED"
	case StatusInitializing:
		return "INITIALIZING"
	case StatusConnected:
		return "CONNECTED"
	case StatusClosing:
		return "CLOSING"
	case StatusClosed:
		return "CLOSED"
	case StatusErrored:
		return "ERRORED"
	default:
		return "UNKNOWN"
	}
}

// SessionParams are the caller-supplied parameters captured at the first
// initialize and reused verbatim on every reconnection attempt.
type SessionParams struct {
	Credential   string `json:"-"`
	CustomPrompt string `json:"custom_prompt,omitempty"`
	ProfileID    string `json:"profile_id"`
	Language     string `json:"language"`
}

// SessionConfig holds all configuration for the live session core.
type SessionConfig struct {
	// Model is the live model identifier.
	Model string `json:"model"`

	// Segmenter configures silence detection on the audio capture path.
	Segmenter SegmenterConfig `json:"segmenter"`

	// Reconnect configures the bounded reconnection policy.
	Reconnect ReconnectConfig `json:"reconnect"`

	// Audio is the capture audio shape.
	Audio AudioConfig `json:"audio"`

	// EnableGoogleSearch enables the remote search tool.
	EnableGoogleSearch bool `json:"enable_google_search"`

	// EnableInputTranscription asks the remote to transcribe input audio.
	EnableInputTranscription bool `json:"enable_input_transcription"`

	// EnableSlidingWindowCompression enables remote context compression.
	EnableSlidingWindowCompression bool `json:"enable_sliding_window_compression"`
}

// DefaultSessionConfig returns a SessionConfig with sensible defaults.
func DefaultSessionConfig() SessionConfig {
	return SessionConfig{
		Model:                          "gemini-live-2.5-flash-preview",
		Segmenter:                      DefaultSegmenterConfig(),
		Reconnect:                      DefaultReconnectConfig(),
		Audio:                          DefaultAudioConfig(),
		EnableGoogleSearch:             true,
		EnableInputTranscription:       true,
		EnableSlidingWindowCompression: true,
	}
}

// SegmenterConfig configures RMS-based silence segmentation.
type SegmenterConfig struct {
	// SilenceThreshold is the RMS level below which a frame counts as
	// silence. Range 0.0 to 1.0. Default: 0.01.
	SilenceThreshold float64 `json:"silence_threshold"`

	// SilenceDuration is how long silence must persist before a single
	// VoiceEnded event is emitted for the span. Default: 1s.
	SilenceDuration time.Duration `json:"silence_duration"`
}

// DefaultSegmenterConfig returns a SegmenterConfig with sensible defaults.
func DefaultSegmenterConfig() SegmenterConfig {
	return SegmenterConfig{
		SilenceThreshold: 0.01,
		SilenceDuration:  time.Second,
	}
}

// ReconnectConfig configures bounded reconnection.
// The delay is fixed between attempts, no backoff growth and no jitter.
type ReconnectConfig struct {
	// MaxAttempts is the reconnect attempt budget per disconnect. Default: 3.
	MaxAttempts int `json:"max_attempts"`

	// Delay is the fixed wait before each attempt. Default: 2s.
	Delay time.Duration `json:"delay"`
}

// DefaultReconnectConfig returns a ReconnectConfig with sensible defaults.
func DefaultReconnectConfig() ReconnectConfig {
	return ReconnectConfig{
		MaxAttempts: 3,
		Delay:       2 * time.Second,
	}
}

// AudioConfig specifies audio format parameters.
type AudioConfig struct {
	// SampleRate in Hz. Default: 24000.
	SampleRate int `json:"sample_rate"`

	// Channels: 1 for mono, 2 for stereo.
	Channels int `json:"channels"`

	// BitsPerSample: typically 16 for PCM.
	BitsPerSample int `json:"bits_per_sample"`
}

// DefaultAudioConfig returns the standard audio configuration.
func DefaultAudioConfig() AudioConfig {
	return AudioConfig{
		SampleRate:    24000,
		Channels:      1,
		BitsPerSample: 16,
	}
}

// MIMEType returns the realtime-input mime string for PCM at this rate.
func (c AudioConfig) MIMEType() string {
	if c.SampleRate == 0 {
		return "audio/pcm;rate=24000"
	}
	return "audio/pcm;rate=" + strconv.Itoa(c.SampleRate)
}

// BytesPerSecond returns the audio byte rate.
func (c AudioConfig) BytesPerSecond() int {
	return c.SampleRate * c.Channels * (c.BitsPerSample / 8)
}

// DurationMs returns the duration in milliseconds for the given byte count.
func (c AudioConfig) DurationMs(bytes int) int {
	if c.BytesPerSecond() == 0 {
		return 0
	}
	return (bytes * 1000) / c.BytesPerSecond()
}

// BytesForDurationMs returns the byte count for the given duration in milliseconds.
func (c AudioConfig) BytesForDurationMs(ms int) int {
	return (c.BytesPerSecond() * ms) / 1000
}
