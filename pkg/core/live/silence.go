package live

import (
	"sync"
	"time"
)

// SilenceSegmenter is a two-state (Silent / Voiced) machine over a stream of
// audio frames. It converts RMS energy into discrete silence events with a
// debounce: exactly one VoiceEnded per uninterrupted silence span, regardless
// of frame size or count.
type SilenceSegmenter struct {
	cfg SegmenterConfig
	now func() time.Time

	mu               sync.Mutex
	inSilence        bool
	silenceStartedAt time.Time
	voiceEndEmitted  bool
}

// NewSilenceSegmenter creates a segmenter with the given configuration.
func NewSilenceSegmenter(cfg SegmenterConfig) *SilenceSegmenter {
	if cfg.SilenceThreshold <= 0 {
		cfg.SilenceThreshold = DefaultSegmenterConfig().SilenceThreshold
	}
	if cfg.SilenceDuration <= 0 {
		cfg.SilenceDuration = DefaultSegmenterConfig().SilenceDuration
	}
	return &SilenceSegmenter{cfg: cfg, now: time.Now}
}

// Observe processes one frame of normalized amplitude values and returns the
// silence event it produced, or nil.
func (s *SilenceSegmenter) Observe(frame []float64) SilenceEvent {
	rms := RMS(frame)

	s.mu.Lock()
	defer s.mu.Unlock()

	if rms < s.cfg.SilenceThreshold {
		if !s.inSilence {
			s.inSilence = true
			s.silenceStartedAt = s.now()
			return SilenceStarted{RMS: rms}
		}
		if !s.voiceEndEmitted && s.now().Sub(s.silenceStartedAt) > s.cfg.SilenceDuration {
			s.voiceEndEmitted = true
			return VoiceEnded{At: s.now()}
		}
		return nil
	}

	wasSilent := s.inSilence
	s.inSilence = false
	s.silenceStartedAt = time.Time{}
	s.voiceEndEmitted = false
	if wasSilent {
		return VoiceResumed{RMS: rms}
	}
	return nil
}

// Reset clears the segmenter state, as when capture stops.
func (s *SilenceSegmenter) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.inSilence = false
	s.silenceStartedAt = time.Time{}
	s.voiceEndEmitted = false
}
