package live

import (
	"testing"
	"time"
)

// fakeClock is a manually advanced time source.
type fakeClock struct {
	t time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{t: time.Unix(1700000000, 0)}
}

func (c *fakeClock) Now() time.Time { return c.t }

func (c *fakeClock) Advance(d time.Duration) { c.t = c.t.Add(d) }

func newTestSegmenter(clock *fakeClock) *SilenceSegmenter {
	s := NewSilenceSegmenter(SegmenterConfig{
		SilenceThreshold: 0.01,
		SilenceDuration:  time.Second,
	})
	s.now = clock.Now
	return s
}

func quietFrame() []float64 { return []float64{0.001, -0.001, 0.001, -0.001} }

func loudFrame() []float64 { return []float64{0.5, -0.5, 0.5, -0.5} }

func TestSegmenter_SilenceStartedOnce(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	if _, ok := s.Observe(quietFrame()).(SilenceStarted); !ok {
		t.Fatal("first quiet frame should produce SilenceStarted")
	}
	if ev := s.Observe(quietFrame()); ev != nil {
		t.Fatalf("second quiet frame produced %T, want nil", ev)
	}
}

func TestSegmenter_VoiceEndedAfterDebounce(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	s.Observe(quietFrame())

	// At exactly the silence duration the debounce has not elapsed.
	clock.Advance(time.Second)
	if ev := s.Observe(quietFrame()); ev != nil {
		t.Fatalf("frame at exactly 1s produced %T, want nil", ev)
	}

	clock.Advance(time.Millisecond)
	if _, ok := s.Observe(quietFrame()).(VoiceEnded); !ok {
		t.Fatal("frame past the debounce should produce VoiceEnded")
	}

	// Exactly one VoiceEnded per span, however long the silence continues.
	for i := 0; i < 10; i++ {
		clock.Advance(time.Second)
		if ev := s.Observe(quietFrame()); ev != nil {
			t.Fatalf("continued silence produced %T, want nil", ev)
		}
	}
}

func TestSegmenter_VoiceResumedResetsSpan(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	s.Observe(quietFrame())
	clock.Advance(2 * time.Second)
	s.Observe(quietFrame()) // VoiceEnded

	if _, ok := s.Observe(loudFrame()).(VoiceResumed); !ok {
		t.Fatal("voiced frame after silence should produce VoiceResumed")
	}

	// A fresh span emits the full sequence again.
	if _, ok := s.Observe(quietFrame()).(SilenceStarted); !ok {
		t.Fatal("new silence span should produce SilenceStarted")
	}
	clock.Advance(2 * time.Second)
	if _, ok := s.Observe(quietFrame()).(VoiceEnded); !ok {
		t.Fatal("new silence span should produce its own VoiceEnded")
	}
}

func TestSegmenter_VoicedFramesProduceNothing(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	for i := 0; i < 5; i++ {
		if ev := s.Observe(loudFrame()); ev != nil {
			t.Fatalf("voiced frame %d produced %T, want nil", i, ev)
		}
		clock.Advance(100 * time.Millisecond)
	}
}

func TestSegmenter_BriefDipBelowThreshold(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	// Dip into silence shorter than the debounce, then voice resumes:
	// no VoiceEnded anywhere.
	s.Observe(quietFrame())
	clock.Advance(500 * time.Millisecond)
	if ev := s.Observe(quietFrame()); ev != nil {
		t.Fatalf("short dip produced %T, want nil", ev)
	}
	if _, ok := s.Observe(loudFrame()).(VoiceResumed); !ok {
		t.Fatal("expected VoiceResumed after the dip")
	}
}

func TestSegmenter_Reset(t *testing.T) {
	clock := newFakeClock()
	s := newTestSegmenter(clock)

	s.Observe(quietFrame())
	clock.Advance(10 * time.Second)
	s.Reset()

	// After a reset, old silence timing must not leak into the new span.
	if _, ok := s.Observe(quietFrame()).(SilenceStarted); !ok {
		t.Fatal("first frame after Reset should produce SilenceStarted")
	}
	if ev := s.Observe(quietFrame()); ev != nil {
		t.Fatalf("frame right after span start produced %T, want nil", ev)
	}
}
