package live

import (
	"math"
	"testing"
)

func TestRMS(t *testing.T) {
	tests := []struct {
		name  string
		frame []float64
		want  float64
	}{
		{name: "empty", frame: nil, want: 0},
		{name: "silence", frame: []float64{0, 0, 0, 0}, want: 0},
		{name: "full scale", frame: []float64{1, -1, 1, -1}, want: 1},
		{name: "constant half", frame: []float64{0.5, 0.5, 0.5, 0.5}, want: 0.5},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := RMS(tt.frame)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("RMS() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestFloat64ToPCM16(t *testing.T) {
	out := Float64ToPCM16([]float64{0, 1, -1, 2, -2})
	if len(out) != 10 {
		t.Fatalf("len = %d, want 10", len(out))
	}

	sample := func(i int) int16 {
		return int16(out[i*2]) | int16(out[i*2+1])<<8
	}
	if s := sample(0); s != 0 {
		t.Errorf("sample 0 = %d, want 0", s)
	}
	if s := sample(1); s != 0x7fff {
		t.Errorf("sample 1 = %d, want %d", s, 0x7fff)
	}
	if s := sample(2); s != -0x8000 {
		t.Errorf("sample 2 = %d, want %d", s, -0x8000)
	}
	// Out-of-range input clamps.
	if s := sample(3); s != 0x7fff {
		t.Errorf("sample 3 = %d, want %d", s, 0x7fff)
	}
	if s := sample(4); s != -0x8000 {
		t.Errorf("sample 4 = %d, want %d", s, -0x8000)
	}
}

func TestPCM16RoundTrip(t *testing.T) {
	in := []float64{0, 0.25, -0.25, 0.99, -0.99}
	out := PCM16ToFloat64(Float64ToPCM16(in))
	if len(out) != len(in) {
		t.Fatalf("len = %d, want %d", len(out), len(in))
	}
	for i := range in {
		if math.Abs(out[i]-in[i]) > 1.0/32768 {
			t.Errorf("sample %d = %v, want ~%v", i, out[i], in[i])
		}
	}
}

func TestPCM16ToFloat64_OddTrailingByte(t *testing.T) {
	out := PCM16ToFloat64([]byte{0x00, 0x40, 0x7f})
	if len(out) != 1 {
		t.Fatalf("len = %d, want 1", len(out))
	}
}

func TestStereoToMono(t *testing.T) {
	// Two interleaved stereo samples: L0 R0 L1 R1.
	stereo := []byte{0x01, 0x02, 0xaa, 0xbb, 0x03, 0x04, 0xcc, 0xdd}
	mono := StereoToMono(stereo)
	want := []byte{0x01, 0x02, 0x03, 0x04}
	if len(mono) != len(want) {
		t.Fatalf("len = %d, want %d", len(mono), len(want))
	}
	for i := range want {
		if mono[i] != want[i] {
			t.Errorf("byte %d = %#x, want %#x", i, mono[i], want[i])
		}
	}
}

func TestChunker(t *testing.T) {
	cfg := AudioConfig{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	c := NewChunker(cfg, 10) // 10ms frames = 20 bytes

	if frames := c.Write(make([]byte, 19)); len(frames) != 0 {
		t.Fatalf("got %d frames before a full chunk", len(frames))
	}
	frames := c.Write(make([]byte, 21))
	if len(frames) != 2 {
		t.Fatalf("got %d frames, want 2", len(frames))
	}
	for i, f := range frames {
		if len(f) != 20 {
			t.Errorf("frame %d len = %d, want 20", i, len(f))
		}
	}

	c.Reset()
	if frames := c.Write(make([]byte, 19)); len(frames) != 0 {
		t.Fatalf("residue survived Reset")
	}
}

func TestChunker_CapsCarry(t *testing.T) {
	cfg := AudioConfig{SampleRate: 1000, Channels: 1, BitsPerSample: 16}
	c := NewChunker(cfg, 10)

	// Write far more residue than one second of audio in a non-frame-aligned
	// tail; carried bytes must stay bounded.
	c.Write(make([]byte, 20*1000+7))
	c.mu.Lock()
	carried := len(c.buf)
	c.mu.Unlock()
	if carried > cfg.BytesPerSecond() {
		t.Errorf("carried %d bytes, cap is %d", carried, cfg.BytesPerSecond())
	}
}
