package live

import (
	"math"
	"sync"
)

// RMS computes the root-mean-square energy of a frame of normalized
// amplitude values in [-1, 1]. Returns a value between 0.0 and 1.0.
func RMS(frame []float64) float64 {
	if len(frame) == 0 {
		return 0
	}
	var sum float64
	for _, v := range frame {
		sum += v * v
	}
	return math.Sqrt(sum / float64(len(frame)))
}

// Float64ToPCM16 converts normalized samples to 16-bit signed little-endian
// PCM, clamping to [-1, 1].
func Float64ToPCM16(frame []float64) []byte {
	out := make([]byte, len(frame)*2)
	for i, v := range frame {
		if v > 1 {
			v = 1
		} else if v < -1 {
			v = -1
		}
		var s int16
		if v < 0 {
			s = int16(v * 0x8000)
		} else {
			s = int16(v * 0x7fff)
		}
		out[i*2] = byte(s)
		out[i*2+1] = byte(s >> 8)
	}
	return out
}

// PCM16ToFloat64 converts 16-bit signed little-endian PCM to normalized
// samples in [-1, 1]. A trailing odd byte is ignored.
func PCM16ToFloat64(pcm []byte) []float64 {
	n := len(pcm) / 2
	out := make([]float64, n)
	for i := 0; i < n; i++ {
		s := int16(pcm[i*2]) | int16(pcm[i*2+1])<<8
		out[i] = float64(s) / 32768.0
	}
	return out
}

// StereoToMono downmixes interleaved 16-bit stereo PCM by taking the left
// channel of each sample pair.
func StereoToMono(stereo []byte) []byte {
	samples := len(stereo) / 4
	mono := make([]byte, samples*2)
	for i := 0; i < samples; i++ {
		mono[i*2] = stereo[i*4]
		mono[i*2+1] = stereo[i*4+1]
	}
	return mono
}

// Chunker slices a continuous PCM stream into fixed-duration frames.
// The residue carried between writes is capped at one second of audio so a
// stalled consumer cannot grow the buffer without bound.
type Chunker struct {
	mu        sync.Mutex
	buf       []byte
	chunkSize int
	maxCarry  int
}

// NewChunker creates a chunker emitting frames of chunkMs duration.
func NewChunker(config AudioConfig, chunkMs int) *Chunker {
	return &Chunker{
		chunkSize: config.BytesForDurationMs(chunkMs),
		maxCarry:  config.BytesPerSecond(),
	}
}

// Write appends data and returns all complete frames now available.
func (c *Chunker) Write(data []byte) [][]byte {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.buf = append(c.buf, data...)

	var frames [][]byte
	for len(c.buf) >= c.chunkSize {
		frame := make([]byte, c.chunkSize)
		copy(frame, c.buf[:c.chunkSize])
		frames = append(frames, frame)
		c.buf = c.buf[c.chunkSize:]
	}

	if len(c.buf) > c.maxCarry {
		c.buf = c.buf[len(c.buf)-c.maxCarry:]
	}
	return frames
}

// Reset discards any carried residue.
func (c *Chunker) Reset() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.buf = c.buf[:0]
}
