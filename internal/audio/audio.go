// Package audio holds the sample formats shared by every stage: decoding
// source files, writing WAV output, and framing the live stream.
package audio

import "time"

const (
	// StreamRate is the rate the live stream runs at. Opus accepts only
	// 8, 12, 16, 24, or 48 kHz, so serving decodes the source at 48 kHz
	// regardless of the rate offline generation uses.
	StreamRate    = 48000
	Channels      = 1
	BitDepth      = 16
	FrameDuration = 20 * time.Millisecond
	FrameSize     = 960           // mono samples per 20ms frame at 48kHz
	FrameBytes    = FrameSize * 2 // bytes per frame (int16 = 2 bytes)
)

// FloatsToPCM clamps samples to [-1, 1] and scales them to 16-bit PCM.
func FloatsToPCM(samples []float64) []int16 {
	out := make([]int16, len(samples))
	for i, s := range samples {
		if s > 1.0 {
			s = 1.0
		} else if s < -1.0 {
			s = -1.0
		}
		out[i] = int16(s * 32767.0)
	}
	return out
}
