package audio

import (
	"encoding/binary"
	"fmt"
	"math"
	"os"
	"os/exec"
)

// DecodeFile runs FFmpeg to decode an audio file to raw mono float32 PCM
// at the requested rate, widened to float64 for analysis.
func DecodeFile(path string, rate int) ([]float64, error) {
	if _, err := os.Stat(path); err != nil {
		return nil, fmt.Errorf("input file: %w", err)
	}

	cmd := exec.Command("ffmpeg",
		"-i", path,
		"-f", "f32le",
		"-acodec", "pcm_f32le",
		"-ar", fmt.Sprint(rate),
		"-ac", "1",
		"-loglevel", "error",
		"pipe:1",
	)

	out, err := cmd.Output()
	if err != nil {
		return nil, fmt.Errorf("ffmpeg decode %s: %w", path, err)
	}

	// Ensure byte count is float32-aligned
	if rem := len(out) % 4; rem != 0 {
		out = out[:len(out)-rem]
	}
	if len(out) == 0 {
		return nil, fmt.Errorf("ffmpeg decode %s: no samples", path)
	}

	samples := make([]float64, len(out)/4)
	for i := range samples {
		bits := binary.LittleEndian.Uint32(out[i*4 : i*4+4])
		samples[i] = float64(math.Float32frombits(bits))
	}

	return samples, nil
}

// SamplesToBytes converts int16 samples to little-endian bytes.
func SamplesToBytes(samples []int16) []byte {
	buf := make([]byte, len(samples)*2)
	for i, s := range samples {
		binary.LittleEndian.PutUint16(buf[i*2:], uint16(s))
	}
	return buf
}
