package audio

import (
	"encoding/binary"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// EncodeWAV writes samples as a 16-bit mono PCM WAV stream.
func EncodeWAV(w io.Writer, samples []float64, rate int) error {
	data := FloatsToPCM(samples)

	dataSize := uint32(len(data) * 2)
	byteRate := uint32(rate) * Channels * BitDepth / 8
	blockAlign := uint16(Channels * BitDepth / 8)

	var err error
	put := func(v any) {
		if err == nil {
			err = binary.Write(w, binary.LittleEndian, v)
		}
	}

	put([4]byte{'R', 'I', 'F', 'F'})
	put(uint32(36 + dataSize))
	put([4]byte{'W', 'A', 'V', 'E'})
	put([4]byte{'f', 'm', 't', ' '})
	put(uint32(16)) // PCM subchunk size
	put(uint16(1))  // PCM format
	put(uint16(Channels))
	put(uint32(rate))
	put(byteRate)
	put(blockAlign)
	put(uint16(BitDepth))
	put([4]byte{'d', 'a', 't', 'a'})
	put(dataSize)
	put(data)

	if err != nil {
		return fmt.Errorf("write wav: %w", err)
	}
	return nil
}

// WriteWAVFile writes samples to path as a WAV file, creating parent
// directories as needed.
func WriteWAVFile(path string, samples []float64, rate int) error {
	if dir := filepath.Dir(path); dir != "." && dir != "" {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create output directory: %w", err)
		}
	}

	f, err := os.Create(path)
	if err != nil {
		return fmt.Errorf("create %s: %w", path, err)
	}
	if err := EncodeWAV(f, samples, rate); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}
