package analysis

import (
	"context"
	"math"

	"github.com/mjibson/go-dsp/fft"
	"github.com/mjibson/go-dsp/window"
)

// stft returns the magnitude spectrogram, one row of FrameSize/2+1 bins
// per hop. Frames never run past the buffer, so the trailing partial
// window is dropped rather than zero-padded.
func (e *Extractor) stft(ctx context.Context, samples []float64) ([][]float64, error) {
	frameSize := e.cfg.FrameSize
	hopSize := e.cfg.HopSize
	bins := frameSize/2 + 1

	var spec [][]float64
	for pos, i := 0, 0; pos+frameSize <= len(samples); pos, i = pos+hopSize, i+1 {
		if i%256 == 0 {
			if err := checkCtx(ctx); err != nil {
				return nil, err
			}
		}

		frame := make([]float64, frameSize)
		copy(frame, samples[pos:pos+frameSize])
		window.Apply(frame, window.Hann)

		fftVals := fft.FFTReal(frame)
		mag := make([]float64, bins)
		for b := 0; b < bins; b++ {
			re := real(fftVals[b])
			im := imag(fftVals[b])
			mag[b] = math.Sqrt(re*re + im*im)
		}
		spec = append(spec, mag)
	}
	return spec, nil
}

// binFrequencies maps every spectrogram bin to its center frequency.
func (e *Extractor) binFrequencies(rate int) []float64 {
	freqs := make([]float64, e.cfg.FrameSize/2+1)
	for b := range freqs {
		freqs[b] = float64(b) * float64(rate) / float64(e.cfg.FrameSize)
	}
	return freqs
}

// onsetEnvelope turns the spectrogram into a spectral flux curve: the
// positive magnitude change per frame, normalized so the strongest onset
// is 1. The first frame has no predecessor and reads zero.
func onsetEnvelope(spec [][]float64) []float64 {
	flux := make([]float64, len(spec))
	for i := 1; i < len(spec); i++ {
		var sum float64
		for b := range spec[i] {
			if d := spec[i][b] - spec[i-1][b]; d > 0 {
				sum += d
			}
		}
		flux[i] = sum
	}

	var peak float64
	for _, v := range flux {
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range flux {
			flux[i] /= peak
		}
	}
	return flux
}
