package analysis

import (
	"context"
	"math"

	"github.com/satindergrewal/everbeat/internal/song"
)

const (
	loudnessFloor = -80.0 // dB reading for silence

	// Chroma folding range. Below 65 Hz the bins are too coarse to name a
	// pitch class; above ~2 kHz harmonics smear the fold.
	minChromaHz = 65.0
	maxChromaHz = 2100.0
)

// describeBeats cuts the spectrogram along the beat boundaries and
// summarizes each slice into the feature vector the graph compares.
func (e *Extractor) describeBeats(ctx context.Context, samples []float64, rate int, spec [][]float64, flux []float64, bounds []float64) ([]song.Beat, error) {
	filters := melFilterbank(e.cfg.MelBands, e.cfg.FrameSize, rate)
	binFreqs := e.binFrequencies(rate)
	hop := e.cfg.HopSize

	beats := make([]song.Beat, 0, len(bounds)-1)
	for i := 0; i+1 < len(bounds); i++ {
		if err := checkCtx(ctx); err != nil {
			return nil, err
		}

		start, end := bounds[i], bounds[i+1]
		lo := int(start * float64(rate))
		hi := int(end * float64(rate))
		fLo, fHi := frameRange(lo, hi, hop, len(spec))

		melAvg := make([]float64, e.cfg.MelBands)
		chroma := make([]float64, song.FeatureSize)
		for f := fLo; f < fHi; f++ {
			for m, filter := range filters {
				var sum float64
				for b, w := range filter {
					if w != 0 {
						sum += w * spec[f][b]
					}
				}
				melAvg[m] += sum
			}
			cf := chromaFold(spec[f], binFreqs)
			for n := range chroma {
				chroma[n] += cf[n]
			}
		}
		n := float64(fHi - fLo)
		for m := range melAvg {
			melAvg[m] /= n
		}
		for c := range chroma {
			chroma[c] /= n
		}
		normalizeChroma(chroma)

		beats = append(beats, song.Beat{
			Index:         i,
			Start:         start,
			Duration:      end - start,
			Timbre:        mfcc(melAvg),
			Pitch:         chroma,
			LoudnessStart: loudnessDB(samples[lo:min(lo+e.cfg.FrameSize, hi)]),
			LoudnessMax:   maxLoudness(samples, lo, hi, hop),
			Confidence:    confidenceAt(flux, lo/hop),
		})
	}
	return beats, nil
}

// frameRange returns the spectrogram rows whose window starts inside
// [lo, hi). A beat too short to contain a row start reuses the row at lo.
func frameRange(lo, hi, hop, frames int) (int, int) {
	fLo := (lo + hop - 1) / hop
	fHi := (hi + hop - 1) / hop
	if fHi > frames {
		fHi = frames
	}
	if fLo >= fHi {
		fLo = lo / hop
		if fLo >= frames {
			fLo = frames - 1
		}
		fHi = fLo + 1
	}
	return fLo, fHi
}

func melScale(hz float64) float64 {
	return 2595 * math.Log10(1+hz/700)
}

func melInverse(mel float64) float64 {
	return 700 * (math.Pow(10, mel/2595) - 1)
}

// melFilterbank builds triangular filters spaced evenly on the mel scale
// between 20 Hz and the Nyquist frequency, one dense weight row per band.
func melFilterbank(bands, frameSize, rate int) [][]float64 {
	bins := frameSize/2 + 1
	lo := melScale(20)
	hi := melScale(float64(rate) / 2)

	centers := make([]float64, bands+2)
	for i := range centers {
		centers[i] = melInverse(lo + (hi-lo)*float64(i)/float64(bands+1))
	}

	filters := make([][]float64, bands)
	for m := 0; m < bands; m++ {
		f := make([]float64, bins)
		left, center, right := centers[m], centers[m+1], centers[m+2]
		for b := 0; b < bins; b++ {
			freq := float64(b) * float64(rate) / float64(frameSize)
			switch {
			case freq <= left || freq >= right:
			case freq <= center:
				f[b] = (freq - left) / (center - left)
			default:
				f[b] = (right - freq) / (right - center)
			}
		}
		filters[m] = f
	}
	return filters
}

// mfcc converts mel band energies to cepstral coefficients with a DCT-II,
// skipping the DC term so overall level stays out of the timbre vector.
func mfcc(melEnergies []float64) []float64 {
	m := len(melEnergies)
	logMel := make([]float64, m)
	for i, v := range melEnergies {
		logMel[i] = math.Log(v + 1e-10)
	}

	out := make([]float64, song.FeatureSize)
	for c := 1; c <= song.FeatureSize; c++ {
		var sum float64
		for i := 0; i < m; i++ {
			sum += logMel[i] * math.Cos(math.Pi*float64(c)*(float64(i)+0.5)/float64(m))
		}
		out[c-1] = sum
	}
	return out
}

func freqToMIDI(freq float64) float64 {
	return 12*math.Log2(freq/440.0) + 69
}

// whitenSpectrum divides each magnitude by a local moving average so loud
// broadband regions don't drown out harmonic peaks.
func whitenSpectrum(mag []float64, windowSize int) []float64 {
	whitened := make([]float64, len(mag))
	half := windowSize / 2
	for i := range mag {
		start := i - half
		if start < 0 {
			start = 0
		}
		end := i + half + 1
		if end > len(mag) {
			end = len(mag)
		}
		var sum float64
		for j := start; j < end; j++ {
			sum += mag[j]
		}
		avg := sum / float64(end-start)
		if avg > 1e-9 {
			whitened[i] = mag[i] / avg
		} else {
			whitened[i] = mag[i]
		}
	}
	return whitened
}

// chromaFold collapses a magnitude frame onto the 12 pitch classes.
func chromaFold(mag []float64, binFreqs []float64) []float64 {
	white := whitenSpectrum(mag, 15)
	out := make([]float64, song.FeatureSize)
	for bin, freq := range binFreqs {
		if freq < minChromaHz || freq > maxChromaHz {
			continue
		}
		note := int(math.Round(freqToMIDI(freq))) % 12
		if note < 0 {
			note += 12
		}
		out[note] += white[bin]
	}
	return out
}

// normalizeChroma scales the strongest pitch class to 1; the fold's shape
// matters for similarity, not its absolute level.
func normalizeChroma(chroma []float64) {
	var peak float64
	for _, v := range chroma {
		if v > peak {
			peak = v
		}
	}
	if peak > 0 {
		for i := range chroma {
			chroma[i] /= peak
		}
	}
}

// loudnessDB measures a sample range as RMS decibels relative to full
// scale, floored at -80 dB.
func loudnessDB(samples []float64) float64 {
	if len(samples) == 0 {
		return loudnessFloor
	}
	var sum float64
	for _, s := range samples {
		sum += s * s
	}
	rms := math.Sqrt(sum / float64(len(samples)))
	db := 20 * math.Log10(rms+1e-10)
	if db < loudnessFloor {
		return loudnessFloor
	}
	return db
}

// maxLoudness scans hop-sized windows across [lo, hi) and keeps the peak.
func maxLoudness(samples []float64, lo, hi, hop int) float64 {
	peak := loudnessFloor
	for w := lo; w < hi; w += hop {
		end := w + hop
		if end > hi {
			end = hi
		}
		if db := loudnessDB(samples[w:end]); db > peak {
			peak = db
		}
	}
	return peak
}

// confidenceAt reads the normalized onset strength at a boundary frame,
// clamped to [0, 1].
func confidenceAt(flux []float64, frame int) float64 {
	if len(flux) == 0 {
		return 0
	}
	if frame < 0 {
		frame = 0
	}
	if frame >= len(flux) {
		frame = len(flux) - 1
	}
	c := flux[frame]
	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
