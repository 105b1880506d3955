package analysis

import "math"

// tempo estimates BPM by autocorrelating the onset envelope over the lag
// range the configured tempo bounds allow. Ties keep the smaller lag, so
// octave-ambiguous material resolves to the faster reading.
func (e *Extractor) tempo(flux []float64, rate int) (float64, error) {
	var peak float64
	for _, v := range flux {
		if v > peak {
			peak = v
		}
	}
	if peak == 0 {
		return 0, ErrNoBeats
	}

	fps := float64(rate) / float64(e.cfg.HopSize)
	minLag := int(fps * 60 / e.cfg.MaxBPM)
	if minLag < 1 {
		minLag = 1
	}
	maxLag := int(fps * 60 / e.cfg.MinBPM)
	if maxLag >= len(flux) {
		maxLag = len(flux) - 1
	}
	if maxLag <= minLag {
		return 0, ErrNoBeats
	}

	bestLag, bestVal := minLag, -1.0
	for lag := minLag; lag < maxLag; lag++ {
		var sum float64
		for i := 0; i+lag < len(flux); i++ {
			sum += flux[i] * flux[i+lag]
		}
		if norm := sum / float64(len(flux)-lag); norm > bestVal {
			bestVal = norm
			bestLag = lag
		}
	}

	return 60 * fps / float64(bestLag), nil
}

// beatGrid lays an even grid at the estimated tempo over the onset
// envelope, choosing the phase offset that lands on the most onset
// energy. It returns boundary times in seconds, the last one never past
// the end of the buffer.
func (e *Extractor) beatGrid(flux []float64, bpm float64, rate, totalSamples int) []float64 {
	hop := float64(e.cfg.HopSize)
	fps := float64(rate) / hop
	period := 60 * fps / bpm // frames per beat
	if period < 1 {
		period = 1
	}

	bestOffset, bestScore := 0, math.Inf(-1)
	for o := 0; o < int(period) && o < len(flux); o++ {
		var score float64
		for pos := float64(o); int(pos) < len(flux); pos += period {
			score += flux[int(pos)]
		}
		if score > bestScore {
			bestScore = score
			bestOffset = o
		}
	}

	limit := float64(totalSamples) / hop
	var bounds []float64
	for pos := float64(bestOffset); pos <= limit; pos += period {
		bounds = append(bounds, pos*hop/float64(rate))
	}
	return bounds
}
