// Package similarity computes the weighted distance between two beats'
// feature vectors. Lower distance means the beats are more interchangeable.
package similarity

import (
	"math"

	"gonum.org/v1/gonum/floats"

	"github.com/satindergrewal/everbeat/internal/song"
)

// Weights scales each feature's contribution to the distance. The table is
// an explicit value passed into Distance and the graph builder, never
// package-level mutable state, so concurrent analyses cannot interfere.
type Weights struct {
	Timbre     float64
	Pitch      float64
	LoudStart  float64
	LoudMax    float64
	Duration   float64
	Confidence float64
}

// DefaultWeights returns the standard weighting: pitch and duration dominate
// by construction, so harmonically clashing or length-mismatched beats are
// pushed out of jump range.
func DefaultWeights() Weights {
	return Weights{
		Timbre:     1,
		Pitch:      10,
		LoudStart:  1,
		LoudMax:    1,
		Duration:   100,
		Confidence: 1,
	}
}

// Distance returns the weighted dissimilarity between two beats. It is pure,
// deterministic, and symmetric: Distance(a, b, w) == Distance(b, a, w).
// Both beats must carry song.FeatureSize timbre and pitch vectors.
func Distance(a, b *song.Beat, w Weights) float64 {
	return w.Timbre*floats.Distance(a.Timbre, b.Timbre, 2) +
		w.Pitch*floats.Distance(a.Pitch, b.Pitch, 2) +
		w.LoudStart*math.Abs(a.LoudnessStart-b.LoudnessStart) +
		w.LoudMax*math.Abs(a.LoudnessMax-b.LoudnessMax) +
		w.Duration*math.Abs(a.Duration-b.Duration) +
		w.Confidence*math.Abs(a.Confidence-b.Confidence)
}
