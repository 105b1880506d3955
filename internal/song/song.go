// Package song defines the analyzed track model: beat-synchronized
// segments with their acoustic features and similarity neighbors.
package song

// FeatureSize is the number of components in the timbre and pitch vectors.
const FeatureSize = 12

// Neighbor is one candidate transition out of a beat: the destination
// beat's slice index and the similarity distance to it.
type Neighbor struct {
	Dest     int     `json:"dest"`
	Distance float64 `json:"distance"`
}

// Beat is one beat-synchronized slice of the song. Beats live in a single
// contiguous slice ordered by Index; Neighbors reference positions within
// that same slice. The graph builder is the only mutator of Neighbors;
// everything downstream treats beats as read-only.
type Beat struct {
	Index         int        `json:"index"`
	Start         float64    `json:"start"`    // seconds
	Duration      float64    `json:"duration"` // seconds, > 0
	Timbre        []float64  `json:"timbre"`   // FeatureSize components
	Pitch         []float64  `json:"pitch"`    // FeatureSize components
	LoudnessStart float64    `json:"loudness_start"` // dB relative to full scale
	LoudnessMax   float64    `json:"loudness_max"`   // dB relative to full scale
	Confidence    float64    `json:"confidence"`
	Neighbors     []Neighbor `json:"neighbors,omitempty"`
}

// End returns the beat's end time in seconds.
func (b *Beat) End() float64 {
	return b.Start + b.Duration
}

// Analysis is the full result of analyzing one track.
type Analysis struct {
	SampleRate int     `json:"sample_rate"`
	BPM        float64 `json:"bpm"`
	Beats      []Beat  `json:"beats"`
}
