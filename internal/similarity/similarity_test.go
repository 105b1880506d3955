package similarity

import (
	"math"
	"testing"

	"github.com/satindergrewal/everbeat/internal/song"
)

func TestDefaultWeights(t *testing.T) {
	w := DefaultWeights()
	if w.Timbre != 1 || w.Pitch != 10 || w.LoudStart != 1 || w.LoudMax != 1 {
		t.Errorf("Unexpected default weights: %+v", w)
	}
	if w.Duration != 100 {
		t.Errorf("Duration weight = %v, want 100", w.Duration)
	}
	if w.Confidence != 1 {
		t.Errorf("Confidence weight = %v, want 1", w.Confidence)
	}
}

func TestDistanceIdenticalBeatsIsZero(t *testing.T) {
	a := testBeat(0, 0.5)
	b := testBeat(4, 0.5)
	if d := Distance(&a, &b, DefaultWeights()); d != 0 {
		t.Errorf("Distance between feature-identical beats = %v, want 0", d)
	}
}

func TestDistanceSymmetric(t *testing.T) {
	w := DefaultWeights()
	pairs := []struct {
		a, b song.Beat
	}{
		{testBeat(0, 0.5), testBeat(1, 0.48)},
		{beatWithTimbre(0, 3.0), testBeat(7, 0.5)},
		{beatWithPitch(2, 1.0), beatWithTimbre(3, -2.0)},
	}
	for i, p := range pairs {
		ab := Distance(&p.a, &p.b, w)
		ba := Distance(&p.b, &p.a, w)
		if ab != ba {
			t.Errorf("Pair %d: Distance(a,b)=%v != Distance(b,a)=%v", i, ab, ba)
		}
	}
}

func TestDistanceNonNegative(t *testing.T) {
	w := DefaultWeights()
	a := beatWithTimbre(0, -5.0)
	b := beatWithPitch(1, 2.5)
	if d := Distance(&a, &b, w); d < 0 {
		t.Errorf("Distance = %v, want >= 0", d)
	}
}

func TestDistanceTimbreComponent(t *testing.T) {
	// Single-component timbre difference of 3.0: euclidean = 3, weight 1.
	a := testBeat(0, 0.5)
	b := beatWithTimbre(0, 3.0)
	if d := Distance(&a, &b, DefaultWeights()); d != 3 {
		t.Errorf("Timbre-only distance = %v, want 3", d)
	}
}

func TestDistancePitchWeighted(t *testing.T) {
	// Single-component pitch difference of 1.0: euclidean = 1, weight 10.
	a := testBeat(0, 0.5)
	b := beatWithPitch(0, 1.0)
	if d := Distance(&a, &b, DefaultWeights()); d != 10 {
		t.Errorf("Pitch-only distance = %v, want 10", d)
	}
}

func TestDistanceLoudnessComponents(t *testing.T) {
	a := testBeat(0, 0.5)
	b := testBeat(0, 0.5)
	b.LoudnessStart = a.LoudnessStart - 2
	b.LoudnessMax = a.LoudnessMax + 3
	if d := Distance(&a, &b, DefaultWeights()); d != 5 {
		t.Errorf("Loudness-only distance = %v, want 2+3=5", d)
	}
}

func TestDistanceDurationDominates(t *testing.T) {
	// 0.25s duration gap contributes 25 under the default weight of 100.
	a := testBeat(0, 0.5)
	b := testBeat(0, 0.75)
	if d := Distance(&a, &b, DefaultWeights()); d != 25 {
		t.Errorf("Duration-only distance = %v, want 25", d)
	}
}

func TestDistanceZeroDurationWeight(t *testing.T) {
	// Two otherwise-identical beats with wildly different durations must be
	// indistinguishable once the duration weight is zeroed.
	a := testBeat(0, 0.3)
	b := testBeat(1, 3.0)

	w := DefaultWeights()
	if d := Distance(&a, &b, w); d != 270 {
		t.Errorf("Default-weight distance = %v, want 270", d)
	}

	w.Duration = 0
	if d := Distance(&a, &b, w); d != 0 {
		t.Errorf("Zero-duration-weight distance = %v, want 0", d)
	}
}

func TestDistanceDeterministic(t *testing.T) {
	a := beatWithTimbre(0, 1.25)
	b := beatWithPitch(5, -0.75)
	w := DefaultWeights()
	first := Distance(&a, &b, w)
	for i := 0; i < 10; i++ {
		if d := Distance(&a, &b, w); d != first {
			t.Fatalf("Distance not deterministic: run %d got %v, first run %v", i, d, first)
		}
	}
}

func TestDistanceAllComponents(t *testing.T) {
	a := testBeat(0, 0.5)
	b := testBeat(1, 0.5)
	b.Timbre[3] = 4          // euclidean 4 * 1
	b.Pitch[7] = 1           // euclidean 1 * 10
	b.LoudnessStart -= 1.5   // 1.5 * 1
	b.LoudnessMax -= 0.5     // 0.5 * 1
	b.Duration = 0.52        // 0.02 * 100 = 2
	b.Confidence = 0.25      // 0.75 * 1

	got := Distance(&a, &b, DefaultWeights())
	want := 4.0 + 10.0 + 1.5 + 0.5 + 2.0 + 0.75
	if math.Abs(got-want) > 1e-9 {
		t.Errorf("Combined distance = %v, want %v", got, want)
	}
}

// --- helpers ---

// testBeat builds a beat with flat zero feature vectors and fixed loudness,
// so distances between testBeats depend only on the fields a test changes.
func testBeat(index int, duration float64) song.Beat {
	return song.Beat{
		Index:         index,
		Start:         float64(index) * duration,
		Duration:      duration,
		Timbre:        make([]float64, song.FeatureSize),
		Pitch:         make([]float64, song.FeatureSize),
		LoudnessStart: -12,
		LoudnessMax:   -6,
		Confidence:    1,
	}
}

func beatWithTimbre(index int, v float64) song.Beat {
	b := testBeat(index, 0.5)
	b.Timbre[0] = v
	return b
}

func beatWithPitch(index int, v float64) song.Beat {
	b := testBeat(index, 0.5)
	b.Pitch[0] = v
	return b
}
