// Package jukebox turns an analyzed song into an endless rendition. A
// random walk over the beat graph either advances to the next beat or
// jumps to a similar-sounding one, and the output is stitched together
// from the original sample buffer one beat span at a time.
package jukebox

import (
	"errors"
	"fmt"
	"math"
	"math/rand/v2"
	"time"

	"github.com/satindergrewal/everbeat/internal/song"
)

// ErrNoBeats reports an empty beat sequence at construction time.
var ErrNoBeats = errors.New("no beats to play")

// Options configures the walk.
type Options struct {
	// BranchProb is the per-beat probability of jumping to a neighbor
	// instead of advancing sequentially. Must be within [0, 1].
	BranchProb float64

	// Rand drives branch decisions and neighbor choice. Leave nil for an
	// unpredictable stream; supply a seeded source for reproducible output.
	Rand *rand.Rand
}

// Validate checks Options before any graph or sample work happens.
func (o Options) Validate() error {
	if o.BranchProb < 0 || o.BranchProb > 1 {
		return fmt.Errorf("branch probability must be within [0, 1], got %v", o.BranchProb)
	}
	return nil
}

// Step describes one advance of the walk: the beat that was played, its
// half-open sample range in the source buffer, and whether the walk
// branched away from sequential order afterwards.
type Step struct {
	Beat     int
	Lo, Hi   int
	Branched bool
}

// span is a beat's precomputed sample range.
type span struct {
	lo, hi int
}

// Generator holds the walk state. It is not safe for concurrent use; the
// streamer wraps it behind a mutex.
type Generator struct {
	beats   []song.Beat
	samples []float64
	rate    int
	prob    float64
	rng     *rand.Rand
	spans   []span

	current  int
	steps    int64
	branches int64

	progressFn func(done, total int)
}

// New validates the inputs and precomputes every beat's sample span.
// Span indices truncate toward zero, matching how the beats were cut
// from the buffer in the first place.
func New(beats []song.Beat, samples []float64, rate int, opts Options) (*Generator, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}
	if len(beats) == 0 {
		return nil, ErrNoBeats
	}
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if len(samples) == 0 {
		return nil, errors.New("sample buffer is empty")
	}

	spans := make([]span, len(beats))
	for i := range beats {
		b := &beats[i]
		lo := int(b.Start * float64(rate))
		hi := int((b.Start + b.Duration) * float64(rate))
		if lo < 0 || hi <= lo || hi > len(samples) {
			return nil, fmt.Errorf("beat %d: sample span [%d, %d) out of range for %d samples",
				i, lo, hi, len(samples))
		}
		spans[i] = span{lo: lo, hi: hi}
	}

	rng := opts.Rand
	if rng == nil {
		rng = rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64()))
	}

	return &Generator{
		beats:   beats,
		samples: samples,
		rate:    rate,
		prob:    opts.BranchProb,
		rng:     rng,
		spans:   spans,
	}, nil
}

// SetProgressFunc registers a callback invoked after each emitted beat
// during Generate, with sample counts clamped to the target.
func (g *Generator) SetProgressFunc(fn func(done, total int)) {
	g.progressFn = fn
}

// Next plays one beat and decides where the walk goes afterwards. Past
// the last beat the walk wraps to the start before playing. The branch
// draw happens every step, even when the beat has no neighbors.
func (g *Generator) Next() Step {
	if g.current >= len(g.beats) {
		g.current = 0
	}
	idx := g.current
	b := &g.beats[idx]

	branched := false
	if g.rng.Float64() < g.prob && len(b.Neighbors) > 0 {
		g.current = b.Neighbors[g.rng.IntN(len(b.Neighbors))].Dest
		branched = true
		g.branches++
	} else {
		g.current = idx + 1
	}
	g.steps++

	sp := g.spans[idx]
	return Step{Beat: idx, Lo: sp.lo, Hi: sp.hi, Branched: branched}
}

// Jump relocates the walk to a random neighbor of the beat it is about
// to play, bypassing the probability draw. It reports whether the beat
// had anywhere to go.
func (g *Generator) Jump() bool {
	if g.current >= len(g.beats) {
		g.current = 0
	}
	b := &g.beats[g.current]
	if len(b.Neighbors) == 0 {
		return false
	}
	g.current = b.Neighbors[g.rng.IntN(len(b.Neighbors))].Dest
	g.branches++
	return true
}

// Current returns the index of the beat the next call to Next will play.
func (g *Generator) Current() int {
	if g.current >= len(g.beats) {
		return 0
	}
	return g.current
}

// Steps returns how many beats have been played.
func (g *Generator) Steps() int64 { return g.steps }

// Branches returns how many non-sequential moves the walk has made.
func (g *Generator) Branches() int64 { return g.branches }

// Samples returns the source buffer the spans index into.
func (g *Generator) Samples() []float64 { return g.samples }

// SampleRate returns the rate of the source buffer.
func (g *Generator) SampleRate() int { return g.rate }

// Generate runs the walk until at least the target duration of audio has
// been emitted, then trims the result to exactly ceil(seconds * rate)
// samples. The walk never pads: every sample comes from some beat span.
func (g *Generator) Generate(target time.Duration) ([]float64, error) {
	if target <= 0 {
		return nil, fmt.Errorf("target duration must be positive, got %v", target)
	}
	need := int(math.Ceil(target.Seconds() * float64(g.rate)))

	out := make([]float64, 0, need)
	for len(out) < need {
		st := g.Next()
		out = append(out, g.samples[st.Lo:st.Hi]...)
		if g.progressFn != nil {
			done := len(out)
			if done > need {
				done = need
			}
			g.progressFn(done, need)
		}
	}
	return out[:need], nil
}
