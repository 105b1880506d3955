// Package graph builds the beat similarity graph: every beat gets an
// ordered list of candidate jump destinations whose weighted distance
// falls under a threshold.
package graph

import (
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/satindergrewal/everbeat/internal/logger"
	"github.com/satindergrewal/everbeat/internal/similarity"
	"github.com/satindergrewal/everbeat/internal/song"
)

const (
	// barLength is the assumed beats-per-bar cycle used for the phase class.
	barLength = 4

	// phasePenalty is added to every pair whose beats occupy different
	// positions within the assumed 4-beat bar, so jumps stay bar-aligned
	// without full downbeat analysis.
	phasePenalty = 100.0
)

// ErrDegenerate reports a beat sequence too short to form any edge.
var ErrDegenerate = errors.New("degenerate graph: need at least 2 beats")

// Stats summarizes a completed build.
type Stats struct {
	Beats int
	Edges int
}

// ProgressFunc receives (rows completed, rows total) as the build advances.
type ProgressFunc func(done, total int)

// Builder populates beat neighbor lists from pairwise feature distances.
// Each row (one source beat against all destinations) is independent, so
// rows are distributed across a worker pool; a row only ever appends to its
// own beat's list, and within a row destinations are scanned in ascending
// order, which keeps the result identical to a sequential build.
type Builder struct {
	threshold  float64
	weights    similarity.Weights
	workers    int
	progressFn ProgressFunc
}

// NewBuilder creates a builder for the given distance threshold and weights.
func NewBuilder(threshold float64, weights similarity.Weights) *Builder {
	return &Builder{threshold: threshold, weights: weights}
}

// SetWorkers sets the number of row workers. Zero or less means one per CPU.
func (b *Builder) SetWorkers(n int) {
	b.workers = n
}

// SetProgressFunc registers a callback invoked after each completed row.
func (b *Builder) SetProgressFunc(fn ProgressFunc) {
	b.progressFn = fn
}

// Build fills every beat's Neighbors field and returns edge statistics.
// Configuration and beat shape are validated before any pairwise work.
// A graph that builds successfully but has zero edges is reported as a
// warning, not an error: generation still works, it just never branches.
func (b *Builder) Build(beats []song.Beat) (Stats, error) {
	if b.threshold < 0 {
		return Stats{}, fmt.Errorf("threshold must be non-negative, got %v", b.threshold)
	}
	if len(beats) < 2 {
		return Stats{}, ErrDegenerate
	}
	if err := validateBeats(beats); err != nil {
		return Stats{}, err
	}

	workers := b.workers
	if workers <= 0 {
		workers = runtime.NumCPU()
	}
	if workers > len(beats) {
		workers = len(beats)
	}

	jobs := make(chan int, len(beats))
	results := make(chan int, len(beats))

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for i := range jobs {
				results <- b.buildRow(beats, i)
			}
		}()
	}

	for i := range beats {
		jobs <- i
	}
	close(jobs)

	go func() {
		wg.Wait()
		close(results)
	}()

	done, edges := 0, 0
	for n := range results {
		done++
		edges += n
		if b.progressFn != nil {
			b.progressFn(done, len(beats))
		}
	}

	if edges == 0 {
		logger.Warn("similarity graph has no edges; output will loop sequentially",
			logger.Float64("threshold", b.threshold),
			logger.Int("beats", len(beats)))
	}
	return Stats{Beats: len(beats), Edges: edges}, nil
}

// buildRow computes beats[i]'s neighbor list and returns its edge count.
// Destinations are scanned in ascending order; the list is reset first so
// rebuilding with a different threshold never accumulates stale entries.
func (b *Builder) buildRow(beats []song.Beat, i int) int {
	src := &beats[i]
	src.Neighbors = nil
	for j := range beats {
		if j == i {
			continue
		}
		d := similarity.Distance(src, &beats[j], b.weights)
		if i%barLength != j%barLength {
			d += phasePenalty
		}
		if d < b.threshold {
			src.Neighbors = append(src.Neighbors, song.Neighbor{Dest: j, Distance: d})
		}
	}
	return len(src.Neighbors)
}

func validateBeats(beats []song.Beat) error {
	for i := range beats {
		bt := &beats[i]
		if len(bt.Timbre) != song.FeatureSize || len(bt.Pitch) != song.FeatureSize {
			return fmt.Errorf("beat %d: feature vectors must have %d components", i, song.FeatureSize)
		}
		if bt.Duration <= 0 {
			return fmt.Errorf("beat %d: duration must be positive, got %v", i, bt.Duration)
		}
	}
	return nil
}
