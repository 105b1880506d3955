// Package analysis derives beat boundaries and per-beat acoustic features
// from raw PCM audio samples (mono float64, normalized to [-1,1]).
package analysis

import (
	"context"
	"errors"
	"fmt"

	"github.com/satindergrewal/everbeat/internal/song"
)

// FeatureVersion increments whenever the analysis output changes shape or
// meaning, so stored results from older builds are not reused.
const FeatureVersion = 1

// ErrNoBeats reports audio in which no beat structure could be found,
// typically silence or a clip shorter than a couple of beats.
var ErrNoBeats = errors.New("no beats detected")

// Analyzer produces a beat-level description of a mono sample buffer.
type Analyzer interface {
	Analyze(ctx context.Context, samples []float64, rate int) (*song.Analysis, error)
}

// Config holds the DSP parameters. The defaults suit full-rate music;
// smaller frames only make sense for short synthetic signals.
type Config struct {
	FrameSize int     // STFT window length in samples
	HopSize   int     // STFT hop in samples
	MelBands  int     // mel filterbank size feeding the timbre coefficients
	MinBPM    float64 // lower bound of the tempo search
	MaxBPM    float64 // upper bound of the tempo search
}

// DefaultConfig returns the parameters used by the command line tools.
func DefaultConfig() Config {
	return Config{
		FrameSize: 2048,
		HopSize:   512,
		MelBands:  40,
		MinBPM:    60,
		MaxBPM:    200,
	}
}

func (c Config) validate() error {
	if c.FrameSize <= 0 {
		return fmt.Errorf("frame size must be positive, got %d", c.FrameSize)
	}
	if c.HopSize <= 0 || c.HopSize > c.FrameSize {
		return fmt.Errorf("hop size must be within (0, frame size], got %d", c.HopSize)
	}
	if c.MelBands <= 0 {
		return fmt.Errorf("mel bands must be positive, got %d", c.MelBands)
	}
	if c.MinBPM <= 0 || c.MaxBPM <= c.MinBPM {
		return fmt.Errorf("tempo range [%v, %v] is invalid", c.MinBPM, c.MaxBPM)
	}
	return nil
}

// Extractor runs the full analysis chain: STFT, onset detection, tempo
// estimation, beat grid placement, and per-beat feature extraction.
type Extractor struct {
	cfg Config
}

// New validates the configuration and returns an Extractor.
func New(cfg Config) (*Extractor, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &Extractor{cfg: cfg}, nil
}

// Analyze segments the buffer into beats and describes each one. The
// boundaries of N grid positions yield N-1 beats; the partial segment
// after the last boundary is dropped.
func (e *Extractor) Analyze(ctx context.Context, samples []float64, rate int) (*song.Analysis, error) {
	if rate <= 0 {
		return nil, fmt.Errorf("sample rate must be positive, got %d", rate)
	}
	if len(samples) < e.cfg.FrameSize*2 {
		return nil, ErrNoBeats
	}

	spec, err := e.stft(ctx, samples)
	if err != nil {
		return nil, err
	}
	flux := onsetEnvelope(spec)

	bpm, err := e.tempo(flux, rate)
	if err != nil {
		return nil, err
	}

	bounds := e.beatGrid(flux, bpm, rate, len(samples))
	if len(bounds) < 2 {
		return nil, ErrNoBeats
	}

	beats, err := e.describeBeats(ctx, samples, rate, spec, flux, bounds)
	if err != nil {
		return nil, err
	}

	return &song.Analysis{SampleRate: rate, BPM: bpm, Beats: beats}, nil
}

// checkCtx is sprinkled through the hot loops so a canceled analysis
// stops within a few frames instead of running to completion.
func checkCtx(ctx context.Context) error {
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}
