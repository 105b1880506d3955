package jukebox

import (
	"context"
	"testing"
	"time"

	"github.com/satindergrewal/everbeat/internal/audio"
	"github.com/satindergrewal/everbeat/internal/song"
)

func TestNewStreamerRequiresStreamRate(t *testing.T) {
	beats, samples := walkBeats(4)
	gen, err := New(beats, samples, 10, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	if _, err := NewStreamer(gen); err == nil {
		t.Fatal("NewStreamer() error = nil, want rate mismatch error")
	}
}

func TestStreamerDeliversFrames(t *testing.T) {
	beats, samples := streamTrack(4)
	gen, err := New(beats, samples, audio.StreamRate, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, err := NewStreamer(gen)
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	go s.Run(ctx)

	// Sequential walk over a contiguous track: the stream replays the
	// source PCM from the top, frame by frame.
	pcm := audio.FloatsToPCM(samples)
	for k := 0; k < 3; k++ {
		frame := <-s.Frames()
		if len(frame) != audio.FrameSize {
			t.Fatalf("frame %d: len = %d, want %d", k, len(frame), audio.FrameSize)
		}
		for j, v := range frame {
			want := pcm[(k*audio.FrameSize+j)%len(pcm)]
			if v != want {
				t.Fatalf("frame %d sample %d = %d, want %d", k, j, v, want)
			}
		}
	}

	cancel()
	for range s.Frames() {
		// drain until Run closes the channel
	}
}

func TestStreamerStatus(t *testing.T) {
	beats, samples := streamTrack(4)
	gen, err := New(beats, samples, audio.StreamRate, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, err := NewStreamer(gen)
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}

	if st := s.Status(); st.Steps != 0 || st.Elapsed != 0 {
		t.Fatalf("Status() before Run = %+v, want zero", st)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	<-s.Frames()
	<-s.Frames()

	st := s.Status()
	if st.Steps < 1 {
		t.Errorf("Steps = %d, want >= 1", st.Steps)
	}
	if st.Beat < 0 || st.Beat >= len(beats) {
		t.Errorf("Beat = %d, out of range", st.Beat)
	}
	if st.BeatStart != beats[st.Beat].Start {
		t.Errorf("BeatStart = %v, want %v", st.BeatStart, beats[st.Beat].Start)
	}
	if st.Branches != 0 {
		t.Errorf("Branches = %d, want 0 for zero probability", st.Branches)
	}
}

func TestStreamerJump(t *testing.T) {
	beats, samples := streamTrack(4)
	beats[0].Neighbors = []song.Neighbor{{Dest: 2, Distance: 1}}

	gen, err := New(beats, samples, audio.StreamRate, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, err := NewStreamer(gen)
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}

	// A jump requested before the first beat relocates the walk to the
	// only neighbor, so the stream opens with beat 2's samples.
	s.Jump()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	frame := <-s.Frames()
	pcm := audio.FloatsToPCM(samples)
	lo := int(beats[2].Start * audio.StreamRate)
	for j, v := range frame {
		if v != pcm[lo+j] {
			t.Fatalf("sample %d = %d, want %d from beat 2", j, v, pcm[lo+j])
		}
	}

	st := s.Status()
	if st.Branches != 1 {
		t.Errorf("Branches = %d, want 1 after forced jump", st.Branches)
	}
}

func TestStreamerFramePacing(t *testing.T) {
	beats, samples := streamTrack(4)
	gen, err := New(beats, samples, audio.StreamRate, Options{})
	if err != nil {
		t.Fatalf("New() error = %v", err)
	}
	s, err := NewStreamer(gen)
	if err != nil {
		t.Fatalf("NewStreamer() error = %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go s.Run(ctx)

	start := time.Now()
	for k := 0; k < 5; k++ {
		<-s.Frames()
	}
	// 5 frames of 20ms each cannot arrive faster than the ticker allows.
	if elapsed := time.Since(start); elapsed < 4*audio.FrameDuration {
		t.Errorf("5 frames arrived in %v, want at least %v", elapsed, 4*audio.FrameDuration)
	}
}

// streamTrack builds a contiguous track of quarter-second beats at the
// stream rate, with a sample pattern distinct enough to identify spans.
func streamTrack(n int) ([]song.Beat, []float64) {
	const beatSeconds = 0.25
	beatSamples := int(beatSeconds * audio.StreamRate)

	beats := make([]song.Beat, n)
	for i := range beats {
		beats[i] = song.Beat{
			Index:    i,
			Start:    float64(i) * beatSeconds,
			Duration: beatSeconds,
		}
	}

	samples := make([]float64, n*beatSamples)
	for i := range samples {
		samples[i] = float64(i%97) / 100.0
	}
	return beats, samples
}
