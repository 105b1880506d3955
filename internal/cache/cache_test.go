package cache

import (
	"os"
	"path/filepath"
	"reflect"
	"strings"
	"testing"

	"github.com/satindergrewal/everbeat/internal/song"
)

func TestGetMissIsNotAnError(t *testing.T) {
	c := openTestCache(t)

	a, ok, err := c.Get("no-such-key")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if ok || a != nil {
		t.Errorf("Get(miss) = (%v, %v), want (nil, false)", a, ok)
	}
}

func TestPutGetRoundTrip(t *testing.T) {
	c := openTestCache(t)
	a := sampleAnalysis()

	if err := c.Put("k1", "/music/track.mp3", a); err != nil {
		t.Fatalf("Put: %v", err)
	}

	got, ok, err := c.Get("k1")
	if err != nil {
		t.Fatalf("Get: %v", err)
	}
	if !ok {
		t.Fatal("Get after Put missed")
	}
	if got.SampleRate != a.SampleRate || got.BPM != a.BPM {
		t.Errorf("got rate/bpm %d/%v, want %d/%v", got.SampleRate, got.BPM, a.SampleRate, a.BPM)
	}
	if !reflect.DeepEqual(got.Beats, a.Beats) {
		t.Errorf("beats changed across the cache:\ngot  %+v\nwant %+v", got.Beats, a.Beats)
	}
}

func TestPutStripsNeighbors(t *testing.T) {
	c := openTestCache(t)
	a := sampleAnalysis()
	a.Beats[0].Neighbors = []song.Neighbor{{Dest: 1, Distance: 12.5}}

	if err := c.Put("k1", "/music/track.mp3", a); err != nil {
		t.Fatalf("Put: %v", err)
	}
	// the caller's copy is untouched
	if len(a.Beats[0].Neighbors) != 1 {
		t.Error("Put mutated the caller's analysis")
	}

	got, ok, err := c.Get("k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	for i, b := range got.Beats {
		if len(b.Neighbors) != 0 {
			t.Errorf("cached beat %d kept neighbors %v", i, b.Neighbors)
		}
	}
}

func TestPutReplacesExisting(t *testing.T) {
	c := openTestCache(t)
	a := sampleAnalysis()

	if err := c.Put("k1", "/music/track.mp3", a); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	a.BPM = 140
	if err := c.Put("k1", "/music/track.mp3", a); err != nil {
		t.Fatalf("second Put: %v", err)
	}

	got, ok, err := c.Get("k1")
	if err != nil || !ok {
		t.Fatalf("Get: ok=%v err=%v", ok, err)
	}
	if got.BPM != 140 {
		t.Errorf("BPM = %v after replace, want 140", got.BPM)
	}
}

func TestKey(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "track.bin")
	if err := os.WriteFile(path, []byte("some audio bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}

	k1, err := Key(path, 44100)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	k2, err := Key(path, 44100)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k1 != k2 {
		t.Errorf("same file hashed differently: %q vs %q", k1, k2)
	}
	if !strings.HasSuffix(k1, "-44100-v1") {
		t.Errorf("key %q missing rate and version suffix", k1)
	}

	k3, err := Key(path, 48000)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k3 == k1 {
		t.Error("different sample rates produced the same key")
	}

	if err := os.WriteFile(path, []byte("different audio bytes"), 0644); err != nil {
		t.Fatalf("WriteFile: %v", err)
	}
	k4, err := Key(path, 44100)
	if err != nil {
		t.Fatalf("Key: %v", err)
	}
	if k4 == k1 {
		t.Error("different contents produced the same key")
	}
}

func TestKeyMissingFile(t *testing.T) {
	if _, err := Key(filepath.Join(t.TempDir(), "nope.mp3"), 44100); err == nil {
		t.Error("Key(missing file) succeeded, want error")
	}
}

// --- helpers ---

func openTestCache(t *testing.T) *Cache {
	t.Helper()
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { c.Close() })
	return c
}

func sampleAnalysis() *song.Analysis {
	beats := make([]song.Beat, 3)
	for i := range beats {
		beats[i] = song.Beat{
			Index:         i,
			Start:         float64(i) * 0.5,
			Duration:      0.5,
			Timbre:        []float64{1.5, -2, 0.25, 3, 0, 0, 1, 0, 0, 0, 0, 0.125},
			Pitch:         []float64{1, 0, 0, 0.5, 0, 0, 0, 0.75, 0, 0, 0, 0},
			LoudnessStart: -14.5,
			LoudnessMax:   -6.25,
			Confidence:    0.875,
		}
	}
	return &song.Analysis{SampleRate: 44100, BPM: 120.5, Beats: beats}
}
