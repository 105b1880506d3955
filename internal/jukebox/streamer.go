package jukebox

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/satindergrewal/everbeat/internal/audio"
	"github.com/satindergrewal/everbeat/internal/logger"
)

// Status is a snapshot of the live walk for the status endpoint.
type Status struct {
	Beat      int     `json:"beat"`
	BeatStart float64 `json:"beat_start"`
	Steps     int64   `json:"steps"`
	Branches  int64   `json:"branches"`
	Elapsed   float64 `json:"elapsed_seconds"`
}

// Streamer paces a Generator at real time and outputs fixed-size PCM
// frames for the live endpoints. All generator access happens on the Run
// goroutine; Jump and Status are safe to call from request handlers.
type Streamer struct {
	gen     *Generator
	pcm     []int16
	frameCh chan []int16
	jumpCh  chan struct{}

	mu        sync.RWMutex
	beat      int
	beatStart float64
	steps     int64
	branches  int64
	frames    int64
}

// NewStreamer wraps a generator whose buffer was decoded at the stream
// rate. The whole buffer is converted to PCM once; frames alias it.
func NewStreamer(gen *Generator) (*Streamer, error) {
	if gen.SampleRate() != audio.StreamRate {
		return nil, fmt.Errorf("streaming requires %d Hz audio, got %d Hz", audio.StreamRate, gen.SampleRate())
	}
	return &Streamer{
		gen:     gen,
		pcm:     audio.FloatsToPCM(gen.Samples()),
		frameCh: make(chan []int16, 100),
		jumpCh:  make(chan struct{}, 1),
	}, nil
}

// Frames returns the channel of outgoing PCM frames (20ms each).
func (s *Streamer) Frames() <-chan []int16 {
	return s.frameCh
}

// Jump asks the walk to branch before its next beat, skipping the
// probability draw. A pending request is not queued twice.
func (s *Streamer) Jump() {
	select {
	case s.jumpCh <- struct{}{}:
	default:
	}
}

// Status returns current playback info.
func (s *Streamer) Status() Status {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return Status{
		Beat:      s.beat,
		BeatStart: s.beatStart,
		Steps:     s.steps,
		Branches:  s.branches,
		Elapsed:   float64(s.frames) * audio.FrameDuration.Seconds(),
	}
}

// Run starts the streamer. Blocks until ctx is cancelled.
func (s *Streamer) Run(ctx context.Context) {
	defer close(s.frameCh)

	ticker := time.NewTicker(audio.FrameDuration)
	defer ticker.Stop()

	logger.Info("streamer started",
		logger.Int("beats", len(s.gen.beats)),
		logger.Float64("branch_prob", s.gen.prob))

	var buf []int16
	for {
		// Top the buffer up with whole beats until a frame is ready.
		// Beat spans rarely align to frame boundaries, so the remainder
		// carries over.
		for len(buf) < audio.FrameSize {
			select {
			case <-s.jumpCh:
				if s.gen.Jump() {
					logger.Info("jump requested", logger.Int("beat", s.gen.Current()))
				}
			default:
			}

			st := s.gen.Next()
			buf = append(buf, s.pcm[st.Lo:st.Hi]...)
			s.setBeat(st)
		}

		frame := buf[:audio.FrameSize]
		buf = buf[audio.FrameSize:]

		if !s.sendFrame(ctx, ticker, frame) {
			return
		}
		s.countFrame()
	}
}

// sendFrame waits for the ticker then sends a frame. Returns false on cancel.
func (s *Streamer) sendFrame(ctx context.Context, ticker *time.Ticker, frame []int16) bool {
	select {
	case <-ctx.Done():
		return false
	case <-ticker.C:
	}

	select {
	case s.frameCh <- frame:
		return true
	case <-ctx.Done():
		return false
	}
}

func (s *Streamer) setBeat(st Step) {
	s.mu.Lock()
	s.beat = st.Beat
	s.beatStart = s.gen.beats[st.Beat].Start
	s.steps = s.gen.steps
	s.branches = s.gen.branches
	s.mu.Unlock()
}

func (s *Streamer) countFrame() {
	s.mu.Lock()
	s.frames++
	s.mu.Unlock()
}
