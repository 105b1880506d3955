// Package analysisapi talks to a remote beat analysis service over REST,
// as a drop-in alternative to the built-in analyzer for hosts where the
// heavier model-based service is available.
package analysisapi

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/satindergrewal/everbeat/internal/analysis"
	"github.com/satindergrewal/everbeat/internal/audio"
	"github.com/satindergrewal/everbeat/internal/logger"
	"github.com/satindergrewal/everbeat/internal/song"
)

// Client communicates with the analysis service REST API.
type Client struct {
	apiURL string
	apiKey string
	http   *http.Client
}

// NewClient creates an analysis API client for the given base URL.
func NewClient(apiURL, apiKey string) *Client {
	return &Client{
		apiURL: apiURL,
		apiKey: apiKey,
		http:   &http.Client{Timeout: 5 * time.Minute},
	}
}

type analyzeResp struct {
	BPM   float64     `json:"bpm"`
	Beats []song.Beat `json:"beats"`
	Error string      `json:"error,omitempty"`
}

// WaitForHealthy blocks until the analysis service responds to health
// checks or the context ends.
func (c *Client) WaitForHealthy(ctx context.Context) error {
	logger.Info("waiting for analysis service", logger.String("url", c.apiURL))
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}

		resp, err := c.http.Get(c.apiURL + "/health")
		if err == nil && resp.StatusCode == http.StatusOK {
			resp.Body.Close()
			logger.Info("analysis service is healthy")
			return nil
		}
		if resp != nil {
			resp.Body.Close()
		}

		logger.Warn("analysis service not ready, retrying in 5s")
		time.Sleep(5 * time.Second)
	}
}

// Analyze ships the buffer to the service as a WAV body and parses the
// returned beat list. The response is validated before use: a remote
// service is not trusted to hand back beats the graph can't consume.
func (c *Client) Analyze(ctx context.Context, samples []float64, rate int) (*song.Analysis, error) {
	var body bytes.Buffer
	if err := audio.EncodeWAV(&body, samples, rate); err != nil {
		return nil, fmt.Errorf("encode request body: %w", err)
	}

	url := c.apiURL + "/v1/analyze?sample_rate=" + strconv.Itoa(rate)
	httpReq, err := http.NewRequestWithContext(ctx, "POST", url, &body)
	if err != nil {
		return nil, fmt.Errorf("create request: %w", err)
	}
	httpReq.Header.Set("Content-Type", "audio/wav")
	if c.apiKey != "" {
		httpReq.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.http.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("submit analysis: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		msg, _ := io.ReadAll(io.LimitReader(resp.Body, 512))
		return nil, fmt.Errorf("analysis service returned %s: %s", resp.Status, bytes.TrimSpace(msg))
	}

	var result analyzeResp
	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("decode response: %w", err)
	}
	if result.Error != "" {
		return nil, fmt.Errorf("analysis service error: %s", result.Error)
	}
	if len(result.Beats) == 0 {
		return nil, analysis.ErrNoBeats
	}
	if err := validateBeats(result.Beats); err != nil {
		return nil, fmt.Errorf("analysis service response: %w", err)
	}

	return &song.Analysis{SampleRate: rate, BPM: result.BPM, Beats: result.Beats}, nil
}

// validateBeats checks the shape the rest of the pipeline relies on and
// renumbers indices to match slice positions.
func validateBeats(beats []song.Beat) error {
	prevStart := -1.0
	for i := range beats {
		b := &beats[i]
		if len(b.Timbre) != song.FeatureSize || len(b.Pitch) != song.FeatureSize {
			return fmt.Errorf("beat %d: feature vectors must have %d components", i, song.FeatureSize)
		}
		if b.Duration <= 0 {
			return fmt.Errorf("beat %d: duration must be positive, got %v", i, b.Duration)
		}
		if b.Start < 0 || b.Start <= prevStart {
			return fmt.Errorf("beat %d: start %v does not increase", i, b.Start)
		}
		prevStart = b.Start
		b.Index = i
	}
	return nil
}
