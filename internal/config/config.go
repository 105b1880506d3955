package config

import (
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

// Config holds all runtime configuration, loaded from environment variables.
// Command line flags default to these values and override them when set.
type Config struct {
	// Beat analysis
	AnalysisAPIURL string // remote analysis service; empty runs the built-in analyzer
	AnalysisAPIKey string
	SampleRate     int
	CacheDir       string // analysis cache location; empty uses the user cache dir

	// Walk behavior
	Threshold  float64       // neighbor distance cutoff
	BranchProb float64       // per-beat jump probability
	Duration   time.Duration // target output length
	Workers    int           // graph build workers; 0 picks one per CPU

	// Server
	Addr string

	// Logging
	LogLevel string
	LogFile  string
}

// Load reads configuration from a .env file (when present) and the
// environment, with sane defaults.
func Load() Config {
	_ = godotenv.Load()

	return Config{
		AnalysisAPIURL: envStr("EVERBEAT_ANALYSIS_URL", ""),
		AnalysisAPIKey: envStr("EVERBEAT_ANALYSIS_KEY", ""),
		SampleRate:     envInt("EVERBEAT_SAMPLE_RATE", 44100),
		CacheDir:       envStr("EVERBEAT_CACHE_DIR", ""),

		Threshold:  envFloat("EVERBEAT_THRESHOLD", 60),
		BranchProb: envFloat("EVERBEAT_BRANCH_PROB", 0.5),
		Duration:   time.Duration(envFloat("EVERBEAT_DURATION", 5) * float64(time.Minute)),
		Workers:    envInt("EVERBEAT_WORKERS", 0),

		Addr: envStr("EVERBEAT_ADDR", ":8080"),

		LogLevel: envStr("EVERBEAT_LOG_LEVEL", "info"),
		LogFile:  envStr("EVERBEAT_LOG_FILE", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
