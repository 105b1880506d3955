package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	// Clear any env vars that might interfere
	envVars := []string{
		"EVERBEAT_ANALYSIS_URL", "EVERBEAT_ANALYSIS_KEY", "EVERBEAT_SAMPLE_RATE",
		"EVERBEAT_CACHE_DIR", "EVERBEAT_THRESHOLD", "EVERBEAT_BRANCH_PROB",
		"EVERBEAT_DURATION", "EVERBEAT_WORKERS", "EVERBEAT_ADDR",
		"EVERBEAT_LOG_LEVEL", "EVERBEAT_LOG_FILE",
	}
	for _, k := range envVars {
		os.Unsetenv(k)
	}

	cfg := Load()

	if cfg.AnalysisAPIURL != "" {
		t.Errorf("AnalysisAPIURL = %q, want empty default", cfg.AnalysisAPIURL)
	}
	if cfg.AnalysisAPIKey != "" {
		t.Errorf("AnalysisAPIKey = %q, want empty default", cfg.AnalysisAPIKey)
	}
	if cfg.SampleRate != 44100 {
		t.Errorf("SampleRate = %d, want 44100", cfg.SampleRate)
	}
	if cfg.CacheDir != "" {
		t.Errorf("CacheDir = %q, want empty default", cfg.CacheDir)
	}
	if cfg.Threshold != 60 {
		t.Errorf("Threshold = %v, want 60", cfg.Threshold)
	}
	if cfg.BranchProb != 0.5 {
		t.Errorf("BranchProb = %v, want 0.5", cfg.BranchProb)
	}
	if cfg.Duration != 5*time.Minute {
		t.Errorf("Duration = %v, want 5m", cfg.Duration)
	}
	if cfg.Workers != 0 {
		t.Errorf("Workers = %d, want 0", cfg.Workers)
	}
	if cfg.Addr != ":8080" {
		t.Errorf("Addr = %q, want ':8080'", cfg.Addr)
	}
	if cfg.LogLevel != "info" {
		t.Errorf("LogLevel = %q, want 'info'", cfg.LogLevel)
	}
	if cfg.LogFile != "" {
		t.Errorf("LogFile = %q, want empty default", cfg.LogFile)
	}
}

func TestLoadFromEnv(t *testing.T) {
	t.Setenv("EVERBEAT_ANALYSIS_URL", "http://localhost:9000")
	t.Setenv("EVERBEAT_ANALYSIS_KEY", "test-key")
	t.Setenv("EVERBEAT_SAMPLE_RATE", "48000")
	t.Setenv("EVERBEAT_CACHE_DIR", "/tmp/everbeat-cache")
	t.Setenv("EVERBEAT_THRESHOLD", "80")
	t.Setenv("EVERBEAT_BRANCH_PROB", "0.25")
	t.Setenv("EVERBEAT_DURATION", "2.5")
	t.Setenv("EVERBEAT_WORKERS", "4")
	t.Setenv("EVERBEAT_ADDR", ":3000")
	t.Setenv("EVERBEAT_LOG_LEVEL", "debug")
	t.Setenv("EVERBEAT_LOG_FILE", "/tmp/everbeat.log")

	cfg := Load()

	if cfg.AnalysisAPIURL != "http://localhost:9000" {
		t.Errorf("AnalysisAPIURL = %q, want env override", cfg.AnalysisAPIURL)
	}
	if cfg.AnalysisAPIKey != "test-key" {
		t.Errorf("AnalysisAPIKey = %q, want env override", cfg.AnalysisAPIKey)
	}
	if cfg.SampleRate != 48000 {
		t.Errorf("SampleRate = %d, want 48000", cfg.SampleRate)
	}
	if cfg.CacheDir != "/tmp/everbeat-cache" {
		t.Errorf("CacheDir = %q, want env override", cfg.CacheDir)
	}
	if cfg.Threshold != 80 {
		t.Errorf("Threshold = %v, want 80", cfg.Threshold)
	}
	if cfg.BranchProb != 0.25 {
		t.Errorf("BranchProb = %v, want 0.25", cfg.BranchProb)
	}
	if cfg.Duration != 150*time.Second {
		t.Errorf("Duration = %v, want 2m30s", cfg.Duration)
	}
	if cfg.Workers != 4 {
		t.Errorf("Workers = %d, want 4", cfg.Workers)
	}
	if cfg.Addr != ":3000" {
		t.Errorf("Addr = %q, want ':3000'", cfg.Addr)
	}
	if cfg.LogLevel != "debug" {
		t.Errorf("LogLevel = %q, want 'debug'", cfg.LogLevel)
	}
	if cfg.LogFile != "/tmp/everbeat.log" {
		t.Errorf("LogFile = %q, want env override", cfg.LogFile)
	}
}

func TestEnvIntInvalidFallsBack(t *testing.T) {
	t.Setenv("EVERBEAT_SAMPLE_RATE", "not-a-number")
	cfg := Load()
	if cfg.SampleRate != 44100 {
		t.Errorf("Invalid int env should fallback to default: got %d, want 44100", cfg.SampleRate)
	}
}

func TestEnvFloatInvalidFallsBack(t *testing.T) {
	t.Setenv("EVERBEAT_THRESHOLD", "sixty")
	cfg := Load()
	if cfg.Threshold != 60 {
		t.Errorf("Invalid float env should fallback to default: got %v, want 60", cfg.Threshold)
	}
}

func TestEnvStrEmpty(t *testing.T) {
	// Unset env should use fallback
	os.Unsetenv("EVERBEAT_ADDR")
	cfg := Load()
	if cfg.Addr != ":8080" {
		t.Errorf("Unset env should use fallback: got %q", cfg.Addr)
	}
}
