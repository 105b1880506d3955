// Package cache stores finished analyses in a local SQLite database so a
// song is only analyzed once per sample rate and feature version.
package cache

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/OneOfOne/xxhash"
	_ "github.com/mattn/go-sqlite3"

	"github.com/satindergrewal/everbeat/internal/analysis"
	"github.com/satindergrewal/everbeat/internal/song"
)

// Cache wraps the SQLite store.
type Cache struct {
	db *sql.DB
}

// DefaultDir returns the per-user cache location.
func DefaultDir() (string, error) {
	base, err := os.UserCacheDir()
	if err != nil {
		return "", fmt.Errorf("resolve cache dir: %w", err)
	}
	return filepath.Join(base, "everbeat"), nil
}

// Open creates the cache directory and database as needed.
func Open(dir string) (*Cache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("create cache dir: %w", err)
	}

	db, err := sql.Open("sqlite3", filepath.Join(dir, "analyses.db"))
	if err != nil {
		return nil, fmt.Errorf("open cache database: %w", err)
	}
	if err := createTables(db); err != nil {
		db.Close()
		return nil, err
	}
	return &Cache{db: db}, nil
}

// Close releases the database handle.
func (c *Cache) Close() error {
	if c.db != nil {
		return c.db.Close()
	}
	return nil
}

func createTables(db *sql.DB) error {
	schema := `
    CREATE TABLE IF NOT EXISTS analyses (
        key TEXT PRIMARY KEY,
        path TEXT NOT NULL,
        sample_rate INTEGER NOT NULL,
        bpm REAL NOT NULL,
        beat_count INTEGER NOT NULL,
        payload TEXT NOT NULL,
        created_at TIMESTAMP DEFAULT CURRENT_TIMESTAMP
    );
    `
	if _, err := db.Exec(schema); err != nil {
		return fmt.Errorf("error creating analyses table: %w", err)
	}
	return nil
}

// Key fingerprints the audio file contents together with the sample rate
// and feature version, so file edits, resampling, and analyzer changes
// all miss cleanly.
func Key(path string, rate int) (string, error) {
	f, err := os.Open(path)
	if err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return "", fmt.Errorf("hash %s: %w", path, err)
	}
	return fmt.Sprintf("%016x-%d-v%d", h.Sum64(), rate, analysis.FeatureVersion), nil
}

// Get returns the stored analysis for key, or ok=false on a miss.
func (c *Cache) Get(key string) (*song.Analysis, bool, error) {
	row := c.db.QueryRow("SELECT payload FROM analyses WHERE key = ?", key)

	var payload string
	if err := row.Scan(&payload); err != nil {
		if err == sql.ErrNoRows {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("read cache: %w", err)
	}

	var a song.Analysis
	if err := json.Unmarshal([]byte(payload), &a); err != nil {
		return nil, false, fmt.Errorf("decode cached analysis: %w", err)
	}
	return &a, true, nil
}

// Put stores an analysis under key. Neighbor lists are stripped first:
// they depend on the threshold and weights, which change between runs.
func (c *Cache) Put(key, path string, a *song.Analysis) error {
	stripped := *a
	stripped.Beats = make([]song.Beat, len(a.Beats))
	copy(stripped.Beats, a.Beats)
	for i := range stripped.Beats {
		stripped.Beats[i].Neighbors = nil
	}

	payload, err := json.Marshal(&stripped)
	if err != nil {
		return fmt.Errorf("encode analysis: %w", err)
	}

	_, err = c.db.Exec(
		"INSERT OR REPLACE INTO analyses (key, path, sample_rate, bpm, beat_count, payload) VALUES (?, ?, ?, ?, ?, ?)",
		key, path, a.SampleRate, a.BPM, len(a.Beats), string(payload),
	)
	if err != nil {
		return fmt.Errorf("write cache: %w", err)
	}
	return nil
}
