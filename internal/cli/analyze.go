package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/dhowden/tag"
	"github.com/spf13/cobra"

	"github.com/satindergrewal/everbeat/internal/logger"
)

var (
	analyzeJSON       bool
	analyzeThreshold  float64
	analyzeSampleRate int
	analyzeNoCache    bool
)

var analyzeCmd = &cobra.Command{
	Use:   "analyze <song>",
	Short: "Print the beat analysis and branch graph for a song",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		if analyzeThreshold < 0 {
			logger.Fatal("invalid options",
				logger.String("reason", "threshold must not be negative"),
				logger.Float64("threshold", analyzeThreshold))
		}

		path := args[0]
		ana, _, err := analyzeTrack(cmd.Context(), path, analyzeSampleRate, !analyzeNoCache)
		if err != nil {
			logger.Fatal("analysis failed", logger.Err(err))
		}
		stats, err := buildGraph(ana.Beats, analyzeThreshold, cfg.Workers)
		if err != nil {
			logger.Fatal("graph build failed", logger.Err(err))
		}

		if analyzeJSON {
			enc := json.NewEncoder(os.Stdout)
			enc.SetIndent("", "  ")
			if err := enc.Encode(ana); err != nil {
				logger.Fatal("encode analysis", logger.Err(err))
			}
			return
		}

		title, artist := readTags(path)
		last := ana.Beats[len(ana.Beats)-1]
		fmt.Printf("%s by %s\n", title, artist)
		fmt.Printf("tempo:  %.1f bpm\n", ana.BPM)
		fmt.Printf("beats:  %d\n", len(ana.Beats))
		fmt.Printf("edges:  %d\n", stats.Edges)
		fmt.Printf("span:   %.2fs to %.2fs\n", ana.Beats[0].Start, last.End())
		fmt.Printf("rate:   %d Hz\n", ana.SampleRate)
	},
}

func init() {
	analyzeCmd.Flags().BoolVar(&analyzeJSON, "json", false, "emit the analysis with neighbor links as JSON on stdout")
	analyzeCmd.Flags().Float64VarP(&analyzeThreshold, "threshold", "t", cfg.Threshold, "similarity distance cutoff for branch edges")
	analyzeCmd.Flags().IntVar(&analyzeSampleRate, "sample-rate", cfg.SampleRate, "sample rate to decode at")
	analyzeCmd.Flags().BoolVar(&analyzeNoCache, "no-cache", false, "skip the analysis cache")
	rootCmd.AddCommand(analyzeCmd)
}

// readTags pulls title and artist from the file's metadata, falling back
// to the file name when the song carries no tags.
func readTags(path string) (title, artist string) {
	title = strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	artist = "unknown artist"

	f, err := os.Open(path)
	if err != nil {
		return title, artist
	}
	defer f.Close()

	m, err := tag.ReadFrom(f)
	if err != nil {
		return title, artist
	}
	if m.Title() != "" {
		title = m.Title()
	}
	if m.Artist() != "" {
		artist = m.Artist()
	}
	return title, artist
}
