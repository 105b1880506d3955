package cli

import (
	"context"
	"fmt"
	"math"
	"math/rand/v2"
	"os"
	"time"

	"github.com/spf13/cobra"
	"github.com/vbauerster/mpb/v8"
	"github.com/vbauerster/mpb/v8/decor"

	"github.com/satindergrewal/everbeat/internal/analysis"
	"github.com/satindergrewal/everbeat/internal/analysisapi"
	"github.com/satindergrewal/everbeat/internal/audio"
	"github.com/satindergrewal/everbeat/internal/cache"
	"github.com/satindergrewal/everbeat/internal/graph"
	"github.com/satindergrewal/everbeat/internal/jukebox"
	"github.com/satindergrewal/everbeat/internal/logger"
	"github.com/satindergrewal/everbeat/internal/similarity"
	"github.com/satindergrewal/everbeat/internal/song"
)

var (
	genOutput     string
	genDuration   time.Duration
	genThreshold  float64
	genBranchProb float64
	genSeed       int64
	genSampleRate int
	genWorkers    int
	genNoCache    bool
)

var generateCmd = &cobra.Command{
	Use:   "generate <song>",
	Short: "Render a fixed length of endless playback to a WAV file",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		opts := jukebox.Options{BranchProb: genBranchProb}
		if err := opts.Validate(); err != nil {
			logger.Fatal("invalid options", logger.Err(err))
		}
		if genThreshold < 0 {
			logger.Fatal("invalid options",
				logger.String("reason", "threshold must not be negative"),
				logger.Float64("threshold", genThreshold))
		}
		if genDuration <= 0 {
			logger.Fatal("invalid options",
				logger.String("reason", "duration must be positive"),
				logger.Duration("duration", genDuration))
		}
		if genSeed >= 0 {
			opts.Rand = rand.New(rand.NewPCG(uint64(genSeed), uint64(genSeed)))
		}

		ctx := cmd.Context()
		ana, samples, err := analyzeTrack(ctx, args[0], genSampleRate, !genNoCache)
		if err != nil {
			logger.Fatal("analysis failed", logger.Err(err))
		}
		logger.Info("analysis ready",
			logger.Int("beats", len(ana.Beats)),
			logger.Float64("bpm", ana.BPM))

		stats, err := buildGraph(ana.Beats, genThreshold, genWorkers)
		if err != nil {
			logger.Fatal("graph build failed", logger.Err(err))
		}
		logger.Info("graph ready",
			logger.Int("beats", stats.Beats),
			logger.Int("edges", stats.Edges))

		gen, err := jukebox.New(ana.Beats, samples, genSampleRate, opts)
		if err != nil {
			logger.Fatal("generator setup failed", logger.Err(err))
		}

		p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
		bar := p.AddBar(int64(math.Ceil(genDuration.Seconds()*float64(genSampleRate))),
			mpb.PrependDecorators(
				decor.Name("Rendering: "),
				decor.CountersNoUnit("%d / %d"),
			),
			mpb.AppendDecorators(decor.Percentage()),
		)
		gen.SetProgressFunc(func(done, total int) {
			bar.SetCurrent(int64(done))
		})

		out, err := gen.Generate(genDuration)
		if err != nil {
			logger.Fatal("rendering failed", logger.Err(err))
		}
		p.Wait()

		if err := audio.WriteWAVFile(genOutput, out, genSampleRate); err != nil {
			logger.Fatal("write output", logger.String("path", genOutput), logger.Err(err))
		}
		logger.Info("rendition written",
			logger.String("path", genOutput),
			logger.Float64("seconds", float64(len(out))/float64(genSampleRate)),
			logger.Int64("steps", gen.Steps()),
			logger.Int64("branches", gen.Branches()))
	},
}

func init() {
	generateCmd.Flags().StringVarP(&genOutput, "output", "o", "infinite.wav", "output WAV path")
	generateCmd.Flags().DurationVarP(&genDuration, "duration", "d", cfg.Duration, "length of audio to render")
	generateCmd.Flags().Float64VarP(&genThreshold, "threshold", "t", cfg.Threshold, "similarity distance cutoff for branch edges")
	generateCmd.Flags().Float64VarP(&genBranchProb, "probability", "p", cfg.BranchProb, "per-beat probability of taking a branch")
	generateCmd.Flags().Int64Var(&genSeed, "seed", -1, "random seed for a reproducible walk; negative seeds unpredictably")
	generateCmd.Flags().IntVar(&genSampleRate, "sample-rate", cfg.SampleRate, "sample rate to decode and render at")
	generateCmd.Flags().IntVar(&genWorkers, "workers", cfg.Workers, "graph build workers; 0 picks one per CPU")
	generateCmd.Flags().BoolVar(&genNoCache, "no-cache", false, "skip the analysis cache")
	rootCmd.AddCommand(generateCmd)
}

// buildGraph links the beats with a progress bar over the row sweep.
func buildGraph(beats []song.Beat, threshold float64, workers int) (graph.Stats, error) {
	b := graph.NewBuilder(threshold, similarity.DefaultWeights())
	b.SetWorkers(workers)

	p := mpb.New(mpb.WithWidth(64), mpb.WithOutput(os.Stderr))
	bar := p.AddBar(int64(len(beats)),
		mpb.PrependDecorators(
			decor.Name("Linking beats: "),
			decor.CountersNoUnit("%d / %d"),
		),
		mpb.AppendDecorators(decor.Percentage()),
	)
	b.SetProgressFunc(func(done, total int) {
		bar.SetCurrent(int64(done))
	})

	stats, err := b.Build(beats)
	if err != nil {
		bar.Abort(true)
	}
	p.Wait()
	return stats, err
}

// analyzeTrack decodes a song and produces its beat analysis, consulting
// the cache and the remote analysis service when configured.
func analyzeTrack(ctx context.Context, path string, rate int, useCache bool) (*song.Analysis, []float64, error) {
	samples, err := audio.DecodeFile(path, rate)
	if err != nil {
		return nil, nil, fmt.Errorf("decode %s: %w", path, err)
	}
	logger.Info("decoded song",
		logger.String("path", path),
		logger.Int("sample_rate", rate),
		logger.Float64("seconds", float64(len(samples))/float64(rate)))

	var store *cache.Cache
	var key string
	if useCache {
		dir := cfg.CacheDir
		if dir == "" {
			if dir, err = cache.DefaultDir(); err != nil {
				logger.Warn("cache dir unavailable", logger.Err(err))
			}
		}
		if dir != "" {
			if store, err = cache.Open(dir); err != nil {
				logger.Warn("cache unavailable", logger.String("dir", dir), logger.Err(err))
				store = nil
			}
		}
	}
	if store != nil {
		defer store.Close()
		if key, err = cache.Key(path, rate); err != nil {
			logger.Warn("cache key", logger.Err(err))
			key = ""
		}
		if key != "" {
			a, ok, err := store.Get(key)
			if err != nil {
				logger.Warn("cache read", logger.Err(err))
			} else if ok {
				logger.Info("analysis cache hit",
					logger.String("key", key),
					logger.Int("beats", len(a.Beats)))
				return a, samples, nil
			}
		}
	}

	analyzer, err := newAnalyzer(ctx)
	if err != nil {
		return nil, nil, err
	}
	a, err := analyzer.Analyze(ctx, samples, rate)
	if err != nil {
		return nil, nil, fmt.Errorf("analyze %s: %w", path, err)
	}

	if store != nil && key != "" {
		if err := store.Put(key, path, a); err != nil {
			logger.Warn("cache write", logger.Err(err))
		}
	}
	return a, samples, nil
}

// newAnalyzer picks the remote service when configured and the built-in
// analyzer otherwise.
func newAnalyzer(ctx context.Context) (analysis.Analyzer, error) {
	if cfg.AnalysisAPIURL != "" {
		client := analysisapi.NewClient(cfg.AnalysisAPIURL, cfg.AnalysisAPIKey)
		healthCtx, cancel := context.WithTimeout(ctx, time.Minute)
		defer cancel()
		if err := client.WaitForHealthy(healthCtx); err != nil {
			return nil, fmt.Errorf("analysis service: %w", err)
		}
		return client, nil
	}
	ext, err := analysis.New(analysis.DefaultConfig())
	if err != nil {
		return nil, err
	}
	return ext, nil
}
