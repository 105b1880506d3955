package cli

import (
	"context"
	"encoding/json"
	"math/rand/v2"
	"net/http"
	"os/signal"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/everbeat/internal/audio"
	"github.com/satindergrewal/everbeat/internal/graph"
	"github.com/satindergrewal/everbeat/internal/jukebox"
	"github.com/satindergrewal/everbeat/internal/logger"
	"github.com/satindergrewal/everbeat/internal/similarity"
	"github.com/satindergrewal/everbeat/internal/stream"
	"github.com/satindergrewal/everbeat/internal/web"
)

var (
	serveAddr       string
	serveThreshold  float64
	serveBranchProb float64
	serveSeed       int64
	serveWorkers    int
	serveNoCache    bool
)

var serveCmd = &cobra.Command{
	Use:   "serve <song>",
	Short: "Stream endless playback over HTTP and WebRTC",
	Args:  cobra.ExactArgs(1),
	Run: func(cmd *cobra.Command, args []string) {
		ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		opts := jukebox.Options{BranchProb: serveBranchProb}
		if err := opts.Validate(); err != nil {
			logger.Fatal("invalid options", logger.Err(err))
		}
		if serveThreshold < 0 {
			logger.Fatal("invalid options",
				logger.String("reason", "threshold must not be negative"),
				logger.Float64("threshold", serveThreshold))
		}
		if serveSeed >= 0 {
			opts.Rand = rand.New(rand.NewPCG(uint64(serveSeed), uint64(serveSeed)))
		}

		// The live stream is Opus-bound, so decode at the stream rate no
		// matter what offline rendering uses.
		ana, samples, err := analyzeTrack(ctx, args[0], audio.StreamRate, !serveNoCache)
		if err != nil {
			logger.Fatal("analysis failed", logger.Err(err))
		}

		builder := graph.NewBuilder(serveThreshold, similarity.DefaultWeights())
		builder.SetWorkers(serveWorkers)
		stats, err := builder.Build(ana.Beats)
		if err != nil {
			logger.Fatal("graph build failed", logger.Err(err))
		}
		logger.Info("graph ready",
			logger.Int("beats", stats.Beats),
			logger.Int("edges", stats.Edges))

		gen, err := jukebox.New(ana.Beats, samples, audio.StreamRate, opts)
		if err != nil {
			logger.Fatal("generator setup failed", logger.Err(err))
		}
		streamer, err := jukebox.NewStreamer(gen)
		if err != nil {
			logger.Fatal("streamer setup failed", logger.Err(err))
		}
		go streamer.Run(ctx)

		// Broadcaster: fan out PCM frames to all listeners
		broadcaster := stream.NewBroadcaster()
		go broadcaster.Run(ctx, streamer.Frames())

		webrtcHandler := stream.NewWebRTCHandler(broadcaster)

		mux := http.NewServeMux()

		// Web UI
		mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path != "/" {
				http.NotFound(w, r)
				return
			}
			w.Header().Set("Content-Type", "text/html; charset=utf-8")
			w.Write(web.IndexHTML)
		})

		// Audio streams
		mux.Handle("/stream", stream.NewHTTPHandler(broadcaster))
		mux.Handle("/offer", webrtcHandler)

		// API endpoints
		mux.HandleFunc("/api/status", func(w http.ResponseWriter, r *http.Request) {
			st := streamer.Status()

			w.Header().Set("Content-Type", "application/json")
			w.Header().Set("Access-Control-Allow-Origin", "*")
			json.NewEncoder(w).Encode(map[string]any{
				"beat":             st.Beat,
				"beat_start":       st.BeatStart,
				"steps":            st.Steps,
				"branches":         st.Branches,
				"elapsed_seconds":  st.Elapsed,
				"beats":            len(ana.Beats),
				"edges":            stats.Edges,
				"bpm":              ana.BPM,
				"threshold":        serveThreshold,
				"branch_prob":      serveBranchProb,
				"http_listeners":   broadcaster.ListenerCount(),
				"webrtc_listeners": webrtcHandler.PeerCount(),
				"dropped_frames":   broadcaster.Dropped(),
			})
		})

		mux.HandleFunc("/api/jump", func(w http.ResponseWriter, r *http.Request) {
			if r.Method != http.MethodPost {
				http.Error(w, "POST required", http.StatusMethodNotAllowed)
				return
			}
			streamer.Jump()
			w.Header().Set("Content-Type", "application/json")
			json.NewEncoder(w).Encode(map[string]any{"ok": true})
		})

		server := &http.Server{Addr: serveAddr, Handler: mux}

		go func() {
			<-ctx.Done()
			logger.Info("shutting down")
			server.Close()
		}()

		logger.Info("everbeat live",
			logger.String("addr", serveAddr),
			logger.Int("beats", len(ana.Beats)),
			logger.Int("edges", stats.Edges),
			logger.Float64("bpm", ana.BPM))
		if err := server.ListenAndServe(); err != http.ErrServerClosed {
			logger.Fatal("http server", logger.Err(err))
		}
	},
}

func init() {
	serveCmd.Flags().StringVar(&serveAddr, "addr", cfg.Addr, "listen address")
	serveCmd.Flags().Float64VarP(&serveThreshold, "threshold", "t", cfg.Threshold, "similarity distance cutoff for branch edges")
	serveCmd.Flags().Float64VarP(&serveBranchProb, "probability", "p", cfg.BranchProb, "per-beat probability of taking a branch")
	serveCmd.Flags().Int64Var(&serveSeed, "seed", -1, "random seed for a reproducible walk; negative seeds unpredictably")
	serveCmd.Flags().IntVar(&serveWorkers, "workers", cfg.Workers, "graph build workers; 0 picks one per CPU")
	serveCmd.Flags().BoolVar(&serveNoCache, "no-cache", false, "skip the analysis cache")
	rootCmd.AddCommand(serveCmd)
}
