// Package cli defines the everbeat commands.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/satindergrewal/everbeat/internal/config"
	"github.com/satindergrewal/everbeat/internal/logger"
)

// cfg supplies flag defaults, so EVERBEAT_* variables and a .env file
// configure the tool without repeating flags on every run.
var cfg = config.Load()

var (
	logLevel string
	logFile  string
)

var rootCmd = &cobra.Command{
	Use:   "everbeat",
	Short: "everbeat plays one song forever.",
	Long: `everbeat cuts a song into beats, links the beats that sound alike,
and walks the resulting graph so playback never has to reach the end.`,
	PersistentPreRun: func(cmd *cobra.Command, args []string) {
		logger.Init(logger.Config{
			Level:      logger.LogLevel(logLevel),
			OutputPath: logFile,
			MaxSize:    50,
			MaxBackups: 3,
			MaxAge:     14,
			Compress:   true,
		})
	},
}

// Execute runs the root command.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", cfg.LogLevel, "minimum log level (debug, info, warn, error)")
	rootCmd.PersistentFlags().StringVar(&logFile, "log-file", cfg.LogFile, "also write JSON logs to this file, with rotation")
}
