// Package cli implements the focusbooster command line.
package cli

import (
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/ashureev/focusbooster/internal/config"
)

var rootCmd = &cobra.Command{
	Use:   "focusbooster",
	Short: "Pomodoro focus timer with an AI productivity coach",
	Long: `focusbooster runs a 25/5 Pomodoro timer, keeps today's focus statistics
and relays chat to an AI productivity coach.

The serve command exposes the session over HTTP, server-sent events and
WebSocket, and also hosts the coach relay.`,
	SilenceUsage: true,
}

var configFile string

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&configFile, "config", "c", "", "YAML config file (overrides CONFIG_FILE)")
}

// loadConfig reads .env, then the YAML file and environment.
func loadConfig() (*config.Config, error) {
	if err := godotenv.Load(); err != nil {
		slog.Debug("No .env file found, using environment variables")
	}
	if configFile != "" {
		if err := os.Setenv("CONFIG_FILE", configFile); err != nil {
			return nil, fmt.Errorf("set CONFIG_FILE: %w", err)
		}
	}
	return config.Load()
}

// newLogger builds the JSON logger used by every command and installs it as
// the default.
func newLogger(level string, w io.Writer) *slog.Logger {
	lvl, err := config.ParseLevel(level)
	if err != nil {
		lvl = slog.LevelInfo
	}
	logger := slog.New(slog.NewJSONHandler(w, &slog.HandlerOptions{
		Level: lvl,
	}))
	slog.SetDefault(logger)
	return logger
}
