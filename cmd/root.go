package cmd

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"
	"syscall"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/soocke/facegate-go/config"
)

// Version is the release string printed by --version.
const Version = "v0.3.0"

var (
	cfgPath  string
	logLevel string
)

var rootCmd = &cobra.Command{
	Use:     "facegate",
	Version: Version,
	Short:   "Face capture kiosk for check-in, registration and admin login",
	Long: `facegate polls a camera, asks the face API how well each frame matches,
and captures a frame once the match has held for enough consecutive polls.
The captured frame is previewed and, after confirmation, submitted as a
check-in, a face registration or an admin login.`,
	SilenceUsage: true,
}

// Execute runs the root command until it returns or the process is interrupted.
func Execute() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	rootCmd.SetVersionTemplate(`{{printf "%s\n" .Version}}`)

	if err := rootCmd.ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
	rootCmd.PersistentFlags().StringVar(&cfgPath, "config", "facegate.json", "path to the JSON config file")
	rootCmd.PersistentFlags().StringVar(&logLevel, "log-level", "", "log level: debug, info, warn or error (default from config)")
}

func initConfig() {
	_ = godotenv.Load()
}

// loadConfig reads the config file, overlays the environment and validates
// the result. A missing file yields defaults.
func loadConfig() (*config.Config, error) {
	cfg, err := config.Load(cfgPath)
	if err != nil {
		return nil, fmt.Errorf("could not load config %s: %w", cfgPath, err)
	}
	cfg.ApplyEnv()
	if logLevel != "" {
		cfg.LogLevel = logLevel
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// newLogger returns a structured JSON logger writing to stdout.
func newLogger(level string) *slog.Logger {
	h := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: parseLevel(level)})
	return slog.New(h)
}

func parseLevel(s string) slog.Level {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return slog.LevelDebug
	case "warn", "warning":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
