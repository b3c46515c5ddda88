package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"github.com/spf13/cobra"

	"github.com/jimmyjdejesus-cmyk/Jarvis-AI-sub003/internal/config"
)

var (
	configFile string
	homeDir    string
	verbose    bool

	// cfg is populated by loadConfig before any subcommand runs.
	cfg *config.Config
)

var rootCmd = &cobra.Command{
	Use:   "jarvis",
	Short: "Jarvis - mission orchestration for specialist collectives",
	Long: `Jarvis runs missions: directed graphs of specialist work units with
durable event logging, adversarial quality review, and crash-safe resume.

Submit a mission definition with 'jarvis run', inspect its event log with
'jarvis events', and pick up interrupted runs with 'jarvis resume'.`,
	PersistentPreRunE: loadConfig,
	SilenceUsage:      true,
	SilenceErrors:     true,
}

// Execute runs the root command with signal handling.
func Execute(ctx context.Context) error {
	ctx, cancel := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	return rootCmd.ExecuteContext(ctx)
}

// loadConfig resolves and loads the configuration before any command runs.
func loadConfig(cmd *cobra.Command, args []string) error {
	if cmd.Name() == "version" || cmd.Name() == "help" {
		return nil
	}

	home := homeDir
	if home == "" {
		home = os.Getenv("JARVIS_HOME")
	}

	path := configFile
	if path == "" {
		if home != "" {
			path = filepath.Join(home, "config.yaml")
		} else {
			path = filepath.Join(defaultHome(), "config.yaml")
		}
	}

	loader := config.NewLoader(config.NewValidator())
	loaded, err := loader.LoadWithDefaults(path)
	if err != nil {
		return err
	}
	if home != "" {
		loaded.Core.HomeDir = home
	}
	if verbose {
		loaded.Logging.Level = "debug"
	}
	cfg = loaded

	slog.SetDefault(newLogger(cfg.Logging))
	return nil
}

func defaultHome() string {
	if userHome, err := os.UserHomeDir(); err == nil {
		return filepath.Join(userHome, ".jarvis")
	}
	return ".jarvis"
}

// newLogger builds the process logger from the logging config.
func newLogger(lc config.LoggingConfig) *slog.Logger {
	var level slog.Level
	switch lc.Level {
	case "debug":
		level = slog.LevelDebug
	case "warn":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}

	opts := &slog.HandlerOptions{Level: level}
	if lc.Format == "text" {
		return slog.New(slog.NewTextHandler(os.Stderr, opts))
	}
	return slog.New(slog.NewJSONHandler(os.Stderr, opts))
}

func init() {
	rootCmd.PersistentFlags().StringVar(&configFile, "config", "", "Path to config file")
	rootCmd.PersistentFlags().StringVar(&homeDir, "home", "", "Application home directory")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "Enable debug logging")

	rootCmd.AddCommand(runCmd)
	rootCmd.AddCommand(resumeCmd)
	rootCmd.AddCommand(missionsCmd)
	rootCmd.AddCommand(eventsCmd)
	rootCmd.AddCommand(serveCmd)
	rootCmd.AddCommand(versionCmd)
}
