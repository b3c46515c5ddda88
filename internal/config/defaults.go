package config

import (
	"os"
	"path/filepath"
	"time"
)

// DefaultConfig returns a Config with sensible default values.
func DefaultConfig() *Config {
	homeDir := getDefaultHomeDir()

	return &Config{
		Core: CoreConfig{
			HomeDir:     homeDir,
			DataDir:     filepath.Join(homeDir, "data"),
			MaxParallel: 4,
			Timeout:     5 * time.Minute,
			Debug:       false,
		},
		Database: DBConfig{
			Path:        filepath.Join(homeDir, "jarvis.db"),
			BusyTimeout: 5 * time.Second,
			WALMode:     true,
		},
		Auction: AuctionConfig{
			Timeout: 2 * time.Minute,
		},
		Gate: GateConfig{
			RiskThreshold: 0.5,
			MaxRevisions:  2,
		},
		Server: ServerConfig{
			Host:            "127.0.0.1",
			Port:            8750,
			ReadTimeout:     30 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
		Tracing: TracingConfig{
			Enabled:  false,
			Endpoint: "",
		},
	}
}

// getDefaultHomeDir resolves the application home, honoring JARVIS_HOME.
func getDefaultHomeDir() string {
	if home := os.Getenv("JARVIS_HOME"); home != "" {
		return home
	}
	userHome, err := os.UserHomeDir()
	if err != nil {
		return ".jarvis"
	}
	return filepath.Join(userHome, ".jarvis")
}
