// Command server runs the deployhub API.
//
// Configuration comes from the environment (and an optional .env file);
// see internal/config for every variable and its default.
package main

import (
	"log/slog"
	"os"
	"path/filepath"

	"github.com/sakif/deployhub/internal/config"
	"github.com/sakif/deployhub/internal/server"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		slog.Error("loading configuration", slog.String("error", err.Error()))
		os.Exit(1)
	}
	logger := config.NewLogger(cfg, os.Stdout)

	if cfg.SessionSecretGenerated {
		logger.Warn("SESSION_SECRET not set; using a random secret, sessions end on restart")
	}
	if cfg.ClientID == "" || cfg.ClientSecret == "" {
		logger.Warn("CLIENT_ID or CLIENT_SECRET not set; GitHub code exchange will fail")
	}

	if cfg.DBPath != ":memory:" {
		dbDir := filepath.Dir(cfg.DBPath)
		if err := os.MkdirAll(dbDir, 0o755); err != nil {
			logger.Error("failed to create database directory",
				slog.String("dir", dbDir),
				slog.String("error", err.Error()),
			)
			os.Exit(1)
		}
	}

	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Error("failed to create server", slog.String("error", err.Error()))
		os.Exit(1)
	}

	// Start blocks until SIGINT or SIGTERM.
	if err := srv.Start(); err != nil {
		logger.Error("server error", slog.String("error", err.Error()))
		os.Exit(1)
	}
}
