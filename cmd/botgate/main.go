// botgate receives Telegram webhook updates, validates them and answers
// commands inline in the webhook response.
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/marcus-qen/botgate/internal/config"
	"github.com/marcus-qen/botgate/internal/server"
	"github.com/marcus-qen/botgate/internal/telemetry"
)

var (
	version = "dev"
	commit  = "unknown"
	date    = "unknown"
)

func main() {
	var configPath string
	var showVersion bool
	flag.StringVar(&configPath, "config", os.Getenv("BOTGATE_CONFIG"), "Path to a YAML config file.")
	flag.BoolVar(&showVersion, "version", false, "Print version and exit.")
	flag.Parse()

	if showVersion {
		fmt.Printf("botgate %s (commit: %s, built: %s)\n", version, commit, date)
		return
	}

	cfg, err := config.Load(configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	if err := cfg.Validate(); err != nil {
		fmt.Fprintf(os.Stderr, "invalid config:\n%v\n", err)
		os.Exit(1)
	}

	logger, err := newLogger(cfg.LogLevel)
	if err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	shutdownTracing, err := telemetry.InitTraceProvider(ctx, cfg.Telemetry.OTLPEndpoint, version)
	if err != nil {
		logger.Fatal("failed to initialise tracing", zap.Error(err))
	}
	defer func() { _ = shutdownTracing(context.Background()) }()

	server.Version = version
	srv, err := server.New(cfg, logger)
	if err != nil {
		logger.Fatal("failed to build server", zap.Error(err))
	}

	if err := srv.Run(ctx); err != nil {
		logger.Error("server stopped with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("stopped")
}

func newLogger(level string) (*zap.Logger, error) {
	lvl, err := zapcore.ParseLevel(level)
	if err != nil {
		return nil, fmt.Errorf("log level: %w", err)
	}
	zc := zap.NewProductionConfig()
	zc.Level = zap.NewAtomicLevelAt(lvl)
	return zc.Build()
}
