package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"

	"github.com/recomarket/recomarket-backend/internal/api/rest"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/config"
	"github.com/recomarket/recomarket-backend/internal/infrastructure/telemetry"
)

var version = "dev"

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "fatal: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	cfg.Version = version

	otelCfg := telemetry.DefaultConfig()
	otelCfg.ServiceVersion = version
	otelCfg.Environment = cfg.Environment
	otelCfg.OTLPEndpoint = cfg.Telemetry.OTLPEndpoint
	otelCfg.Enabled = cfg.Telemetry.OTLPEndpoint != ""
	otelCfg.SamplingRate = cfg.Telemetry.SampleRate

	provider, err := telemetry.Initialize(ctx, otelCfg)
	if err != nil {
		return fmt.Errorf("failed to initialize telemetry: %w", err)
	}
	defer func() {
		if err := provider.Shutdown(context.Background()); err != nil {
			slog.Warn("telemetry shutdown failed", "error", err)
		}
	}()

	server, err := rest.NewServer(ctx, cfg)
	if err != nil {
		return fmt.Errorf("failed to create server: %w", err)
	}

	return server.Start()
}
