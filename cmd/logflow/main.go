// Command logflow loads one or more pipeline definitions and runs them
// until a termination signal arrives. Mirrors cmd/pipeline/main.go's
// shape: stdlib flag for the CLI surface, os/signal + context for
// shutdown, a final metrics summary on exit. No HTTP management surface
// is implemented — that belongs to a separate control-plane service, per
// SPEC_FULL.md §6.
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/logflow-dev/logflow/pkg/config"
	"github.com/logflow-dev/logflow/pkg/engine"
	"github.com/logflow-dev/logflow/pkg/pipeline"

	_ "github.com/logflow-dev/logflow/pkg/plugin/builtin"
)

var (
	version   = "dev"
	buildTime = "unknown"
)

func main() {
	configPath := flag.String("c", "", "path to a pipeline config file or a directory of them")
	showVersion := flag.Bool("version", false, "print version and exit")
	validate := flag.Bool("validate", false, "load and validate config, then exit")
	flag.Parse()

	if *showVersion {
		fmt.Printf("logflow %s (built: %s)\n", version, buildTime)
		os.Exit(0)
	}

	logger := slog.New(slog.NewTextHandler(os.Stderr, nil))
	slog.SetDefault(logger)

	if *configPath == "" {
		fmt.Fprintln(os.Stderr, "error: -c <config path> is required")
		flag.Usage()
		os.Exit(1)
	}

	configs, err := loadConfigs(*configPath)
	if err != nil {
		logger.Error("failed to load config", "error", err)
		os.Exit(1)
	}
	if len(configs) == 0 {
		fmt.Fprintln(os.Stderr, "error: no pipeline configs found at", *configPath)
		os.Exit(1)
	}

	if *validate {
		fmt.Printf("%d pipeline(s) valid\n", len(configs))
		os.Exit(0)
	}

	eng := engine.New()
	for _, cfg := range configs {
		if err := eng.Load(cfg, false); err != nil {
			logger.Error("failed to load pipeline", "pipeline", cfg.Name, "error", err)
			os.Exit(1)
		}
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logger.Info("signal received, shutting down", "signal", sig.String())
		cancel()
	}()

	for _, name := range eng.List() {
		if err := eng.Start(ctx, name); err != nil {
			logger.Error("failed to start pipeline", "pipeline", name, "error", err)
			os.Exit(1)
		}
		logger.Info("pipeline started", "pipeline", name)
	}

	<-ctx.Done()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer shutdownCancel()
	if err := eng.Shutdown(shutdownCtx); err != nil {
		logger.Error("shutdown completed with errors", "error", err)
	}

	logger.Info("=== final metrics ===")
	for name, m := range eng.AllMetrics() {
		logger.Info("pipeline metrics",
			"pipeline", name,
			"state", m.State,
			"events_processed", m.EventsProcessed,
			"events_dropped", m.EventsDropped,
			"processing_errors", m.ProcessingErrors,
			"uptime_seconds", m.UptimeSeconds,
		)
	}
}

func loadConfigs(path string) ([]pipeline.Config, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if info.IsDir() {
		return config.LoadDir(path)
	}
	cfg, err := config.LoadFile(path)
	if err != nil {
		return nil, err
	}
	return []pipeline.Config{cfg}, nil
}
