// Sable agent server. Hosts the HTTP API and the agent runtime that
// plans and executes tasks inside per-agent sandboxes.
package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/docker/docker/client"
	"github.com/joho/godotenv"

	"github.com/sablehq/sable/pkg/api"
	"github.com/sablehq/sable/pkg/cleanup"
	"github.com/sablehq/sable/pkg/config"
	"github.com/sablehq/sable/pkg/llm"
	"github.com/sablehq/sable/pkg/runtime"
	"github.com/sablehq/sable/pkg/version"
)

func main() {
	// Load .env from the working directory before reading configuration
	if err := godotenv.Load(); err != nil {
		slog.Warn("Could not load .env file, continuing with existing environment", "error", err)
	}

	// 1. Initialize configuration
	cfg, err := config.Load()
	if err != nil {
		slog.Error("Failed to load configuration", "error", err)
		os.Exit(1)
	}

	// 2. Configure logging
	slog.SetDefault(slog.New(slog.NewTextHandler(os.Stderr, &slog.HandlerOptions{
		Level: cfg.SlogLevel(),
	})))

	slog.Info("Starting sable",
		"version", version.GitCommit,
		"model", cfg.ModelName,
		"addr", cfg.ListenAddress)

	ctx := context.Background()

	// 3. Create the LLM client and the agent runtime
	llmClient := llm.NewOpenAIClient(cfg)
	rt := runtime.New(cfg, llmClient)

	// 4. Create the HTTP server
	server := api.NewServer(cfg, rt)

	// 5. Start the sandbox reaper (docker mode only)
	var reaper *cleanup.Service
	if cfg.SandboxAddress == "" && cfg.SandboxImage != "" {
		docker, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
		if err != nil {
			slog.Warn("Sandbox reaper disabled: docker client unavailable", "error", err)
		} else {
			reaper = cleanup.NewService(docker, cfg)
			reaper.Start(ctx)
		}
	}

	// 6. Start HTTP server (non-blocking)
	errCh := make(chan error, 1)
	go func() {
		if err := server.Start(); err != nil {
			errCh <- err
		}
	}()

	slog.Info("Sable started successfully")

	// 7. Wait for shutdown signal or server error
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGTERM, syscall.SIGINT)

	select {
	case sig := <-sigCh:
		slog.Info("Shutdown signal received", "signal", sig)
	case err := <-errCh:
		slog.Error("Server error triggered shutdown", "error", err)
	}

	// 8. Graceful shutdown: stop accepting requests first, then tear down
	// live agents and their sandboxes.
	httpShutdownCtx, httpCancel := context.WithTimeout(ctx, 5*time.Second)
	defer httpCancel()
	if err := server.Shutdown(httpShutdownCtx); err != nil {
		slog.Error("HTTP server shutdown error", "error", err)
	}

	if reaper != nil {
		reaper.Stop()
	}

	closeCtx, closeCancel := context.WithTimeout(ctx, 60*time.Second)
	defer closeCancel()
	rt.CloseAll(closeCtx)

	slog.Info("Shutdown complete")
}
