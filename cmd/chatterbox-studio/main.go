// main package for chatterbox-studio: a local web front-end for the
// Chatterbox speech engine with persistent voice personas.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/book-expert/logger"

	"github.com/chatterbox-studio/chatterbox-studio/internal/config"
	"github.com/chatterbox-studio/chatterbox-studio/internal/natsembed"
	"github.com/chatterbox-studio/chatterbox-studio/internal/objectstore"
	"github.com/chatterbox-studio/chatterbox-studio/internal/persona"
	"github.com/chatterbox-studio/chatterbox-studio/internal/tts"
	"github.com/chatterbox-studio/chatterbox-studio/internal/web"
)

const (
	healthCheckTimeout = 10 * time.Second
	shutdownTimeout    = 15 * time.Second
)

func setupLogger(logPath string) (*logger.Logger, error) {
	log, err := logger.New(logPath, "chatterbox-studio.log")
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	return log, nil
}

func run() error {
	// 1. Temporary logger for the bootstrap process.
	bootstrapLog, err := setupLogger(os.TempDir())
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: Failed to create bootstrap logger: %v\n", err)

		return err
	}

	// 2. Load configuration using the central configurator.
	cfg, err := config.Load(bootstrapLog)
	if err != nil {
		bootstrapLog.Error("Failed to load configuration: %v", err)

		return fmt.Errorf("failed to load configuration: %w", err)
	}

	// 3. Final logger based on the loaded configuration.
	finalLog, err := setupLogger(cfg.Paths.BaseLogsDir)
	if err != nil {
		bootstrapLog.Error("Failed to create final logger: %v", err)

		return fmt.Errorf("failed to create final logger: %w", err)
	}

	defer func() {
		closeErr := finalLog.Close()
		if closeErr != nil {
			fmt.Fprintf(os.Stderr, "error closing logger: %v\n", closeErr)
		}
	}()

	return runStudio(cfg, finalLog)
}

func runStudio(cfg *config.Config, log *logger.Logger) error {
	// Durable storage: embedded NATS JetStream, file-backed under data_dir.
	natsServer, err := natsembed.Start(cfg.Paths.DataDir, log)
	if err != nil {
		return fmt.Errorf("failed to start embedded storage: %w", err)
	}
	defer natsServer.Close()

	stores, err := buildStores(cfg, natsServer)
	if err != nil {
		return err
	}

	// The engine is the only hard startup dependency: without it no
	// generation can proceed, so an unreachable engine is fatal here.
	engineClient := tts.NewHTTPClient(
		cfg.Engine.URL,
		time.Duration(cfg.Engine.TimeoutSeconds)*time.Second,
	)

	healthCtx, cancelHealth := context.WithTimeout(
		context.Background(),
		healthCheckTimeout,
	)
	defer cancelHealth()

	err = engineClient.HealthCheck(healthCtx)
	if err != nil {
		return fmt.Errorf("speech engine is not reachable: %w", err)
	}

	log.System("Speech engine healthy at %s", cfg.Engine.URL)

	generator := tts.NewGenerator(engineClient, stores.Generated, log)

	server, err := web.New(cfg, log, stores, generator)
	if err != nil {
		return fmt.Errorf("failed to create web server: %w", err)
	}

	return serveUntilSignal(server, log)
}

func buildStores(cfg *config.Config, natsServer *natsembed.Server) (web.Stores, error) {
	jetstreamContext := natsServer.JetStream()

	personaStore, err := persona.NewStore(
		jetstreamContext,
		cfg.Storage.PersonaBucket,
	)
	if err != nil {
		return web.Stores{}, fmt.Errorf("failed to open persona store: %w", err)
	}

	referenceStore, err := objectstore.New(
		jetstreamContext,
		cfg.Storage.ReferenceBucket,
	)
	if err != nil {
		return web.Stores{}, fmt.Errorf("failed to open reference audio store: %w", err)
	}

	generatedStore, err := objectstore.New(
		jetstreamContext,
		cfg.Storage.GeneratedBucket,
	)
	if err != nil {
		return web.Stores{}, fmt.Errorf("failed to open generated audio store: %w", err)
	}

	return web.Stores{
		Personas:  personaStore,
		Reference: referenceStore,
		Generated: generatedStore,
	}, nil
}

func serveUntilSignal(server *web.Server, log *logger.Logger) error {
	errCh := make(chan error, 1)

	go func() {
		errCh <- server.Start()
	}()

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)

	select {
	case err := <-errCh:
		return err
	case sig := <-sigCh:
		log.System("Received %s, shutting down", sig)
	}

	shutdownCtx, cancel := context.WithTimeout(
		context.Background(),
		shutdownTimeout,
	)
	defer cancel()

	err := server.Shutdown(shutdownCtx)
	if err != nil {
		return err
	}

	return <-errCh
}

func main() {
	err := run()
	if err != nil {
		fmt.Fprintf(os.Stderr, "Service exited with error: %v\n", err)
		os.Exit(1)
	}
}
