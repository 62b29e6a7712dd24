// Package app provides application-level orchestration and dependency injection.
// This package wires together all components and manages the application lifecycle.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"sync"

	"github.com/tejashwikalptaru/espot/internal/adapter/artwork"
	"github.com/tejashwikalptaru/espot/internal/adapter/audio/librespot"
	"github.com/tejashwikalptaru/espot/internal/adapter/audio/mock"
	"github.com/tejashwikalptaru/espot/internal/adapter/eventbus"
	"github.com/tejashwikalptaru/espot/internal/adapter/repository/disk"
	"github.com/tejashwikalptaru/espot/internal/adapter/spotify"
	"github.com/tejashwikalptaru/espot/internal/adapter/statusfeed"
	"github.com/tejashwikalptaru/espot/internal/adapter/ui/console"
	"github.com/tejashwikalptaru/espot/internal/config"
	"github.com/tejashwikalptaru/espot/internal/logger"
	"github.com/tejashwikalptaru/espot/internal/ports"
	"github.com/tejashwikalptaru/espot/internal/service"
)

// Application is the root application structure that holds all dependencies.
// It follows the Dependency Injection pattern with constructor-based injection.
//
// The Application struct is responsible for:
// - Creating and wiring all dependencies
// - Managing the application lifecycle (startup, shutdown)
// - Providing a clean entry point for the CLI
type Application struct {
	// Core dependencies
	logger   *slog.Logger
	settings *config.Config

	// Infrastructure
	cache     *disk.MetadataCache
	auth      ports.WebAPIAuthenticator
	connector ports.EngineConnector
	states    *eventbus.Broadcaster

	// Services
	worker *service.Worker

	// Outputs
	exporter   *statusfeed.Exporter
	statusFile io.Closer
	presenter  *console.Presenter
	input      io.Reader

	running      sync.Mutex
	shutdownOnce sync.Once
}

// Config holds application configuration.
type Config struct {
	// Settings is the loaded configuration file
	Settings *config.Config

	// UseMockEngine replaces the go-librespot daemon with an in-process engine
	UseMockEngine bool

	// Authenticator overrides the Spotify OAuth authenticator (nil for production)
	Authenticator ports.WebAPIAuthenticator

	// Input feeds console commands; nil means stdin
	Input io.Reader

	// Output receives console rendering; nil means stdout
	Output io.Writer

	// LogOutput receives log lines; nil means stderr
	LogOutput io.Writer
}

// DefaultConfig returns the default application configuration.
func DefaultConfig() Config {
	return Config{
		Settings: config.Default(),
	}
}

// NewApplication creates a new application with all dependencies wired.
// This is the main dependency injection function.
func NewApplication(cfg Config) (*Application, error) {
	if cfg.Settings == nil {
		cfg.Settings = config.Default()
	}
	if cfg.Input == nil {
		cfg.Input = os.Stdin
	}
	if cfg.Output == nil {
		cfg.Output = os.Stdout
	}
	settings := cfg.Settings

	app := &Application{
		settings: settings,
		input:    cfg.Input,
	}

	// Step 1: Create logger
	app.logger = logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(settings.Log.Level, logger.DefaultConfig().Level),
		Format: settings.Log.Format,
		Output: cfg.LogOutput,
	})
	app.logger.Info("initializing application",
		slog.String("version", GetVersionInfo().Version),
		slog.String("cache_dir", settings.Cache.Dir))

	// Step 2: Open the metadata cache
	cache, err := disk.Open(app.logger, disk.Options{
		Root:        settings.Cache.Dir,
		ArtworkSize: settings.Cache.ArtworkSize,
		Fetcher:     artwork.NewHTTPFetcher(nil, settings.Spotify.RequestsPerSecond),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to open metadata cache: %w", err)
	}
	app.cache = cache

	// Step 3: Web API authenticator
	if cfg.Authenticator != nil {
		app.auth = cfg.Authenticator
	} else {
		auth, err := spotify.NewAuthenticator(app.logger, spotify.AuthOptions{
			ClientID:          settings.Spotify.ClientID,
			ClientSecret:      settings.Spotify.ClientSecret,
			RedirectURI:       settings.Spotify.RedirectURI,
			TokenFile:         settings.Spotify.TokenFile,
			RequestsPerSecond: settings.Spotify.RequestsPerSecond,
			Prompt:            cfg.Output,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to configure web api: %w", err)
		}
		app.auth = auth
	}

	// Step 4: Playback engine connector
	if cfg.UseMockEngine {
		app.connector = mock.NewConnector()
	} else {
		app.connector = librespot.NewConnector(app.logger, librespot.Options{
			Address:       settings.Librespot.Address,
			PreloadWindow: settings.Librespot.PreloadWindow.Duration,
		})
	}

	// Step 5: Worker and its state broadcaster
	app.states = eventbus.NewBroadcaster(app.logger)
	app.worker = service.NewWorker(
		app.logger,
		service.WorkerConfig{
			TaskBuffer:    settings.Worker.TaskBuffer,
			ControlBuffer: settings.Worker.ControlBuffer,
			ResultBuffer:  settings.Worker.ResultBuffer,
			TaskTimeout:   settings.Worker.TaskTimeout.Duration,
		},
		app.cache,
		app.auth,
		app.connector,
		app.states,
		service.NewQueueManager(nil),
	)

	// Step 6: Status feed
	if err := app.openStatusFeed(settings.Status); err != nil {
		return nil, err
	}

	// Step 7: Console UI
	app.presenter = console.NewPresenter(
		app.logger,
		app.worker,
		app.states,
		console.NewTextView(cfg.Output),
		app.cache.ArtworkPath,
	)

	return app, nil
}

func (a *Application) openStatusFeed(cfg config.StatusConfig) error {
	var out io.Writer
	switch cfg.File {
	case "":
		return nil
	case "-":
		out = os.Stdout
	default:
		f, err := os.OpenFile(cfg.File, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
		if err != nil {
			return fmt.Errorf("failed to open status file: %w", err)
		}
		out = f
		a.statusFile = f
	}
	a.exporter = statusfeed.NewExporter(a.logger, a.states, out, a.cache.ArtworkPath, a.settings.Worker.StateBuffer)
	return nil
}

// Run starts the worker, the status feed and the console, then reads commands
// until the input ends, a quit command arrives or ctx is cancelled.
// It returns once the worker has flushed its cache and closed its session.
func (a *Application) Run(ctx context.Context) error {
	if !a.running.TryLock() {
		return service.ErrWorkerRunning
	}
	defer a.running.Unlock()

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	a.logger.Info("espot started", slog.String("version", GetVersionInfo().FullString()))

	var wg sync.WaitGroup
	var workerErr error

	wg.Add(1)
	go func() {
		defer wg.Done()
		workerErr = a.worker.Run(ctx)
	}()

	if a.exporter != nil {
		wg.Add(1)
		go func() {
			defer wg.Done()
			if err := a.exporter.Run(ctx); err != nil {
				a.logger.Warn("status feed stopped", slog.Any("error", err))
			}
		}()
	}

	wg.Add(1)
	go func() {
		defer wg.Done()
		if err := a.presenter.Run(ctx); err != nil {
			a.logger.Warn("console stopped", slog.Any("error", err))
		}
	}()

	// A blocked terminal read cannot be interrupted, so the reader is not
	// waited for when ctx ends first.
	inputDone := make(chan error, 1)
	go func() {
		inputDone <- a.presenter.ReadCommands(ctx, a.input)
	}()

	var inputErr error
	select {
	case inputErr = <-inputDone:
	case <-ctx.Done():
	}

	cancel()
	wg.Wait()

	a.logger.Info("espot stopped")
	return errors.Join(workerErr, inputErr)
}

// Worker returns the playback worker.
func (a *Application) Worker() *service.Worker {
	return a.worker
}

// Presenter returns the console presenter.
func (a *Application) Presenter() *console.Presenter {
	return a.presenter
}

// Cache returns the metadata cache.
func (a *Application) Cache() *disk.MetadataCache {
	return a.cache
}

// Shutdown releases what Run does not: the broadcaster and the status file.
// It is safe to call more than once. Call it after Run has returned.
func (a *Application) Shutdown() error {
	var err error
	a.shutdownOnce.Do(func() {
		a.logger.Info("shutting down application")

		a.states.Close()

		if a.statusFile != nil {
			if cerr := a.statusFile.Close(); cerr != nil {
				err = fmt.Errorf("failed to close status file: %w", cerr)
			}
		}

		a.logger.Info("application shutdown complete")
	})
	return err
}
