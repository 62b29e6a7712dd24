package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/tejashwikalptaru/espot/internal/adapter/repository/disk"
	"github.com/tejashwikalptaru/espot/internal/app"
	"github.com/tejashwikalptaru/espot/internal/config"
	"github.com/tejashwikalptaru/espot/internal/logger"
)

// Runner holds all dependencies for CLI commands and provides methods for each command action.
type Runner struct {
	input     io.Reader
	output    io.Writer
	logOutput io.Writer
}

// RunnerOpts contains configuration options for creating a Runner.
type RunnerOpts struct {
	Input     io.Reader
	Output    io.Writer
	LogOutput io.Writer
}

// NewRunner creates a new Runner; nil streams fall back to the process's stdio.
func NewRunner(opts RunnerOpts) *Runner {
	if opts.Input == nil {
		opts.Input = os.Stdin
	}
	if opts.Output == nil {
		opts.Output = os.Stdout
	}
	if opts.LogOutput == nil {
		opts.LogOutput = os.Stderr
	}
	return &Runner{
		input:     opts.Input,
		output:    opts.Output,
		logOutput: opts.LogOutput,
	}
}

// settings loads .env, the config file and the environment, then validates.
func (r *Runner) settings(cmd *cli.Command) (*config.Config, error) {
	if err := config.LoadDotEnv(cmd.String("env")); err != nil {
		return nil, err
	}
	settings, err := config.Load(cmd.String("config"))
	if err != nil {
		return nil, err
	}
	if err := settings.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return settings, nil
}

// Run starts the worker with the console front-end.
func (r *Runner) Run(ctx context.Context, cmd *cli.Command) error {
	settings, err := r.settings(cmd)
	if err != nil {
		return err
	}
	if f := cmd.String("status-file"); f != "" {
		settings.Status.File = f
	}
	if lvl := cmd.String("log-level"); lvl != "" {
		settings.Log.Level = lvl
	}

	application, err := app.NewApplication(app.Config{
		Settings:      settings,
		UseMockEngine: cmd.Bool("mock-engine"),
		Input:         r.input,
		Output:        r.output,
		LogOutput:     r.logOutput,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := application.Shutdown(); err != nil {
			fmt.Fprintf(r.logOutput, "shutdown: %v\n", err)
		}
	}()

	r.writePlain("espot %s. Type 'help' for commands.\n", app.GetVersionInfo().Version)
	return application.Run(ctx)
}

// CacheInfo is the summary printed by `cache info`.
type CacheInfo struct {
	Dir     string `json:"dir"`
	Tracks  int    `json:"tracks"`
	Artwork int    `json:"artwork"`
}

// CacheInfo reports what the metadata cache holds.
func (r *Runner) CacheInfo(_ context.Context, cmd *cli.Command) error {
	settings, err := r.settings(cmd)
	if err != nil {
		return err
	}

	cache, err := disk.Open(logger.NewLogger(logger.Config{
		Level:  logger.ParseLevel(settings.Log.Level, logger.DefaultConfig().Level),
		Format: settings.Log.Format,
		Output: r.logOutput,
	}), disk.Options{Root: settings.Cache.Dir})
	if err != nil {
		return err
	}

	info := CacheInfo{Dir: cache.Root(), Tracks: cache.Len()}
	entries, err := os.ReadDir(cache.Root())
	if err != nil {
		return fmt.Errorf("failed to list cache dir: %w", err)
	}
	for _, e := range entries {
		if e.Type().IsRegular() && strings.HasPrefix(e.Name(), disk.ArtworkPrefix) {
			info.Artwork++
		}
	}

	if cmd.Bool("json") {
		return r.writeJSON(info, cmd.Bool("pretty"))
	}
	r.writePlain("cache:   %s\ntracks:  %d\nartwork: %d\n", info.Dir, info.Tracks, info.Artwork)
	return nil
}

// ConfigInit writes the example config to the config path.
func (r *Runner) ConfigInit(_ context.Context, cmd *cli.Command) error {
	path := cmd.String("config")
	if err := config.CreateConfigFile(path); err != nil {
		return err
	}
	r.writePlain("✓ Config written to %s\n", path)
	return nil
}

// ConfigShow prints the effective configuration.
func (r *Runner) ConfigShow(_ context.Context, cmd *cli.Command) error {
	settings, err := r.settings(cmd)
	if err != nil {
		return err
	}
	return settings.Encode(r.output)
}

// Version prints build information.
func (r *Runner) Version(_ context.Context, cmd *cli.Command) error {
	info := app.GetVersionInfo()
	if cmd.Bool("json") {
		return r.writeJSON(info, false)
	}
	r.writePlain("%s\n", info.FullString())
	return nil
}

func (r *Runner) writeJSON(data any, pretty bool) error {
	var output []byte
	var err error

	if pretty {
		output, err = json.MarshalIndent(data, "", "  ")
	} else {
		output, err = json.Marshal(data)
	}
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	if _, err := r.output.Write(append(output, '\n')); err != nil {
		return fmt.Errorf("failed to write output: %w", err)
	}
	return nil
}

func (r *Runner) writePlain(format string, args ...any) {
	fmt.Fprintf(r.output, format, args...)
}
