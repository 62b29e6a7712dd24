package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []error

	if err := c.Cache.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("cache: %w", err))
	}
	if err := c.Spotify.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("spotify: %w", err))
	}
	if err := c.Librespot.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("librespot: %w", err))
	}
	if err := c.Worker.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("worker: %w", err))
	}
	if err := c.Log.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("log: %w", err))
	}

	return errors.Join(errs...)
}

// Validate checks CacheConfig for errors.
func (c *CacheConfig) Validate() error {
	if c.Dir == "" {
		return errors.New("dir must be set")
	}
	if c.ArtworkSize < 0 {
		return errors.New("artwork_size must be non-negative")
	}
	return nil
}

// Validate checks SpotifyConfig for errors. Missing credentials are not an
// error here; the authenticator reports them when the app starts.
func (c *SpotifyConfig) Validate() error {
	if c.RedirectURI != "" {
		u, err := url.Parse(c.RedirectURI)
		if err != nil {
			return fmt.Errorf("invalid redirect_uri: %w", err)
		}
		if u.Scheme != "http" || u.Host == "" {
			return fmt.Errorf("redirect_uri must be an http://host:port/path URL, got %q", c.RedirectURI)
		}
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("requests_per_second must be non-negative")
	}
	return nil
}

// Validate checks LibrespotConfig for errors.
func (c *LibrespotConfig) Validate() error {
	if _, _, err := net.SplitHostPort(c.Address); err != nil {
		return fmt.Errorf("invalid address %q: %w", c.Address, err)
	}
	if c.PreloadWindow.Duration < 0 {
		return errors.New("preload_window must be non-negative")
	}
	return nil
}

// Validate checks WorkerConfig for errors.
func (c *WorkerConfig) Validate() error {
	if c.TaskBuffer < 1 || c.ControlBuffer < 1 || c.ResultBuffer < 1 {
		return errors.New("task, control and result buffers must be at least 1")
	}
	if c.StateBuffer < 0 {
		return errors.New("state_buffer must be non-negative")
	}
	if c.TaskTimeout.Duration < 0 {
		return errors.New("task_timeout must be non-negative")
	}
	return nil
}

// Validate checks LogConfig for errors.
func (c *LogConfig) Validate() error {
	switch strings.ToLower(c.Level) {
	case "", "debug", "info", "warn", "warning", "error":
	default:
		return fmt.Errorf("invalid level: %s (must be debug, info, warn, or error)", c.Level)
	}
	switch strings.ToLower(c.Format) {
	case "", "text", "json", "logfmt":
	default:
		return fmt.Errorf("invalid format: %s (must be text, json, or logfmt)", c.Format)
	}
	return nil
}
