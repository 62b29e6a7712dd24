// Package config loads espot settings from TOML, .env and the environment.
package config

import (
	_ "embed"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

//go:embed config.example.toml
var exampleConf []byte

// AppName names the per-user config and cache directories.
const AppName = "espot"

// Config represents the application configuration loaded from a TOML file.
type Config struct {
	Cache     CacheConfig     `toml:"cache"`
	Spotify   SpotifyConfig   `toml:"spotify"`
	Librespot LibrespotConfig `toml:"librespot"`
	Worker    WorkerConfig    `toml:"worker"`
	Log       LogConfig       `toml:"log"`
	Status    StatusConfig    `toml:"status"`
}

// CacheConfig locates the metadata cache.
type CacheConfig struct {
	Dir         string `toml:"dir"`
	ArtworkSize int    `toml:"artwork_size"`
}

// SpotifyConfig contains Spotify Web API credentials.
type SpotifyConfig struct {
	ClientID          string  `toml:"client_id"`
	ClientSecret      string  `toml:"client_secret"`
	RedirectURI       string  `toml:"redirect_uri"`
	TokenFile         string  `toml:"token_file"`
	RequestsPerSecond float64 `toml:"requests_per_second"`
}

// LibrespotConfig points at the go-librespot daemon.
type LibrespotConfig struct {
	Address       string   `toml:"address"`
	PreloadWindow Duration `toml:"preload_window"`
}

// WorkerConfig sizes the worker's channels.
type WorkerConfig struct {
	TaskBuffer    int      `toml:"task_buffer"`
	ControlBuffer int      `toml:"control_buffer"`
	ResultBuffer  int      `toml:"result_buffer"`
	StateBuffer   int      `toml:"state_buffer"`
	TaskTimeout   Duration `toml:"task_timeout"`
}

// LogConfig contains logging configuration.
type LogConfig struct {
	Level  string `toml:"level"`
	Format string `toml:"format"`
}

// StatusConfig configures the status feed. File "-" means stdout.
type StatusConfig struct {
	File string `toml:"file"`
}

// Duration is a time.Duration written as "10s" in TOML.
type Duration struct {
	time.Duration
}

// UnmarshalText parses a Go duration string.
func (d *Duration) UnmarshalText(text []byte) error {
	v, err := time.ParseDuration(string(text))
	if err != nil {
		return err
	}
	d.Duration = v
	return nil
}

// MarshalText formats the duration as a Go duration string.
func (d Duration) MarshalText() ([]byte, error) {
	return []byte(d.String()), nil
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Cache: CacheConfig{
			Dir:         defaultDir(os.UserCacheDir, ".cache"),
			ArtworkSize: 300,
		},
		Spotify: SpotifyConfig{
			RedirectURI:       "http://127.0.0.1:8888/callback",
			TokenFile:         filepath.Join(defaultDir(os.UserConfigDir, ".config"), "token.json"),
			RequestsPerSecond: 10,
		},
		Librespot: LibrespotConfig{
			Address:       "localhost:3678",
			PreloadWindow: Duration{10 * time.Second},
		},
		Worker: WorkerConfig{
			TaskBuffer:    32,
			ControlBuffer: 32,
			ResultBuffer:  32,
			StateBuffer:   16,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
	}
}

// defaultDir returns <base>/espot, falling back to ~/<fallback>/espot and
// finally to a relative directory.
func defaultDir(base func() (string, error), fallback string) string {
	if dir, err := base(); err == nil {
		return filepath.Join(dir, AppName)
	}
	if home, err := os.UserHomeDir(); err == nil {
		return filepath.Join(home, fallback, AppName)
	}
	return "." + AppName
}

// DefaultPath returns $XDG_CONFIG_HOME/espot/config.toml or its platform equivalent.
func DefaultPath() string {
	return filepath.Join(defaultDir(os.UserConfigDir, ".config"), "config.toml")
}

// Load reads path over the defaults, then applies environment overrides.
// A missing file is not an error. Unknown keys are.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		md, err := toml.DecodeFile(path, cfg)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("failed to parse config %s: %w", path, err)
		default:
			if undecoded := md.Undecoded(); len(undecoded) > 0 {
				keys := make([]string, len(undecoded))
				for i, k := range undecoded {
					keys[i] = k.String()
				}
				return nil, fmt.Errorf("unknown keys in %s: %s", path, strings.Join(keys, ", "))
			}
		}
	}

	applyEnvOverrides(cfg)
	return cfg, nil
}

// LoadDotEnv loads .env style files into the process environment.
// Variables already set are kept; missing files are skipped.
func LoadDotEnv(files ...string) error {
	if len(files) == 0 {
		files = []string{".env"}
	}
	for _, f := range files {
		if _, err := os.Stat(f); errors.Is(err, os.ErrNotExist) {
			continue
		}
		if err := godotenv.Load(f); err != nil {
			return fmt.Errorf("failed to load %s: %w", f, err)
		}
	}
	return nil
}

// applyEnvOverrides applies environment variable overrides to the config.
func applyEnvOverrides(cfg *Config) {
	// Spotify, named as the developer dashboard and zmb3/spotify name them
	if v := os.Getenv("SPOTIFY_ID"); v != "" {
		cfg.Spotify.ClientID = v
	}
	if v := os.Getenv("SPOTIFY_SECRET"); v != "" {
		cfg.Spotify.ClientSecret = v
	}
	if v := os.Getenv("SPOTIFY_REDIRECT_URI"); v != "" {
		cfg.Spotify.RedirectURI = v
	}
	if v := os.Getenv("ESPOT_TOKEN_FILE"); v != "" {
		cfg.Spotify.TokenFile = v
	}

	if v := os.Getenv("ESPOT_CACHE_DIR"); v != "" {
		cfg.Cache.Dir = v
	}
	if v := os.Getenv("ESPOT_ARTWORK_SIZE"); v != "" {
		if i, err := strconv.Atoi(v); err == nil {
			cfg.Cache.ArtworkSize = i
		}
	}

	if v := os.Getenv("ESPOT_LIBRESPOT_ADDRESS"); v != "" {
		cfg.Librespot.Address = v
	}
	if v := os.Getenv("ESPOT_TASK_TIMEOUT"); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			cfg.Worker.TaskTimeout = Duration{d}
		}
	}

	// Log
	if v := os.Getenv("ESPOT_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("ESPOT_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}

	if v := os.Getenv("ESPOT_STATUS_FILE"); v != "" {
		cfg.Status.File = v
	}
}

// CreateConfigFile writes the embedded example config to path.
// An existing file is never overwritten.
func CreateConfigFile(path string) error {
	if _, err := os.Stat(path); err == nil {
		return fmt.Errorf("config file already exists at %s", path)
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return fmt.Errorf("failed to create config dir: %w", err)
	}
	if err := os.WriteFile(path, exampleConf, 0o644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// Example returns the embedded example config.
func Example() []byte {
	return append([]byte(nil), exampleConf...)
}

// Encode writes cfg as TOML. The client secret is masked.
func (c *Config) Encode(w io.Writer) error {
	masked := *c
	if masked.Spotify.ClientSecret != "" {
		masked.Spotify.ClientSecret = "********"
	}
	enc := toml.NewEncoder(w)
	enc.Indent = "  "
	return enc.Encode(masked)
}
