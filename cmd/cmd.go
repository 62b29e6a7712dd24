package main

import (
	"github.com/urfave/cli/v3"

	"github.com/tejashwikalptaru/espot/internal/app"
	"github.com/tejashwikalptaru/espot/internal/config"
)

// newRootCommand builds the espot command tree around r.
func newRootCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "espot",
		Usage:   "Spotify playback from the terminal",
		Version: app.GetVersionInfo().Version,
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "config",
				Aliases: []string{"c"},
				Usage:   "Path to configuration file",
				Value:   config.DefaultPath(),
			},
			&cli.StringFlag{
				Name:  "env",
				Usage: "Path to a .env file with SPOTIFY_ID and SPOTIFY_SECRET",
				Value: ".env",
			},
		},
		Commands: []*cli.Command{
			runCommand(r),
			cacheCommand(r),
			configCommand(r),
			versionCommand(r),
		},
	}
}

// runCommand starts the player
func runCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "run",
		Usage: "Start the player with the console front-end",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "mock-engine",
				Usage: "Use an in-process engine instead of the go-librespot daemon",
			},
			&cli.StringFlag{
				Name:  "status-file",
				Usage: "Write JSON-lines playback status here ('-' for stdout)",
			},
			&cli.StringFlag{
				Name:  "log-level",
				Usage: "debug, info, warn or error",
			},
		},
		Action: r.Run,
	}
}

// cacheCommand inspects the metadata cache
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Inspect the metadata cache",
		Commands: []*cli.Command{
			{
				Name:  "info",
				Usage: "Show cache location and size",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "json",
						Usage: "Output raw JSON",
					},
					&cli.BoolFlag{
						Name:  "pretty",
						Usage: "Pretty-print output",
					},
				},
				Action: r.CacheInfo,
			},
		},
	}
}

// configCommand manages the configuration file
func configCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "config",
		Usage: "Manage configuration",
		Commands: []*cli.Command{
			{
				Name:   "init",
				Usage:  "Create a config file with default values",
				Action: r.ConfigInit,
			},
			{
				Name:   "show",
				Usage:  "Show the effective configuration",
				Action: r.ConfigShow,
			},
		},
	}
}

func versionCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "version",
		Usage: "Print version information",
		Flags: []cli.Flag{
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Output raw JSON",
			},
		},
		Action: r.Version,
	}
}
