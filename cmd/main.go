// Package main is the production entry point for espot.
//
// espot drives a go-librespot daemon from the terminal and talks to the
// Spotify Web API for playlists, search and recommendations:
// - One worker goroutine owns the session, the play queue and the metadata cache
// - The console front-end only sends tasks and controls and renders results
// - State updates fan out to the console and the optional status feed
//
// Build:
//
//	go build -o build/espot ./cmd
//
// Run:
//
//	./build/espot config init
//	./build/espot run
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	runner := NewRunner(RunnerOpts{})
	if err := newRootCommand(runner).Run(ctx, os.Args); err != nil {
		fmt.Fprintf(os.Stderr, "espot: %v\n", err)
		stop()
		os.Exit(1)
	}
}
