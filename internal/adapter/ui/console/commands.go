package console

import (
	"bufio"
	"context"
	"errors"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/tejashwikalptaru/espot/internal/domain"
)

var (
	// ErrQuit is returned by Execute for the quit command.
	ErrQuit = errors.New("quit requested")

	// ErrUnknownCommand is returned for input that names no command.
	ErrUnknownCommand = errors.New("unknown command")

	// ErrUsage is returned when a command's arguments are wrong.
	ErrUsage = errors.New("usage")
)

type command struct {
	usage string
	help  string
	run   func(p *Presenter, ctx context.Context, args []string) error
}

var commands = map[string]command{
	"login":     {"login <user> <password>", "open a session", (*Presenter).cmdLogin},
	"playlists": {"playlists", "list your playlists", task(domain.FetchUserPlaylistsTask{})},
	"featured":  {"featured", "list featured playlists", task(domain.FetchFeaturedPlaylistsTask{})},
	"open":      {"open <n>", "list the tracks of playlist n", (*Presenter).cmdOpen},
	"recommend": {"recommend <n>", "recommendations seeded by playlist n", (*Presenter).cmdRecommend},
	"search":    {"search <query>", "search tracks", searchFor(domain.SearchTracks)},
	"find":      {"find <query>", "search playlists", searchFor(domain.SearchPlaylists)},
	"shuffle":   {"shuffle", "play the listed tracks shuffled", (*Presenter).cmdShuffle},
	"play":      {"play [n]", "resume, or play listed track n first", (*Presenter).cmdPlay},
	"pause":     {"pause", "pause", control(domain.PauseControl{})},
	"toggle":    {"toggle", "play/pause", control(domain.TogglePlayPauseControl{})},
	"stop":      {"stop", "stop", control(domain.StopControl{})},
	"next":      {"next", "next track", control(domain.NextTrackControl{})},
	"prev":      {"prev", "previous track", control(domain.PreviousTrackControl{})},
	"add":       {"add <track> <playlist>", "add a track to a playlist", mutate(true)},
	"remove":    {"remove <track> <playlist>", "remove a track from a playlist", mutate(false)},
}

func task(t domain.Task) func(*Presenter, context.Context, []string) error {
	return func(p *Presenter, ctx context.Context, _ []string) error {
		return p.dispatcher.Submit(ctx, t)
	}
}

func control(c domain.Control) func(*Presenter, context.Context, []string) error {
	return func(p *Presenter, ctx context.Context, _ []string) error {
		return p.dispatcher.Send(ctx, c)
	}
}

// Execute runs one command line.
func (p *Presenter) Execute(ctx context.Context, line string) error {
	fields := strings.Fields(line)
	if len(fields) == 0 {
		return nil
	}

	name, args := strings.ToLower(fields[0]), fields[1:]
	switch name {
	case "quit", "exit":
		return ErrQuit
	case "help":
		p.view.ShowNotification("Commands", helpText())
		return nil
	}

	cmd, ok := commands[name]
	if !ok {
		return fmt.Errorf("%w: %s", ErrUnknownCommand, name)
	}
	if err := cmd.run(p, ctx, args); err != nil {
		if errors.Is(err, ErrUsage) {
			return fmt.Errorf("%w: %s", ErrUsage, cmd.usage)
		}
		return err
	}
	return nil
}

// ReadCommands executes lines from in until EOF, quit or ctx is done.
// Command errors are shown on the view and do not stop the loop.
func (p *Presenter) ReadCommands(ctx context.Context, in io.Reader) error {
	scanner := bufio.NewScanner(in)
	for scanner.Scan() {
		if ctx.Err() != nil {
			return nil
		}
		err := p.Execute(ctx, scanner.Text())
		switch {
		case errors.Is(err, ErrQuit):
			return nil
		case err != nil:
			p.view.ShowError("Command failed", err.Error())
		}
	}
	return scanner.Err()
}

func helpText() string {
	names := []string{
		"login", "playlists", "featured", "open", "recommend", "search", "find",
		"shuffle", "play", "pause", "toggle", "stop", "next", "prev", "add", "remove",
	}
	var b strings.Builder
	for _, name := range names {
		cmd := commands[name]
		fmt.Fprintf(&b, "\n  %-26s %s", cmd.usage, cmd.help)
	}
	fmt.Fprintf(&b, "\n  %-26s %s", "quit", "leave")
	return b.String()
}

func (p *Presenter) cmdLogin(ctx context.Context, args []string) error {
	if len(args) != 2 {
		return ErrUsage
	}
	return p.dispatcher.Submit(ctx, domain.LoginTask{
		Credentials: domain.Credentials{Username: args[0], Password: args[1]},
	})
}

func (p *Presenter) cmdOpen(ctx context.Context, args []string) error {
	pl, err := p.playlistArg(args)
	if err != nil {
		return err
	}
	return p.dispatcher.Submit(ctx, domain.FetchPlaylistTracksTask{Playlist: pl})
}

func (p *Presenter) cmdRecommend(ctx context.Context, args []string) error {
	pl, err := p.playlistArg(args)
	if err != nil {
		return err
	}
	return p.dispatcher.Submit(ctx, domain.FetchRecommendationsTask{Playlist: pl})
}

func searchFor(kind domain.SearchKind) func(*Presenter, context.Context, []string) error {
	return func(p *Presenter, ctx context.Context, args []string) error {
		if len(args) == 0 {
			return ErrUsage
		}
		return p.dispatcher.Submit(ctx, domain.SearchTask{Query: strings.Join(args, " "), Kind: kind})
	}
}

func (p *Presenter) cmdShuffle(ctx context.Context, _ []string) error {
	tracks := p.listedTracks()
	if len(tracks) == 0 {
		return errors.New("no tracks listed; open a playlist first")
	}
	return p.dispatcher.Send(ctx, domain.StartQueueControl{Tracks: tracks})
}

func (p *Presenter) cmdPlay(ctx context.Context, args []string) error {
	if len(args) == 0 {
		return p.dispatcher.Send(ctx, domain.PlayControl{})
	}
	tracks := p.listedTracks()
	i, err := index(args[0], len(tracks))
	if err != nil {
		return err
	}
	return p.dispatcher.Send(ctx, domain.StartQueueAtControl{Tracks: tracks, Anchor: tracks[i].ID})
}

func mutate(add bool) func(*Presenter, context.Context, []string) error {
	return func(p *Presenter, ctx context.Context, args []string) error {
		if len(args) != 2 {
			return ErrUsage
		}
		track, playlist := p.resolveTrack(args[0]), p.resolvePlaylist(args[1])
		if add {
			return p.dispatcher.Submit(ctx, domain.AddTrackToPlaylistTask{Track: track, Playlist: playlist})
		}
		return p.dispatcher.Submit(ctx, domain.RemoveTrackFromPlaylistTask{Track: track, Playlist: playlist})
	}
}

func (p *Presenter) playlistArg(args []string) (domain.PlaylistRef, error) {
	if len(args) != 1 {
		return domain.PlaylistRef{}, ErrUsage
	}
	p.mu.RLock()
	defer p.mu.RUnlock()
	i, err := index(args[0], len(p.playlists))
	if err != nil {
		return domain.PlaylistRef{}, err
	}
	return p.playlists[i], nil
}

func (p *Presenter) listedTracks() []domain.TrackInfo {
	p.mu.RLock()
	defer p.mu.RUnlock()
	return append([]domain.TrackInfo(nil), p.tracks...)
}

// resolveTrack maps a listing number to its id; anything else passes through.
func (p *Presenter) resolveTrack(arg string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i, err := index(arg, len(p.tracks)); err == nil {
		return string(p.tracks[i].ID)
	}
	return arg
}

func (p *Presenter) resolvePlaylist(arg string) string {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if i, err := index(arg, len(p.playlists)); err == nil {
		return string(p.playlists[i].ID)
	}
	return arg
}

// index parses a 1-based listing number.
func index(arg string, n int) (int, error) {
	i, err := strconv.Atoi(arg)
	if err != nil {
		return 0, fmt.Errorf("%w: %q is not a number", ErrUsage, arg)
	}
	if i < 1 || i > n {
		return 0, fmt.Errorf("no entry %d (have %d)", i, n)
	}
	return i - 1, nil
}
