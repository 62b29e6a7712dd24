package librespot

import (
	"context"
	"encoding/json"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// DefaultPreloadWindow is how long before the end of a track AboutToFinish fires.
const DefaultPreloadWindow = 10 * time.Second

const (
	commandTimeout = 5 * time.Second
	eventBuffer    = 32
	trackURIPrefix = "spotify:track:"
)

// wireEvent is one websocket message from /events.
type wireEvent struct {
	Type string          `json:"type"`
	Data json.RawMessage `json:"data"`
}

// wireMetadata is the payload of "metadata" events.
type wireMetadata struct {
	URI      string `json:"uri"`
	Duration int    `json:"duration"` // ms
	Position int    `json:"position"` // ms
}

// wireSeek is the payload of "seek" events.
type wireSeek struct {
	URI      string `json:"uri"`
	Position int    `json:"position"` // ms
	Duration int    `json:"duration"` // ms
}

// Engine implements ports.PlaybackEngine on a go-librespot daemon.
//
// The daemon has no about-to-finish notification, so the engine derives one
// from the track duration and position it reports: a timer fires
// preloadWindow before the expected end and is re-armed on seek, pause and
// resume. Preload is only recorded: the daemon exposes no way to prefetch
// a track without queueing it, so against a real daemon a preload hint does
// not shorten the gap before the next Load.
type Engine struct {
	logger        *slog.Logger
	client        *Client
	conn          *websocket.Conn
	preloadWindow time.Duration

	events chan domain.Event
	done   chan struct{}
	wg     sync.WaitGroup

	closeOnce sync.Once

	mu        sync.Mutex
	preloaded domain.TrackID
}

func newEngine(logger *slog.Logger, client *Client, conn *websocket.Conn, preloadWindow time.Duration) *Engine {
	e := &Engine{
		logger:        logger,
		client:        client,
		conn:          conn,
		preloadWindow: preloadWindow,
		events:        make(chan domain.Event, eventBuffer),
		done:          make(chan struct{}),
	}

	messages := make(chan wireEvent)
	e.wg.Add(2)
	go e.read(messages)
	go e.dispatch(messages)

	return e
}

func (e *Engine) command(fn func(ctx context.Context) error) error {
	ctx, cancel := context.WithTimeout(context.Background(), commandTimeout)
	defer cancel()
	return fn(ctx)
}

// Load starts id, optionally paused, and seeks to offset.
func (e *Engine) Load(id domain.TrackID, autoplay bool, offset time.Duration) error {
	if e.closed() {
		return domain.ErrSessionClosed
	}

	err := e.command(func(ctx context.Context) error {
		if err := e.client.PlayURI(ctx, id.URI(), !autoplay); err != nil {
			return err
		}
		if offset > 0 {
			return e.client.Seek(ctx, offset)
		}
		return nil
	})
	if err != nil {
		return domain.NewEngineError("load", id, "daemon rejected track", err)
	}

	e.mu.Lock()
	if e.preloaded == id {
		e.preloaded = ""
	}
	e.mu.Unlock()
	return nil
}

// Play resumes playback.
func (e *Engine) Play() error {
	return e.transport("play", e.client.Resume)
}

// Pause pauses playback.
func (e *Engine) Pause() error {
	return e.transport("pause", e.client.Pause)
}

// Stop pauses and rewinds. The daemon keeps the track loaded.
func (e *Engine) Stop() error {
	return e.transport("stop", func(ctx context.Context) error {
		if err := e.client.Pause(ctx); err != nil {
			return err
		}
		return e.client.Seek(ctx, 0)
	})
}

func (e *Engine) transport(op string, fn func(ctx context.Context) error) error {
	if e.closed() {
		return domain.ErrSessionClosed
	}
	if err := e.command(fn); err != nil {
		return domain.NewEngineError(op, "", "daemon command failed", err)
	}
	return nil
}

// Preload records id as the expected next track.
func (e *Engine) Preload(id domain.TrackID) error {
	if e.closed() {
		return domain.ErrSessionClosed
	}
	e.mu.Lock()
	e.preloaded = id
	e.mu.Unlock()
	e.logger.Debug("preload hint", slog.String("track", string(id)))
	return nil
}

// pendingPreload returns the last preload hint that has not been loaded yet.
func (e *Engine) pendingPreload() domain.TrackID {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.preloaded
}

// Events returns the engine event stream. It is closed when the websocket
// drops or Close is called.
func (e *Engine) Events() <-chan domain.Event {
	return e.events
}

// Close disconnects from the daemon and waits for the event goroutines.
func (e *Engine) Close() error {
	var err error
	e.closeOnce.Do(func() {
		close(e.done)
		err = e.conn.Close()
		e.wg.Wait()
	})
	return err
}

func (e *Engine) closed() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

// read pumps websocket messages until the connection fails.
func (e *Engine) read(out chan<- wireEvent) {
	defer e.wg.Done()
	defer close(out)

	for {
		var ev wireEvent
		if err := e.conn.ReadJSON(&ev); err != nil {
			if !e.closed() {
				e.logger.Warn("event stream closed", slog.Any("error", err))
			}
			return
		}
		select {
		case out <- ev:
		case <-e.done:
			return
		}
	}
}

// dispatch owns playback progress and the about-to-finish timer.
func (e *Engine) dispatch(in <-chan wireEvent) {
	defer e.wg.Done()
	defer close(e.events)

	p := &progress{window: e.preloadWindow}
	defer p.disarm()

	for {
		select {
		case <-e.done:
			return
		case ev, ok := <-in:
			if !ok {
				return
			}
			for _, out := range e.translate(p, ev, time.Now()) {
				if !e.emit(out) {
					return
				}
			}
		case <-p.fire():
			p.fired()
			if !e.emit(domain.NewEngineAboutToFinishEvent(p.track)) {
				return
			}
		}
	}
}

func (e *Engine) emit(ev domain.Event) bool {
	select {
	case e.events <- ev:
		return true
	case <-e.done:
		return false
	}
}

// translate maps one daemon message to engine events and updates progress.
func (e *Engine) translate(p *progress, ev wireEvent, now time.Time) []domain.Event {
	switch ev.Type {
	case "metadata":
		var md wireMetadata
		if err := json.Unmarshal(ev.Data, &md); err != nil {
			e.logger.Debug("bad metadata event", slog.Any("error", err))
			return nil
		}
		id, ok := trackID(md.URI)
		if !ok {
			return nil
		}
		p.start(id, ms(md.Duration), ms(md.Position), now)
		return []domain.Event{domain.NewEngineStartedEvent(id)}

	case "playing":
		p.resume(now)
		return []domain.Event{domain.NewEnginePlayingEvent(p.track)}

	case "paused":
		p.pause(now)
		return []domain.Event{domain.NewEnginePausedEvent(p.track)}

	case "seek":
		var sk wireSeek
		if err := json.Unmarshal(ev.Data, &sk); err != nil {
			return nil
		}
		p.seek(ms(sk.Position), now)
		return nil

	case "not_playing":
		// Emitted once the track played out and nothing follows it.
		track := p.track
		p.reset()
		if track == "" {
			return nil
		}
		return []domain.Event{domain.NewEngineTrackEndedEvent(track)}

	default:
		e.logger.Debug("daemon event ignored", slog.String("type", ev.Type))
		return nil
	}
}

func trackID(uri string) (domain.TrackID, bool) {
	if !strings.HasPrefix(uri, trackURIPrefix) {
		return "", false
	}
	id, err := domain.ParseTrackID(uri)
	if err != nil {
		return "", false
	}
	return id, true
}

func ms(v int) time.Duration {
	return time.Duration(v) * time.Millisecond
}

// Verify interface compliance
var _ ports.PlaybackEngine = (*Engine)(nil)
