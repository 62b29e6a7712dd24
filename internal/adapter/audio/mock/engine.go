// Package mock provides a mock implementation of the PlaybackEngine interface.
// This is used for testing the worker without a streaming daemon.
package mock

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// eventBuffer is the capacity of the mock event stream.
const eventBuffer = 64

// Call records one engine method invocation.
type Call struct {
	Op       string // "load", "play", "pause", "stop", "preload"
	TrackID  domain.TrackID
	Autoplay bool
	Offset   time.Duration
}

// String renders the call for test failure messages.
func (c Call) String() string {
	if c.TrackID == "" {
		return c.Op
	}
	return fmt.Sprintf("%s(%s)", c.Op, c.TrackID)
}

// Engine is a mock implementation of the PlaybackEngine interface.
// It records calls in memory without playing audio.
//
// Thread-safety: This implementation is thread-safe.
type Engine struct {
	// Dependencies
	logger *slog.Logger

	// Session state
	events    chan domain.Event
	closed    bool
	status    domain.PlaybackStatus
	loaded    domain.TrackID
	preloaded domain.TrackID
	calls     []Call
	mu        sync.RWMutex

	// Behavior configuration (for testing error scenarios)
	autoEvents  bool
	failLoad    bool
	failPlay    bool
	failPause   bool
	failStop    bool
	failPreload bool
}

// NewEngine creates a new mock playback engine.
func NewEngine() *Engine {
	return &Engine{
		events: make(chan domain.Event, eventBuffer),
		status: domain.StatusStopped,
	}
}

// SetLogger sets the logger for this engine.
func (m *Engine) SetLogger(logger *slog.Logger) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.logger = logger
}

// SetAutoEvents makes Load, Play and Pause emit the events a real engine would.
func (m *Engine) SetAutoEvents(enabled bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.autoEvents = enabled
}

// SetFailLoad configures the mock to fail loading tracks (for testing).
func (m *Engine) SetFailLoad(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failLoad = fail
}

// SetFailPlay configures the mock to fail playback (for testing).
func (m *Engine) SetFailPlay(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPlay = fail
}

// SetFailPause configures the mock to fail pausing (for testing).
func (m *Engine) SetFailPause(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPause = fail
}

// SetFailStop configures the mock to fail stopping (for testing).
func (m *Engine) SetFailStop(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failStop = fail
}

// SetFailPreload configures the mock to fail preloading (for testing).
func (m *Engine) SetFailPreload(fail bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.failPreload = fail
}

// Load records a load of id.
func (m *Engine) Load(id domain.TrackID, autoplay bool, offset time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrSessionClosed
	}
	if m.failLoad {
		return domain.NewEngineError("load", id, "mock load failed", nil)
	}

	m.calls = append(m.calls, Call{Op: "load", TrackID: id, Autoplay: autoplay, Offset: offset})
	m.loaded = id
	if m.preloaded == id {
		m.preloaded = ""
	}
	if autoplay {
		m.status = domain.StatusPlaying
	} else {
		m.status = domain.StatusPaused
	}

	if m.autoEvents {
		m.emitLocked(domain.NewEngineStartedEvent(id))
		if autoplay {
			m.emitLocked(domain.NewEnginePlayingEvent(id))
		}
	}
	return nil
}

// Play records a play.
func (m *Engine) Play() error {
	return m.transport("play", m.failPlayFlag, domain.StatusPlaying, func(id domain.TrackID) domain.Event {
		return domain.NewEnginePlayingEvent(id)
	})
}

// Pause records a pause.
func (m *Engine) Pause() error {
	return m.transport("pause", m.failPauseFlag, domain.StatusPaused, func(id domain.TrackID) domain.Event {
		return domain.NewEnginePausedEvent(id)
	})
}

// Stop records a stop and drops the loaded track.
func (m *Engine) Stop() error {
	err := m.transport("stop", m.failStopFlag, domain.StatusStopped, nil)
	if err == nil {
		m.mu.Lock()
		m.loaded = ""
		m.mu.Unlock()
	}
	return err
}

func (m *Engine) failPlayFlag() bool  { return m.failPlay }
func (m *Engine) failPauseFlag() bool { return m.failPause }
func (m *Engine) failStopFlag() bool  { return m.failStop }

func (m *Engine) transport(op string, fail func() bool, status domain.PlaybackStatus, event func(domain.TrackID) domain.Event) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrSessionClosed
	}
	if fail() {
		return domain.NewEngineError(op, m.loaded, "mock "+op+" failed", nil)
	}

	m.calls = append(m.calls, Call{Op: op, TrackID: m.loaded})
	m.status = status
	if m.autoEvents && event != nil {
		m.emitLocked(event(m.loaded))
	}
	return nil
}

// Preload records a preload hint.
func (m *Engine) Preload(id domain.TrackID) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return domain.ErrSessionClosed
	}
	if m.failPreload {
		return domain.NewEngineError("preload", id, "mock preload failed", nil)
	}

	m.calls = append(m.calls, Call{Op: "preload", TrackID: id})
	m.preloaded = id
	return nil
}

// Events returns the mock event stream.
func (m *Engine) Events() <-chan domain.Event {
	return m.events
}

// Emit pushes an event into the stream as if the engine produced it.
// Emitting after Close is ignored.
func (m *Engine) Emit(event domain.Event) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.emitLocked(event)
}

func (m *Engine) emitLocked(event domain.Event) {
	if m.closed {
		return
	}
	select {
	case m.events <- event:
	default:
		if m.logger != nil {
			m.logger.Warn("mock event buffer full", slog.String("event", string(event.Type())))
		}
	}
}

// Close ends the session and closes the event stream.
func (m *Engine) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()

	if m.closed {
		return nil
	}
	m.closed = true
	m.status = domain.StatusStopped
	close(m.events)
	return nil
}

// Calls returns a copy of the recorded calls.
func (m *Engine) Calls() []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]Call(nil), m.calls...)
}

// CallsOf returns the recorded calls with the given op.
func (m *Engine) CallsOf(op string) []Call {
	m.mu.RLock()
	defer m.mu.RUnlock()

	var out []Call
	for _, c := range m.calls {
		if c.Op == op {
			out = append(out, c)
		}
	}
	return out
}

// ResetCalls clears the call log.
func (m *Engine) ResetCalls() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls = nil
}

// Loaded returns the currently loaded track id.
func (m *Engine) Loaded() domain.TrackID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.loaded
}

// Preloaded returns the last preloaded id that has not been loaded yet.
func (m *Engine) Preloaded() domain.TrackID {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.preloaded
}

// Status returns the simulated playback status.
func (m *Engine) Status() domain.PlaybackStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.status
}

// IsClosed reports whether Close was called.
func (m *Engine) IsClosed() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.closed
}

// Connector hands out mock engines.
//
// Thread-safety: This implementation is thread-safe.
type Connector struct {
	mu          sync.Mutex
	engines     []*Engine
	failConnect bool
	autoEvents  bool
}

// NewConnector creates a connector whose sessions are fresh mock engines.
func NewConnector() *Connector {
	return &Connector{}
}

// SetFailConnect configures the connector to reject every session (for testing).
func (c *Connector) SetFailConnect(fail bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.failConnect = fail
}

// SetAutoEvents enables auto events on engines created from now on.
func (c *Connector) SetAutoEvents(enabled bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.autoEvents = enabled
}

// Connect opens a new mock session.
func (c *Connector) Connect(ctx context.Context, creds domain.Credentials) (ports.PlaybackEngine, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if c.failConnect || !creds.Valid() {
		return nil, domain.NewEngineError("connect", "", "mock session rejected", domain.ErrInvalidCredentials)
	}

	engine := NewEngine()
	engine.SetAutoEvents(c.autoEvents)
	c.engines = append(c.engines, engine)
	return engine, nil
}

// Last returns the most recently opened engine, or nil.
func (c *Connector) Last() *Engine {
	c.mu.Lock()
	defer c.mu.Unlock()
	if len(c.engines) == 0 {
		return nil
	}
	return c.engines[len(c.engines)-1]
}

// Connections returns how many sessions were opened.
func (c *Connector) Connections() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.engines)
}

// Verify interface compliance
var (
	_ ports.PlaybackEngine  = (*Engine)(nil)
	_ ports.EngineConnector = (*Connector)(nil)
)
