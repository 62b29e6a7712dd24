package librespot

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gorilla/websocket"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// Options configures the daemon connection.
type Options struct {
	// Address is the daemon API host:port.
	Address string

	// PreloadWindow is how long before a track ends AboutToFinish fires.
	PreloadWindow time.Duration

	// HTTPClient is used for REST commands; nil uses a 5s-timeout client.
	HTTPClient *http.Client
}

// Connector implements ports.EngineConnector.
//
// go-librespot signs in to the account itself (zeroconf or its own stored
// credentials), so the credentials only gate the session locally.
type Connector struct {
	logger *slog.Logger
	opts   Options
	dialer *websocket.Dialer
}

// NewConnector creates a connector for the daemon described by opts.
func NewConnector(logger *slog.Logger, opts Options) *Connector {
	if opts.Address == "" {
		opts.Address = DefaultAddress
	}
	if opts.PreloadWindow <= 0 {
		opts.PreloadWindow = DefaultPreloadWindow
	}
	return &Connector{
		logger: logger.With(slog.String("adapter", "librespot")),
		opts:   opts,
		dialer: &websocket.Dialer{HandshakeTimeout: 5 * time.Second},
	}
}

// Connect checks the daemon is up and subscribes to its event stream.
//
// Returns a *domain.EngineError wrapping domain.ErrInvalidCredentials for
// incomplete credentials.
func (c *Connector) Connect(ctx context.Context, creds domain.Credentials) (ports.PlaybackEngine, error) {
	if !creds.Valid() {
		return nil, domain.NewEngineError("connect", "", "username and password are required", domain.ErrInvalidCredentials)
	}

	client := NewClient(c.logger, c.opts.Address, c.opts.HTTPClient)
	status, err := client.Status(ctx)
	if err != nil {
		return nil, domain.NewEngineError("connect", "", "daemon unreachable at "+c.opts.Address, err)
	}

	conn, resp, err := c.dialer.DialContext(ctx, "ws://"+c.opts.Address+"/events", nil)
	if resp != nil && resp.Body != nil {
		resp.Body.Close()
	}
	if err != nil {
		return nil, domain.NewEngineError("connect", "", "event stream unavailable", err)
	}

	c.logger.Info("playback session opened",
		slog.String("address", c.opts.Address),
		slog.String("user", creds.Username),
		slog.Bool("daemon_stopped", status.Stopped))

	return newEngine(c.logger, client, conn, c.opts.PreloadWindow), nil
}

// Verify interface compliance
var _ ports.EngineConnector = (*Connector)(nil)
