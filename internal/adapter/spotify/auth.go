package spotify

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	libspotify "github.com/zmb3/spotify/v2"
	spotifyauth "github.com/zmb3/spotify/v2/auth"
	"golang.org/x/oauth2"

	"github.com/tejashwikalptaru/espot/internal/domain"
	"github.com/tejashwikalptaru/espot/internal/ports"
)

// Scopes requested from the account.
var Scopes = []string{
	spotifyauth.ScopeUserReadPrivate,
	spotifyauth.ScopePlaylistReadPrivate,
	spotifyauth.ScopePlaylistReadCollaborative,
	spotifyauth.ScopePlaylistModifyPublic,
	spotifyauth.ScopePlaylistModifyPrivate,
}

// AuthOptions configures the OAuth authorization-code flow.
type AuthOptions struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string

	// TokenFile caches the token between runs. Empty disables caching.
	TokenFile string

	// RequestsPerSecond limits Web API calls of the produced clients.
	RequestsPerSecond float64

	// Prompt receives the authorization URL the user has to open.
	Prompt io.Writer

	// AuthURL, TokenURL and APIBaseURL override the Spotify endpoints.
	AuthURL    string
	TokenURL   string
	APIBaseURL string
}

// Authenticator implements ports.WebAPIAuthenticator.
//
// The account credentials entered in the UI are only used by the playback
// engine. The Web API is authorized through OAuth: a cached token when one
// exists, otherwise the browser flow with a local callback server.
type Authenticator struct {
	logger *slog.Logger
	opts   AuthOptions
	config *oauth2.Config
}

// NewAuthenticator validates the OAuth settings.
//
// Returns a *domain.SetupError wrapping domain.ErrMissingAPICredentials or
// domain.ErrOAuthConfig.
func NewAuthenticator(logger *slog.Logger, opts AuthOptions) (*Authenticator, error) {
	if opts.ClientID == "" || opts.ClientSecret == "" {
		return nil, domain.NewSetupError("spotify", "client id and secret are required", domain.ErrMissingAPICredentials)
	}
	redirect, err := url.Parse(opts.RedirectURI)
	if err != nil || redirect.Scheme == "" || redirect.Host == "" {
		return nil, domain.NewSetupError("spotify", fmt.Sprintf("invalid redirect uri %q", opts.RedirectURI), domain.ErrOAuthConfig)
	}
	if opts.AuthURL == "" {
		opts.AuthURL = spotifyauth.AuthURL
	}
	if opts.TokenURL == "" {
		opts.TokenURL = spotifyauth.TokenURL
	}
	if opts.Prompt == nil {
		opts.Prompt = os.Stdout
	}

	return &Authenticator{
		logger: logger.With(slog.String("adapter", "spotify-auth")),
		opts:   opts,
		config: &oauth2.Config{
			ClientID:     opts.ClientID,
			ClientSecret: opts.ClientSecret,
			RedirectURL:  opts.RedirectURI,
			Scopes:       Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:  opts.AuthURL,
				TokenURL: opts.TokenURL,
			},
		},
	}, nil
}

// Authenticate returns a Web API client for the current account.
func (a *Authenticator) Authenticate(ctx context.Context, creds domain.Credentials) (ports.WebAPIClient, error) {
	token, err := a.loadToken()
	if err != nil {
		a.logger.Info("no cached token, starting authorization", slog.String("user", creds.Username))
		token, err = a.Authorize(ctx)
		if err != nil {
			return nil, err
		}
		if err := a.saveToken(token); err != nil {
			a.logger.Warn("failed to cache token", slog.Any("error", err))
		}
	}

	return a.client(token), nil
}

// client builds a rate-limited Web API client whose refreshed tokens are written back to TokenFile.
func (a *Authenticator) client(token *oauth2.Token) *Client {
	// The refresh source must outlive the login task's context.
	base := a.config.TokenSource(context.Background(), token)
	source := &persistingSource{
		base:  oauth2.ReuseTokenSource(token, base),
		last:  token.AccessToken,
		save:  a.saveToken,
		onErr: func(err error) { a.logger.Warn("failed to cache refreshed token", slog.Any("error", err)) },
	}

	var opts []libspotify.ClientOption
	if a.opts.APIBaseURL != "" {
		opts = append(opts, libspotify.WithBaseURL(a.opts.APIBaseURL))
	}
	httpClient := oauth2.NewClient(context.Background(), source)
	return NewClient(a.logger, libspotify.New(httpClient, opts...), a.opts.RequestsPerSecond)
}

// Authorize runs the authorization-code flow: it serves the redirect URI
// locally, prints the authorization URL and waits for the callback.
func (a *Authenticator) Authorize(ctx context.Context) (*oauth2.Token, error) {
	redirect, err := url.Parse(a.opts.RedirectURI)
	if err != nil {
		return nil, domain.NewAPIError("authorize", "invalid redirect uri", errors.Join(domain.ErrOAuthConfig, err))
	}

	listener, err := net.Listen("tcp", redirect.Host)
	if err != nil {
		return nil, domain.NewAPIError("authorize", "cannot listen on "+redirect.Host, err)
	}

	state := uuid.NewString()
	handler := newCallbackHandler(a.config, state)

	mux := http.NewServeMux()
	mux.Handle(callbackPath(redirect), handler)
	server := &http.Server{Handler: mux, ReadHeaderTimeout: 10 * time.Second}

	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("callback server failed", slog.Any("error", err))
		}
	}()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		_ = server.Shutdown(shutdownCtx)
	}()

	authURL := a.config.AuthCodeURL(state)
	fmt.Fprintf(a.opts.Prompt, "Open this URL to authorize espot:\n%s\n", authURL)
	a.logger.Debug("waiting for authorization callback", slog.String("addr", listener.Addr().String()))

	select {
	case result := <-handler.Result():
		if result.Err != nil {
			return nil, domain.NewAPIError("authorize", "authorization failed", result.Err)
		}
		return result.Token, nil
	case <-ctx.Done():
		return nil, domain.NewAPIError("authorize", "authorization abandoned", ctx.Err())
	}
}

func callbackPath(redirect *url.URL) string {
	if redirect.Path == "" {
		return "/"
	}
	return redirect.Path
}

// Token cache

func (a *Authenticator) loadToken() (*oauth2.Token, error) {
	if a.opts.TokenFile == "" {
		return nil, os.ErrNotExist
	}
	data, err := os.ReadFile(a.opts.TokenFile)
	if err != nil {
		return nil, err
	}
	var token oauth2.Token
	if err := json.Unmarshal(data, &token); err != nil {
		return nil, fmt.Errorf("decode token file: %w", err)
	}
	if token.AccessToken == "" && token.RefreshToken == "" {
		return nil, fmt.Errorf("token file %s holds no token", a.opts.TokenFile)
	}
	return &token, nil
}

func (a *Authenticator) saveToken(token *oauth2.Token) error {
	if a.opts.TokenFile == "" {
		return nil
	}
	data, err := json.MarshalIndent(token, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(a.opts.TokenFile), 0o700); err != nil {
		return err
	}
	return os.WriteFile(a.opts.TokenFile, data, 0o600)
}

// persistingSource saves every token it hands out that differs from the last one.
type persistingSource struct {
	base  oauth2.TokenSource
	save  func(*oauth2.Token) error
	onErr func(error)

	mu   sync.Mutex
	last string
}

func (s *persistingSource) Token() (*oauth2.Token, error) {
	token, err := s.base.Token()
	if err != nil {
		return nil, err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if token.AccessToken != s.last {
		s.last = token.AccessToken
		if err := s.save(token); err != nil && s.onErr != nil {
			s.onErr(err)
		}
	}
	return token, nil
}

// Callback handling

// callbackResult is the outcome of one authorization callback.
type callbackResult struct {
	Token *oauth2.Token
	Err   error
}

// callbackHandler serves the OAuth redirect once.
type callbackHandler struct {
	config *oauth2.Config
	state  string

	once    sync.Once
	results chan callbackResult
}

func newCallbackHandler(config *oauth2.Config, state string) *callbackHandler {
	return &callbackHandler{
		config:  config,
		state:   state,
		results: make(chan callbackResult, 1),
	}
}

func (h *callbackHandler) Result() <-chan callbackResult {
	return h.results
}

func (h *callbackHandler) send(r callbackResult) bool {
	sent := false
	h.once.Do(func() {
		h.results <- r
		sent = true
	})
	return sent
}

func (h *callbackHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	if q.Get("state") != h.state {
		// Stray requests must not end the flow.
		http.Error(w, "state mismatch", http.StatusForbidden)
		return
	}

	code := q.Get("code")
	if code == "" {
		reason := strings.TrimSpace(q.Get("error") + " " + q.Get("error_description"))
		h.send(callbackResult{Err: fmt.Errorf("authorization denied: %s", reason)})
		http.Error(w, "authorization failed", http.StatusBadRequest)
		return
	}

	token, err := h.config.Exchange(r.Context(), code)
	if err != nil {
		h.send(callbackResult{Err: fmt.Errorf("token exchange: %w", err)})
		http.Error(w, "token exchange failed", http.StatusInternalServerError)
		return
	}

	if !h.send(callbackResult{Token: token}) {
		http.Error(w, "callback already processed", http.StatusBadRequest)
		return
	}
	fmt.Fprintln(w, "espot is authorized. You can close this window.")
}

// Verify interface compliance
var _ ports.WebAPIAuthenticator = (*Authenticator)(nil)
