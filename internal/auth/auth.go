// Package auth manages the Spotify token lifecycle.
//
// [Manager] runs the Authorization Code with PKCE flow, stores the resulting
// tokens in the credential [store.Store], refreshes them when they are about to
// expire, and publishes the logged-in state to subscribers.
//
// Lifecycle:
//
//	LoggedOut --BeginAuthorization--> Authorizing --navigate--> AwaitingCallback
//	AwaitingCallback --CompleteCallback ok--> LoggedIn
//	AwaitingCallback --CompleteCallback failed--> LoggedOut
//	LoggedIn --token near expiry--> Expired --Refresh--> Refreshing
//	Refreshing --ok--> LoggedIn
//	Refreshing --rejected or no refresh token--> LoggedOut
//	any --Logout or 401--> LoggedOut
//
// Concurrent EnsureValidToken calls are not coordinated: two callers that both
// observe an expired token will each refresh.
package auth

import (
	"context"
	"crypto/rand"
	"encoding/json"
	"io"
	"net/http"
	"strconv"
	"sync"
	"time"

	"github.com/charmbracelet/log"
	"golang.org/x/oauth2"

	"github.com/desertthunder/crate/internal/shared"
	"github.com/desertthunder/crate/internal/store"
)

const (
	// expiryMargin treats a token as expired this long before its recorded expiry.
	expiryMargin = 60 * time.Second

	defaultExpiresIn = 3600
)

// DefaultScopes are requested on every authorization.
var DefaultScopes = []string{
	"user-read-private",
	"user-read-email",
	"user-top-read",
	"user-read-recently-played",
	"playlist-read-private",
	"playlist-read-collaborative",
	"playlist-modify-public",
	"playlist-modify-private",
	"user-follow-read",
	"user-library-read",
	"user-library-modify",
	"user-follow-modify",
}

// State is the position of the Manager in the authorization lifecycle.
type State int

const (
	LoggedOut State = iota
	Authorizing
	AwaitingCallback
	LoggedIn
	Expired
	Refreshing
)

func (s State) String() string {
	switch s {
	case LoggedOut:
		return "logged_out"
	case Authorizing:
		return "authorizing"
	case AwaitingCallback:
		return "awaiting_callback"
	case LoggedIn:
		return "logged_in"
	case Expired:
		return "expired"
	case Refreshing:
		return "refreshing"
	default:
		return "unknown"
	}
}

// Options configures a Manager. Zero values pick production defaults.
type Options struct {
	ClientID    string
	RedirectURI string
	AuthURL     string
	TokenURL    string
	Scopes      []string
	HomePath    string

	HTTPClient *http.Client
	Navigator  Navigator
	Clock      func() time.Time
	Random     io.Reader
	Logger     *log.Logger
}

// OptionsFromConfig fills Options from the application config.
func OptionsFromConfig(cfg *shared.Config) Options {
	return Options{
		ClientID:    cfg.Credentials.Spotify.ClientID,
		RedirectURI: cfg.Credentials.Spotify.RedirectURI,
		AuthURL:     cfg.API.AuthURL,
		TokenURL:    cfg.API.TokenURL,
		HomePath:    cfg.Server.HomePath,
		HTTPClient:  &http.Client{Timeout: cfg.API.Timeout()},
	}
}

// Manager owns the credential record and the authorization flow.
type Manager struct {
	oauth      *oauth2.Config
	store      *store.Store
	httpClient *http.Client
	nav        Navigator
	now        func() time.Time
	random     io.Reader
	homePath   string
	logger     *log.Logger

	loggedIn *Broadcaster[bool]

	mu    sync.Mutex
	state State
}

// NewManager creates a Manager over st.
func NewManager(st *store.Store, opts Options) *Manager {
	if opts.AuthURL == "" {
		opts.AuthURL = "https://accounts.spotify.com/authorize"
	}
	if opts.TokenURL == "" {
		opts.TokenURL = "https://accounts.spotify.com/api/token"
	}
	if opts.Scopes == nil {
		opts.Scopes = DefaultScopes
	}
	if opts.HomePath == "" {
		opts.HomePath = "/"
	}
	if opts.HTTPClient == nil {
		opts.HTTPClient = &http.Client{Timeout: 30 * time.Second}
	}
	if opts.Navigator == nil {
		opts.Navigator = NewBrowserNavigator(opts.HomePath)
	}
	if opts.Clock == nil {
		opts.Clock = time.Now
	}
	if opts.Random == nil {
		opts.Random = rand.Reader
	}
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	m := &Manager{
		oauth: &oauth2.Config{
			ClientID:    opts.ClientID,
			RedirectURL: opts.RedirectURI,
			Scopes:      opts.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   opts.AuthURL,
				TokenURL:  opts.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		store:      st,
		httpClient: opts.HTTPClient,
		nav:        opts.Navigator,
		now:        opts.Clock,
		random:     opts.Random,
		homePath:   opts.HomePath,
		logger:     shared.WithLogger(opts.Logger, "component", "auth"),
	}

	loggedIn := m.IsLoggedIn()
	m.loggedIn = NewBroadcaster(loggedIn)
	if loggedIn {
		m.state = LoggedIn
	}
	return m
}

// State returns the current lifecycle state.
func (m *Manager) State() State {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.state
}

func (m *Manager) setState(s State) {
	m.mu.Lock()
	prev := m.state
	m.state = s
	m.mu.Unlock()

	if prev != s {
		m.logger.Debug("auth state", "from", prev, "to", s)
	}
}

// settle derives the resting state from the stored credentials and publishes it.
func (m *Manager) settle() {
	if m.IsLoggedIn() {
		m.setState(LoggedIn)
	} else {
		m.setState(LoggedOut)
	}
	m.publish()
}

func (m *Manager) publish() {
	m.loggedIn.Publish(m.IsLoggedIn())
}

// Subscribe streams the logged-in flag. The channel is primed with the current
// value; call cancel to stop receiving.
func (m *Manager) Subscribe() (<-chan bool, func()) {
	return m.loggedIn.Subscribe()
}

// IsLoggedIn reports whether a non-expired access token or any refresh token is stored.
func (m *Manager) IsLoggedIn() bool {
	if _, ok := m.validToken(); ok {
		return true
	}
	_, ok := m.store.Get(store.RefreshToken)
	return ok
}

// expiresAt returns the stored expiry in epoch milliseconds.
func (m *Manager) expiresAt() (int64, bool) {
	raw, ok := m.store.Get(store.ExpiresAt)
	if !ok {
		return 0, false
	}
	ms, err := strconv.ParseInt(raw, 10, 64)
	if err != nil {
		m.logger.Warn("ignoring unparseable token expiry", "value", raw)
		return 0, false
	}
	return ms, true
}

// isExpired is true when now is within expiryMargin of the stored expiry, or no expiry is stored.
func (m *Manager) isExpired() bool {
	ms, ok := m.expiresAt()
	if !ok {
		return true
	}
	return m.now().UnixMilli() >= ms-expiryMargin.Milliseconds()
}

// validToken returns the stored access token when it is present and not expired.
func (m *Manager) validToken() (string, bool) {
	tok, ok := m.store.Get(store.AccessToken)
	if !ok || m.isExpired() {
		return "", false
	}
	return tok, true
}

// Status is a snapshot of the credential record without token values.
type Status struct {
	State           State     `json:"-"`
	StateName       string    `json:"state"`
	LoggedIn        bool      `json:"logged_in"`
	HasAccessToken  bool      `json:"has_access_token"`
	HasRefreshToken bool      `json:"has_refresh_token"`
	Expired         bool      `json:"expired"`
	ExpiresAt       time.Time `json:"expires_at,omitzero"`
	StorageEnabled  bool      `json:"storage_enabled"`
	StoredFields    []string  `json:"stored_fields"`
}

// Status reports the current credential state.
func (m *Manager) Status() Status {
	_, hasAccess := m.store.Get(store.AccessToken)
	_, hasRefresh := m.store.Get(store.RefreshToken)
	st := m.State()

	s := Status{
		State:           st,
		StateName:       st.String(),
		LoggedIn:        m.IsLoggedIn(),
		HasAccessToken:  hasAccess,
		HasRefreshToken: hasRefresh,
		Expired:         hasAccess && m.isExpired(),
		StorageEnabled:  m.store.Available(),
	}
	if ms, ok := m.expiresAt(); ok {
		s.ExpiresAt = time.UnixMilli(ms)
	}

	present := m.store.Snapshot()
	s.StoredFields = make([]string, 0, len(present))
	for _, f := range store.Fields {
		if _, ok := present[f]; ok {
			s.StoredFields = append(s.StoredFields, string(f))
		}
	}
	return s
}

// Logout clears every credential field and returns to the home location.
// Calling it repeatedly has no further effect.
func (m *Manager) Logout() {
	m.store.ClearAll()
	m.setState(LoggedOut)
	m.publish()

	if m.nav.Location() != m.homePath {
		if err := m.nav.Navigate(m.homePath); err != nil {
			m.logger.Warn("failed to navigate home after logout", "err", err)
		}
	}
	m.logger.Info("logged out")
}

// oauthContext carries the Manager's HTTP client into x/oauth2.
func (m *Manager) oauthContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, m.httpClient)
}

// storeToken persists a token response. The expiry is written before the access
// token so a present token always has an expiry.
func (m *Manager) storeToken(tok *oauth2.Token) {
	expiresAt := m.now().UnixMilli() + expiresIn(tok)*1000

	m.store.Set(store.ExpiresAt, strconv.FormatInt(expiresAt, 10))
	m.store.Set(store.AccessToken, tok.AccessToken)
	if tok.RefreshToken != "" {
		m.store.Set(store.RefreshToken, tok.RefreshToken)
	}
}

// expiresIn reads expires_in (seconds) from the raw token response, defaulting to one hour.
func expiresIn(tok *oauth2.Token) int64 {
	switch v := tok.Extra("expires_in").(type) {
	case float64:
		if v > 0 {
			return int64(v)
		}
	case json.Number:
		if n, err := v.Int64(); err == nil && n > 0 {
			return n
		}
	case string:
		if n, err := strconv.ParseInt(v, 10, 64); err == nil && n > 0 {
			return n
		}
	case int64:
		if v > 0 {
			return v
		}
	case int:
		if v > 0 {
			return int64(v)
		}
	}
	return defaultExpiresIn
}
