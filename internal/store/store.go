// Package store persists the Spotify credential record between runs.
//
// The record is a fixed set of string fields ([Field]) kept in a pluggable [Backend]:
// the SQLite credentials table, the OS keyring, a locked JSON file, or memory.
// A [Store] without a backend is unavailable: reads report absent and writes are dropped,
// so callers never need to special-case environments without persistent storage.
package store

import (
	"io"
	"sync"

	"github.com/charmbracelet/log"
)

// Field names one entry of the credential record. The value is the stable storage key.
type Field string

const (
	AccessToken  Field = "spotify_access_token"
	RefreshToken Field = "spotify_refresh_token"
	ExpiresAt    Field = "spotify_token_expiry"
	PKCEVerifier Field = "spotify_code_verifier"
	CSRFState    Field = "spotify_auth_state"
	ReturnPath   Field = "spotify_auth_return_path"
)

// Fields lists every credential field.
var Fields = []Field{AccessToken, RefreshToken, ExpiresAt, PKCEVerifier, CSRFState, ReturnPath}

// authFields are cleared before a new token is stored; the refresh token survives.
var authFields = []Field{AccessToken, ExpiresAt, PKCEVerifier}

// Backend is a string key/value persistence mechanism.
type Backend interface {
	Load(key string) (string, bool, error)
	Save(key, value string) error
	Remove(keys ...string) error
}

// Store is the credential record. Each operation is atomic on its own;
// there is no grouping of several fields into one transaction.
type Store struct {
	backend Backend
	logger  *log.Logger
	mu      sync.Mutex
}

// New creates a Store over backend. A nil backend yields an unavailable store.
func New(backend Backend, logger *log.Logger) *Store {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &Store{backend: backend, logger: logger}
}

// Available reports whether a backend is attached.
func (s *Store) Available() bool {
	return s != nil && s.backend != nil
}

// Get returns the field value and whether it is present. Empty values count as absent.
func (s *Store) Get(f Field) (string, bool) {
	if !s.Available() {
		return "", false
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	v, ok, err := s.backend.Load(string(f))
	if err != nil {
		s.logger.Warn("credential read failed", "field", f, "err", err)
		return "", false
	}
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

// Set stores value under f. Storing an empty value removes the field.
func (s *Store) Set(f Field, value string) {
	if !s.Available() {
		return
	}
	if value == "" {
		s.Delete(f)
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.backend.Save(string(f), value); err != nil {
		s.logger.Warn("credential write failed", "field", f, "err", err)
	}
}

// Delete removes the given fields.
func (s *Store) Delete(fields ...Field) {
	if !s.Available() || len(fields) == 0 {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	keys := make([]string, len(fields))
	for i, f := range fields {
		keys[i] = string(f)
	}
	if err := s.backend.Remove(keys...); err != nil {
		s.logger.Warn("credential delete failed", "fields", keys, "err", err)
	}
}

// ClearAuthFields removes the access token, its expiry, and the PKCE verifier.
func (s *Store) ClearAuthFields() {
	s.Delete(authFields...)
}

// ClearAll removes every credential field.
func (s *Store) ClearAll() {
	s.Delete(Fields...)
}

// Snapshot returns the present fields with their values.
func (s *Store) Snapshot() map[Field]string {
	out := make(map[Field]string)
	for _, f := range Fields {
		if v, ok := s.Get(f); ok {
			out[f] = v
		}
	}
	return out
}
