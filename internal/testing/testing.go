// package testing contains shared testing utilities
package testing

import (
	"context"
	"errors"
	"io"
	"net/http"
	"os"
	"sync"
	"testing"
	"time"

	"github.com/desertthunder/crate/internal/models"
)

// MockService is a test double for services.Service backed by in-memory exports.
type MockService struct {
	Exports map[string]*models.PlaylistExport
	Err     error
}

func (m *MockService) Name() string { return "mock" }

func (m *MockService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	playlists := make([]models.Playlist, 0, len(m.Exports))
	for _, e := range m.Exports {
		playlists = append(playlists, e.Playlist)
	}
	return playlists, nil
}

func (m *MockService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	export, err := m.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	return &export.Playlist, nil
}

func (m *MockService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	if m.Err != nil {
		return nil, m.Err
	}
	if e, ok := m.Exports[playlistID]; ok {
		return e, nil
	}
	return nil, errors.New("playlist not found")
}

// StaticTokens is a token provider with a fixed token that counts logouts.
type StaticTokens struct {
	mu          sync.Mutex
	Token       string
	Calls       int
	LogoutCalls int
}

func (s *StaticTokens) EnsureValidToken(ctx context.Context) (string, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.Calls++
	return s.Token, s.Token != ""
}

func (s *StaticTokens) Logout() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.LogoutCalls++
	s.Token = ""
}

// RecordingNavigator records navigation targets instead of opening a browser.
type RecordingNavigator struct {
	mu       sync.Mutex
	Targets  []string
	Err      error
	location string
}

// NewRecordingNavigator creates a RecordingNavigator positioned at start.
func NewRecordingNavigator(start string) *RecordingNavigator {
	return &RecordingNavigator{location: start}
}

func (n *RecordingNavigator) Navigate(target string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.Targets = append(n.Targets, target)
	if n.Err != nil {
		return n.Err
	}
	n.location = target
	return nil
}

func (n *RecordingNavigator) Location() string {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.location
}

// Count returns how many navigations were attempted.
func (n *RecordingNavigator) Count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.Targets)
}

// FakeClock is a settable clock.
type FakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func NewFakeClock(now time.Time) *FakeClock { return &FakeClock{now: now} }

func (c *FakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *FakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

// FWriter always returns an error on Write
type FWriter struct{}

func (f *FWriter) Write(p []byte) (n int, err error) {
	return 0, errors.New("write failed")
}

// MockRoundTripper allows custom HTTP responses for testing
type MockRoundTripper struct {
	response *http.Response
	err      error
}

func NewMockRoundTripper(r *http.Response, e error) *MockRoundTripper {
	return &MockRoundTripper{response: r, err: e}
}

func (m *MockRoundTripper) RoundTrip(*http.Request) (*http.Response, error) {
	return m.response, m.err
}

// FCloser simulates a failure when reading response body
type FCloser struct{}

func (f *FCloser) Read(p []byte) (n int, err error) {
	return 0, errors.New("read failed")
}

func (f *FCloser) Close() error {
	return nil
}

var _ io.ReadCloser = (*FCloser)(nil)

func AssertFileExists(t *testing.T, path string) {
	t.Helper()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		t.Errorf("File does not exist: %s", path)
	}
}

func AssertDirExists(t *testing.T, path string) {
	t.Helper()
	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		t.Errorf("Directory does not exist: %s", path)
		return
	}
	if !info.IsDir() {
		t.Errorf("Path is not a directory: %s", path)
	}
}

func MustReadFile(t *testing.T, path string) string {
	t.Helper()
	content, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("Failed to read file %s: %v", path, err)
	}
	return string(content)
}
