package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"strings"
	"sync"
	"testing"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	tu "github.com/desertthunder/crate/internal/testing"
)

type recordingCache struct {
	mu     sync.Mutex
	tracks map[string]models.Track
	err    error
}

func (c *recordingCache) CacheTrack(service, serviceID string, track models.Track) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return c.err
	}
	if c.tracks == nil {
		c.tracks = map[string]models.Track{}
	}
	c.tracks[service+":"+serviceID] = track
	return nil
}

func (c *recordingCache) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.tracks)
}

func mockExports(n int) (*tu.MockService, []string) {
	svc := &tu.MockService{Exports: map[string]*models.PlaylistExport{}}
	ids := make([]string, n)
	for i := range n {
		id := fmt.Sprintf("playlist%d", i+1)
		ids[i] = id
		svc.Exports[id] = &models.PlaylistExport{
			Playlist: models.Playlist{
				ID:          id,
				Name:        fmt.Sprintf("Playlist %d", i+1),
				Description: fmt.Sprintf("Test playlist %d", i+1),
				TrackCount:  2,
			},
			Tracks: []models.Track{
				{ID: fmt.Sprintf("track%d-1", i+1), Title: "Song 1", Artist: "Artist 1", Duration: 180},
				{ID: fmt.Sprintf("track%d-2", i+1), Title: "Song 2", Artist: "Artist 2", Duration: 200},
			},
		}
	}
	return svc, ids
}

// drain consumes progress updates until the channel is closed.
func drain(ch <-chan ProgressUpdate) *sync.WaitGroup {
	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		for range ch {
		}
	}()
	return &wg
}

type manifestFile struct {
	Format          string `json:"format"`
	TotalPlaylists  int    `json:"total_playlists"`
	Successful      int    `json:"successful_exports"`
	Failed          int    `json:"failed_exports"`
	OutputDirectory string `json:"output_directory"`
	Playlists       []struct {
		ID     string `json:"id"`
		Status string `json:"status"`
		Error  string `json:"error"`
	} `json:"playlists"`
}

func TestBulkExport_SuccessfulExport(t *testing.T) {
	tests := []struct {
		name           string
		format         formatter.Format
		playlistCount  int
		validateResult func(t *testing.T, result *models.BulkExportResult, dir string)
	}{
		{
			name:          "single playlist json export",
			format:        formatter.JSON,
			playlistCount: 1,
			validateResult: func(t *testing.T, result *models.BulkExportResult, dir string) {
				if len(result.Results[0].Files) != 1 {
					t.Errorf("expected 1 file, got %d", len(result.Results[0].Files))
				}
				tu.AssertFileExists(t, filepath.Join(dir, "playlist1.json"))
			},
		},
		{
			name:          "multiple playlists csv export",
			format:        formatter.CSV,
			playlistCount: 3,
			validateResult: func(t *testing.T, result *models.BulkExportResult, dir string) {
				for _, res := range result.Results {
					if len(res.Files) != 2 {
						t.Errorf("CSV export should create 2 files, got %d", len(res.Files))
					}
				}
				tu.AssertFileExists(t, filepath.Join(dir, "playlist2_tracks.csv"))
				tu.AssertFileExists(t, filepath.Join(dir, "playlist2_metadata.json"))
			},
		},
		{
			name:          "text export",
			format:        formatter.Text,
			playlistCount: 2,
			validateResult: func(t *testing.T, result *models.BulkExportResult, dir string) {
				tu.AssertFileExists(t, filepath.Join(dir, "playlist1_tracks.txt"))
				tu.AssertFileExists(t, filepath.Join(dir, "playlist2_tracks.txt"))
			},
		},
		{
			name:          "markdown export",
			format:        formatter.Markdown,
			playlistCount: 1,
			validateResult: func(t *testing.T, result *models.BulkExportResult, dir string) {
				tu.AssertFileExists(t, filepath.Join(dir, "playlist1", "README.md"))
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			dir := t.TempDir()
			svc, ids := mockExports(tt.playlistCount)
			cache := &recordingCache{}
			engine := NewPlaylistEngine(svc, cache, nil)

			progress := make(chan ProgressUpdate, 100)
			done := drain(progress)

			result, err := engine.BulkExport(context.Background(), progress, ids, BulkExportOpts{
				Format:     tt.format,
				OutputDir:  dir,
				NumWorkers: 2,
				RateLimit:  100,
			})
			close(progress)
			done.Wait()

			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.TotalPlaylists != tt.playlistCount {
				t.Errorf("TotalPlaylists = %d, want %d", result.TotalPlaylists, tt.playlistCount)
			}
			if result.SuccessfulExports != tt.playlistCount {
				t.Errorf("SuccessfulExports = %d, want %d", result.SuccessfulExports, tt.playlistCount)
			}
			if result.FailedExports != 0 {
				t.Errorf("FailedExports = %d, want 0", result.FailedExports)
			}
			if len(result.Results) != tt.playlistCount {
				t.Errorf("expected %d results, got %d", tt.playlistCount, len(result.Results))
			}
			if got := cache.count(); got != tt.playlistCount*2 {
				t.Errorf("cached %d tracks, want %d", got, tt.playlistCount*2)
			}

			if result.ManifestPath != filepath.Join(dir, ManifestFilename) {
				t.Errorf("ManifestPath = %q", result.ManifestPath)
			}

			var m manifestFile
			if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &m); err != nil {
				t.Fatalf("failed to parse manifest: %v", err)
			}
			if m.Format != string(tt.format) {
				t.Errorf("manifest format = %s, want %s", m.Format, tt.format)
			}
			if m.TotalPlaylists != tt.playlistCount || m.Successful != tt.playlistCount {
				t.Errorf("manifest totals = %d/%d, want %d", m.Successful, m.TotalPlaylists, tt.playlistCount)
			}
			for _, p := range m.Playlists {
				if p.Status != "success" {
					t.Errorf("playlist %s status = %q, want success", p.ID, p.Status)
				}
			}

			tt.validateResult(t, result, dir)
		})
	}
}

func TestBulkExport_PartialFailures(t *testing.T) {
	dir := t.TempDir()
	svc, _ := mockExports(3)
	delete(svc.Exports, "playlist2")

	engine := NewPlaylistEngine(svc, nil, nil)
	result, err := engine.BulkExport(context.Background(), nil,
		[]string{"playlist1", "playlist2", "playlist3"},
		BulkExportOpts{Format: formatter.JSON, OutputDir: dir, NumWorkers: 2, RateLimit: 100})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if result.TotalPlaylists != 3 {
		t.Errorf("TotalPlaylists = %d, want 3", result.TotalPlaylists)
	}
	if result.SuccessfulExports != 2 {
		t.Errorf("SuccessfulExports = %d, want 2", result.SuccessfulExports)
	}
	if result.FailedExports != 1 {
		t.Errorf("FailedExports = %d, want 1", result.FailedExports)
	}

	var failed *models.PlaylistExportResult
	for i := range result.Results {
		if !result.Results[i].Success {
			failed = &result.Results[i]
		}
	}
	if failed == nil {
		t.Fatal("expected one failed result")
	}
	if failed.PlaylistID != "playlist2" {
		t.Errorf("failed playlist ID = %s, want playlist2", failed.PlaylistID)
	}
	if failed.Error == nil || !strings.Contains(failed.ErrorMessage, "failed to fetch playlist") {
		t.Errorf("failed result error = %v, message = %q", failed.Error, failed.ErrorMessage)
	}

	var m manifestFile
	if err := json.Unmarshal([]byte(tu.MustReadFile(t, result.ManifestPath)), &m); err != nil {
		t.Fatalf("failed to parse manifest: %v", err)
	}
	if m.Failed != 1 {
		t.Errorf("manifest failed_exports = %d, want 1", m.Failed)
	}
	for _, p := range m.Playlists {
		if p.ID == "playlist2" && (p.Status != "failed" || p.Error == "") {
			t.Errorf("playlist2 manifest entry = %+v", p)
		}
	}
}

func TestBulkExport_AllPlaylistsWhenNoIDs(t *testing.T) {
	svc, _ := mockExports(4)
	engine := NewPlaylistEngine(svc, nil, nil)

	progress := make(chan ProgressUpdate, 100)
	result, err := engine.BulkExport(context.Background(), progress, nil,
		BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 100})
	close(progress)
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.TotalPlaylists != 4 || result.SuccessfulExports != 4 {
		t.Errorf("result = %d/%d, want 4/4", result.SuccessfulExports, result.TotalPlaylists)
	}

	first := <-progress
	if first.Phase != FetchPlaylists {
		t.Errorf("first phase = %s, want %s", first.Phase, FetchPlaylists)
	}
}

func TestBulkExport_ListError(t *testing.T) {
	svc := &tu.MockService{Err: shared.ErrAuthorizationInvalid}
	engine := NewPlaylistEngine(svc, nil, nil)

	_, err := engine.BulkExport(context.Background(), nil, nil, BulkExportOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrAuthorizationInvalid) {
		t.Errorf("expected ErrAuthorizationInvalid, got %v", err)
	}
}

func TestBulkExport_ServiceError(t *testing.T) {
	engine := NewPlaylistEngine(nil, nil, nil)

	_, err := engine.BulkExport(context.Background(), nil, []string{"p1"}, BulkExportOpts{OutputDir: t.TempDir()})
	if !errors.Is(err, shared.ErrServiceUnavailable) {
		t.Errorf("expected ErrServiceUnavailable, got %v", err)
	}
}

func TestBulkExport_ContextCancellation(t *testing.T) {
	dir := t.TempDir()
	svc, ids := mockExports(2)
	engine := NewPlaylistEngine(svc, nil, nil)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	result, err := engine.BulkExport(ctx, nil, ids, BulkExportOpts{OutputDir: dir, NumWorkers: 1, RateLimit: 100})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled, got %v", err)
	}
	if result == nil {
		t.Fatal("result should not be nil")
	}
	if result.ManifestPath != "" {
		t.Errorf("manifest should not be written after cancellation, got %q", result.ManifestPath)
	}
}

func TestBulkExport_DefaultOptions(t *testing.T) {
	t.Chdir(t.TempDir())

	svc, ids := mockExports(1)
	engine := NewPlaylistEngine(svc, nil, nil)

	result, err := engine.BulkExport(context.Background(), nil, ids, BulkExportOpts{})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}

	if !strings.HasPrefix(filepath.Base(result.OutputDirectory), "spotify_export_") {
		t.Errorf("default output directory should start with 'spotify_export_', got: %s", result.OutputDirectory)
	}
	tu.AssertDirExists(t, result.OutputDirectory)
	tu.AssertFileExists(t, filepath.Join(result.OutputDirectory, "playlist1.json"))
}

func TestBulkExport_WorkerPoolLimits(t *testing.T) {
	tests := []struct {
		name    string
		workers int
	}{
		{name: "zero workers uses default", workers: 0},
		{name: "excess workers are capped", workers: 50},
		{name: "single worker", workers: 1},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, ids := mockExports(6)
			engine := NewPlaylistEngine(svc, nil, nil)

			result, err := engine.BulkExport(context.Background(), nil, ids,
				BulkExportOpts{OutputDir: t.TempDir(), NumWorkers: tt.workers, RateLimit: 100})
			if err != nil {
				t.Fatalf("BulkExport() error = %v", err)
			}
			if result.SuccessfulExports != 6 {
				t.Errorf("SuccessfulExports = %d, want 6", result.SuccessfulExports)
			}
		})
	}
}

func TestBulkExport_CacheErrorsIgnored(t *testing.T) {
	svc, ids := mockExports(2)
	cache := &recordingCache{err: errors.New("disk full")}
	engine := NewPlaylistEngine(svc, cache, nil)

	result, err := engine.BulkExport(context.Background(), nil, ids,
		BulkExportOpts{OutputDir: t.TempDir(), RateLimit: 100})
	if err != nil {
		t.Fatalf("BulkExport() error = %v", err)
	}
	if result.FailedExports != 0 {
		t.Errorf("cache failures should not fail exports, got %d failures", result.FailedExports)
	}
}
