package formatter

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
	th "github.com/desertthunder/crate/internal/testing"
)

func sampleExport() *models.PlaylistExport {
	return &models.PlaylistExport{
		Playlist: models.Playlist{
			ID:          "test123",
			Name:        "Test Playlist",
			Description: "A test playlist",
			Owner:       "someone",
			TrackCount:  2,
			Public:      true,
		},
		Tracks: []models.Track{
			{
				ID:       "track1",
				Title:    "Song One",
				Artist:   "Artist One",
				Album:    "Album One",
				Duration: 180,
				ISRC:     "USRC12345678",
				URI:      "spotify:track:track1",
			},
			{
				ID:       "track2",
				Title:    "Song | Two",
				Artist:   "Artist Two",
				Album:    "Album Two",
				Duration: 241,
				ISRC:     "USRC87654321",
			},
		},
	}
}

func TestParseFormat(t *testing.T) {
	tc := []struct {
		in      string
		want    Format
		wantErr bool
	}{
		{"", JSON, false},
		{"JSON", JSON, false},
		{"csv", CSV, false},
		{"md", Markdown, false},
		{"markdown", Markdown, false},
		{"text", Text, false},
		{"txt", Text, false},
		{"xml", "", true},
	}

	for _, tt := range tc {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseFormat(tt.in)
			if (err != nil) != tt.wantErr || got != tt.want {
				t.Errorf("ParseFormat(%q) = %q, %v", tt.in, got, err)
			}
			if tt.wantErr && !errors.Is(err, shared.ErrInvalidFlag) {
				t.Errorf("expected ErrInvalidFlag, got %v", err)
			}
		})
	}
}

func TestExporters(t *testing.T) {
	t.Run("ExportToCSV", func(t *testing.T) {
		data, err := ExportToCSV(sampleExport())
		if err != nil {
			t.Fatalf("ExportToCSV failed: %v", err)
		}

		lines := strings.Split(strings.TrimSpace(string(data)), "\n")
		if len(lines) != 3 {
			t.Fatalf("expected header and 2 rows, got %d lines", len(lines))
		}
		if lines[0] != "ID,Title,Artist,Album,Duration,ISRC,URI" {
			t.Errorf("CSV missing headers, got: %s", lines[0])
		}
		if lines[1] != "track1,Song One,Artist One,Album One,180,USRC12345678,spotify:track:track1" {
			t.Errorf("unexpected first row: %s", lines[1])
		}
	})

	t.Run("ExportToMarkdown", func(t *testing.T) {
		t.Run("without cover image", func(t *testing.T) {
			data, err := ExportToMarkdown(sampleExport(), "")
			if err != nil {
				t.Fatalf("ExportToMarkdown failed: %v", err)
			}
			output := string(data)

			for _, want := range []string{
				"# Test Playlist",
				"> A test playlist",
				"- **Tracks**: 2",
				"- **Visibility**: public",
				"- **Owner**: someone",
				"| 1 | Song One | Artist One | Album One | 3:00 |",
				`| 2 | Song \| Two | Artist Two | Album Two | 4:01 |`,
			} {
				if !strings.Contains(output, want) {
					t.Errorf("Markdown missing %q, got:\n%s", want, output)
				}
			}
			if strings.Contains(output, "![Cover]") {
				t.Error("Markdown should not link a cover")
			}
		})

		t.Run("with cover image", func(t *testing.T) {
			data, _ := ExportToMarkdown(sampleExport(), "cover.jpg")
			if !strings.Contains(string(data), "![Cover](cover.jpg)") {
				t.Errorf("Markdown missing cover link")
			}
		})
	})

	t.Run("ExportToText", func(t *testing.T) {
		data, err := ExportToText(sampleExport())
		if err != nil {
			t.Fatalf("ExportToText failed: %v", err)
		}
		output := string(data)

		if !strings.Contains(output, "Playlist: Test Playlist\n") || !strings.Contains(output, "Tracks: 2\n") {
			t.Errorf("text missing header, got:\n%s", output)
		}
		if !strings.Contains(output, "1. Artist One - Song One [3:00]") {
			t.Errorf("text missing first track, got:\n%s", output)
		}
	})

	t.Run("ExportToJSON", func(t *testing.T) {
		data, err := ExportToJSON(sampleExport())
		if err != nil {
			t.Fatalf("ExportToJSON failed: %v", err)
		}

		var decoded models.PlaylistExport
		if err := json.Unmarshal(data, &decoded); err != nil {
			t.Fatalf("invalid JSON: %v", err)
		}
		if decoded.Playlist.ID != "test123" || len(decoded.Tracks) != 2 || decoded.Tracks[0].ISRC != "USRC12345678" {
			t.Errorf("unexpected decoded export %+v", decoded)
		}
	})

	t.Run("ToMetadataJSON", func(t *testing.T) {
		data, err := ToMetadataJSON(sampleExport().Playlist)
		if err != nil {
			t.Fatalf("ToMetadataJSON failed: %v", err)
		}
		if strings.Contains(string(data), "track1") {
			t.Error("metadata should not include tracks")
		}
		if !strings.Contains(string(data), `"track_count": 2`) {
			t.Errorf("metadata missing track count: %s", data)
		}
	})
}

func TestDownloadImage(t *testing.T) {
	t.Run("EmptyURL", func(t *testing.T) {
		if _, err := DownloadImage(context.Background(), nil, ""); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("Success", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("jpeg-bytes"))
		}))
		defer server.Close()

		data, err := DownloadImage(context.Background(), server.Client(), server.URL+"/cover")
		if err != nil || string(data) != "jpeg-bytes" {
			t.Errorf("unexpected result %q, %v", data, err)
		}
	})

	t.Run("NotFound", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		if _, err := DownloadImage(context.Background(), nil, server.URL); err == nil || !strings.Contains(err.Error(), "status 404") {
			t.Errorf("expected status error, got %v", err)
		}
	})
}

func TestWrite(t *testing.T) {
	ctx := context.Background()

	t.Run("JSON", func(t *testing.T) {
		dir := t.TempDir()
		files, err := Write(ctx, sampleExport(), JSON, WriteOptions{Dir: dir})
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(files) != 1 || files[0] != filepath.Join(dir, "test123.json") {
			t.Errorf("unexpected files %v", files)
		}
		th.AssertFileExists(t, files[0])
	})

	t.Run("CSV", func(t *testing.T) {
		dir := t.TempDir()
		files, err := Write(ctx, sampleExport(), CSV, WriteOptions{Dir: dir})
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		want := []string{filepath.Join(dir, "test123_tracks.csv"), filepath.Join(dir, "test123_metadata.json")}
		if strings.Join(files, ",") != strings.Join(want, ",") {
			t.Errorf("expected %v, got %v", want, files)
		}
		if !strings.Contains(th.MustReadFile(t, want[1]), `"Test Playlist"`) {
			t.Error("metadata file missing playlist name")
		}
	})

	t.Run("Text", func(t *testing.T) {
		dir := t.TempDir()
		files, err := Write(ctx, sampleExport(), Text, WriteOptions{Dir: dir})
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if !strings.HasSuffix(files[0], "test123_tracks.txt") {
			t.Errorf("unexpected file %v", files)
		}
	})

	t.Run("Markdown With Cover", func(t *testing.T) {
		server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Write([]byte("img"))
		}))
		defer server.Close()

		dir := t.TempDir()
		export := sampleExport()
		export.Playlist.ImageURL = server.URL + "/p.jpg"

		files, err := Write(ctx, export, Markdown, WriteOptions{Dir: dir, CoverImage: true})
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}

		th.AssertDirExists(t, filepath.Join(dir, "test123"))
		if len(files) != 2 {
			t.Fatalf("expected cover and README, got %v", files)
		}
		if !strings.Contains(th.MustReadFile(t, filepath.Join(dir, "test123", "README.md")), "![Cover](cover.jpg)") {
			t.Error("README should link the cover")
		}
	})

	t.Run("Markdown Cover Failure Warns", func(t *testing.T) {
		server := httptest.NewServer(http.NotFoundHandler())
		defer server.Close()

		var warnings []string
		export := sampleExport()
		export.Playlist.ImageURL = server.URL

		files, err := Write(ctx, export, Markdown, WriteOptions{
			Dir:        t.TempDir(),
			CoverImage: true,
			Warn:       func(msg string, _ ...any) { warnings = append(warnings, msg) },
		})
		if err != nil {
			t.Fatalf("Write failed: %v", err)
		}
		if len(files) != 1 || len(warnings) != 1 {
			t.Errorf("expected README only and one warning, got %v, %v", files, warnings)
		}
	})

	t.Run("Errors", func(t *testing.T) {
		if _, err := Write(ctx, &models.PlaylistExport{}, JSON, WriteOptions{Dir: t.TempDir()}); !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput for missing ID, got %v", err)
		}
		if _, err := Write(ctx, sampleExport(), Format("xml"), WriteOptions{Dir: t.TempDir()}); !errors.Is(err, shared.ErrInvalidFlag) {
			t.Errorf("expected ErrInvalidFlag, got %v", err)
		}
		if _, err := Write(ctx, sampleExport(), JSON, WriteOptions{Dir: filepath.Join(t.TempDir(), "missing")}); err == nil {
			t.Error("expected error writing into a missing directory")
		}
	})
}

func TestWriteBulkExportManifest(t *testing.T) {
	t.Run("SuccessfulExport", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		result := &models.BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 2,
			OutputDirectory:   "exports",
			Results: []models.PlaylistExportResult{
				{PlaylistID: "playlist1", PlaylistName: "My Playlist 1", TrackCount: 4, Success: true, Files: []string{"playlist1_tracks.csv", "playlist1_metadata.json"}},
				{PlaylistID: "playlist2", PlaylistName: "My Playlist 2", TrackCount: 1, Success: true, Files: []string{"playlist2_tracks.csv"}},
			},
		}

		if err := WriteBulkExportManifest(result, CSV, path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"format": "csv"`, `"total_playlists": 2`, `"successful_exports": 2`, `"My Playlist 1"`, `"status": "success"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})

	t.Run("WithFailedExports", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "manifest.json")
		result := &models.BulkExportResult{
			TotalPlaylists:    2,
			SuccessfulExports: 0,
			FailedExports:     2,
			Results: []models.PlaylistExportResult{
				{PlaylistID: "p1", PlaylistName: "Failed Playlist", ErrorMessage: "authentication failed"},
				{PlaylistID: "p2", PlaylistName: "Another Failed", Error: errors.New("network timeout")},
			},
		}

		if err := WriteBulkExportManifest(result, Markdown, path); err != nil {
			t.Fatalf("WriteBulkExportManifest failed: %v", err)
		}

		content := th.MustReadFile(t, path)
		for _, want := range []string{`"format": "markdown"`, `"failed_exports": 2`, `"status": "failed"`, `"authentication failed"`, `"network timeout"`} {
			if !strings.Contains(content, want) {
				t.Errorf("manifest missing %s", want)
			}
		}
	})

	t.Run("UnwritablePath", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "missing", "manifest.json")
		if err := WriteBulkExportManifest(&models.BulkExportResult{}, JSON, path); err == nil {
			t.Error("expected write error")
		}
		if _, err := os.Stat(path); !os.IsNotExist(err) {
			t.Error("manifest should not exist")
		}
	})
}
