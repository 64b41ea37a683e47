// package formatter renders playlist exports as JSON, CSV, Markdown or plain text
// and writes them to disk
package formatter

import (
	"bytes"
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// Format is an export file format.
type Format string

const (
	JSON     Format = "json"
	CSV      Format = "csv"
	Markdown Format = "markdown"
	Text     Format = "txt"
)

// Formats lists the supported formats in display order.
var Formats = []Format{JSON, CSV, Markdown, Text}

// ParseFormat validates a format name. Empty selects [JSON]; "md" and "text"
// are accepted as aliases.
func ParseFormat(name string) (Format, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "json":
		return JSON, nil
	case "csv":
		return CSV, nil
	case "markdown", "md":
		return Markdown, nil
	case "txt", "text":
		return Text, nil
	default:
		return "", fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, name)
	}
}

// ExportToJSON encodes the playlist and its tracks as indented JSON.
func ExportToJSON(export *models.PlaylistExport) ([]byte, error) {
	return shared.MarshalJSON(export, true)
}

// ExportToCSV converts a PlaylistExport to CSV with columns: ID, Title, Artist, Album, Duration, ISRC, URI
func ExportToCSV(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer
	writer := csv.NewWriter(&buf)

	if err := writer.Write([]string{"ID", "Title", "Artist", "Album", "Duration", "ISRC", "URI"}); err != nil {
		return nil, fmt.Errorf("failed to write CSV headers: %w", err)
	}

	for _, track := range export.Tracks {
		record := []string{
			track.ID,
			track.Title,
			track.Artist,
			track.Album,
			strconv.Itoa(track.Duration),
			track.ISRC,
			track.URI,
		}
		if err := writer.Write(record); err != nil {
			return nil, fmt.Errorf("failed to write CSV record: %w", err)
		}
	}

	writer.Flush()
	if err := writer.Error(); err != nil {
		return nil, fmt.Errorf("CSV writer error: %w", err)
	}
	return buf.Bytes(), nil
}

// escapeCell keeps pipes and newlines from breaking a Markdown table row.
func escapeCell(s string) string {
	s = strings.ReplaceAll(s, "|", `\|`)
	return strings.Join(strings.Fields(s), " ")
}

// ExportToMarkdown renders a playlist page with a track table. imageFilename is
// linked as the cover when set.
func ExportToMarkdown(export *models.PlaylistExport, imageFilename string) ([]byte, error) {
	var buf bytes.Buffer
	p := export.Playlist

	fmt.Fprintf(&buf, "# %s\n\n", p.Name)
	if imageFilename != "" {
		fmt.Fprintf(&buf, "![Cover](%s)\n\n", imageFilename)
	}
	if p.Description != "" {
		fmt.Fprintf(&buf, "> %s\n\n", p.Description)
	}

	fmt.Fprintf(&buf, "- **Tracks**: %d\n", len(export.Tracks))
	fmt.Fprintf(&buf, "- **Visibility**: %s\n", shared.VisibilityString(p.Public))
	if p.Owner != "" {
		fmt.Fprintf(&buf, "- **Owner**: %s\n", p.Owner)
	}
	if p.URL != "" {
		fmt.Fprintf(&buf, "- **Link**: <%s>\n", p.URL)
	}

	buf.WriteString("\n## Tracks\n\n")
	buf.WriteString("| # | Title | Artist | Album | Length |\n")
	buf.WriteString("|---|-------|--------|-------|--------|\n")
	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "| %d | %s | %s | %s | %s |\n",
			i+1,
			escapeCell(track.Title),
			escapeCell(track.Artist),
			escapeCell(track.Album),
			shared.FormatDuration(track.Duration),
		)
	}
	return buf.Bytes(), nil
}

// ExportToText converts a PlaylistExport to a numbered plain text listing.
func ExportToText(export *models.PlaylistExport) ([]byte, error) {
	var buf bytes.Buffer

	fmt.Fprintf(&buf, "Playlist: %s\n", export.Playlist.Name)
	if export.Playlist.Description != "" {
		fmt.Fprintf(&buf, "Description: %s\n", export.Playlist.Description)
	}
	fmt.Fprintf(&buf, "Tracks: %d\n\n", len(export.Tracks))

	for i, track := range export.Tracks {
		fmt.Fprintf(&buf, "%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.Duration))
	}
	return buf.Bytes(), nil
}

// ToMetadataJSON generates a JSON representation of playlist metadata (without tracks)
func ToMetadataJSON(playlist models.Playlist) ([]byte, error) {
	return shared.MarshalJSON(playlist, true)
}

// DownloadImage fetches an image and returns its bytes. A nil client uses a
// 30 second timeout.
func DownloadImage(ctx context.Context, client *http.Client, url string) ([]byte, error) {
	if url == "" {
		return nil, fmt.Errorf("%w: empty image URL", shared.ErrInvalidInput)
	}
	if client == nil {
		client = &http.Client{Timeout: 30 * time.Second}
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to download image: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("failed to download image: status %d", resp.StatusCode)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("failed to read image data: %w", err)
	}
	return data, nil
}

// WriteOptions controls where [Write] puts files.
type WriteOptions struct {
	// Dir is the output directory. Files are named after the playlist ID.
	Dir string
	// CoverImage downloads the playlist image for Markdown exports when set.
	CoverImage bool
	HTTPClient *http.Client
	// Warn receives non-fatal problems such as a failed cover download.
	Warn func(msg string, keyvals ...any)
}

// Write renders export in format under opts.Dir and returns the files created.
//
// Layouts:
//   - json: {id}.json
//   - csv: {id}_tracks.csv and {id}_metadata.json
//   - markdown: {id}/README.md and optionally {id}/cover.jpg
//   - txt: {id}_tracks.txt
func Write(ctx context.Context, export *models.PlaylistExport, format Format, opts WriteOptions) ([]string, error) {
	if export.Playlist.ID == "" {
		return nil, fmt.Errorf("%w: playlist has no ID", shared.ErrInvalidInput)
	}
	if opts.Warn == nil {
		opts.Warn = func(string, ...any) {}
	}
	base := filepath.Join(opts.Dir, export.Playlist.ID)

	switch format {
	case CSV:
		return writeCSV(export, base)
	case Markdown:
		return writeMarkdown(ctx, export, base, opts)
	case Text:
		return writeFile(base+"_tracks.txt", export, ExportToText)
	case JSON, "":
		return writeFile(base+".json", export, ExportToJSON)
	default:
		return nil, fmt.Errorf("%w: unknown export format %q", shared.ErrInvalidFlag, format)
	}
}

func writeFile(path string, export *models.PlaylistExport, render func(*models.PlaylistExport) ([]byte, error)) ([]string, error) {
	data, err := render(export)
	if err != nil {
		return nil, fmt.Errorf("failed to render %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return nil, fmt.Errorf("failed to write %s: %w", path, err)
	}
	return []string{path}, nil
}

func writeCSV(export *models.PlaylistExport, base string) ([]string, error) {
	tracks, err := writeFile(base+"_tracks.csv", export, ExportToCSV)
	if err != nil {
		return nil, err
	}
	metadata, err := writeFile(base+"_metadata.json", export, func(e *models.PlaylistExport) ([]byte, error) {
		return ToMetadataJSON(e.Playlist)
	})
	if err != nil {
		return nil, err
	}
	return append(tracks, metadata...), nil
}

func writeMarkdown(ctx context.Context, export *models.PlaylistExport, dir string, opts WriteOptions) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create directory: %w", err)
	}

	var files []string
	var cover string
	if opts.CoverImage && export.Playlist.ImageURL != "" {
		data, err := DownloadImage(ctx, opts.HTTPClient, export.Playlist.ImageURL)
		if err != nil {
			opts.Warn("failed to download cover image", "playlist", export.Playlist.ID, "err", err)
		} else {
			path := filepath.Join(dir, "cover.jpg")
			if err := os.WriteFile(path, data, 0644); err != nil {
				opts.Warn("failed to save cover image", "path", path, "err", err)
			} else {
				cover = "cover.jpg"
				files = append(files, path)
			}
		}
	}

	readme, err := writeFile(filepath.Join(dir, "README.md"), export, func(e *models.PlaylistExport) ([]byte, error) {
		return ExportToMarkdown(e, cover)
	})
	if err != nil {
		return nil, err
	}
	return append(files, readme...), nil
}
