package tasks

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"golang.org/x/time/rate"

	"github.com/desertthunder/crate/internal/formatter"
	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const (
	DefaultExportWorkers = 5
	MaxExportWorkers     = 10
	DefaultExportRate    = 5.0
	ManifestFilename     = "export_manifest.json"
)

// BulkExportOpts contains configuration for bulk playlist exports.
type BulkExportOpts struct {
	Format     formatter.Format // Export format (default: json)
	OutputDir  string           // Base output directory (default: spotify_export_{epoch})
	NumWorkers int              // Concurrent writers (default: 5, max: 10)
	RateLimit  float64          // Playlist fetches per second (default: 5)
	CoverImage bool             // Download cover images for markdown exports
}

type exportJob struct {
	export *models.PlaylistExport
}

// BulkExport exports playlists concurrently and writes a manifest describing
// every outcome. An empty ids slice exports all of the user's playlists.
//
// Playlists are fetched one at a time under a rate limiter and handed to a pool
// of writers. A failure for one playlist is recorded in its result and does not
// stop the others.
func (e *PlaylistEngine) BulkExport(
	ctx context.Context,
	prog chan<- ProgressUpdate,
	ids []string,
	opts BulkExportOpts,
) (*models.BulkExportResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	if opts.Format == "" {
		opts.Format = formatter.JSON
	}
	if opts.OutputDir == "" {
		opts.OutputDir = fmt.Sprintf("spotify_export_%d", time.Now().Unix())
	}
	if opts.NumWorkers <= 0 {
		opts.NumWorkers = DefaultExportWorkers
	}
	opts.NumWorkers = min(opts.NumWorkers, MaxExportWorkers)
	if opts.RateLimit <= 0 {
		opts.RateLimit = DefaultExportRate
	}

	if len(ids) == 0 {
		e.sendProgress(prog, fetchingPlaylistsUpdate())
		playlists, err := e.service.GetPlaylists(ctx)
		if err != nil {
			return nil, fmt.Errorf("failed to list playlists: %w", err)
		}
		for _, p := range playlists {
			ids = append(ids, p.ID)
		}
	}

	if err := os.MkdirAll(opts.OutputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	total := len(ids)
	result := &models.BulkExportResult{
		TotalPlaylists:  total,
		OutputDirectory: opts.OutputDir,
		Results:         make([]models.PlaylistExportResult, 0, total),
	}

	limiter := rate.NewLimiter(rate.Limit(opts.RateLimit), 1)
	jobs := make(chan exportJob, total)
	results := make(chan models.PlaylistExportResult, total)

	var wg sync.WaitGroup
	for range opts.NumWorkers {
		wg.Add(1)
		go e.exportWorker(ctx, &wg, jobs, results, opts)
	}

	go func() {
		defer close(jobs)
		for i, playlistID := range ids {
			if err := limiter.Wait(ctx); err != nil {
				return
			}

			export, err := e.service.ExportPlaylist(ctx, playlistID)
			if err != nil {
				results <- failedResult(playlistID, fmt.Sprintf("Unknown (%s)", playlistID), 0,
					fmt.Errorf("failed to fetch playlist: %w", err))
				continue
			}

			e.sendProgress(prog, exportingPlaylistUpdate(i+1, total, export.Playlist.Name))
			jobs <- exportJob{export: export}
		}
	}()

	go func() {
		wg.Wait()
		close(results)
	}()

	// results holds one entry per id so neither goroutine above can block on it.
	completed := 0
	for res := range results {
		completed++
		result.Results = append(result.Results, res)

		if res.Success {
			result.SuccessfulExports++
			e.sendProgress(prog, exportCompletedUpdate(completed, total, res.PlaylistName, len(res.Files)))
		} else {
			result.FailedExports++
			e.sendProgress(prog, exportFailedUpdate(completed, total, res.PlaylistName, res.Error))
		}
	}

	if err := ctx.Err(); err != nil {
		return result, err
	}

	manifestPath := filepath.Join(opts.OutputDir, ManifestFilename)
	if err := formatter.WriteBulkExportManifest(result, opts.Format, manifestPath); err != nil {
		return result, fmt.Errorf("export completed but failed to write manifest: %w", err)
	}
	result.ManifestPath = manifestPath
	return result, nil
}

func (e *PlaylistEngine) exportWorker(
	ctx context.Context,
	wg *sync.WaitGroup,
	jobs <-chan exportJob,
	results chan<- models.PlaylistExportResult,
	opts BulkExportOpts,
) {
	defer wg.Done()

	for job := range jobs {
		if ctx.Err() != nil {
			continue
		}
		results <- e.exportSinglePlaylist(ctx, job.export, opts)
	}
}

func (e *PlaylistEngine) exportSinglePlaylist(
	ctx context.Context,
	export *models.PlaylistExport,
	opts BulkExportOpts,
) models.PlaylistExportResult {
	p := export.Playlist
	warn := func(msg string, keyvals ...any) { e.logger.Warn(msg, keyvals...) }
	files, err := formatter.Write(ctx, export, opts.Format, formatter.WriteOptions{
		Dir:        opts.OutputDir,
		CoverImage: opts.CoverImage,
		Warn:       warn,
	})
	if err != nil {
		return failedResult(p.ID, p.Name, len(export.Tracks), fmt.Errorf("%s export failed: %w", opts.Format, err))
	}

	e.cacheTracks(export.Tracks)
	return models.PlaylistExportResult{
		PlaylistID:   p.ID,
		PlaylistName: p.Name,
		TrackCount:   len(export.Tracks),
		Success:      true,
		Files:        files,
	}
}

func failedResult(id, name string, trackCount int, err error) models.PlaylistExportResult {
	return models.PlaylistExportResult{
		PlaylistID:   id,
		PlaylistName: name,
		TrackCount:   trackCount,
		Error:        err,
		ErrorMessage: err.Error(),
	}
}
