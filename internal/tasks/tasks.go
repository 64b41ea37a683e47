package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// TrackCacher persists tracks seen during exports. Implemented by
// repositories.TrackCacheAdapter.
type TrackCacher interface {
	CacheTrack(service, serviceID string, track models.Track) error
}

// ComparisonResult contains track comparison details between two playlists.
type ComparisonResult struct {
	SourcePlaylist *models.PlaylistExport `json:"source"`
	DestPlaylist   *models.PlaylistExport `json:"dest"`
	MatchedCount   int                    `json:"matched_count"`
	MissingInDest  []models.Track         `json:"missing_in_dest"`
	ExtraInDest    []models.Track         `json:"extra_in_dest"`
}

// PlaylistEngine runs multi-step playlist operations against a [services.Service].
type PlaylistEngine struct {
	service services.Service
	cache   TrackCacher
	logger  *log.Logger
}

// NewPlaylistEngine creates a PlaylistEngine. cache may be nil to disable track caching.
func NewPlaylistEngine(service services.Service, cache TrackCacher, logger *log.Logger) *PlaylistEngine {
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &PlaylistEngine{
		service: service,
		cache:   cache,
		logger:  shared.WithLogger(logger, "component", "tasks"),
	}
}

// sendProgress sends a progress update through the channel without blocking.
func (e *PlaylistEngine) sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// cacheTracks stores every track with an ID. Failures are logged and skipped.
func (e *PlaylistEngine) cacheTracks(tracks []models.Track) int {
	if e.cache == nil {
		return 0
	}

	cached := 0
	for _, track := range tracks {
		if track.ID == "" {
			continue
		}
		if err := e.cache.CacheTrack(e.service.Name(), track.ID, track); err != nil {
			e.logger.Warn("failed to cache track", "track", track.ID, "err", err)
			continue
		}
		cached++
	}
	return cached
}

// CachePlaylist fetches a playlist and stores its tracks in the local cache.
func (e *PlaylistEngine) CachePlaylist(ctx context.Context, playlistID string, progress chan<- ProgressUpdate) (int, error) {
	if e.service == nil {
		return 0, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}
	if e.cache == nil {
		return 0, fmt.Errorf("%w: track cache not configured", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchingPlaylistUpdate(1, 2, playlistID))
	export, err := e.service.ExportPlaylist(ctx, playlistID)
	if err != nil {
		return 0, err
	}

	e.sendProgress(progress, cachingTracksUpdate(2, 2, len(export.Tracks)))
	return e.cacheTracks(export.Tracks), nil
}

// Diff compares two playlists, matching tracks by ISRC and then by normalized
// title and artist.
func (e *PlaylistEngine) Diff(ctx context.Context, sourceID, destID string, progress chan<- ProgressUpdate) (*ComparisonResult, error) {
	if e.service == nil {
		return nil, fmt.Errorf("%w: service not initialized", shared.ErrServiceUnavailable)
	}

	e.sendProgress(progress, fetchingPlaylistUpdate(1, 3, sourceID))
	source, err := e.service.ExportPlaylist(ctx, sourceID)
	if err != nil {
		return nil, fmt.Errorf("failed to export source playlist: %w", err)
	}

	e.sendProgress(progress, fetchingPlaylistUpdate(2, 3, destID))
	dest, err := e.service.ExportPlaylist(ctx, destID)
	if err != nil {
		return nil, fmt.Errorf("failed to export destination playlist: %w", err)
	}

	e.sendProgress(progress, compareUpdate(3, 3))
	result := &ComparisonResult{SourcePlaylist: source, DestPlaylist: dest}

	destIndex := newTrackIndex(dest.Tracks)
	for _, track := range source.Tracks {
		if destIndex.contains(track) {
			result.MatchedCount++
		} else {
			result.MissingInDest = append(result.MissingInDest, track)
		}
	}

	sourceIndex := newTrackIndex(source.Tracks)
	for _, track := range dest.Tracks {
		if !sourceIndex.contains(track) {
			result.ExtraInDest = append(result.ExtraInDest, track)
		}
	}
	return result, nil
}

type trackIndex struct {
	isrc map[string]struct{}
	keys map[string]struct{}
}

func newTrackIndex(tracks []models.Track) trackIndex {
	idx := trackIndex{isrc: map[string]struct{}{}, keys: map[string]struct{}{}}
	for _, t := range tracks {
		if t.ISRC != "" {
			idx.isrc[t.ISRC] = struct{}{}
		}
		idx.keys[shared.NormalizeTrackKey(t.Title, t.Artist)] = struct{}{}
	}
	return idx
}

func (idx trackIndex) contains(t models.Track) bool {
	if t.ISRC != "" {
		if _, ok := idx.isrc[t.ISRC]; ok {
			return true
		}
	}
	_, ok := idx.keys[shared.NormalizeTrackKey(t.Title, t.Artist)]
	return ok
}
