package services

import (
	"context"

	"github.com/desertthunder/crate/internal/models"
)

// Service is the read surface the export engine needs from a music provider.
type Service interface {
	// GetPlaylists retrieves all playlists for the authenticated user.
	GetPlaylists(ctx context.Context) ([]models.Playlist, error)

	// GetPlaylist retrieves a specific playlist by ID.
	GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error)

	// ExportPlaylist retrieves a playlist with all of its tracks.
	ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error)

	// Name returns the name of the service (e.g. "spotify").
	Name() string
}

// clampLimit bounds a page size to the 1..50 range accepted by the API.
func clampLimit(limit int) int {
	return max(1, min(50, limit))
}
