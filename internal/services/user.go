package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/crate/internal/shared"
)

// TimeRange selects the affinity window for top items.
type TimeRange string

const (
	ShortTerm  TimeRange = "short_term"  // about 4 weeks
	MediumTerm TimeRange = "medium_term" // about 6 months
	LongTerm   TimeRange = "long_term"   // all time
)

// ParseTimeRange validates a time range name; empty selects [MediumTerm].
func ParseTimeRange(s string) (TimeRange, error) {
	switch tr := TimeRange(s); tr {
	case "":
		return MediumTerm, nil
	case ShortTerm, MediumTerm, LongTerm:
		return tr, nil
	default:
		return "", fmt.Errorf("%w: time range %q (want short_term, medium_term or long_term)", shared.ErrInvalidArgument, s)
	}
}

// playlistAddBatch is the largest number of URIs accepted per add request.
const playlistAddBatch = 100

// Profile retrieves the current user's profile.
func (s *SpotifyService) Profile(ctx context.Context) (*SpotifyUser, error) {
	return Decode[SpotifyUser](ctx, s.api, http.MethodGet, "/me", nil)
}

// TopTracks retrieves the user's most played tracks over timeRange.
func (s *SpotifyService) TopTracks(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyTrack, error) {
	if timeRange == "" {
		timeRange = MediumTerm
	}
	endpoint := BuildURL("/me/top/tracks", map[string]any{"time_range": string(timeRange), "limit": clampLimit(limit)})
	page, err := Decode[Page[SpotifyTrack]](ctx, s.api, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// TopArtists retrieves the user's most played artists over timeRange.
func (s *SpotifyService) TopArtists(ctx context.Context, timeRange TimeRange, limit int) ([]SpotifyArtist, error) {
	if timeRange == "" {
		timeRange = MediumTerm
	}
	endpoint := BuildURL("/me/top/artists", map[string]any{"time_range": string(timeRange), "limit": clampLimit(limit)})
	page, err := Decode[Page[SpotifyArtist]](ctx, s.api, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// RecentlyPlayed retrieves the most recently played tracks.
func (s *SpotifyService) RecentlyPlayed(ctx context.Context, limit int) ([]SpotifyPlayHistory, error) {
	endpoint := BuildURL("/me/player/recently-played", map[string]any{"limit": clampLimit(limit)})
	page, err := Decode[Page[SpotifyPlayHistory]](ctx, s.api, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return page.Items, nil
}

// CreatePlaylist creates a playlist owned by the current user.
func (s *SpotifyService) CreatePlaylist(ctx context.Context, name, description string, public bool) (*SpotifyPlaylist, error) {
	if name == "" {
		return nil, fmt.Errorf("%w: playlist name", shared.ErrMissingArgument)
	}

	user, err := s.Profile(ctx)
	if err != nil {
		return nil, err
	}

	body := map[string]any{
		"name":          name,
		"public":        public,
		"collaborative": false,
		"description":   description,
	}
	playlist, err := Decode[SpotifyPlaylist](ctx, s.api, http.MethodPost, "/users/"+pathID(user.ID)+"/playlists", body)
	if err != nil {
		return nil, err
	}

	s.logger.Info("created playlist", "id", playlist.ID, "name", playlist.Name)
	return playlist, nil
}

// AddTracksToPlaylist appends track URIs to a playlist in batches of 100 and
// returns the snapshot id of the last batch.
func (s *SpotifyService) AddTracksToPlaylist(ctx context.Context, playlistID string, uris []string) (string, error) {
	if playlistID == "" {
		return "", fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	var snapshot string
	for start := 0; start < len(uris); start += playlistAddBatch {
		end := min(start+playlistAddBatch, len(uris))

		resp, err := Decode[SpotifySnapshot](ctx, s.api, http.MethodPost,
			"/playlists/"+pathID(playlistID)+"/tracks",
			map[string]any{"uris": uris[start:end]},
		)
		if err != nil {
			return "", err
		}
		snapshot = resp.SnapshotID
	}
	return snapshot, nil
}
