package services

import (
	"context"
	"fmt"
	"net/http"

	"github.com/desertthunder/crate/internal/shared"
)

// Playlists retrieves every playlist owned or followed by the current user.
func (s *SpotifyService) Playlists(ctx context.Context) ([]SpotifyPlaylist, error) {
	s.logger.Debug("fetching all user playlists")
	return FetchAll[SpotifyPlaylist](ctx, s.api, "/me/playlists?limit=50&offset=0")
}

// PlaylistItems retrieves every item of a playlist, including unresolvable
// and local entries.
func (s *SpotifyService) PlaylistItems(ctx context.Context, playlistID string) ([]SpotifyPlaylistTrack, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	s.logger.Debug("fetching all playlist items", "playlist", playlistID)
	endpoint := BuildURL("/playlists/"+pathID(playlistID)+"/tracks", map[string]any{
		"market": s.market,
		"limit":  100,
		"offset": 0,
	})
	return FetchAll[SpotifyPlaylistTrack](ctx, s.api, endpoint)
}

// PlaylistTracks retrieves the tracks of a playlist, skipping local files and
// items without a track object.
func (s *SpotifyService) PlaylistTracks(ctx context.Context, playlistID string) ([]SpotifyTrack, error) {
	items, err := s.PlaylistItems(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	tracks := make([]SpotifyTrack, 0, len(items))
	for _, item := range items {
		if item.Track == nil || item.IsLocal || item.Track.IsLocal {
			continue
		}
		tracks = append(tracks, *item.Track)
	}
	return tracks, nil
}

// FollowedArtists retrieves every artist the user follows. This endpoint is
// cursor paginated and nests its page under "artists".
func (s *SpotifyService) FollowedArtists(ctx context.Context) ([]SpotifyArtist, error) {
	s.logger.Debug("fetching all followed artists")
	return FetchAllPages(ctx, s.api, "/me/following?type=artist&limit=50",
		func(r *followingResponse) []SpotifyArtist { return r.Artists.Items },
		func(r *followingResponse) string { return r.Artists.NextURL() },
	)
}

// SavedAlbums retrieves every album in the user's library.
func (s *SpotifyService) SavedAlbums(ctx context.Context) ([]SpotifySavedAlbum, error) {
	s.logger.Debug("fetching all saved albums")
	return FetchAll[SpotifySavedAlbum](ctx, s.api, "/me/albums?limit=50&offset=0")
}

// ArtistAlbums retrieves every album of an artist. includeGroups defaults to
// "album,single".
func (s *SpotifyService) ArtistAlbums(ctx context.Context, artistID, includeGroups, market string) ([]SpotifyAlbum, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	if includeGroups == "" {
		includeGroups = "album,single"
	}
	if market == "" {
		market = s.market
	}

	endpoint := BuildURL("/artists/"+pathID(artistID)+"/albums", map[string]any{
		"include_groups": includeGroups,
		"market":         market,
		"limit":          50,
		"offset":         0,
	})
	return FetchAll[SpotifyAlbum](ctx, s.api, endpoint)
}

// AlbumTracks retrieves every track of an album.
func (s *SpotifyService) AlbumTracks(ctx context.Context, albumID string) ([]SpotifyTrack, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}

	endpoint := BuildURL("/albums/"+pathID(albumID)+"/tracks", map[string]any{
		"market": s.market,
		"limit":  50,
		"offset": 0,
	})
	return FetchAll[SpotifyTrack](ctx, s.api, endpoint)
}

func (s *SpotifyService) mutate(ctx context.Context, method, endpoint string, body any, what, id string) error {
	if id == "" {
		return fmt.Errorf("%w: %s id", shared.ErrMissingArgument, what)
	}
	if _, err := s.api.Execute(ctx, method, endpoint, body); err != nil {
		return err
	}
	s.logger.Info("library updated", "action", method, what, id)
	return nil
}

// FollowArtist follows an artist.
func (s *SpotifyService) FollowArtist(ctx context.Context, artistID string) error {
	endpoint := BuildURL("/me/following", map[string]any{"type": "artist", "ids": artistID})
	return s.mutate(ctx, http.MethodPut, endpoint, nil, "artist", artistID)
}

// UnfollowArtist unfollows an artist.
func (s *SpotifyService) UnfollowArtist(ctx context.Context, artistID string) error {
	endpoint := BuildURL("/me/following", map[string]any{"type": "artist", "ids": artistID})
	return s.mutate(ctx, http.MethodDelete, endpoint, nil, "artist", artistID)
}

// SaveAlbum adds an album to the user's library.
func (s *SpotifyService) SaveAlbum(ctx context.Context, albumID string) error {
	endpoint := BuildURL("/me/albums", map[string]any{"ids": albumID})
	return s.mutate(ctx, http.MethodPut, endpoint, nil, "album", albumID)
}

// UnsaveAlbum removes an album from the user's library.
func (s *SpotifyService) UnsaveAlbum(ctx context.Context, albumID string) error {
	endpoint := BuildURL("/me/albums", map[string]any{"ids": albumID})
	return s.mutate(ctx, http.MethodDelete, endpoint, nil, "album", albumID)
}

// FollowPlaylist follows a playlist, optionally showing it on the user's public profile.
func (s *SpotifyService) FollowPlaylist(ctx context.Context, playlistID string, public bool) error {
	endpoint := "/playlists/" + pathID(playlistID) + "/followers"
	return s.mutate(ctx, http.MethodPut, endpoint, map[string]bool{"public": public}, "playlist", playlistID)
}

// UnfollowPlaylist unfollows a playlist.
func (s *SpotifyService) UnfollowPlaylist(ctx context.Context, playlistID string) error {
	endpoint := "/playlists/" + pathID(playlistID) + "/followers"
	return s.mutate(ctx, http.MethodDelete, endpoint, nil, "playlist", playlistID)
}
