// Spotify API implementation of [Service]
//
// Spotify API response types based on https://developer.spotify.com/documentation/web-api/reference/
package services

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// DefaultMarket lets Spotify pick the market from the user's account.
const DefaultMarket = "from_token"

type followers struct {
	Total int `json:"total"`
}

type externalURLs struct {
	Spotify string `json:"spotify"`
}

// SpotifyUser represents a Spotify user profile.
type SpotifyUser struct {
	ID           string         `json:"id"`
	DisplayName  string         `json:"display_name"`
	Email        string         `json:"email"`
	Country      string         `json:"country"`
	Product      string         `json:"product"` // premium, free, etc.
	Followers    followers      `json:"followers"`
	Images       []SpotifyImage `json:"images"`
	ExternalURLs externalURLs   `json:"external_urls"`
}

// SpotifyImage represents an image resource.
type SpotifyImage struct {
	URL    string `json:"url"`
	Height int    `json:"height"`
	Width  int    `json:"width"`
}

type externalIDs struct {
	ISRC string `json:"isrc"`
}

// SpotifyTrack represents a Spotify track.
type SpotifyTrack struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	Artists      []SpotifyArtist `json:"artists"`
	Album        SpotifyAlbum    `json:"album"`
	DurationMS   int             `json:"duration_ms"`
	Explicit     bool            `json:"explicit"`
	ExternalIDs  externalIDs     `json:"external_ids"`
	ExternalURLs externalURLs    `json:"external_urls"`
	Popularity   int             `json:"popularity"`
	TrackNumber  int             `json:"track_number"`
	IsLocal      bool            `json:"is_local"`
	URI          string          `json:"uri"`
}

// SpotifyArtist represents a Spotify artist.
type SpotifyArtist struct {
	ID           string         `json:"id"`
	Name         string         `json:"name"`
	Genres       []string       `json:"genres"`
	Images       []SpotifyImage `json:"images"`
	Followers    followers      `json:"followers"`
	Popularity   int            `json:"popularity"`
	ExternalURLs externalURLs   `json:"external_urls"`
	URI          string         `json:"uri"`
}

// SpotifyAlbum represents a Spotify album.
type SpotifyAlbum struct {
	ID           string          `json:"id"`
	Name         string          `json:"name"`
	AlbumType    string          `json:"album_type"`
	AlbumGroup   string          `json:"album_group,omitempty"`
	Artists      []SpotifyArtist `json:"artists"`
	ReleaseDate  string          `json:"release_date"`
	TotalTracks  int             `json:"total_tracks"`
	Images       []SpotifyImage  `json:"images"`
	Label        string          `json:"label,omitempty"`
	ExternalURLs externalURLs    `json:"external_urls"`
	URI          string          `json:"uri"`
}

type Owner struct {
	ID          string `json:"id"`
	DisplayName string `json:"display_name"`
}

// playlistTracksRef is the track summary embedded in playlist objects.
type playlistTracksRef struct {
	Href  string `json:"href"`
	Total int    `json:"total"`
}

// SpotifyPlaylist represents a playlist object. Its tracks are fetched separately
// through [SpotifyService.PlaylistItems].
type SpotifyPlaylist struct {
	ID            string            `json:"id"`
	Name          string            `json:"name"`
	Description   string            `json:"description"`
	Owner         Owner             `json:"owner"`
	Public        bool              `json:"public"`
	Collaborative bool              `json:"collaborative"`
	SnapshotID    string            `json:"snapshot_id"`
	Tracks        playlistTracksRef `json:"tracks"`
	Images        []SpotifyImage    `json:"images"`
	ExternalURLs  externalURLs      `json:"external_urls"`
	URI           string            `json:"uri"`
}

// SpotifyPlaylistTrack represents a track within a playlist context. Track is
// nil for items Spotify can no longer resolve.
type SpotifyPlaylistTrack struct {
	AddedAt string        `json:"added_at"`
	IsLocal bool          `json:"is_local"`
	Track   *SpotifyTrack `json:"track"`
}

// SpotifySavedAlbum represents an album saved in the user's library.
type SpotifySavedAlbum struct {
	AddedAt string       `json:"added_at"`
	Album   SpotifyAlbum `json:"album"`
}

// SpotifyPlayHistory is one entry of the recently played list.
type SpotifyPlayHistory struct {
	Track    SpotifyTrack `json:"track"`
	PlayedAt string       `json:"played_at"`
}

// SpotifySearchResults holds one page per requested search type.
type SpotifySearchResults struct {
	Tracks    *Page[SpotifyTrack]    `json:"tracks,omitempty"`
	Artists   *Page[SpotifyArtist]   `json:"artists,omitempty"`
	Albums    *Page[SpotifyAlbum]    `json:"albums,omitempty"`
	Playlists *Page[SpotifyPlaylist] `json:"playlists,omitempty"`
}

// SpotifySnapshot is returned by playlist mutations.
type SpotifySnapshot struct {
	SnapshotID string `json:"snapshot_id"`
}

type followingResponse struct {
	Artists Page[SpotifyArtist] `json:"artists"`
}

type newReleasesResponse struct {
	Albums Page[SpotifyAlbum] `json:"albums"`
}

type topTracksResponse struct {
	Tracks []SpotifyTrack `json:"tracks"`
}

type relatedArtistsResponse struct {
	Artists []SpotifyArtist `json:"artists"`
}

// SpotifyFeaturedPlaylists is the editorial playlist listing with its headline.
type SpotifyFeaturedPlaylists struct {
	Message   string                `json:"message"`
	Playlists Page[SpotifyPlaylist] `json:"playlists"`
}

// RecommendationSeed describes how one seed contributed to a recommendation set.
type RecommendationSeed struct {
	ID                 string `json:"id"`
	Type               string `json:"type"`
	Href               string `json:"href,omitempty"`
	InitialPoolSize    int    `json:"initialPoolSize"`
	AfterFilteringSize int    `json:"afterFilteringSize"`
	AfterRelinkingSize int    `json:"afterRelinkingSize"`
}

// SpotifyRecommendations is the response of the recommendations endpoint.
type SpotifyRecommendations struct {
	Seeds  []RecommendationSeed `json:"seeds"`
	Tracks []SpotifyTrack       `json:"tracks"`
}

// SpotifyService groups typed Spotify Web API calls over an [Executor].
type SpotifyService struct {
	api    *Executor
	market string
	logger *log.Logger
}

// NewSpotifyService creates a SpotifyService. An empty market uses [DefaultMarket].
func NewSpotifyService(api *Executor, market string, logger *log.Logger) *SpotifyService {
	if market == "" {
		market = DefaultMarket
	}
	if logger == nil {
		logger = log.New(io.Discard)
	}
	return &SpotifyService{
		api:    api,
		market: market,
		logger: shared.WithLogger(logger, "component", "spotify"),
	}
}

// Executor returns the underlying request executor.
func (s *SpotifyService) Executor() *Executor { return s.api }

func (s *SpotifyService) get(ctx context.Context, endpoint string, out any) error {
	raw, err := s.api.Execute(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return err
	}
	if raw == nil {
		return nil
	}
	return decodeInto(raw, out)
}

func pathID(id string) string { return url.PathEscape(id) }

// Service interface implementation

func (s *SpotifyService) Name() string { return "spotify" }

// GetPlaylists retrieves all playlists for the authenticated user.
func (s *SpotifyService) GetPlaylists(ctx context.Context) ([]models.Playlist, error) {
	playlists, err := s.Playlists(ctx)
	if err != nil {
		return nil, err
	}

	result := make([]models.Playlist, 0, len(playlists))
	for _, sp := range playlists {
		result = append(result, toPlaylist(sp))
	}
	return result, nil
}

// GetPlaylist retrieves a specific playlist by ID.
func (s *SpotifyService) GetPlaylist(ctx context.Context, playlistID string) (*models.Playlist, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}
	p := toPlaylist(*sp)
	return &p, nil
}

// ExportPlaylist retrieves a playlist and walks all of its track pages.
func (s *SpotifyService) ExportPlaylist(ctx context.Context, playlistID string) (*models.PlaylistExport, error) {
	sp, err := s.Playlist(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	items, err := s.PlaylistTracks(ctx, playlistID)
	if err != nil {
		return nil, err
	}

	tracks := make([]models.Track, 0, len(items))
	for _, item := range items {
		tracks = append(tracks, toTrack(item))
	}

	return &models.PlaylistExport{
		Playlist: toPlaylist(*sp),
		Tracks:   tracks,
	}, nil
}

// Playlist retrieves a single playlist object. A 404 maps to [shared.ErrPlaylistNotFound].
func (s *SpotifyService) Playlist(ctx context.Context, playlistID string) (*SpotifyPlaylist, error) {
	if playlistID == "" {
		return nil, fmt.Errorf("%w: playlist id", shared.ErrMissingArgument)
	}

	endpoint := BuildURL("/playlists/"+pathID(playlistID), map[string]any{"market": s.market})
	var playlist SpotifyPlaylist
	if err := s.get(ctx, endpoint, &playlist); err != nil {
		var apiErr *APIError
		if errors.As(err, &apiErr) && apiErr.Status == http.StatusNotFound {
			return nil, fmt.Errorf("%w: %s", shared.ErrPlaylistNotFound, playlistID)
		}
		return nil, err
	}
	return &playlist, nil
}

func toPlaylist(sp SpotifyPlaylist) models.Playlist {
	p := models.Playlist{
		ID:          sp.ID,
		Name:        sp.Name,
		Description: sp.Description,
		Owner:       sp.Owner.DisplayName,
		TrackCount:  sp.Tracks.Total,
		Public:      sp.Public,
		URL:         sp.ExternalURLs.Spotify,
	}
	if p.Owner == "" {
		p.Owner = sp.Owner.ID
	}
	if len(sp.Images) > 0 {
		p.ImageURL = sp.Images[0].URL
	}
	return p
}

func toTrack(st SpotifyTrack) models.Track {
	track := models.Track{
		ID:       st.ID,
		Title:    st.Name,
		Album:    st.Album.Name,
		Duration: st.DurationMS / 1000,
		ISRC:     st.ExternalIDs.ISRC,
		URI:      st.URI,
	}
	if len(st.Artists) > 0 {
		track.Artist = st.Artists[0].Name
	}
	return track
}
