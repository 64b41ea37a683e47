package services

import (
	"context"
	"fmt"
	"net/http"
	"strings"

	"github.com/desertthunder/crate/internal/shared"
)

// SearchTypes are the item types accepted by [SpotifyService.Search].
var SearchTypes = []string{"track", "artist", "album", "playlist"}

// NewReleases retrieves recently released albums.
func (s *SpotifyService) NewReleases(ctx context.Context, limit int) ([]SpotifyAlbum, error) {
	endpoint := BuildURL("/browse/new-releases", map[string]any{"limit": clampLimit(limit)})
	resp, err := Decode[newReleasesResponse](ctx, s.api, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return resp.Albums.Items, nil
}

// Search queries the catalog for the given item types.
func (s *SpotifyService) Search(ctx context.Context, query string, types []string, limit int) (*SpotifySearchResults, error) {
	if strings.TrimSpace(query) == "" {
		return nil, fmt.Errorf("%w: search query", shared.ErrMissingArgument)
	}
	if len(types) == 0 {
		types = []string{"track"}
	}
	for _, t := range types {
		if !validSearchType(t) {
			return nil, fmt.Errorf("%w: search type %q", shared.ErrInvalidArgument, t)
		}
	}

	endpoint := BuildURL("/search", map[string]any{
		"q":     query,
		"type":  types,
		"limit": clampLimit(limit),
	})
	s.logger.Debug("searching", "query", query, "types", types)
	return Decode[SpotifySearchResults](ctx, s.api, http.MethodGet, endpoint, nil)
}

func validSearchType(t string) bool {
	for _, st := range SearchTypes {
		if st == t {
			return true
		}
	}
	return false
}

// Artist retrieves a single artist.
func (s *SpotifyService) Artist(ctx context.Context, artistID string) (*SpotifyArtist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	return Decode[SpotifyArtist](ctx, s.api, http.MethodGet, "/artists/"+pathID(artistID), nil)
}

// Album retrieves a single album.
func (s *SpotifyService) Album(ctx context.Context, albumID string) (*SpotifyAlbum, error) {
	if albumID == "" {
		return nil, fmt.Errorf("%w: album id", shared.ErrMissingArgument)
	}
	endpoint := BuildURL("/albums/"+pathID(albumID), map[string]any{"market": s.market})
	return Decode[SpotifyAlbum](ctx, s.api, http.MethodGet, endpoint, nil)
}

// ArtistTopTracks retrieves an artist's most popular tracks in market.
func (s *SpotifyService) ArtistTopTracks(ctx context.Context, artistID, market string) ([]SpotifyTrack, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	if market == "" {
		market = s.market
	}

	endpoint := BuildURL("/artists/"+pathID(artistID)+"/top-tracks", map[string]any{"market": market})
	resp, err := Decode[topTracksResponse](ctx, s.api, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}
	return resp.Tracks, nil
}

// RelatedArtists retrieves artists similar to artistID.
func (s *SpotifyService) RelatedArtists(ctx context.Context, artistID string) ([]SpotifyArtist, error) {
	if artistID == "" {
		return nil, fmt.Errorf("%w: artist id", shared.ErrMissingArgument)
	}
	resp, err := Decode[relatedArtistsResponse](ctx, s.api, http.MethodGet, "/artists/"+pathID(artistID)+"/related-artists", nil)
	if err != nil {
		return nil, err
	}
	return resp.Artists, nil
}

// FeaturedPlaylists retrieves the first page of editorial playlists.
func (s *SpotifyService) FeaturedPlaylists(ctx context.Context, limit int) (*SpotifyFeaturedPlaylists, error) {
	endpoint := BuildURL("/browse/featured-playlists", map[string]any{"limit": clampLimit(limit)})
	return Decode[SpotifyFeaturedPlaylists](ctx, s.api, http.MethodGet, endpoint, nil)
}

const (
	maxSeedsPerKind        = 5
	defaultRecommendations = 20
	maxRecommendations     = 100
)

// RecommendationParams selects the seeds and tunable attributes for
// [SpotifyService.Recommendations]. Each seed list is truncated to five entries.
type RecommendationParams struct {
	SeedArtists []string
	SeedTracks  []string
	SeedGenres  []string
	Limit       int
	Market      string
	// Tunables holds attribute filters such as min_energy or target_tempo.
	Tunables map[string]string
}

var reservedRecommendationKeys = map[string]bool{
	"seed_artists": true, "seed_tracks": true, "seed_genres": true, "limit": true, "market": true,
}

func firstSeeds(seeds []string) []string {
	return seeds[:min(len(seeds), maxSeedsPerKind)]
}

// Recommendations retrieves tracks generated from the given seeds. At least
// one seed is required. The limit is bounded to 1..100 and defaults to 20.
func (s *SpotifyService) Recommendations(ctx context.Context, params RecommendationParams) (*SpotifyRecommendations, error) {
	if len(params.SeedArtists)+len(params.SeedTracks)+len(params.SeedGenres) == 0 {
		return nil, fmt.Errorf("%w: at least one seed artist, track or genre", shared.ErrMissingArgument)
	}

	limit := defaultRecommendations
	if params.Limit != 0 {
		limit = max(1, min(maxRecommendations, params.Limit))
	}
	market := params.Market
	if market == "" {
		market = s.market
	}

	query := map[string]any{
		"seed_artists": firstSeeds(params.SeedArtists),
		"seed_tracks":  firstSeeds(params.SeedTracks),
		"seed_genres":  firstSeeds(params.SeedGenres),
		"limit":        limit,
		"market":       market,
	}
	for k, v := range params.Tunables {
		if !reservedRecommendationKeys[k] {
			query[k] = v
		}
	}

	return Decode[SpotifyRecommendations](ctx, s.api, http.MethodGet, BuildURL("/recommendations", query), nil)
}
