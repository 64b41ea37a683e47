package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

// BrowseNewReleases lists new album releases.
func (r *Runner) BrowseNewReleases(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	albums, err := r.spotify.NewReleases(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, albums, func() error {
		r.writePlainHeader("New releases")
		r.writeAlbums(albums)
		return nil
	})
}

// BrowseSearch searches the catalog for one or more item types.
func (r *Runner) BrowseSearch(ctx context.Context, cmd *cli.Command) error {
	query, err := requireArg(cmd, "query")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	results, err := r.spotify.Search(ctx, query, splitList(cmd.StringSlice("type")), cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, results, func() error {
		if results.Tracks != nil {
			r.writePlainln("%s", r.palette.Title(fmt.Sprintf("Tracks (%d)", results.Tracks.Total)))
			r.writeTracks(results.Tracks.Items)
		}
		if results.Artists != nil {
			r.writePlainln("%s", r.palette.Title(fmt.Sprintf("Artists (%d)", results.Artists.Total)))
			r.writeArtists(results.Artists.Items)
		}
		if results.Albums != nil {
			r.writePlainln("%s", r.palette.Title(fmt.Sprintf("Albums (%d)", results.Albums.Total)))
			r.writeAlbums(results.Albums.Items)
		}
		if results.Playlists != nil {
			r.writePlainln("%s", r.palette.Title(fmt.Sprintf("Playlists (%d)", results.Playlists.Total)))
			for i, p := range results.Playlists.Items {
				r.writePlain("%d. %s by %s %s\n", i+1, p.Name, p.Owner.DisplayName, r.palette.Muted(p.ID))
			}
		}
		return nil
	})
}

// BrowseTop shows the user's top tracks or artists.
func (r *Runner) BrowseTop(ctx context.Context, cmd *cli.Command) error {
	timeRange, err := services.ParseTimeRange(cmd.String("range"))
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	limit := cmd.Int("limit")
	switch kind := strings.ToLower(cmd.String("type")); kind {
	case "tracks", "track":
		tracks, err := r.spotify.TopTracks(ctx, timeRange, limit)
		if err != nil {
			return err
		}
		return r.emit(ctx, cmd, tracks, func() error {
			r.writePlainHeader(fmt.Sprintf("Top tracks (%s)", timeRange))
			r.writeTracks(tracks)
			return nil
		})
	case "artists", "artist":
		artists, err := r.spotify.TopArtists(ctx, timeRange, limit)
		if err != nil {
			return err
		}
		return r.emit(ctx, cmd, artists, func() error {
			r.writePlainHeader(fmt.Sprintf("Top artists (%s)", timeRange))
			r.writeArtists(artists)
			return nil
		})
	default:
		return fmt.Errorf("%w: --type %q (want tracks or artists)", shared.ErrInvalidFlag, kind)
	}
}

// BrowseRecent shows recently played tracks.
func (r *Runner) BrowseRecent(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	history, err := r.spotify.RecentlyPlayed(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, history, func() error {
		r.writePlainHeader("Recently played")
		for i, h := range history {
			r.writePlain("%d. %s - %s %s\n", i+1, artistNames(h.Track.Artists), h.Track.Name, r.palette.Muted(h.PlayedAt))
		}
		return nil
	})
}

type artistOverview struct {
	Artist    *services.SpotifyArtist `json:"artist"`
	TopTracks []services.SpotifyTrack `json:"top_tracks"`
	Albums    []services.SpotifyAlbum `json:"albums"`
}

// BrowseArtist shows an artist with their top tracks and discography.
func (r *Runner) BrowseArtist(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	var overview artistOverview
	if overview.Artist, err = r.spotify.Artist(ctx, id); err != nil {
		return err
	}
	if overview.TopTracks, err = r.spotify.ArtistTopTracks(ctx, id, ""); err != nil {
		return err
	}
	if overview.Albums, err = r.spotify.ArtistAlbums(ctx, id, cmd.String("include-groups"), ""); err != nil {
		return err
	}

	return r.emit(ctx, cmd, overview, func() error {
		a := overview.Artist
		r.writePlainHeader(a.Name)
		if len(a.Genres) > 0 {
			r.writePlain("Genres: %s\n", strings.Join(a.Genres, ", "))
		}
		r.writePlain("Followers: %d\n", a.Followers.Total)
		r.writePlainln("%s", r.palette.Title("Top tracks"))
		r.writeTracks(overview.TopTracks)
		r.writePlainln("%s", r.palette.Title("Albums"))
		r.writeAlbums(overview.Albums)
		return nil
	})
}

// BrowseRelated lists artists similar to an artist.
func (r *Runner) BrowseRelated(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	artists, err := r.spotify.RelatedArtists(ctx, id)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, artists, func() error {
		r.writePlainHeader("Related artists")
		r.writeArtists(artists)
		return nil
	})
}

// BrowseFeatured lists editorial playlists.
func (r *Runner) BrowseFeatured(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	featured, err := r.spotify.FeaturedPlaylists(ctx, cmd.Int("limit"))
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, featured, func() error {
		title := featured.Message
		if title == "" {
			title = "Featured playlists"
		}
		r.writePlainHeader(title)
		for i, p := range featured.Playlists.Items {
			r.writePlain("%d. %s %s\n", i+1, p.Name, r.palette.Muted(p.ID))
		}
		return nil
	})
}

// BrowseRecommend recommends tracks from seed artists, tracks and genres.
func (r *Runner) BrowseRecommend(ctx context.Context, cmd *cli.Command) error {
	params := services.RecommendationParams{
		SeedArtists: splitList(cmd.StringSlice("artist")),
		SeedTracks:  splitList(cmd.StringSlice("track")),
		SeedGenres:  splitList(cmd.StringSlice("genre")),
		Limit:       cmd.Int("limit"),
	}
	for _, kv := range cmd.StringSlice("tune") {
		key, value, ok := strings.Cut(kv, "=")
		if !ok || strings.TrimSpace(key) == "" {
			return fmt.Errorf("%w: --tune %q (want key=value)", shared.ErrInvalidFlag, kv)
		}
		if params.Tunables == nil {
			params.Tunables = map[string]string{}
		}
		params.Tunables[strings.TrimSpace(key)] = strings.TrimSpace(value)
	}
	if len(params.SeedArtists)+len(params.SeedTracks)+len(params.SeedGenres) == 0 {
		return fmt.Errorf("%w: pass at least one --artist, --track or --genre", shared.ErrMissingArgument)
	}
	if err := r.connect(); err != nil {
		return err
	}

	recs, err := r.spotify.Recommendations(ctx, params)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, recs, func() error {
		r.writePlainHeader("Recommendations")
		r.writeTracks(recs.Tracks)
		return nil
	})
}

// splitList flattens repeated and comma separated flag values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for part := range strings.SplitSeq(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}

type albumOverview struct {
	Album  *services.SpotifyAlbum  `json:"album"`
	Tracks []services.SpotifyTrack `json:"tracks"`
}

// BrowseAlbum shows an album and every track on it.
func (r *Runner) BrowseAlbum(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	var overview albumOverview
	if overview.Album, err = r.spotify.Album(ctx, id); err != nil {
		return err
	}
	if overview.Tracks, err = r.spotify.AlbumTracks(ctx, id); err != nil {
		return err
	}

	return r.emit(ctx, cmd, overview, func() error {
		a := overview.Album
		r.writePlainHeader(fmt.Sprintf("%s - %s", artistNames(a.Artists), a.Name))
		r.writePlain("Released: %s\n", a.ReleaseDate)
		if a.Label != "" {
			r.writePlain("Label: %s\n", a.Label)
		}
		r.writePlain("\n")
		for _, t := range overview.Tracks {
			r.writePlain("%2d. %s [%s]\n", t.TrackNumber, t.Name, shared.FormatDuration(t.DurationMS/1000))
		}
		return nil
	})
}

func (r *Runner) writeTracks(tracks []services.SpotifyTrack) {
	for i, t := range tracks {
		r.writePlain("%d. %s - %s [%s] %s\n", i+1, artistNames(t.Artists), t.Name,
			shared.FormatDuration(t.DurationMS/1000), r.palette.Muted(t.URI))
	}
}

func (r *Runner) writeArtists(artists []services.SpotifyArtist) {
	for i, a := range artists {
		r.writePlain("%d. %s %s\n", i+1, a.Name, r.palette.Muted(a.ID))
	}
}

func (r *Runner) writeAlbums(albums []services.SpotifyAlbum) {
	for i, a := range albums {
		r.writePlain("%d. %s - %s (%s, %s) %s\n", i+1, artistNames(a.Artists), a.Name,
			a.AlbumType, a.ReleaseDate, r.palette.Muted(a.ID))
	}
}
