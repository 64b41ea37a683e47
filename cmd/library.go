package main

import (
	"context"
	"fmt"
	"strings"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/services"
	"github.com/desertthunder/crate/internal/shared"
)

func artistNames(artists []services.SpotifyArtist) string {
	names := make([]string, 0, len(artists))
	for _, a := range artists {
		names = append(names, a.Name)
	}
	return strings.Join(names, ", ")
}

// requireArg returns the named positional argument or an [shared.ErrMissingArgument] error.
func requireArg(cmd *cli.Command, name string) (string, error) {
	v := strings.TrimSpace(cmd.StringArg(name))
	if v == "" {
		return "", fmt.Errorf("%w: <%s>", shared.ErrMissingArgument, name)
	}
	return v, nil
}

// LibraryProfile shows the current user's profile.
func (r *Runner) LibraryProfile(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	user, err := r.spotify.Profile(ctx)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, user, func() error {
		r.writePlainHeader(user.DisplayName)
		r.writePlain("ID: %s\n", user.ID)
		if user.Email != "" {
			r.writePlain("Email: %s\n", user.Email)
		}
		r.writePlain("Country: %s\n", user.Country)
		r.writePlain("Plan: %s\n", user.Product)
		r.writePlain("Followers: %d\n", user.Followers.Total)
		return nil
	})
}

// LibraryPlaylists lists every playlist in the user's library.
func (r *Runner) LibraryPlaylists(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Debug("listing spotify playlists")
	playlists, err := r.spotify.GetPlaylists(ctx)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, playlists, func() error {
		r.writePlain("Found %d playlists:\n\n", len(playlists))
		for i, p := range playlists {
			r.writePlain("%d. %s\n", i+1, r.palette.Title(p.Name))
			if p.Description != "" {
				r.writePlain("   Description: %s\n", p.Description)
			}
			r.writePlain("   ID: %s\n", p.ID)
			r.writePlain("   Tracks: %d\n", p.TrackCount)
			r.writePlain("   Visibility: %s\n", shared.VisibilityString(p.Public))
			r.writePlain("\n")
		}
		return nil
	})
}

// LibraryTracks lists the playable tracks of a playlist.
func (r *Runner) LibraryTracks(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	export, err := r.spotify.ExportPlaylist(ctx, id)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, export, func() error {
		r.writePlain("Playlist: %s\n", r.palette.Title(export.Playlist.Name))
		if export.Playlist.Description != "" {
			r.writePlain("Description: %s\n", export.Playlist.Description)
		}
		r.writePlain("Tracks: %d\n\n", len(export.Tracks))

		for i, track := range export.Tracks {
			r.writePlain("%d. %s - %s [%s]\n", i+1, track.Artist, track.Title, shared.FormatDuration(track.Duration))
			if track.Album != "" {
				r.writePlain("   Album: %s\n", track.Album)
			}
			if track.ISRC != "" {
				r.writePlain("   ISRC: %s\n", track.ISRC)
			}
		}
		return nil
	})
}

// LibraryArtists lists followed artists.
func (r *Runner) LibraryArtists(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	artists, err := r.spotify.FollowedArtists(ctx)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, artists, func() error {
		r.writePlain("Following %d artists:\n\n", len(artists))
		for i, a := range artists {
			r.writePlain("%d. %s %s\n", i+1, a.Name, r.palette.Muted(a.ID))
			if len(a.Genres) > 0 {
				r.writePlain("   Genres: %s\n", strings.Join(a.Genres, ", "))
			}
		}
		return nil
	})
}

// LibraryAlbums lists saved albums.
func (r *Runner) LibraryAlbums(ctx context.Context, cmd *cli.Command) error {
	if err := r.connect(); err != nil {
		return err
	}

	saved, err := r.spotify.SavedAlbums(ctx)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, saved, func() error {
		r.writePlain("%d saved albums:\n\n", len(saved))
		for i, s := range saved {
			r.writePlain("%d. %s - %s (%s) %s\n", i+1, artistNames(s.Album.Artists), s.Album.Name,
				s.Album.ReleaseDate, r.palette.Muted(s.Album.ID))
		}
		return nil
	})
}

// LibraryFollow follows an artist or a playlist.
func (r *Runner) LibraryFollow(ctx context.Context, cmd *cli.Command) error {
	return r.followAction(ctx, cmd, true)
}

// LibraryUnfollow unfollows an artist or a playlist.
func (r *Runner) LibraryUnfollow(ctx context.Context, cmd *cli.Command) error {
	return r.followAction(ctx, cmd, false)
}

func (r *Runner) followAction(ctx context.Context, cmd *cli.Command, follow bool) error {
	kind, err := requireArg(cmd, "kind")
	if err != nil {
		return err
	}
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	switch strings.ToLower(kind) {
	case "artist":
		if follow {
			err = r.spotify.FollowArtist(ctx, id)
		} else {
			err = r.spotify.UnfollowArtist(ctx, id)
		}
	case "playlist":
		if follow {
			err = r.spotify.FollowPlaylist(ctx, id, cmd.Bool("public"))
		} else {
			err = r.spotify.UnfollowPlaylist(ctx, id)
		}
	default:
		return fmt.Errorf("%w: %q (want artist or playlist)", shared.ErrInvalidArgument, kind)
	}
	if err != nil {
		return err
	}

	verb := "Followed"
	if !follow {
		verb = "Unfollowed"
	}
	return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("%s %s %s", verb, strings.ToLower(kind), id)))
}

// LibrarySave saves an album.
func (r *Runner) LibrarySave(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	if err := r.spotify.SaveAlbum(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", r.palette.OK("Saved album "+id))
}

// LibraryUnsave removes a saved album.
func (r *Runner) LibraryUnsave(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}
	if err := r.spotify.UnsaveAlbum(ctx, id); err != nil {
		return err
	}
	return r.writePlain("%s\n", r.palette.OK("Removed album "+id))
}

// LibraryCreate creates a playlist and adds any --uri tracks to it.
func (r *Runner) LibraryCreate(ctx context.Context, cmd *cli.Command) error {
	name, err := requireArg(cmd, "name")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	playlist, err := r.spotify.CreatePlaylist(ctx, name, cmd.String("description"), cmd.Bool("public"))
	if err != nil {
		return err
	}

	if uris := cmd.StringSlice("uri"); len(uris) > 0 {
		snapshot, err := r.spotify.AddTracksToPlaylist(ctx, playlist.ID, uris)
		if err != nil {
			return fmt.Errorf("playlist %s created but adding tracks failed: %w", playlist.ID, err)
		}
		playlist.SnapshotID = snapshot
		playlist.Tracks.Total += len(uris)
	}

	return r.emit(ctx, cmd, playlist, func() error {
		r.writePlain("%s\n", r.palette.OK("Created playlist "+playlist.Name))
		r.writePlain("  ID: %s\n", playlist.ID)
		r.writePlain("  Tracks: %d\n", playlist.Tracks.Total)
		if playlist.ExternalURLs.Spotify != "" {
			r.writePlain("  Link: %s\n", playlist.ExternalURLs.Spotify)
		}
		return nil
	})
}

// LibraryDiff compares two playlists.
func (r *Runner) LibraryDiff(ctx context.Context, cmd *cli.Command) error {
	source, err := requireArg(cmd, "source")
	if err != nil {
		return err
	}
	dest, err := requireArg(cmd, "dest")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	result, err := r.engine.Diff(ctx, source, dest, nil)
	if err != nil {
		return err
	}

	return r.emit(ctx, cmd, result, func() error {
		r.writePlainHeader("Playlist comparison")
		r.writePlain("Source: %s (%d tracks)\n", result.SourcePlaylist.Playlist.Name, len(result.SourcePlaylist.Tracks))
		r.writePlain("Dest:   %s (%d tracks)\n", result.DestPlaylist.Playlist.Name, len(result.DestPlaylist.Tracks))
		r.writePlain("Matched: %d\n", result.MatchedCount)

		if len(result.MissingInDest) > 0 {
			r.writePlainln("Missing in destination (%d):", len(result.MissingInDest))
			for _, t := range result.MissingInDest {
				r.writePlain("  %s %s - %s\n", r.palette.Fail(""), t.Artist, t.Title)
			}
		}
		if len(result.ExtraInDest) > 0 {
			r.writePlainln("Only in destination (%d):", len(result.ExtraInDest))
			for _, t := range result.ExtraInDest {
				r.writePlain("  + %s - %s\n", t.Artist, t.Title)
			}
		}
		if len(result.MissingInDest) == 0 && len(result.ExtraInDest) == 0 {
			r.writePlainln("%s", r.palette.OK("Playlists contain the same tracks"))
		}
		return nil
	})
}
