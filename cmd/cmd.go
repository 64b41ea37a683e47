// submodule cmd contains command definitions
package main

import (
	"time"

	"github.com/urfave/cli/v3"
)

func withOutput(flags ...cli.Flag) []cli.Flag {
	return append(flags, outputFlags()...)
}

func limitFlag(value int) *cli.IntFlag {
	return &cli.IntFlag{
		Name:    "limit",
		Aliases: []string{"n"},
		Usage:   "Maximum number of items (1-50)",
		Value:   value,
	}
}

// setupCommand handles configuration and database setup.
func setupCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "setup",
		Usage: "Setup and configuration commands",
		Commands: []*cli.Command{
			{
				Name:   "config",
				Usage:  "Write a config.toml template to the --config path",
				Action: r.SetupConfig,
			},
			{
				Name:   "database",
				Usage:  "Initialize database and run migrations",
				Action: r.SetupDatabase,
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "rollback",
						Usage: "Roll back the most recent migration instead",
					},
				},
			},
		},
	}
}

// authCommand handles the Spotify authorization lifecycle.
func authCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "auth",
		Usage: "Manage Spotify authorization",
		Commands: []*cli.Command{
			{
				Name:  "login",
				Usage: "Authorize with Spotify in the browser (PKCE)",
				Flags: []cli.Flag{
					&cli.DurationFlag{
						Name:  "timeout",
						Usage: "How long to wait for the browser redirect",
						Value: 2 * time.Minute,
					},
					&cli.StringFlag{
						Name:  "return-to",
						Usage: "Location to report after a successful login",
					},
				},
				Action: r.AuthLogin,
			},
			{
				Name:   "logout",
				Usage:  "Forget stored Spotify credentials",
				Action: r.AuthLogout,
			},
			{
				Name:   "status",
				Usage:  "Show the stored credential state",
				Flags:  outputFlags(),
				Action: r.AuthStatus,
			},
			{
				Name:  "token",
				Usage: "Print a valid access token, refreshing it if needed",
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "refresh",
						Usage: "Force a refresh before printing",
					},
				},
				Action: r.AuthToken,
			},
		},
	}
}

// libraryCommand handles the user's playlists, followed artists and saved albums.
func libraryCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:    "library",
		Aliases: []string{"lib"},
		Usage:   "Your playlists, followed artists and saved albums",
		Commands: []*cli.Command{
			{
				Name:   "me",
				Usage:  "Show the current user's profile",
				Flags:  outputFlags(),
				Action: r.LibraryProfile,
			},
			{
				Name:   "playlists",
				Usage:  "List your playlists",
				Flags:  outputFlags(),
				Action: r.LibraryPlaylists,
			},
			{
				Name:      "tracks",
				Usage:     "List the tracks of a playlist",
				ArgsUsage: "<playlist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.LibraryTracks,
			},
			{
				Name:   "artists",
				Usage:  "List followed artists",
				Flags:  outputFlags(),
				Action: r.LibraryArtists,
			},
			{
				Name:   "albums",
				Usage:  "List saved albums",
				Flags:  outputFlags(),
				Action: r.LibraryAlbums,
			},
			{
				Name:      "follow",
				Usage:     "Follow an artist or playlist",
				ArgsUsage: "<artist|playlist> <id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "kind"}, &cli.StringArg{Name: "id"}},
				Flags: []cli.Flag{
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Show a followed playlist on your profile",
						Value: true,
					},
				},
				Action: r.LibraryFollow,
			},
			{
				Name:      "unfollow",
				Usage:     "Unfollow an artist or playlist",
				ArgsUsage: "<artist|playlist> <id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "kind"}, &cli.StringArg{Name: "id"}},
				Action:    r.LibraryUnfollow,
			},
			{
				Name:      "save",
				Usage:     "Save an album to your library",
				ArgsUsage: "<album-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.LibrarySave,
			},
			{
				Name:      "unsave",
				Usage:     "Remove an album from your library",
				ArgsUsage: "<album-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.LibraryUnsave,
			},
			{
				Name:      "create",
				Usage:     "Create a playlist, optionally seeded with track URIs",
				ArgsUsage: "<name>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "name"}},
				Flags: withOutput(
					&cli.StringFlag{
						Name:    "description",
						Aliases: []string{"d"},
						Usage:   "Playlist description",
					},
					&cli.BoolFlag{
						Name:  "public",
						Usage: "Make the playlist public",
					},
					&cli.StringSliceFlag{
						Name:  "uri",
						Usage: "Track URI to add (repeatable)",
					},
				),
				Action: r.LibraryCreate,
			},
			{
				Name:      "diff",
				Usage:     "Compare two playlists and show missing tracks",
				ArgsUsage: "<source-id> <dest-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "source"}, &cli.StringArg{Name: "dest"}},
				Flags:     outputFlags(),
				Action:    r.LibraryDiff,
			},
		},
	}
}

// browseCommand handles catalog discovery.
func browseCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "browse",
		Usage: "Discover new releases, search the catalog and see your top items",
		Commands: []*cli.Command{
			{
				Name:   "new-releases",
				Usage:  "List new album releases",
				Flags:  withOutput(limitFlag(20)),
				Action: r.BrowseNewReleases,
			},
			{
				Name:      "search",
				Usage:     "Search the catalog",
				ArgsUsage: "<query>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "query"}},
				Flags: withOutput(
					limitFlag(10),
					&cli.StringSliceFlag{
						Name:    "type",
						Aliases: []string{"t"},
						Usage:   "Item types: track, artist, album, playlist",
						Value:   []string{"track"},
					},
				),
				Action: r.BrowseSearch,
			},
			{
				Name:  "top",
				Usage: "Show your top tracks or artists",
				Flags: withOutput(
					limitFlag(20),
					&cli.StringFlag{
						Name:  "type",
						Usage: "tracks or artists",
						Value: "tracks",
					},
					&cli.StringFlag{
						Name:  "range",
						Usage: "short_term, medium_term or long_term",
						Value: "medium_term",
					},
				),
				Action: r.BrowseTop,
			},
			{
				Name:   "recent",
				Usage:  "Show recently played tracks",
				Flags:  withOutput(limitFlag(20)),
				Action: r.BrowseRecent,
			},
			{
				Name:      "artist",
				Usage:     "Show an artist with top tracks and albums",
				ArgsUsage: "<artist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags: withOutput(
					&cli.StringFlag{
						Name:  "include-groups",
						Usage: "Album groups to list (album,single,appears_on,compilation)",
						Value: "album,single",
					},
				),
				Action: r.BrowseArtist,
			},
			{
				Name:      "related",
				Usage:     "List artists similar to an artist",
				ArgsUsage: "<artist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.BrowseRelated,
			},
			{
				Name:   "featured",
				Usage:  "List Spotify's featured playlists",
				Flags:  withOutput(limitFlag(20)),
				Action: r.BrowseFeatured,
			},
			{
				Name:  "recommend",
				Usage: "Recommend tracks from seed artists, tracks or genres",
				Flags: withOutput(
					&cli.IntFlag{
						Name:    "limit",
						Aliases: []string{"n"},
						Usage:   "Number of tracks (1-100)",
						Value:   20,
					},
					&cli.StringSliceFlag{
						Name:  "artist",
						Usage: "Seed artist ID (repeatable, up to 5)",
					},
					&cli.StringSliceFlag{
						Name:  "track",
						Usage: "Seed track ID (repeatable, up to 5)",
					},
					&cli.StringSliceFlag{
						Name:  "genre",
						Usage: "Seed genre (repeatable, up to 5)",
					},
					&cli.StringSliceFlag{
						Name:  "tune",
						Usage: "Tunable attribute as key=value, e.g. min_energy=0.5",
					},
				),
				Action: r.BrowseRecommend,
			},
			{
				Name:      "album",
				Usage:     "Show an album and its tracks",
				ArgsUsage: "<album-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Flags:     outputFlags(),
				Action:    r.BrowseAlbum,
			},
		},
	}
}

// exportCommand handles bulk playlist export.
func exportCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:      "export",
		Usage:     "Export playlists to files (all playlists when no IDs are given)",
		ArgsUsage: "[playlist-id...]",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:    "format",
				Aliases: []string{"f"},
				Usage:   "json, csv, markdown or txt (default from config)",
			},
			&cli.StringFlag{
				Name:    "output",
				Aliases: []string{"o"},
				Usage:   "Output directory (default: spotify_export_{epoch})",
			},
			&cli.IntFlag{
				Name:  "workers",
				Usage: "Concurrent writers, 1-10 (default from config)",
			},
			&cli.FloatFlag{
				Name:  "rate",
				Usage: "Playlist fetches per second (default from config)",
			},
			&cli.BoolFlag{
				Name:  "cover",
				Usage: "Download cover images for markdown exports",
			},
			&cli.BoolFlag{
				Name:  "json",
				Usage: "Print the export summary as JSON",
			},
		},
		Action: r.Export,
	}
}

// cacheCommand handles the local track cache.
func cacheCommand(r *Runner) *cli.Command {
	return &cli.Command{
		Name:  "cache",
		Usage: "Cache playlist tracks locally",
		Commands: []*cli.Command{
			{
				Name:      "tracks",
				Usage:     "Cache the tracks of a playlist",
				ArgsUsage: "<playlist-id>",
				Arguments: []cli.Argument{&cli.StringArg{Name: "id"}},
				Action:    r.CacheTracks,
			},
			{
				Name:  "list",
				Usage: "List cached tracks",
				Flags: withOutput(
					&cli.IntFlag{
						Name:  "limit",
						Usage: "Maximum number of tracks (0 for all)",
					},
					&cli.StringFlag{
						Name:  "isrc",
						Usage: "Only tracks with this ISRC",
					},
				),
				Action: r.CacheList,
			},
		},
	}
}

// apiCommand handles raw authenticated Web API calls.
func apiCommand(r *Runner) *cli.Command {
	raw := func(name, usage string, action cli.ActionFunc, body bool) *cli.Command {
		c := &cli.Command{
			Name:      name,
			Usage:     usage,
			ArgsUsage: "<endpoint>",
			Arguments: []cli.Argument{&cli.StringArg{Name: "endpoint"}},
			Flags:     outputFlags(),
			Action:    action,
		}
		if body {
			c.Flags = append(c.Flags, &cli.StringFlag{
				Name:    "data",
				Aliases: []string{"d"},
				Usage:   "JSON body to send",
			})
		}
		return c
	}

	return &cli.Command{
		Name:  "api",
		Usage: "Direct authenticated calls to the Spotify Web API",
		Commands: []*cli.Command{
			raw("get", "GET an endpoint and print the JSON response", r.APIGet, false),
			raw("put", "PUT to an endpoint with an optional JSON body", r.APIPut, true),
			raw("delete", "DELETE an endpoint with an optional JSON body", r.APIDelete, true),
		},
	}
}
