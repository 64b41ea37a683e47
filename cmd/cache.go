package main

import (
	"context"
	"fmt"

	"github.com/urfave/cli/v3"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// CacheTracks stores the tracks of a playlist in the local database.
func (r *Runner) CacheTracks(ctx context.Context, cmd *cli.Command) error {
	id, err := requireArg(cmd, "id")
	if err != nil {
		return err
	}
	if err := r.connect(); err != nil {
		return err
	}

	r.logger.Info("caching spotify playlist", "playlist", id)

	cached, err := r.engine.CachePlaylist(ctx, id, nil)
	if err != nil {
		return err
	}
	return r.writePlain("%s\n", r.palette.OK(fmt.Sprintf("Cached %s from playlist %s", pluralize(cached, "track"), id)))
}

type cachedTrack struct {
	ID        string       `json:"id"`
	Service   string       `json:"service"`
	ServiceID string       `json:"service_id"`
	Track     models.Track `json:"track"`
	CachedAt  string       `json:"cached_at"`
}

// CacheList prints tracks from the local cache.
func (r *Runner) CacheList(ctx context.Context, cmd *cli.Command) error {
	if r.tracks == nil {
		db, err := shared.OpenDatabase(r.config.Database)
		if err != nil {
			return fmt.Errorf("failed to open database: %w", err)
		}
		r.db = db
		r.wireEngine()
	}

	persisted, err := r.tracks.List(map[string]any{
		"isrc":  cmd.String("isrc"),
		"limit": cmd.Int("limit"),
	})
	if err != nil {
		return err
	}

	tracks := make([]cachedTrack, 0, len(persisted))
	for _, p := range persisted {
		tracks = append(tracks, cachedTrack{
			ID:        p.ID(),
			Service:   p.Service(),
			ServiceID: p.ServiceID(),
			Track:     p.Track(),
			CachedAt:  p.CreatedAt().Format("2006-01-02 15:04"),
		})
	}

	return r.emit(ctx, cmd, tracks, func() error {
		r.writePlain("%s cached:\n\n", pluralize(len(tracks), "track"))
		for i, t := range tracks {
			r.writePlain("%d. %s - %s %s\n", i+1, t.Track.Artist, t.Track.Title, r.palette.Muted(t.Service+":"+t.ServiceID))
		}
		return nil
	})
}

func pluralize(n int, noun string) string {
	if n == 1 {
		return fmt.Sprintf("%d %s", n, noun)
	}
	return fmt.Sprintf("%d %ss", n, noun)
}
