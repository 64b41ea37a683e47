package repositories

import (
	"database/sql"
	"errors"
	"testing"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// setupTestDB creates an in-memory SQLite database with migrations applied
func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()

	db, err := shared.NewDatabase(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := shared.RunMigrations(db); err != nil {
		db.Close()
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() { db.Close() })
	return db
}

func TestCredentialRepository(t *testing.T) {
	t.Run("Load missing key", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		value, ok, err := repo.Load("spotify_access_token")
		if err != nil {
			t.Fatalf("Load() error = %v", err)
		}
		if ok || value != "" {
			t.Errorf("expected absent value, got %q (ok=%v)", value, ok)
		}
	})

	t.Run("Save and overwrite", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		if err := repo.Save("spotify_access_token", "first"); err != nil {
			t.Fatalf("Save() error = %v", err)
		}
		if err := repo.Save("spotify_access_token", "second"); err != nil {
			t.Fatalf("Save() overwrite error = %v", err)
		}

		value, ok, err := repo.Load("spotify_access_token")
		if err != nil || !ok {
			t.Fatalf("Load() = %q, %v, %v", value, ok, err)
		}
		if value != "second" {
			t.Errorf("expected overwritten value, got %q", value)
		}
	})

	t.Run("Remove", func(t *testing.T) {
		repo := NewCredentialRepository(setupTestDB(t))

		for _, k := range []string{"a", "b", "c"} {
			if err := repo.Save(k, "v"); err != nil {
				t.Fatalf("Save(%s) error = %v", k, err)
			}
		}

		if err := repo.Remove("a", "c", "missing"); err != nil {
			t.Fatalf("Remove() error = %v", err)
		}

		for _, k := range []string{"a", "b", "c"} {
			_, ok, err := repo.Load(k)
			if err != nil {
				t.Fatalf("Load(%s) error = %v", k, err)
			}
			if ok != (k == "b") {
				t.Errorf("Load(%s) present = %v, expected only b to remain", k, ok)
			}
		}

		if err := repo.Remove(); err != nil {
			t.Errorf("Remove() with no keys should be a no-op, got %v", err)
		}
	})

	t.Run("closed database", func(t *testing.T) {
		db := setupTestDB(t)
		repo := NewCredentialRepository(db)
		db.Close()

		if _, _, err := repo.Load("k"); err == nil {
			t.Error("expected error from closed database")
		}
		if err := repo.Save("k", "v"); err == nil {
			t.Error("expected error from closed database")
		}
	})
}

func TestTrackRepository(t *testing.T) {
	newTrack := func(serviceID, title string) *models.PersistedTrack {
		return models.NewPersistedTrack(0, "spotify", serviceID, models.Track{
			ID:       serviceID,
			Title:    title,
			Artist:   "Artist",
			Duration: 200,
		})
	}

	t.Run("Create and Get", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := newTrack("sp1", "Song One")

		if err := repo.Create(track); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if track.ID() == "" {
			t.Fatal("track ID should be set after creation")
		}
		if track.Sequence() != 1 {
			t.Errorf("expected sequence 1, got %d", track.Sequence())
		}

		got, err := repo.Get(track.ID())
		if err != nil {
			t.Fatalf("Get() error = %v", err)
		}
		if got.Title() != "Song One" || got.ServiceID() != "sp1" {
			t.Errorf("unexpected track: %+v", got.Track())
		}
		if got.Album() != "" || got.ISRC() != "" {
			t.Errorf("NULL columns should scan as empty strings")
		}
	})

	t.Run("Create validation error", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))

		err := repo.Create(models.NewPersistedTrack(0, "spotify", "sp1", models.Track{}))
		if !errors.Is(err, shared.ErrInvalidInput) {
			t.Errorf("expected ErrInvalidInput, got %v", err)
		}
	})

	t.Run("duplicate service id", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))

		if err := repo.Create(newTrack("sp1", "Song")); err != nil {
			t.Fatalf("Create() error = %v", err)
		}
		if err := repo.Create(newTrack("sp1", "Song")); err == nil {
			t.Error("expected unique constraint error")
		}
	})

	t.Run("Update", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := newTrack("sp1", "Old")
		if err := repo.Create(track); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		track.SetTrack(models.Track{ID: "sp1", Title: "New", Artist: "Artist", Album: "Album", ISRC: "USX"})
		if err := repo.Update(track); err != nil {
			t.Fatalf("Update() error = %v", err)
		}

		got, err := repo.GetByServiceID("spotify", "sp1")
		if err != nil {
			t.Fatalf("GetByServiceID() error = %v", err)
		}
		if got.Title() != "New" || got.Album() != "Album" || got.ISRC() != "USX" {
			t.Errorf("update not persisted: %+v", got.Track())
		}
	})

	t.Run("Delete excludes from reads", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		track := newTrack("sp1", "Song")
		if err := repo.Create(track); err != nil {
			t.Fatalf("Create() error = %v", err)
		}

		if err := repo.Delete(track.ID()); err != nil {
			t.Fatalf("Delete() error = %v", err)
		}

		if _, err := repo.Get(track.ID()); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("expected ErrTrackNotFound after delete, got %v", err)
		}
		if err := repo.Delete(track.ID()); !errors.Is(err, shared.ErrTrackNotFound) {
			t.Errorf("second delete should report not found, got %v", err)
		}
	})

	t.Run("List", func(t *testing.T) {
		repo := NewTrackRepository(setupTestDB(t))
		for _, id := range []string{"a", "b", "c"} {
			if err := repo.Create(newTrack(id, "Song "+id)); err != nil {
				t.Fatalf("Create(%s) error = %v", id, err)
			}
		}

		all, err := repo.List(map[string]any{"service": "spotify"})
		if err != nil {
			t.Fatalf("List() error = %v", err)
		}
		if len(all) != 3 || all[0].ServiceID() != "a" || all[2].ServiceID() != "c" {
			t.Errorf("expected tracks in insertion order, got %d", len(all))
		}

		limited, err := repo.List(map[string]any{"limit": 2})
		if err != nil {
			t.Fatalf("List() with limit error = %v", err)
		}
		if len(limited) != 2 {
			t.Errorf("expected 2 tracks, got %d", len(limited))
		}
	})
}

func TestTrackCacheAdapter(t *testing.T) {
	repo := NewTrackRepository(setupTestDB(t))
	cache := NewTrackCacheAdapter(repo)
	track := models.Track{ID: "sp1", Title: "Song", Artist: "Artist", Duration: 100}

	if err := cache.CacheTrack("spotify", "sp1", track); err != nil {
		t.Fatalf("CacheTrack() error = %v", err)
	}
	if err := cache.CacheTrack("spotify", "sp1", track); err != nil {
		t.Fatalf("CacheTrack() repeat should be ignored, got %v", err)
	}

	tracks, err := repo.List(nil)
	if err != nil {
		t.Fatalf("List() error = %v", err)
	}
	if len(tracks) != 1 {
		t.Errorf("expected 1 cached track, got %d", len(tracks))
	}
}
