package repositories

import (
	"errors"
	"fmt"
	"strings"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

// TrackCacheAdapter implements tasks.TrackCacher using TrackRepository.
//
// Tracks are deduplicated by (service, service_id); repeats are ignored.
type TrackCacheAdapter struct {
	repo *TrackRepository
}

// NewTrackCacheAdapter creates a new TrackCacheAdapter with the given repository
func NewTrackCacheAdapter(repo *TrackRepository) *TrackCacheAdapter {
	return &TrackCacheAdapter{repo: repo}
}

// CacheTrack stores a track seen on service unless it is already cached.
func (a *TrackCacheAdapter) CacheTrack(service, serviceID string, track models.Track) error {
	existing, err := a.repo.GetByServiceID(service, serviceID)
	if err == nil && existing != nil {
		return nil
	}
	if err != nil && !errors.Is(err, shared.ErrTrackNotFound) {
		return fmt.Errorf("failed to look up cached track: %w", err)
	}

	if err := a.repo.Create(models.NewPersistedTrack(0, service, serviceID, track)); err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint") {
			return nil
		}
		return fmt.Errorf("failed to cache track: %w", err)
	}
	return nil
}
