// Package models defines the service-neutral data types shared by the export engine,
// the formatters, and the local track cache.
//
// Data Transfer Objects ([Playlist], [Track], [PlaylistExport]) are mapped from Spotify
// responses by the services package. [PersistedTrack] is the only database-backed entity
// and implements [Model] so that it can be stored through a [Repository].
package models

import (
	"fmt"
	"time"
)

// Model defines the base interface for all persistent models.
type Model interface {
	ID() string           // ID returns the unique identifier for this model
	CreatedAt() time.Time // CreatedAt returns when this model was created
	UpdatedAt() time.Time // UpdatedAt returns when this model was last updated
	Validate() error      // Validate checks if the model's data is valid and returns an error if not
}

// Repository defines the interface for data access operations.
type Repository[T Model] interface {
	Create(model T) error
	Get(id string) (T, error)
	Update(model T) error
	Delete(id string) error
	List(criteria map[string]any) ([]T, error)
}

// Playlist is basic playlist metadata.
type Playlist struct {
	ID          string `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description,omitempty"`
	Owner       string `json:"owner,omitempty"`
	TrackCount  int    `json:"track_count"`
	Public      bool   `json:"public"`
	URL         string `json:"url,omitempty"`
	ImageURL    string `json:"image_url,omitempty"`
}

// Track is song metadata. Duration is in seconds.
type Track struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	Artist   string `json:"artist"`
	Album    string `json:"album,omitempty"`
	Duration int    `json:"duration"`
	ISRC     string `json:"isrc,omitempty"`
	URI      string `json:"uri,omitempty"`
}

// PlaylistExport is a playlist with its complete track listing.
type PlaylistExport struct {
	Playlist Playlist `json:"playlist"`
	Tracks   []Track  `json:"tracks"`
}

// PlaylistExportResult is the outcome of exporting one playlist during a bulk export.
type PlaylistExportResult struct {
	PlaylistID   string   `json:"playlist_id"`
	PlaylistName string   `json:"playlist_name"`
	TrackCount   int      `json:"track_count"`
	Success      bool     `json:"success"`
	Files        []string `json:"files,omitempty"`
	Error        error    `json:"-"`
	ErrorMessage string   `json:"error,omitempty"`
}

// BulkExportResult summarizes a bulk export run.
type BulkExportResult struct {
	TotalPlaylists    int                    `json:"total_playlists"`
	SuccessfulExports int                    `json:"successful_exports"`
	FailedExports     int                    `json:"failed_exports"`
	OutputDirectory   string                 `json:"output_directory"`
	ManifestPath      string                 `json:"manifest_path,omitempty"`
	Results           []PlaylistExportResult `json:"results"`
}

// PersistedTrack is a track cached locally after being seen on a service.
type PersistedTrack struct {
	id        string
	sequence  int
	service   string
	serviceID string
	track     Track
	createdAt time.Time
	updatedAt time.Time
	deletedAt *time.Time
}

// NewPersistedTrack creates a PersistedTrack with timestamps set to now.
func NewPersistedTrack(sequence int, service, serviceID string, track Track) *PersistedTrack {
	now := time.Now().UTC()
	return &PersistedTrack{
		sequence:  sequence,
		service:   service,
		serviceID: serviceID,
		track:     track,
		createdAt: now,
		updatedAt: now,
	}
}

func (t *PersistedTrack) ID() string { return t.id }
func (t *PersistedTrack) Sequence() int { return t.sequence }
func (t *PersistedTrack) Service() string { return t.service }
func (t *PersistedTrack) ServiceID() string { return t.serviceID }
func (t *PersistedTrack) Title() string { return t.track.Title }
func (t *PersistedTrack) Artist() string { return t.track.Artist }
func (t *PersistedTrack) Album() string { return t.track.Album }
func (t *PersistedTrack) Duration() int { return t.track.Duration }
func (t *PersistedTrack) ISRC() string { return t.track.ISRC }
func (t *PersistedTrack) Track() Track { return t.track }
func (t *PersistedTrack) CreatedAt() time.Time { return t.createdAt }
func (t *PersistedTrack) UpdatedAt() time.Time { return t.updatedAt }
func (t *PersistedTrack) DeletedAt() *time.Time { return t.deletedAt }

func (t *PersistedTrack) SetID(id string) { t.id = id }
func (t *PersistedTrack) SetSequence(seq int) { t.sequence = seq }
func (t *PersistedTrack) SetTrack(track Track) { t.track = track }
func (t *PersistedTrack) SetCreatedAt(ts time.Time) { t.createdAt = ts }
func (t *PersistedTrack) SetUpdatedAt(ts time.Time) { t.updatedAt = ts }
func (t *PersistedTrack) SetDeletedAt(ts *time.Time) { t.deletedAt = ts }

// Validate checks required fields.
func (t *PersistedTrack) Validate() error {
	switch {
	case t.service == "":
		return fmt.Errorf("track service is required")
	case t.serviceID == "":
		return fmt.Errorf("track service_id is required")
	case t.track.Title == "":
		return fmt.Errorf("track title is required")
	case t.track.Duration < 0:
		return fmt.Errorf("track duration must not be negative")
	}
	return nil
}
