package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/desertthunder/crate/internal/models"
	"github.com/desertthunder/crate/internal/shared"
)

const trackColumns = `id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at, deleted_at`

// TrackRepository implements models.Repository[*models.PersistedTrack] for track caching.
//
// Deletes are soft: rows keep a deleted_at timestamp and are excluded from reads.
type TrackRepository struct {
	db *sql.DB
}

// NewTrackRepository creates a new TrackRepository with the given database connection
func NewTrackRepository(db *sql.DB) *TrackRepository {
	return &TrackRepository{db: db}
}

// Create inserts a new [models.PersistedTrack] into the database with generated ID and sequence
func (r *TrackRepository) Create(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	sequence, err := NextSequence(r.db, "tracks")
	if err != nil {
		return fmt.Errorf("failed to generate sequence: %w", err)
	}

	id := shared.GenerateID()

	query := `
		INSERT INTO tracks (id, sequence, service, service_id, title, artist, album, duration, isrc, created_at, updated_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`
	_, err = r.db.Exec(query,
		id,
		sequence,
		track.Service(),
		track.ServiceID(),
		track.Title(),
		track.Artist(),
		nullable(track.Album()),
		track.Duration(),
		nullable(track.ISRC()),
		track.CreatedAt(),
		track.UpdatedAt(),
	)
	if err != nil {
		return fmt.Errorf("failed to insert track: %w", err)
	}

	track.SetID(id)
	track.SetSequence(sequence)
	return nil
}

// Get retrieves a track by ID, excluding soft-deleted tracks
func (r *TrackRepository) Get(id string) (*models.PersistedTrack, error) {
	row := r.db.QueryRow("SELECT "+trackColumns+" FROM tracks WHERE id = ? AND deleted_at IS NULL", id)
	return scanTrack(row)
}

// GetByServiceID retrieves a track by service and service_id
func (r *TrackRepository) GetByServiceID(service, serviceID string) (*models.PersistedTrack, error) {
	row := r.db.QueryRow(
		"SELECT "+trackColumns+" FROM tracks WHERE service = ? AND service_id = ? AND deleted_at IS NULL",
		service, serviceID,
	)
	return scanTrack(row)
}

// Update modifies the metadata of an existing track
func (r *TrackRepository) Update(track *models.PersistedTrack) error {
	if err := track.Validate(); err != nil {
		return fmt.Errorf("%w: %v", shared.ErrInvalidInput, err)
	}

	now := time.Now().UTC()
	query := `
		UPDATE tracks
		SET title = ?, artist = ?, album = ?, duration = ?, isrc = ?, updated_at = ?
		WHERE id = ? AND deleted_at IS NULL
	`
	result, err := r.db.Exec(query,
		track.Title(),
		track.Artist(),
		nullable(track.Album()),
		track.Duration(),
		nullable(track.ISRC()),
		now,
		track.ID(),
	)
	if err != nil {
		return fmt.Errorf("failed to update track: %w", err)
	}

	if err := expectRow(result, track.ID()); err != nil {
		return err
	}
	track.SetUpdatedAt(now)
	return nil
}

// Delete soft-deletes a track by ID
func (r *TrackRepository) Delete(id string) error {
	result, err := r.db.Exec("UPDATE tracks SET deleted_at = ? WHERE id = ? AND deleted_at IS NULL", time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("failed to delete track: %w", err)
	}
	return expectRow(result, id)
}

// List retrieves tracks in insertion order.
//
// Supported criteria: "service" (string), "isrc" (string), "limit" (int).
func (r *TrackRepository) List(criteria map[string]any) ([]*models.PersistedTrack, error) {
	query := "SELECT " + trackColumns + " FROM tracks WHERE deleted_at IS NULL"
	args := []any{}

	if service, ok := criteria["service"].(string); ok && service != "" {
		query += " AND service = ?"
		args = append(args, service)
	}
	if isrc, ok := criteria["isrc"].(string); ok && isrc != "" {
		query += " AND isrc = ?"
		args = append(args, isrc)
	}

	query += " ORDER BY sequence ASC"

	if limit, ok := criteria["limit"].(int); ok && limit > 0 {
		query += " LIMIT ?"
		args = append(args, limit)
	}

	rows, err := r.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tracks: %w", err)
	}
	defer rows.Close()

	var tracks []*models.PersistedTrack
	for rows.Next() {
		track, err := scanTrack(rows)
		if err != nil {
			return nil, err
		}
		tracks = append(tracks, track)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("row iteration error: %w", err)
	}
	return tracks, nil
}

func scanTrack(row rowScanner) (*models.PersistedTrack, error) {
	var (
		id, service, serviceID, title, artist string
		sequence, duration                    int
		album, isrc                           sql.NullString
		createdAt, updatedAt                  time.Time
		deletedAt                             sql.NullTime
	)

	err := row.Scan(&id, &sequence, &service, &serviceID, &title, &artist, &album, &duration, &isrc, &createdAt, &updatedAt, &deletedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, shared.ErrTrackNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan track: %w", err)
	}

	track := models.NewPersistedTrack(sequence, service, serviceID, models.Track{
		ID:       serviceID,
		Title:    title,
		Artist:   artist,
		Album:    album.String,
		Duration: duration,
		ISRC:     isrc.String,
	})
	track.SetID(id)
	track.SetCreatedAt(createdAt)
	track.SetUpdatedAt(updatedAt)
	if deletedAt.Valid {
		track.SetDeletedAt(&deletedAt.Time)
	}
	return track, nil
}

func expectRow(result sql.Result, id string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %s", shared.ErrTrackNotFound, id)
	}
	return nil
}
