package repositories

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"
)

// CredentialRepository stores credential fields as rows in the credentials table.
//
// It satisfies store.Backend.
type CredentialRepository struct {
	db *sql.DB
}

// NewCredentialRepository creates a CredentialRepository with the given database connection
func NewCredentialRepository(db *sql.DB) *CredentialRepository {
	return &CredentialRepository{db: db}
}

// Load returns the value stored under key and whether it exists.
func (r *CredentialRepository) Load(key string) (string, bool, error) {
	var value string
	err := r.db.QueryRow("SELECT value FROM credentials WHERE key = ?", key).Scan(&value)
	if errors.Is(err, sql.ErrNoRows) {
		return "", false, nil
	}
	if err != nil {
		return "", false, fmt.Errorf("failed to read credential %s: %w", key, err)
	}
	return value, true, nil
}

// Save inserts or replaces the value for key.
func (r *CredentialRepository) Save(key, value string) error {
	query := `
		INSERT INTO credentials (key, value, updated_at) VALUES (?, ?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value, updated_at = excluded.updated_at
	`
	if _, err := r.db.Exec(query, key, value, time.Now().UTC()); err != nil {
		return fmt.Errorf("failed to write credential %s: %w", key, err)
	}
	return nil
}

// Remove deletes the given keys. Missing keys are ignored.
func (r *CredentialRepository) Remove(keys ...string) error {
	if len(keys) == 0 {
		return nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(keys)), ",")
	args := make([]any, len(keys))
	for i, k := range keys {
		args[i] = k
	}

	if _, err := r.db.Exec("DELETE FROM credentials WHERE key IN ("+placeholders+")", args...); err != nil {
		return fmt.Errorf("failed to delete credentials: %w", err)
	}
	return nil
}
