package store

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/gofrs/flock"
)

const (
	credentialsFile = "credentials.json"

	// LockTimeout bounds how long a write waits for the file lock before
	// proceeding unlocked.
	LockTimeout = 100 * time.Millisecond
)

// FileBackend stores all fields in one JSON object at {dir}/credentials.json (mode 0600).
//
// Writes are read-modify-write under an advisory lock and replace the file atomically.
type FileBackend struct {
	dir string
}

// NewFileBackend creates a FileBackend rooted at dir, defaulting to the user config directory.
func NewFileBackend(dir string) *FileBackend {
	if dir == "" {
		dir = DefaultDir()
	}
	return &FileBackend{dir: dir}
}

// DefaultDir returns {user config dir}/crate, falling back to the temp directory.
func DefaultDir() string {
	if cfg, err := os.UserConfigDir(); err == nil && cfg != "" {
		return filepath.Join(cfg, "crate")
	}
	return filepath.Join(os.TempDir(), "crate")
}

// Path returns the credentials file path.
func (b *FileBackend) Path() string {
	return filepath.Join(b.dir, credentialsFile)
}

func (b *FileBackend) Load(key string) (string, bool, error) {
	all, err := b.readAll()
	if err != nil {
		return "", false, err
	}
	v, ok := all[key]
	return v, ok, nil
}

func (b *FileBackend) Save(key, value string) error {
	return b.update(func(all map[string]string) { all[key] = value })
}

func (b *FileBackend) Remove(keys ...string) error {
	return b.update(func(all map[string]string) {
		for _, k := range keys {
			delete(all, k)
		}
	})
}

func (b *FileBackend) update(mutate func(map[string]string)) error {
	if err := os.MkdirAll(b.dir, 0o700); err != nil {
		return fmt.Errorf("failed to create credentials directory: %w", err)
	}

	unlock, err := b.lock()
	if err != nil {
		return err
	}
	defer unlock()

	all, err := b.readAll()
	if err != nil {
		return err
	}
	mutate(all)
	return b.writeAll(all)
}

// lock takes an exclusive lock on {dir}/.lock. On timeout it returns a no-op
// unlock so a stale lock never wedges the CLI.
func (b *FileBackend) lock() (func(), error) {
	fl := flock.New(filepath.Join(b.dir, ".lock"))

	ctx, cancel := context.WithTimeout(context.Background(), LockTimeout)
	defer cancel()

	locked, err := fl.TryLockContext(ctx, 10*time.Millisecond)
	if err != nil {
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return func() {}, nil
		}
		return nil, fmt.Errorf("failed to lock credentials: %w", err)
	}
	if !locked {
		return func() {}, nil
	}
	return func() { _ = fl.Unlock() }, nil
}

func (b *FileBackend) readAll() (map[string]string, error) {
	data, err := os.ReadFile(b.Path())
	if errors.Is(err, os.ErrNotExist) {
		return make(map[string]string), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read credentials: %w", err)
	}

	all := make(map[string]string)
	if len(data) == 0 {
		return all, nil
	}
	if err := json.Unmarshal(data, &all); err != nil {
		return nil, fmt.Errorf("invalid credentials file: %w", err)
	}
	return all, nil
}

func (b *FileBackend) writeAll(all map[string]string) error {
	data, err := json.MarshalIndent(all, "", "  ")
	if err != nil {
		return err
	}

	tmp, err := os.CreateTemp(b.dir, "credentials-*.json.tmp")
	if err != nil {
		return err
	}
	tmpPath := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Chmod(0o600); err != nil {
		tmp.Close()
		os.Remove(tmpPath)
		return err
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpPath)
		return err
	}

	dest := b.Path()
	if err := os.Rename(tmpPath, dest); err != nil {
		if runtime.GOOS == "windows" {
			_ = os.Remove(dest)
			return os.Rename(tmpPath, dest)
		}
		os.Remove(tmpPath)
		return err
	}
	return nil
}
