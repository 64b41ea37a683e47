package store

import (
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/zalando/go-keyring"

	"github.com/desertthunder/crate/internal/shared"
)

// failingBackend errors on every call.
type failingBackend struct{}

func (failingBackend) Load(string) (string, bool, error) { return "", false, errors.New("boom") }
func (failingBackend) Save(string, string) error { return errors.New("boom") }
func (failingBackend) Remove(...string) error { return errors.New("boom") }

func fill(s *Store) {
	for _, f := range Fields {
		s.Set(f, "value-"+string(f))
	}
}

func TestStore(t *testing.T) {
	t.Run("Get and Set", func(t *testing.T) {
		s := New(NewMemoryBackend(), nil)

		_, ok := s.Get(AccessToken)
		assert.False(t, ok)

		s.Set(AccessToken, "tok")
		v, ok := s.Get(AccessToken)
		assert.True(t, ok)
		assert.Equal(t, "tok", v)
	})

	t.Run("empty value removes field", func(t *testing.T) {
		s := New(NewMemoryBackend(), nil)
		s.Set(RefreshToken, "rt")
		s.Set(RefreshToken, "")

		_, ok := s.Get(RefreshToken)
		assert.False(t, ok)
	})

	t.Run("ClearAuthFields keeps refresh token and flow state", func(t *testing.T) {
		s := New(NewMemoryBackend(), nil)
		fill(s)

		s.ClearAuthFields()

		for _, f := range []Field{AccessToken, ExpiresAt, PKCEVerifier} {
			_, ok := s.Get(f)
			assert.False(t, ok, "field %s should be cleared", f)
		}
		for _, f := range []Field{RefreshToken, CSRFState, ReturnPath} {
			_, ok := s.Get(f)
			assert.True(t, ok, "field %s should survive", f)
		}
	})

	t.Run("ClearAll is idempotent", func(t *testing.T) {
		backend := NewMemoryBackend()
		s := New(backend, nil)
		fill(s)

		s.ClearAll()
		s.ClearAll()

		assert.Equal(t, 0, backend.Len())
		assert.Empty(t, s.Snapshot())
	})

	t.Run("unavailable store", func(t *testing.T) {
		s := New(nil, nil)

		assert.False(t, s.Available())
		s.Set(AccessToken, "tok")
		_, ok := s.Get(AccessToken)
		assert.False(t, ok)
		s.ClearAll()
	})

	t.Run("backend errors read as absent", func(t *testing.T) {
		s := New(failingBackend{}, nil)

		s.Set(AccessToken, "tok")
		_, ok := s.Get(AccessToken)
		assert.False(t, ok)
		s.ClearAll()
	})

	t.Run("concurrent access", func(t *testing.T) {
		s := New(NewMemoryBackend(), nil)

		var wg sync.WaitGroup
		for i := 0; i < 20; i++ {
			wg.Add(1)
			go func() {
				defer wg.Done()
				s.Set(AccessToken, "tok")
				s.Get(AccessToken)
				s.ClearAuthFields()
			}()
		}
		wg.Wait()
	})
}

func TestFileBackend(t *testing.T) {
	t.Run("round trip through disk", func(t *testing.T) {
		dir := t.TempDir()
		s := New(NewFileBackend(dir), nil)

		s.Set(AccessToken, "tok")
		s.Set(RefreshToken, "rt")

		reopened := New(NewFileBackend(dir), nil)
		v, ok := reopened.Get(RefreshToken)
		require.True(t, ok)
		assert.Equal(t, "rt", v)

		info, err := os.Stat(filepath.Join(dir, credentialsFile))
		require.NoError(t, err)
		if os.PathSeparator == '/' {
			assert.Equal(t, os.FileMode(0o600), info.Mode().Perm())
		}
	})

	t.Run("missing file reads as empty", func(t *testing.T) {
		b := NewFileBackend(filepath.Join(t.TempDir(), "nested"))

		_, ok, err := b.Load(string(AccessToken))
		require.NoError(t, err)
		assert.False(t, ok)
	})

	t.Run("corrupt file is an error", func(t *testing.T) {
		dir := t.TempDir()
		require.NoError(t, os.WriteFile(filepath.Join(dir, credentialsFile), []byte("{nope"), 0o600))

		_, _, err := NewFileBackend(dir).Load(string(AccessToken))
		assert.Error(t, err)
	})

	t.Run("Remove", func(t *testing.T) {
		dir := t.TempDir()
		s := New(NewFileBackend(dir), nil)
		fill(s)

		s.ClearAll()

		data, err := os.ReadFile(filepath.Join(dir, credentialsFile))
		require.NoError(t, err)
		assert.JSONEq(t, `{}`, string(data))
	})
}

func TestKeyringBackend(t *testing.T) {
	keyring.MockInit()

	kb, err := NewKeyringBackend()
	require.NoError(t, err)

	s := New(kb, nil)
	s.Set(RefreshToken, "rt")

	v, ok := s.Get(RefreshToken)
	require.True(t, ok)
	assert.Equal(t, "rt", v)

	s.ClearAll()
	_, ok = s.Get(RefreshToken)
	assert.False(t, ok)
}

func TestOpen(t *testing.T) {
	t.Run("sqlite", func(t *testing.T) {
		db, err := shared.NewDatabase(":memory:")
		require.NoError(t, err)
		t.Cleanup(func() { db.Close() })
		require.NoError(t, shared.RunMigrations(db))

		s, err := Open(shared.StorageConfig{Backend: "sqlite"}, db, nil)
		require.NoError(t, err)

		s.Set(ExpiresAt, "12345")
		v, ok := s.Get(ExpiresAt)
		assert.True(t, ok)
		assert.Equal(t, "12345", v)
	})

	t.Run("sqlite without database", func(t *testing.T) {
		_, err := Open(shared.StorageConfig{Backend: "sqlite"}, nil, nil)
		assert.ErrorIs(t, err, shared.ErrStorageUnavailable)
	})

	t.Run("none is unavailable", func(t *testing.T) {
		s, err := Open(shared.StorageConfig{Backend: "none"}, nil, nil)
		require.NoError(t, err)
		assert.False(t, s.Available())
	})

	t.Run("file and memory", func(t *testing.T) {
		for _, backend := range []string{"file", "memory"} {
			s, err := Open(shared.StorageConfig{Backend: backend, Dir: t.TempDir()}, nil, nil)
			require.NoError(t, err, backend)
			assert.True(t, s.Available(), backend)
		}
	})

	t.Run("unknown backend", func(t *testing.T) {
		_, err := Open(shared.StorageConfig{Backend: "redis"}, nil, nil)
		assert.ErrorIs(t, err, shared.ErrInvalidConfig)
	})
}
