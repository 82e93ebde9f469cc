// Package store persists per-profile face embeddings in a bbolt database.
// The store owns a directory (the database environment); writes commit the
// whole updated profile record in a single transaction, so concurrent
// readers always see either the fully-prior or fully-new state.
package store

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"
)

// Mode selects how the backing database is opened.
type Mode int

const (
	// ReadWrite creates the environment directory if it does not exist.
	ReadWrite Mode = iota
	// ReadOnly fails if the environment directory or database is missing.
	ReadOnly
)

var (
	// ErrDimensionMismatch is returned when an appended embedding does not
	// match the dimensionality of the samples already stored for a profile.
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")

	// ErrCorruptRecord is returned when a stored record does not decode
	// under either the current or the legacy layout.
	ErrCorruptRecord = errors.New("corrupt profile record")

	// ErrReadOnly is returned for write operations on a read-only store.
	ErrReadOnly = errors.New("store is read-only")
)

const dbFileName = "profiles.db"

var profilesBucket = []byte("profiles")

// Store maps profile names to ordered lists of embedding samples.
type Store struct {
	db   *bolt.DB
	mode Mode
}

// Open opens the embedding store rooted at dir. In ReadWrite mode the
// directory is created if absent; in ReadOnly mode a missing directory or
// database file is an error.
func Open(dir string, mode Mode) (*Store, error) {
	if mode == ReadWrite {
		if err := os.MkdirAll(dir, 0o700); err != nil {
			return nil, fmt.Errorf("failed to create store directory %s: %w", dir, err)
		}
	} else if _, err := os.Stat(dir); err != nil {
		return nil, fmt.Errorf("store directory not found: %s: %w", dir, err)
	}

	opts := &bolt.Options{Timeout: time.Second}
	if mode == ReadOnly {
		opts.ReadOnly = true
	}

	db, err := bolt.Open(filepath.Join(dir, dbFileName), 0o600, opts)
	if err != nil {
		return nil, fmt.Errorf("failed to open store at %s: %w", dir, err)
	}

	if mode == ReadWrite {
		err = db.Update(func(tx *bolt.Tx) error {
			_, err := tx.CreateBucketIfNotExists(profilesBucket)
			return err
		})
		if err != nil {
			db.Close()
			return nil, fmt.Errorf("failed to initialize store: %w", err)
		}
	}

	return &Store{db: db, mode: mode}, nil
}

// Close releases the database handle.
func (s *Store) Close() error {
	return s.db.Close()
}

// Store appends embedding to the profile's sample list and commits the
// updated list atomically. Returns the new sample count. A failed write
// leaves the previously committed record intact.
func (s *Store) Store(name string, embedding []float32) (int, error) {
	if s.mode == ReadOnly {
		return 0, ErrReadOnly
	}
	if name == "" {
		return 0, errors.New("profile name must not be empty")
	}
	if len(embedding) == 0 {
		return 0, errors.New("embedding must not be empty")
	}

	var count int
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)

		var samples [][]float32
		if raw := b.Get([]byte(name)); raw != nil {
			var err error
			samples, err = decodeRecord(raw)
			if err != nil {
				return err
			}
		}

		if len(samples) > 0 && len(samples[0]) != len(embedding) {
			return fmt.Errorf("%w: profile %q holds %d-dim samples, got %d",
				ErrDimensionMismatch, name, len(samples[0]), len(embedding))
		}

		samples = append(samples, embedding)
		if err := b.Put([]byte(name), encodeRecord(samples)); err != nil {
			return fmt.Errorf("failed to write profile %q: %w", name, err)
		}
		count = len(samples)
		return nil
	})
	if err != nil {
		return 0, err
	}
	return count, nil
}

// Get returns all samples stored for a profile, empty if the profile
// does not exist.
func (s *Store) Get(name string) ([][]float32, error) {
	var samples [][]float32
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b == nil {
			return nil
		}
		raw := b.Get([]byte(name))
		if raw == nil {
			return nil
		}
		var err error
		samples, err = decodeRecord(raw)
		return err
	})
	if err != nil {
		return nil, err
	}
	return samples, nil
}

// GetAll returns every profile and its samples.
func (s *Store) GetAll() (map[string][][]float32, error) {
	profiles := make(map[string][][]float32)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, v []byte) error {
			samples, err := decodeRecord(v)
			if err != nil {
				return fmt.Errorf("profile %q: %w", string(k), err)
			}
			profiles[string(k)] = samples
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return profiles, nil
}

// Delete removes a profile. Reports whether it existed.
func (s *Store) Delete(name string) (bool, error) {
	if s.mode == ReadOnly {
		return false, ErrReadOnly
	}
	var found bool
	err := s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b.Get([]byte(name)) == nil {
			return nil
		}
		found = true
		return b.Delete([]byte(name))
	})
	if err != nil {
		return false, fmt.Errorf("failed to delete profile %q: %w", name, err)
	}
	return found, nil
}

// Clear removes all profiles.
func (s *Store) Clear() error {
	if s.mode == ReadOnly {
		return ErrReadOnly
	}
	err := s.db.Update(func(tx *bolt.Tx) error {
		if err := tx.DeleteBucket(profilesBucket); err != nil {
			return err
		}
		_, err := tx.CreateBucket(profilesBucket)
		return err
	})
	if err != nil {
		return fmt.Errorf("failed to clear store: %w", err)
	}
	return nil
}

// Size returns the number of distinct profiles.
func (s *Store) Size() (int, error) {
	var n int
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b == nil {
			return nil
		}
		n = b.Stats().KeyN
		return nil
	})
	if err != nil {
		return 0, err
	}
	return n, nil
}

// Names returns all profile names sorted by bucket order (lexicographic).
func (s *Store) Names() ([]string, error) {
	var names []string
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(profilesBucket)
		if b == nil {
			return nil
		}
		return b.ForEach(func(k, _ []byte) error {
			names = append(names, string(k))
			return nil
		})
	})
	if err != nil {
		return nil, err
	}
	return names, nil
}
