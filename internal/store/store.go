package store

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/mmcdole/marquee/internal/domain"
	bolt "go.etcd.io/bbolt"
)

// Bucket names
var (
	BucketSession     = []byte("session")
	BucketCredentials = []byte("credentials")
)

var allBuckets = [][]byte{BucketSession, BucketCredentials}

// Store is the local key-value space backed by BoltDB.
// Each bucket is an independent scope handed out via Bucket.
type Store struct {
	db *bolt.DB
	mu sync.RWMutex // Protects memory cache

	// In-memory cache for hot-path reads (promoted on access).
	// Also the only storage in memory-only mode.
	cache map[string]string
}

// Open opens (or creates) the store at path. An empty path gives a memory-only store.
func Open(path string) (*Store, error) {
	if path == "" {
		return &Store{cache: make(map[string]string)}, nil
	}

	path = expandHome(path)
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create store directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open bolt db: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		for _, bucket := range allBuckets {
			if _, err := tx.CreateBucketIfNotExists(bucket); err != nil {
				return err
			}
		}
		return nil
	})
	if err != nil {
		db.Close()
		return nil, err
	}

	return &Store{db: db, cache: make(map[string]string)}, nil
}

func expandHome(path string) string {
	if !strings.HasPrefix(path, "~") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, path[1:])
}

func (s *Store) Close() error {
	if s.db != nil {
		return s.db.Close()
	}
	return nil
}

// Bucket returns a key-value scope over one bucket
func (s *Store) Bucket(name []byte) *Bucket {
	return &Bucket{store: s, name: name}
}

// === Generic helpers ===

func (s *Store) get(bucket []byte, key string) (string, bool, error) {
	cacheKey := string(bucket) + ":" + key

	s.mu.RLock()
	if v, ok := s.cache[cacheKey]; ok {
		s.mu.RUnlock()
		return v, true, nil
	}
	s.mu.RUnlock()

	if s.db == nil {
		return "", false, nil
	}

	var (
		value string
		found bool
	)
	err := s.db.View(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		if v := b.Get([]byte(key)); v != nil {
			value = string(v) // copies out of the mmap
			found = true
		}
		return nil
	})
	if err != nil {
		return "", false, err
	}
	if !found {
		return "", false, nil
	}

	s.mu.Lock()
	s.cache[cacheKey] = value
	s.mu.Unlock()

	return value, true, nil
}

func (s *Store) set(bucket []byte, key, value string) error {
	cacheKey := string(bucket) + ":" + key

	if s.db != nil {
		err := s.db.Update(func(tx *bolt.Tx) error {
			b := tx.Bucket(bucket)
			if b == nil {
				return fmt.Errorf("bucket %s missing", bucket)
			}
			return b.Put([]byte(key), []byte(value))
		})
		if err != nil {
			// Drop the cached copy so a failed write is never observed as success
			s.mu.Lock()
			delete(s.cache, cacheKey)
			s.mu.Unlock()
			return err
		}
	}

	s.mu.Lock()
	s.cache[cacheKey] = value
	s.mu.Unlock()
	return nil
}

func (s *Store) delete(bucket []byte, key string) error {
	cacheKey := string(bucket) + ":" + key

	s.mu.Lock()
	delete(s.cache, cacheKey)
	s.mu.Unlock()

	if s.db == nil {
		return nil
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		b := tx.Bucket(bucket)
		if b == nil {
			return nil
		}
		return b.Delete([]byte(key))
	})
}

// Bucket implements domain.SessionStore over a single BoltDB bucket.
type Bucket struct {
	store *Store
	name  []byte
}

var _ domain.SessionStore = (*Bucket)(nil)

func (b *Bucket) Get(key string) (string, bool, error) {
	v, ok, err := b.store.get(b.name, key)
	if err != nil {
		return "", false, &domain.IOError{Op: "get", Key: key, Err: err}
	}
	return v, ok, nil
}

func (b *Bucket) Set(key, value string) error {
	if err := b.store.set(b.name, key, value); err != nil {
		return &domain.IOError{Op: "set", Key: key, Err: err}
	}
	return nil
}

func (b *Bucket) Remove(key string) error {
	if err := b.store.delete(b.name, key); err != nil {
		return &domain.IOError{Op: "remove", Key: key, Err: err}
	}
	return nil
}
