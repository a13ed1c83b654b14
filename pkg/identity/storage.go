package identity

import (
	"fmt"
	"path/filepath"
	"sync"

	bolt "go.etcd.io/bbolt"
)

var bucketIdentity = []byte("identity")

// DurableScope persists plain string values across browsing sessions.
// Implementations must treat missing keys as (value "", ok false, nil error).
type DurableScope interface {
	Get(key string) (value string, ok bool, err error)
	Put(key, value string) error
	Close() error
}

// BoltScope implements DurableScope using BoltDB
type BoltScope struct {
	db *bolt.DB
}

// OpenBolt opens (or creates) the durable identity database under dataDir
func OpenBolt(dataDir string) (*BoltScope, error) {
	dbPath := filepath.Join(dataDir, "standlog.db")

	db, err := bolt.Open(dbPath, 0600, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketIdentity)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket: %w", err)
	}

	return &BoltScope{db: db}, nil
}

// Get reads a key from the identity bucket
func (s *BoltScope) Get(key string) (string, bool, error) {
	var value string
	var ok bool
	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket(bucketIdentity).Get([]byte(key))
		if data != nil {
			value = string(data)
			ok = true
		}
		return nil
	})
	return value, ok, err
}

// Put writes a key to the identity bucket
func (s *BoltScope) Put(key, value string) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketIdentity).Put([]byte(key), []byte(value))
	})
}

// Close closes the database
func (s *BoltScope) Close() error {
	return s.db.Close()
}

// MemoryScope implements DurableScope in memory, for tests and for hosts
// that disallow disk access. Values last only as long as the process.
type MemoryScope struct {
	mu   sync.RWMutex
	vals map[string]string
}

// NewMemoryScope creates an empty in-memory scope
func NewMemoryScope() *MemoryScope {
	return &MemoryScope{vals: make(map[string]string)}
}

func (s *MemoryScope) Get(key string) (string, bool, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	v, ok := s.vals[key]
	return v, ok, nil
}

func (s *MemoryScope) Put(key, value string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.vals[key] = value
	return nil
}

func (s *MemoryScope) Close() error { return nil }
