package index

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	bolt "go.etcd.io/bbolt"

	"github.com/On-Jun9/ShutterOrient/pkg/types"
)

const orientationBucket = "orientation"

// BoltStore keeps one JSON-encoded IndexEntry per ref in a bbolt bucket.
type BoltStore struct {
	db *bolt.DB
}

func OpenBolt(path string) (*BoltStore, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return nil, fmt.Errorf("failed to create index directory: %w", err)
	}

	db, err := bolt.Open(path, 0600, &bolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, fmt.Errorf("failed to open index database: %w", err)
	}

	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists([]byte(orientationBucket))
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to create bucket %s: %w", orientationBucket, err)
	}

	return &BoltStore{db: db}, nil
}

func (s *BoltStore) Lookup(ref types.ImageRef) (int, bool, error) {
	var entry types.IndexEntry
	var found bool

	err := s.db.View(func(tx *bolt.Tx) error {
		data := tx.Bucket([]byte(orientationBucket)).Get([]byte(ref))
		if data == nil {
			return nil
		}
		found = true
		return json.Unmarshal(data, &entry)
	})
	if err != nil {
		return 0, false, fmt.Errorf("failed to read %s: %w", ref, err)
	}
	return entry.Raw, found, nil
}

func (s *BoltStore) Set(ref types.ImageRef, raw int) error {
	if err := validate(ref, raw); err != nil {
		return err
	}

	data, err := json.Marshal(types.IndexEntry{Ref: ref, Raw: raw, UpdatedAt: time.Now()})
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}

	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(orientationBucket)).Put([]byte(ref), data)
	})
}

func (s *BoltStore) Delete(ref types.ImageRef) error {
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(orientationBucket)).Delete([]byte(ref))
	})
}

// List returns entries in key order.
func (s *BoltStore) List() ([]types.IndexEntry, error) {
	entries := []types.IndexEntry{}

	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket([]byte(orientationBucket)).ForEach(func(k, v []byte) error {
			var e types.IndexEntry
			if err := json.Unmarshal(v, &e); err != nil {
				return fmt.Errorf("failed to unmarshal %s: %w", k, err)
			}
			entries = append(entries, e)
			return nil
		})
	})
	return entries, err
}

func (s *BoltStore) Close() error {
	return s.db.Close()
}
