package mapstore

import (
	"fmt"
	"time"

	"github.com/cespare/xxhash/v2"
	"github.com/vmihailenco/msgpack/v5"
	bolt "go.etcd.io/bbolt"
)

var bucketMappings = []byte("mappings")

// Entry records where one decompiled input landed and what its content
// looked like at the time.
type Entry struct {
	Source    string    `msgpack:"source" json:"source"`
	Output    string    `msgpack:"output" json:"output"`
	Sidecar   string    `msgpack:"sidecar,omitempty" json:"sidecar,omitempty"`
	Hash      uint64    `msgpack:"hash" json:"hash"`
	Partial   bool      `msgpack:"partial" json:"partial"`
	DecodedAt time.Time `msgpack:"decoded_at" json:"decoded_at"`
}

// Store is the persistent decompile index: source-to-output mappings
// plus a content hash per input so unchanged inputs can be skipped on
// re-runs. That skip is what makes re-decompiling a large install
// tolerable when only a few files changed.
type Store struct {
	db *bolt.DB
}

// Open opens or creates the index file at path.
func Open(path string) (*Store, error) {
	db, err := bolt.Open(path, 0o600, &bolt.Options{Timeout: time.Second})
	if err != nil {
		return nil, fmt.Errorf("opening index %s: %w", path, err)
	}
	err = db.Update(func(tx *bolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketMappings)
		return err
	})
	if err != nil {
		db.Close()
		return nil, fmt.Errorf("initializing index %s: %w", path, err)
	}
	return &Store{db: db}, nil
}

func (s *Store) Close() error {
	return s.db.Close()
}

// Hash is the content hash recorded per input.
func Hash(data []byte) uint64 {
	return xxhash.Sum64(data)
}

// Put stores or replaces the entry for its source path.
func (s *Store) Put(e Entry) error {
	raw, err := msgpack.Marshal(e)
	if err != nil {
		return fmt.Errorf("encoding entry for %s: %w", e.Source, err)
	}
	return s.db.Update(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMappings).Put([]byte(e.Source), raw)
	})
}

// Get returns the entry for a source path, if one was ever recorded.
func (s *Store) Get(source string) (Entry, bool, error) {
	var e Entry
	found := false
	err := s.db.View(func(tx *bolt.Tx) error {
		raw := tx.Bucket(bucketMappings).Get([]byte(source))
		if raw == nil {
			return nil
		}
		found = true
		return msgpack.Unmarshal(raw, &e)
	})
	if err != nil {
		return Entry{}, false, fmt.Errorf("reading entry for %s: %w", source, err)
	}
	return e, found, nil
}

// Unchanged reports whether the recorded hash for source matches the
// given content, meaning the input can be skipped.
func (s *Store) Unchanged(source string, data []byte) (bool, error) {
	e, found, err := s.Get(source)
	if err != nil || !found {
		return false, err
	}
	return e.Hash == Hash(data), nil
}

// All returns every recorded entry, ordered by source path.
func (s *Store) All() ([]Entry, error) {
	var out []Entry
	err := s.db.View(func(tx *bolt.Tx) error {
		return tx.Bucket(bucketMappings).ForEach(func(_, raw []byte) error {
			var e Entry
			if err := msgpack.Unmarshal(raw, &e); err != nil {
				return err
			}
			out = append(out, e)
			return nil
		})
	})
	if err != nil {
		return nil, fmt.Errorf("listing entries: %w", err)
	}
	return out, nil
}
