// Package tombstone persists the set of identity keys the user explicitly
// deleted so that resynchronization never resurrects them.
package tombstone

import (
	"encoding/json"
	"fmt"
	"log/slog"

	"memoflow/internal/storage"
)

// KV is the local persistence surface the store rides on.
type KV interface {
	Get(key string) (string, error)
	Set(key, value string) error
}

// Store is an append-only set of deleted identity keys backed by the local
// key/value store. Growth is unbounded; there is no expiry or compaction.
type Store struct {
	kv    KV
	keys  []string
	index map[string]struct{}
}

// Load reads the persisted key list. A missing or corrupt entry yields an
// empty set, never an error.
func Load(kv KV) *Store {
	s := &Store{kv: kv, index: make(map[string]struct{})}

	raw, err := kv.Get(storage.KeyDeletedMemoKeys)
	if err != nil {
		return s
	}

	var keys []string
	if err := json.Unmarshal([]byte(raw), &keys); err != nil {
		slog.Warn("discarding corrupt tombstone list", "error", err)
		return s
	}
	for _, k := range keys {
		if _, dup := s.index[k]; dup {
			continue
		}
		s.index[k] = struct{}{}
		s.keys = append(s.keys, k)
	}
	return s
}

// Record adds key to the set and persists it. Recording an already-present
// key is a no-op.
func (s *Store) Record(key string) error {
	if _, ok := s.index[key]; ok {
		return nil
	}
	s.index[key] = struct{}{}
	s.keys = append(s.keys, key)

	data, err := json.Marshal(s.keys)
	if err != nil {
		return fmt.Errorf("encoding tombstone list: %w", err)
	}
	if err := s.kv.Set(storage.KeyDeletedMemoKeys, string(data)); err != nil {
		return fmt.Errorf("saving tombstone list: %w", err)
	}
	return nil
}

// Contains reports whether key was deleted by the user.
func (s *Store) Contains(key string) bool {
	_, ok := s.index[key]
	return ok
}

// Keys returns the recorded keys in insertion order.
func (s *Store) Keys() []string {
	out := make([]string, len(s.keys))
	copy(out, s.keys)
	return out
}

// Len returns the number of recorded keys.
func (s *Store) Len() int {
	return len(s.keys)
}
