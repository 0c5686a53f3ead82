// Package kvstore is a small JSON document store on top of bbolt. Each key
// holds one JSON value, mirroring the browser storage the viewer state was
// designed around.
package kvstore

import (
	"encoding/json"
	"errors"
	"fmt"
	"sync"
	"time"

	bbolt "go.etcd.io/bbolt"
)

var bucketState = []byte("state")

// ErrClosed is returned by operations on a closed store.
var ErrClosed = errors.New("kvstore closed")

// Store is the key-value contract the watch state service depends on.
type Store interface {
	// Get decodes the value at key into dst. It reports false when the key is absent.
	Get(key string, dst any) (bool, error)
	Set(key string, v any) error
	Delete(key string) error
	Keys() ([]string, error)
	Close() error
}

type boltKV struct {
	db *bbolt.DB
}

// Open opens (or creates) the database at path.
func Open(path string) (Store, error) {
	db, err := bbolt.Open(path, 0o600, &bbolt.Options{Timeout: 1 * time.Second})
	if err != nil {
		return nil, err
	}
	if err := db.Update(func(tx *bbolt.Tx) error {
		_, err := tx.CreateBucketIfNotExists(bucketState)
		return err
	}); err != nil {
		_ = db.Close()
		return nil, err
	}
	return &boltKV{db: db}, nil
}

func (s *boltKV) Get(key string, dst any) (bool, error) {
	var raw []byte
	err := s.db.View(func(tx *bbolt.Tx) error {
		if v := tx.Bucket(bucketState).Get([]byte(key)); v != nil {
			raw = append([]byte(nil), v...)
		}
		return nil
	})
	if err != nil {
		return false, wrapClosed(err)
	}
	if raw == nil {
		return false, nil
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return false, fmt.Errorf("decode %s: %w", key, err)
	}
	return true, nil
}

func (s *boltKV) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return fmt.Errorf("encode %s: %w", key, err)
	}
	return wrapClosed(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Put([]byte(key), raw)
	}))
}

func (s *boltKV) Delete(key string) error {
	return wrapClosed(s.db.Update(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).Delete([]byte(key))
	}))
}

func (s *boltKV) Keys() ([]string, error) {
	var keys []string
	err := s.db.View(func(tx *bbolt.Tx) error {
		return tx.Bucket(bucketState).ForEach(func(k, _ []byte) error {
			keys = append(keys, string(k))
			return nil
		})
	})
	return keys, wrapClosed(err)
}

func (s *boltKV) Close() error { return s.db.Close() }

func wrapClosed(err error) error {
	if errors.Is(err, bbolt.ErrDatabaseNotOpen) {
		return fmt.Errorf("%w: %v", ErrClosed, err)
	}
	return err
}

// GetOr returns the value at key, or fallback when the key is absent.
func GetOr[T any](s Store, key string, fallback T) (T, error) {
	var v T
	ok, err := s.Get(key, &v)
	if err != nil {
		return fallback, err
	}
	if !ok {
		return fallback, nil
	}
	return v, nil
}

// Memory is an in-process Store. Values are JSON round-tripped so callers
// observe the same copy semantics as the bolt store.
type Memory struct {
	mu   sync.RWMutex
	data map[string][]byte
}

// NewMemory returns an empty in-memory store.
func NewMemory() *Memory { return &Memory{data: make(map[string][]byte)} }

func (m *Memory) Get(key string, dst any) (bool, error) {
	m.mu.RLock()
	raw, ok := m.data[key]
	m.mu.RUnlock()
	if !ok {
		return false, nil
	}
	return true, json.Unmarshal(raw, dst)
}

func (m *Memory) Set(key string, v any) error {
	raw, err := json.Marshal(v)
	if err != nil {
		return err
	}
	m.mu.Lock()
	m.data[key] = raw
	m.mu.Unlock()
	return nil
}

func (m *Memory) Delete(key string) error {
	m.mu.Lock()
	delete(m.data, key)
	m.mu.Unlock()
	return nil
}

func (m *Memory) Keys() ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	return keys, nil
}

func (m *Memory) Close() error { return nil }

var _ Store = (*boltKV)(nil)
var _ Store = (*Memory)(nil)
