//go:build !js && !wasm

// Package cache keeps fingerprint bundles keyed by the content of the media
// they were computed from, so re-submitting the same bytes skips decoding.
package cache

import (
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/OneOfOne/xxhash"
	"github.com/dgraph-io/badger/v3"

	"github.com/himanishpuri/MediaDNA/internal/fingerprint"
)

// DefaultTTL bounds how long a cached bundle is kept.
const DefaultTTL = 7 * 24 * time.Hour

// BundleCache is a badger-backed content-addressed bundle store.
type BundleCache struct {
	db     *badger.DB
	ttl    time.Duration
	hits   atomic.Int64
	misses atomic.Int64
}

// Open opens or creates the cache under dir. An empty dir keeps the cache in
// memory.
func Open(dir string, ttl time.Duration) (*BundleCache, error) {
	opts := badger.DefaultOptions(dir).WithLogger(nil)
	if dir == "" {
		opts = badger.DefaultOptions("").WithInMemory(true).WithLogger(nil)
	}
	db, err := badger.Open(opts)
	if err != nil {
		return nil, fmt.Errorf("badger open: %w", err)
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &BundleCache{db: db, ttl: ttl}, nil
}

func (c *BundleCache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	return c.db.Close()
}

// Key builds the cache key for raw media bytes under a pipeline signature.
// The signature keeps bundles computed with different settings apart.
func Key(signature string, data []byte) []byte {
	return makeKey(signature, xxhash.Checksum64(data))
}

// KeyForFile streams the file at path through xxhash.
func KeyForFile(signature, path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	h := xxhash.New64()
	if _, err := io.Copy(h, f); err != nil {
		return nil, fmt.Errorf("hashing %s: %w", path, err)
	}
	return makeKey(signature, h.Sum64()), nil
}

func makeKey(signature string, sum uint64) []byte {
	key := make([]byte, 0, len(signature)+9)
	key = append(key, signature...)
	key = append(key, '/')
	return binary.BigEndian.AppendUint64(key, sum)
}

// Get returns the cached bundle for key. ok is false on a miss.
func (c *BundleCache) Get(key []byte) (b *fingerprint.Bundle, ok bool, err error) {
	err = c.db.View(func(txn *badger.Txn) error {
		item, err := txn.Get(key)
		if err != nil {
			return err
		}
		return item.Value(func(val []byte) error {
			b = &fingerprint.Bundle{}
			return json.Unmarshal(val, b)
		})
	})
	if errors.Is(err, badger.ErrKeyNotFound) {
		c.misses.Add(1)
		return nil, false, nil
	}
	if err != nil {
		return nil, false, fmt.Errorf("cache get: %w", err)
	}
	c.hits.Add(1)
	return b, true, nil
}

// Put stores b under key with the cache TTL.
func (c *BundleCache) Put(key []byte, b *fingerprint.Bundle) error {
	val, err := json.Marshal(b)
	if err != nil {
		return fmt.Errorf("cache encode: %w", err)
	}
	return c.db.Update(func(txn *badger.Txn) error {
		return txn.SetEntry(badger.NewEntry(key, val).WithTTL(c.ttl))
	})
}

// Stats returns the hit and miss counters since Open.
func (c *BundleCache) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
