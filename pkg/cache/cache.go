// Package cache provides optional storage for encoded render artifacts,
// so repeated renders of the same volume with the same parameters can
// skip the pipeline entirely. The rendering core never depends on it.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
)

// ErrCacheMiss is returned when a key has no entry.
var ErrCacheMiss = errors.New("cache miss")

// ErrCacheExpired is returned when an entry exists but has outlived its
// TTL. The entry is removed as a side effect.
var ErrCacheExpired = errors.New("cache entry expired")

// Cache stores encoded artifacts keyed by content hash.
type Cache interface {
	// Get returns the artifact stored under key, ErrCacheMiss when
	// there is none, or ErrCacheExpired when it has lapsed.
	Get(key string) ([]byte, error)

	// Set stores an artifact under key, replacing any previous entry.
	Set(key string, data []byte) error

	// Delete removes the entry for key if present.
	Delete(key string) error

	// Close releases any resources held by the cache.
	Close() error
}

// Key derives the cache key for a render artifact from the raw volume
// bytes, the render option fingerprint, and an output selector such as
// the slice index or archive marker.
func Key(volume []byte, fingerprint, selector string) string {
	h := sha256.New()
	h.Write(volume)
	io.WriteString(h, "\x00")
	io.WriteString(h, fingerprint)
	io.WriteString(h, "\x00")
	io.WriteString(h, selector)
	return hex.EncodeToString(h.Sum(nil))
}
