package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// FileCache persists entries as JSON files in a directory. Entries
// carry their creation time so a TTL can expire them lazily on read.
type FileCache struct {
	dir string
	ttl time.Duration
}

var _ Cache = (*FileCache)(nil)

// entry is the on-disk representation of one cached artifact.
type entry struct {
	CreatedAt time.Time `json:"created_at"`
	Data      []byte    `json:"data"`
}

// NewFileCache opens a file cache rooted at dir, creating it if needed.
// A ttl of 0 keeps entries until they are deleted.
func NewFileCache(dir string, ttl time.Duration) (*FileCache, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create cache directory: %w", err)
	}
	return &FileCache{dir: dir, ttl: ttl}, nil
}

// Get returns the artifact stored under key and expires stale entries.
func (c *FileCache) Get(key string) ([]byte, error) {
	data, err := os.ReadFile(c.path(key))
	if os.IsNotExist(err) {
		return nil, ErrCacheMiss
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read cache entry: %w", err)
	}

	var e entry
	if err := json.Unmarshal(data, &e); err != nil {
		// A corrupt entry behaves like a miss after cleanup
		_ = os.Remove(c.path(key))
		return nil, ErrCacheMiss
	}

	if c.ttl > 0 && time.Since(e.CreatedAt) > c.ttl {
		_ = os.Remove(c.path(key))
		return nil, ErrCacheExpired
	}

	return e.Data, nil
}

// Set stores an artifact under key, replacing any previous entry.
func (c *FileCache) Set(key string, data []byte) error {
	e := entry{CreatedAt: time.Now(), Data: data}
	encoded, err := json.Marshal(e)
	if err != nil {
		return fmt.Errorf("failed to encode cache entry: %w", err)
	}

	// Write to a temp file first so readers never see partial entries
	tmp, err := os.CreateTemp(c.dir, "entry-*")
	if err != nil {
		return fmt.Errorf("failed to create cache entry: %w", err)
	}
	if _, err := tmp.Write(encoded); err != nil {
		tmp.Close()
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}
	if err := tmp.Close(); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to write cache entry: %w", err)
	}

	if err := os.Rename(tmp.Name(), c.path(key)); err != nil {
		_ = os.Remove(tmp.Name())
		return fmt.Errorf("failed to store cache entry: %w", err)
	}
	return nil
}

// Delete removes the entry for key if present.
func (c *FileCache) Delete(key string) error {
	err := os.Remove(c.path(key))
	if err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to delete cache entry: %w", err)
	}
	return nil
}

// Close releases nothing for a file cache but completes the interface.
func (c *FileCache) Close() error {
	return nil
}

// path maps a key to its entry file. Keys are hashed so arbitrary
// strings stay safe as filenames.
func (c *FileCache) path(key string) string {
	sum := sha256.Sum256([]byte(key))
	return filepath.Join(c.dir, hex.EncodeToString(sum[:])+".json")
}
