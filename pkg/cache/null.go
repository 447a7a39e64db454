package cache

// NullCache is a no-op cache for runs with caching disabled. Every read
// misses and writes are discarded.
type NullCache struct{}

var _ Cache = (*NullCache)(nil)

// Get always reports a miss.
func (NullCache) Get(string) ([]byte, error) {
	return nil, ErrCacheMiss
}

// Set discards the artifact.
func (NullCache) Set(string, []byte) error {
	return nil
}

// Delete does nothing.
func (NullCache) Delete(string) error {
	return nil
}

// Close does nothing.
func (NullCache) Close() error {
	return nil
}
