package cache

import (
	"time"
)

// CacheService is the backing store for the scraper's rate-limit guard.
// When the deal site answers 429 a block key is written here and the
// scraper refuses further fetches until the key expires.
type CacheService interface {
	// Get retrieves a value from the cache
	Get(key string) ([]byte, error)

	// Set stores a value in the cache with an expiration time
	Set(key string, value []byte, expiration time.Duration) error

	// Delete removes a value from the cache
	Delete(key string) error
}
