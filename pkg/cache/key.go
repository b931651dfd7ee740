package cache

import (
	"crypto/sha256"
	"encoding/hex"
)

// CacheKey identifies a cached fetch body.
type CacheKey struct {
	// URL is the full target URL as supplied by the caller.
	URL string
}

// Key builds a cache key for a target URL.
func Key(url string) CacheKey {
	return CacheKey{URL: url}
}

// String generates a deterministic redis key. Target URLs are opaque
// caller-supplied strings, so the key hashes the whole URL instead of
// composing path and query segments.
//
// Format: fanout:body:<hex sha256 of url>
func (k CacheKey) String() string {
	sum := sha256.Sum256([]byte(k.URL))
	return "fanout:body:" + hex.EncodeToString(sum[:])
}
