package escher

import (
	"crypto/hmac"
	"strings"
	"sync"
	"time"
)

// KeyDeriver derives signing keys. Implementations may memoize.
// Reference: AWS SDK v4 signer v4.go keyDerivator interface
type KeyDeriver interface {
	DeriveKey(keyID string, secret []byte, algo HashAlgo, algoPrefix string, t SigningTime, credentialScope string) []byte
}

// derivedKey represents a cached derived key.
type derivedKey struct {
	secret []byte
	date   time.Time
	key    []byte
}

// lookupKey creates a cache key from key id, algorithm and scope.
func lookupKey(keyID string, algo HashAlgo, algoPrefix, credentialScope string) string {
	var b strings.Builder
	b.Grow(len(keyID) + len(algo) + len(algoPrefix) + len(credentialScope) + 3)
	b.WriteString(keyID)
	b.WriteRune('|')
	b.WriteString(algoPrefix)
	b.WriteRune('|')
	b.WriteString(string(algo))
	b.WriteRune('|')
	b.WriteString(credentialScope)
	return b.String()
}

// isSameDay checks if two times are on the same day.
func isSameDay(t1, t2 time.Time) bool {
	y1, m1, d1 := t1.Date()
	y2, m2, d2 := t2.Date()
	return y1 == y2 && m1 == m2 && d1 == d2
}

// CachingKeyDeriver caches one derived key per key id, algorithm and
// credential scope. An entry is replaced when the day or the secret
// changes. It is safe for concurrent use.
// Reference: AWS SDK v4 signer internal/v4/cache.go derivedKeyCache
type CachingKeyDeriver struct {
	mu     sync.RWMutex
	values map[string]derivedKey
}

// NewCachingKeyDeriver creates an empty CachingKeyDeriver.
func NewCachingKeyDeriver() *CachingKeyDeriver {
	return &CachingKeyDeriver{
		values: make(map[string]derivedKey),
	}
}

func (c *CachingKeyDeriver) get(key string, secret []byte, t time.Time) ([]byte, bool) {
	entry, ok := c.values[key]
	if !ok {
		return nil, false
	}
	if !hmac.Equal(entry.secret, secret) {
		return nil, false
	}
	if !isSameDay(t, entry.date) {
		return nil, false
	}
	return entry.key, true
}

// DeriveKey returns a cached key or derives and stores a new one.
func (c *CachingKeyDeriver) DeriveKey(keyID string, secret []byte, algo HashAlgo, algoPrefix string, t SigningTime, credentialScope string) []byte {
	cacheKey := lookupKey(keyID, algo, algoPrefix, credentialScope)

	c.mu.RLock()
	if key, ok := c.get(cacheKey, secret, t.Time); ok {
		c.mu.RUnlock()
		return key
	}
	c.mu.RUnlock()

	c.mu.Lock()
	defer c.mu.Unlock()
	if key, ok := c.get(cacheKey, secret, t.Time); ok {
		return key
	}

	key := DeriveKey(algo, algoPrefix, secret, t.ShortDate(), credentialScope)
	c.values[cacheKey] = derivedKey{
		secret: append([]byte(nil), secret...),
		date:   t.Time,
		key:    key,
	}
	return key
}

// Len returns the number of cached keys.
func (c *CachingKeyDeriver) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.values)
}
