package keydb

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultRedisPrefix  = "escher:key:"
	DefaultRedisTimeout = 50 * time.Millisecond
)

// RedisGetter is the part of a redis client Redis uses. *redis.Client,
// *redis.Ring and *redis.ClusterClient implement it.
type RedisGetter interface {
	Get(ctx context.Context, key string) *redis.StringCmd
}

// RedisOptions configure a Redis key database.
type RedisOptions struct {
	// Prefix is prepended to the key id to form the redis key. Defaults
	// to DefaultRedisPrefix.
	Prefix string

	// Timeout bounds each lookup. Defaults to DefaultRedisTimeout.
	Timeout time.Duration
}

// Redis looks secrets up with GET prefix+keyID. Concurrent lookups of the
// same key id share one round trip. Redis errors are logged and reported
// as an unknown key.
type Redis struct {
	client  RedisGetter
	prefix  string
	timeout time.Duration
	group   singleflight.Group
}

// NewRedis creates a Redis key database using client.
func NewRedis(client RedisGetter, o RedisOptions) *Redis {
	if o.Prefix == "" {
		o.Prefix = DefaultRedisPrefix
	}
	if o.Timeout <= 0 {
		o.Timeout = DefaultRedisTimeout
	}
	return &Redis{
		client:  client,
		prefix:  o.Prefix,
		timeout: o.Timeout,
	}
}

// NewRedisClient creates a client for a single redis server.
func NewRedisClient(addr, password string) *redis.Client {
	return redis.NewClient(&redis.Options{Addr: addr, Password: password})
}

// Secret returns the secret stored under prefix+keyID.
func (r *Redis) Secret(keyID string) ([]byte, bool) {
	v, err, _ := r.group.Do(keyID, func() (interface{}, error) {
		ctx, cancel := context.WithTimeout(context.Background(), r.timeout)
		defer cancel()
		return r.client.Get(ctx, r.prefix+keyID).Bytes()
	})
	if errors.Is(err, redis.Nil) {
		log.Debugf("Key %s not found in redis", keyID)
		return nil, false
	}
	if err != nil {
		log.Errorf("Failed to look up key %s in redis: %v", keyID, err)
		return nil, false
	}

	secret, _ := v.([]byte)
	return secret, true
}
