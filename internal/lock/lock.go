// Package lock guards the destination tables against concurrent replacement.
package lock

import (
	"context"
	"crypto/rand"
	"fmt"
	"time"

	"github.com/oklog/ulid/v2"
	goredis "github.com/redis/go-redis/v9"

	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

// DefaultTTL bounds how long a crashed run can hold the lock.
const DefaultTTL = 30 * time.Minute

const defaultPrefix = "repdata:"

// releaseScript deletes the key only while it still holds our token.
var releaseScript = goredis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out single-writer locks keyed by destination.
type Locker struct {
	client *goredis.Client
	prefix string
	ttl    time.Duration
}

// Lock is a held lock. Release it exactly once.
type Lock struct {
	locker *Locker
	key    string
	token  string
}

// New creates a Locker from config. The connection is not checked until
// the first Acquire.
func New(cfg models.Lock) (*Locker, error) {
	ttl := DefaultTTL
	if cfg.TTL != "" {
		d, err := time.ParseDuration(cfg.TTL)
		if err != nil || d <= 0 {
			return nil, apperrors.ConfigError(fmt.Sprintf("invalid lock ttl %q", cfg.TTL), "lock.ttl")
		}
		ttl = d
	}
	client := goredis.NewClient(&goredis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	return NewFromClient(client, cfg.KeyPrefix, ttl), nil
}

// NewFromClient creates a Locker over an existing client.
func NewFromClient(client *goredis.Client, prefix string, ttl time.Duration) *Locker {
	if prefix == "" {
		prefix = defaultPrefix
	}
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &Locker{client: client, prefix: prefix, ttl: ttl}
}

// Close closes the underlying client.
func (l *Locker) Close() error {
	return l.client.Close()
}

func (l *Locker) lockKey(name string) string {
	return l.prefix + "lock:" + name
}

// Acquire takes the lock for name or fails with ErrCodeLockHeld when another
// run holds it.
func (l *Locker) Acquire(ctx context.Context, name string) (*Lock, error) {
	token := ulid.MustNew(ulid.Timestamp(time.Now()), rand.Reader).String()
	key := l.lockKey(name)

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrCodeLockFailed, "Failed to acquire run lock").
			WithContext("key", key)
	}
	if !ok {
		holder, _ := l.client.Get(ctx, key).Result()
		return nil, apperrors.New(apperrors.ErrCodeLockHeld, "Another run is replacing the destination tables").
			WithContext("key", key).
			WithContext("holder", holder).
			WithSuggestions(
				"Wait for the running job to finish",
				fmt.Sprintf("If the holder crashed the lock expires after %s", l.ttl),
			)
	}
	return &Lock{locker: l, key: key, token: token}, nil
}

// Token identifies this holder.
func (k *Lock) Token() string {
	return k.token
}

// Release frees the lock if it is still ours. Releasing an expired or
// stolen lock is not an error.
func (k *Lock) Release(ctx context.Context) error {
	if err := releaseScript.Run(ctx, k.locker.client, []string{k.key}, k.token).Err(); err != nil {
		return apperrors.Wrap(err, apperrors.ErrCodeLockFailed, "Failed to release run lock").
			WithContext("key", k.key)
	}
	return nil
}
