package lock

import (
	"context"
	"testing"
	"time"

	"github.com/alicebob/miniredis/v2"
	goredis "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "repdata/pkg/errors"
	"repdata/pkg/models"
)

func setupLocker(t *testing.T, ttl time.Duration) (*Locker, *miniredis.Miniredis) {
	t.Helper()
	mr := miniredis.RunT(t)
	client := goredis.NewClient(&goredis.Options{Addr: mr.Addr()})
	l := NewFromClient(client, "test:", ttl)
	t.Cleanup(func() { l.Close() })
	return l, mr
}

func TestAcquireRelease(t *testing.T) {
	ctx := context.Background()
	l, mr := setupLocker(t, time.Minute)

	held, err := l.Acquire(ctx, "repdata")
	require.NoError(t, err)
	assert.True(t, mr.Exists("test:lock:repdata"))
	assert.Equal(t, held.Token(), mustGet(t, mr, "test:lock:repdata"))

	require.NoError(t, held.Release(ctx))
	assert.False(t, mr.Exists("test:lock:repdata"))

	again, err := l.Acquire(ctx, "repdata")
	require.NoError(t, err)
	require.NoError(t, again.Release(ctx))
}

func TestAcquireContended(t *testing.T) {
	ctx := context.Background()
	l, _ := setupLocker(t, time.Minute)

	first, err := l.Acquire(ctx, "repdata")
	require.NoError(t, err)

	_, err = l.Acquire(ctx, "repdata")
	require.Error(t, err)
	assert.Equal(t, apperrors.ErrCodeLockHeld, apperrors.GetErrorCode(err))

	var appErr *apperrors.AppError
	require.ErrorAs(t, err, &appErr)
	assert.Equal(t, first.Token(), appErr.Context["holder"])

	other, err := l.Acquire(ctx, "other_table")
	require.NoError(t, err)
	require.NoError(t, other.Release(ctx))
}

func TestLockExpires(t *testing.T) {
	ctx := context.Background()
	l, mr := setupLocker(t, time.Second)

	stale, err := l.Acquire(ctx, "repdata")
	require.NoError(t, err)

	mr.FastForward(2 * time.Second)

	fresh, err := l.Acquire(ctx, "repdata")
	require.NoError(t, err)

	// The stale holder must not free the new holder's lock.
	require.NoError(t, stale.Release(ctx))
	assert.Equal(t, fresh.Token(), mustGet(t, mr, "test:lock:repdata"))
}

func TestAcquireUnavailable(t *testing.T) {
	l, mr := setupLocker(t, time.Minute)
	mr.Close()

	_, err := l.Acquire(context.Background(), "repdata")
	assert.Equal(t, apperrors.ErrCodeLockFailed, apperrors.GetErrorCode(err))
}

func TestNewRejectsBadTTL(t *testing.T) {
	_, err := New(models.Lock{Enabled: true, Addr: "localhost:6379", TTL: "soon"})
	assert.Equal(t, apperrors.ErrCodeConfigInvalid, apperrors.GetErrorCode(err))

	l, err := New(models.Lock{Enabled: true, Addr: "localhost:6379", TTL: "5m"})
	require.NoError(t, err)
	assert.Equal(t, 5*time.Minute, l.ttl)
	assert.Equal(t, defaultPrefix, l.prefix)
	l.Close()
}

func mustGet(t *testing.T, mr *miniredis.Miniredis, key string) string {
	t.Helper()
	v, err := mr.Get(key)
	require.NoError(t, err)
	return v
}
