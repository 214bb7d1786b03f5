// Package runlock serializes pipeline runs of the same date across
// processes with a Redis key.
package runlock

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

var (
	// ErrLocked is returned when another run already holds the date
	ErrLocked = errors.New("run already in progress for date")
	// ErrNotHeld is returned on release when the lock expired or was taken over
	ErrNotHeld = errors.New("run lock no longer held")
)

const keyPrefix = "stock-warehouse:run:"

// delete only if the stored token is ours
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Locker hands out per-date run locks
type Locker struct {
	client *redis.Client
	ttl    time.Duration
}

// New creates a new run locker whose locks expire after ttl
func New(client *redis.Client, ttl time.Duration) *Locker {
	return &Locker{client: client, ttl: ttl}
}

// Lock is a held run lock
type Lock struct {
	client *redis.Client
	key    string
	token  string
}

// Acquire takes the lock for date or returns ErrLocked
func (l *Locker) Acquire(ctx context.Context, date time.Time) (*Lock, error) {
	key := keyPrefix + models.TruncateDate(date).Format(models.DateLayout)
	token := uuid.NewString()

	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return nil, fmt.Errorf("failed to acquire run lock: %w", err)
	}
	if !ok {
		return nil, fmt.Errorf("%w %s", ErrLocked, key[len(keyPrefix):])
	}
	return &Lock{client: l.client, key: key, token: token}, nil
}

// Release deletes the key if this lock still owns it
func (lk *Lock) Release(ctx context.Context) error {
	n, err := releaseScript.Run(ctx, lk.client, []string{lk.key}, lk.token).Int()
	if err != nil {
		return fmt.Errorf("failed to release run lock: %w", err)
	}
	if n == 0 {
		return ErrNotHeld
	}
	return nil
}

// Key returns the Redis key guarding the run
func (lk *Lock) Key() string {
	return lk.key
}
