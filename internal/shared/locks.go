package shared

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ErrLockHeld indicates another generation run holds the lock.
var ErrLockHeld = errors.New("lock already held")

// GenerationLockKey builds redis keys for settlement critical sections.
func GenerationLockKey(tenantID, periodID int64) string {
	return fmt.Sprintf("settlement:%d:period:%d:lock", tenantID, periodID)
}

// RunLock serialises settlement-generation runs per period using a
// redis SETNX lease. The lock carries a token so only the owner can
// release it; the TTL bounds the damage of a crashed holder.
type RunLock struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRunLock constructs a RunLock with the given lease duration.
func NewRunLock(client *redis.Client, ttl time.Duration) *RunLock {
	return &RunLock{client: client, ttl: ttl}
}

// Acquire takes the lock and returns the release token. A nil RunLock
// is a no-op so tests and single-node setups can skip redis entirely.
func (l *RunLock) Acquire(ctx context.Context, key string) (string, error) {
	if l == nil || l.client == nil {
		return "", nil
	}
	token := uuid.NewString()
	ok, err := l.client.SetNX(ctx, key, token, l.ttl).Result()
	if err != nil {
		return "", err
	}
	if !ok {
		return "", ErrLockHeld
	}
	return token, nil
}

var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// Release frees the lock when the token still owns it.
func (l *RunLock) Release(ctx context.Context, key, token string) error {
	if l == nil || l.client == nil || token == "" {
		return nil
	}
	return releaseScript.Run(ctx, l.client, []string{key}, token).Err()
}
