package redis

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
)

// ClaimLockTTL is how long a driver holds the claim lock on a ride.
const ClaimLockTTL = 5 * time.Second

const rideLockPrefix = "lock:ride:"

// releaseScript deletes the lock only while it still holds the caller's token.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

// LockStore hands out short-lived, token-owned ride locks.
type LockStore struct {
	client *redis.Client
}

// NewLockStore creates a new LockStore.
func NewLockStore(client *redis.Client) *LockStore {
	return &LockStore{client: client}
}

// AcquireRideLock tries to take the claim lock for a ride. ok is false when
// another claimer holds it; token is needed to release the lock.
func (s *LockStore) AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (token string, ok bool, err error) {
	token = uuid.New().String()
	ok, err = s.client.SetNX(ctx, rideLockPrefix+rideID, token, ttl).Result()
	if err != nil || !ok {
		return "", false, err
	}
	return token, true, nil
}

// ReleaseRideLock drops the lock if it is still owned by token. A lock that
// expired and was taken by someone else is left alone.
func (s *LockStore) ReleaseRideLock(ctx context.Context, rideID, token string) error {
	return releaseScript.Run(ctx, s.client, []string{rideLockPrefix + rideID}, token).Err()
}
