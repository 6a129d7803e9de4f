package redis

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// DeclineStoreInterface defines the per-driver decline set operations.
type DeclineStoreInterface interface {
	Add(ctx context.Context, driverID, rideID string) error
	Declined(ctx context.Context, driverID string) ([]string, error)
	IsDeclined(ctx context.Context, driverID, rideID string) (bool, error)
	Forget(ctx context.Context, rideID string) error
}

// LockStoreInterface defines token-owned distributed locks.
type LockStoreInterface interface {
	AcquireRideLock(ctx context.Context, rideID string, ttl time.Duration) (token string, ok bool, err error)
	ReleaseRideLock(ctx context.Context, rideID, token string) error
}

// RideCacheInterface defines the ride snapshot cache. GetRide returns the
// cached ride, or nil, together with the ride's cache generation; SetRide
// stores a snapshot only while that generation is unchanged.
type RideCacheInterface interface {
	GetRide(ctx context.Context, rideID string) (*domain.Ride, int64, error)
	SetRide(ctx context.Context, ride *domain.Ride, generation int64) error
	InvalidateRide(ctx context.Context, rideID string) error
}

// Ensure concrete types implement interfaces.
var (
	_ DeclineStoreInterface = (*DeclineStore)(nil)
	_ LockStoreInterface    = (*LockStore)(nil)
	_ RideCacheInterface    = (*CacheStore)(nil)
)
