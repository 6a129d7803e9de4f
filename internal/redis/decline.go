package redis

import (
	"context"

	"github.com/redis/go-redis/v9"
)

const (
	declinedByDriverPrefix = "declined:driver:"
	declinedRidePrefix     = "declined:ride:"
)

// DeclineStore keeps, per driver, the set of pending rides the driver
// declined, plus the reverse index per ride so the entries can be dropped
// once the ride leaves the pool.
type DeclineStore struct {
	client *redis.Client
}

// NewDeclineStore creates a new DeclineStore.
func NewDeclineStore(client *redis.Client) *DeclineStore {
	return &DeclineStore{client: client}
}

// Add records that the driver declined the ride. Declining twice is the same as once.
func (s *DeclineStore) Add(ctx context.Context, driverID, rideID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.SAdd(ctx, declinedByDriverPrefix+driverID, rideID)
		pipe.SAdd(ctx, declinedRidePrefix+rideID, driverID)
		return nil
	})
	return err
}

// Declined returns the ids of the rides the driver declined that are still in the pool.
func (s *DeclineStore) Declined(ctx context.Context, driverID string) ([]string, error) {
	return s.client.SMembers(ctx, declinedByDriverPrefix+driverID).Result()
}

// IsDeclined reports whether the driver declined the ride.
func (s *DeclineStore) IsDeclined(ctx context.Context, driverID, rideID string) (bool, error) {
	return s.client.SIsMember(ctx, declinedByDriverPrefix+driverID, rideID).Result()
}

// Forget drops every decline of a ride. It is called once the ride is
// accepted or cancelled and can no longer be offered.
func (s *DeclineStore) Forget(ctx context.Context, rideID string) error {
	rideKey := declinedRidePrefix + rideID
	drivers, err := s.client.SMembers(ctx, rideKey).Result()
	if err != nil {
		return err
	}

	_, err = s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		for _, driverID := range drivers {
			pipe.SRem(ctx, declinedByDriverPrefix+driverID, rideID)
		}
		pipe.Del(ctx, rideKey)
		return nil
	})
	return err
}
