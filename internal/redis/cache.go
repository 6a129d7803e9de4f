package redis

import (
	"context"
	"encoding/json"
	"strconv"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

// RideCacheTTL bounds how stale a polled ride snapshot can be.
const RideCacheTTL = 10 * time.Second

// rideGenerationTTL only has to outlive a single read-through.
const rideGenerationTTL = time.Hour

const (
	rideCachePrefix      = "cache:ride:"
	rideGenerationPrefix = "cache:ride-gen:"
)

var setIfGenerationScript = redis.NewScript(`
if (redis.call("GET", KEYS[2]) or "0") == ARGV[1] then
	redis.call("SET", KEYS[1], ARGV[2], "PX", ARGV[3])
	return 1
end
return 0
`)

// CacheStore caches ride snapshots served to polling clients.
type CacheStore struct {
	client *redis.Client
}

// NewCacheStore creates a new CacheStore.
func NewCacheStore(client *redis.Client) *CacheStore {
	return &CacheStore{client: client}
}

// CachedRide is the cached form of a ride.
type CachedRide struct {
	ID             string          `json:"id"`
	Number         string          `json:"number"`
	RiderID        string          `json:"rider_id"`
	DriverID       string          `json:"driver_id,omitempty"`
	Pickup         domain.Place    `json:"pickup"`
	Dropoff        domain.Place    `json:"dropoff"`
	VehicleClass   string          `json:"vehicle_class"`
	DistanceKm     decimal.Decimal `json:"distance_km"`
	Fare           decimal.Decimal `json:"fare"`
	OriginalFare   decimal.Decimal `json:"original_fare"`
	DiscountAmount decimal.Decimal `json:"discount_amount"`
	CouponCode     string          `json:"coupon_code,omitempty"`
	Status         string          `json:"status"`
	PaymentMethod  string          `json:"payment_method"`
	PaymentStatus  string          `json:"payment_status"`
	BookedAt       time.Time       `json:"booked_at"`
	AcceptedAt     time.Time       `json:"accepted_at"`
	StartTime      time.Time       `json:"start_time"`
	EndTime        time.Time       `json:"end_time"`
	CancelledAt    time.Time       `json:"cancelled_at"`
	CancelReason   string          `json:"cancel_reason,omitempty"`
	CancelledBy    string          `json:"cancelled_by,omitempty"`
	Rating         int             `json:"rating,omitempty"`
	Review         string          `json:"review,omitempty"`
}

// NewCachedRide converts a ride into its cached form.
func NewCachedRide(r *domain.Ride) *CachedRide {
	return &CachedRide{
		ID:             r.ID,
		Number:         r.Number,
		RiderID:        r.RiderID,
		DriverID:       r.DriverID,
		Pickup:         r.Pickup,
		Dropoff:        r.Dropoff,
		VehicleClass:   string(r.VehicleClass),
		DistanceKm:     r.DistanceKm,
		Fare:           r.Fare,
		OriginalFare:   r.OriginalFare,
		DiscountAmount: r.DiscountAmount,
		CouponCode:     r.CouponCode,
		Status:         string(r.Status),
		PaymentMethod:  string(r.PaymentMethod),
		PaymentStatus:  string(r.PaymentStatus),
		BookedAt:       r.BookedAt,
		AcceptedAt:     r.AcceptedAt,
		StartTime:      r.StartTime,
		EndTime:        r.EndTime,
		CancelledAt:    r.CancelledAt,
		CancelReason:   r.CancelReason,
		CancelledBy:    string(r.CancelledBy),
		Rating:         r.Rating,
		Review:         r.Review,
	}
}

// Ride converts the cached form back into a ride.
func (c *CachedRide) Ride() *domain.Ride {
	return &domain.Ride{
		ID:             c.ID,
		Number:         c.Number,
		RiderID:        c.RiderID,
		DriverID:       c.DriverID,
		Pickup:         c.Pickup,
		Dropoff:        c.Dropoff,
		VehicleClass:   domain.VehicleClass(c.VehicleClass),
		DistanceKm:     c.DistanceKm,
		Fare:           c.Fare,
		OriginalFare:   c.OriginalFare,
		DiscountAmount: c.DiscountAmount,
		CouponCode:     c.CouponCode,
		Status:         domain.RideStatus(c.Status),
		PaymentMethod:  domain.PaymentMethod(c.PaymentMethod),
		PaymentStatus:  domain.PaymentStatus(c.PaymentStatus),
		BookedAt:       c.BookedAt,
		AcceptedAt:     c.AcceptedAt,
		StartTime:      c.StartTime,
		EndTime:        c.EndTime,
		CancelledAt:    c.CancelledAt,
		CancelReason:   c.CancelReason,
		CancelledBy:    domain.Role(c.CancelledBy),
		Rating:         c.Rating,
		Review:         c.Review,
	}
}

// GetRide retrieves a ride from cache together with its current generation.
// The ride is nil on a cache miss.
func (s *CacheStore) GetRide(ctx context.Context, rideID string) (*domain.Ride, int64, error) {
	values, err := s.client.MGet(ctx, rideCachePrefix+rideID, rideGenerationKey(rideID)).Result()
	if err != nil {
		return nil, 0, err
	}

	var generation int64
	if raw, ok := values[1].(string); ok {
		if generation, err = strconv.ParseInt(raw, 10, 64); err != nil {
			return nil, 0, err
		}
	}

	raw, ok := values[0].(string)
	if !ok {
		return nil, generation, nil // Cache miss
	}
	var cached CachedRide
	if err := json.Unmarshal([]byte(raw), &cached); err != nil {
		return nil, generation, err
	}
	return cached.Ride(), generation, nil
}

// SetRide stores a ride in cache unless it was invalidated after generation
// was read, which means the snapshot may predate the last transition.
func (s *CacheStore) SetRide(ctx context.Context, ride *domain.Ride, generation int64) error {
	data, err := json.Marshal(NewCachedRide(ride))
	if err != nil {
		return err
	}
	keys := []string{rideCachePrefix + ride.ID, rideGenerationKey(ride.ID)}
	return setIfGenerationScript.Run(ctx, s.client, keys,
		strconv.FormatInt(generation, 10), data, RideCacheTTL.Milliseconds()).Err()
}

// InvalidateRide removes a ride from cache and bumps its generation.
func (s *CacheStore) InvalidateRide(ctx context.Context, rideID string) error {
	_, err := s.client.TxPipelined(ctx, func(pipe redis.Pipeliner) error {
		pipe.Incr(ctx, rideGenerationKey(rideID))
		pipe.Expire(ctx, rideGenerationKey(rideID), rideGenerationTTL)
		pipe.Del(ctx, rideCachePrefix+rideID)
		return nil
	})
	return err
}

func rideGenerationKey(rideID string) string {
	return rideGenerationPrefix + rideID
}
