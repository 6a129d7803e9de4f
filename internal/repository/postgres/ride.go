package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"
	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const rideColumns = `id, number, rider_id, driver_id,
	pickup_address, pickup_lat, pickup_lon, dropoff_address, dropoff_lat, dropoff_lon,
	vehicle_class, distance_km, fare, original_fare, discount_amount, coupon_code,
	status, payment_method, payment_status,
	booked_at, accepted_at, start_time, end_time, cancelled_at, cancel_reason, cancelled_by,
	rating, review`

// RideRepository is a PostgreSQL implementation of repository.RideRepository.
type RideRepository struct {
	q Querier
}

// Create persists a new ride.
func (r *RideRepository) Create(ctx context.Context, ride *domain.Ride) error {
	query := `
		INSERT INTO rides (id, number, rider_id, driver_id,
			pickup_address, pickup_lat, pickup_lon, dropoff_address, dropoff_lat, dropoff_lon,
			vehicle_class, distance_km, fare, original_fare, discount_amount, coupon_code,
			status, payment_method, payment_status, booked_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20)
		ON CONFLICT (number) DO NOTHING
	`

	result, err := r.q.ExecContext(ctx, query,
		ride.ID,
		ride.Number,
		ride.RiderID,
		nullString(ride.DriverID),
		ride.Pickup.Address,
		ride.Pickup.Lat,
		ride.Pickup.Lon,
		ride.Dropoff.Address,
		ride.Dropoff.Lat,
		ride.Dropoff.Lon,
		ride.VehicleClass,
		ride.DistanceKm,
		ride.Fare,
		ride.OriginalFare,
		ride.DiscountAmount,
		nullString(ride.CouponCode),
		ride.Status,
		ride.PaymentMethod,
		ride.PaymentStatus,
		ride.BookedAt,
	)
	if err != nil {
		return mapError(err)
	}

	return expectOne(result, repository.ErrDuplicate)
}

// GetByID retrieves a ride by ID.
func (r *RideRepository) GetByID(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1`
	return r.getOne(ctx, query, id)
}

// GetByIDForUpdate retrieves a ride by ID and locks its row.
func (r *RideRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE id = $1 FOR UPDATE`
	return r.getOne(ctx, query, id)
}

// GetActiveByRider retrieves the rider's active ride, or nil.
func (r *RideRepository) GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 AND status = ANY($2)`
	return r.getOptional(ctx, query, riderID, statusArray(domain.ActiveRiderStatuses))
}

// GetActiveByDriver retrieves the driver's active ride, or nil.
func (r *RideRepository) GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 AND status = ANY($2)`
	return r.getOptional(ctx, query, driverID, statusArray(domain.ActiveDriverStatuses))
}

// GetUncollectedCashByDriver retrieves a completed cash ride awaiting collection, or nil.
func (r *RideRepository) GetUncollectedCashByDriver(ctx context.Context, driverID string) (*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE driver_id = $1 AND status = 'completed' AND payment_method = 'cash' AND payment_status = 'pending'
		ORDER BY end_time DESC LIMIT 1`
	return r.getOptional(ctx, query, driverID)
}

// ListPending retrieves unassigned pending rides of a vehicle class that are
// not in exclude.
func (r *RideRepository) ListPending(ctx context.Context, class domain.VehicleClass, exclude []string, limit int) ([]*domain.Ride, error) {
	if exclude == nil {
		exclude = []string{}
	}
	query := `SELECT ` + rideColumns + ` FROM rides
		WHERE status = 'pending' AND driver_id IS NULL AND vehicle_class = $1
			AND NOT (id::text = ANY($2))
		ORDER BY booked_at LIMIT $3`
	return r.list(ctx, query, class, pq.Array(exclude), limit)
}

// ListByRider retrieves a rider's rides, newest first.
func (r *RideRepository) ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE rider_id = $1 ORDER BY booked_at DESC LIMIT $2`
	return r.list(ctx, query, riderID, limit)
}

// ListByDriver retrieves a driver's rides, newest first.
func (r *RideRepository) ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error) {
	query := `SELECT ` + rideColumns + ` FROM rides WHERE driver_id = $1 ORDER BY booked_at DESC LIMIT $2`
	return r.list(ctx, query, driverID, limit)
}

// Claim moves a pending, unassigned ride to accepted for the driver.
func (r *RideRepository) Claim(ctx context.Context, rideID, driverID string, at time.Time) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = 'accepted', accepted_at = $2
		WHERE id = $3 AND status = 'pending' AND driver_id IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, driverID, at, rideID)
	if err != nil {
		return mapError(err)
	}

	return expectOne(result, repository.ErrStale)
}

// Update writes the mutable fields of a ride if its status is one of expected.
func (r *RideRepository) Update(ctx context.Context, ride *domain.Ride, expected ...domain.RideStatus) error {
	query := `
		UPDATE rides
		SET driver_id = $1, status = $2, payment_status = $3, accepted_at = $4, start_time = $5,
			end_time = $6, cancelled_at = $7, cancel_reason = $8, cancelled_by = $9
		WHERE id = $10 AND status = ANY($11)
	`

	result, err := r.q.ExecContext(ctx, query,
		nullString(ride.DriverID),
		ride.Status,
		ride.PaymentStatus,
		nullTime(ride.AcceptedAt),
		nullTime(ride.StartTime),
		nullTime(ride.EndTime),
		nullTime(ride.CancelledAt),
		nullString(ride.CancelReason),
		nullString(string(ride.CancelledBy)),
		ride.ID,
		statusArray(expected),
	)
	if err != nil {
		return mapError(err)
	}

	return expectOne(result, repository.ErrStale)
}

// SetRating records a rating on a completed ride that has none yet.
func (r *RideRepository) SetRating(ctx context.Context, rideID string, rating int, review string) error {
	query := `
		UPDATE rides SET rating = $1, review = $2
		WHERE id = $3 AND status = 'completed' AND rating IS NULL
	`

	result, err := r.q.ExecContext(ctx, query, rating, nullString(review), rideID)
	if err != nil {
		return err
	}

	return expectOne(result, repository.ErrStale)
}

// AverageDriverRating returns the mean rating over the driver's completed, rated rides.
func (r *RideRepository) AverageDriverRating(ctx context.Context, driverID string) (decimal.Decimal, int, error) {
	query := `
		SELECT COALESCE(AVG(rating), 0), COUNT(rating)
		FROM rides WHERE driver_id = $1 AND status = 'completed' AND rating IS NOT NULL
	`

	var avg decimal.Decimal
	var count int
	if err := r.q.QueryRowContext(ctx, query, driverID).Scan(&avg, &count); err != nil {
		return decimal.Zero, 0, err
	}

	return avg.Round(2), count, nil
}

func (r *RideRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Ride, error) {
	ride, err := scanRide(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return ride, nil
}

func (r *RideRepository) getOptional(ctx context.Context, query string, args ...any) (*domain.Ride, error) {
	ride, err := r.getOne(ctx, query, args...)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	return ride, err
}

func (r *RideRepository) list(ctx context.Context, query string, args ...any) ([]*domain.Ride, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var rides []*domain.Ride
	for rows.Next() {
		ride, err := scanRide(rows)
		if err != nil {
			return nil, err
		}
		rides = append(rides, ride)
	}
	return rides, rows.Err()
}

func scanRide(s scanner) (*domain.Ride, error) {
	var ride domain.Ride
	var driverID, couponCode, cancelReason, cancelledBy, review sql.NullString
	var acceptedAt, startTime, endTime, cancelledAt sql.NullTime
	var rating sql.NullInt32

	err := s.Scan(
		&ride.ID,
		&ride.Number,
		&ride.RiderID,
		&driverID,
		&ride.Pickup.Address,
		&ride.Pickup.Lat,
		&ride.Pickup.Lon,
		&ride.Dropoff.Address,
		&ride.Dropoff.Lat,
		&ride.Dropoff.Lon,
		&ride.VehicleClass,
		&ride.DistanceKm,
		&ride.Fare,
		&ride.OriginalFare,
		&ride.DiscountAmount,
		&couponCode,
		&ride.Status,
		&ride.PaymentMethod,
		&ride.PaymentStatus,
		&ride.BookedAt,
		&acceptedAt,
		&startTime,
		&endTime,
		&cancelledAt,
		&cancelReason,
		&cancelledBy,
		&rating,
		&review,
	)
	if err != nil {
		return nil, err
	}

	ride.DriverID = driverID.String
	ride.CouponCode = couponCode.String
	ride.CancelReason = cancelReason.String
	ride.CancelledBy = domain.Role(cancelledBy.String)
	ride.Review = review.String
	ride.AcceptedAt = acceptedAt.Time
	ride.StartTime = startTime.Time
	ride.EndTime = endTime.Time
	ride.CancelledAt = cancelledAt.Time
	if rating.Valid {
		ride.Rating = int(rating.Int32)
	}

	return &ride, nil
}

func statusArray(statuses []domain.RideStatus) any {
	values := make([]string, len(statuses))
	for i, s := range statuses {
		values[i] = string(s)
	}
	return pq.Array(values)
}
