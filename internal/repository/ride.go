package repository

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

// RideRepository defines the persistence operations for rides.
type RideRepository interface {
	// Create persists a new ride.
	// Returns ErrDuplicate if the ride number is taken and ErrConflict if the
	// rider already has an active ride.
	Create(ctx context.Context, ride *domain.Ride) error

	// GetByID retrieves a ride by ID.
	GetByID(ctx context.Context, id string) (*domain.Ride, error)

	// GetByIDForUpdate retrieves a ride by ID and locks it until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Ride, error)

	// GetActiveByRider retrieves the rider's pending, accepted or in-progress ride.
	// Returns nil if none exists.
	GetActiveByRider(ctx context.Context, riderID string) (*domain.Ride, error)

	// GetActiveByDriver retrieves the driver's accepted or in-progress ride.
	// Returns nil if none exists.
	GetActiveByDriver(ctx context.Context, driverID string) (*domain.Ride, error)

	// GetUncollectedCashByDriver retrieves a completed cash ride of the driver whose
	// payment is still pending. Returns nil if none exists.
	GetUncollectedCashByDriver(ctx context.Context, driverID string) (*domain.Ride, error)

	// ListPending retrieves unassigned pending rides of a vehicle class, oldest
	// first, leaving out the rides whose ids are in exclude.
	ListPending(ctx context.Context, class domain.VehicleClass, exclude []string, limit int) ([]*domain.Ride, error)

	// ListByRider retrieves a rider's rides, newest first.
	ListByRider(ctx context.Context, riderID string, limit int) ([]*domain.Ride, error)

	// ListByDriver retrieves a driver's rides, newest first.
	ListByDriver(ctx context.Context, driverID string, limit int) ([]*domain.Ride, error)

	// Claim assigns a pending, unassigned ride to a driver and moves it to accepted.
	// Returns ErrStale if the ride is no longer pending or already has a driver,
	// and ErrConflict if the driver already holds an active ride.
	Claim(ctx context.Context, rideID, driverID string, at time.Time) error

	// Update writes the mutable fields of a ride, provided its current status
	// is one of expected. Returns ErrStale otherwise.
	Update(ctx context.Context, ride *domain.Ride, expected ...domain.RideStatus) error

	// SetRating records the rider's rating on a completed, unrated ride.
	// Returns ErrStale if the ride is not completed or already rated.
	SetRating(ctx context.Context, rideID string, rating int, review string) error

	// AverageDriverRating returns the mean rating of the driver's completed,
	// rated rides and how many there are.
	AverageDriverRating(ctx context.Context, driverID string) (decimal.Decimal, int, error)
}
