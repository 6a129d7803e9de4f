package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

// DriverRepository defines the persistence operations for drivers.
type DriverRepository interface {
	// Create adds a new driver. Returns ErrConflict if the phone is taken.
	Create(ctx context.Context, driver *domain.Driver) error

	// GetByID retrieves a driver by ID.
	GetByID(ctx context.Context, id string) (*domain.Driver, error)

	// GetByIDForUpdate retrieves a driver by ID and locks the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Driver, error)

	// ListByVerification retrieves the drivers with the given verification status, oldest first.
	ListByVerification(ctx context.Context, status domain.VerificationStatus, limit int) ([]*domain.Driver, error)

	// SetAvailable updates the availability flag of a driver.
	SetAvailable(ctx context.Context, id string, available bool) error

	// SetEarnings stores a new earnings balance.
	SetEarnings(ctx context.Context, id string, earnings decimal.Decimal) error

	// IncrementTotalRides adds one to the completed ride counter.
	IncrementTotalRides(ctx context.Context, id string) error

	// SetRating stores the recomputed average rating.
	SetRating(ctx context.Context, id string, rating decimal.Decimal) error

	// UpdateVehicle stores the vehicle on file.
	UpdateVehicle(ctx context.Context, id string, vehicle domain.Vehicle) error

	// UpdateBankAccount stores the payout destination.
	UpdateBankAccount(ctx context.Context, id string, account domain.BankAccount) error

	// SetVerificationStatus stores the verification outcome.
	SetVerificationStatus(ctx context.Context, id string, status domain.VerificationStatus) error
}
