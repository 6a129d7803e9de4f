package repository

import (
	"context"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

// RiderRepository defines the persistence operations for riders.
type RiderRepository interface {
	// Create adds a new rider. Returns ErrConflict if the phone is taken.
	Create(ctx context.Context, rider *domain.Rider) error

	// GetByID retrieves a rider by ID.
	GetByID(ctx context.Context, id string) (*domain.Rider, error)

	// GetByIDForUpdate retrieves a rider by ID and locks the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.Rider, error)

	// SetWallet stores a new wallet balance.
	SetWallet(ctx context.Context, id string, wallet decimal.Decimal) error
}
