package repository

import (
	"context"

	"ridehail/internal/domain"
)

// WithdrawalRepository defines the persistence operations for withdrawal requests.
type WithdrawalRepository interface {
	// Create persists a new request. Returns ErrConflict if the driver already
	// has a pending request.
	Create(ctx context.Context, w *domain.WithdrawalRequest) error

	// GetByID retrieves a request by ID.
	GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error)

	// GetByIDForUpdate retrieves a request by ID and locks the row until the transaction ends.
	GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error)

	// ListByDriver retrieves a driver's requests, newest first.
	ListByDriver(ctx context.Context, driverID string) ([]*domain.WithdrawalRequest, error)

	// ListByStatus retrieves requests in a status, oldest first.
	ListByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error)

	// Update writes status, payout reference, remark and processed time,
	// provided the current status is expected. Returns ErrStale otherwise.
	Update(ctx context.Context, w *domain.WithdrawalRequest, expected domain.WithdrawalStatus) error
}
