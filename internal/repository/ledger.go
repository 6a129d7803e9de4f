package repository

import (
	"context"

	"ridehail/internal/domain"
)

// LedgerRepository defines the persistence operations for the append-only ledger.
type LedgerRepository interface {
	// Append stores an entry and fills in its sequence number.
	Append(ctx context.Context, entry *domain.LedgerEntry) error

	// ListByAccount retrieves all entries of an account in sequence order.
	ListByAccount(ctx context.Context, account domain.Account) ([]*domain.LedgerEntry, error)

	// ListByRide retrieves all entries referencing a ride in sequence order.
	ListByRide(ctx context.Context, rideID string) ([]*domain.LedgerEntry, error)
}
