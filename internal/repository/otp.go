package repository

import (
	"context"
	"time"

	"ridehail/internal/domain"
)

// OTPRepository defines the persistence operations for ride pickup codes.
type OTPRepository interface {
	// Upsert stores the code for a ride, replacing an unverified one.
	// Returns ErrStale if the existing code is already verified.
	Upsert(ctx context.Context, otp *domain.OneTimeCode) error

	// GetByRideID retrieves the code issued for a ride.
	GetByRideID(ctx context.Context, rideID string) (*domain.OneTimeCode, error)

	// MarkVerified consumes an unverified code. Returns ErrStale if it was already consumed.
	MarkVerified(ctx context.Context, rideID string, at time.Time) error
}
