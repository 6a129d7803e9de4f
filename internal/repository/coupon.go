package repository

import (
	"context"

	"ridehail/internal/domain"
)

// CouponRepository defines the persistence operations for coupons.
type CouponRepository interface {
	// GetByCode retrieves a coupon by code.
	GetByCode(ctx context.Context, code string) (*domain.Coupon, error)

	// Redeem increments the usage counter if the coupon is still under its limit.
	// Returns ErrStale when the limit has been reached.
	Redeem(ctx context.Context, code string) error
}
