package postgres

import (
	"context"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// CouponRepository is a PostgreSQL implementation of repository.CouponRepository.
type CouponRepository struct {
	q Querier
}

// GetByCode retrieves a coupon by code.
func (r *CouponRepository) GetByCode(ctx context.Context, code string) (*domain.Coupon, error) {
	query := `
		SELECT code, kind, value, max_discount, min_amount, valid_from, valid_until, usage_limit, used_count, active
		FROM coupons WHERE code = $1
	`

	var c domain.Coupon
	err := r.q.QueryRowContext(ctx, query, code).Scan(
		&c.Code,
		&c.Kind,
		&c.Value,
		&c.MaxDiscount,
		&c.MinAmount,
		&c.ValidFrom,
		&c.ValidUntil,
		&c.UsageLimit,
		&c.UsedCount,
		&c.Active,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &c, nil
}

// Redeem increments the usage counter while the coupon is under its limit.
func (r *CouponRepository) Redeem(ctx context.Context, code string) error {
	query := `
		UPDATE coupons SET used_count = used_count + 1
		WHERE code = $1 AND active AND (usage_limit = 0 OR used_count < usage_limit)
	`

	result, err := r.q.ExecContext(ctx, query, code)
	if err != nil {
		return err
	}

	return expectOne(result, repository.ErrStale)
}
