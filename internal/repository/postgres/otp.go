package postgres

import (
	"context"
	"database/sql"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// OTPRepository is a PostgreSQL implementation of repository.OTPRepository.
type OTPRepository struct {
	q Querier
}

// Upsert stores the code for a ride, replacing an unverified one.
func (r *OTPRepository) Upsert(ctx context.Context, otp *domain.OneTimeCode) error {
	query := `
		INSERT INTO ride_otps (ride_id, code, issued_at, expires_at, verified)
		VALUES ($1, $2, $3, $4, false)
		ON CONFLICT (ride_id) DO UPDATE
		SET code = EXCLUDED.code, issued_at = EXCLUDED.issued_at, expires_at = EXCLUDED.expires_at
		WHERE ride_otps.verified = false
	`

	result, err := r.q.ExecContext(ctx, query, otp.RideID, otp.Code, otp.IssuedAt, otp.ExpiresAt)
	if err != nil {
		return err
	}

	return expectOne(result, repository.ErrStale)
}

// GetByRideID retrieves the code issued for a ride.
func (r *OTPRepository) GetByRideID(ctx context.Context, rideID string) (*domain.OneTimeCode, error) {
	query := `SELECT ride_id, code, issued_at, expires_at, verified, verified_at FROM ride_otps WHERE ride_id = $1`

	var otp domain.OneTimeCode
	var verifiedAt sql.NullTime
	err := r.q.QueryRowContext(ctx, query, rideID).Scan(
		&otp.RideID,
		&otp.Code,
		&otp.IssuedAt,
		&otp.ExpiresAt,
		&otp.Verified,
		&verifiedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}
	otp.VerifiedAt = verifiedAt.Time

	return &otp, nil
}

// MarkVerified consumes an unverified code.
func (r *OTPRepository) MarkVerified(ctx context.Context, rideID string, at time.Time) error {
	query := `UPDATE ride_otps SET verified = true, verified_at = $1 WHERE ride_id = $2 AND verified = false`

	result, err := r.q.ExecContext(ctx, query, at, rideID)
	if err != nil {
		return err
	}

	return expectOne(result, repository.ErrStale)
}
