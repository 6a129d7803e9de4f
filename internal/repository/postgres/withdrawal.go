package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const withdrawalColumns = `id, driver_id, amount, account_number, holder_name, routing_code,
	status, payout_ref, remark, requested_at, processed_at`

// WithdrawalRepository is a PostgreSQL implementation of repository.WithdrawalRepository.
type WithdrawalRepository struct {
	q Querier
}

// Create persists a new request.
func (r *WithdrawalRepository) Create(ctx context.Context, w *domain.WithdrawalRequest) error {
	query := `
		INSERT INTO withdrawals (id, driver_id, amount, account_number, holder_name, routing_code, status, requested_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.q.ExecContext(ctx, query,
		w.ID,
		w.DriverID,
		w.Amount,
		w.Destination.Number,
		w.Destination.HolderName,
		w.Destination.RoutingCode,
		w.Status,
		w.RequestedAt,
	)
	return mapError(err)
}

// GetByID retrieves a request by ID.
func (r *WithdrawalRepository) GetByID(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.getOne(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a request by ID and locks its row.
func (r *WithdrawalRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.WithdrawalRequest, error) {
	return r.getOne(ctx, `SELECT `+withdrawalColumns+` FROM withdrawals WHERE id = $1 FOR UPDATE`, id)
}

// ListByDriver retrieves a driver's requests, newest first.
func (r *WithdrawalRepository) ListByDriver(ctx context.Context, driverID string) ([]*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE driver_id = $1 ORDER BY requested_at DESC`
	return r.list(ctx, query, driverID)
}

// ListByStatus retrieves requests in a status, oldest first.
func (r *WithdrawalRepository) ListByStatus(ctx context.Context, status domain.WithdrawalStatus) ([]*domain.WithdrawalRequest, error) {
	query := `SELECT ` + withdrawalColumns + ` FROM withdrawals WHERE status = $1 ORDER BY requested_at`
	return r.list(ctx, query, status)
}

// Update writes the review outcome if the request is still in the expected status.
func (r *WithdrawalRepository) Update(ctx context.Context, w *domain.WithdrawalRequest, expected domain.WithdrawalStatus) error {
	query := `
		UPDATE withdrawals SET status = $1, payout_ref = $2, remark = $3, processed_at = $4
		WHERE id = $5 AND status = $6
	`

	result, err := r.q.ExecContext(ctx, query,
		w.Status,
		nullString(w.PayoutRef),
		nullString(w.Remark),
		nullTime(w.ProcessedAt),
		w.ID,
		expected,
	)
	if err != nil {
		return mapError(err)
	}

	return expectOne(result, repository.ErrStale)
}

func (r *WithdrawalRepository) getOne(ctx context.Context, query string, args ...any) (*domain.WithdrawalRequest, error) {
	w, err := scanWithdrawal(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return w, nil
}

func (r *WithdrawalRepository) list(ctx context.Context, query string, args ...any) ([]*domain.WithdrawalRequest, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var requests []*domain.WithdrawalRequest
	for rows.Next() {
		w, err := scanWithdrawal(rows)
		if err != nil {
			return nil, err
		}
		requests = append(requests, w)
	}
	return requests, rows.Err()
}

func scanWithdrawal(s scanner) (*domain.WithdrawalRequest, error) {
	var w domain.WithdrawalRequest
	var payoutRef, remark sql.NullString
	var processedAt sql.NullTime

	err := s.Scan(
		&w.ID,
		&w.DriverID,
		&w.Amount,
		&w.Destination.Number,
		&w.Destination.HolderName,
		&w.Destination.RoutingCode,
		&w.Status,
		&payoutRef,
		&remark,
		&w.RequestedAt,
		&processedAt,
	)
	if err != nil {
		return nil, err
	}
	w.PayoutRef = payoutRef.String
	w.Remark = remark.String
	w.ProcessedAt = processedAt.Time

	return &w, nil
}
