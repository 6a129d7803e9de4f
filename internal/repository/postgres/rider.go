package postgres

import (
	"context"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// RiderRepository is a PostgreSQL implementation of repository.RiderRepository.
type RiderRepository struct {
	q Querier
}

// Create adds a new rider.
func (r *RiderRepository) Create(ctx context.Context, rider *domain.Rider) error {
	query := `INSERT INTO riders (id, name, phone, wallet, created_at) VALUES ($1, $2, $3, $4, $5)`
	_, err := r.q.ExecContext(ctx, query, rider.ID, rider.Name, rider.Phone, rider.Wallet, rider.CreatedAt)
	return mapError(err)
}

// GetByID retrieves a rider by ID.
func (r *RiderRepository) GetByID(ctx context.Context, id string) (*domain.Rider, error) {
	return r.getOne(ctx, `SELECT id, name, phone, wallet, created_at FROM riders WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a rider by ID and locks its row.
func (r *RiderRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Rider, error) {
	return r.getOne(ctx, `SELECT id, name, phone, wallet, created_at FROM riders WHERE id = $1 FOR UPDATE`, id)
}

// SetWallet stores a new wallet balance.
func (r *RiderRepository) SetWallet(ctx context.Context, id string, wallet decimal.Decimal) error {
	result, err := r.q.ExecContext(ctx, `UPDATE riders SET wallet = $1 WHERE id = $2`, wallet, id)
	if err != nil {
		return err
	}

	return expectOne(result, repository.ErrNotFound)
}

func (r *RiderRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Rider, error) {
	var rider domain.Rider
	err := r.q.QueryRowContext(ctx, query, args...).Scan(
		&rider.ID,
		&rider.Name,
		&rider.Phone,
		&rider.Wallet,
		&rider.CreatedAt,
	)
	if err != nil {
		return nil, mapError(err)
	}

	return &rider, nil
}
