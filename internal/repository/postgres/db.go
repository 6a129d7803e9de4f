package postgres

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/lib/pq"

	"ridehail/internal/repository"
)

// Querier is an interface satisfied by both *sql.DB and *sql.Tx.
type Querier interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
}

// Ensure interfaces are satisfied.
var (
	_ Querier          = (*sql.DB)(nil)
	_ Querier          = (*sql.Tx)(nil)
	_ repository.Store = (*Store)(nil)
)

// uniqueViolation is the PostgreSQL error code for unique_violation.
const uniqueViolation = "23505"

// scanner is satisfied by *sql.Row and *sql.Rows.
type scanner interface {
	Scan(dest ...any) error
}

// Store is the PostgreSQL implementation of repository.Store.
type Store struct {
	db *sql.DB
	repos
}

// NewStore creates a store backed by db.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db, repos: newRepos(db)}
}

// InTx runs fn inside a database transaction.
func (s *Store) InTx(ctx context.Context, fn func(repository.Repositories) error) (err error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}

	defer func() {
		if err != nil {
			_ = tx.Rollback()
		}
	}()

	if err = fn(newRepos(tx)); err != nil {
		return err
	}

	return tx.Commit()
}

// repos binds every repository to the same Querier.
type repos struct {
	rides       *RideRepository
	drivers     *DriverRepository
	riders      *RiderRepository
	otps        *OTPRepository
	ledger      *LedgerRepository
	withdrawals *WithdrawalRepository
	coupons     *CouponRepository
}

func newRepos(q Querier) repos {
	return repos{
		rides:       &RideRepository{q: q},
		drivers:     &DriverRepository{q: q},
		riders:      &RiderRepository{q: q},
		otps:        &OTPRepository{q: q},
		ledger:      &LedgerRepository{q: q},
		withdrawals: &WithdrawalRepository{q: q},
		coupons:     &CouponRepository{q: q},
	}
}

func (r repos) Rides() repository.RideRepository             { return r.rides }
func (r repos) Drivers() repository.DriverRepository         { return r.drivers }
func (r repos) Riders() repository.RiderRepository           { return r.riders }
func (r repos) OTPs() repository.OTPRepository               { return r.otps }
func (r repos) Ledger() repository.LedgerRepository          { return r.ledger }
func (r repos) Withdrawals() repository.WithdrawalRepository { return r.withdrawals }
func (r repos) Coupons() repository.CouponRepository         { return r.coupons }

// mapError translates driver errors into repository errors.
func mapError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return repository.ErrNotFound
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) && pqErr.Code == uniqueViolation {
		return repository.ErrConflict
	}
	return err
}

// expectOne maps a zero-row result to missing.
func expectOne(result sql.Result, missing error) error {
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return err
	}

	if rowsAffected == 0 {
		return missing
	}

	return nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t time.Time) sql.NullTime {
	return sql.NullTime{Time: t, Valid: !t.IsZero()}
}
