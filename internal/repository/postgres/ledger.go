package postgres

import (
	"context"
	"database/sql"

	"ridehail/internal/domain"
)

const ledgerColumns = `seq, id, kind, rider_id, driver_id, ride_id, type, amount, description, balance_after, created_at`

// LedgerRepository is a PostgreSQL implementation of repository.LedgerRepository.
type LedgerRepository struct {
	q Querier
}

// Append stores an entry and fills in its sequence number.
func (r *LedgerRepository) Append(ctx context.Context, entry *domain.LedgerEntry) error {
	query := `
		INSERT INTO ledger_entries (id, kind, rider_id, driver_id, ride_id, type, amount, description, balance_after, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING seq
	`

	return r.q.QueryRowContext(ctx, query,
		entry.ID,
		entry.Kind,
		nullString(entry.RiderID),
		nullString(entry.DriverID),
		nullString(entry.RideID),
		entry.Type,
		entry.Amount,
		entry.Description,
		entry.BalanceAfter,
		entry.CreatedAt,
	).Scan(&entry.Seq)
}

// ListByAccount retrieves all entries of an account in sequence order.
func (r *LedgerRepository) ListByAccount(ctx context.Context, account domain.Account) ([]*domain.LedgerEntry, error) {
	owner := "rider_id"
	if account.Kind == domain.BalanceEarnings {
		owner = "driver_id"
	}
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE kind = $1 AND ` + owner + ` = $2 ORDER BY seq`
	return r.list(ctx, query, account.Kind, account.OwnerID)
}

// ListByRide retrieves all entries referencing a ride in sequence order.
func (r *LedgerRepository) ListByRide(ctx context.Context, rideID string) ([]*domain.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE ride_id = $1 ORDER BY seq`
	return r.list(ctx, query, rideID)
}

func (r *LedgerRepository) list(ctx context.Context, query string, args ...any) ([]*domain.LedgerEntry, error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.LedgerEntry
	for rows.Next() {
		var e domain.LedgerEntry
		var riderID, driverID, rideID sql.NullString
		if err := rows.Scan(
			&e.Seq,
			&e.ID,
			&e.Kind,
			&riderID,
			&driverID,
			&rideID,
			&e.Type,
			&e.Amount,
			&e.Description,
			&e.BalanceAfter,
			&e.CreatedAt,
		); err != nil {
			return nil, err
		}
		e.RiderID = riderID.String
		e.DriverID = driverID.String
		e.RideID = rideID.String
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
