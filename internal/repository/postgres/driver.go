package postgres

import (
	"context"
	"database/sql"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

const driverColumns = `id, name, phone, vehicle_class, vehicle_plate, vehicle_model,
	verification_status, is_available, earnings, rating, total_rides,
	bank_account_number, bank_holder_name, bank_routing_code, created_at`

// DriverRepository is a PostgreSQL implementation of repository.DriverRepository.
type DriverRepository struct {
	q Querier
}

// Create adds a new driver.
func (r *DriverRepository) Create(ctx context.Context, driver *domain.Driver) error {
	query := `
		INSERT INTO drivers (id, name, phone, verification_status, is_available, earnings, rating, total_rides, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`
	_, err := r.q.ExecContext(ctx, query,
		driver.ID,
		driver.Name,
		driver.Phone,
		driver.VerificationStatus,
		driver.IsAvailable,
		driver.Earnings,
		driver.Rating,
		driver.TotalRides,
		driver.CreatedAt,
	)
	return mapError(err)
}

// GetByID retrieves a driver by ID.
func (r *DriverRepository) GetByID(ctx context.Context, id string) (*domain.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1`, id)
}

// GetByIDForUpdate retrieves a driver by ID and locks its row.
func (r *DriverRepository) GetByIDForUpdate(ctx context.Context, id string) (*domain.Driver, error) {
	return r.getOne(ctx, `SELECT `+driverColumns+` FROM drivers WHERE id = $1 FOR UPDATE`, id)
}

// ListByVerification retrieves the drivers with the given verification status, oldest first.
func (r *DriverRepository) ListByVerification(ctx context.Context, status domain.VerificationStatus, limit int) ([]*domain.Driver, error) {
	query := `SELECT ` + driverColumns + ` FROM drivers WHERE verification_status = $1 ORDER BY created_at LIMIT $2`
	rows, err := r.q.QueryContext(ctx, query, status, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var drivers []*domain.Driver
	for rows.Next() {
		driver, err := scanDriver(rows)
		if err != nil {
			return nil, err
		}
		drivers = append(drivers, driver)
	}
	return drivers, rows.Err()
}

// SetAvailable updates the availability flag of a driver.
func (r *DriverRepository) SetAvailable(ctx context.Context, id string, available bool) error {
	return r.exec(ctx, `UPDATE drivers SET is_available = $1 WHERE id = $2`, available, id)
}

// SetEarnings stores a new earnings balance.
func (r *DriverRepository) SetEarnings(ctx context.Context, id string, earnings decimal.Decimal) error {
	return r.exec(ctx, `UPDATE drivers SET earnings = $1 WHERE id = $2`, earnings, id)
}

// IncrementTotalRides adds one to the completed ride counter.
func (r *DriverRepository) IncrementTotalRides(ctx context.Context, id string) error {
	return r.exec(ctx, `UPDATE drivers SET total_rides = total_rides + 1 WHERE id = $1`, id)
}

// SetRating stores the recomputed average rating.
func (r *DriverRepository) SetRating(ctx context.Context, id string, rating decimal.Decimal) error {
	return r.exec(ctx, `UPDATE drivers SET rating = $1 WHERE id = $2`, rating, id)
}

// UpdateVehicle stores the vehicle on file.
func (r *DriverRepository) UpdateVehicle(ctx context.Context, id string, vehicle domain.Vehicle) error {
	query := `UPDATE drivers SET vehicle_class = $1, vehicle_plate = $2, vehicle_model = $3 WHERE id = $4`
	return r.exec(ctx, query, vehicle.Class, vehicle.PlateNumber, vehicle.Model, id)
}

// UpdateBankAccount stores the payout destination.
func (r *DriverRepository) UpdateBankAccount(ctx context.Context, id string, account domain.BankAccount) error {
	query := `UPDATE drivers SET bank_account_number = $1, bank_holder_name = $2, bank_routing_code = $3 WHERE id = $4`
	return r.exec(ctx, query, account.Number, account.HolderName, account.RoutingCode, id)
}

// SetVerificationStatus stores the verification outcome.
func (r *DriverRepository) SetVerificationStatus(ctx context.Context, id string, status domain.VerificationStatus) error {
	return r.exec(ctx, `UPDATE drivers SET verification_status = $1 WHERE id = $2`, status, id)
}

func (r *DriverRepository) exec(ctx context.Context, query string, args ...any) error {
	result, err := r.q.ExecContext(ctx, query, args...)
	if err != nil {
		return mapError(err)
	}

	return expectOne(result, repository.ErrNotFound)
}

func (r *DriverRepository) getOne(ctx context.Context, query string, args ...any) (*domain.Driver, error) {
	driver, err := scanDriver(r.q.QueryRowContext(ctx, query, args...))
	if err != nil {
		return nil, mapError(err)
	}
	return driver, nil
}

func scanDriver(s scanner) (*domain.Driver, error) {
	var driver domain.Driver
	var vehicleClass, vehiclePlate, vehicleModel sql.NullString
	var bankNumber, bankHolder, bankRouting sql.NullString

	err := s.Scan(
		&driver.ID,
		&driver.Name,
		&driver.Phone,
		&vehicleClass,
		&vehiclePlate,
		&vehicleModel,
		&driver.VerificationStatus,
		&driver.IsAvailable,
		&driver.Earnings,
		&driver.Rating,
		&driver.TotalRides,
		&bankNumber,
		&bankHolder,
		&bankRouting,
		&driver.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	if vehicleClass.Valid {
		driver.Vehicle = &domain.Vehicle{
			Class:       domain.VehicleClass(vehicleClass.String),
			PlateNumber: vehiclePlate.String,
			Model:       vehicleModel.String,
		}
	}
	if bankNumber.Valid {
		driver.BankAccount = &domain.BankAccount{
			Number:      bankNumber.String,
			HolderName:  bankHolder.String,
			RoutingCode: bankRouting.String,
		}
	}

	return &driver, nil
}
