package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// DriverService handles driver registration, profile and availability.
type DriverService struct {
	store    repository.Store
	verifier VerificationChecker
	clock    func() time.Time
}

// NewDriverService creates a new DriverService.
func NewDriverService(store repository.Store, verifier VerificationChecker) *DriverService {
	if verifier == nil {
		verifier = DriverRecordVerifier{}
	}
	return &DriverService{
		store:    store,
		verifier: verifier,
		clock:    time.Now,
	}
}

// RegisterDriverRequest contains the parameters for registering a driver.
type RegisterDriverRequest struct {
	Name  string
	Phone string
}

// Register creates a driver awaiting verification, unavailable and without a vehicle.
func (s *DriverService) Register(ctx context.Context, req RegisterDriverRequest) (*domain.Driver, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, ErrMissingField
	}

	driver := &domain.Driver{
		ID:                 uuid.New().String(),
		Name:               name,
		Phone:              phone,
		VerificationStatus: domain.VerificationPending,
		Earnings:           decimal.Zero,
		Rating:             decimal.Zero,
		CreatedAt:          s.clock(),
	}
	if err := s.store.Drivers().Create(ctx, driver); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	logrus.WithField("driver_id", driver.ID).Info("driver registered")
	return driver, nil
}

// Get returns a driver by ID.
func (s *DriverService) Get(ctx context.Context, driverID string) (*domain.Driver, error) {
	driver, err := s.store.Drivers().GetByID(ctx, driverID)
	if err != nil {
		return nil, orNotFound(err, ErrDriverNotFound)
	}
	return driver, nil
}

// SetVehicle records the driver's vehicle.
func (s *DriverService) SetVehicle(ctx context.Context, driverID string, vehicle domain.Vehicle) (*domain.Driver, error) {
	if !vehicle.Class.Valid() {
		return nil, ErrInvalidVehicleClass
	}
	if strings.TrimSpace(vehicle.PlateNumber) == "" {
		return nil, ErrMissingField
	}
	return s.update(ctx, driverID, func(repos repository.Repositories, d *domain.Driver) error {
		if d.Vehicle != nil && d.Vehicle.Class != vehicle.Class {
			active, err := repos.Rides().GetActiveByDriver(ctx, driverID)
			if err != nil {
				return err
			}
			if active != nil {
				return ErrDriverHasActiveRide
			}
		}
		d.Vehicle = &vehicle
		return repos.Drivers().UpdateVehicle(ctx, driverID, vehicle)
	})
}

// SetBankAccount records the payout destination for withdrawals.
func (s *DriverService) SetBankAccount(ctx context.Context, driverID string, account domain.BankAccount) (*domain.Driver, error) {
	if !account.Complete() {
		return nil, ErrNoBankAccount
	}
	return s.update(ctx, driverID, func(repos repository.Repositories, d *domain.Driver) error {
		d.BankAccount = &account
		return repos.Drivers().UpdateBankAccount(ctx, driverID, account)
	})
}

// SetVerificationStatus stores the operator's verification decision.
func (s *DriverService) SetVerificationStatus(ctx context.Context, actor domain.Actor, driverID string, status domain.VerificationStatus) (*domain.Driver, error) {
	if actor.Role != domain.RoleOperator {
		return nil, ErrOperatorOnly
	}
	if !status.Valid() {
		return nil, ErrInvalidVerification
	}
	driver, err := s.update(ctx, driverID, func(repos repository.Repositories, d *domain.Driver) error {
		d.VerificationStatus = status
		if status != domain.VerificationApproved && d.IsAvailable {
			d.IsAvailable = false
			if err := repos.Drivers().SetAvailable(ctx, driverID, false); err != nil {
				return err
			}
		}
		return repos.Drivers().SetVerificationStatus(ctx, driverID, status)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"driver_id": driverID,
		"status":    status,
		"operator":  actor.ID,
	}).Info("driver verification updated")
	return driver, nil
}

// ListByVerification returns the operator's review queue: drivers in the
// given verification status, oldest registration first.
func (s *DriverService) ListByVerification(ctx context.Context, actor domain.Actor, status domain.VerificationStatus) ([]*domain.Driver, error) {
	if actor.Role != domain.RoleOperator {
		return nil, ErrOperatorOnly
	}
	if !status.Valid() {
		return nil, ErrInvalidVerification
	}
	return s.store.Drivers().ListByVerification(ctx, status, defaultListLimit)
}

// SetAvailability toggles whether the driver is taking rides. A driver cannot
// go available while verification is missing, a ride is underway or a cash
// fare is still to be collected.
func (s *DriverService) SetAvailability(ctx context.Context, driverID string, available bool) (*domain.Driver, error) {
	return s.update(ctx, driverID, func(repos repository.Repositories, d *domain.Driver) error {
		if available {
			ok, err := s.verifier.IsVerified(ctx, d)
			if err != nil {
				return err
			}
			if !ok {
				return ErrDriverNotEligible
			}

			active, err := repos.Rides().GetActiveByDriver(ctx, driverID)
			if err != nil {
				return err
			}
			if active != nil {
				return ErrDriverHasActiveRide
			}

			cash, err := repos.Rides().GetUncollectedCashByDriver(ctx, driverID)
			if err != nil {
				return err
			}
			if cash != nil {
				return ErrCashCollectionPending
			}
		}
		d.IsAvailable = available
		return repos.Drivers().SetAvailable(ctx, driverID, available)
	})
}

// EarningsSummary is a driver's balance overview.
type EarningsSummary struct {
	DriverID   string
	Balance    decimal.Decimal
	TotalRides int
	Rating     decimal.Decimal
	Pending    decimal.Decimal
}

// Earnings reports the driver's earnings balance and the amount held by
// pending withdrawal requests.
func (s *DriverService) Earnings(ctx context.Context, driverID string) (*EarningsSummary, error) {
	driver, err := s.Get(ctx, driverID)
	if err != nil {
		return nil, err
	}

	pending := decimal.Zero
	requests, err := s.store.Withdrawals().ListByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	for _, w := range requests {
		if w.Status == domain.WithdrawalPending {
			pending = pending.Add(w.Amount)
		}
	}

	return &EarningsSummary{
		DriverID:   driver.ID,
		Balance:    driver.Earnings,
		TotalRides: driver.TotalRides,
		Rating:     driver.Rating,
		Pending:    pending,
	}, nil
}

func (s *DriverService) update(ctx context.Context, driverID string, fn func(repository.Repositories, *domain.Driver) error) (*domain.Driver, error) {
	var driver *domain.Driver
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		driver, err = repos.Drivers().GetByIDForUpdate(ctx, driverID)
		if err != nil {
			return orNotFound(err, ErrDriverNotFound)
		}
		return fn(repos, driver)
	})
	if err != nil {
		return nil, err
	}
	return driver, nil
}
