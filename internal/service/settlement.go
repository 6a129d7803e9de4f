package service

import (
	"context"
	"errors"
	"time"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// Settlement is the outcome of completing a ride.
type Settlement struct {
	Ride *domain.Ride
	// EarningsEntry is nil for cash rides and zero fares.
	EarningsEntry *domain.LedgerEntry
}

// SettlementEngine resolves payment and driver earnings when a ride completes.
type SettlementEngine struct {
	store         repository.Store
	wallet        *WalletLedger
	cache         redis.RideCacheInterface
	notifications *NotificationService
	clock         func() time.Time
}

// NewSettlementEngine creates a new SettlementEngine. cache may be nil.
func NewSettlementEngine(store repository.Store, wallet *WalletLedger, cache redis.RideCacheInterface, notifications *NotificationService) *SettlementEngine {
	return &SettlementEngine{
		store:         store,
		wallet:        wallet,
		cache:         cache,
		notifications: notifications,
		clock:         time.Now,
	}
}

// Settle completes an accepted or in-progress ride using the caller's transaction.
//
// Wallet and prepaid fares were taken at booking and online fares are settled
// by the provider, so those rides are paid on completion and the fare is
// credited to the driver's earnings. Cash rides stay unpaid until the driver
// collects, earn nothing on the ledger, and keep the driver unavailable.
func (e *SettlementEngine) Settle(ctx context.Context, repos repository.Repositories, ride *domain.Ride) (*Settlement, error) {
	now := e.clock()

	if ride.Status == domain.RideStatusAccepted {
		ride.Status = domain.RideStatusInProgress
		ride.StartTime = now
		if err := repos.Rides().Update(ctx, ride, domain.RideStatusAccepted); err != nil {
			return nil, staleAs(err, ErrRideCannotBeCompleted)
		}
	}

	cash := ride.PaymentMethod == domain.PaymentMethodCash
	ride.Status = domain.RideStatusCompleted
	ride.EndTime = now
	if cash {
		ride.PaymentStatus = domain.PaymentStatusPending
	} else {
		ride.PaymentStatus = domain.PaymentStatusCompleted
	}
	if err := repos.Rides().Update(ctx, ride, domain.RideStatusInProgress); err != nil {
		return nil, staleAs(err, ErrRideCannotBeCompleted)
	}

	result := &Settlement{Ride: ride}
	if !cash && ride.Fare.IsPositive() {
		entry, err := e.wallet.Apply(ctx, repos, Movement{
			Account:      domain.DriverEarnings(ride.DriverID),
			Type:         domain.EntryCredit,
			Amount:       ride.Fare,
			Description:  "earnings for ride " + ride.Number,
			RideID:       ride.ID,
			Counterparty: ride.RiderID,
		})
		if err != nil {
			return nil, err
		}
		result.EarningsEntry = entry
	}

	if err := repos.Drivers().IncrementTotalRides(ctx, ride.DriverID); err != nil {
		return nil, err
	}
	if err := recomputeRating(ctx, repos, ride.DriverID); err != nil {
		return nil, err
	}
	if !cash {
		if err := repos.Drivers().SetAvailable(ctx, ride.DriverID, true); err != nil {
			return nil, err
		}
	}

	logrus.WithFields(logrus.Fields{
		"ride_id":        ride.ID,
		"driver_id":      ride.DriverID,
		"method":         ride.PaymentMethod,
		"payment_status": ride.PaymentStatus,
		"fare":           ride.Fare.StringFixed(2),
	}).Info("ride completed")

	return result, nil
}

// CollectPayment marks the cash fare of a completed ride as collected and
// frees the driver. Earnings are not credited: the driver holds the cash.
func (e *SettlementEngine) CollectPayment(ctx context.Context, rideID, driverID string) (*domain.Ride, error) {
	var ride *domain.Ride
	err := e.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if ride.DriverID == "" || ride.DriverID != driverID {
			return ErrNotAssignedDriver
		}
		if ride.PaymentMethod != domain.PaymentMethodCash {
			return ErrNotCashRide
		}
		if ride.Status != domain.RideStatusCompleted {
			return ErrRideNotCompleted
		}
		if ride.PaymentStatus == domain.PaymentStatusCompleted {
			return ErrPaymentAlreadyCollected
		}

		ride.PaymentStatus = domain.PaymentStatusCompleted
		if err := repos.Rides().Update(ctx, ride, domain.RideStatusCompleted); err != nil {
			return err
		}

		active, err := repos.Rides().GetActiveByDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if active != nil {
			return nil
		}
		return repos.Drivers().SetAvailable(ctx, driverID, true)
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ride_id":   ride.ID,
		"driver_id": driverID,
		"fare":      ride.Fare.StringFixed(2),
	}).Warn("cash payment collected; earnings not credited to ledger")
	invalidateRide(ctx, e.cache, ride.ID)
	e.notifications.NotifyPaymentCollected(ctx, ride)
	return ride, nil
}

// staleAs maps repository.ErrStale to the given guard error.
func staleAs(err, guardErr error) error {
	if errors.Is(err, repository.ErrStale) {
		return guardErr
	}
	return err
}
