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

// defaultPoolSize caps how many pending rides a driver sees at once.
const defaultPoolSize = 50

// VerificationChecker answers whether a driver is verified with a vehicle on file.
type VerificationChecker interface {
	IsVerified(ctx context.Context, driver *domain.Driver) (bool, error)
}

// DriverRecordVerifier reads the verification outcome stored on the driver.
type DriverRecordVerifier struct{}

// IsVerified reports whether the driver is approved and has a vehicle on file.
func (DriverRecordVerifier) IsVerified(_ context.Context, driver *domain.Driver) (bool, error) {
	return driver.VerificationStatus == domain.VerificationApproved && driver.Vehicle != nil, nil
}

// AcceptResult contains the result of a successful claim.
type AcceptResult struct {
	Ride *domain.Ride
	OTP  *domain.OneTimeCode
}

// MatchingPool exposes pending rides to eligible drivers and lets them claim or decline.
type MatchingPool struct {
	store         repository.Store
	declines      redis.DeclineStoreInterface
	locks         redis.LockStoreInterface
	verifier      VerificationChecker
	otp           *OTPGate
	cache         redis.RideCacheInterface
	notifications *NotificationService
	clock         func() time.Time
	poolSize      int
}

// NewMatchingPool creates a new MatchingPool. locks and cache may be nil.
func NewMatchingPool(
	store repository.Store,
	declines redis.DeclineStoreInterface,
	locks redis.LockStoreInterface,
	verifier VerificationChecker,
	otp *OTPGate,
	cache redis.RideCacheInterface,
	notifications *NotificationService,
) *MatchingPool {
	if verifier == nil {
		verifier = DriverRecordVerifier{}
	}
	return &MatchingPool{
		store:         store,
		declines:      declines,
		locks:         locks,
		verifier:      verifier,
		otp:           otp,
		cache:         cache,
		notifications: notifications,
		clock:         time.Now,
		poolSize:      defaultPoolSize,
	}
}

// ListAvailable returns the pending rides the driver may claim right now.
func (p *MatchingPool) ListAvailable(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	driver, err := p.store.Drivers().GetByID(ctx, driverID)
	if err != nil {
		return nil, orNotFound(err, ErrDriverNotFound)
	}
	if err := p.checkEligible(ctx, driver); err != nil {
		return nil, err
	}
	if !driver.IsAvailable {
		return []*domain.Ride{}, nil
	}

	active, err := p.store.Rides().GetActiveByDriver(ctx, driverID)
	if err != nil {
		return nil, err
	}
	if active != nil {
		return []*domain.Ride{}, nil
	}

	declined, err := p.declines.Declined(ctx, driverID)
	if err != nil {
		return nil, err
	}

	pending, err := p.store.Rides().ListPending(ctx, driver.Vehicle.Class, declined, p.poolSize)
	if err != nil {
		return nil, err
	}
	if pending == nil {
		pending = []*domain.Ride{}
	}
	return pending, nil
}

// Accept claims a pending ride for the driver. The claim, the availability
// change and the pickup code commit together.
func (p *MatchingPool) Accept(ctx context.Context, driverID, rideID string) (*AcceptResult, error) {
	if p.locks != nil {
		token, locked, err := p.locks.AcquireRideLock(ctx, rideID, redis.ClaimLockTTL)
		if err != nil {
			return nil, err
		}
		if !locked {
			return nil, ErrClaimInProgress
		}
		defer func() { _ = p.locks.ReleaseRideLock(ctx, rideID, token) }()
	}

	declined, err := p.declines.IsDeclined(ctx, driverID, rideID)
	if err != nil {
		return nil, err
	}
	if declined {
		return nil, ErrRideUnavailable
	}

	result := &AcceptResult{}
	err = p.store.InTx(ctx, func(repos repository.Repositories) error {
		driver, err := repos.Drivers().GetByIDForUpdate(ctx, driverID)
		if err != nil {
			return orNotFound(err, ErrDriverNotFound)
		}
		if err := p.checkEligible(ctx, driver); err != nil {
			return err
		}
		if !driver.IsAvailable {
			return ErrDriverUnavailable
		}

		active, err := repos.Rides().GetActiveByDriver(ctx, driverID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrDriverHasActiveRide
		}

		ride, err := repos.Rides().GetByID(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if ride.VehicleClass != driver.Vehicle.Class {
			return ErrVehicleClassMismatch
		}

		if err := repos.Rides().Claim(ctx, rideID, driverID, p.clock()); err != nil {
			switch {
			case errors.Is(err, repository.ErrStale):
				return ErrRideUnavailable
			case errors.Is(err, repository.ErrConflict):
				return ErrDriverHasActiveRide
			}
			return err
		}

		if err := repos.Drivers().SetAvailable(ctx, driverID, false); err != nil {
			return err
		}

		result.OTP, err = p.otp.Issue(ctx, repos, rideID)
		if err != nil {
			return err
		}

		result.Ride, err = repos.Rides().GetByID(ctx, rideID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"ride_id": rideID, "driver_id": driverID}).Info("ride accepted")
	invalidateRide(ctx, p.cache, rideID)
	forgetDeclines(ctx, p.declines, rideID)
	p.notifications.NotifyRideAccepted(ctx, result.Ride)
	return result, nil
}

// Decline hides a pending ride from the driver. Declining twice is the same as once.
func (p *MatchingPool) Decline(ctx context.Context, driverID, rideID string) error {
	if _, err := p.store.Drivers().GetByID(ctx, driverID); err != nil {
		return orNotFound(err, ErrDriverNotFound)
	}

	ride, err := p.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return orNotFound(err, ErrRideNotFound)
	}
	if ride.Status != domain.RideStatusPending || ride.DriverID != "" {
		return ErrRideNotPending
	}

	if err := p.declines.Add(ctx, driverID, rideID); err != nil {
		return err
	}

	logrus.WithFields(logrus.Fields{"ride_id": rideID, "driver_id": driverID}).Info("ride declined")
	return nil
}

// WithPoolSize caps how many rides ListAvailable returns.
func (p *MatchingPool) WithPoolSize(n int) *MatchingPool {
	if n > 0 {
		p.poolSize = n
	}
	return p
}

// forgetDeclines drops the declines of a ride that left the pool. A failure
// only leaves entries for a ride that is never listed again.
func forgetDeclines(ctx context.Context, declines redis.DeclineStoreInterface, rideID string) {
	if declines == nil {
		return
	}
	if err := declines.Forget(ctx, rideID); err != nil {
		logrus.WithError(err).WithField("ride_id", rideID).Warn("failed to drop ride declines")
	}
}

func (p *MatchingPool) checkEligible(ctx context.Context, driver *domain.Driver) error {
	ok, err := p.verifier.IsVerified(ctx, driver)
	if err != nil {
		return err
	}
	if !ok || driver.Vehicle == nil {
		return ErrDriverNotEligible
	}
	return nil
}
