package service

import (
	"context"
	"crypto/rand"
	"errors"
	"math/big"
	"strconv"
	"time"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

// OTPGate issues and verifies the pickup code that moves a ride from
// accepted to in-progress.
type OTPGate struct {
	store         repository.Store
	cache         redis.RideCacheInterface
	notifications *NotificationService
	clock         func() time.Time
	generate      func() (string, error)
}

// NewOTPGate creates a new OTPGate.
func NewOTPGate(store repository.Store, cache redis.RideCacheInterface, notifications *NotificationService) *OTPGate {
	return &OTPGate{
		store:         store,
		cache:         cache,
		notifications: notifications,
		clock:         time.Now,
		generate:      randomCode,
	}
}

// randomCode returns a uniformly random code in 1000..9999.
func randomCode() (string, error) {
	n, err := rand.Int(rand.Reader, big.NewInt(9000))
	if err != nil {
		return "", err
	}
	return strconv.FormatInt(n.Int64()+1000, 10), nil
}

// Issue creates or replaces the unverified code of a ride using the caller's transaction.
func (g *OTPGate) Issue(ctx context.Context, repos repository.Repositories, rideID string) (*domain.OneTimeCode, error) {
	code, err := g.generate()
	if err != nil {
		return nil, err
	}

	now := g.clock()
	otp := &domain.OneTimeCode{
		RideID:    rideID,
		Code:      code,
		IssuedAt:  now,
		ExpiresAt: now.Add(domain.OTPValidity),
	}
	if err := repos.OTPs().Upsert(ctx, otp); err != nil {
		if errors.Is(err, repository.ErrStale) {
			return nil, ErrOTPAlreadyVerified
		}
		return nil, err
	}
	return otp, nil
}

// Reissue replaces the code of an accepted ride. The old code stops working.
func (g *OTPGate) Reissue(ctx context.Context, rideID string, actor domain.Actor) (*domain.OneTimeCode, error) {
	var otp *domain.OneTimeCode
	err := g.store.InTx(ctx, func(repos repository.Repositories) error {
		ride, err := repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if err := checkRideParty(ride, actor); err != nil {
			return err
		}
		if ride.Status != domain.RideStatusAccepted {
			return ErrRideNotAccepted
		}
		otp, err = g.Issue(ctx, repos, rideID)
		return err
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"ride_id": rideID, "actor": actor.ID}).Info("pickup code reissued")
	return otp, nil
}

// Reveal returns the live code to the ride's rider, who reads it out to the driver.
func (g *OTPGate) Reveal(ctx context.Context, rideID string, actor domain.Actor) (*domain.OneTimeCode, error) {
	ride, err := g.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, orNotFound(err, ErrRideNotFound)
	}
	if actor.Role != domain.RoleOperator && (actor.Role != domain.RoleRider || ride.RiderID != actor.ID) {
		return nil, ErrNotRideRider
	}

	otp, err := g.store.OTPs().GetByRideID(ctx, rideID)
	if err != nil {
		return nil, orNotFound(err, ErrOTPNotFound)
	}
	return otp, nil
}

// Verify checks the code submitted by the assigned driver and, on success,
// starts the ride in the same transaction.
func (g *OTPGate) Verify(ctx context.Context, rideID, driverID, code string) (*domain.Ride, error) {
	var ride *domain.Ride
	err := g.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if ride.DriverID == "" || ride.DriverID != driverID {
			return ErrNotAssignedDriver
		}

		otp, err := repos.OTPs().GetByRideID(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrOTPNotFound)
		}

		now := g.clock()
		switch {
		case otp.Verified:
			return ErrOTPAlreadyVerified
		case otp.ExpiredAt(now):
			return ErrOTPExpired
		case otp.Code != code:
			return ErrOTPMismatch
		}
		if ride.Status != domain.RideStatusAccepted {
			return ErrRideNotAccepted
		}

		if err := repos.OTPs().MarkVerified(ctx, rideID, now); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return ErrOTPAlreadyVerified
			}
			return err
		}

		ride.Status = domain.RideStatusInProgress
		ride.StartTime = now
		if err := repos.Rides().Update(ctx, ride, domain.RideStatusAccepted); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return ErrRideNotAccepted
			}
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{"ride_id": ride.ID, "driver_id": driverID}).Info("pickup code verified, ride started")
	invalidateRide(ctx, g.cache, ride.ID)
	g.notifications.NotifyRideStarted(ctx, ride)
	return ride, nil
}

// checkRideParty allows the ride's rider, its assigned driver and operators.
func checkRideParty(ride *domain.Ride, actor domain.Actor) error {
	switch actor.Role {
	case domain.RoleOperator:
		return nil
	case domain.RoleRider:
		if ride.RiderID == actor.ID {
			return nil
		}
	case domain.RoleDriver:
		if ride.DriverID != "" && ride.DriverID == actor.ID {
			return nil
		}
	}
	return ErrNotRideParty
}

// invalidateRide drops the cached snapshot of a ride after a transition.
func invalidateRide(ctx context.Context, cache redis.RideCacheInterface, rideID string) {
	if cache == nil {
		return
	}
	if err := cache.InvalidateRide(ctx, rideID); err != nil {
		logrus.WithField("ride_id", rideID).WithError(err).Warn("failed to invalidate ride cache")
	}
}
