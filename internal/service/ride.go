package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/redis"
	"ridehail/internal/repository"
)

const (
	// maxNumberAttempts bounds ride number regeneration on collision.
	maxNumberAttempts = 5
	defaultListLimit  = 100
)

// RideService owns ride booking, cancellation, completion and rating.
type RideService struct {
	store         repository.Store
	fare          *FareEngine
	wallet        *WalletLedger
	settlement    *SettlementEngine
	cache         redis.RideCacheInterface
	declines      redis.DeclineStoreInterface
	notifications *NotificationService
	clock         func() time.Time
	newNumber     func() string
}

// NewRideService creates a new RideService. cache and declines may be nil.
func NewRideService(
	store repository.Store,
	fare *FareEngine,
	wallet *WalletLedger,
	settlement *SettlementEngine,
	cache redis.RideCacheInterface,
	declines redis.DeclineStoreInterface,
	notifications *NotificationService,
) *RideService {
	return &RideService{
		store:         store,
		fare:          fare,
		wallet:        wallet,
		settlement:    settlement,
		cache:         cache,
		declines:      declines,
		notifications: notifications,
		clock:         time.Now,
		newNumber:     newRideNumber,
	}
}

// newRideNumber returns a short human-readable ride number such as RD-1A2B3C4D.
func newRideNumber() string {
	id := strings.ReplaceAll(uuid.New().String(), "-", "")
	return "RD-" + strings.ToUpper(id[:8])
}

// Quote prices a trip for the rider without booking it.
func (s *RideService) Quote(ctx context.Context, req QuoteRequest) (*FareQuote, error) {
	return s.fare.Quote(ctx, s.store.Coupons(), req)
}

// BookRideRequest contains the parameters for booking a ride.
type BookRideRequest struct {
	RiderID       string
	Pickup        domain.Place
	Dropoff       domain.Place
	VehicleClass  domain.VehicleClass
	PaymentMethod domain.PaymentMethod // Optional: defaults to cash
	CouponCode    string
}

// Book creates a pending ride. Coupon redemption and the wallet debit for
// wallet and prepaid rides commit with the ride.
func (s *RideService) Book(ctx context.Context, req BookRideRequest) (*domain.Ride, error) {
	if req.RiderID == "" {
		return nil, ErrMissingField
	}
	if !req.VehicleClass.Valid() {
		return nil, ErrInvalidVehicleClass
	}
	method := req.PaymentMethod
	if method == "" {
		method = domain.PaymentMethodCash
	}
	if !method.Valid() {
		return nil, ErrInvalidPaymentMethod
	}

	var ride *domain.Ride
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		if _, err := repos.Riders().GetByID(ctx, req.RiderID); err != nil {
			return orNotFound(err, ErrRiderNotFound)
		}

		active, err := repos.Rides().GetActiveByRider(ctx, req.RiderID)
		if err != nil {
			return err
		}
		if active != nil {
			return ErrRiderHasActiveRide
		}

		quote, err := s.fare.Quote(ctx, repos.Coupons(), QuoteRequest{
			Pickup:       req.Pickup,
			Dropoff:      req.Dropoff,
			VehicleClass: req.VehicleClass,
			CouponCode:   req.CouponCode,
		})
		if err != nil {
			return err
		}
		if quote.CouponCode != "" {
			if err := repos.Coupons().Redeem(ctx, quote.CouponCode); err != nil {
				if errors.Is(err, repository.ErrStale) {
					return ErrCouponExhausted
				}
				return err
			}
		}

		ride = &domain.Ride{
			ID:             uuid.New().String(),
			RiderID:        req.RiderID,
			Pickup:         req.Pickup,
			Dropoff:        req.Dropoff,
			VehicleClass:   req.VehicleClass,
			DistanceKm:     quote.DistanceKm,
			Fare:           quote.FinalFare,
			OriginalFare:   quote.OriginalFare,
			DiscountAmount: quote.DiscountAmount,
			CouponCode:     quote.CouponCode,
			Status:         domain.RideStatusPending,
			PaymentMethod:  method,
			PaymentStatus:  domain.PaymentStatusPending,
			BookedAt:       s.clock(),
		}
		if err := s.createWithNumber(ctx, repos, ride); err != nil {
			return err
		}

		if method.DebitsWalletAtBooking() && ride.Fare.IsPositive() {
			_, err := s.wallet.Apply(ctx, repos, Movement{
				Account:     domain.RiderWallet(ride.RiderID),
				Type:        domain.EntryDebit,
				Amount:      ride.Fare,
				Description: "payment for ride " + ride.Number,
				RideID:      ride.ID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ride_id":  ride.ID,
		"number":   ride.Number,
		"rider_id": ride.RiderID,
		"fare":     ride.Fare.StringFixed(2),
		"method":   ride.PaymentMethod,
	}).Info("ride booked")
	s.notifications.NotifyRideRequested(ctx, ride)
	return ride, nil
}

// createWithNumber inserts the ride, drawing a fresh number whenever the
// storage reports the number as taken.
func (s *RideService) createWithNumber(ctx context.Context, repos repository.Repositories, ride *domain.Ride) error {
	for attempt := 0; attempt < maxNumberAttempts; attempt++ {
		ride.Number = s.newNumber()
		err := repos.Rides().Create(ctx, ride)
		switch {
		case err == nil:
			return nil
		case errors.Is(err, repository.ErrDuplicate):
			continue
		case errors.Is(err, repository.ErrConflict):
			return ErrRiderHasActiveRide
		default:
			return err
		}
	}
	return errors.New("could not allocate a unique ride number")
}

// GetRide returns a snapshot of a ride visible to the actor.
// Drivers may also see rides that are still pending.
func (s *RideService) GetRide(ctx context.Context, rideID string, actor domain.Actor) (*domain.Ride, error) {
	ride, cached, err := s.loadRide(ctx, rideID)
	if err != nil {
		return nil, err
	}

	// Other drivers may look at a ride only while it is still in the pool,
	// and that is decided on the stored row rather than a snapshot.
	if actor.Role == domain.RoleDriver && ride.DriverID != actor.ID {
		if cached {
			if ride, err = s.store.Rides().GetByID(ctx, rideID); err != nil {
				return nil, orNotFound(err, ErrRideNotFound)
			}
		}
		if ride.Status == domain.RideStatusPending && ride.DriverID == "" {
			return ride, nil
		}
	}

	if err := checkRideParty(ride, actor); err != nil {
		return nil, err
	}
	return ride, nil
}

// loadRide reads through the snapshot cache and reports whether the ride
// came from it.
func (s *RideService) loadRide(ctx context.Context, rideID string) (*domain.Ride, bool, error) {
	var generation int64
	cacheable := false
	if s.cache != nil {
		ride, gen, err := s.cache.GetRide(ctx, rideID)
		if err == nil && ride != nil {
			return ride, true, nil
		}
		generation, cacheable = gen, err == nil
	}

	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, false, orNotFound(err, ErrRideNotFound)
	}

	if cacheable {
		_ = s.cache.SetRide(ctx, ride, generation)
	}
	return ride, false, nil
}

// ListRiderRides returns the rider's rides, newest first.
func (s *RideService) ListRiderRides(ctx context.Context, riderID string) ([]*domain.Ride, error) {
	return s.store.Rides().ListByRider(ctx, riderID, defaultListLimit)
}

// ListDriverRides returns the driver's rides, newest first.
func (s *RideService) ListDriverRides(ctx context.Context, driverID string) ([]*domain.Ride, error) {
	return s.store.Rides().ListByDriver(ctx, driverID, defaultListLimit)
}

// CancelRideRequest contains the parameters for cancelling a ride.
type CancelRideRequest struct {
	RideID string
	Actor  domain.Actor
	Reason string
}

// Cancel moves a pending or accepted ride to cancelled. An assigned driver
// becomes available again and a fare taken from the wallet is refunded.
func (s *RideService) Cancel(ctx context.Context, req CancelRideRequest) (*domain.Ride, error) {
	var ride *domain.Ride
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides().GetByIDForUpdate(ctx, req.RideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}

		switch req.Actor.Role {
		case domain.RoleOperator:
		case domain.RoleRider:
			if ride.RiderID != req.Actor.ID {
				return ErrNotRideRider
			}
		default:
			return ErrNotRideRider
		}

		if ride.Status != domain.RideStatusPending && ride.Status != domain.RideStatusAccepted {
			return ErrRideCannotBeCancelled
		}

		now := s.clock()
		ride.Status = domain.RideStatusCancelled
		ride.CancelledAt = now
		ride.CancelReason = req.Reason
		ride.CancelledBy = req.Actor.Role
		if err := repos.Rides().Update(ctx, ride, domain.RideStatusPending, domain.RideStatusAccepted); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return ErrRideCannotBeCancelled
			}
			return err
		}

		if ride.DriverID != "" {
			if err := repos.Drivers().SetAvailable(ctx, ride.DriverID, true); err != nil {
				return err
			}
		}

		if ride.PaymentMethod.DebitsWalletAtBooking() && ride.Fare.IsPositive() {
			_, err := s.wallet.Apply(ctx, repos, Movement{
				Account:      domain.RiderWallet(ride.RiderID),
				Type:         domain.EntryCredit,
				Amount:       ride.Fare,
				Description:  "refund for cancelled ride " + ride.Number,
				RideID:       ride.ID,
				Counterparty: ride.DriverID,
			})
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"ride_id":      ride.ID,
		"cancelled_by": ride.CancelledBy,
		"driver_id":    ride.DriverID,
	}).Info("ride cancelled")
	invalidateRide(ctx, s.cache, ride.ID)
	forgetDeclines(ctx, s.declines, ride.ID)
	s.notifications.NotifyRideCancelled(ctx, ride)
	return ride, nil
}

// Complete finishes the ride on behalf of its assigned driver and settles it.
func (s *RideService) Complete(ctx context.Context, rideID, driverID string) (*Settlement, error) {
	var settlement *Settlement
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		ride, err := repos.Rides().GetByIDForUpdate(ctx, rideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if ride.DriverID == "" || ride.DriverID != driverID {
			return ErrNotAssignedDriver
		}
		if ride.Status != domain.RideStatusAccepted && ride.Status != domain.RideStatusInProgress {
			return ErrRideCannotBeCompleted
		}

		settlement, err = s.settlement.Settle(ctx, repos, ride)
		return err
	})
	if err != nil {
		return nil, err
	}

	invalidateRide(ctx, s.cache, rideID)
	s.notifications.NotifyRideCompleted(ctx, settlement.Ride)
	return settlement, nil
}

// RateRideRequest contains the parameters for rating a ride.
type RateRideRequest struct {
	RideID  string
	RiderID string
	Rating  int
	Review  string
}

// Rate records the rider's rating of a completed ride and recomputes the
// driver's average.
func (s *RideService) Rate(ctx context.Context, req RateRideRequest) (*domain.Ride, error) {
	if req.Rating < 1 || req.Rating > 5 {
		return nil, ErrInvalidRating
	}

	var ride *domain.Ride
	err := s.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		ride, err = repos.Rides().GetByIDForUpdate(ctx, req.RideID)
		if err != nil {
			return orNotFound(err, ErrRideNotFound)
		}
		if ride.RiderID != req.RiderID {
			return ErrNotRideRider
		}
		if ride.Status != domain.RideStatusCompleted {
			return ErrRideNotCompleted
		}
		if ride.Rating != 0 {
			return ErrRideAlreadyRated
		}

		if _, err := repos.Drivers().GetByIDForUpdate(ctx, ride.DriverID); err != nil {
			return orNotFound(err, ErrDriverNotFound)
		}
		if err := repos.Rides().SetRating(ctx, ride.ID, req.Rating, req.Review); err != nil {
			if errors.Is(err, repository.ErrStale) {
				return ErrRideAlreadyRated
			}
			return err
		}
		ride.Rating = req.Rating
		ride.Review = req.Review

		return recomputeRating(ctx, repos, ride.DriverID)
	})
	if err != nil {
		return nil, err
	}

	invalidateRide(ctx, s.cache, ride.ID)
	return ride, nil
}

// recomputeRating stores the mean of the driver's completed, rated rides.
func recomputeRating(ctx context.Context, repos repository.Repositories, driverID string) error {
	avg, count, err := repos.Rides().AverageDriverRating(ctx, driverID)
	if err != nil {
		return err
	}
	if count == 0 {
		return nil
	}
	return repos.Drivers().SetRating(ctx, driverID, avg.Round(2))
}
