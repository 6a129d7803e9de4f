package service

import (
	"context"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// ReceiptService builds fare breakdowns for completed rides.
type ReceiptService struct {
	store repository.Store
	fare  *FareEngine
	clock func() time.Time
}

// NewReceiptService creates a new ReceiptService.
func NewReceiptService(store repository.Store, fare *FareEngine) *ReceiptService {
	return &ReceiptService{store: store, fare: fare, clock: time.Now}
}

// Generate returns the receipt of a completed ride visible to the actor.
func (s *ReceiptService) Generate(ctx context.Context, rideID string, actor domain.Actor) (*domain.Receipt, error) {
	ride, err := s.store.Rides().GetByID(ctx, rideID)
	if err != nil {
		return nil, orNotFound(err, ErrRideNotFound)
	}
	if err := checkRideParty(ride, actor); err != nil {
		return nil, err
	}
	if ride.Status != domain.RideStatusCompleted {
		return nil, ErrRideNotCompleted
	}

	rate, err := s.fare.Rate(ride.VehicleClass)
	if err != nil {
		return nil, err
	}

	// Original fare = base + distance component, so the remainder is the distance part.
	distanceFare := ride.OriginalFare.Sub(rate.BaseFare)

	var duration time.Duration
	if !ride.StartTime.IsZero() && !ride.EndTime.IsZero() {
		duration = ride.EndTime.Sub(ride.StartTime)
	}

	entries, err := s.store.Ledger().ListByRide(ctx, ride.ID)
	if err != nil {
		return nil, err
	}

	return &domain.Receipt{
		RideID:         ride.ID,
		RideNumber:     ride.Number,
		RiderID:        ride.RiderID,
		DriverID:       ride.DriverID,
		Pickup:         ride.Pickup,
		Dropoff:        ride.Dropoff,
		VehicleClass:   ride.VehicleClass,
		DistanceKm:     ride.DistanceKm,
		BaseFare:       rate.BaseFare,
		DistanceFare:   distanceFare,
		OriginalFare:   ride.OriginalFare,
		DiscountAmount: ride.DiscountAmount,
		CouponCode:     ride.CouponCode,
		TotalFare:      ride.Fare,
		PaymentMethod:  ride.PaymentMethod,
		PaymentStatus:  ride.PaymentStatus,
		Duration:       duration,
		StartedAt:      ride.StartTime,
		EndedAt:        ride.EndTime,
		IssuedAt:       s.clock(),
		Payments:       paymentsFor(entries, actor),
	}, nil
}

// paymentsFor keeps the entries on the actor's own balance. Operators see both sides.
func paymentsFor(entries []*domain.LedgerEntry, actor domain.Actor) []*domain.LedgerEntry {
	out := make([]*domain.LedgerEntry, 0, len(entries))
	for _, e := range entries {
		switch {
		case actor.Role == domain.RoleOperator:
		case actor.Role == domain.RoleRider && e.Kind == domain.BalanceWallet && e.RiderID == actor.ID:
		case actor.Role == domain.RoleDriver && e.Kind == domain.BalanceEarnings && e.DriverID == actor.ID:
		default:
			continue
		}
		out = append(out, e)
	}
	return out
}
