package service

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"ridehail/internal/domain"
	"ridehail/internal/events"
)

func TestMatchingPool_ListAvailable(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	f.addRider("rider-2", "0")
	f.addRider("rider-3", "0")
	driver := f.addDriver("driver-1", domain.VehicleBike)
	ctx := context.Background()

	bike := f.book(t, "rider-1", domain.VehicleBike, domain.PaymentMethodCash, oneKmAway)
	f.advance(time.Minute)
	declined := f.book(t, "rider-2", domain.VehicleBike, domain.PaymentMethodCash, oneKmAway)
	f.book(t, "rider-3", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)

	if err := f.matching.Decline(ctx, driver.ID, declined.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	pool, err := f.matching.ListAvailable(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != bike.ID {
		t.Fatalf("expected only the undeclined bike ride, got %d rides", len(pool))
	}
}

func TestMatchingPool_ListAvailable_HiddenWhileBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	f.addRider("rider-2", "0")
	driver := f.addDriver("driver-1", domain.VehicleCar)
	first := f.book(t, "rider-1", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	f.book(t, "rider-2", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)

	f.accept(t, driver.ID, first.ID)

	pool, err := f.matching.ListAvailable(context.Background(), driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("expected an empty pool for a driver on a ride, got %d", len(pool))
	}
}

func TestMatchingPool_ListAvailable_UnverifiedDriver(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.store.AddDriver(&domain.Driver{ID: "driver-1", Phone: "1", VerificationStatus: domain.VerificationPending})

	_, err := f.matching.ListAvailable(context.Background(), "driver-1")
	if !errors.Is(err, ErrDriverNotEligible) {
		t.Fatalf("expected ErrDriverNotEligible, got %v", err)
	}
}

func TestMatchingPool_ListAvailable_DeclinesDoNotCrowdOutPool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleBike)
	ctx := context.Background()

	var rides []*domain.Ride
	for i := 0; i <= defaultPoolSize; i++ {
		riderID := fmt.Sprintf("rider-%d", i)
		f.addRider(riderID, "0")
		rides = append(rides, f.book(t, riderID, domain.VehicleBike, domain.PaymentMethodCash, oneKmAway))
		f.advance(time.Second)
	}
	for _, ride := range rides[:defaultPoolSize] {
		if err := f.matching.Decline(ctx, driver.ID, ride.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	pool, err := f.matching.ListAvailable(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	newest := rides[defaultPoolSize]
	if len(pool) != 1 || pool[0].ID != newest.ID {
		t.Fatalf("expected only the newest ride %s, got %d rides", newest.ID, len(pool))
	}
}

func TestMatchingPool_Decline_Idempotent(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	driver := f.addDriver("driver-1", domain.VehicleAuto)
	other := f.addDriver("driver-2", domain.VehicleAuto)
	ride := f.book(t, "rider-1", domain.VehicleAuto, domain.PaymentMethodCash, oneKmAway)
	ctx := context.Background()

	for i := 0; i < 2; i++ {
		if err := f.matching.Decline(ctx, driver.ID, ride.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if n := f.declines.Count(driver.ID); n != 1 {
		t.Errorf("expected a single decline record, got %d", n)
	}

	if _, err := f.matching.Accept(ctx, driver.ID, ride.ID); !errors.Is(err, ErrRideUnavailable) {
		t.Errorf("expected a declined ride to be unavailable, got %v", err)
	}

	// The decline holds for as long as the ride stays in the pool.
	f.advance(72 * time.Hour)
	pool, err := f.matching.ListAvailable(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 0 {
		t.Errorf("expected the declined ride to stay hidden, got %d rides", len(pool))
	}

	pool, err = f.matching.ListAvailable(ctx, other.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(pool) != 1 || pool[0].ID != ride.ID {
		t.Fatalf("expected the ride to stay visible to other drivers, got %d rides", len(pool))
	}
	f.accept(t, other.ID, ride.ID)
}

func TestMatchingPool_Decline_ClearedWhenRideLeavesPool(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	f.addRider("rider-2", "0")
	driver := f.addDriver("driver-1", domain.VehicleCar)
	other := f.addDriver("driver-2", domain.VehicleCar)
	cancelled := f.book(t, "rider-1", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	accepted := f.book(t, "rider-2", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	ctx := context.Background()

	for _, ride := range []*domain.Ride{cancelled, accepted} {
		if err := f.matching.Decline(ctx, driver.ID, ride.ID); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}

	if _, err := f.rides.Cancel(ctx, CancelRideRequest{RideID: cancelled.ID, Actor: domain.Actor{ID: "rider-1", Role: domain.RoleRider}}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if n := f.declines.Count(driver.ID); n != 1 {
		t.Errorf("expected the cancelled ride's decline to be dropped, got %d records", n)
	}

	f.accept(t, other.ID, accepted.ID)
	if n := f.declines.Count(driver.ID); n != 0 {
		t.Errorf("expected the accepted ride's decline to be dropped, got %d records", n)
	}
}

func TestMatchingPool_Decline_NotPending(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	driver := f.addDriver("driver-1", domain.VehicleBike)
	other := f.addDriver("driver-2", domain.VehicleBike)
	ride := f.book(t, "rider-1", domain.VehicleBike, domain.PaymentMethodCash, oneKmAway)
	f.accept(t, other.ID, ride.ID)

	err := f.matching.Decline(context.Background(), driver.ID, ride.ID)
	if !errors.Is(err, ErrRideNotPending) {
		t.Fatalf("expected ErrRideNotPending, got %v", err)
	}
	if err := f.matching.Decline(context.Background(), driver.ID, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("expected ErrNotFound, got %v", err)
	}
}

func TestMatchingPool_Accept(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	driver := f.addDriver("driver-1", domain.VehicleCar)
	ride := f.book(t, "rider-1", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	f.advance(2 * time.Minute)

	result := f.accept(t, driver.ID, ride.ID)

	if result.Ride.Status != domain.RideStatusAccepted || result.Ride.DriverID != driver.ID {
		t.Errorf("expected ride accepted by %s, got %s by %q", driver.ID, result.Ride.Status, result.Ride.DriverID)
	}
	if !result.Ride.AcceptedAt.Equal(f.now) {
		t.Errorf("expected accepted at %v, got %v", f.now, result.Ride.AcceptedAt)
	}
	if f.store.Driver(driver.ID).IsAvailable {
		t.Error("expected driver to be unavailable after accepting")
	}
	if f.locks.IsLocked(ride.ID) {
		t.Error("expected claim lock to be released")
	}

	types := f.publisher.Types()
	if types[len(types)-1] != events.RideAccepted {
		t.Errorf("expected last event %s, got %s", events.RideAccepted, types[len(types)-1])
	}
}

func TestMatchingPool_Accept_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture, rideID string)
		driver  domain.VehicleClass
		wantErr error
	}{
		{
			name:    "wrong vehicle class",
			driver:  domain.VehicleBike,
			wantErr: ErrVehicleClassMismatch,
		},
		{
			name:   "driver offline",
			driver: domain.VehicleCar,
			setup: func(_ *testing.T, f *fixture, _ string) {
				d := f.store.Driver("driver-1")
				d.IsAvailable = false
				f.store.AddDriver(d)
			},
			wantErr: ErrDriverUnavailable,
		},
		{
			name:   "driver not verified",
			driver: domain.VehicleCar,
			setup: func(_ *testing.T, f *fixture, _ string) {
				d := f.store.Driver("driver-1")
				d.VerificationStatus = domain.VerificationRejected
				f.store.AddDriver(d)
			},
			wantErr: ErrDriverNotEligible,
		},
		{
			name:   "claim in progress elsewhere",
			driver: domain.VehicleCar,
			setup: func(_ *testing.T, f *fixture, rideID string) {
				f.locks.Hold(rideID)
			},
			wantErr: ErrClaimInProgress,
		},
		{
			name:   "ride cancelled",
			driver: domain.VehicleCar,
			setup: func(t *testing.T, f *fixture, rideID string) {
				if _, err := f.rides.Cancel(context.Background(), CancelRideRequest{
					RideID: rideID,
					Actor:  domain.Actor{ID: "rider-1", Role: domain.RoleRider},
				}); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
			wantErr: ErrRideUnavailable,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addRider("rider-1", "0")
			f.addDriver("driver-1", tt.driver)
			ride := f.book(t, "rider-1", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
			if tt.setup != nil {
				tt.setup(t, f, ride.ID)
			}

			_, err := f.matching.Accept(context.Background(), "driver-1", ride.ID)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			if stored := f.store.Ride(ride.ID); stored.DriverID != "" {
				t.Errorf("expected ride to stay unassigned, got driver %q", stored.DriverID)
			}
		})
	}
}

func TestMatchingPool_Accept_RetryAfterClaimInProgress(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	driver := f.addDriver("driver-1", domain.VehicleBike)
	ride := f.book(t, "rider-1", domain.VehicleBike, domain.PaymentMethodCash, oneKmAway)
	ctx := context.Background()

	f.locks.Hold(ride.ID)
	_, err := f.matching.Accept(ctx, driver.ID, ride.ID)
	if !errors.Is(err, ErrClaimInProgress) || !errors.Is(err, ErrConflict) {
		t.Fatalf("expected ErrClaimInProgress, got %v", err)
	}
	if errors.Is(err, ErrRideUnavailable) {
		t.Error("expected a held lock not to report the ride as unavailable")
	}

	f.locks.Drop(ride.ID)
	result := f.accept(t, driver.ID, ride.ID)
	if result.Ride.DriverID != driver.ID {
		t.Errorf("expected the retry to claim the ride, got driver %q", result.Ride.DriverID)
	}
}

func TestMatchingPool_Accept_DriverBusy(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")
	f.addRider("rider-2", "0")
	driver := f.addDriver("driver-1", domain.VehicleCar)
	first := f.book(t, "rider-1", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	second := f.book(t, "rider-2", domain.VehicleCar, domain.PaymentMethodCash, oneKmAway)
	f.accept(t, driver.ID, first.ID)

	// Force the availability flag back on to reach the active-ride check.
	d := f.store.Driver(driver.ID)
	d.IsAvailable = true
	f.store.AddDriver(d)

	_, err := f.matching.Accept(context.Background(), driver.ID, second.ID)
	if !errors.Is(err, ErrDriverHasActiveRide) {
		t.Fatalf("expected ErrDriverHasActiveRide, got %v", err)
	}
}

func TestMatchingPool_Accept_ConcurrentClaims(t *testing.T) {
	t.Parallel()

	const drivers = 20

	f := newFixture(t)
	f.addRider("rider-1", "0")
	for i := 0; i < drivers; i++ {
		f.addDriver(fmt.Sprintf("driver-%d", i), domain.VehicleAuto)
	}
	ride := f.book(t, "rider-1", domain.VehicleAuto, domain.PaymentMethodCash, oneKmAway)

	var wg sync.WaitGroup
	var successCount, unavailableCount int32
	winner := make(chan string, drivers)

	for i := 0; i < drivers; i++ {
		wg.Add(1)
		go func(driverID string) {
			defer wg.Done()
			_, err := f.matching.Accept(context.Background(), driverID, ride.ID)
			switch {
			case err == nil:
				atomic.AddInt32(&successCount, 1)
				winner <- driverID
			case errors.Is(err, ErrRideUnavailable), errors.Is(err, ErrClaimInProgress):
				atomic.AddInt32(&unavailableCount, 1)
			default:
				t.Errorf("unexpected error for %s: %v", driverID, err)
			}
		}(fmt.Sprintf("driver-%d", i))
	}
	wg.Wait()
	close(winner)

	if successCount != 1 {
		t.Fatalf("expected exactly 1 successful claim, got %d", successCount)
	}
	if unavailableCount != drivers-1 {
		t.Errorf("expected %d rejected claims, got %d", drivers-1, unavailableCount)
	}

	winnerID := <-winner
	if stored := f.store.Ride(ride.ID); stored.DriverID != winnerID {
		t.Errorf("expected ride assigned to %s, got %s", winnerID, stored.DriverID)
	}
	for i := 0; i < drivers; i++ {
		id := fmt.Sprintf("driver-%d", i)
		if available := f.store.Driver(id).IsAvailable; available == (id == winnerID) {
			t.Errorf("driver %s availability = %v after the race", id, available)
		}
	}
}
