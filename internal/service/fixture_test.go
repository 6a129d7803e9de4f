package service

import (
	"context"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/tests"
)

// fixture wires every service against in-memory mocks with a fixed clock.
type fixture struct {
	store     *tests.MemoryStore
	declines  *tests.MockDeclineStore
	locks     *tests.MockLockStore
	cache     *tests.MockRideCache
	publisher *tests.MockPublisher

	notifications *NotificationService
	fare          *FareEngine
	wallet        *WalletLedger
	otp           *OTPGate
	matching      *MatchingPool
	settlement    *SettlementEngine
	rides         *RideService
	drivers       *DriverService
	riders        *RiderService
	withdrawals   *WithdrawalProcessor
	receipts      *ReceiptService

	now time.Time
}

const testOTP = "4321"

var (
	testPickup  = domain.Place{Address: "MG Road", Lat: 12.97, Lon: 77.59}
	oneKmAway   = domain.Place{Address: "Church Street", Lat: 12.98, Lon: 77.59}         // 1.11 km
	fourKmAway  = domain.Place{Address: "Indiranagar", Lat: 13.006036036036, Lon: 77.59} // 4.00 km
	operatorOne = domain.Actor{ID: "operator-1", Role: domain.RoleOperator}
)

func newFixture(t *testing.T) *fixture {
	t.Helper()

	f := &fixture{
		store:     tests.NewMemoryStore(),
		declines:  tests.NewMockDeclineStore(),
		locks:     tests.NewMockLockStore(),
		cache:     tests.NewMockRideCache(),
		publisher: tests.NewMockPublisher(),
		now:       time.Date(2026, 3, 14, 9, 0, 0, 0, time.UTC),
	}
	clock := func() time.Time { return f.now }

	f.notifications = NewNotificationService(f.publisher)
	f.notifications.clock = clock

	f.fare = NewFareEngine()
	f.fare.clock = clock

	f.wallet = NewWalletLedger(f.store)
	f.wallet.clock = clock

	f.otp = NewOTPGate(f.store, f.cache, f.notifications)
	f.otp.clock = clock
	f.otp.generate = func() (string, error) { return testOTP, nil }

	f.matching = NewMatchingPool(f.store, f.declines, f.locks, nil, f.otp, f.cache, f.notifications)
	f.matching.clock = clock

	f.settlement = NewSettlementEngine(f.store, f.wallet, f.cache, f.notifications)
	f.settlement.clock = clock

	f.rides = NewRideService(f.store, f.fare, f.wallet, f.settlement, f.cache, f.declines, f.notifications)
	f.rides.clock = clock

	f.drivers = NewDriverService(f.store, nil)
	f.drivers.clock = clock

	f.riders = NewRiderService(f.store)
	f.riders.clock = clock

	f.withdrawals = NewWithdrawalProcessor(f.store, f.wallet, f.notifications)
	f.withdrawals.clock = clock

	f.receipts = NewReceiptService(f.store, f.fare)
	f.receipts.clock = clock

	return f
}

func (f *fixture) advance(d time.Duration) {
	f.now = f.now.Add(d)
}

func (f *fixture) addRider(id, wallet string) domain.Actor {
	f.store.AddRider(&domain.Rider{
		ID:        id,
		Name:      "Rider " + id,
		Phone:     "+91-" + id,
		Wallet:    decimal.RequireFromString(wallet),
		CreatedAt: f.now,
	})
	return domain.Actor{ID: id, Role: domain.RoleRider}
}

// addDriver seeds an approved, available driver with a vehicle of the class.
func (f *fixture) addDriver(id string, class domain.VehicleClass) domain.Actor {
	f.store.AddDriver(&domain.Driver{
		ID:                 id,
		Name:               "Driver " + id,
		Phone:              "+91-" + id,
		Vehicle:            &domain.Vehicle{Class: class, PlateNumber: "KA-01-" + id, Model: "Model"},
		VerificationStatus: domain.VerificationApproved,
		IsAvailable:        true,
		BankAccount:        &domain.BankAccount{Number: "0001" + id, HolderName: "Driver " + id, RoutingCode: "HDFC0001"},
		CreatedAt:          f.now,
	})
	return domain.Actor{ID: id, Role: domain.RoleDriver}
}

func (f *fixture) book(t *testing.T, riderID string, class domain.VehicleClass, method domain.PaymentMethod, dropoff domain.Place) *domain.Ride {
	t.Helper()

	ride, err := f.rides.Book(context.Background(), BookRideRequest{
		RiderID:       riderID,
		Pickup:        testPickup,
		Dropoff:       dropoff,
		VehicleClass:  class,
		PaymentMethod: method,
	})
	if err != nil {
		t.Fatalf("unexpected error booking ride: %v", err)
	}
	return ride
}

func (f *fixture) accept(t *testing.T, driverID, rideID string) *AcceptResult {
	t.Helper()

	result, err := f.matching.Accept(context.Background(), driverID, rideID)
	if err != nil {
		t.Fatalf("unexpected error accepting ride: %v", err)
	}
	return result
}

func (f *fixture) start(t *testing.T, driverID, rideID string) *domain.Ride {
	t.Helper()

	ride, err := f.otp.Verify(context.Background(), rideID, driverID, testOTP)
	if err != nil {
		t.Fatalf("unexpected error verifying pickup code: %v", err)
	}
	return ride
}

func (f *fixture) complete(t *testing.T, driverID, rideID string) *Settlement {
	t.Helper()

	result, err := f.rides.Complete(context.Background(), rideID, driverID)
	if err != nil {
		t.Fatalf("unexpected error completing ride: %v", err)
	}
	return result
}

func mustDecimal(s string) decimal.Decimal {
	return decimal.RequireFromString(s)
}

func assertAmount(t *testing.T, what string, got decimal.Decimal, want string) {
	t.Helper()
	if !got.Equal(mustDecimal(want)) {
		t.Errorf("expected %s %s, got %s", what, want, got.StringFixed(2))
	}
}
