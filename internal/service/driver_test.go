package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"ridehail/internal/domain"
)

func TestDriverService_Onboarding(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	driver, err := f.drivers.Register(ctx, RegisterDriverRequest{Name: " Asha ", Phone: "+91-9000000001"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if driver.Name != "Asha" || driver.VerificationStatus != domain.VerificationPending || driver.IsAvailable {
		t.Errorf("unexpected new driver: %+v", driver)
	}

	if _, err := f.drivers.Register(ctx, RegisterDriverRequest{Name: "Other", Phone: "+91-9000000001"}); !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("expected ErrPhoneTaken, got %v", err)
	}

	if _, err := f.drivers.SetAvailability(ctx, driver.ID, true); !errors.Is(err, ErrDriverNotEligible) {
		t.Errorf("expected ErrDriverNotEligible before verification, got %v", err)
	}

	if _, err := f.drivers.SetVehicle(ctx, driver.ID, domain.Vehicle{Class: domain.VehicleAuto, PlateNumber: "KA-05-1234"}); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.drivers.SetVerificationStatus(ctx, domain.Actor{ID: driver.ID, Role: domain.RoleDriver}, driver.ID, domain.VerificationApproved); !errors.Is(err, ErrOperatorOnly) {
		t.Errorf("expected ErrOperatorOnly, got %v", err)
	}
	if _, err := f.drivers.SetVerificationStatus(ctx, operatorOne, driver.ID, domain.VerificationApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	updated, err := f.drivers.SetAvailability(ctx, driver.ID, true)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !updated.IsAvailable || !f.store.Driver(driver.ID).IsAvailable {
		t.Error("expected verified driver to go available")
	}

	if _, err := f.drivers.SetVerificationStatus(ctx, operatorOne, driver.ID, domain.VerificationRejected); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if f.store.Driver(driver.ID).IsAvailable {
		t.Error("expected rejection to take the driver offline")
	}
}

func TestDriverService_ListByVerification(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addDriver("driver-approved", domain.VehicleCar)
	ctx := context.Background()

	first, err := f.drivers.Register(ctx, RegisterDriverRequest{Name: "Asha", Phone: "+91-9000000011"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.advance(time.Minute)
	second, err := f.drivers.Register(ctx, RegisterDriverRequest{Name: "Bilal", Phone: "+91-9000000012"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	queue, err := f.drivers.ListByVerification(ctx, operatorOne, domain.VerificationPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != first.ID || queue[1].ID != second.ID {
		t.Fatalf("expected the two pending drivers oldest first, got %d", len(queue))
	}

	if _, err := f.drivers.SetVerificationStatus(ctx, operatorOne, first.ID, domain.VerificationApproved); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	queue, err = f.drivers.ListByVerification(ctx, operatorOne, domain.VerificationPending)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 1 || queue[0].ID != second.ID {
		t.Errorf("expected only %s pending, got %d drivers", second.ID, len(queue))
	}

	approved, err := f.drivers.ListByVerification(ctx, operatorOne, domain.VerificationApproved)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(approved) != 2 {
		t.Errorf("expected 2 approved drivers, got %d", len(approved))
	}

	if _, err := f.drivers.ListByVerification(ctx, domain.Actor{ID: second.ID, Role: domain.RoleDriver}, domain.VerificationPending); !errors.Is(err, ErrOperatorOnly) {
		t.Errorf("expected ErrOperatorOnly, got %v", err)
	}
	if _, err := f.drivers.ListByVerification(ctx, operatorOne, "maybe"); !errors.Is(err, ErrInvalidVerification) {
		t.Errorf("expected ErrInvalidVerification, got %v", err)
	}
}

func TestDriverService_Validation(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleCar)
	ctx := context.Background()

	tests := []struct {
		name    string
		call    func() error
		wantErr error
	}{
		{
			name: "register without phone",
			call: func() error {
				_, err := f.drivers.Register(ctx, RegisterDriverRequest{Name: "Ravi"})
				return err
			},
			wantErr: ErrMissingField,
		},
		{
			name: "unknown vehicle class",
			call: func() error {
				_, err := f.drivers.SetVehicle(ctx, driver.ID, domain.Vehicle{Class: "van", PlateNumber: "X"})
				return err
			},
			wantErr: ErrInvalidVehicleClass,
		},
		{
			name: "vehicle without plate",
			call: func() error {
				_, err := f.drivers.SetVehicle(ctx, driver.ID, domain.Vehicle{Class: domain.VehicleCar})
				return err
			},
			wantErr: ErrMissingField,
		},
		{
			name: "incomplete bank account",
			call: func() error {
				_, err := f.drivers.SetBankAccount(ctx, driver.ID, domain.BankAccount{Number: "123"})
				return err
			},
			wantErr: ErrNoBankAccount,
		},
		{
			name: "unknown verification status",
			call: func() error {
				_, err := f.drivers.SetVerificationStatus(ctx, operatorOne, driver.ID, "maybe")
				return err
			},
			wantErr: ErrInvalidVerification,
		},
		{
			name: "unknown driver",
			call: func() error {
				_, err := f.drivers.Get(ctx, "missing")
				return err
			},
			wantErr: ErrDriverNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := tt.call(); !errors.Is(err, tt.wantErr) {
				t.Errorf("expected %v, got %v", tt.wantErr, err)
			}
		})
	}
}

func TestDriverService_SetBankAccount(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleBike)

	account := domain.BankAccount{Number: "5555", HolderName: "Driver One", RoutingCode: "SBIN0001"}
	updated, err := f.drivers.SetBankAccount(context.Background(), driver.ID, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if *updated.BankAccount != account || *f.store.Driver(driver.ID).BankAccount != account {
		t.Errorf("expected bank account %+v to be stored", account)
	}
}

func TestDriverService_AvailabilityGuards(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rider := f.addRider("rider-1", "0")
	driver := f.addDriver("driver-1", domain.VehicleBike)
	ride := f.book(t, rider.ID, domain.VehicleBike, domain.PaymentMethodCash, oneKmAway)
	ctx := context.Background()

	f.accept(t, driver.ID, ride.ID)
	if _, err := f.drivers.SetAvailability(ctx, driver.ID, true); !errors.Is(err, ErrDriverHasActiveRide) {
		t.Errorf("expected ErrDriverHasActiveRide, got %v", err)
	}
	if _, err := f.drivers.SetVehicle(ctx, driver.ID, domain.Vehicle{Class: domain.VehicleCar, PlateNumber: "KA-01-9"}); !errors.Is(err, ErrDriverHasActiveRide) {
		t.Errorf("expected class change to be refused mid-ride, got %v", err)
	}

	f.start(t, driver.ID, ride.ID)
	f.complete(t, driver.ID, ride.ID)

	if _, err := f.drivers.SetAvailability(ctx, driver.ID, true); !errors.Is(err, ErrCashCollectionPending) {
		t.Errorf("expected ErrCashCollectionPending, got %v", err)
	}

	if _, err := f.settlement.CollectPayment(ctx, ride.ID, driver.ID); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.drivers.SetAvailability(ctx, driver.ID, false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := f.drivers.SetAvailability(ctx, driver.ID, true); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestDriverService_Earnings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	rider := f.addRider("rider-1", "100")
	driver := f.addDriver("driver-1", domain.VehicleBike)
	ctx := context.Background()

	ride := f.book(t, rider.ID, domain.VehicleBike, domain.PaymentMethodPrepaid, fourKmAway)
	f.accept(t, driver.ID, ride.ID)
	f.start(t, driver.ID, ride.ID)
	f.complete(t, driver.ID, ride.ID)

	if _, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("15")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	summary, err := f.drivers.Earnings(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "balance", summary.Balance, "40")
	assertAmount(t, "pending", summary.Pending, "15")
	if summary.TotalRides != 1 {
		t.Errorf("expected 1 ride, got %d", summary.TotalRides)
	}
}

func TestRiderService_Register(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	ctx := context.Background()

	rider, err := f.riders.Register(ctx, RegisterRiderRequest{Name: "Meera", Phone: "+91-9800000000"})
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "wallet", rider.Wallet, "0")

	got, err := f.riders.Get(ctx, rider.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got.Phone != "+91-9800000000" || !got.CreatedAt.Equal(f.now) {
		t.Errorf("unexpected stored rider: %+v", got)
	}

	if _, err := f.riders.Register(ctx, RegisterRiderRequest{Name: "Other", Phone: "+91-9800000000"}); !errors.Is(err, ErrPhoneTaken) {
		t.Errorf("expected ErrPhoneTaken, got %v", err)
	}
	if _, err := f.riders.Register(ctx, RegisterRiderRequest{Phone: "1"}); !errors.Is(err, ErrMissingField) {
		t.Errorf("expected ErrMissingField, got %v", err)
	}
	if _, err := f.riders.Get(ctx, "missing"); !errors.Is(err, ErrRiderNotFound) {
		t.Errorf("expected ErrRiderNotFound, got %v", err)
	}
}
