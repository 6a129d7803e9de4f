package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
	"ridehail/internal/events"
)

// fundDriver credits earnings through the ledger so balances reconcile.
func (f *fixture) fundDriver(t *testing.T, driverID, amount string) {
	t.Helper()
	if _, err := f.wallet.Credit(context.Background(), domain.DriverEarnings(driverID), mustDecimal(amount), "earnings", ""); err != nil {
		t.Fatalf("unexpected error funding driver: %v", err)
	}
}

func TestWithdrawalProcessor_RequestAndApprove(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleCar)
	f.fundDriver(t, driver.ID, "500")
	ctx := context.Background()

	w, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("500"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if w.Status != domain.WithdrawalPending || w.Destination.Number != "0001driver-1" {
		t.Errorf("unexpected request: %+v", w)
	}
	assertAmount(t, "earnings while pending", f.store.Driver(driver.ID).Earnings, "500")

	summary, err := f.drivers.Earnings(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "pending", summary.Pending, "500")

	f.advance(time.Hour)
	approved, err := f.withdrawals.Approve(ctx, w.ID, "UTR-991")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if approved.Status != domain.WithdrawalCompleted || approved.PayoutRef != "UTR-991" || !approved.ProcessedAt.Equal(f.now) {
		t.Errorf("unexpected approved request: %+v", approved)
	}
	assertAmount(t, "earnings after payout", f.store.Driver(driver.ID).Earnings, "0")

	entries := f.store.LedgerEntries()
	last := entries[len(entries)-1]
	if len(entries) != 2 || last.Type != domain.EntryDebit || last.Description != "withdrawal payout UTR-991" {
		t.Errorf("expected a single payout debit, got %d entries ending with %+v", len(entries), last)
	}

	result, err := f.wallet.Reconcile(ctx, domain.DriverEarnings(driver.ID))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Consistent {
		t.Errorf("expected earnings to reconcile, got %+v", result)
	}

	if _, err := f.withdrawals.Approve(ctx, w.ID, "UTR-992"); !errors.Is(err, ErrWithdrawalProcessed) {
		t.Errorf("expected ErrWithdrawalProcessed, got %v", err)
	}
	if n := len(f.store.LedgerEntries()); n != 2 {
		t.Errorf("expected no further ledger entries, got %d", n)
	}

	want := []events.Type{events.WithdrawalRequested, events.WithdrawalCompleted}
	got := f.publisher.Types()
	if len(got) != 2 || got[0] != want[0] || got[1] != want[1] {
		t.Errorf("expected events %v, got %v", want, got)
	}
}

func TestWithdrawalProcessor_Request_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		setup   func(t *testing.T, f *fixture)
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:    "below minimum",
			amount:  mustDecimal("0.99"),
			wantErr: ErrWithdrawalTooSmall,
		},
		{
			name:    "more than earned",
			amount:  mustDecimal("200.01"),
			wantErr: ErrInsufficientEarnings,
		},
		{
			name: "no bank account",
			setup: func(_ *testing.T, f *fixture) {
				d := f.store.Driver("driver-1")
				d.BankAccount = nil
				f.store.AddDriver(d)
			},
			amount:  mustDecimal("50"),
			wantErr: ErrNoBankAccount,
		},
		{
			name: "already pending",
			setup: func(t *testing.T, f *fixture) {
				if _, err := f.withdrawals.Request(context.Background(), "driver-1", mustDecimal("10")); err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
			},
			amount:  mustDecimal("50"),
			wantErr: ErrWithdrawalPending,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addDriver("driver-1", domain.VehicleBike)
			f.fundDriver(t, "driver-1", "200")
			if tt.setup != nil {
				tt.setup(t, f)
			}

			_, err := f.withdrawals.Request(context.Background(), "driver-1", tt.amount)
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}
			assertAmount(t, "earnings", f.store.Driver("driver-1").Earnings, "200")
		})
	}
}

func TestWithdrawalProcessor_Approve_RechecksEarnings(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleCar)
	f.fundDriver(t, driver.ID, "300")
	ctx := context.Background()

	w, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("300"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	f.store.SetDriverEarnings(driver.ID, mustDecimal("100"))

	if _, err := f.withdrawals.Approve(ctx, w.ID, "UTR-1"); !errors.Is(err, ErrInsufficientEarnings) {
		t.Fatalf("expected ErrInsufficientEarnings, got %v", err)
	}

	stored, err := f.withdrawals.Get(ctx, w.ID, operatorOne)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if stored.Status != domain.WithdrawalPending {
		t.Errorf("expected request to stay pending, got %s", stored.Status)
	}
	assertAmount(t, "earnings", f.store.Driver(driver.ID).Earnings, "100")
}

func TestWithdrawalProcessor_Approve_MissingPayoutRef(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleCar)
	f.fundDriver(t, driver.ID, "50")

	w, err := f.withdrawals.Request(context.Background(), driver.ID, mustDecimal("50"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.withdrawals.Approve(context.Background(), w.ID, ""); !errors.Is(err, ErrMissingPayoutRef) {
		t.Fatalf("expected ErrMissingPayoutRef, got %v", err)
	}
	if _, err := f.withdrawals.Approve(context.Background(), "missing", "UTR-1"); !errors.Is(err, ErrWithdrawalNotFound) {
		t.Errorf("expected ErrWithdrawalNotFound, got %v", err)
	}
}

func TestWithdrawalProcessor_Reject(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleAuto)
	f.fundDriver(t, driver.ID, "80")
	ctx := context.Background()

	w, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("80"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	rejected, err := f.withdrawals.Reject(ctx, w.ID, "account name mismatch")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if rejected.Status != domain.WithdrawalRejected || rejected.Remark != "account name mismatch" {
		t.Errorf("unexpected rejected request: %+v", rejected)
	}
	assertAmount(t, "earnings", f.store.Driver(driver.ID).Earnings, "80")

	if _, err := f.withdrawals.Approve(ctx, w.ID, "UTR-1"); !errors.Is(err, ErrWithdrawalProcessed) {
		t.Errorf("expected ErrWithdrawalProcessed, got %v", err)
	}
	if _, err := f.withdrawals.Reject(ctx, w.ID, "again"); !errors.Is(err, ErrAlreadyProcessed) {
		t.Errorf("expected ErrAlreadyProcessed, got %v", err)
	}

	// A rejected request no longer blocks a new one.
	if _, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("40")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func TestWithdrawalProcessor_Visibility(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	driver := f.addDriver("driver-1", domain.VehicleCar)
	other := f.addDriver("driver-2", domain.VehicleCar)
	f.fundDriver(t, driver.ID, "100")
	f.fundDriver(t, other.ID, "100")
	ctx := context.Background()

	w, err := f.withdrawals.Request(ctx, driver.ID, mustDecimal("25"))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	f.advance(time.Minute)
	if _, err := f.withdrawals.Request(ctx, other.ID, mustDecimal("30")); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if _, err := f.withdrawals.Get(ctx, w.ID, driver); err != nil {
		t.Errorf("expected owner to see the request, got %v", err)
	}
	if _, err := f.withdrawals.Get(ctx, w.ID, other); !errors.Is(err, ErrWithdrawalNotFound) {
		t.Errorf("expected another driver to get ErrWithdrawalNotFound, got %v", err)
	}

	mine, err := f.withdrawals.ListByDriver(ctx, driver.ID)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(mine) != 1 || mine[0].ID != w.ID {
		t.Errorf("expected only the driver's own request, got %d", len(mine))
	}

	queue, err := f.withdrawals.ListPending(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(queue) != 2 || queue[0].ID != w.ID {
		t.Errorf("expected 2 pending requests oldest first, got %d", len(queue))
	}
}
