package service

import (
	"context"
	"errors"
	"testing"

	"github.com/shopspring/decimal"

	"ridehail/internal/domain"
)

func TestWalletLedger_DebitAndCredit(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "100")
	ctx := context.Background()
	account := domain.RiderWallet("rider-1")

	entry, err := f.wallet.Debit(ctx, account, mustDecimal("30.50"), "payment for ride RD-1", "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "balance after debit", entry.BalanceAfter, "69.50")
	if entry.Type != domain.EntryDebit || entry.RideID != "ride-1" || entry.RiderID != "rider-1" {
		t.Errorf("unexpected entry: %+v", entry)
	}

	entry, err = f.wallet.Credit(ctx, account, mustDecimal("10"), "refund", "ride-1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "balance after credit", entry.BalanceAfter, "79.50")

	balance, err := f.wallet.Balance(ctx, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "stored balance", balance, "79.50")

	history, err := f.wallet.History(ctx, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(history) != 2 || history[0].Seq >= history[1].Seq {
		t.Fatalf("expected 2 entries in write order, got %d", len(history))
	}
}

func TestWalletLedger_Rejections(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		account domain.Account
		typ     domain.EntryType
		amount  decimal.Decimal
		wantErr error
	}{
		{
			name:    "debit above wallet balance",
			account: domain.RiderWallet("rider-1"),
			typ:     domain.EntryDebit,
			amount:  mustDecimal("50.01"),
			wantErr: ErrInsufficientWallet,
		},
		{
			name:    "debit above earnings",
			account: domain.DriverEarnings("driver-1"),
			typ:     domain.EntryDebit,
			amount:  mustDecimal("1"),
			wantErr: ErrInsufficientEarnings,
		},
		{
			name:    "zero amount",
			account: domain.RiderWallet("rider-1"),
			typ:     domain.EntryCredit,
			amount:  decimal.Zero,
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "negative amount",
			account: domain.RiderWallet("rider-1"),
			typ:     domain.EntryCredit,
			amount:  mustDecimal("-5"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "credit below one cent",
			account: domain.RiderWallet("rider-1"),
			typ:     domain.EntryCredit,
			amount:  mustDecimal("0.004"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "debit below one cent",
			account: domain.RiderWallet("rider-1"),
			typ:     domain.EntryDebit,
			amount:  mustDecimal("0.0049"),
			wantErr: ErrInvalidAmount,
		},
		{
			name:    "unknown rider",
			account: domain.RiderWallet("nobody"),
			typ:     domain.EntryCredit,
			amount:  mustDecimal("5"),
			wantErr: ErrRiderNotFound,
		},
		{
			name:    "unknown driver",
			account: domain.DriverEarnings("nobody"),
			typ:     domain.EntryCredit,
			amount:  mustDecimal("5"),
			wantErr: ErrDriverNotFound,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			f.addRider("rider-1", "50")
			f.addDriver("driver-1", domain.VehicleCar)

			var err error
			if tt.typ == domain.EntryDebit {
				_, err = f.wallet.Debit(context.Background(), tt.account, tt.amount, "test", "")
			} else {
				_, err = f.wallet.Credit(context.Background(), tt.account, tt.amount, "test", "")
			}
			if !errors.Is(err, tt.wantErr) {
				t.Fatalf("expected %v, got %v", tt.wantErr, err)
			}

			assertAmount(t, "wallet", f.store.Rider("rider-1").Wallet, "50")
			assertAmount(t, "earnings", f.store.Driver("driver-1").Earnings, "0")
			if n := len(f.store.LedgerEntries()); n != 0 {
				t.Errorf("expected no ledger entries, got %d", n)
			}
		})
	}
}

func TestWalletLedger_RollsBackWhenEntryFails(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "100")
	f.store.LedgerAppendError = errors.New("disk full")

	_, err := f.wallet.Debit(context.Background(), domain.RiderWallet("rider-1"), mustDecimal("40"), "payment", "")
	if err == nil {
		t.Fatal("expected error, got nil")
	}

	assertAmount(t, "wallet", f.store.Rider("rider-1").Wallet, "100")
	if f.store.RollbackCount != 1 {
		t.Errorf("expected 1 rollback, got %d", f.store.RollbackCount)
	}
}

func TestWalletLedger_TopUp(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "0")

	entry, err := f.wallet.TopUp(context.Background(), "rider-1", mustDecimal("250"), "PSP-77")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if entry.Description != "wallet top-up PSP-77" {
		t.Errorf("unexpected description %q", entry.Description)
	}
	assertAmount(t, "wallet", f.store.Rider("rider-1").Wallet, "250")
}

func TestWalletLedger_TopUp_RoundsToCents(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addRider("rider-1", "10")
	ctx := context.Background()

	if _, err := f.wallet.TopUp(ctx, "rider-1", mustDecimal("0.004"), ""); !errors.Is(err, ErrValidation) {
		t.Fatalf("expected validation error, got %v", err)
	}
	if n := len(f.store.LedgerEntries()); n != 0 {
		t.Fatalf("expected no ledger entries, got %d", n)
	}

	entry, err := f.wallet.TopUp(ctx, "rider-1", mustDecimal("0.005"), "")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	assertAmount(t, "entry amount", entry.Amount, "0.01")
	assertAmount(t, "wallet", f.store.Rider("rider-1").Wallet, "10.01")
}

func TestWalletLedger_Reconcile(t *testing.T) {
	t.Parallel()

	f := newFixture(t)
	f.addDriver("driver-1", domain.VehicleCar)
	ctx := context.Background()
	account := domain.DriverEarnings("driver-1")

	for _, amount := range []string{"120", "35.25"} {
		if _, err := f.wallet.Credit(ctx, account, mustDecimal(amount), "earnings", ""); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if _, err := f.wallet.Debit(ctx, account, mustDecimal("55.25"), "withdrawal payout", ""); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	result, err := f.wallet.Reconcile(ctx, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !result.Consistent || result.Entries != 3 {
		t.Fatalf("expected consistent ledger of 3 entries, got %+v", result)
	}
	assertAmount(t, "replayed balance", result.ReplayedBalance, "100")

	f.store.SetDriverEarnings("driver-1", mustDecimal("90"))

	result, err = f.wallet.Reconcile(ctx, account)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Consistent {
		t.Fatal("expected drift to be reported")
	}
	assertAmount(t, "stored balance", result.StoredBalance, "90")
	assertAmount(t, "replayed balance", result.ReplayedBalance, "100")
	if result.FirstMismatchSeq != 0 {
		t.Errorf("expected entries to agree with each other, got mismatch at %d", result.FirstMismatchSeq)
	}
}
