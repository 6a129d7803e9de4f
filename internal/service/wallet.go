package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// Movement describes one balance mutation.
type Movement struct {
	Account     domain.Account
	Type        domain.EntryType
	Amount      decimal.Decimal
	Description string
	RideID      string
	// Counterparty is the other actor of a ride-related movement, if any.
	Counterparty string
}

// Reconciliation is the outcome of replaying an account's ledger.
type Reconciliation struct {
	Account          domain.Account
	StoredBalance    decimal.Decimal
	ReplayedBalance  decimal.Decimal
	Entries          int
	Consistent       bool
	FirstMismatchSeq int64
}

// WalletLedger owns rider wallets and driver earnings. Every balance change
// is written together with a ledger entry in one transaction.
type WalletLedger struct {
	store repository.Store
	clock func() time.Time
}

// NewWalletLedger creates a new WalletLedger.
func NewWalletLedger(store repository.Store) *WalletLedger {
	return &WalletLedger{store: store, clock: time.Now}
}

// Debit removes amount from the account in its own transaction.
func (l *WalletLedger) Debit(ctx context.Context, account domain.Account, amount decimal.Decimal, reason, rideID string) (*domain.LedgerEntry, error) {
	return l.applyInTx(ctx, Movement{Account: account, Type: domain.EntryDebit, Amount: amount, Description: reason, RideID: rideID})
}

// Credit adds amount to the account in its own transaction.
func (l *WalletLedger) Credit(ctx context.Context, account domain.Account, amount decimal.Decimal, reason, rideID string) (*domain.LedgerEntry, error) {
	return l.applyInTx(ctx, Movement{Account: account, Type: domain.EntryCredit, Amount: amount, Description: reason, RideID: rideID})
}

// TopUp credits a rider wallet with funds settled by the payment provider.
func (l *WalletLedger) TopUp(ctx context.Context, riderID string, amount decimal.Decimal, reference string) (*domain.LedgerEntry, error) {
	reason := "wallet top-up"
	if reference != "" {
		reason += " " + reference
	}
	return l.Credit(ctx, domain.RiderWallet(riderID), amount, reason, "")
}

func (l *WalletLedger) applyInTx(ctx context.Context, m Movement) (*domain.LedgerEntry, error) {
	var entry *domain.LedgerEntry
	err := l.store.InTx(ctx, func(repos repository.Repositories) error {
		var err error
		entry, err = l.Apply(ctx, repos, m)
		return err
	})
	if err != nil {
		return nil, err
	}
	return entry, nil
}

// Apply performs the movement with the caller's transaction: it locks the
// owner row, checks and stores the new balance, then appends the entry.
func (l *WalletLedger) Apply(ctx context.Context, repos repository.Repositories, m Movement) (*domain.LedgerEntry, error) {
	amount := m.Amount.Round(2)
	if !amount.IsPositive() {
		return nil, ErrInvalidAmount
	}

	balance, err := l.lockBalance(ctx, repos, m.Account)
	if err != nil {
		return nil, err
	}

	var next decimal.Decimal
	if m.Type == domain.EntryDebit {
		if balance.LessThan(amount) {
			if m.Account.Kind == domain.BalanceEarnings {
				return nil, ErrInsufficientEarnings
			}
			return nil, ErrInsufficientWallet
		}
		next = balance.Sub(amount)
	} else {
		next = balance.Add(amount)
	}

	if m.Account.Kind == domain.BalanceWallet {
		err = repos.Riders().SetWallet(ctx, m.Account.OwnerID, next)
	} else {
		err = repos.Drivers().SetEarnings(ctx, m.Account.OwnerID, next)
	}
	if err != nil {
		return nil, err
	}

	entry := &domain.LedgerEntry{
		ID:           uuid.New().String(),
		Kind:         m.Account.Kind,
		RideID:       m.RideID,
		Type:         m.Type,
		Amount:       amount,
		Description:  m.Description,
		BalanceAfter: next,
		CreatedAt:    l.clock(),
	}
	if m.Account.Kind == domain.BalanceWallet {
		entry.RiderID, entry.DriverID = m.Account.OwnerID, m.Counterparty
	} else {
		entry.DriverID, entry.RiderID = m.Account.OwnerID, m.Counterparty
	}

	if err := repos.Ledger().Append(ctx, entry); err != nil {
		return nil, err
	}

	logrus.WithFields(logrus.Fields{
		"account":       m.Account.Kind,
		"owner_id":      m.Account.OwnerID,
		"ride_id":       m.RideID,
		"type":          m.Type,
		"amount":        amount.StringFixed(2),
		"balance_after": next.StringFixed(2),
	}).Info("balance updated")

	return entry, nil
}

// Balance returns the current balance of an account.
func (l *WalletLedger) Balance(ctx context.Context, account domain.Account) (decimal.Decimal, error) {
	return l.readBalance(ctx, l.store, account)
}

// History returns the ledger entries of an account in the order they were written.
func (l *WalletLedger) History(ctx context.Context, account domain.Account) ([]*domain.LedgerEntry, error) {
	if _, err := l.readBalance(ctx, l.store, account); err != nil {
		return nil, err
	}
	return l.store.Ledger().ListByAccount(ctx, account)
}

// Reconcile replays every entry of the account and compares the result with
// the stored balance and with each entry's recorded balance.
func (l *WalletLedger) Reconcile(ctx context.Context, account domain.Account) (*Reconciliation, error) {
	stored, err := l.readBalance(ctx, l.store, account)
	if err != nil {
		return nil, err
	}
	entries, err := l.store.Ledger().ListByAccount(ctx, account)
	if err != nil {
		return nil, err
	}

	result := &Reconciliation{Account: account, StoredBalance: stored, Entries: len(entries), Consistent: true}
	running := decimal.Zero
	for _, e := range entries {
		if e.Type == domain.EntryCredit {
			running = running.Add(e.Amount)
		} else {
			running = running.Sub(e.Amount)
		}
		if result.Consistent && !running.Equal(e.BalanceAfter) {
			result.Consistent = false
			result.FirstMismatchSeq = e.Seq
		}
	}
	result.ReplayedBalance = running
	if !running.Equal(stored) {
		result.Consistent = false
	}

	if !result.Consistent {
		logrus.WithFields(logrus.Fields{
			"account":  account.Kind,
			"owner_id": account.OwnerID,
			"stored":   stored.StringFixed(2),
			"replayed": running.StringFixed(2),
		}).Error("ledger does not reconcile with balance")
	}
	return result, nil
}

func (l *WalletLedger) lockBalance(ctx context.Context, repos repository.Repositories, account domain.Account) (decimal.Decimal, error) {
	if account.Kind == domain.BalanceWallet {
		rider, err := repos.Riders().GetByIDForUpdate(ctx, account.OwnerID)
		if err != nil {
			return decimal.Zero, orNotFound(err, ErrRiderNotFound)
		}
		return rider.Wallet, nil
	}
	driver, err := repos.Drivers().GetByIDForUpdate(ctx, account.OwnerID)
	if err != nil {
		return decimal.Zero, orNotFound(err, ErrDriverNotFound)
	}
	return driver.Earnings, nil
}

func (l *WalletLedger) readBalance(ctx context.Context, repos repository.Repositories, account domain.Account) (decimal.Decimal, error) {
	if account.Kind == domain.BalanceWallet {
		rider, err := repos.Riders().GetByID(ctx, account.OwnerID)
		if err != nil {
			return decimal.Zero, orNotFound(err, ErrRiderNotFound)
		}
		return rider.Wallet, nil
	}
	driver, err := repos.Drivers().GetByID(ctx, account.OwnerID)
	if err != nil {
		return decimal.Zero, orNotFound(err, ErrDriverNotFound)
	}
	return driver.Earnings, nil
}
