package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// BalanceKind names which balance a ledger entry moves.
type BalanceKind string

const (
	BalanceWallet   BalanceKind = "wallet"
	BalanceEarnings BalanceKind = "earnings"
)

// EntryType is the direction of a ledger entry.
type EntryType string

const (
	EntryCredit EntryType = "credit"
	EntryDebit  EntryType = "debit"
)

// Account identifies one balance: a rider's wallet or a driver's earnings.
type Account struct {
	Kind    BalanceKind
	OwnerID string
}

// RiderWallet returns the wallet account of a rider.
func RiderWallet(riderID string) Account {
	return Account{Kind: BalanceWallet, OwnerID: riderID}
}

// DriverEarnings returns the earnings account of a driver.
func DriverEarnings(driverID string) Account {
	return Account{Kind: BalanceEarnings, OwnerID: driverID}
}

// LedgerEntry is an immutable record of one balance mutation.
type LedgerEntry struct {
	Seq          int64
	ID           string
	Kind         BalanceKind
	RiderID      string
	DriverID     string
	RideID       string
	Type         EntryType
	Amount       decimal.Decimal
	Description  string
	BalanceAfter decimal.Decimal
	CreatedAt    time.Time
}

// Account returns the account the entry belongs to.
func (e *LedgerEntry) Account() Account {
	if e.Kind == BalanceWallet {
		return RiderWallet(e.RiderID)
	}
	return DriverEarnings(e.DriverID)
}
