package repository

import "context"

// Repositories groups the repositories that share one connection or transaction.
type Repositories interface {
	Rides() RideRepository
	Drivers() DriverRepository
	Riders() RiderRepository
	OTPs() OTPRepository
	Ledger() LedgerRepository
	Withdrawals() WithdrawalRepository
	Coupons() CouponRepository
}

// Store gives access to the repositories outside and inside a transaction.
type Store interface {
	Repositories

	// InTx runs fn with repositories bound to one transaction. The transaction
	// commits if fn returns nil and rolls back otherwise.
	InTx(ctx context.Context, fn func(Repositories) error) error
}
