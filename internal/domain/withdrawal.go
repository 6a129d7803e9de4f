package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// WithdrawalStatus represents the review status of a withdrawal request.
type WithdrawalStatus string

const (
	WithdrawalPending   WithdrawalStatus = "pending"
	WithdrawalApproved  WithdrawalStatus = "approved"
	WithdrawalRejected  WithdrawalStatus = "rejected"
	WithdrawalCompleted WithdrawalStatus = "completed"
)

// WithdrawalRequest is a driver's request to pay out earnings to a bank account.
type WithdrawalRequest struct {
	ID          string
	DriverID    string
	Amount      decimal.Decimal
	Destination BankAccount
	Status      WithdrawalStatus
	PayoutRef   string
	Remark      string
	RequestedAt time.Time
	ProcessedAt time.Time
}
