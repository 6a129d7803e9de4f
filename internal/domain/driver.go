package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// VerificationStatus is the outcome of a driver's document/video verification.
type VerificationStatus string

const (
	VerificationPending  VerificationStatus = "pending"
	VerificationApproved VerificationStatus = "approved"
	VerificationRejected VerificationStatus = "rejected"
)

// Valid reports whether the status is known.
func (s VerificationStatus) Valid() bool {
	switch s {
	case VerificationPending, VerificationApproved, VerificationRejected:
		return true
	}
	return false
}

// Vehicle is the vehicle a driver has on file.
type Vehicle struct {
	Class       VehicleClass `json:"class"`
	PlateNumber string       `json:"plate_number"`
	Model       string       `json:"model"`
}

// BankAccount is a payout destination.
type BankAccount struct {
	Number      string `json:"number"`
	HolderName  string `json:"holder_name"`
	RoutingCode string `json:"routing_code"`
}

// Complete reports whether every field needed for a payout is present.
func (b *BankAccount) Complete() bool {
	return b != nil && b.Number != "" && b.HolderName != "" && b.RoutingCode != ""
}

// Driver represents a driver in the system.
type Driver struct {
	ID                 string
	Name               string
	Phone              string
	Vehicle            *Vehicle
	VerificationStatus VerificationStatus
	IsAvailable        bool
	Earnings           decimal.Decimal
	Rating             decimal.Decimal
	TotalRides         int
	BankAccount        *BankAccount
	CreatedAt          time.Time
}
