package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// Receipt is the fare breakdown of a finished ride.
type Receipt struct {
	RideID         string
	RideNumber     string
	RiderID        string
	DriverID       string
	Pickup         Place
	Dropoff        Place
	VehicleClass   VehicleClass
	DistanceKm     decimal.Decimal
	BaseFare       decimal.Decimal
	DistanceFare   decimal.Decimal
	OriginalFare   decimal.Decimal
	DiscountAmount decimal.Decimal
	CouponCode     string
	TotalFare      decimal.Decimal
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	Duration       time.Duration
	StartedAt      time.Time
	EndedAt        time.Time
	IssuedAt       time.Time

	// Payments are the ledger movements of the ride on the reader's account.
	Payments []*LedgerEntry
}
