package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

// RideStatus represents the current status of a ride.
type RideStatus string

const (
	RideStatusPending    RideStatus = "pending"
	RideStatusAccepted   RideStatus = "accepted"
	RideStatusInProgress RideStatus = "in-progress"
	RideStatusCompleted  RideStatus = "completed"
	RideStatusCancelled  RideStatus = "cancelled"
)

// ActiveRiderStatuses are the statuses that count as a rider's active ride.
var ActiveRiderStatuses = []RideStatus{RideStatusPending, RideStatusAccepted, RideStatusInProgress}

// ActiveDriverStatuses are the statuses that count as a driver's active ride.
var ActiveDriverStatuses = []RideStatus{RideStatusAccepted, RideStatusInProgress}

// VehicleClass is the class of vehicle requested for a ride.
type VehicleClass string

const (
	VehicleBike VehicleClass = "bike"
	VehicleAuto VehicleClass = "auto"
	VehicleCar  VehicleClass = "car"
)

// Valid reports whether the class is one of the known classes.
func (v VehicleClass) Valid() bool {
	switch v {
	case VehicleBike, VehicleAuto, VehicleCar:
		return true
	}
	return false
}

// Place is a named coordinate.
type Place struct {
	Address string  `json:"address"`
	Lat     float64 `json:"lat"`
	Lon     float64 `json:"lon"`
}

// Ride represents one trip from booking through completion or cancellation.
type Ride struct {
	ID             string
	Number         string
	RiderID        string
	DriverID       string
	Pickup         Place
	Dropoff        Place
	VehicleClass   VehicleClass
	DistanceKm     decimal.Decimal
	Fare           decimal.Decimal // final, after discount
	OriginalFare   decimal.Decimal
	DiscountAmount decimal.Decimal
	CouponCode     string
	Status         RideStatus
	PaymentMethod  PaymentMethod
	PaymentStatus  PaymentStatus
	BookedAt       time.Time
	AcceptedAt     time.Time
	StartTime      time.Time
	EndTime        time.Time
	CancelledAt    time.Time
	CancelReason   string
	CancelledBy    Role
	Rating         int // 0 means not rated
	Review         string
}

// IsActiveForRider reports whether the ride blocks its rider from booking again.
func (r *Ride) IsActiveForRider() bool {
	return r.Status == RideStatusPending || r.Status == RideStatusAccepted || r.Status == RideStatusInProgress
}

// IsActiveForDriver reports whether the ride occupies its driver.
func (r *Ride) IsActiveForDriver() bool {
	return r.DriverID != "" && (r.Status == RideStatusAccepted || r.Status == RideStatusInProgress)
}
