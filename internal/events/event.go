package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

// Type names a lifecycle event. It doubles as the routing key.
type Type string

const (
	RideRequested       Type = "ride.requested"
	RideAccepted        Type = "ride.accepted"
	RideStarted         Type = "ride.started"
	RideCompleted       Type = "ride.completed"
	RideCancelled       Type = "ride.cancelled"
	PaymentCollected    Type = "payment.collected"
	WithdrawalRequested Type = "withdrawal.requested"
	WithdrawalCompleted Type = "withdrawal.completed"
	WithdrawalRejected  Type = "withdrawal.rejected"
)

// Event is a point-in-time fact about a ride or payout.
type Event struct {
	Type         Type            `json:"type"`
	RideID       string          `json:"ride_id,omitempty"`
	RideNumber   string          `json:"ride_number,omitempty"`
	RiderID      string          `json:"rider_id,omitempty"`
	DriverID     string          `json:"driver_id,omitempty"`
	WithdrawalID string          `json:"withdrawal_id,omitempty"`
	Status       string          `json:"status,omitempty"`
	Amount       decimal.Decimal `json:"amount"`
	Message      string          `json:"message,omitempty"`
	OccurredAt   time.Time       `json:"occurred_at"`
}

// Publisher delivers events to interested parties.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
}
