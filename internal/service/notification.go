package service

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/events"
)

// NotificationService announces lifecycle changes after they commit.
// Delivery failures are logged and never fail the operation that triggered them.
type NotificationService struct {
	publisher events.Publisher
	clock     func() time.Time
}

// NewNotificationService creates a new NotificationService.
func NewNotificationService(publisher events.Publisher) *NotificationService {
	return &NotificationService{publisher: publisher, clock: time.Now}
}

// NotifyRideRequested announces a new pending ride to the driver pool.
func (s *NotificationService) NotifyRideRequested(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.RideRequested, ride,
		fmt.Sprintf("New %s ride %s from %s", ride.VehicleClass, ride.Number, ride.Pickup.Address)))
}

// NotifyRideAccepted tells the rider a driver claimed the ride.
func (s *NotificationService) NotifyRideAccepted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.RideAccepted, ride, "A driver is on the way. Share your pickup code on arrival."))
}

// NotifyRideStarted tells the rider the pickup code was accepted.
func (s *NotificationService) NotifyRideStarted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.RideStarted, ride, "Your ride has started."))
}

// NotifyRideCompleted tells both parties the ride is over.
func (s *NotificationService) NotifyRideCompleted(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.RideCompleted, ride,
		fmt.Sprintf("Ride %s completed. Fare: %s (%s)", ride.Number, ride.Fare.StringFixed(2), ride.PaymentMethod)))
}

// NotifyRideCancelled tells the other party the ride was cancelled.
func (s *NotificationService) NotifyRideCancelled(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.RideCancelled, ride,
		fmt.Sprintf("Ride %s was cancelled by the %s", ride.Number, ride.CancelledBy)))
}

// NotifyPaymentCollected records that a cash fare was collected.
func (s *NotificationService) NotifyPaymentCollected(ctx context.Context, ride *domain.Ride) {
	s.send(ctx, rideEvent(events.PaymentCollected, ride,
		fmt.Sprintf("Cash payment of %s collected for ride %s", ride.Fare.StringFixed(2), ride.Number)))
}

// NotifyWithdrawal announces a withdrawal request or its review outcome.
func (s *NotificationService) NotifyWithdrawal(ctx context.Context, t events.Type, w *domain.WithdrawalRequest) {
	s.send(ctx, events.Event{
		Type:         t,
		DriverID:     w.DriverID,
		WithdrawalID: w.ID,
		Status:       string(w.Status),
		Amount:       w.Amount,
		Message:      fmt.Sprintf("Withdrawal of %s is %s", w.Amount.StringFixed(2), w.Status),
	})
}

func rideEvent(t events.Type, ride *domain.Ride, message string) events.Event {
	return events.Event{
		Type:       t,
		RideID:     ride.ID,
		RideNumber: ride.Number,
		RiderID:    ride.RiderID,
		DriverID:   ride.DriverID,
		Status:     string(ride.Status),
		Amount:     ride.Fare,
		Message:    message,
	}
}

// send delivers an event through the configured publisher.
func (s *NotificationService) send(ctx context.Context, event events.Event) {
	if s == nil || s.publisher == nil {
		return
	}
	event.OccurredAt = s.clock()

	if err := s.publisher.Publish(ctx, event); err != nil {
		logrus.WithFields(logrus.Fields{
			"event":   event.Type,
			"ride_id": event.RideID,
		}).WithError(err).Warn("failed to publish notification")
	}
}
