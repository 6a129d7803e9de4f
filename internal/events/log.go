package events

import (
	"context"

	"github.com/sirupsen/logrus"
)

// LogPublisher writes events to the application log. It is used when no broker is configured.
type LogPublisher struct {
	log logrus.FieldLogger
}

// NewLogPublisher creates a LogPublisher.
func NewLogPublisher(log logrus.FieldLogger) *LogPublisher {
	return &LogPublisher{log: log}
}

// Publish logs the event.
func (p *LogPublisher) Publish(_ context.Context, event Event) error {
	p.log.WithFields(logrus.Fields{
		"event":         event.Type,
		"ride_id":       event.RideID,
		"rider_id":      event.RiderID,
		"driver_id":     event.DriverID,
		"withdrawal_id": event.WithdrawalID,
		"amount":        event.Amount.StringFixed(2),
	}).Info(event.Message)
	return nil
}
