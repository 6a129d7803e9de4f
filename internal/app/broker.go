package app

import (
	"github.com/sirupsen/logrus"

	"ridehail/internal/config"
	"ridehail/internal/events"
)

// NewPublisher returns the RabbitMQ publisher when enabled, otherwise a
// publisher that logs events. The returned close function is never nil.
func NewPublisher(cfg config.RabbitMQConfig, logger logrus.FieldLogger) (events.Publisher, func() error, error) {
	if !cfg.Enabled {
		logger.Info("rabbitmq disabled, lifecycle events will be logged")
		return events.NewLogPublisher(logger), func() error { return nil }, nil
	}

	publisher, err := events.NewRabbitPublisher(events.RabbitConfig{
		URL:      cfg.URL,
		Exchange: cfg.Exchange,
	}, logger)
	if err != nil {
		return nil, nil, err
	}
	logger.WithField("exchange", cfg.Exchange).Info("publishing lifecycle events to rabbitmq")
	return publisher, publisher.Close, nil
}
