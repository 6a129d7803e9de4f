// Command migrate applies or rolls back the database schema.
//
//	migrate up
//	migrate down [steps]
package main

import (
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"ridehail/internal/app"
	"ridehail/internal/config"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		logrus.WithError(err).Fatal("failed to load configuration")
	}
	logger := app.NewLogger(cfg.Log)

	cmd := "up"
	if len(os.Args) > 1 {
		cmd = os.Args[1]
	}

	switch cmd {
	case "up":
		if err := app.RunMigrations(cfg.Database); err != nil {
			logger.WithError(err).Fatal("migration failed")
		}
	case "down":
		steps := 1
		if len(os.Args) > 2 {
			steps, err = strconv.Atoi(os.Args[2])
			if err != nil || steps < 1 {
				logger.WithField("steps", os.Args[2]).Fatal("steps must be a positive integer")
			}
		}
		if err := app.RollbackMigrations(cfg.Database, steps); err != nil {
			logger.WithError(err).Fatal("rollback failed")
		}
		logger.WithField("steps", steps).Info("migrations rolled back")
	default:
		logger.WithField("command", cmd).Fatal("usage: migrate up | migrate down [steps]")
	}
}
