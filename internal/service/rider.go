package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"

	"ridehail/internal/domain"
	"ridehail/internal/repository"
)

// RiderService handles rider registration and lookup.
type RiderService struct {
	store repository.Store
	clock func() time.Time
}

// NewRiderService creates a new RiderService.
func NewRiderService(store repository.Store) *RiderService {
	return &RiderService{store: store, clock: time.Now}
}

// RegisterRiderRequest contains the parameters for registering a rider.
type RegisterRiderRequest struct {
	Name  string
	Phone string
}

// Register creates a rider with an empty wallet.
func (s *RiderService) Register(ctx context.Context, req RegisterRiderRequest) (*domain.Rider, error) {
	name := strings.TrimSpace(req.Name)
	phone := strings.TrimSpace(req.Phone)
	if name == "" || phone == "" {
		return nil, ErrMissingField
	}

	rider := &domain.Rider{
		ID:        uuid.New().String(),
		Name:      name,
		Phone:     phone,
		Wallet:    decimal.Zero,
		CreatedAt: s.clock(),
	}
	if err := s.store.Riders().Create(ctx, rider); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, ErrPhoneTaken
		}
		return nil, err
	}

	logrus.WithField("rider_id", rider.ID).Info("rider registered")
	return rider, nil
}

// Get returns a rider by ID.
func (s *RiderService) Get(ctx context.Context, riderID string) (*domain.Rider, error) {
	rider, err := s.store.Riders().GetByID(ctx, riderID)
	if err != nil {
		return nil, orNotFound(err, ErrRiderNotFound)
	}
	return rider, nil
}
