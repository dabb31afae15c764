package service

import (
	"context"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type ProfileService interface {
	Get(ctx context.Context, userID string) (*models.Profile, error)
	Update(ctx context.Context, userID, fullName, phone string) error
	UpdateLocation(ctx context.Context, userID string, lat, lng float64) error
}

type profileService struct {
	be  backend.IBackend
	log logger.ILogger
}

func NewProfileService(be backend.IBackend, log logger.ILogger) ProfileService {
	return &profileService{be: be, log: log}
}

func (s *profileService) Get(ctx context.Context, userID string) (*models.Profile, error) {
	var p models.Profile
	err := s.be.Rows().From("profiles").Eq("id", userID).Single(ctx, &p)
	if err != nil {
		s.log.Error("failed to get profile", logger.String("user_id", userID), logger.Error(err))
		return nil, err
	}
	return &p, nil
}

func (s *profileService) Update(ctx context.Context, userID, fullName, phone string) error {
	return s.be.Rows().From("profiles").Eq("id", userID).
		Update(ctx, map[string]any{"full_name": fullName, "phone": phone})
}

func (s *profileService) UpdateLocation(ctx context.Context, userID string, lat, lng float64) error {
	return s.be.Rows().From("profiles").Eq("id", userID).
		Update(ctx, map[string]any{"last_lat": lat, "last_lng": lng})
}
