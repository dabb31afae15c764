package service

import (
	"context"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type RideService interface {
	History(ctx context.Context, riderID string, limit int) ([]models.Ride, error)
	Driver(ctx context.Context, driverID string) (*models.Driver, error)
}

type rideService struct {
	be  backend.IBackend
	log logger.ILogger
}

func NewRideService(be backend.IBackend, log logger.ILogger) RideService {
	return &rideService{be: be, log: log}
}

func (s *rideService) History(ctx context.Context, riderID string, limit int) ([]models.Ride, error) {
	if limit <= 0 {
		limit = 50
	}
	var rides []models.Ride
	err := s.be.Rows().From("rides").
		Eq("rider_id", riderID).
		Order("created_at", false).
		Limit(limit).
		Get(ctx, &rides)
	if err != nil {
		s.log.Error("failed to list ride history", logger.String("rider_id", riderID), logger.Error(err))
		return nil, err
	}
	return rides, nil
}

// Driver loads the public card of an assigned driver for the
// en-route screen.
func (s *rideService) Driver(ctx context.Context, driverID string) (*models.Driver, error) {
	var d models.Driver
	err := s.be.Rows().From("drivers").Eq("id", driverID).Single(ctx, &d)
	if err != nil {
		s.log.Error("failed to get driver", logger.String("driver_id", driverID), logger.Error(err))
		return nil, err
	}
	return &d, nil
}
