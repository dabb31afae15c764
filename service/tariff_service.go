package service

import (
	"context"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type TariffService interface {
	List(ctx context.Context) ([]models.Tariff, error)
}

type tariffService struct {
	be  backend.IBackend
	log logger.ILogger
}

func NewTariffService(be backend.IBackend, log logger.ILogger) TariffService {
	return &tariffService{be: be, log: log}
}

func (s *tariffService) List(ctx context.Context) ([]models.Tariff, error) {
	var tariffs []models.Tariff
	err := s.be.Rows().From("tariffs").
		Eq("is_active", true).
		Order("id", true).
		Get(ctx, &tariffs)
	if err != nil {
		s.log.Error("failed to list tariffs", logger.Error(err))
		return nil, err
	}
	return tariffs, nil
}
