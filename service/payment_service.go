package service

import (
	"context"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type PaymentService interface {
	List(ctx context.Context, userID string) ([]models.PaymentMethod, error)
	Add(ctx context.Context, pm models.PaymentMethod) (*models.PaymentMethod, error)
	Delete(ctx context.Context, id int64) error
}

type paymentService struct {
	be  backend.IBackend
	log logger.ILogger
}

func NewPaymentService(be backend.IBackend, log logger.ILogger) PaymentService {
	return &paymentService{be: be, log: log}
}

func (s *paymentService) List(ctx context.Context, userID string) ([]models.PaymentMethod, error) {
	var methods []models.PaymentMethod
	err := s.be.Rows().From("payment_methods").
		Eq("user_id", userID).
		Order("created_at", false).
		Get(ctx, &methods)
	if err != nil {
		s.log.Error("failed to list payment methods", logger.String("user_id", userID), logger.Error(err))
		return nil, err
	}
	return methods, nil
}

func (s *paymentService) Add(ctx context.Context, pm models.PaymentMethod) (*models.PaymentMethod, error) {
	var created models.PaymentMethod
	err := s.be.Rows().From("payment_methods").Insert(ctx, pm, &created)
	if err != nil {
		s.log.Error("failed to add payment method", logger.Error(err))
		return nil, err
	}
	return &created, nil
}

func (s *paymentService) Delete(ctx context.Context, id int64) error {
	err := s.be.Rows().From("payment_methods").Eq("id", id).Delete(ctx)
	if err != nil {
		s.log.Error("failed to delete payment method", logger.Int64("id", id), logger.Error(err))
	}
	return err
}
