package service

import (
	"rideapp/backend"
	"rideapp/pkg/logger"
)

type IServiceManager interface {
	Profile() ProfileService
	Payments() PaymentService
	Tariffs() TariffService
	Rides() RideService
}

type service struct {
	profileService ProfileService
	paymentService PaymentService
	tariffService  TariffService
	rideService    RideService
}

func New(be backend.IBackend, log logger.ILogger) IServiceManager {
	return &service{
		profileService: NewProfileService(be, log),
		paymentService: NewPaymentService(be, log),
		tariffService:  NewTariffService(be, log),
		rideService:    NewRideService(be, log),
	}
}

func (s *service) Profile() ProfileService  { return s.profileService }
func (s *service) Payments() PaymentService { return s.paymentService }
func (s *service) Tariffs() TariffService   { return s.tariffService }
func (s *service) Rides() RideService       { return s.rideService }
