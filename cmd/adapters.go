package main

import (
	"context"
	"fmt"

	"rideapp/app/rideflow"
	"rideapp/pkg/logger"
	"rideapp/service"
)

// profileLocator resolves the rider coordinate from the profile's
// last-known position. Real geolocation acquisition lives outside this
// layer; the profile is its drop box.
type profileLocator struct {
	svc   service.IServiceManager
	ident rideflow.Identity
}

func (l *profileLocator) Current(ctx context.Context) (float64, float64, error) {
	userID := l.ident.UserID()
	if userID == "" {
		return 0, 0, fmt.Errorf("locator: no signed-in user")
	}
	p, err := l.svc.Profile().Get(ctx, userID)
	if err != nil {
		return 0, 0, fmt.Errorf("locator: %w", err)
	}
	if p.Lat == nil || p.Lng == nil {
		return 0, 0, fmt.Errorf("locator: no known coordinate for user")
	}
	return *p.Lat, *p.Lng, nil
}

// logNotifier surfaces user-visible notices on the log; a UI layer
// would swap in its own implementation.
type logNotifier struct {
	log logger.ILogger
}

func (n *logNotifier) Notify(message string) {
	n.log.Info("notice", logger.String("message", message))
}
