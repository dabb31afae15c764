package session

import (
	"context"

	"rideapp/pkg/logger"
	"rideapp/pkg/metrics"
)

// Auth actions invoked from the sign-in, sign-up and reset screens.
// Errors are returned for inline display on the originating screen;
// successful calls drive the machine through the backend's auth events.

func (c *Controller) SignIn(ctx context.Context, email, password string) error {
	_, err := c.be.Auth().SignInWithPassword(ctx, email, password)
	if err != nil {
		c.log.Warning("sign-in failed", logger.String("email", email), logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("sign_in").Inc()
	}
	return err
}

func (c *Controller) SignUp(ctx context.Context, email, password, fullName string) error {
	_, err := c.be.Auth().SignUp(ctx, email, password, fullName)
	if err != nil {
		c.log.Warning("sign-up failed", logger.String("email", email), logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("sign_up").Inc()
	}
	return err
}

func (c *Controller) ResetPassword(ctx context.Context, email, redirectTo string) error {
	err := c.be.Auth().ResetPasswordForEmail(ctx, email, redirectTo)
	if err != nil {
		c.log.Warning("password reset request failed", logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("reset_password").Inc()
	}
	return err
}

// ExchangeRecoveryToken trades the deep-link credential for a session;
// the backend announces PASSWORD_RECOVERY, which forces the reset
// screen regardless of any concurrent sign-in transition.
func (c *Controller) ExchangeRecoveryToken(ctx context.Context, token string) error {
	_, err := c.be.Auth().ExchangeRecoveryToken(ctx, token)
	if err != nil {
		c.log.Warning("recovery token exchange failed", logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("recovery_exchange").Inc()
	}
	return err
}

// UpdatePassword finishes the recovery flow: on success the machine
// leaves recovery mode and lands on the map.
func (c *Controller) UpdatePassword(ctx context.Context, newPassword string) error {
	if err := c.be.Auth().UpdatePassword(ctx, newPassword); err != nil {
		c.log.Warning("password update failed", logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("update_password").Inc()
		return err
	}
	c.push(EvPasswordUpdated{})
	return nil
}

func (c *Controller) SignOut(ctx context.Context) error {
	return c.be.Auth().SignOut(ctx)
}
