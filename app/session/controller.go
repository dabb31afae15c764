package session

import (
	"context"
	"sync"
	"time"

	"rideapp/backend"
	"rideapp/config"
	"rideapp/pkg/logger"
	"rideapp/pkg/metrics"
	"rideapp/pkg/models"
)

// Controller owns the auth session, the current user and profile, and
// which screen is active. Events are consumed one at a time by a single
// goroutine, so handlers never overlap and arrival order is preserved.
type Controller struct {
	cfg config.Config
	log logger.ILogger
	be  backend.IBackend

	events chan Event

	mu    sync.RWMutex
	state State

	timer   *time.Timer
	authSub backend.ISubscription

	stopOnce sync.Once
	stopped  chan struct{}
}

func New(cfg config.Config, be backend.IBackend, log logger.ILogger) *Controller {
	mode := ModeBooting
	if RecoveryRequested(cfg.LaunchURL) {
		// set before any async call resolves, so a default
		// signed-in transition can never race ahead of recovery
		mode = ModeRecovery
		log.Info("recovery deep link detected at mount")
	}
	return &Controller{
		cfg:     cfg,
		log:     log,
		be:      be,
		events:  make(chan Event, 64),
		state:   State{Mode: mode, Screen: models.ScreenSignIn, Loading: true},
		stopped: make(chan struct{}),
	}
}

// Start arms the safety timer, subscribes to auth events and kicks off
// the session fetch. The caller owns ctx; cancelling it stops the loop.
func (c *Controller) Start(ctx context.Context) {
	d := c.cfg.SessionTimeout
	if c.State().Mode == ModeRecovery {
		d = c.cfg.RecoveryTimeout
	}
	c.timer = time.AfterFunc(d, func() {
		c.push(EvTimerExpired{})
	})

	c.authSub = c.be.Auth().OnAuthStateChange(func(ev backend.AuthEvent, s *models.Session) {
		metrics.AuthEventsTotal.WithLabelValues(string(ev)).Inc()
		c.push(EvAuthChange{Type: ev, Session: s})
	})

	go c.loop(ctx)

	go func() {
		s, err := c.be.Auth().GetSession(ctx)
		if err != nil {
			c.log.Error("session fetch failed", logger.Error(err))
			metrics.BackendErrorsTotal.WithLabelValues("get_session").Inc()
		}
		c.push(EvSessionResolved{Session: s, Err: err})
	}()
}

// State returns a snapshot for the presentation layer.
func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

// UserID returns the signed-in user's identifier, empty when signed out.
func (c *Controller) UserID() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if c.state.User == nil {
		return ""
	}
	return c.state.User.ID
}

// Navigate moves to the given screen. No history stack.
func (c *Controller) Navigate(screen models.Screen) {
	c.push(EvNavigate{Screen: screen})
}

func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
		if c.authSub != nil {
			c.authSub.Unsubscribe()
		}
		if c.timer != nil {
			c.timer.Stop()
		}
	})
}

func (c *Controller) push(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) loop(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case <-c.stopped:
			return
		case ev := <-c.events:
			c.handle(ctx, ev)
		}
	}
}

func (c *Controller) handle(ctx context.Context, ev Event) {
	c.mu.Lock()
	next, fx := Reduce(c.state, ev)
	prev := c.state
	c.state = next
	c.mu.Unlock()

	if prev.Screen != next.Screen {
		c.log.Debug("screen changed",
			logger.String("from", string(prev.Screen)),
			logger.String("to", string(next.Screen)))
	}

	for _, f := range fx {
		switch f := f.(type) {
		case FxCancelTimer:
			if c.timer != nil {
				c.timer.Stop()
			}
		case FxFetchProfile:
			go c.fetchProfile(ctx, f.UserID)
		}
	}
}

func (c *Controller) fetchProfile(ctx context.Context, userID string) {
	var p models.Profile
	err := c.be.Rows().From("profiles").Eq("id", userID).Single(ctx, &p)
	if err != nil {
		c.log.Warning("profile fetch failed, degrading to placeholders",
			logger.String("user_id", userID), logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("profile_fetch").Inc()
		c.push(EvProfileFailed{UserID: userID, Err: err})
		return
	}
	c.push(EvProfileLoaded{UserID: userID, Profile: &p})
}
