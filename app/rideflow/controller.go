package rideflow

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"

	"rideapp/backend"
	"rideapp/config"
	"rideapp/pkg/logger"
	"rideapp/pkg/metrics"
	"rideapp/pkg/models"
)

// Locator supplies the rider's current coordinate. Acquisition itself
// (GPS, browser API) lives outside this layer.
type Locator interface {
	Current(ctx context.Context) (lat, lng float64, err error)
}

// Notifier surfaces user-visible notices (cancellations, failures).
type Notifier interface {
	Notify(message string)
}

// Navigator switches the active screen; the session controller
// satisfies this.
type Navigator interface {
	Navigate(screen models.Screen)
}

// Identity exposes the signed-in rider. The session controller
// satisfies this.
type Identity interface {
	UserID() string
}

// Controller tracks one ride attempt from destination confirmation
// through completion or cancellation, reconciling the client-local
// stage with backend-pushed status updates. Events are consumed one at
// a time by a single goroutine.
type Controller struct {
	cfg   config.Config
	log   logger.ILogger
	be    backend.IBackend
	loc   Locator
	notif Notifier
	nav   Navigator
	ident Identity

	events chan Event

	mu    sync.RWMutex
	state State

	// channel is the at-most-one realtime subscription for the
	// active ride; only the event loop touches it.
	channel backend.IChannel

	stopOnce sync.Once
	stopped  chan struct{}
}

func New(cfg config.Config, be backend.IBackend, loc Locator, nav Navigator, notif Notifier, ident Identity, log logger.ILogger) *Controller {
	return &Controller{
		cfg:     cfg,
		log:     log,
		be:      be,
		loc:     loc,
		notif:   notif,
		nav:     nav,
		ident:   ident,
		events:  make(chan Event, 64),
		state:   Initial(),
		stopped: make(chan struct{}),
	}
}

func (c *Controller) Start(ctx context.Context) {
	go c.loop(ctx)
}

func (c *Controller) State() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.state
}

func (c *Controller) Stop() {
	c.stopOnce.Do(func() {
		close(c.stopped)
	})
}

// ConfirmDestination starts a ride attempt. The rider coordinate is
// fetched with a bounded wait; if it cannot be obtained the action
// fails visibly and nothing is written. On success the stage moves to
// searching and the map screen is shown before the insert resolves.
func (c *Controller) ConfirmDestination(ctx context.Context, from, to string) error {
	riderID := c.ident.UserID()
	if riderID == "" {
		return fmt.Errorf("rideflow: no signed-in rider")
	}
	if s := c.State(); s.Stage != StageNone {
		return fmt.Errorf("rideflow: a ride attempt is already active")
	}

	lctx, cancel := context.WithTimeout(ctx, c.cfg.GeoTimeout)
	defer cancel()
	lat, lng, err := c.loc.Current(lctx)
	if err != nil {
		c.log.Warning("rider location unavailable", logger.Error(err))
		return fmt.Errorf("rideflow: current location unavailable: %w", err)
	}

	c.push(EvRequestStarted{From: from, To: to, Lat: lat, Lng: lng})
	go c.createRide(ctx, riderID, from, to, lat, lng)
	return nil
}

func (c *Controller) createRide(ctx context.Context, riderID, from, to string, lat, lng float64) {
	snap := c.State()
	ride := models.Ride{
		RiderID:           riderID,
		FromLabel:         from,
		ToLabel:           to,
		OriginLat:         lat,
		OriginLng:         lng,
		Vehicle:           snap.Vehicle,
		Status:            models.RideStatusRequested,
		PaymentMethodType: snap.PaymentType,
		RequestKey:        uuid.NewString(),
	}
	if snap.PaymentID != 0 {
		id := snap.PaymentID
		ride.PaymentMethodID = &id
	}

	var created models.Ride
	if err := c.be.Rows().From("rides").Insert(ctx, ride, &created); err != nil {
		c.log.Error("ride insert failed", logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("ride_insert").Inc()
		c.push(EvRequestFailed{Err: err})
		return
	}
	c.log.Info("ride created", logger.Int64("ride_id", created.ID))
	c.push(EvRequestConfirmed{RideID: created.ID})
}

// Cancel abandons the current attempt. An insert still in flight is not
// aborted; its late success is ignored because the state no longer
// reflects that ride.
func (c *Controller) Cancel() {
	c.push(EvCancelled{})
}

func (c *Controller) SelectVehicle(class string) {
	c.push(EvVehicleSelected{Class: class})
}

// SelectPayment is a pure state update; nothing is written until the
// ride record is created.
func (c *Controller) SelectPayment(pm models.PaymentMethod) {
	c.push(EvPaymentSelected{Type: pm.Type, ID: pm.ID, Label: pm.Label()})
}

func (c *Controller) SelectCash() {
	c.push(EvPaymentSelected{Type: models.PaymentTypeCash, Label: models.PaymentCashLabel})
}

// PaymentMethodDeleted reconciles the selection after a stored method
// is removed on the payments screen.
func (c *Controller) PaymentMethodDeleted(id int64) {
	c.push(EvPaymentRemoved{ID: id})
}

// SubmitRating stores the rider's rating on the completed ride and
// returns the flow to rest.
func (c *Controller) SubmitRating(ctx context.Context, stars int) error {
	s := c.State()
	if s.Stage != StageRating || s.RideID == 0 {
		return fmt.Errorf("rideflow: no ride awaiting rating")
	}
	err := c.be.Rows().From("rides").Eq("id", s.RideID).
		Update(ctx, map[string]any{"rating": stars})
	if err != nil {
		c.log.Error("rating update failed", logger.Int64("ride_id", s.RideID), logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("ride_rating").Inc()
		return err
	}
	c.push(EvRatingDone{})
	return nil
}

func (c *Controller) push(ev Event) {
	select {
	case c.events <- ev:
	case <-c.stopped:
	}
}

func (c *Controller) loop(ctx context.Context) {
	defer c.unsubscribe()
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
	prev := c.state
	next, fx := Reduce(c.state, ev)
	c.state = next
	c.mu.Unlock()

	if prev.Stage != next.Stage {
		metrics.StageTransitionsTotal.WithLabelValues(string(prev.Stage), string(next.Stage)).Inc()
		c.log.Info("ride stage changed",
			logger.String("from", string(prev.Stage)),
			logger.String("to", string(next.Stage)))
	} else if rc, ok := ev.(EvRideChanged); ok && len(fx) == 0 {
		metrics.StaleRideEventsTotal.Inc()
		c.log.Warning("stale ride update ignored",
			logger.String("status", rc.Status),
			logger.String("stage", string(prev.Stage)))
	}

	for _, f := range fx {
		switch f := f.(type) {
		case FxNavigateHome:
			c.nav.Navigate(models.ScreenHome)
		case FxSubscribe:
			c.resubscribe(ctx, f.RideID)
		case FxUnsubscribe:
			c.unsubscribe()
		case FxNotify:
			c.notif.Notify(f.Message)
		}
	}
}

// resubscribe tears down the previous ride subscription, if any, and
// opens one filtered to the new ride id. At most one subscription is
// live at a time.
func (c *Controller) resubscribe(ctx context.Context, rideID int64) {
	c.unsubscribe()

	filter := fmt.Sprintf("id=eq.%d", rideID)
	ch, err := c.be.Realtime().Subscribe(ctx, "rides", filter, func(ev backend.ChangeEvent) {
		var ride models.Ride
		if err := json.Unmarshal(ev.Record, &ride); err != nil {
			c.log.Warning("ride update decode failed", logger.Error(err))
			return
		}
		c.push(EvRideChanged{Status: ride.Status, DriverID: ride.DriverID})
	})
	if err != nil {
		c.log.Error("ride subscription failed",
			logger.Int64("ride_id", rideID), logger.Error(err))
		metrics.BackendErrorsTotal.WithLabelValues("ride_subscribe").Inc()
		return
	}
	c.channel = ch
}

func (c *Controller) unsubscribe() {
	if c.channel == nil {
		return
	}
	if err := c.channel.Unsubscribe(); err != nil {
		c.log.Warning("ride unsubscribe failed", logger.Error(err))
	}
	c.channel = nil
}
