package rideflow

import (
	"rideapp/pkg/models"
)

// Stage is the client-local phase of the active ride attempt. It is a
// projection of the server-side ride status, not stored under these
// labels anywhere else.
type Stage string

const (
	StageNone       Stage = "none"
	StageConfirming Stage = "confirming_details"
	StageSearching  Stage = "searching"
	StageEnRoute    Stage = "driver_en_route"
	StageInProgress Stage = "in_progress"
	StageRating     Stage = "rating"
)

// State is the ride attempt as the screens see it. RideID is non-zero
// only from searching onward; DriverID only from driver_en_route onward.
type State struct {
	Stage Stage

	From      string
	To        string
	OriginLat float64
	OriginLng float64

	Vehicle string // empty until chosen

	RideID   int64  // 0 before the backend record exists
	DriverID string // empty until a driver accepts

	// Pending marks the optimistic window between the searching
	// transition and the insert resolving.
	Pending bool

	PaymentType  string
	PaymentID    int64
	PaymentLabel string
}

// Initial is the resting state: no ride, cash payment.
func Initial() State {
	return State{
		Stage:        StageNone,
		PaymentType:  models.PaymentTypeCash,
		PaymentLabel: models.PaymentCashLabel,
	}
}

type Event interface{ isEvent() }

// EvRequestStarted opens the optimistic phase: the stage moves to
// searching and the map screen is shown before the insert resolves.
type EvRequestStarted struct {
	From, To string
	Lat, Lng float64
}

// EvRequestConfirmed closes the optimistic phase with the created
// record's id.
type EvRequestConfirmed struct{ RideID int64 }

// EvRequestFailed rolls the optimistic transition back.
type EvRequestFailed struct{ Err error }

// EvRideChanged is a realtime row update on the active ride.
type EvRideChanged struct {
	Status   string
	DriverID *string
}

// EvCancelled is the user abandoning the attempt.
type EvCancelled struct{}

// EvRatingDone finishes the rating stage.
type EvRatingDone struct{}

type EvVehicleSelected struct{ Class string }

type EvPaymentSelected struct {
	Type  string
	ID    int64
	Label string
}

// EvPaymentRemoved reports a stored payment method was deleted; if it
// was the selected one the selection falls back to cash.
type EvPaymentRemoved struct{ ID int64 }

func (EvRequestStarted) isEvent()   {}
func (EvRequestConfirmed) isEvent() {}
func (EvRequestFailed) isEvent()    {}
func (EvRideChanged) isEvent()      {}
func (EvCancelled) isEvent()        {}
func (EvRatingDone) isEvent()       {}
func (EvVehicleSelected) isEvent()  {}
func (EvPaymentSelected) isEvent()  {}
func (EvPaymentRemoved) isEvent()   {}

type Effect interface{ isEffect() }

type FxNavigateHome struct{}
type FxSubscribe struct{ RideID int64 }
type FxUnsubscribe struct{}
type FxNotify struct{ Message string }

func (FxNavigateHome) isEffect() {}
func (FxSubscribe) isEffect()    {}
func (FxUnsubscribe) isEffect()  {}
func (FxNotify) isEffect()       {}

// Reduce is the pure transition function. Updates that do not match
// the transition table leave the state untouched; the controller logs
// and counts those as stale.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case EvRequestStarted:
		if s.Stage != StageNone {
			return s, nil
		}
		s.Stage = StageSearching
		s.From = e.From
		s.To = e.To
		s.OriginLat = e.Lat
		s.OriginLng = e.Lng
		s.Pending = true
		return s, []Effect{FxNavigateHome{}}

	case EvRequestConfirmed:
		if s.Stage != StageSearching || !s.Pending {
			// the attempt was abandoned while the insert was in
			// flight; the late success is ignored
			return s, nil
		}
		s.Pending = false
		s.RideID = e.RideID
		return s, []Effect{FxSubscribe{RideID: e.RideID}}

	case EvRequestFailed:
		if s.Stage != StageSearching || !s.Pending {
			return s, nil
		}
		next := Initial()
		next.Vehicle = s.Vehicle
		next.PaymentType = s.PaymentType
		next.PaymentID = s.PaymentID
		next.PaymentLabel = s.PaymentLabel
		return next, []Effect{FxNotify{Message: "Could not request the ride. Please try again."}}

	case EvRideChanged:
		return reduceRideChanged(s, e)

	case EvCancelled:
		if s.Stage == StageNone {
			return s, nil
		}
		return Initial(), []Effect{FxUnsubscribe{}}

	case EvRatingDone:
		if s.Stage != StageRating {
			return s, nil
		}
		return Initial(), []Effect{FxUnsubscribe{}}

	case EvVehicleSelected:
		s.Vehicle = e.Class
		return s, nil

	case EvPaymentSelected:
		s.PaymentType = e.Type
		s.PaymentID = e.ID
		s.PaymentLabel = e.Label
		return s, nil

	case EvPaymentRemoved:
		if s.PaymentID != e.ID {
			return s, nil
		}
		s.PaymentType = models.PaymentTypeCash
		s.PaymentID = 0
		s.PaymentLabel = models.PaymentCashLabel
		return s, nil
	}
	return s, nil
}

func reduceRideChanged(s State, e EvRideChanged) (State, []Effect) {
	switch e.Status {
	case models.RideStatusAccepted:
		if s.Stage == StageSearching && !s.Pending {
			s.Stage = StageEnRoute
			if e.DriverID != nil {
				s.DriverID = *e.DriverID
			}
			return s, nil
		}

	case models.RideStatusInProgress:
		if s.Stage == StageEnRoute {
			s.Stage = StageInProgress
			return s, nil
		}

	case models.RideStatusCompleted:
		if s.Stage == StageInProgress {
			s.Stage = StageRating
			return s, nil
		}

	case models.RideStatusCancelled:
		switch s.Stage {
		case StageSearching, StageEnRoute, StageInProgress:
			return Initial(), []Effect{
				FxUnsubscribe{},
				FxNotify{Message: "Your ride was cancelled."},
			}
		}
	}
	return s, nil
}
