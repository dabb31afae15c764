package session

import (
	"rideapp/backend"
	"rideapp/pkg/models"
)

// Mode is the machine's phase. Recovery is an explicit mode, not a side
// flag: while in ModeRecovery only PASSWORD_RECOVERY, SIGNED_OUT or a
// completed password update may move the screen.
type Mode int

const (
	// ModeBooting: session not yet resolved, splash showing.
	ModeBooting Mode = iota
	ModeNormal
	// ModeRecovery: a password-reset deep link owns navigation.
	ModeRecovery
)

type State struct {
	Mode    Mode
	Session *models.Session
	User    *models.User
	Profile *models.Profile
	Screen  models.Screen
	Loading bool
}

type Event interface{ isEvent() }

// EvAuthChange is an auth-state-change notification from the backend.
type EvAuthChange struct {
	Type    backend.AuthEvent
	Session *models.Session
}

// EvSessionResolved carries the result of the startup session fetch.
type EvSessionResolved struct {
	Session *models.Session
	Err     error
}

// EvProfileLoaded carries a fetched profile together with the user id
// the fetch was issued for, so a result resolving after a sign-out or
// a user switch can be recognized and dropped.
type EvProfileLoaded struct {
	UserID  string
	Profile *models.Profile
}

type EvProfileFailed struct {
	UserID string
	Err    error
}

// EvTimerExpired fires when the startup safety timer elapses before a
// terminal transition.
type EvTimerExpired struct{}

// EvNavigate is a direct screen assignment from the presentation layer.
type EvNavigate struct{ Screen models.Screen }

// EvPasswordUpdated completes the recovery flow.
type EvPasswordUpdated struct{}

func (EvAuthChange) isEvent()      {}
func (EvSessionResolved) isEvent() {}
func (EvProfileLoaded) isEvent()   {}
func (EvProfileFailed) isEvent()   {}
func (EvTimerExpired) isEvent()    {}
func (EvNavigate) isEvent()        {}
func (EvPasswordUpdated) isEvent() {}

type Effect interface{ isEffect() }

type FxFetchProfile struct{ UserID string }
type FxCancelTimer struct{}

func (FxFetchProfile) isEffect() {}
func (FxCancelTimer) isEffect()  {}

// Reduce is the pure transition function. It never performs I/O; the
// controller runs the returned effects.
func Reduce(s State, ev Event) (State, []Effect) {
	switch e := ev.(type) {
	case EvAuthChange:
		return reduceAuthChange(s, e)

	case EvSessionResolved:
		if e.Err != nil {
			if s.Mode == ModeRecovery {
				return s, nil
			}
			s.Mode = ModeNormal
			s.Session = nil
			s.User = nil
			s.Screen = models.ScreenSignIn
			s.Loading = false
			return s, []Effect{FxCancelTimer{}}
		}
		return applySession(s, e.Session)

	case EvProfileLoaded:
		if s.User == nil || s.User.ID != e.UserID {
			// the fetch resolved after sign-out or a user switch
			return s, nil
		}
		s.Profile = e.Profile
		return s, nil

	case EvProfileFailed:
		// non-fatal: profile display degrades to placeholders
		return s, nil

	case EvTimerExpired:
		if !s.Loading {
			return s, nil
		}
		s.Loading = false
		s.Mode = ModeNormal
		s.Screen = models.ScreenSignIn
		return s, nil

	case EvNavigate:
		s.Screen = e.Screen
		return s, nil

	case EvPasswordUpdated:
		s.Mode = ModeNormal
		s.Screen = models.ScreenHome
		s.Loading = false
		return s, []Effect{FxCancelTimer{}}
	}
	return s, nil
}

func reduceAuthChange(s State, e EvAuthChange) (State, []Effect) {
	switch e.Type {
	case backend.AuthPasswordRecovery:
		// unconditional: recovery always wins
		s.Mode = ModeRecovery
		s.Session = e.Session
		if e.Session != nil {
			s.User = e.Session.User
		}
		s.Screen = models.ScreenResetPassword
		s.Loading = false
		return s, []Effect{FxCancelTimer{}}

	case backend.AuthSignedIn, backend.AuthInitialSession:
		if s.Mode == ModeRecovery {
			// recovery screen must not be pre-empted
			return s, nil
		}
		return applySession(s, e.Session)

	case backend.AuthSignedOut:
		return State{Mode: ModeNormal, Screen: models.ScreenSignIn}, []Effect{FxCancelTimer{}}
	}
	return s, nil
}

// applySession is the shared step for the startup fetch and SIGNED_IN.
// A session with a user is adopted either way; navigation and the
// loading flag are only touched outside recovery mode.
func applySession(s State, sess *models.Session) (State, []Effect) {
	var fx []Effect
	if sess != nil && sess.User != nil {
		s.Session = sess
		s.User = sess.User
		fx = append(fx, FxFetchProfile{UserID: sess.User.ID})
		if s.Mode != ModeRecovery {
			s.Mode = ModeNormal
			s.Screen = models.ScreenHome
			s.Loading = false
			fx = append(fx, FxCancelTimer{})
		}
		return s, fx
	}
	if s.Mode != ModeRecovery {
		s.Mode = ModeNormal
		s.Screen = models.ScreenSignIn
		s.Loading = false
		fx = append(fx, FxCancelTimer{})
	}
	return s, fx
}
