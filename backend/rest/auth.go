package rest

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
	"time"

	"rideapp/backend"
	"rideapp/pkg/logger"
	"rideapp/pkg/models"
)

type authClient struct {
	c *Client

	// refresh token restored from a previous run, if any
	restoreToken string

	mu        sync.Mutex
	listeners map[int64]backend.AuthListener
	nextID    int64
}

func newAuthClient(c *Client, restoreToken string) *authClient {
	return &authClient{
		c:            c,
		restoreToken: restoreToken,
		listeners:    make(map[int64]backend.AuthListener),
	}
}

type tokenResponse struct {
	AccessToken  string       `json:"access_token"`
	RefreshToken string       `json:"refresh_token"`
	ExpiresIn    int          `json:"expires_in"`
	User         *models.User `json:"user"`
}

func (t tokenResponse) toSession() *models.Session {
	s := &models.Session{
		AccessToken:  t.AccessToken,
		RefreshToken: t.RefreshToken,
		User:         t.User,
	}
	if t.ExpiresIn > 0 {
		s.ExpiresAt = time.Now().Add(time.Duration(t.ExpiresIn) * time.Second)
	}
	// some grant responses omit the user or expiry; the access token
	// itself carries both
	if claims, err := s.Claims(); err == nil {
		if s.User == nil && claims.Subject != "" {
			s.User = &models.User{ID: claims.Subject, Email: claims.Email}
		}
		if s.ExpiresAt.IsZero() && claims.ExpiresAt != nil {
			s.ExpiresAt = claims.ExpiresAt.Time
		}
	}
	return s
}

// GetSession returns the current session, restoring one from the saved
// refresh token on first call. A nil session without error means signed out.
func (a *authClient) GetSession(ctx context.Context) (*models.Session, error) {
	if s := a.c.currentSession(); s != nil {
		if s.Expired(time.Now()) {
			return a.refresh(ctx, s.RefreshToken)
		}
		return s, nil
	}
	if a.restoreToken == "" {
		return nil, nil
	}
	token := a.restoreToken
	a.restoreToken = ""
	return a.refresh(ctx, token)
}

func (a *authClient) refresh(ctx context.Context, refreshToken string) (*models.Session, error) {
	var tr tokenResponse
	err := a.postJSON(ctx, "/auth/v1/token?grant_type=refresh_token",
		map[string]string{"refresh_token": refreshToken}, &tr)
	if err != nil {
		return nil, fmt.Errorf("refresh session: %w", err)
	}
	s := tr.toSession()
	a.c.setSession(s)
	return s, nil
}

func (a *authClient) OnAuthStateChange(fn backend.AuthListener) backend.ISubscription {
	a.mu.Lock()
	a.nextID++
	id := a.nextID
	a.listeners[id] = fn
	a.mu.Unlock()
	return &authSubscription{a: a, id: id}
}

type authSubscription struct {
	a  *authClient
	id int64
}

func (s *authSubscription) Unsubscribe() {
	s.a.mu.Lock()
	delete(s.a.listeners, s.id)
	s.a.mu.Unlock()
}

// emit delivers the event to all listeners synchronously, in
// registration order relative to a single emitter. Listeners must not
// block.
func (a *authClient) emit(ev backend.AuthEvent, s *models.Session) {
	a.mu.Lock()
	fns := make([]backend.AuthListener, 0, len(a.listeners))
	for _, fn := range a.listeners {
		fns = append(fns, fn)
	}
	a.mu.Unlock()
	for _, fn := range fns {
		fn(ev, s)
	}
}

func (a *authClient) SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error) {
	var tr tokenResponse
	err := a.postJSON(ctx, "/auth/v1/token?grant_type=password",
		map[string]string{"email": email, "password": password}, &tr)
	if err != nil {
		return nil, err
	}
	s := tr.toSession()
	a.c.setSession(s)
	a.emit(backend.AuthSignedIn, s)
	return s, nil
}

func (a *authClient) SignUp(ctx context.Context, email, password, fullName string) (*models.Session, error) {
	body := map[string]any{
		"email":    email,
		"password": password,
		"data":     map[string]string{"full_name": fullName},
	}
	var tr tokenResponse
	if err := a.postJSON(ctx, "/auth/v1/signup", body, &tr); err != nil {
		return nil, err
	}
	if tr.AccessToken == "" {
		// email confirmation pending, no session yet
		return nil, nil
	}
	s := tr.toSession()
	a.c.setSession(s)
	a.emit(backend.AuthSignedIn, s)
	return s, nil
}

func (a *authClient) ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error {
	body := map[string]string{"email": email}
	if redirectTo != "" {
		body["redirect_to"] = redirectTo
	}
	return a.postJSON(ctx, "/auth/v1/recover", body, nil)
}

// ExchangeRecoveryToken trades the token from a recovery deep link for a
// session and announces PASSWORD_RECOVERY to listeners.
func (a *authClient) ExchangeRecoveryToken(ctx context.Context, token string) (*models.Session, error) {
	var tr tokenResponse
	err := a.postJSON(ctx, "/auth/v1/verify",
		map[string]string{"type": "recovery", "token": token}, &tr)
	if err != nil {
		return nil, err
	}
	s := tr.toSession()
	a.c.setSession(s)
	a.emit(backend.AuthPasswordRecovery, s)
	return s, nil
}

func (a *authClient) UpdatePassword(ctx context.Context, newPassword string) error {
	if a.c.currentSession() == nil {
		return backend.ErrNoSession
	}
	resp, err := a.c.do(ctx, http.MethodPut, "/auth/v1/user",
		map[string]string{"password": newPassword}, nil)
	if err != nil {
		return err
	}
	resp.Body.Close()
	return nil
}

func (a *authClient) SignOut(ctx context.Context) error {
	err := a.postJSON(ctx, "/auth/v1/logout", struct{}{}, nil)
	if err != nil {
		a.c.log.Warning("sign-out request failed, clearing local session anyway", logger.Error(err))
	}
	a.c.setSession(nil)
	a.emit(backend.AuthSignedOut, nil)
	return nil
}

func (a *authClient) postJSON(ctx context.Context, path string, body, dest any) error {
	resp, err := a.c.do(ctx, http.MethodPost, path, body, nil)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if dest == nil {
		return nil
	}
	if err := json.NewDecoder(resp.Body).Decode(dest); err != nil {
		return fmt.Errorf("rest: decode %s response: %w", path, err)
	}
	return nil
}
