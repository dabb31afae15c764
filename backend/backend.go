package backend

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"rideapp/pkg/models"
)

var (
	// ErrNoRows signals an empty result where one row was expected.
	ErrNoRows = errors.New("backend: no rows")
	// ErrNoSession signals an operation that needs a signed-in user.
	ErrNoSession = errors.New("backend: no active session")
)

// APIError carries a non-2xx response from the backend.
type APIError struct {
	Status  int
	Message string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("backend: status %d: %s", e.Status, e.Message)
}

// AuthEvent is an auth-state-change notification type.
type AuthEvent string

const (
	AuthSignedIn         AuthEvent = "SIGNED_IN"
	AuthSignedOut        AuthEvent = "SIGNED_OUT"
	AuthInitialSession   AuthEvent = "INITIAL_SESSION"
	AuthPasswordRecovery AuthEvent = "PASSWORD_RECOVERY"
)

type AuthListener func(event AuthEvent, session *models.Session)

type ISubscription interface {
	Unsubscribe()
}

type IAuth interface {
	GetSession(ctx context.Context) (*models.Session, error)
	OnAuthStateChange(fn AuthListener) ISubscription
	SignInWithPassword(ctx context.Context, email, password string) (*models.Session, error)
	SignUp(ctx context.Context, email, password, fullName string) (*models.Session, error)
	ResetPasswordForEmail(ctx context.Context, email, redirectTo string) error
	ExchangeRecoveryToken(ctx context.Context, token string) (*models.Session, error)
	UpdatePassword(ctx context.Context, newPassword string) error
	SignOut(ctx context.Context) error
}

// IQuery is a fluent row query against one table. Filters compose;
// terminal methods execute.
type IQuery interface {
	Select(columns string) IQuery
	Eq(column string, value any) IQuery
	Gte(column string, value any) IQuery
	Lte(column string, value any) IQuery
	Order(column string, ascending bool) IQuery
	Limit(n int) IQuery

	Get(ctx context.Context, dest any) error
	Single(ctx context.Context, dest any) error
	Insert(ctx context.Context, row any, dest any) error
	Update(ctx context.Context, values any) error
	Delete(ctx context.Context) error
}

type IRows interface {
	From(table string) IQuery
}

// ChangeEvent is a row-level change pushed over a realtime channel.
type ChangeEvent struct {
	Table  string
	Type   string // INSERT, UPDATE, DELETE
	Record json.RawMessage
}

type ChangeHandler func(ev ChangeEvent)

type IChannel interface {
	Topic() string
	Unsubscribe() error
}

// IRealtime subscribes to row-change notifications on a table,
// optionally narrowed by a filter expression ("column=eq.value").
type IRealtime interface {
	Subscribe(ctx context.Context, table, filter string, fn ChangeHandler) (IChannel, error)
}

type IBackend interface {
	Auth() IAuth
	Rows() IRows
	Realtime() IRealtime
	Close()
}
