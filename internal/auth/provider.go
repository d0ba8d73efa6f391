// Package auth defines the authentication provider contract the session
// manager consumes, plus a local credential-backed implementation.
package auth

import (
	"context"
	"errors"

	"github.com/fundwise/fundwise/internal/models"
)

var (
	ErrInvalidCredentials = errors.New("invalid email or password")
	ErrWeakPassword       = errors.New("password must be at least 8 characters")
	ErrEmailExists        = errors.New("email already registered")
	ErrInvalidToken       = errors.New("invalid or expired token")
)

// Identity is the minimal identity an authentication event carries.
// The full profile lives in the document store; the session manager
// falls back to these fields when a profile sync fails.
type Identity struct {
	UID         string `json:"uid"`
	DisplayName string `json:"displayName,omitempty"`
	Email       string `json:"email,omitempty"`
	PhotoURL    string `json:"photoURL,omitempty"`
}

// Provider defines the interface for authentication implementations.
// This abstraction allows swapping auth backends (local credentials, a
// remote identity service, OAuth, etc.) without changing the session
// manager.
//
// State-change callbacks fire with a non-nil identity on sign-in and nil
// on sign-out. A freshly registered callback also receives the current
// state once it is known, asynchronously; providers that restore a
// persisted session may take arbitrarily long to deliver that first
// event, which is why the session manager runs an initialization
// timeout.
type Provider interface {
	// Login authenticates with the given credentials, persists the
	// session so it can be resumed, and notifies state-change callbacks.
	Login(ctx context.Context, email, password string) (*Identity, error)

	// Logout clears the persisted session and notifies state-change
	// callbacks with nil.
	Logout(ctx context.Context) error

	// OnAuthStateChange registers a callback and returns its
	// unsubscribe function. Callers must unsubscribe on teardown.
	OnAuthStateChange(fn func(*Identity)) (unsubscribe func())
}

// UserStore is the narrow persistence surface the local provider needs.
// Keeping it separate from the full document store lets the provider
// stay independent of the storage implementation.
type UserStore interface {
	CreateUser(ctx context.Context, user *models.User) error
	GetUserByID(ctx context.Context, id string) (*models.User, error)
	GetUserByEmail(ctx context.Context, email string) (*models.User, error)
}
