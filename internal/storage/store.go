// Package storage defines the remote document-store contract the client
// core consumes.
package storage

import (
	"context"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/models"
)

// FundDraft carries the caller-supplied fields of a new fund. The store
// assigns ID, CreatedAt, and CreatedBy.
type FundDraft struct {
	Name        string   `json:"name"`
	Description string   `json:"description,omitempty"`
	Members     []string `json:"members,omitempty"`
}

// FundPatch is a partial fund update; nil fields are left untouched.
type FundPatch struct {
	Name        *string   `json:"name,omitempty"`
	Description *string   `json:"description,omitempty"`
	Members     *[]string `json:"members,omitempty"`
}

// DocumentStore is the remote collection interface for users, funds, and
// transactions. Implementations: the embedded SQLite store and the
// JSON-over-HTTP client.
//
// This abstraction is what the session manager, user cache, and fund
// store are written against, so the backend can be swapped without
// touching the synchronization logic.
type DocumentStore interface {
	// GetUserFunds returns all funds where userID is a member.
	GetUserFunds(ctx context.Context, userID string) ([]models.Fund, error)

	// GetFundByID retrieves a single fund. Returns nil with no error if
	// the fund does not exist.
	GetFundByID(ctx context.Context, id string) (*models.Fund, error)

	// CreateFund persists a new fund owned by ownerID. The owner is
	// always included in the member list.
	CreateFund(ctx context.Context, draft FundDraft, ownerID string) (*models.Fund, error)

	// UpdateFund applies a partial update to an existing fund.
	UpdateFund(ctx context.Context, id string, patch FundPatch) error

	// DeleteFund removes a fund and its transactions.
	DeleteFund(ctx context.Context, id string) error

	// GetFundTransactions returns all transactions recorded in a fund.
	GetFundTransactions(ctx context.Context, fundID string) ([]models.Transaction, error)

	// CreateTransaction persists a new transaction and returns it with
	// ID and CreatedAt assigned.
	CreateTransaction(ctx context.Context, tx *models.Transaction) (*models.Transaction, error)

	// DeleteTransaction removes a transaction by ID.
	DeleteTransaction(ctx context.Context, id string) error

	// FindUserByEmail looks up a user profile by email. Returns nil with
	// no error if no such user exists.
	FindUserByEmail(ctx context.Context, email string) (*models.User, error)

	// GetUsersByIDs retrieves multiple user profiles in one call, keyed
	// by ID. Unknown IDs are omitted from the result.
	GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error)

	// SyncUser creates or refreshes the stored profile for an
	// authenticated identity and returns the full profile.
	SyncUser(ctx context.Context, ident auth.Identity) (*models.User, error)

	// AddUserToFundByEmail adds the user registered under email to the
	// fund's member list. Returns false if no such user exists.
	AddUserToFundByEmail(ctx context.Context, fundID, email string) (bool, error)

	// Close releases any resources held by the store.
	Close() error
}
