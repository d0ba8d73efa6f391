package main

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"

	"github.com/shopspring/decimal"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/client"
	"github.com/fundwise/fundwise/internal/config"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
	"github.com/fundwise/fundwise/internal/storage/httpapi"
	"github.com/fundwise/fundwise/internal/storage/sqlite"
)

// app wires the client core for one CLI invocation: config, the
// document store (embedded or remote), the local auth provider, and the
// session/cache/store triple.
//
// Credential storage is always local; when a remote document store is
// configured it serves the collections while sign-in still runs against
// the embedded database.
type app struct {
	cfg      *config.Config
	db       *sqlite.Store
	docs     storage.DocumentStore
	provider *auth.LocalProvider
	session  *client.Session
	users    *client.UserCache
	store    *client.FundStore
}

func newApp() (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	db, err := sqlite.New(filepath.Join(cfg.DataDir, "fundwise.db"))
	if err != nil {
		return nil, err
	}

	var docs storage.DocumentStore = db
	if cfg.Remote.BaseURL != "" {
		docs = httpapi.New(cfg.Remote.BaseURL, cfg.Remote.H2C)
	}

	tokens := auth.NewJWTManager(cfg.TokenSecret, cfg.TokenDuration)
	provider := auth.NewLocalProvider(db, tokens,
		filepath.Join(cfg.DataDir, "session.token"), slog.Default())

	snapshot := client.NewFileSnapshot(filepath.Join(cfg.DataDir, "current_user.json"))
	session := client.NewSession(provider, docs, snapshot, client.SessionOptions{
		InitTimeout: cfg.AuthInitTimeout,
	})
	users := client.NewUserCache(session, docs)
	store := client.NewFundStore(docs, session, client.FundStoreOptions{
		RefreshPeriod:     cfg.RefreshPeriod,
		StrictExactSplits: cfg.StrictExactSplits,
	})

	session.Initialize()

	return &app{
		cfg:      cfg,
		db:       db,
		docs:     docs,
		provider: provider,
		session:  session,
		users:    users,
		store:    store,
	}, nil
}

func (a *app) close() {
	a.store.Close()
	a.users.Close()
	a.session.Close()
	if a.docs != storage.DocumentStore(a.db) {
		a.docs.Close()
	}
	a.db.Close()
}

// awaitInit blocks until the session resolved its first auth state (or
// hit its timeout).
func (a *app) awaitInit(ctx context.Context) error {
	select {
	case <-a.session.InitDone():
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// requireUser returns the signed-in user or an error.
func (a *app) requireUser(ctx context.Context) (*models.User, error) {
	if err := a.awaitInit(ctx); err != nil {
		return nil, err
	}
	user := a.session.CurrentUser()
	if user == nil {
		return nil, fmt.Errorf("not signed in; run 'fundwise login' first")
	}
	return user, nil
}

// parseAmount converts a decimal money string ("12.34") to cents.
func parseAmount(s string) (int64, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("invalid amount %q: %w", s, err)
	}
	cents := d.Mul(decimal.NewFromInt(100))
	if !cents.IsInteger() {
		return 0, fmt.Errorf("amount %q has sub-cent precision", s)
	}
	return cents.IntPart(), nil
}

// formatCents renders cents as a decimal money string.
func formatCents(cents int64) string {
	return decimal.New(cents, -2).StringFixed(2)
}
