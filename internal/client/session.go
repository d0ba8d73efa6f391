// Package client implements the client-side synchronization core: the
// session manager owning the authenticated identity, the user cache,
// and the fund/transaction store mirroring remote collections.
package client

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/metrics"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

// DefaultInitTimeout bounds how long Initialize waits for the first
// provider event before trusting whatever identity the snapshot held.
const DefaultInitTimeout = 3 * time.Second

// SessionOptions tune a Session. Zero values select defaults.
type SessionOptions struct {
	Notifier    Notifier
	Logger      *slog.Logger
	InitTimeout time.Duration
}

// Session owns the authenticated-identity lifecycle: restoring a
// persisted snapshot, subscribing to provider state changes, syncing the
// verified profile from the document store, and the timeout policy that
// keeps a slow provider from blocking startup.
//
// Consumers observe identity changes via Subscribe; the fund store and
// user cache register listeners so sign-in triggers a fund reload and
// sign-out clears every local collection.
type Session struct {
	provider    auth.Provider
	docs        storage.DocumentStore
	snapshot    SnapshotStore
	notifier    Notifier
	logger      *slog.Logger
	initTimeout time.Duration

	mu           sync.Mutex
	current      *models.User
	authLoading  bool
	initialized  bool
	generation   uint64
	timeout      *time.Timer
	unsubscribe  func()
	listeners    map[int]func(*models.User)
	nextListener int
	initDone     chan struct{}
}

// NewSession creates a session manager. Call Initialize to start it and
// Close on teardown.
func NewSession(provider auth.Provider, docs storage.DocumentStore, snapshot SnapshotStore, opts SessionOptions) *Session {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	timeout := opts.InitTimeout
	if timeout <= 0 {
		timeout = DefaultInitTimeout
	}
	return &Session{
		provider:    provider,
		docs:        docs,
		snapshot:    snapshot,
		notifier:    notifier,
		logger:      logger,
		initTimeout: timeout,
		authLoading: true,
		listeners:   make(map[int]func(*models.User)),
		initDone:    make(chan struct{}),
	}
}

// Initialize restores the persisted snapshot for an immediate identity,
// subscribes to provider state changes, and arms the initialization
// timeout. Remote verification then proceeds in the background.
func (s *Session) Initialize() {
	cached, err := s.snapshot.Load()
	if err != nil {
		s.logger.Debug("snapshot unreadable", "error", err)
	}
	if cached != nil {
		s.mu.Lock()
		s.current = cached
		s.authLoading = false
		s.mu.Unlock()
		s.logger.Debug("identity restored from snapshot", "user_id", cached.ID)
		s.notifyListeners(cached)
	}

	s.mu.Lock()
	s.timeout = time.AfterFunc(s.initTimeout, s.forceInitialized)
	s.mu.Unlock()

	s.unsubscribe = s.provider.OnAuthStateChange(s.handleAuthState)
}

// forceInitialized fires when no provider event arrived within the
// timeout. The cached identity, if any, stays in effect: trusting cache
// over nothing.
func (s *Session) forceInitialized() {
	s.mu.Lock()
	if s.initialized {
		s.mu.Unlock()
		return
	}
	s.markInitializedLocked()
	s.authLoading = false
	s.mu.Unlock()

	metrics.AuthInitTimeouts.Inc()
	s.logger.Warn("auth provider did not respond in time, proceeding with cached identity")
}

// handleAuthState reacts to provider state-change events.
func (s *Session) handleAuthState(ident *auth.Identity) {
	s.mu.Lock()
	if s.timeout != nil {
		s.timeout.Stop()
	}
	current := s.current
	s.mu.Unlock()

	if ident == nil {
		s.signOut()
		return
	}

	if current != nil && current.ID == ident.UID {
		// Same identity as the cached snapshot: lightweight
		// re-verification, no full reload.
		s.mu.Lock()
		s.markInitializedLocked()
		s.authLoading = false
		s.mu.Unlock()
		s.logger.Debug("cached identity re-verified", "user_id", ident.UID)
		return
	}

	user, err := s.docs.SyncUser(context.Background(), *ident)
	if err != nil {
		// Degraded mode: sign-in proceeds on the identity fields the
		// event itself carried.
		metrics.SyncFailures.WithLabelValues("user").Inc()
		s.logger.Warn("profile sync failed, using identity fields", "user_id", ident.UID, "error", err)
		s.notifier.Notify("Couldn't load your full profile; some details may be missing.")
		user = &models.User{
			ID:          ident.UID,
			DisplayName: ident.DisplayName,
			Email:       ident.Email,
			PhotoURL:    ident.PhotoURL,
		}
	}

	s.mu.Lock()
	s.current = user
	s.markInitializedLocked()
	s.authLoading = false
	s.mu.Unlock()

	if err := s.snapshot.Save(user); err != nil {
		s.logger.Warn("failed to persist identity snapshot", "error", err)
	}
	s.logger.Info("signed in", "user_id", user.ID)
	s.notifyListeners(user)
}

// signOut clears the identity and invalidates every dependent local
// collection through the listener chain.
func (s *Session) signOut() {
	s.mu.Lock()
	s.current = nil
	s.markInitializedLocked()
	s.authLoading = false
	s.generation++
	s.mu.Unlock()

	if err := s.snapshot.Clear(); err != nil {
		s.logger.Warn("failed to clear identity snapshot", "error", err)
	}
	s.logger.Info("signed out")
	s.notifyListeners(nil)
}

// Login delegates to the provider. Provider failures are surfaced as a
// notification and returned to the caller.
func (s *Session) Login(ctx context.Context, email, password string) error {
	s.setAuthLoading(true)
	defer s.setAuthLoading(false)

	if _, err := s.provider.Login(ctx, email, password); err != nil {
		s.logger.Warn("login failed", "email", email, "error", err)
		s.notifier.Notify("Sign-in failed. Check your email and password.")
		return err
	}
	return nil
}

// Logout delegates to the provider. Provider failures are surfaced as a
// notification and returned to the caller.
func (s *Session) Logout(ctx context.Context) error {
	s.setAuthLoading(true)
	defer s.setAuthLoading(false)

	if err := s.provider.Logout(ctx); err != nil {
		s.logger.Warn("logout failed", "error", err)
		s.notifier.Notify("Sign-out failed.")
		return err
	}
	return nil
}

// RefreshCurrentUser re-fetches the current identity's profile through
// the same batch path the user cache uses. No-op without an identity.
func (s *Session) RefreshCurrentUser(ctx context.Context) error {
	current := s.CurrentUser()
	if current == nil {
		return nil
	}

	users, err := s.docs.GetUsersByIDs(ctx, []string{current.ID})
	if err != nil {
		return err
	}
	user, ok := users[current.ID]
	if !ok {
		return nil
	}

	s.mu.Lock()
	// Identity may have changed while the fetch was in flight.
	if s.current == nil || s.current.ID != user.ID {
		s.mu.Unlock()
		return nil
	}
	s.current = user
	s.mu.Unlock()

	if err := s.snapshot.Save(user); err != nil {
		s.logger.Warn("failed to persist identity snapshot", "error", err)
	}
	return nil
}

// Subscribe registers a listener for identity changes: a non-nil user on
// sign-in, nil on sign-out. The returned function unregisters it; call
// it on teardown.
func (s *Session) Subscribe(fn func(*models.User)) (unsubscribe func()) {
	s.mu.Lock()
	id := s.nextListener
	s.nextListener++
	s.listeners[id] = fn
	s.mu.Unlock()

	return func() {
		s.mu.Lock()
		delete(s.listeners, id)
		s.mu.Unlock()
	}
}

// CurrentUser returns the current identity, or nil. Callers must treat
// the result as read-only.
func (s *Session) CurrentUser() *models.User {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.current
}

// IsAuthLoading reports whether an auth operation is in flight.
func (s *Session) IsAuthLoading() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.authLoading
}

// Initialized reports whether the first provider event (or the timeout)
// has resolved. It latches: once true it never reverts.
func (s *Session) Initialized() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.initialized
}

// InitDone returns a channel closed once the session is initialized.
func (s *Session) InitDone() <-chan struct{} {
	return s.initDone
}

// Generation increments on every sign-out. Loads capture it before
// fetching and discard their results if it moved, so responses that
// arrive after a sign-out never repopulate cleared state.
func (s *Session) Generation() uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.generation
}

// Close cancels the initialization timeout and unsubscribes from the
// provider.
func (s *Session) Close() {
	s.mu.Lock()
	if s.timeout != nil {
		s.timeout.Stop()
	}
	s.listeners = make(map[int]func(*models.User))
	s.mu.Unlock()

	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

func (s *Session) setAuthLoading(v bool) {
	s.mu.Lock()
	s.authLoading = v
	s.mu.Unlock()
}

// markInitializedLocked latches the initialized flag. Callers hold mu.
func (s *Session) markInitializedLocked() {
	if !s.initialized {
		s.initialized = true
		close(s.initDone)
	}
}

// notifyListeners invokes identity listeners outside the lock, so
// listeners may call back into the session.
func (s *Session) notifyListeners(user *models.User) {
	s.mu.Lock()
	fns := make([]func(*models.User), 0, len(s.listeners))
	for _, fn := range s.listeners {
		fns = append(fns, fn)
	}
	s.mu.Unlock()

	for _, fn := range fns {
		fn(user)
	}
}
