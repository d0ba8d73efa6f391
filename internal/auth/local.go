package auth

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/fundwise/fundwise/internal/models"
)

// LocalProvider implements password authentication against a UserStore,
// with bcrypt-hashed credentials and a JWT session token persisted to
// disk so a later process can resume the session without a password.
//
// The persisted-session restore runs lazily on the first
// OnAuthStateChange registration and delivers the restored state to
// subscribers asynchronously, mirroring how hosted auth providers
// surface their initial state.
type LocalProvider struct {
	users     UserStore
	tokens    *JWTManager
	tokenPath string
	logger    *slog.Logger

	restoreOnce sync.Once

	// deliverMu serializes every callback invocation with the state it
	// reads, so a slow initial delivery can never surface an older state
	// after a newer one.
	deliverMu sync.Mutex

	mu      sync.Mutex
	current *Identity
	subs    map[int]func(*Identity)
	nextSub int
}

// NewLocalProvider creates a local provider persisting its session token
// at tokenPath.
func NewLocalProvider(users UserStore, tokens *JWTManager, tokenPath string, logger *slog.Logger) *LocalProvider {
	if logger == nil {
		logger = slog.Default()
	}
	return &LocalProvider{
		users:     users,
		tokens:    tokens,
		tokenPath: tokenPath,
		logger:    logger,
		subs:      make(map[int]func(*Identity)),
	}
}

// Register creates a new user account with a hashed password.
func (p *LocalProvider) Register(ctx context.Context, email, displayName, password string) (*models.User, error) {
	if len(password) < 8 {
		return nil, ErrWeakPassword
	}

	existing, err := p.users.GetUserByEmail(ctx, email)
	if err == nil && existing != nil {
		return nil, ErrEmailExists
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return nil, fmt.Errorf("failed to hash password: %w", err)
	}

	user := &models.User{
		ID:           uuid.New().String(),
		DisplayName:  displayName,
		Email:        email,
		PasswordHash: string(hashed),
	}
	if err := p.users.CreateUser(ctx, user); err != nil {
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return user, nil
}

// Login verifies the credentials, persists a session token, and fires an
// authenticated state-change event.
func (p *LocalProvider) Login(ctx context.Context, email, password string) (*Identity, error) {
	user, err := p.users.GetUserByEmail(ctx, email)
	if err != nil || user == nil {
		return nil, ErrInvalidCredentials
	}
	if err := bcrypt.CompareHashAndPassword([]byte(user.PasswordHash), []byte(password)); err != nil {
		return nil, ErrInvalidCredentials
	}

	token, err := p.tokens.Generate(user)
	if err != nil {
		return nil, fmt.Errorf("failed to generate session token: %w", err)
	}
	if err := p.writeToken(token); err != nil {
		return nil, err
	}

	ident := identityOf(user)
	p.setState(ident)
	return ident, nil
}

// Logout clears the persisted session token and fires an unauthenticated
// state-change event.
func (p *LocalProvider) Logout(ctx context.Context) error {
	if err := os.Remove(p.tokenPath); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to clear session token: %w", err)
	}
	p.setState(nil)
	return nil
}

// OnAuthStateChange registers a callback for identity changes. The
// current state (after the persisted-session restore resolves) is
// delivered to the new callback asynchronously.
func (p *LocalProvider) OnAuthStateChange(fn func(*Identity)) (unsubscribe func()) {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()

	go func() {
		p.restoreOnce.Do(p.restore)
		p.deliverMu.Lock()
		defer p.deliverMu.Unlock()
		p.mu.Lock()
		current := p.current
		p.mu.Unlock()
		fn(current)
	}()

	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

// restore resumes a persisted session token, if any.
func (p *LocalProvider) restore() {
	raw, err := os.ReadFile(p.tokenPath)
	if err != nil {
		if !os.IsNotExist(err) {
			p.logger.Debug("session token unreadable", "path", p.tokenPath, "error", err)
		}
		return
	}

	claims, err := p.tokens.Validate(string(raw))
	if err != nil {
		p.logger.Debug("persisted session token rejected", "error", err)
		return
	}

	user, err := p.users.GetUserByID(context.Background(), claims.UserID)
	if err != nil || user == nil {
		p.logger.Warn("persisted session references unknown user", "user_id", claims.UserID, "error", err)
		return
	}

	p.mu.Lock()
	p.current = identityOf(user)
	p.mu.Unlock()
	p.logger.Debug("session restored from token", "user_id", user.ID)
}

func (p *LocalProvider) writeToken(token string) error {
	if err := os.MkdirAll(filepath.Dir(p.tokenPath), 0o755); err != nil {
		return fmt.Errorf("failed to create token directory: %w", err)
	}
	if err := os.WriteFile(p.tokenPath, []byte(token), 0o600); err != nil {
		return fmt.Errorf("failed to persist session token: %w", err)
	}
	return nil
}

// setState replaces the current identity and notifies subscribers. The
// whole read-and-notify runs under deliverMu so it cannot interleave
// with an in-flight initial delivery.
func (p *LocalProvider) setState(ident *Identity) {
	p.deliverMu.Lock()
	defer p.deliverMu.Unlock()

	p.mu.Lock()
	p.current = ident
	fns := make([]func(*Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()

	for _, fn := range fns {
		fn(ident)
	}
}

func identityOf(user *models.User) *Identity {
	return &Identity{
		UID:         user.ID,
		DisplayName: user.DisplayName,
		Email:       user.Email,
		PhotoURL:    user.PhotoURL,
	}
}
