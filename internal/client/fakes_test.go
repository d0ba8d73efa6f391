package client

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

// fakeProvider lets tests fire auth state-change events by hand.
type fakeProvider struct {
	mu        sync.Mutex
	subs      map[int]func(*auth.Identity)
	nextSub   int
	loginErr  error
	logoutErr error
	ident     *auth.Identity
}

func newFakeProvider() *fakeProvider {
	return &fakeProvider{subs: make(map[int]func(*auth.Identity))}
}

func (p *fakeProvider) Login(ctx context.Context, email, password string) (*auth.Identity, error) {
	if p.loginErr != nil {
		return nil, p.loginErr
	}
	p.emit(p.ident)
	return p.ident, nil
}

func (p *fakeProvider) Logout(ctx context.Context) error {
	if p.logoutErr != nil {
		return p.logoutErr
	}
	p.emit(nil)
	return nil
}

func (p *fakeProvider) OnAuthStateChange(fn func(*auth.Identity)) func() {
	p.mu.Lock()
	id := p.nextSub
	p.nextSub++
	p.subs[id] = fn
	p.mu.Unlock()
	return func() {
		p.mu.Lock()
		delete(p.subs, id)
		p.mu.Unlock()
	}
}

func (p *fakeProvider) emit(ident *auth.Identity) {
	p.mu.Lock()
	fns := make([]func(*auth.Identity), 0, len(p.subs))
	for _, fn := range p.subs {
		fns = append(fns, fn)
	}
	p.mu.Unlock()
	for _, fn := range fns {
		fn(ident)
	}
}

// fakeDocs implements storage.DocumentStore with per-method hooks and
// call counters.
type fakeDocs struct {
	mu    sync.Mutex
	calls map[string]int

	getUserFundsFn        func(userID string) ([]models.Fund, error)
	getFundByIDFn         func(id string) (*models.Fund, error)
	createFundFn          func(draft storage.FundDraft, ownerID string) (*models.Fund, error)
	updateFundFn          func(id string, patch storage.FundPatch) error
	deleteFundFn          func(id string) error
	getFundTransactionsFn func(fundID string) ([]models.Transaction, error)
	createTransactionFn   func(txn *models.Transaction) (*models.Transaction, error)
	deleteTransactionFn   func(id string) error
	findUserByEmailFn     func(email string) (*models.User, error)
	getUsersByIDsFn       func(ids []string) (map[string]*models.User, error)
	syncUserFn            func(ident auth.Identity) (*models.User, error)
	addUserByEmailFn      func(fundID, email string) (bool, error)
}

var _ storage.DocumentStore = (*fakeDocs)(nil)

func newFakeDocs() *fakeDocs {
	return &fakeDocs{calls: make(map[string]int)}
}

func (d *fakeDocs) record(name string) {
	d.mu.Lock()
	d.calls[name]++
	d.mu.Unlock()
}

func (d *fakeDocs) callCount(name string) int {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.calls[name]
}

func (d *fakeDocs) GetUserFunds(ctx context.Context, userID string) ([]models.Fund, error) {
	d.record("GetUserFunds")
	if d.getUserFundsFn != nil {
		return d.getUserFundsFn(userID)
	}
	return nil, nil
}

func (d *fakeDocs) GetFundByID(ctx context.Context, id string) (*models.Fund, error) {
	d.record("GetFundByID")
	if d.getFundByIDFn != nil {
		return d.getFundByIDFn(id)
	}
	return nil, nil
}

func (d *fakeDocs) CreateFund(ctx context.Context, draft storage.FundDraft, ownerID string) (*models.Fund, error) {
	d.record("CreateFund")
	if d.createFundFn != nil {
		return d.createFundFn(draft, ownerID)
	}
	return &models.Fund{ID: "fund-new", Name: draft.Name, Description: draft.Description,
		Members: []string{ownerID}, CreatedBy: ownerID, CreatedAt: time.Now().Unix()}, nil
}

func (d *fakeDocs) UpdateFund(ctx context.Context, id string, patch storage.FundPatch) error {
	d.record("UpdateFund")
	if d.updateFundFn != nil {
		return d.updateFundFn(id, patch)
	}
	return nil
}

func (d *fakeDocs) DeleteFund(ctx context.Context, id string) error {
	d.record("DeleteFund")
	if d.deleteFundFn != nil {
		return d.deleteFundFn(id)
	}
	return nil
}

func (d *fakeDocs) GetFundTransactions(ctx context.Context, fundID string) ([]models.Transaction, error) {
	d.record("GetFundTransactions")
	if d.getFundTransactionsFn != nil {
		return d.getFundTransactionsFn(fundID)
	}
	return nil, nil
}

func (d *fakeDocs) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	d.record("CreateTransaction")
	if d.createTransactionFn != nil {
		return d.createTransactionFn(txn)
	}
	created := *txn
	created.ID = "txn-new"
	if created.CreatedAt == 0 {
		created.CreatedAt = time.Now().Unix()
	}
	return &created, nil
}

func (d *fakeDocs) DeleteTransaction(ctx context.Context, id string) error {
	d.record("DeleteTransaction")
	if d.deleteTransactionFn != nil {
		return d.deleteTransactionFn(id)
	}
	return nil
}

func (d *fakeDocs) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	d.record("FindUserByEmail")
	if d.findUserByEmailFn != nil {
		return d.findUserByEmailFn(email)
	}
	return nil, nil
}

func (d *fakeDocs) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	d.record("GetUsersByIDs")
	if d.getUsersByIDsFn != nil {
		return d.getUsersByIDsFn(ids)
	}
	return map[string]*models.User{}, nil
}

func (d *fakeDocs) SyncUser(ctx context.Context, ident auth.Identity) (*models.User, error) {
	d.record("SyncUser")
	if d.syncUserFn != nil {
		return d.syncUserFn(ident)
	}
	return &models.User{
		ID:          ident.UID,
		DisplayName: ident.DisplayName,
		Email:       ident.Email,
		PhotoURL:    ident.PhotoURL,
	}, nil
}

func (d *fakeDocs) AddUserToFundByEmail(ctx context.Context, fundID, email string) (bool, error) {
	d.record("AddUserToFundByEmail")
	if d.addUserByEmailFn != nil {
		return d.addUserByEmailFn(fundID, email)
	}
	return false, nil
}

func (d *fakeDocs) Close() error { return nil }

// memSnapshot is an in-memory SnapshotStore.
type memSnapshot struct {
	mu     sync.Mutex
	user   *models.User
	saves  int
	clears int
}

func (m *memSnapshot) Load() (*models.User, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.user, nil
}

func (m *memSnapshot) Save(user *models.User) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = user
	m.saves++
	return nil
}

func (m *memSnapshot) Clear() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.user = nil
	m.clears++
	return nil
}

// fakeNotifier collects user-visible notifications.
type fakeNotifier struct {
	mu       sync.Mutex
	messages []string
}

func (n *fakeNotifier) Notify(msg string) {
	n.mu.Lock()
	n.messages = append(n.messages, msg)
	n.mu.Unlock()
}

func (n *fakeNotifier) count() int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return len(n.messages)
}

// testCore wires a full client core over fakes. Initialize is left to
// the test.
type testCore struct {
	provider *fakeProvider
	docs     *fakeDocs
	snapshot *memSnapshot
	notifier *fakeNotifier
	session  *Session
	cache    *UserCache
	store    *FundStore
}

func newTestCore(t *testing.T) *testCore {
	t.Helper()
	c := &testCore{
		provider: newFakeProvider(),
		docs:     newFakeDocs(),
		snapshot: &memSnapshot{},
		notifier: &fakeNotifier{},
	}
	c.session = NewSession(c.provider, c.docs, c.snapshot, SessionOptions{
		Notifier:    c.notifier,
		InitTimeout: time.Second,
	})
	c.cache = NewUserCache(c.session, c.docs)
	c.store = NewFundStore(c.docs, c.session, FundStoreOptions{
		Notifier:      c.notifier,
		RefreshPeriod: time.Hour, // keep the poller quiet during tests
	})
	t.Cleanup(func() {
		c.store.Close()
		c.cache.Close()
		c.session.Close()
	})
	return c
}

// signIn drives the session to an authenticated state.
func (c *testCore) signIn(t *testing.T, uid string) {
	t.Helper()
	c.session.Initialize()
	c.provider.emit(&auth.Identity{UID: uid, DisplayName: "Name " + uid, Email: uid + "@example.com"})
	if got := c.session.CurrentUser(); got == nil || got.ID != uid {
		t.Fatalf("sign-in failed, current user = %+v", got)
	}
}
