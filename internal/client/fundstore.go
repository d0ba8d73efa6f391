package client

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/fundwise/fundwise/internal/calculator"
	"github.com/fundwise/fundwise/internal/metrics"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

// DefaultRefreshPeriod is how often the transactions of the selected
// fund are re-fetched while it stays selected. There is no push channel
// from the document store; polling approximates freshness.
const DefaultRefreshPeriod = 30 * time.Second

// FundStoreOptions tune a FundStore. Zero values select defaults.
type FundStoreOptions struct {
	Notifier      Notifier
	Logger        *slog.Logger
	RefreshPeriod time.Duration

	// StrictExactSplits makes CreateTransaction reject exact-mode drafts
	// whose manual splits do not sum to the amount. Off by default.
	StrictExactSplits bool
}

// TransactionDraft carries the caller-supplied fields of a new
// transaction. Splits are derived from the split rule before the draft
// is persisted.
type TransactionDraft struct {
	FundID      string
	Description string
	Amount      int64
	PaidBy      string

	Mode         calculator.SplitMode
	Participants []string
	Percentages  map[string]float64
	ManualSplits []models.Split

	// Date is the expense date; zero means "now".
	Date time.Time
}

// FundStore is the client-side mirror of the remote fund and
// transaction collections, scoped to the current identity and the
// currently selected fund.
//
// Consistency model: whole-value substitution with last-write-wins. A
// periodic refresh and a user mutation may resolve out of order, and the
// later-resolving one wins; there are no conflict tokens. Loads started
// before a sign-out are discarded via the session generation.
type FundStore struct {
	docs    storage.DocumentStore
	session *Session

	notifier      Notifier
	logger        *slog.Logger
	refreshPeriod time.Duration
	strictExact   bool

	mu           sync.Mutex
	funds        []models.Fund
	transactions []models.Transaction
	fundsLoaded  bool
	selected     string
	stopRefresh  chan struct{}

	unsubscribe func()
}

// NewFundStore creates a fund store bound to the session's identity
// lifecycle: sign-in triggers a fund load for the new identity, sign-out
// clears the mirror. Call Close on teardown.
func NewFundStore(docs storage.DocumentStore, session *Session, opts FundStoreOptions) *FundStore {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	notifier := opts.Notifier
	if notifier == nil {
		notifier = LogNotifier{Logger: logger}
	}
	period := opts.RefreshPeriod
	if period <= 0 {
		period = DefaultRefreshPeriod
	}

	s := &FundStore{
		docs:          docs,
		session:       session,
		notifier:      notifier,
		logger:        logger,
		refreshPeriod: period,
		strictExact:   opts.StrictExactSplits,
	}
	s.unsubscribe = session.Subscribe(func(user *models.User) {
		if user == nil {
			s.reset()
			return
		}
		_ = s.LoadFundsForUser(context.Background(), user.ID)
	})
	return s
}

// LoadFundsForUser fetches all funds where userID is a member and merges
// them into the local collection by id: new and updated entries
// overwrite, locally held funds absent from the response are kept. The
// "has loaded" flag is set even on failure so consumers can stop showing
// a loading state.
func (s *FundStore) LoadFundsForUser(ctx context.Context, userID string) error {
	gen := s.session.Generation()

	funds, err := s.docs.GetUserFunds(ctx, userID)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.session.Generation() {
		s.logger.Debug("discarding fund load from a previous session", "user_id", userID)
		return nil
	}
	s.fundsLoaded = true

	if err != nil {
		metrics.SyncFailures.WithLabelValues("funds").Inc()
		s.logger.Warn("fund load failed", "user_id", userID, "error", err)
		s.notifier.Notify("Couldn't load your funds.")
		return err
	}

	for _, fund := range funds {
		s.mergeFundLocked(fund)
	}
	metrics.FundRefreshes.Inc()
	s.logger.Debug("funds loaded", "user_id", userID, "count", len(funds))
	return nil
}

// SelectFund marks a fund as the one whose transactions are mirrored,
// loads them immediately, and starts the periodic refresh. Selecting the
// already-selected fund is a no-op.
func (s *FundStore) SelectFund(ctx context.Context, fundID string) {
	s.mu.Lock()
	if s.selected == fundID {
		s.mu.Unlock()
		return
	}
	s.stopRefreshLocked()
	s.selected = fundID
	stop := make(chan struct{})
	s.stopRefresh = stop
	s.mu.Unlock()

	_ = s.LoadTransactionsForFund(ctx, fundID)
	go s.refreshLoop(fundID, stop)
}

// DeselectFund stops the periodic refresh. The mirrored transactions
// stay until the next selection replaces them.
func (s *FundStore) DeselectFund() {
	s.mu.Lock()
	s.stopRefreshLocked()
	s.selected = ""
	s.mu.Unlock()
}

func (s *FundStore) refreshLoop(fundID string, stop chan struct{}) {
	ticker := time.NewTicker(s.refreshPeriod)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			_ = s.LoadTransactionsForFund(context.Background(), fundID)
		}
	}
}

// LoadTransactionsForFund fetches the transactions of a fund, normalizes
// them, and replaces the whole local transaction collection with the
// result, sorted newest first. On failure the prior local state stays
// intact. Unlike the fund merge, this replacement is non-additive.
func (s *FundStore) LoadTransactionsForFund(ctx context.Context, fundID string) error {
	gen := s.session.Generation()

	txns, err := s.docs.GetFundTransactions(ctx, fundID)
	if err != nil {
		metrics.SyncFailures.WithLabelValues("transactions").Inc()
		s.logger.Warn("transaction load failed", "fund_id", fundID, "error", err)
		s.notifier.Notify("Couldn't refresh transactions.")
		return err
	}

	now := time.Now().Unix()
	for i := range txns {
		normalizeTransaction(&txns[i], now)
	}
	sortTransactions(txns)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.session.Generation() {
		s.logger.Debug("discarding transaction load from a previous session", "fund_id", fundID)
		return nil
	}
	if s.selected != "" && s.selected != fundID {
		s.logger.Debug("discarding transaction load for deselected fund", "fund_id", fundID)
		return nil
	}
	s.transactions = txns
	metrics.TransactionRefreshes.Inc()
	s.logger.Debug("transactions loaded", "fund_id", fundID, "count", len(txns))
	return nil
}

// CreateFund issues the remote creation and, on success, merges the new
// fund locally. Failure is reported through the boolean result after a
// notification; local state is left untouched.
func (s *FundStore) CreateFund(ctx context.Context, draft storage.FundDraft) (*models.Fund, bool) {
	current := s.session.CurrentUser()
	if current == nil {
		s.notifier.Notify("Sign in to create a fund.")
		return nil, false
	}

	fund, err := s.docs.CreateFund(ctx, draft, current.ID)
	if err != nil {
		metrics.MutationFailures.WithLabelValues("create_fund").Inc()
		s.logger.Warn("create fund failed", "name", draft.Name, "error", err)
		s.notifier.Notify("Couldn't create the fund.")
		return nil, false
	}

	s.mu.Lock()
	s.mergeFundLocked(*fund)
	s.mu.Unlock()
	s.logger.Info("fund created", "fund_id", fund.ID)
	return fund, true
}

// UpdateFund issues the remote partial update and, on success, applies
// the same patch to the local entry.
func (s *FundStore) UpdateFund(ctx context.Context, id string, patch storage.FundPatch) bool {
	if err := s.docs.UpdateFund(ctx, id, patch); err != nil {
		metrics.MutationFailures.WithLabelValues("update_fund").Inc()
		s.logger.Warn("update fund failed", "fund_id", id, "error", err)
		s.notifier.Notify("Couldn't update the fund.")
		return false
	}

	s.mu.Lock()
	for i := range s.funds {
		if s.funds[i].ID != id {
			continue
		}
		if patch.Name != nil {
			s.funds[i].Name = *patch.Name
		}
		if patch.Description != nil {
			s.funds[i].Description = *patch.Description
		}
		if patch.Members != nil {
			// Mirror the stores' rule: the creator is always a member.
			seen := map[string]bool{s.funds[i].CreatedBy: true}
			members := []string{s.funds[i].CreatedBy}
			for _, m := range *patch.Members {
				if !seen[m] {
					seen[m] = true
					members = append(members, m)
				}
			}
			s.funds[i].Members = members
		}
		break
	}
	s.mu.Unlock()
	return true
}

// DeleteFund issues the remote deletion and, on success, drops the fund
// locally. Deleting the selected fund also stops its refresh and clears
// the mirrored transactions.
func (s *FundStore) DeleteFund(ctx context.Context, id string) bool {
	if err := s.docs.DeleteFund(ctx, id); err != nil {
		metrics.MutationFailures.WithLabelValues("delete_fund").Inc()
		s.logger.Warn("delete fund failed", "fund_id", id, "error", err)
		s.notifier.Notify("Couldn't delete the fund.")
		return false
	}

	s.mu.Lock()
	kept := s.funds[:0]
	for _, fund := range s.funds {
		if fund.ID != id {
			kept = append(kept, fund)
		}
	}
	s.funds = kept
	if s.selected == id {
		s.stopRefreshLocked()
		s.selected = ""
		s.transactions = nil
	}
	s.mu.Unlock()
	s.logger.Info("fund deleted", "fund_id", id)
	return true
}

// AddMemberByEmail adds a registered user to a fund by email and
// refreshes the local member list. Returns false when the email is
// unknown or the mutation failed.
func (s *FundStore) AddMemberByEmail(ctx context.Context, fundID, email string) bool {
	ok, err := s.docs.AddUserToFundByEmail(ctx, fundID, email)
	if err != nil {
		metrics.MutationFailures.WithLabelValues("add_member").Inc()
		s.logger.Warn("add member failed", "fund_id", fundID, "error", err)
		s.notifier.Notify("Couldn't add the member.")
		return false
	}
	if !ok {
		s.notifier.Notify("No registered user with that email.")
		return false
	}

	// Best-effort local refresh of the member list.
	if fund, err := s.docs.GetFundByID(ctx, fundID); err == nil && fund != nil {
		s.mu.Lock()
		s.mergeFundLocked(*fund)
		s.mu.Unlock()
	}
	return true
}

// CreateTransaction derives the splits from the draft's split rule,
// persists the transaction, and on success inserts it into the local
// mirror. Failure is reported through the boolean result after a
// notification.
func (s *FundStore) CreateTransaction(ctx context.Context, draft TransactionDraft) (*models.Transaction, bool) {
	splits, err := calculator.ComputeSplits(calculator.Draft{
		Amount:       draft.Amount,
		PaidBy:       draft.PaidBy,
		Mode:         draft.Mode,
		Participants: draft.Participants,
		Percentages:  draft.Percentages,
		ManualSplits: draft.ManualSplits,
	})
	if err != nil {
		s.logger.Warn("split computation failed", "fund_id", draft.FundID, "error", err)
		s.notifier.Notify("Couldn't compute the splits for this expense.")
		return nil, false
	}
	if s.strictExact && draft.Mode == calculator.SplitExact {
		if err := calculator.ValidateExactSplits(draft.Amount, splits); err != nil {
			s.logger.Warn("exact splits rejected", "fund_id", draft.FundID, "error", err)
			s.notifier.Notify("The manual splits don't add up to the expense amount.")
			return nil, false
		}
	}

	date := draft.Date
	if date.IsZero() {
		date = time.Now()
	}
	txn := &models.Transaction{
		FundID:      draft.FundID,
		Description: draft.Description,
		Amount:      draft.Amount,
		PaidBy:      draft.PaidBy,
		Splits:      splits,
		Date:        date.Unix(),
	}

	created, err := s.docs.CreateTransaction(ctx, txn)
	if err != nil {
		metrics.MutationFailures.WithLabelValues("create_transaction").Inc()
		s.logger.Warn("create transaction failed", "fund_id", draft.FundID, "error", err)
		s.notifier.Notify("Couldn't record the expense.")
		return nil, false
	}

	s.mu.Lock()
	if s.selected == "" || s.selected == created.FundID {
		s.transactions = append(s.transactions, *created)
		sortTransactions(s.transactions)
	}
	s.mu.Unlock()
	s.logger.Info("transaction created", "transaction_id", created.ID, "fund_id", created.FundID)
	return created, true
}

// DeleteTransaction issues the remote deletion and, on success, drops
// the transaction locally.
func (s *FundStore) DeleteTransaction(ctx context.Context, id string) bool {
	if err := s.docs.DeleteTransaction(ctx, id); err != nil {
		metrics.MutationFailures.WithLabelValues("delete_transaction").Inc()
		s.logger.Warn("delete transaction failed", "transaction_id", id, "error", err)
		s.notifier.Notify("Couldn't delete the expense.")
		return false
	}

	s.mu.Lock()
	kept := s.transactions[:0]
	for _, txn := range s.transactions {
		if txn.ID != id {
			kept = append(kept, txn)
		}
	}
	s.transactions = kept
	s.mu.Unlock()
	return true
}

// Funds returns a copy of the mirrored fund collection.
func (s *FundStore) Funds() []models.Fund {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Fund(nil), s.funds...)
}

// Transactions returns a copy of the mirrored transaction collection,
// sorted newest first.
func (s *FundStore) Transactions() []models.Transaction {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]models.Transaction(nil), s.transactions...)
}

// HasLoadedFunds reports whether at least one fund load has completed,
// successfully or not.
func (s *FundStore) HasLoadedFunds() bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.fundsLoaded
}

// SelectedFund returns the id of the currently selected fund, if any.
func (s *FundStore) SelectedFund() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.selected
}

// Balances computes the net member balances of a fund from the mirrored
// transactions.
func (s *FundStore) Balances(fundID string) []calculator.Balance {
	return calculator.BalancesForFund(s.Transactions(), fundID)
}

// Close stops the periodic refresh and unsubscribes from the session.
func (s *FundStore) Close() {
	s.mu.Lock()
	s.stopRefreshLocked()
	s.mu.Unlock()
	if s.unsubscribe != nil {
		s.unsubscribe()
	}
}

// reset clears the mirror on sign-out.
func (s *FundStore) reset() {
	s.mu.Lock()
	s.stopRefreshLocked()
	s.selected = ""
	s.funds = nil
	s.transactions = nil
	s.fundsLoaded = false
	s.mu.Unlock()
}

// mergeFundLocked inserts or overwrites a fund by id. Callers hold mu.
func (s *FundStore) mergeFundLocked(fund models.Fund) {
	for i := range s.funds {
		if s.funds[i].ID == fund.ID {
			s.funds[i] = fund
			return
		}
	}
	s.funds = append(s.funds, fund)
}

func (s *FundStore) stopRefreshLocked() {
	if s.stopRefresh != nil {
		close(s.stopRefresh)
		s.stopRefresh = nil
	}
}

// normalizeTransaction fills safe defaults for fields a sloppy writer
// may have left out.
func normalizeTransaction(txn *models.Transaction, now int64) {
	if txn.Description == "" {
		txn.Description = "(no description)"
	}
	if txn.Amount < 0 {
		txn.Amount = 0
	}
	if txn.Splits == nil {
		txn.Splits = []models.Split{}
	}
	if txn.CreatedAt == 0 {
		txn.CreatedAt = now
	}
}

// sortTransactions orders newest first by effective date, then by
// creation time.
func sortTransactions(txns []models.Transaction) {
	sort.SliceStable(txns, func(i, j int) bool {
		di, dj := txns[i].EffectiveDate(), txns[j].EffectiveDate()
		if di != dj {
			return di > dj
		}
		return txns[i].CreatedAt > txns[j].CreatedAt
	})
}
