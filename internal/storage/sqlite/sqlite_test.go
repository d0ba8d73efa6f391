package sqlite

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

func newTestStore(t *testing.T) *Store {
	t.Helper()
	store, err := New(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func mustCreateUser(t *testing.T, store *Store, id, email string) {
	t.Helper()
	err := store.CreateUser(context.Background(), &models.User{
		ID:          id,
		DisplayName: "User " + id,
		Email:       email,
	})
	if err != nil {
		t.Fatalf("failed to create user %s: %v", id, err)
	}
}

func TestUserRoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	user := &models.User{
		ID:           "u1",
		DisplayName:  "Alice",
		Email:        "alice@example.com",
		BankAccount:  "NL01",
		PasswordHash: "not-a-real-hash",
	}
	if err := store.CreateUser(ctx, user); err != nil {
		t.Fatalf("CreateUser: %v", err)
	}

	got, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatalf("GetUserByID: %v", err)
	}
	if got == nil || got.DisplayName != "Alice" || got.BankAccount != "NL01" {
		t.Errorf("GetUserByID = %+v, want the stored profile", got)
	}
	if got.PasswordHash != "not-a-real-hash" {
		t.Error("password hash not persisted")
	}

	got, err = store.FindUserByEmail(ctx, "alice@example.com")
	if err != nil {
		t.Fatalf("FindUserByEmail: %v", err)
	}
	if got == nil || got.ID != "u1" {
		t.Errorf("FindUserByEmail = %+v, want u1", got)
	}

	got, err = store.GetUserByID(ctx, "missing")
	if err != nil || got != nil {
		t.Errorf("GetUserByID(missing) = %+v, %v; want nil, nil", got, err)
	}
	got, err = store.FindUserByEmail(ctx, "missing@example.com")
	if err != nil || got != nil {
		t.Errorf("FindUserByEmail(missing) = %+v, %v; want nil, nil", got, err)
	}
}

func TestCreateUserDuplicateEmail(t *testing.T) {
	store := newTestStore(t)
	mustCreateUser(t, store, "u1", "alice@example.com")

	err := store.CreateUser(context.Background(), &models.User{
		ID:          "u2",
		DisplayName: "Impostor",
		Email:       "alice@example.com",
	})
	if err == nil {
		t.Error("duplicate email accepted, want error")
	}
}

func TestGetUsersByIDs(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "u1", "u1@example.com")
	mustCreateUser(t, store, "u2", "u2@example.com")

	users, err := store.GetUsersByIDs(ctx, []string{"u1", "u2", "missing"})
	if err != nil {
		t.Fatalf("GetUsersByIDs: %v", err)
	}
	if len(users) != 2 {
		t.Fatalf("got %d users, want 2", len(users))
	}
	if users["u1"] == nil || users["u2"] == nil {
		t.Error("known users missing from the result")
	}
	if _, ok := users["missing"]; ok {
		t.Error("unknown id should be omitted, not present")
	}

	users, err = store.GetUsersByIDs(ctx, nil)
	if err != nil || len(users) != 0 {
		t.Errorf("GetUsersByIDs(nil) = %v, %v; want empty map", users, err)
	}
}

func TestSyncUserUpsert(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	created, err := store.SyncUser(ctx, auth.Identity{
		UID: "u1", DisplayName: "Alice", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("SyncUser(new): %v", err)
	}
	if created.ID != "u1" || created.DisplayName != "Alice" {
		t.Errorf("created = %+v, want the identity fields", created)
	}

	// Settlement and credential fields set after the first sync survive
	// the next one.
	if _, err := store.db.Exec(
		"UPDATE users SET bank_account = ?, password_hash = ? WHERE id = ?",
		"NL01", "hash", "u1"); err != nil {
		t.Fatal(err)
	}

	updated, err := store.SyncUser(ctx, auth.Identity{
		UID: "u1", DisplayName: "Alice B", Email: "alice@example.com",
	})
	if err != nil {
		t.Fatalf("SyncUser(existing): %v", err)
	}
	if updated.DisplayName != "Alice B" {
		t.Errorf("DisplayName = %q, want refreshed", updated.DisplayName)
	}
	if updated.BankAccount != "NL01" {
		t.Errorf("BankAccount = %q, want preserved", updated.BankAccount)
	}

	got, err := store.GetUserByID(ctx, "u1")
	if err != nil {
		t.Fatal(err)
	}
	if got.PasswordHash != "hash" {
		t.Error("password hash lost across sync")
	}

	if _, err := store.SyncUser(ctx, auth.Identity{}); err == nil {
		t.Error("SyncUser with an empty uid should fail")
	}
}

func TestFundLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "owner", "owner@example.com")
	mustCreateUser(t, store, "friend", "friend@example.com")

	fund, err := store.CreateFund(ctx, storage.FundDraft{
		Name:        "Trip",
		Description: "Summer trip",
		Members:     []string{"friend", "owner", "friend"},
	}, "owner")
	if err != nil {
		t.Fatalf("CreateFund: %v", err)
	}
	if len(fund.Members) != 2 {
		t.Errorf("members = %v, want owner and friend deduplicated", fund.Members)
	}
	if fund.CreatedBy != "owner" {
		t.Errorf("CreatedBy = %q, want owner", fund.CreatedBy)
	}

	got, err := store.GetFundByID(ctx, fund.ID)
	if err != nil {
		t.Fatalf("GetFundByID: %v", err)
	}
	if got == nil || got.Name != "Trip" || len(got.Members) != 2 {
		t.Errorf("GetFundByID = %+v, want the stored fund with members", got)
	}

	funds, err := store.GetUserFunds(ctx, "friend")
	if err != nil {
		t.Fatalf("GetUserFunds: %v", err)
	}
	if len(funds) != 1 || funds[0].ID != fund.ID {
		t.Errorf("GetUserFunds(friend) = %+v, want the fund", funds)
	}

	name := "Trip 2026"
	members := []string{"friend"}
	if err := store.UpdateFund(ctx, fund.ID, storage.FundPatch{Name: &name, Members: &members}); err != nil {
		t.Fatalf("UpdateFund: %v", err)
	}
	got, err = store.GetFundByID(ctx, fund.ID)
	if err != nil {
		t.Fatal(err)
	}
	if got.Name != "Trip 2026" {
		t.Errorf("Name = %q, want the patched value", got.Name)
	}
	if got.Description != "Summer trip" {
		t.Errorf("Description = %q, want unpatched fields untouched", got.Description)
	}
	// The creator can never be patched out of the member list.
	if len(got.Members) != 2 {
		t.Errorf("members = %v, want creator retained alongside friend", got.Members)
	}

	if err := store.DeleteFund(ctx, fund.ID); err != nil {
		t.Fatalf("DeleteFund: %v", err)
	}
	got, err = store.GetFundByID(ctx, fund.ID)
	if err != nil || got != nil {
		t.Errorf("GetFundByID after delete = %+v, %v; want nil, nil", got, err)
	}
	if err := store.DeleteFund(ctx, fund.ID); err == nil {
		t.Error("deleting a missing fund should fail")
	}
}

func TestAddUserToFundByEmail(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "owner", "owner@example.com")
	mustCreateUser(t, store, "friend", "friend@example.com")

	fund, err := store.CreateFund(ctx, storage.FundDraft{Name: "Trip"}, "owner")
	if err != nil {
		t.Fatal(err)
	}

	ok, err := store.AddUserToFundByEmail(ctx, fund.ID, "friend@example.com")
	if err != nil || !ok {
		t.Fatalf("AddUserToFundByEmail = %v, %v; want true, nil", ok, err)
	}
	got, err := store.GetFundByID(ctx, fund.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(got.Members) != 2 {
		t.Errorf("members = %v, want friend added", got.Members)
	}

	// Re-adding an existing member is a successful no-op.
	ok, err = store.AddUserToFundByEmail(ctx, fund.ID, "friend@example.com")
	if err != nil || !ok {
		t.Errorf("re-add = %v, %v; want true, nil", ok, err)
	}

	ok, err = store.AddUserToFundByEmail(ctx, fund.ID, "nobody@example.com")
	if err != nil || ok {
		t.Errorf("unknown email = %v, %v; want false, nil", ok, err)
	}

	if _, err := store.AddUserToFundByEmail(ctx, "missing-fund", "friend@example.com"); err == nil {
		t.Error("unknown fund should fail")
	}
}

func TestTransactionLifecycle(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "owner", "owner@example.com")

	fund, err := store.CreateFund(ctx, storage.FundDraft{Name: "Trip"}, "owner")
	if err != nil {
		t.Fatal(err)
	}

	created, err := store.CreateTransaction(ctx, &models.Transaction{
		FundID:      fund.ID,
		Description: "Dinner",
		Amount:      100,
		PaidBy:      "owner",
		Splits: []models.Split{
			{UserID: "owner", Amount: -50},
			{UserID: "friend", Amount: 50},
		},
	})
	if err != nil {
		t.Fatalf("CreateTransaction: %v", err)
	}
	if created.ID == "" || created.CreatedAt == 0 {
		t.Errorf("created = %+v, want assigned id and timestamp", created)
	}
	if created.Date != created.CreatedAt {
		t.Errorf("Date = %d, want defaulted to CreatedAt %d", created.Date, created.CreatedAt)
	}

	older, err := store.CreateTransaction(ctx, &models.Transaction{
		FundID:      fund.ID,
		Description: "Gas",
		Amount:      40,
		PaidBy:      "owner",
		Date:        created.Date - 1000,
	})
	if err != nil {
		t.Fatal(err)
	}

	txns, err := store.GetFundTransactions(ctx, fund.ID)
	if err != nil {
		t.Fatalf("GetFundTransactions: %v", err)
	}
	if len(txns) != 2 {
		t.Fatalf("got %d transactions, want 2", len(txns))
	}
	if txns[0].ID != created.ID || txns[1].ID != older.ID {
		t.Errorf("order = [%s %s], want newest first", txns[0].ID, txns[1].ID)
	}
	if len(txns[0].Splits) != 2 {
		t.Errorf("splits = %+v, want both rows", txns[0].Splits)
	}

	if err := store.DeleteTransaction(ctx, created.ID); err != nil {
		t.Fatalf("DeleteTransaction: %v", err)
	}
	txns, err = store.GetFundTransactions(ctx, fund.ID)
	if err != nil {
		t.Fatal(err)
	}
	if len(txns) != 1 || txns[0].ID != older.ID {
		t.Errorf("transactions = %+v, want only the older one", txns)
	}
	if err := store.DeleteTransaction(ctx, created.ID); err == nil {
		t.Error("deleting a missing transaction should fail")
	}

	if _, err := store.CreateTransaction(ctx, &models.Transaction{Description: "orphan"}); err == nil {
		t.Error("transaction without a fund should fail")
	}
}

func TestDeleteFundCascades(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()
	mustCreateUser(t, store, "owner", "owner@example.com")

	fund, err := store.CreateFund(ctx, storage.FundDraft{Name: "Trip"}, "owner")
	if err != nil {
		t.Fatal(err)
	}
	txn, err := store.CreateTransaction(ctx, &models.Transaction{
		FundID: fund.ID, Description: "Dinner", Amount: 100, PaidBy: "owner",
		Splits: []models.Split{{UserID: "owner", Amount: 100}},
	})
	if err != nil {
		t.Fatal(err)
	}

	if err := store.DeleteFund(ctx, fund.ID); err != nil {
		t.Fatal(err)
	}

	var n int
	if err := store.db.QueryRow(
		"SELECT COUNT(*) FROM transactions WHERE fund_id = ?", fund.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d transactions survived the fund deletion", n)
	}
	if err := store.db.QueryRow(
		"SELECT COUNT(*) FROM splits WHERE transaction_id = ?", txn.ID).Scan(&n); err != nil {
		t.Fatal(err)
	}
	if n != 0 {
		t.Errorf("%d splits survived the fund deletion", n)
	}
}
