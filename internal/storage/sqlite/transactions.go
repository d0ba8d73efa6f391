package sqlite

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fundwise/fundwise/internal/models"
)

// CreateTransaction persists a new transaction with its splits.
// ID and CreatedAt are assigned here if unset; Date defaults to
// CreatedAt.
func (s *Store) CreateTransaction(ctx context.Context, txn *models.Transaction) (*models.Transaction, error) {
	if txn.FundID == "" {
		return nil, fmt.Errorf("transaction requires a fund")
	}

	created := *txn
	if created.ID == "" {
		created.ID = uuid.New().String()
	}
	if created.CreatedAt == 0 {
		created.CreatedAt = time.Now().Unix()
	}
	if created.Date == 0 {
		created.Date = created.CreatedAt
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO transactions (id, fund_id, description, amount, paid_by, created_at, date)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		created.ID, created.FundID, created.Description, created.Amount,
		created.PaidBy, created.CreatedAt, created.Date,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert transaction: %w", err)
	}

	for _, split := range created.Splits {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO splits (transaction_id, user_id, amount) VALUES (?, ?, ?)",
			created.ID, split.UserID, split.Amount,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert split: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return &created, nil
}

// GetFundTransactions returns all transactions of a fund with their
// splits, newest first.
func (s *Store) GetFundTransactions(ctx context.Context, fundID string) ([]models.Transaction, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, fund_id, description, amount, paid_by, created_at, date
		 FROM transactions WHERE fund_id = ?
		 ORDER BY date DESC, created_at DESC`,
		fundID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list transactions: %w", err)
	}
	defer rows.Close()

	var txns []models.Transaction
	for rows.Next() {
		var txn models.Transaction
		if err := rows.Scan(&txn.ID, &txn.FundID, &txn.Description, &txn.Amount,
			&txn.PaidBy, &txn.CreatedAt, &txn.Date); err != nil {
			return nil, fmt.Errorf("failed to scan transaction: %w", err)
		}
		txns = append(txns, txn)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate transactions: %w", err)
	}

	for i := range txns {
		txns[i].Splits, err = s.transactionSplits(ctx, txns[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return txns, nil
}

// DeleteTransaction removes a transaction; its splits cascade.
func (s *Store) DeleteTransaction(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM transactions WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete transaction: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("transaction not found: %s", id)
	}
	return nil
}

func (s *Store) transactionSplits(ctx context.Context, txnID string) ([]models.Split, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id, amount FROM splits WHERE transaction_id = ? ORDER BY user_id", txnID)
	if err != nil {
		return nil, fmt.Errorf("failed to get splits: %w", err)
	}
	defer rows.Close()

	var splits []models.Split
	for rows.Next() {
		var split models.Split
		if err := rows.Scan(&split.UserID, &split.Amount); err != nil {
			return nil, fmt.Errorf("failed to scan split: %w", err)
		}
		splits = append(splits, split)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate splits: %w", err)
	}
	return splits, nil
}
