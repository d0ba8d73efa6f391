package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/fundwise/fundwise/internal/models"
	"github.com/fundwise/fundwise/internal/storage"
)

// CreateFund persists a new fund. The owner is always included in the
// member list, deduplicated.
func (s *Store) CreateFund(ctx context.Context, draft storage.FundDraft, ownerID string) (*models.Fund, error) {
	if ownerID == "" {
		return nil, fmt.Errorf("fund owner required")
	}

	fund := &models.Fund{
		ID:          uuid.New().String(),
		Name:        draft.Name,
		Description: draft.Description,
		CreatedAt:   time.Now().Unix(),
		CreatedBy:   ownerID,
	}
	seen := map[string]bool{ownerID: true}
	fund.Members = []string{ownerID}
	for _, m := range draft.Members {
		if !seen[m] {
			seen[m] = true
			fund.Members = append(fund.Members, m)
		}
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx,
		"INSERT INTO funds (id, name, description, created_at, created_by) VALUES (?, ?, ?, ?, ?)",
		fund.ID, fund.Name, fund.Description, fund.CreatedAt, fund.CreatedBy,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to insert fund: %w", err)
	}

	for _, member := range fund.Members {
		_, err = tx.ExecContext(ctx,
			"INSERT INTO fund_members (fund_id, user_id) VALUES (?, ?)",
			fund.ID, member,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to insert fund member: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("failed to commit transaction: %w", err)
	}
	return fund, nil
}

// GetFundByID retrieves a fund with its member list. Returns nil, nil
// when the fund does not exist.
func (s *Store) GetFundByID(ctx context.Context, id string) (*models.Fund, error) {
	fund := &models.Fund{}
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at, created_by FROM funds WHERE id = ?",
		id,
	).Scan(&fund.ID, &fund.Name, &fund.Description, &fund.CreatedAt, &fund.CreatedBy)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get fund: %w", err)
	}

	fund.Members, err = s.fundMembers(ctx, fund.ID)
	if err != nil {
		return nil, err
	}
	return fund, nil
}

// GetUserFunds returns all funds where userID is a member.
func (s *Store) GetUserFunds(ctx context.Context, userID string) ([]models.Fund, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT f.id, f.name, f.description, f.created_at, f.created_by
		 FROM funds f
		 JOIN fund_members fm ON fm.fund_id = f.id
		 WHERE fm.user_id = ?
		 ORDER BY f.created_at DESC`,
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list funds: %w", err)
	}
	defer rows.Close()

	var funds []models.Fund
	for rows.Next() {
		var fund models.Fund
		if err := rows.Scan(&fund.ID, &fund.Name, &fund.Description, &fund.CreatedAt, &fund.CreatedBy); err != nil {
			return nil, fmt.Errorf("failed to scan fund: %w", err)
		}
		funds = append(funds, fund)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate funds: %w", err)
	}

	for i := range funds {
		funds[i].Members, err = s.fundMembers(ctx, funds[i].ID)
		if err != nil {
			return nil, err
		}
	}
	return funds, nil
}

// UpdateFund applies a partial update. Member updates always retain the
// fund's creator.
func (s *Store) UpdateFund(ctx context.Context, id string, patch storage.FundPatch) error {
	fund, err := s.GetFundByID(ctx, id)
	if err != nil {
		return err
	}
	if fund == nil {
		return fmt.Errorf("fund not found: %s", id)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if patch.Name != nil {
		fund.Name = *patch.Name
	}
	if patch.Description != nil {
		fund.Description = *patch.Description
	}
	_, err = tx.ExecContext(ctx,
		"UPDATE funds SET name = ?, description = ? WHERE id = ?",
		fund.Name, fund.Description, id,
	)
	if err != nil {
		return fmt.Errorf("failed to update fund: %w", err)
	}

	if patch.Members != nil {
		members := *patch.Members
		seen := map[string]bool{fund.CreatedBy: true}
		final := []string{fund.CreatedBy}
		for _, m := range members {
			if !seen[m] {
				seen[m] = true
				final = append(final, m)
			}
		}

		if _, err := tx.ExecContext(ctx, "DELETE FROM fund_members WHERE fund_id = ?", id); err != nil {
			return fmt.Errorf("failed to clear fund members: %w", err)
		}
		for _, m := range final {
			if _, err := tx.ExecContext(ctx,
				"INSERT INTO fund_members (fund_id, user_id) VALUES (?, ?)", id, m); err != nil {
				return fmt.Errorf("failed to insert fund member: %w", err)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit transaction: %w", err)
	}
	return nil
}

// DeleteFund removes a fund; its members and transactions cascade.
func (s *Store) DeleteFund(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, "DELETE FROM funds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete fund: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("fund not found: %s", id)
	}
	return nil
}

// AddUserToFundByEmail adds the user registered under email to the
// fund's member list. Returns false when no such user exists; adding an
// existing member is a successful no-op.
func (s *Store) AddUserToFundByEmail(ctx context.Context, fundID, email string) (bool, error) {
	user, err := s.FindUserByEmail(ctx, email)
	if err != nil {
		return false, err
	}
	if user == nil {
		return false, nil
	}

	fund, err := s.GetFundByID(ctx, fundID)
	if err != nil {
		return false, err
	}
	if fund == nil {
		return false, fmt.Errorf("fund not found: %s", fundID)
	}

	_, err = s.db.ExecContext(ctx,
		"INSERT OR IGNORE INTO fund_members (fund_id, user_id) VALUES (?, ?)",
		fundID, user.ID,
	)
	if err != nil {
		return false, fmt.Errorf("failed to add fund member: %w", err)
	}
	return true, nil
}

func (s *Store) fundMembers(ctx context.Context, fundID string) ([]string, error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT user_id FROM fund_members WHERE fund_id = ? ORDER BY user_id", fundID)
	if err != nil {
		return nil, fmt.Errorf("failed to get fund members: %w", err)
	}
	defer rows.Close()

	var members []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("failed to scan fund member: %w", err)
		}
		members = append(members, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate fund members: %w", err)
	}
	return members, nil
}
