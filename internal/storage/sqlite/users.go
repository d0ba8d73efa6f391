package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/fundwise/fundwise/internal/auth"
	"github.com/fundwise/fundwise/internal/models"
)

const userColumns = "id, display_name, email, photo_url, bank_account, password_hash"

func scanUser(row interface{ Scan(...any) error }) (*models.User, error) {
	user := &models.User{}
	err := row.Scan(
		&user.ID,
		&user.DisplayName,
		&user.Email,
		&user.PhotoURL,
		&user.BankAccount,
		&user.PasswordHash,
	)
	if err != nil {
		return nil, err
	}
	return user, nil
}

// CreateUser inserts a new user.
func (s *Store) CreateUser(ctx context.Context, user *models.User) error {
	_, err := s.db.ExecContext(ctx,
		`INSERT INTO users (id, display_name, email, photo_url, bank_account, password_hash, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?)`,
		user.ID, user.DisplayName, user.Email, user.PhotoURL, user.BankAccount,
		user.PasswordHash, time.Now().Unix(),
	)
	if err != nil {
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by ID. Returns nil, nil when not found.
func (s *Store) GetUserByID(ctx context.Context, id string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id = ?", id)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by ID: %w", err)
	}
	return user, nil
}

// FindUserByEmail retrieves a user by email. Returns nil, nil when not
// found.
func (s *Store) FindUserByEmail(ctx context.Context, email string) (*models.User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE email = ?", email)
	user, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return user, nil
}

// GetUserByEmail satisfies auth.UserStore.
func (s *Store) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	return s.FindUserByEmail(ctx, email)
}

// GetUsersByIDs retrieves multiple users in one query, keyed by ID.
// IDs that don't exist are omitted from the result.
func (s *Store) GetUsersByIDs(ctx context.Context, ids []string) (map[string]*models.User, error) {
	users := make(map[string]*models.User)
	if len(ids) == 0 {
		return users, nil
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(ids)), ", ")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE id IN ("+placeholders+")", args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get users by IDs: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		user, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan user: %w", err)
		}
		users[user.ID] = user
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating users: %w", err)
	}
	return users, nil
}

// SyncUser upserts the stored profile for an authenticated identity and
// returns the full profile. Credential and settlement fields are
// preserved across syncs.
func (s *Store) SyncUser(ctx context.Context, ident auth.Identity) (*models.User, error) {
	if ident.UID == "" {
		return nil, fmt.Errorf("identity has no uid")
	}

	existing, err := s.GetUserByID(ctx, ident.UID)
	if err != nil {
		return nil, err
	}

	if existing == nil {
		user := &models.User{
			ID:          ident.UID,
			DisplayName: ident.DisplayName,
			Email:       ident.Email,
			PhotoURL:    ident.PhotoURL,
		}
		if err := s.CreateUser(ctx, user); err != nil {
			return nil, err
		}
		return user, nil
	}

	// Refresh the mutable identity fields, keep everything else.
	if ident.DisplayName != "" {
		existing.DisplayName = ident.DisplayName
	}
	if ident.Email != "" {
		existing.Email = ident.Email
	}
	if ident.PhotoURL != "" {
		existing.PhotoURL = ident.PhotoURL
	}
	_, err = s.db.ExecContext(ctx,
		"UPDATE users SET display_name = ?, email = ?, photo_url = ? WHERE id = ?",
		existing.DisplayName, existing.Email, existing.PhotoURL, existing.ID,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to sync user: %w", err)
	}
	return existing, nil
}
