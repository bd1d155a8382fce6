package users

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"

	"github.com/akravets/coinboard/pkg/models"
)

// Repository handles account persistence.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// CreateUser inserts a new account. ErrEmailTaken is returned when the
// email already has one.
func (r *Repository) CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error) {
	var user models.User
	err := r.db.QueryRowxContext(ctx, `
		INSERT INTO users (email, name, password_hash)
		VALUES ($1, $2, $3)
		RETURNING id, email, name, password_hash, created_at
	`, email, name, passwordHash).StructScan(&user)
	if err != nil {
		if pqErr, ok := err.(*pq.Error); ok && pqErr.Code.Name() == "unique_violation" {
			return nil, ErrEmailTaken
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return &user, nil
}

// GetByEmail finds an account by email. Returns (nil, nil) when absent.
func (r *Repository) GetByEmail(ctx context.Context, email string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE email = $1
	`, email)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user by email: %w", err)
	}
	return &user, nil
}

// GetByID finds an account by id. Returns (nil, nil) when absent.
func (r *Repository) GetByID(ctx context.Context, id string) (*models.User, error) {
	var user models.User
	err := r.db.GetContext(ctx, &user, `
		SELECT id, email, name, password_hash, created_at
		FROM users
		WHERE id = $1
	`, id)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get user: %w", err)
	}
	return &user, nil
}

// SavePasswordReset stores a pending reset token for the user, replacing
// any earlier one.
func (r *Repository) SavePasswordReset(ctx context.Context, reset *models.PasswordReset) error {
	_, err := r.db.ExecContext(ctx, `
		INSERT INTO password_resets (user_id, token_hash, expires_at)
		VALUES ($1, $2, $3)
		ON CONFLICT (user_id) DO UPDATE SET
			token_hash = EXCLUDED.token_hash,
			expires_at = EXCLUDED.expires_at
	`, reset.UserID, reset.TokenHash, reset.ExpiresAt)
	if err != nil {
		return fmt.Errorf("failed to save password reset: %w", err)
	}
	return nil
}

// GetPasswordReset reads the pending reset for a user. Returns (nil, nil)
// when there is none.
func (r *Repository) GetPasswordReset(ctx context.Context, userID string) (*models.PasswordReset, error) {
	var reset models.PasswordReset
	err := r.db.GetContext(ctx, &reset, `
		SELECT user_id, token_hash, expires_at
		FROM password_resets
		WHERE user_id = $1
	`, userID)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get password reset: %w", err)
	}
	return &reset, nil
}

// UpdatePassword writes the new hash and burns the reset token in one
// transaction.
func (r *Repository) UpdatePassword(ctx context.Context, userID, passwordHash string) error {
	tx, err := r.db.BeginTxx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin tx: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `UPDATE users SET password_hash = $1 WHERE id = $2`, passwordHash, userID); err != nil {
		return fmt.Errorf("failed to update password: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM password_resets WHERE user_id = $1`, userID); err != nil {
		return fmt.Errorf("failed to burn reset token: %w", err)
	}
	return tx.Commit()
}

// CleanupExpiredResets drops reset tokens past their expiry.
func (r *Repository) CleanupExpiredResets(ctx context.Context, now time.Time) (int64, error) {
	res, err := r.db.ExecContext(ctx, `DELETE FROM password_resets WHERE expires_at < $1`, now)
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup password resets: %w", err)
	}
	return res.RowsAffected()
}
