package models

import "time"

// User is one registered dashboard account. PasswordHash is whatever the
// injected hasher produced; the backend never sees plaintext after signup.
type User struct {
	ID           string    `json:"id" db:"id"`
	Email        string    `json:"email" db:"email"`
	Name         string    `json:"name" db:"name"`
	PasswordHash string    `json:"-" db:"password_hash"`
	CreatedAt    time.Time `json:"createdAt" db:"created_at"`
}

// PasswordReset is a pending password-reset token for a user.
type PasswordReset struct {
	UserID    string    `db:"user_id"`
	TokenHash string    `db:"token_hash"`
	ExpiresAt time.Time `db:"expires_at"`
}
