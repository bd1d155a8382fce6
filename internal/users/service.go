package users

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"crypto/subtle"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

var (
	// ErrEmailTaken is returned when registering an email that already
	// has an account.
	ErrEmailTaken = errors.New("email already registered")
	// ErrInvalidCredentials is returned on a bad email/password pair.
	// Unknown email and wrong password are indistinguishable on purpose.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidResetToken is returned for unknown, expired or already
	// used reset tokens.
	ErrInvalidResetToken = errors.New("invalid or expired reset token")
)

// Store is the persistence slice the user service depends on.
type Store interface {
	CreateUser(ctx context.Context, email, name, passwordHash string) (*models.User, error)
	GetByEmail(ctx context.Context, email string) (*models.User, error)
	GetByID(ctx context.Context, id string) (*models.User, error)
	SavePasswordReset(ctx context.Context, reset *models.PasswordReset) error
	GetPasswordReset(ctx context.Context, userID string) (*models.PasswordReset, error)
	UpdatePassword(ctx context.Context, userID, passwordHash string) error
}

// Service implements account registration, login and password reset.
type Service struct {
	store    Store
	hasher   PasswordHasher
	tokens   TokenIssuer
	mailer   Mailer
	resetTTL time.Duration
	now      func() time.Time
}

func NewService(store Store, hasher PasswordHasher, tokens TokenIssuer, mailer Mailer, resetTTL time.Duration) *Service {
	return &Service{
		store:    store,
		hasher:   hasher,
		tokens:   tokens,
		mailer:   mailer,
		resetTTL: resetTTL,
		now:      time.Now,
	}
}

// Register creates an account and returns it with a fresh session token.
func (s *Service) Register(ctx context.Context, email, name, password string) (*models.User, string, error) {
	email = normalizeEmail(email)
	if email == "" || password == "" {
		return nil, "", ErrInvalidCredentials
	}

	hash, err := s.hasher.Hash(password)
	if err != nil {
		return nil, "", err
	}

	user, err := s.store.CreateUser(ctx, email, name, hash)
	if err != nil {
		return nil, "", err
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Login checks the credentials and returns the account with a session token.
func (s *Service) Login(ctx context.Context, email, password string) (*models.User, string, error) {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return nil, "", err
	}
	if user == nil || !s.hasher.Compare(user.PasswordHash, password) {
		return nil, "", ErrInvalidCredentials
	}

	token, err := s.tokens.Issue(user.ID, s.now())
	if err != nil {
		return nil, "", err
	}
	return user, token, nil
}

// Authenticate resolves a session token to its account.
func (s *Service) Authenticate(ctx context.Context, token string) (*models.User, error) {
	userID, err := s.tokens.Verify(token, s.now())
	if err != nil {
		return nil, ErrInvalidCredentials
	}
	user, err := s.store.GetByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, ErrInvalidCredentials
	}
	return user, nil
}

// ForgotPassword issues a reset token and mails it. An unknown email is
// reported as success so the endpoint cannot be used to probe accounts.
func (s *Service) ForgotPassword(ctx context.Context, email string) error {
	user, err := s.store.GetByEmail(ctx, normalizeEmail(email))
	if err != nil {
		return err
	}
	if user == nil {
		logger.Debug("password reset for unknown email", zap.String("email", email))
		return nil
	}

	secret, err := randomToken()
	if err != nil {
		return err
	}

	if err := s.store.SavePasswordReset(ctx, &models.PasswordReset{
		UserID:    user.ID,
		TokenHash: hashToken(secret),
		ExpiresAt: s.now().Add(s.resetTTL),
	}); err != nil {
		return err
	}

	// The raw secret only ever travels in the mail; storage sees the hash.
	return s.mailer.SendPasswordReset(ctx, user.Email, user.ID+"."+secret)
}

// ResetPassword consumes a reset token and sets the new password.
func (s *Service) ResetPassword(ctx context.Context, token, newPassword string) error {
	if newPassword == "" {
		return ErrInvalidResetToken
	}

	userID, secret, ok := strings.Cut(token, ".")
	if !ok {
		return ErrInvalidResetToken
	}

	reset, err := s.store.GetPasswordReset(ctx, userID)
	if err != nil {
		return err
	}
	if reset == nil || s.now().After(reset.ExpiresAt) {
		return ErrInvalidResetToken
	}
	if subtle.ConstantTimeCompare([]byte(reset.TokenHash), []byte(hashToken(secret))) != 1 {
		return ErrInvalidResetToken
	}

	hash, err := s.hasher.Hash(newPassword)
	if err != nil {
		return err
	}
	return s.store.UpdatePassword(ctx, userID, hash)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func randomToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

func hashToken(secret string) string {
	sum := sha256.Sum256([]byte(secret))
	return hex.EncodeToString(sum[:])
}
