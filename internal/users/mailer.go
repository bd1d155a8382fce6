package users

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
)

// Mailer delivers password-reset messages. The production deployment sits
// behind a transactional mail provider; local and test environments use
// LogMailer.
type Mailer interface {
	SendPasswordReset(ctx context.Context, email, token string) error
}

// LogMailer writes the reset link to the log instead of sending mail.
type LogMailer struct {
	From string
}

func (m LogMailer) SendPasswordReset(_ context.Context, email, token string) error {
	logger.Info("password reset requested",
		zap.String("from", m.From),
		zap.String("to", email),
		zap.String("reset_link", fmt.Sprintf("/reset-password?token=%s", token)),
	)
	return nil
}
