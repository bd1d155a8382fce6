package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
)

// ResetStore evicts expired password-reset tokens.
type ResetStore interface {
	CleanupExpiredResets(ctx context.Context, now time.Time) (int64, error)
}

// ResetCleanupWorker drops password-reset tokens past their expiry so the
// table does not grow with every abandoned forgot-password request.
type ResetCleanupWorker struct {
	store ResetStore
}

func NewResetCleanupWorker(store ResetStore) *ResetCleanupWorker {
	return &ResetCleanupWorker{store: store}
}

func (w *ResetCleanupWorker) Name() string {
	return "reset-cleanup"
}

func (w *ResetCleanupWorker) Run(ctx context.Context) error {
	removed, err := w.store.CleanupExpiredResets(ctx, time.Now())
	if err != nil {
		return err
	}
	if removed > 0 {
		logger.Info("evicted expired password resets", zap.Int64("removed", removed))
	}
	return nil
}
