package workers

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/indicators"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// AssetLister enumerates the tracked assets whose indicators are maintained.
type AssetLister interface {
	ListSummaries(ctx context.Context) ([]models.AssetSummary, error)
}

// IndicatorWorker recomputes RSI and SMA series once per calendar day per
// asset. The inter-asset delay keeps the chart endpoint under the
// upstream rate limit.
type IndicatorWorker struct {
	assets  AssetLister
	service *indicators.Service
	delay   time.Duration
	sleep   func(ctx context.Context, d time.Duration) error
}

func NewIndicatorWorker(assets AssetLister, service *indicators.Service, delay time.Duration) *IndicatorWorker {
	return &IndicatorWorker{
		assets:  assets,
		service: service,
		delay:   delay,
		sleep: func(ctx context.Context, d time.Duration) error {
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(d):
				return nil
			}
		},
	}
}

func (w *IndicatorWorker) Name() string {
	return "indicator-refresh"
}

func (w *IndicatorWorker) Run(ctx context.Context) error {
	summaries, err := w.assets.ListSummaries(ctx)
	if err != nil {
		return err
	}

	lastByAsset, err := w.service.LastRefreshed(ctx)
	if err != nil {
		return err
	}

	now := time.Now()
	refreshed, failed := 0, 0
	for i, summary := range summaries {
		last := lastByAsset[summary.ID]
		if last.Valid && !indicators.NeedsRefresh(last.Time, now) {
			continue
		}

		if i > 0 && w.delay > 0 {
			if err := w.sleep(ctx, w.delay); err != nil {
				return err
			}
		}

		if err := w.service.RefreshAsset(ctx, summary.ID, summary.Symbol); err != nil {
			// A single asset's failure never blocks the rest.
			logger.Warn("indicator refresh failed",
				zap.String("crypto_id", summary.ID),
				zap.Error(err),
			)
			failed++
			continue
		}
		refreshed++
	}

	logger.Info("indicator refresh cycle finished",
		zap.Int("refreshed", refreshed),
		zap.Int("failed", failed),
		zap.Int("assets", len(summaries)),
	)
	return nil
}
