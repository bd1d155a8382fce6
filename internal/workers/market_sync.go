package workers

import (
	"context"
	"sync/atomic"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/internal/market"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// MarketSource provides the latest top-N market snapshot.
type MarketSource interface {
	TopMarkets(ctx context.Context, limit int) ([]coingecko.MarketRecord, error)
}

// AssetStore is the storage slice the sync worker depends on.
type AssetStore interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	UpsertAssets(ctx context.Context, assets []models.Asset) market.UpsertSummary
}

// Broadcaster pushes a fresh snapshot to live subscribers.
type Broadcaster interface {
	BroadcastPrices(assets []models.Asset)
}

// Alerter delivers operator alerts about degraded or failed cycles.
type Alerter interface {
	AlertSyncFailure(jobName string, err error)
	AlertPartialSync(jobName string, failed int)
}

// MarketSyncWorker runs the full reconcile-persist-cache cycle. An
// in-flight token makes an overlapping tick skip instead of stacking a
// second cycle behind a slow one.
type MarketSyncWorker struct {
	source      MarketSource
	store       AssetStore
	reconciler  *market.Reconciler
	cache       *market.SnapshotCache
	broadcaster Broadcaster
	alerter     Alerter
	topN        int
	interval    time.Duration

	inFlight atomic.Bool
}

func NewMarketSyncWorker(
	source MarketSource,
	store AssetStore,
	reconciler *market.Reconciler,
	cache *market.SnapshotCache,
	broadcaster Broadcaster,
	alerter Alerter,
	topN int,
	interval time.Duration,
) *MarketSyncWorker {
	return &MarketSyncWorker{
		source:      source,
		store:       store,
		reconciler:  reconciler,
		cache:       cache,
		broadcaster: broadcaster,
		alerter:     alerter,
		topN:        topN,
		interval:    interval,
	}
}

func (w *MarketSyncWorker) Name() string {
	return "market-sync"
}

// Run executes one sync cycle. Returns nil without doing anything when a
// previous cycle is still in flight.
func (w *MarketSyncWorker) Run(ctx context.Context) error {
	if !w.inFlight.CompareAndSwap(false, true) {
		logger.Warn("market sync still in flight, skipping tick")
		return nil
	}
	defer w.inFlight.Store(false)

	started := time.Now()

	top, err := w.source.TopMarkets(ctx, w.topN)
	if err != nil {
		w.alert(err)
		return err
	}

	existing, err := w.store.ListAssets(ctx)
	if err != nil {
		w.alert(err)
		return err
	}

	merged, detailResults, err := w.reconciler.Reconcile(ctx, top, existing)
	if err != nil {
		w.alert(err)
		return err
	}

	// Stamp the refresh cadence so consumers can tell how old a row may be.
	for i := range merged {
		merged[i].FetchInterval = w.interval
	}

	summary := w.store.UpsertAssets(ctx, merged)

	market.SortByRank(merged)
	w.cache.Set(merged)

	if w.broadcaster != nil {
		w.broadcaster.BroadcastPrices(merged)
	}

	failed := len(summary.Failed)
	for _, res := range detailResults {
		if res.Err != nil {
			failed++
		}
	}
	if failed > 0 && w.alerter != nil {
		w.alerter.AlertPartialSync(w.Name(), failed)
	}

	logger.Info("market sync cycle finished",
		zap.Int("assets", len(merged)),
		zap.Int("saved", summary.Saved),
		zap.Int("failed", failed),
		zap.Duration("took", time.Since(started)),
	)
	return nil
}

func (w *MarketSyncWorker) alert(err error) {
	if w.alerter != nil {
		w.alerter.AlertSyncFailure(w.Name(), err)
	}
}
