package market

import (
	"context"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// Fetcher is the slice of the provider client the reconciler needs.
type Fetcher interface {
	MarketsByIDs(ctx context.Context, ids []string) ([]coingecko.MarketRecord, error)
	CoinDetail(ctx context.Context, id string) (*coingecko.CoinDetail, error)
}

// DetailResult records the outcome of one lazy detail fetch. Failed assets
// are dropped from the merged snapshot; the caller decides whether partial
// success is acceptable (it is — the next cycle retries them).
type DetailResult struct {
	ID  string
	Err error
}

// Reconciler diffs the fresh top-N universe against the stored asset list
// and produces one merged snapshot.
type Reconciler struct {
	fetcher     Fetcher
	detailDelay time.Duration
	sleep       coingecko.SleepFunc
}

// NewReconciler creates a reconciler. detailDelay is the mandatory pause
// between consecutive detail fetches — a deliberate throughput cap for the
// provider's rate limit, so new-asset detail fetches run serialized, never
// in parallel.
func NewReconciler(fetcher Fetcher, detailDelay time.Duration) *Reconciler {
	return &Reconciler{
		fetcher:     fetcher,
		detailDelay: detailDelay,
		sleep:       defaultSleep,
	}
}

func defaultSleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}

// Reconcile partitions assets into new (absent from storage: detail-fetch,
// enrich, include) and stale (fell out of the top-N: batch market refresh),
// then merges both sides deduplicated by id with freshly enriched data
// winning. Known assets skip the detail fetch, so their one-time
// descriptive fields are carried over from the stored copy instead of
// being blanked. Per-asset detail failures drop that asset and are reported in
// the returned results; a failed stale batch degrades the merge to top-N
// only. A non-nil error is returned only when the context dies, in which
// case the caller must skip the write phase for this cycle.
func (r *Reconciler) Reconcile(ctx context.Context, latestTopN []coingecko.MarketRecord, existing []models.Asset) ([]models.Asset, []DetailResult, error) {
	existingByID := make(map[string]models.Asset, len(existing))
	for _, a := range existing {
		existingByID[a.ID] = a
	}

	topNByID := make(map[string]struct{}, len(latestTopN))
	for _, rec := range latestTopN {
		topNByID[rec.ID] = struct{}{}
	}

	merged := make([]models.Asset, 0, len(latestTopN)+len(existing))
	seen := make(map[string]struct{}, len(latestTopN)+len(existing))
	results := make([]DetailResult, 0)

	// Top-N side: known assets get a plain market refresh, new ones get the
	// one-time detail fetch, serialized with the mandatory delay.
	first := true
	for _, rec := range latestTopN {
		if _, dup := seen[rec.ID]; dup {
			continue
		}

		if stored, known := existingByID[rec.ID]; known {
			merged = append(merged, carryStoredDetail(Enrich(rec, nil), stored))
			seen[rec.ID] = struct{}{}
			continue
		}

		if !first {
			if err := r.sleep(ctx, r.detailDelay); err != nil {
				return nil, nil, err
			}
		}
		first = false

		detail, err := r.fetcher.CoinDetail(ctx, rec.ID)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			// Best-effort: the asset sits out this cycle.
			logger.Warn("detail fetch failed, dropping asset for this cycle",
				zap.String("id", rec.ID),
				zap.Error(err),
			)
			results = append(results, DetailResult{ID: rec.ID, Err: err})
			continue
		}

		merged = append(merged, Enrich(rec, detail))
		seen[rec.ID] = struct{}{}
		results = append(results, DetailResult{ID: rec.ID})
	}

	// Stale side: one batched refresh for everything that fell out of the
	// ranking. On failure the merge degrades to top-N only.
	staleIDs := make([]string, 0)
	for _, a := range existing {
		if _, still := topNByID[a.ID]; !still {
			staleIDs = append(staleIDs, a.ID)
		}
	}

	if len(staleIDs) > 0 {
		staleRecords, err := r.fetcher.MarketsByIDs(ctx, staleIDs)
		if err != nil {
			if ctx.Err() != nil {
				return nil, nil, ctx.Err()
			}
			logger.Warn("stale asset refresh failed, continuing with top-N only",
				zap.Int("stale", len(staleIDs)),
				zap.Error(err),
			)
		} else {
			for _, rec := range staleRecords {
				if _, dup := seen[rec.ID]; dup {
					continue
				}
				asset := Enrich(rec, nil)
				if stored, ok := existingByID[rec.ID]; ok {
					asset = carryStoredDetail(asset, stored)
				}
				merged = append(merged, asset)
				seen[rec.ID] = struct{}{}
			}
		}
	}

	return merged, results, nil
}
