package market

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// AssetStore is the storage slice the read service depends on.
type AssetStore interface {
	ListAssets(ctx context.Context) ([]models.Asset, error)
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
	ListSummaries(ctx context.Context) ([]models.AssetSummary, error)
}

// Refresher triggers one synchronous reconciliation cycle. Used when a read
// arrives before the first scheduled cycle has populated storage.
type Refresher interface {
	Run(ctx context.Context) error
}

// Service is the read path in front of the snapshot cache and storage.
type Service struct {
	store     AssetStore
	cache     *SnapshotCache
	ttl       time.Duration
	refresher Refresher
}

// NewService creates the market read service. refresher may be nil; then an
// empty storage simply yields an empty list.
func NewService(store AssetStore, cache *SnapshotCache, ttl time.Duration, refresher Refresher) *Service {
	return &Service{store: store, cache: cache, ttl: ttl, refresher: refresher}
}

// SetRefresher wires the sync worker in after construction. The worker and
// the service reference each other, so one side is attached late.
func (s *Service) SetRefresher(r Refresher) {
	s.refresher = r
}

// ListAssets serves the full asset snapshot: cache within TTL, then
// storage, then a synchronous refresh when storage is still empty.
func (s *Service) ListAssets(ctx context.Context) ([]models.Asset, error) {
	if snapshot, age, ok := s.cache.Get(); ok && age <= s.ttl {
		logger.Debug("serving assets from cache", zap.Duration("age", age))
		return snapshot, nil
	}

	assets, err := s.store.ListAssets(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to read assets from storage: %w", err)
	}

	if len(assets) == 0 && s.refresher != nil {
		logger.Info("asset storage empty, running synchronous refresh")
		if err := s.refresher.Run(ctx); err != nil {
			return nil, fmt.Errorf("synchronous refresh failed: %w", err)
		}
		if assets, err = s.store.ListAssets(ctx); err != nil {
			return nil, fmt.Errorf("failed to read assets after refresh: %w", err)
		}
	}

	SortByRank(assets)
	s.cache.Set(assets)
	return assets, nil
}

// GetAsset returns one asset, preferring the cached snapshot.
func (s *Service) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	if snapshot, age, ok := s.cache.Get(); ok && age <= s.ttl {
		for i := range snapshot {
			if snapshot[i].ID == id {
				return &snapshot[i], nil
			}
		}
	}
	return s.store.GetAsset(ctx, id)
}

// AvailableAssets returns the id/symbol/name universe for the LLM prompt.
func (s *Service) AvailableAssets(ctx context.Context) ([]models.AssetSummary, error) {
	if snapshot, age, ok := s.cache.Get(); ok && age <= s.ttl {
		summaries := make([]models.AssetSummary, 0, len(snapshot))
		for _, a := range snapshot {
			summaries = append(summaries, models.AssetSummary{ID: a.ID, Symbol: a.Symbol, Name: a.Name})
		}
		return summaries, nil
	}
	return s.store.ListSummaries(ctx)
}

// SortByRank orders a snapshot by market cap rank, unranked assets last.
func SortByRank(assets []models.Asset) {
	sort.SliceStable(assets, func(i, j int) bool {
		ri, rj := assets[i].MarketCapRank, assets[j].MarketCapRank
		if ri == 0 {
			return false
		}
		if rj == 0 {
			return true
		}
		return ri < rj
	})
}
