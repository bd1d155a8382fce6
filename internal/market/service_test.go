package market

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akravets/coinboard/pkg/models"
)

type fakeStore struct {
	assets    []models.Asset
	listCalls int
}

func (s *fakeStore) ListAssets(ctx context.Context) ([]models.Asset, error) {
	s.listCalls++
	return s.assets, nil
}

func (s *fakeStore) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	for i := range s.assets {
		if s.assets[i].ID == id {
			return &s.assets[i], nil
		}
	}
	return nil, sql.ErrNoRows
}

func (s *fakeStore) ListSummaries(ctx context.Context) ([]models.AssetSummary, error) {
	out := make([]models.AssetSummary, 0, len(s.assets))
	for _, a := range s.assets {
		out = append(out, models.AssetSummary{ID: a.ID, Symbol: a.Symbol, Name: a.Name})
	}
	return out, nil
}

type fakeRefresher struct {
	runs  int
	store *fakeStore
}

func (r *fakeRefresher) Run(ctx context.Context) error {
	r.runs++
	r.store.assets = []models.Asset{{ID: "bitcoin", MarketCapRank: 1}}
	return nil
}

func TestService_ServesFromCacheWithinTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSnapshotCacheWithClock(func() time.Time { return now })
	store := &fakeStore{}
	svc := NewService(store, cache, time.Hour, nil)

	cache.Set([]models.Asset{{ID: "bitcoin"}})

	assets, err := svc.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Zero(t, store.listCalls, "cache hit must not touch storage")
}

func TestService_FallsBackToStoragePastTTL(t *testing.T) {
	now := time.Date(2026, 1, 1, 12, 0, 0, 0, time.UTC)
	cache := NewSnapshotCacheWithClock(func() time.Time { return now })
	store := &fakeStore{assets: []models.Asset{{ID: "ethereum", MarketCapRank: 2}}}
	svc := NewService(store, cache, time.Hour, nil)

	cache.Set([]models.Asset{{ID: "bitcoin"}})
	now = now.Add(2 * time.Hour)

	assets, err := svc.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 1)
	assert.Equal(t, "ethereum", assets[0].ID, "stale cache must not be served")
	assert.Equal(t, 1, store.listCalls)
}

func TestService_EmptyStorageTriggersSynchronousRefresh(t *testing.T) {
	cache := NewSnapshotCache()
	store := &fakeStore{}
	refresher := &fakeRefresher{store: store}
	svc := NewService(store, cache, time.Hour, refresher)

	assets, err := svc.ListAssets(context.Background())
	require.NoError(t, err)
	assert.Equal(t, 1, refresher.runs)
	require.Len(t, assets, 1)
	assert.Equal(t, "bitcoin", assets[0].ID)
}

func TestService_SortsByRankWithUnrankedLast(t *testing.T) {
	cache := NewSnapshotCache()
	store := &fakeStore{assets: []models.Asset{
		{ID: "unranked", MarketCapRank: 0},
		{ID: "second", MarketCapRank: 2},
		{ID: "first", MarketCapRank: 1},
	}}
	svc := NewService(store, cache, time.Hour, nil)

	assets, err := svc.ListAssets(context.Background())
	require.NoError(t, err)
	require.Len(t, assets, 3)
	assert.Equal(t, "first", assets[0].ID)
	assert.Equal(t, "second", assets[1].ID)
	assert.Equal(t, "unranked", assets[2].ID)
}
