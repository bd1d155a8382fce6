package workers

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

const newsRetention = 7 * 24 * time.Hour

// NewsProvider fetches the latest articles from an outlet.
type NewsProvider interface {
	Name() string
	FetchLatest(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

// NewsStore caches articles and evicts stale ones.
type NewsStore interface {
	SaveArticles(ctx context.Context, articles []models.NewsArticle) (int, error)
	CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error)
}

// NewsWorker refreshes the news cache and evicts week-old articles once a day.
type NewsWorker struct {
	provider NewsProvider
	store    NewsStore
	limit    int

	mu          sync.Mutex
	lastCleanup time.Time
}

func NewNewsWorker(provider NewsProvider, store NewsStore, limit int) *NewsWorker {
	return &NewsWorker{provider: provider, store: store, limit: limit}
}

func (w *NewsWorker) Name() string {
	return "news-refresh"
}

func (w *NewsWorker) Run(ctx context.Context) error {
	articles, err := w.provider.FetchLatest(ctx, w.limit)
	if err != nil {
		return err
	}

	saved, err := w.store.SaveArticles(ctx, articles)
	if err != nil {
		return err
	}

	logger.Info("news cache refreshed",
		zap.String("provider", w.provider.Name()),
		zap.Int("fetched", len(articles)),
		zap.Int("saved", saved),
	)

	w.maybeCleanup(ctx)
	return nil
}

func (w *NewsWorker) maybeCleanup(ctx context.Context) {
	w.mu.Lock()
	due := time.Since(w.lastCleanup) >= 24*time.Hour
	if due {
		w.lastCleanup = time.Now()
	}
	w.mu.Unlock()
	if !due {
		return
	}

	removed, err := w.store.CleanupOld(ctx, newsRetention)
	if err != nil {
		logger.Warn("news cleanup failed", zap.Error(err))
		return
	}
	if removed > 0 {
		logger.Info("evicted old news articles", zap.Int64("removed", removed))
	}
}
