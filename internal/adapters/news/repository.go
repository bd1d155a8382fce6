package news

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// Repository caches news articles in Postgres.
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// SaveArticles upserts articles one by one. A bad article is logged and
// skipped so the rest of the batch still lands.
func (r *Repository) SaveArticles(ctx context.Context, articles []models.NewsArticle) (int, error) {
	if len(articles) == 0 {
		return 0, nil
	}

	saved := 0
	for _, article := range articles {
		_, err := r.db.ExecContext(ctx, `
			INSERT INTO news_articles (external_id, source, title, description, url, author, published_at)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
			ON CONFLICT (external_id) DO UPDATE SET
				title = EXCLUDED.title,
				description = EXCLUDED.description,
				url = EXCLUDED.url
		`, article.ExternalID, article.Source, article.Title, article.Description,
			article.URL, article.Author, article.PublishedAt)
		if err != nil {
			logger.Warn("failed to save news article",
				zap.String("external_id", article.ExternalID),
				zap.Error(err),
			)
			continue
		}
		saved++
	}
	return saved, nil
}

// ListRecent returns the newest articles, newest first.
func (r *Repository) ListRecent(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	articles := make([]models.NewsArticle, 0, limit)
	err := r.db.SelectContext(ctx, &articles, `
		SELECT external_id, source, title, description, url, author, published_at, created_at
		FROM news_articles
		ORDER BY published_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("failed to list news: %w", err)
	}
	return articles, nil
}

// CleanupOld drops articles published before the cutoff.
func (r *Repository) CleanupOld(ctx context.Context, olderThan time.Duration) (int64, error) {
	res, err := r.db.ExecContext(ctx, `
		DELETE FROM news_articles WHERE published_at < $1
	`, time.Now().Add(-olderThan))
	if err != nil {
		return 0, fmt.Errorf("failed to cleanup news: %w", err)
	}
	return res.RowsAffected()
}
