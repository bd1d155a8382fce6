package news

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

const coindeskFeedURL = "https://www.coindesk.com/arc/outboundfeeds/news/?outputType=json&size=%d"

// Provider fetches articles from an external news source.
type Provider interface {
	Name() string
	FetchLatest(ctx context.Context, limit int) ([]models.NewsArticle, error)
}

// CoinDeskProvider reads the CoinDesk outbound news feed.
type CoinDeskProvider struct {
	client  *http.Client
	feedURL string
}

func NewCoinDeskProvider() *CoinDeskProvider {
	return &CoinDeskProvider{
		client:  &http.Client{Timeout: 10 * time.Second},
		feedURL: coindeskFeedURL,
	}
}

func (c *CoinDeskProvider) Name() string {
	return "coindesk"
}

func (c *CoinDeskProvider) FetchLatest(ctx context.Context, limit int) ([]models.NewsArticle, error) {
	url := fmt.Sprintf(c.feedURL, limit)

	req, err := http.NewRequestWithContext(ctx, "GET", url, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		return nil, fmt.Errorf("HTTP error %d: %s", resp.StatusCode, string(body))
	}

	var result []struct {
		ID        string `json:"_id"`
		Type      string `json:"type"`
		Canonical string `json:"canonical_url"`
		Headlines struct {
			Basic string `json:"basic"`
		} `json:"headlines"`
		Description struct {
			Basic string `json:"basic"`
		} `json:"description"`
		Credits struct {
			By []struct {
				Name string `json:"name"`
			} `json:"by"`
		} `json:"credits"`
		DisplayDate time.Time `json:"display_date"`
	}

	if err := json.NewDecoder(resp.Body).Decode(&result); err != nil {
		return nil, fmt.Errorf("failed to decode response: %w", err)
	}

	articles := make([]models.NewsArticle, 0, len(result))
	for _, item := range result {
		if item.Type != "story" {
			continue
		}

		author := "CoinDesk"
		if len(item.Credits.By) > 0 {
			author = item.Credits.By[0].Name
		}

		articles = append(articles, models.NewsArticle{
			ExternalID:  fmt.Sprintf("coindesk_%s", item.ID),
			Source:      "coindesk",
			Title:       item.Headlines.Basic,
			Description: item.Description.Basic,
			URL:         "https://www.coindesk.com" + item.Canonical,
			Author:      author,
			PublishedAt: item.DisplayDate,
		})
	}

	logger.Debug("fetched CoinDesk news", zap.Int("count", len(articles)))
	return articles, nil
}
