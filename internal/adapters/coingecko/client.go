package coingecko

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/config"
	"github.com/akravets/coinboard/pkg/logger"
)

// ErrRateLimited is returned after the retry budget is exhausted on
// consecutive HTTP 429 responses.
var ErrRateLimited = errors.New("coingecko: rate limited")

// SleepFunc pauses between rate-limit retries. Injectable so tests can
// record requested delays instead of sleeping.
type SleepFunc func(ctx context.Context, d time.Duration) error

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

// Client talks to the CoinGecko REST API. Only rate-limit responses are
// retried; every other failure surfaces immediately.
type Client struct {
	baseURL      string
	apiKey       string
	maxRetries   int
	initialDelay time.Duration
	httpClient   *http.Client
	sleep        SleepFunc
}

// NewClient creates a new CoinGecko client.
func NewClient(cfg *config.CoinGeckoConfig) *Client {
	return &Client{
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		apiKey:       cfg.APIKey,
		maxRetries:   cfg.MaxRetries,
		initialDelay: cfg.InitialDelay,
		httpClient:   &http.Client{Timeout: cfg.Timeout},
		sleep:        defaultSleep,
	}
}

// TopMarkets fetches the top-N assets by market cap, with the 7-day
// sparkline and 1h/24h/7d change percentages attached.
func (c *Client) TopMarkets(ctx context.Context, limit int) ([]MarketRecord, error) {
	params := url.Values{
		"vs_currency":             {"usd"},
		"order":                   {"market_cap_desc"},
		"per_page":                {fmt.Sprint(limit)},
		"page":                    {"1"},
		"sparkline":               {"true"},
		"price_change_percentage": {"1h,24h,7d"},
	}

	var records []MarketRecord
	if err := c.get(ctx, "/coins/markets", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// MarketsByIDs fetches a market snapshot for an explicit id set in one
// batched request. Used to keep stale assets current after they fall out of
// the top-N ranking.
func (c *Client) MarketsByIDs(ctx context.Context, ids []string) ([]MarketRecord, error) {
	if len(ids) == 0 {
		return nil, nil
	}

	params := url.Values{
		"vs_currency":             {"usd"},
		"ids":                     {strings.Join(ids, ",")},
		"sparkline":               {"true"},
		"price_change_percentage": {"1h,24h,7d"},
	}

	var records []MarketRecord
	if err := c.get(ctx, "/coins/markets", params, &records); err != nil {
		return nil, err
	}
	return records, nil
}

// CoinDetail fetches the lazy descriptive detail for a single asset.
func (c *Client) CoinDetail(ctx context.Context, id string) (*CoinDetail, error) {
	params := url.Values{
		"localization":   {"false"},
		"tickers":        {"false"},
		"market_data":    {"false"},
		"community_data": {"false"},
		"developer_data": {"false"},
	}

	var detail CoinDetail
	if err := c.get(ctx, "/coins/"+url.PathEscape(id), params, &detail); err != nil {
		return nil, err
	}
	return &detail, nil
}

// MarketChart fetches price and market-cap series for the trailing period.
func (c *Client) MarketChart(ctx context.Context, id string, days int) (*MarketChart, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"days":        {fmt.Sprint(days)},
	}

	var chart MarketChart
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/market_chart", params, &chart); err != nil {
		return nil, err
	}
	return &chart, nil
}

// OHLC fetches candles for the trailing period. Each row is
// [timestamp_ms, open, high, low, close].
func (c *Client) OHLC(ctx context.Context, id string, days int) ([][]float64, error) {
	params := url.Values{
		"vs_currency": {"usd"},
		"days":        {fmt.Sprint(days)},
	}

	var rows [][]float64
	if err := c.get(ctx, "/coins/"+url.PathEscape(id)+"/ohlc", params, &rows); err != nil {
		return nil, err
	}
	return rows, nil
}

// get issues one GET with bounded retry on HTTP 429. The backoff doubles
// per attempt starting from the configured initial delay.
func (c *Client) get(ctx context.Context, path string, params url.Values, out interface{}) error {
	reqURL := c.baseURL + path
	if len(params) > 0 {
		reqURL += "?" + params.Encode()
	}

	delay := c.initialDelay

	for attempt := 0; ; attempt++ {
		body, status, err := c.doOnce(ctx, reqURL)
		if err != nil {
			return err
		}

		if status == http.StatusTooManyRequests {
			if attempt >= c.maxRetries {
				logger.Warn("rate limit retries exhausted",
					zap.String("path", path),
					zap.Int("attempts", attempt+1),
				)
				return ErrRateLimited
			}

			logger.Debug("rate limited, backing off",
				zap.String("path", path),
				zap.Duration("delay", delay),
				zap.Int("attempt", attempt+1),
			)

			if err := c.sleep(ctx, delay); err != nil {
				return err
			}
			delay *= 2
			continue
		}

		if status != http.StatusOK {
			return fmt.Errorf("coingecko: %s returned status %d: %s", path, status, truncate(body, 200))
		}

		if err := json.Unmarshal(body, out); err != nil {
			return fmt.Errorf("coingecko: failed to decode %s response: %w", path, err)
		}
		return nil
	}
}

func (c *Client) doOnce(ctx context.Context, reqURL string) ([]byte, int, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, reqURL, http.NoBody)
	if err != nil {
		return nil, 0, fmt.Errorf("coingecko: failed to create request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if c.apiKey != "" {
		req.Header.Set("x-cg-demo-api-key", c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, 0, fmt.Errorf("coingecko: request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, 0, fmt.Errorf("coingecko: failed to read response: %w", err)
	}

	return body, resp.StatusCode, nil
}

func truncate(b []byte, n int) string {
	if len(b) <= n {
		return string(b)
	}
	return string(b[:n]) + "..."
}
