package indicators

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"go.uber.org/zap"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// chartDays is how much daily history the calculator works from.
const chartDays = 90

// ChartFetcher is the provider slice the indicator service needs.
type ChartFetcher interface {
	MarketChart(ctx context.Context, id string, days int) (*coingecko.MarketChart, error)
}

// Service computes and stores RSI/SMA series for tracked assets. Refreshes
// are capped at once per calendar day per asset: the provider quota is the
// scarce resource here, not CPU.
type Service struct {
	fetcher ChartFetcher
	repo    *Repository
	calc    *Calculator
}

func NewService(fetcher ChartFetcher, repo *Repository) *Service {
	return &Service{fetcher: fetcher, repo: repo, calc: NewCalculator()}
}

// NeedsRefresh reports whether the asset's series are stale for today.
func NeedsRefresh(lastRefreshed time.Time, now time.Time) bool {
	if lastRefreshed.IsZero() {
		return true
	}
	ly, lm, ld := lastRefreshed.UTC().Date()
	ny, nm, nd := now.UTC().Date()
	return ly != ny || lm != nm || ld != nd
}

// LastRefreshed reports when each asset's series were last rebuilt.
func (s *Service) LastRefreshed(ctx context.Context) (map[string]sql.NullTime, error) {
	return s.repo.LastRefreshed(ctx)
}

// RefreshAsset fetches daily history and recomputes both indicator kinds.
func (s *Service) RefreshAsset(ctx context.Context, cryptoID, symbol string) error {
	chart, err := s.fetcher.MarketChart(ctx, cryptoID, chartDays)
	if err != nil {
		return fmt.Errorf("failed to fetch market chart for %s: %w", cryptoID, err)
	}

	samples := dailySamples(chart)
	if len(samples) == 0 {
		return fmt.Errorf("no price samples for %s", cryptoID)
	}

	now := time.Now().UTC()

	rsi, err := s.calc.RSISeries(samples)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, &models.Indicator{
		CryptoID:    cryptoID,
		Symbol:      symbol,
		Kind:        models.IndicatorRSI,
		Interval:    "daily",
		TimePeriod:  RSIPeriod,
		SeriesType:  "close",
		Data:        rsi,
		RefreshedAt: now,
	}); err != nil {
		return err
	}

	sma, err := s.calc.SMASeries(samples)
	if err != nil {
		return err
	}
	if err := s.repo.Upsert(ctx, &models.Indicator{
		CryptoID:    cryptoID,
		Symbol:      symbol,
		Kind:        models.IndicatorSMA,
		Interval:    "daily",
		TimePeriod:  SMAPeriod,
		SeriesType:  "close",
		Data:        sma,
		RefreshedAt: now,
	}); err != nil {
		return err
	}

	logger.Debug("indicators refreshed",
		zap.String("id", cryptoID),
		zap.Int("rsi_points", len(rsi)),
		zap.Int("sma_points", len(sma)),
	)
	return nil
}

// Graph returns the stored series as {x, y} points for the frontend.
func (s *Service) Graph(ctx context.Context, cryptoID string, kind models.IndicatorKind) (string, []models.GraphPoint, error) {
	ind, err := s.repo.Get(ctx, cryptoID, kind)
	if err != nil {
		return "", nil, err
	}

	points := make([]models.GraphPoint, 0, len(ind.Data))
	for _, p := range ind.Data {
		points = append(points, models.GraphPoint{X: p.Date, Y: p.Value})
	}
	return ind.Symbol, points, nil
}

// dailySamples reduces the chart to one closing price per calendar day.
func dailySamples(chart *coingecko.MarketChart) []Sample {
	samples := make([]Sample, 0, len(chart.Prices))
	var lastDay string

	for _, pair := range chart.Prices {
		if len(pair) < 2 {
			continue
		}
		ts := time.UnixMilli(int64(pair[0])).UTC()
		day := ts.Format("2006-01-02")
		if day == lastDay && len(samples) > 0 {
			samples[len(samples)-1] = Sample{Date: ts, Close: pair[1]}
			continue
		}
		samples = append(samples, Sample{Date: ts, Close: pair[1]})
		lastDay = day
	}
	return samples
}
