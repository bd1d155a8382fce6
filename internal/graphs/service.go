package graphs

import (
	"context"
	"fmt"
	"time"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/pkg/models"
)

// ChartFetcher is the provider slice the graph service needs.
type ChartFetcher interface {
	MarketChart(ctx context.Context, id string, days int) (*coingecko.MarketChart, error)
	OHLC(ctx context.Context, id string, days int) ([][]float64, error)
}

// AssetLookup resolves a tracked asset from the live snapshot.
type AssetLookup interface {
	GetAsset(ctx context.Context, id string) (*models.Asset, error)
}

// Service builds chart payloads for the dashboard's asset detail view and
// merges LLM chart directives with the live snapshot.
type Service struct {
	fetcher ChartFetcher
	assets  AssetLookup
}

func NewService(fetcher ChartFetcher, assets AssetLookup) *Service {
	return &Service{fetcher: fetcher, assets: assets}
}

// Details fetches price, market-cap and OHLC series for one asset over the
// trailing period.
func (s *Service) Details(ctx context.Context, id string, periodDays int) (*models.GraphDetails, error) {
	chart, err := s.fetcher.MarketChart(ctx, id, periodDays)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch market chart: %w", err)
	}

	details := &models.GraphDetails{
		PriceData:     toPricePoints(chart.Prices),
		MarketCapData: toPricePoints(chart.MarketCaps),
		OHLCData:      []models.Candle{},
	}

	// OHLC is a separate provider endpoint; its failure degrades the
	// payload to line charts only.
	rows, err := s.fetcher.OHLC(ctx, id, periodDays)
	if err == nil {
		details.OHLCData = toCandles(rows)
	}

	return details, nil
}

func toPricePoints(pairs [][]float64) []models.PricePoint {
	points := make([]models.PricePoint, 0, len(pairs))
	for _, pair := range pairs {
		if len(pair) < 2 {
			continue
		}
		points = append(points, models.PricePoint{
			Time:  time.UnixMilli(int64(pair[0])).UTC(),
			Value: pair[1],
		})
	}
	return points
}

func toCandles(rows [][]float64) []models.Candle {
	candles := make([]models.Candle, 0, len(rows))
	for _, row := range rows {
		if len(row) < 5 {
			continue
		}
		candles = append(candles, models.Candle{
			Timestamp: time.UnixMilli(int64(row[0])).UTC(),
			Open:      models.NewDecimal(row[1]),
			High:      models.NewDecimal(row[2]),
			Low:       models.NewDecimal(row[3]),
			Close:     models.NewDecimal(row[4]),
		})
	}
	return candles
}
