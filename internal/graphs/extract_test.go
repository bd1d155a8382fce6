package graphs

import (
	"context"
	"database/sql"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/pkg/models"
)

type fakeCharts struct {
	chart *coingecko.MarketChart
	err   error
}

func (f *fakeCharts) MarketChart(ctx context.Context, id string, days int) (*coingecko.MarketChart, error) {
	return f.chart, f.err
}

func (f *fakeCharts) OHLC(ctx context.Context, id string, days int) ([][]float64, error) {
	return nil, fmt.Errorf("not implemented")
}

type fakeAssets struct {
	assets map[string]*models.Asset
}

func (f *fakeAssets) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	if a, ok := f.assets[id]; ok {
		return a, nil
	}
	return nil, sql.ErrNoRows
}

const replyWithGraph = "Bitcoin had a strong week.\n\n```graph-data\nbitcoin_price_7d\n```\n\nLet me know if you want more detail."

func TestExtractDirectives(t *testing.T) {
	directives := ExtractDirectives(replyWithGraph)
	assert.Equal(t, []string{"bitcoin_price_7d"}, directives)
}

func TestExtractDirectives_SkipsMalformedAndDedupes(t *testing.T) {
	content := "```graph-data\nbitcoin_price_7d\nnot a directive\nbitcoin_price_7d\nethereum_market_cap_30d\n```"

	directives := ExtractDirectives(content)
	assert.Equal(t, []string{"bitcoin_price_7d", "ethereum_market_cap_30d"}, directives)
}

func TestExtractDirectives_NoBlock(t *testing.T) {
	assert.Empty(t, ExtractDirectives("just a plain answer about bitcoin_price_7d"))
}

func TestStripDirectives(t *testing.T) {
	stripped := StripDirectives(replyWithGraph)
	assert.NotContains(t, stripped, "graph-data")
	assert.Contains(t, stripped, "Bitcoin had a strong week.")
	assert.Contains(t, stripped, "Let me know if you want more detail.")
}

func TestBuildVisualizations_FullSparkline(t *testing.T) {
	sparkline := make([]float64, 168)
	for i := range sparkline {
		sparkline[i] = 40000 + float64(i)
	}
	lastFetched := time.Date(2026, 2, 1, 12, 0, 0, 0, time.UTC)

	svc := NewService(&fakeCharts{}, &fakeAssets{assets: map[string]*models.Asset{
		"bitcoin": {ID: "bitcoin", Symbol: "btc", Sparkline7d: sparkline, LastFetched: lastFetched},
	}})

	visualizations := svc.BuildVisualizations(context.Background(), replyWithGraph)
	require.Len(t, visualizations, 1)

	vis := visualizations[0]
	assert.Equal(t, "bitcoin", vis.AssetID)
	assert.Equal(t, "price", vis.Metric)
	assert.Equal(t, "7d", vis.Period)

	// 168 hourly samples in, exactly 168 {time, price} pairs out.
	require.Len(t, vis.DataPoints, 168)
	assert.Equal(t, 40000.0, vis.DataPoints[0].Price)
	assert.Equal(t, 40167.0, vis.DataPoints[167].Price)
	assert.Equal(t, lastFetched, vis.DataPoints[167].Time)
	assert.Equal(t, lastFetched.Add(-167*time.Hour), vis.DataPoints[0].Time)
}

func TestBuildVisualizations_UnknownAssetSkipped(t *testing.T) {
	svc := NewService(&fakeCharts{}, &fakeAssets{assets: map[string]*models.Asset{}})

	visualizations := svc.BuildVisualizations(context.Background(), replyWithGraph)
	assert.Empty(t, visualizations)
}

func TestBuildVisualizations_MarketCapUsesChart(t *testing.T) {
	chart := &coingecko.MarketChart{
		MarketCaps: [][]float64{{1700000000000, 1.2e12}, {1700003600000, 1.3e12}},
	}
	svc := NewService(&fakeCharts{chart: chart}, &fakeAssets{assets: map[string]*models.Asset{
		"ethereum": {ID: "ethereum", Symbol: "eth"},
	}})

	visualizations := svc.BuildVisualizations(context.Background(),
		"```graph-data\nethereum_market_cap_30d\n```")
	require.Len(t, visualizations, 1)
	require.Len(t, visualizations[0].DataPoints, 2)
	assert.Equal(t, 1.3e12, visualizations[0].DataPoints[1].Price)
}
