package market

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
)

func floatPtr(f float64) *float64 { return &f }

func TestEnrich_DefaultsForMissingFields(t *testing.T) {
	asset := Enrich(coingecko.MarketRecord{
		ID:     "bitcoin",
		Symbol: "btc",
		Name:   "Bitcoin",
	}, nil)

	assert.Equal(t, "bitcoin", asset.ID)
	assert.Zero(t, asset.CurrentPrice)
	assert.Zero(t, asset.MarketCap)
	assert.Zero(t, asset.MarketCapRank)
	assert.Zero(t, asset.PriceChangePct1h)
	assert.Zero(t, asset.PriceChangePct24h)
	assert.Zero(t, asset.PriceChangePct7d)
	assert.Nil(t, asset.TotalSupply)
	assert.Nil(t, asset.MaxSupply)
	assert.True(t, asset.ATHDate.IsZero())

	// Collections default to empty, never nil.
	assert.NotNil(t, asset.Sparkline7d)
	assert.Empty(t, asset.Sparkline7d)
	assert.NotNil(t, asset.CommunityLinks)
	assert.NotNil(t, asset.Categories)

	// Descriptive fields untouched without a detail fetch.
	assert.Empty(t, asset.Description)
	assert.Empty(t, asset.HomepageLink)
}

func TestEnrich_SparklineExtremes(t *testing.T) {
	asset := Enrich(coingecko.MarketRecord{
		ID: "bitcoin",
		Sparkline: &coingecko.Sparkline{
			Price: []float64{100, 250, 75, 180},
		},
	}, nil)

	assert.Equal(t, 250.0, asset.High7d)
	assert.Equal(t, 75.0, asset.Low7d)
	assert.GreaterOrEqual(t, asset.High7d, asset.Low7d)
	assert.Len(t, asset.Sparkline7d, 4)
}

func TestEnrich_EmptySparklineYieldsZeroExtremes(t *testing.T) {
	asset := Enrich(coingecko.MarketRecord{
		ID:        "bitcoin",
		Sparkline: &coingecko.Sparkline{Price: []float64{}},
	}, nil)

	assert.Zero(t, asset.High7d)
	assert.Zero(t, asset.Low7d)
}

func TestEnrich_MergesDetail(t *testing.T) {
	detail := &coingecko.CoinDetail{
		ID:          "bitcoin",
		GenesisDate: "2009-01-03",
		Categories:  []string{"layer-1"},
	}
	detail.Description.EN = "The first cryptocurrency."
	detail.Links.Homepage = []string{"https://bitcoin.org"}
	detail.Links.Whitepaper = "https://bitcoin.org/bitcoin.pdf"
	detail.Links.TwitterScreenName = "bitcoin"

	asset := Enrich(coingecko.MarketRecord{
		ID:           "bitcoin",
		CurrentPrice: floatPtr(50000),
	}, detail)

	assert.Equal(t, 50000.0, asset.CurrentPrice)
	assert.Equal(t, "The first cryptocurrency.", asset.Description)
	assert.Equal(t, "https://bitcoin.org", asset.HomepageLink)
	assert.Equal(t, "https://bitcoin.org/bitcoin.pdf", asset.WhitepaperLink)
	assert.Equal(t, "2009-01-03", asset.GenesisDate)
	assert.Equal(t, []string{"layer-1"}, asset.Categories)
	assert.Equal(t, "https://twitter.com/bitcoin", asset.CommunityLinks["twitter"])
}

func TestEnrich_NullableSupplyPreserved(t *testing.T) {
	asset := Enrich(coingecko.MarketRecord{
		ID:                "bitcoin",
		CirculatingSupply: floatPtr(19_500_000),
		MaxSupply:         floatPtr(21_000_000),
	}, nil)

	assert.Equal(t, 19_500_000.0, asset.CirculatingSupply)
	if assert.NotNil(t, asset.MaxSupply) {
		assert.Equal(t, 21_000_000.0, *asset.MaxSupply)
	}
	assert.Nil(t, asset.TotalSupply)
}
