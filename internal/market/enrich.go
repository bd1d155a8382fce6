package market

import (
	"time"

	"github.com/akravets/coinboard/internal/adapters/coingecko"
	"github.com/akravets/coinboard/pkg/models"
)

// Enrich maps a raw provider record into the canonical asset shape. It is a
// pure function: missing optional fields become their documented defaults
// (0, nil, "", empty slice) instead of failing. Detail is merged only when
// the caller's lazy detail fetch succeeded; a nil detail leaves the
// descriptive fields at their defaults.
//
// Defaults per field:
//   - market/supply numerics: 0
//   - total_supply, max_supply: nil (provider reports null)
//   - ath/atl dates: zero time
//   - sparkline: empty slice; high_7d and low_7d both 0 when it is empty
//   - descriptive strings: ""; community links and categories: empty
func Enrich(raw coingecko.MarketRecord, detail *coingecko.CoinDetail) models.Asset {
	asset := models.Asset{
		ID:                    raw.ID,
		Symbol:                raw.Symbol,
		Name:                  raw.Name,
		Image:                 raw.Image,
		CurrentPrice:          floatOrZero(raw.CurrentPrice),
		MarketCap:             floatOrZero(raw.MarketCap),
		MarketCapRank:         intOrZero(raw.MarketCapRank),
		TotalVolume:           floatOrZero(raw.TotalVolume),
		High24h:               floatOrZero(raw.High24h),
		Low24h:                floatOrZero(raw.Low24h),
		PriceChangePct1h:      floatOrZero(raw.PriceChangePct1h),
		PriceChangePct24h:     floatOrZero(raw.PriceChangePct24h),
		PriceChangePct7d:      floatOrZero(raw.PriceChangePct7d),
		MarketCapChangePct24h: floatOrZero(raw.MarketCapChangePct24h),
		CirculatingSupply:     floatOrZero(raw.CirculatingSupply),
		TotalSupply:           raw.TotalSupply,
		MaxSupply:             raw.MaxSupply,
		ATH:                   floatOrZero(raw.ATH),
		ATHChangePct:          floatOrZero(raw.ATHChangePct),
		ATHDate:               timeOrZero(raw.ATHDate),
		ATL:                   floatOrZero(raw.ATL),
		ATLChangePct:          floatOrZero(raw.ATLChangePct),
		ATLDate:               timeOrZero(raw.ATLDate),
		Sparkline7d:           []float64{},
		CommunityLinks:        map[string]string{},
		Categories:            []string{},
		LastFetched:           time.Now().UTC(),
	}

	if raw.Sparkline != nil && len(raw.Sparkline.Price) > 0 {
		asset.Sparkline7d = raw.Sparkline.Price
		asset.High7d, asset.Low7d = sparklineExtremes(raw.Sparkline.Price)
	}

	if detail != nil {
		asset.Description = detail.Description.EN
		if len(detail.Links.Homepage) > 0 {
			asset.HomepageLink = detail.Links.Homepage[0]
		}
		asset.WhitepaperLink = detail.Links.Whitepaper
		asset.CommunityLinks = detail.CommunityLinks()
		asset.GenesisDate = detail.GenesisDate
		if detail.Categories != nil {
			asset.Categories = detail.Categories
		}
	}

	return asset
}

// carryStoredDetail copies the write-once descriptive fields from the
// stored asset onto a freshly enriched one. Market-only refreshes skip the
// detail fetch; without the carry-over those fields would be empty in the
// merged snapshot even though storage still has them.
func carryStoredDetail(fresh, stored models.Asset) models.Asset {
	fresh.Description = stored.Description
	fresh.HomepageLink = stored.HomepageLink
	fresh.WhitepaperLink = stored.WhitepaperLink
	fresh.GenesisDate = stored.GenesisDate
	if stored.CommunityLinks != nil {
		fresh.CommunityLinks = stored.CommunityLinks
	}
	if stored.Categories != nil {
		fresh.Categories = stored.Categories
	}
	return fresh
}

func sparklineExtremes(samples []float64) (high, low float64) {
	high, low = samples[0], samples[0]
	for _, s := range samples[1:] {
		if s > high {
			high = s
		}
		if s < low {
			low = s
		}
	}
	return high, low
}

func floatOrZero(f *float64) float64 {
	if f == nil {
		return 0
	}
	return *f
}

func intOrZero(i *int) int {
	if i == nil {
		return 0
	}
	return *i
}

func timeOrZero(t *time.Time) time.Time {
	if t == nil {
		return time.Time{}
	}
	return *t
}
