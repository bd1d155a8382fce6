package models

import "time"

// Asset is one tracked cryptocurrency's market snapshot record. The ID is
// the provider-assigned slug (e.g. "bitcoin") and is unique across the
// collection. Optional numeric fields that the provider omits are stored as
// their documented defaults, never left unset; MaxSupply and TotalSupply
// stay nil when the provider reports null.
type Asset struct {
	ID            string  `json:"id" db:"id"`
	Symbol        string  `json:"symbol" db:"symbol"`
	Name          string  `json:"name" db:"name"`
	Image         string  `json:"image" db:"image"`
	CurrentPrice  float64 `json:"current_price" db:"current_price"`
	MarketCap     float64 `json:"market_cap" db:"market_cap"`
	MarketCapRank int     `json:"market_cap_rank" db:"market_cap_rank"`
	TotalVolume   float64 `json:"total_volume" db:"total_volume"`

	High24h float64 `json:"high_24h" db:"high_24h"`
	Low24h  float64 `json:"low_24h" db:"low_24h"`
	// High7d/Low7d are derived from the 7-day sparkline, not provider fields.
	High7d float64 `json:"high_7d" db:"high_7d"`
	Low7d  float64 `json:"low_7d" db:"low_7d"`

	PriceChangePct1h      float64 `json:"price_change_percentage_1h" db:"price_change_pct_1h"`
	PriceChangePct24h     float64 `json:"price_change_percentage_24h" db:"price_change_pct_24h"`
	PriceChangePct7d      float64 `json:"price_change_percentage_7d" db:"price_change_pct_7d"`
	MarketCapChangePct24h float64 `json:"market_cap_change_percentage_24h" db:"market_cap_change_pct_24h"`

	CirculatingSupply float64  `json:"circulating_supply" db:"circulating_supply"`
	TotalSupply       *float64 `json:"total_supply" db:"total_supply"`
	MaxSupply         *float64 `json:"max_supply" db:"max_supply"`

	ATH          float64   `json:"ath" db:"ath"`
	ATHChangePct float64   `json:"ath_change_percentage" db:"ath_change_pct"`
	ATHDate      time.Time `json:"ath_date" db:"ath_date"`
	ATL          float64   `json:"atl" db:"atl"`
	ATLChangePct float64   `json:"atl_change_percentage" db:"atl_change_pct"`
	ATLDate      time.Time `json:"atl_date" db:"atl_date"`

	// Sparkline7d holds hourly price samples for the trailing week, at most
	// 168 points, oldest first.
	Sparkline7d []float64 `json:"sparkline_in_7d" db:"-"`

	// Descriptive fields are fetched lazily the first time an asset enters
	// the top-N universe and are not re-fetched on later cycles.
	Description    string            `json:"description" db:"description"`
	HomepageLink   string            `json:"homepageLink" db:"homepage_link"`
	WhitepaperLink string            `json:"whitepaperLink" db:"whitepaper_link"`
	CommunityLinks map[string]string `json:"communityLinks" db:"-"`
	GenesisDate    string            `json:"genesisDate" db:"genesis_date"`
	Categories     []string          `json:"categories" db:"-"`

	LastFetched   time.Time     `json:"lastFetched" db:"last_fetched"`
	FetchInterval time.Duration `json:"fetchInterval" db:"fetch_interval"`
}

// AssetSummary is the lightweight projection used to tell the LLM which
// assets queries can reference.
type AssetSummary struct {
	ID     string `json:"id"`
	Symbol string `json:"symbol"`
	Name   string `json:"name"`
}
