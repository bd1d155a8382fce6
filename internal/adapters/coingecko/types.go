package coingecko

import "time"

// MarketRecord is one raw per-asset record from /coins/markets. Fields the
// provider may omit or null out are pointers; the enrichment unit maps them
// to concrete defaults.
type MarketRecord struct {
	ID                    string     `json:"id"`
	Symbol                string     `json:"symbol"`
	Name                  string     `json:"name"`
	Image                 string     `json:"image"`
	CurrentPrice          *float64   `json:"current_price"`
	MarketCap             *float64   `json:"market_cap"`
	MarketCapRank         *int       `json:"market_cap_rank"`
	TotalVolume           *float64   `json:"total_volume"`
	High24h               *float64   `json:"high_24h"`
	Low24h                *float64   `json:"low_24h"`
	PriceChangePct1h      *float64   `json:"price_change_percentage_1h_in_currency"`
	PriceChangePct24h     *float64   `json:"price_change_percentage_24h"`
	PriceChangePct7d      *float64   `json:"price_change_percentage_7d_in_currency"`
	MarketCapChangePct24h *float64   `json:"market_cap_change_percentage_24h"`
	CirculatingSupply     *float64   `json:"circulating_supply"`
	TotalSupply           *float64   `json:"total_supply"`
	MaxSupply             *float64   `json:"max_supply"`
	ATH                   *float64   `json:"ath"`
	ATHChangePct          *float64   `json:"ath_change_percentage"`
	ATHDate               *time.Time `json:"ath_date"`
	ATL                   *float64   `json:"atl"`
	ATLChangePct          *float64   `json:"atl_change_percentage"`
	ATLDate               *time.Time `json:"atl_date"`
	Sparkline             *Sparkline `json:"sparkline_in_7d"`
}

// Sparkline wraps the hourly 7-day price samples.
type Sparkline struct {
	Price []float64 `json:"price"`
}

// CoinDetail is the raw response from /coins/{id}, reduced to the
// descriptive fields the dashboard stores.
type CoinDetail struct {
	ID          string   `json:"id"`
	GenesisDate string   `json:"genesis_date"`
	Categories  []string `json:"categories"`
	Description struct {
		EN string `json:"en"`
	} `json:"description"`
	Links struct {
		Homepage                 []string `json:"homepage"`
		Whitepaper               string   `json:"whitepaper"`
		TwitterScreenName        string   `json:"twitter_screen_name"`
		FacebookUsername         string   `json:"facebook_username"`
		SubredditURL             string   `json:"subreddit_url"`
		TelegramChannelIdentifier string  `json:"telegram_channel_identifier"`
	} `json:"links"`
}

// CommunityLinks maps platform names to URLs, skipping platforms the
// provider left blank.
func (d *CoinDetail) CommunityLinks() map[string]string {
	links := make(map[string]string)
	if d.Links.TwitterScreenName != "" {
		links["twitter"] = "https://twitter.com/" + d.Links.TwitterScreenName
	}
	if d.Links.FacebookUsername != "" {
		links["facebook"] = "https://facebook.com/" + d.Links.FacebookUsername
	}
	if d.Links.SubredditURL != "" {
		links["reddit"] = d.Links.SubredditURL
	}
	if d.Links.TelegramChannelIdentifier != "" {
		links["telegram"] = "https://t.me/" + d.Links.TelegramChannelIdentifier
	}
	return links
}

// MarketChart is the raw response from /coins/{id}/market_chart. Each entry
// is a [timestamp_ms, value] pair.
type MarketChart struct {
	Prices     [][]float64 `json:"prices"`
	MarketCaps [][]float64 `json:"market_caps"`
}
