package models

import "time"

// IndicatorKind names a supported technical indicator.
type IndicatorKind string

const (
	IndicatorRSI IndicatorKind = "rsi"
	IndicatorSMA IndicatorKind = "sma"
)

// IndicatorPoint is one dated indicator value.
type IndicatorPoint struct {
	Date  time.Time `json:"date"`
	Value float64   `json:"value"`
}

// Indicator is the stored per-asset indicator series, one row per
// (CryptoID, Kind), refreshed at most once per calendar day.
type Indicator struct {
	CryptoID    string           `json:"cryptoId" db:"crypto_id"`
	Symbol      string           `json:"symbol" db:"symbol"`
	Kind        IndicatorKind    `json:"indicator" db:"kind"`
	Interval    string           `json:"interval" db:"interval"`
	TimePeriod  int              `json:"time_period" db:"time_period"`
	SeriesType  string           `json:"series_type" db:"series_type"`
	Data        []IndicatorPoint `json:"data" db:"-"`
	RefreshedAt time.Time        `json:"refreshedAt" db:"refreshed_at"`
}

// GraphPoint is the {x, y} shape the indicator-graph endpoint returns.
type GraphPoint struct {
	X time.Time `json:"x"`
	Y float64   `json:"y"`
}
