package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PricePoint is one sample on a price or market-cap chart.
type PricePoint struct {
	Time  time.Time `json:"time"`
	Value float64   `json:"value"`
}

// Candle is one OHLC candle from the provider's /ohlc endpoint.
type Candle struct {
	Timestamp time.Time       `json:"timestamp"`
	Open      decimal.Decimal `json:"open"`
	High      decimal.Decimal `json:"high"`
	Low       decimal.Decimal `json:"low"`
	Close     decimal.Decimal `json:"close"`
}

// GraphDetails bundles everything the dashboard's detail view plots for a
// single asset over a requested period.
type GraphDetails struct {
	PriceData     []PricePoint `json:"priceData"`
	MarketCapData []PricePoint `json:"marketCapData"`
	OHLCData      []Candle     `json:"ohlcData"`
}

// VisualizationPoint is one merged sample inside a chat visualization.
type VisualizationPoint struct {
	Time  time.Time `json:"time"`
	Price float64   `json:"price"`
}

// Visualization is a chart directive extracted from an LLM reply and merged
// with the live asset snapshot.
type Visualization struct {
	Directive  string               `json:"directive"`
	AssetID    string               `json:"assetId"`
	Symbol     string               `json:"symbol"`
	Metric     string               `json:"metric"`
	Period     string               `json:"period"`
	DataPoints []VisualizationPoint `json:"dataPoints"`
}
