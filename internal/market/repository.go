package market

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/akravets/coinboard/pkg/logger"
	"github.com/akravets/coinboard/pkg/models"
)

// Repository persists asset snapshots in Postgres, one upsert per asset
// keyed by the provider id.
type Repository struct {
	db *sqlx.DB
}

// NewRepository creates a new asset repository.
func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// UpsertSummary reports how a batch write went. Each asset's write is
// independent; one failure never cancels sibling writes.
type UpsertSummary struct {
	Saved  int
	Failed []DetailResult
}

const upsertAssetQuery = `
INSERT INTO assets (
	id, symbol, name, image,
	current_price, market_cap, market_cap_rank, total_volume,
	high_24h, low_24h, high_7d, low_7d,
	price_change_pct_1h, price_change_pct_24h, price_change_pct_7d, market_cap_change_pct_24h,
	circulating_supply, total_supply, max_supply,
	ath, ath_change_pct, ath_date, atl, atl_change_pct, atl_date,
	sparkline_7d, description, homepage_link, whitepaper_link,
	community_links, genesis_date, categories, last_fetched, fetch_interval
) VALUES (
	$1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16,
	$17, $18, $19, $20, $21, $22, $23, $24, $25, $26, $27, $28, $29, $30,
	$31, $32, $33, $34
)
ON CONFLICT (id) DO UPDATE SET
	symbol = EXCLUDED.symbol,
	name = EXCLUDED.name,
	image = EXCLUDED.image,
	current_price = EXCLUDED.current_price,
	market_cap = EXCLUDED.market_cap,
	market_cap_rank = EXCLUDED.market_cap_rank,
	total_volume = EXCLUDED.total_volume,
	high_24h = EXCLUDED.high_24h,
	low_24h = EXCLUDED.low_24h,
	high_7d = EXCLUDED.high_7d,
	low_7d = EXCLUDED.low_7d,
	price_change_pct_1h = EXCLUDED.price_change_pct_1h,
	price_change_pct_24h = EXCLUDED.price_change_pct_24h,
	price_change_pct_7d = EXCLUDED.price_change_pct_7d,
	market_cap_change_pct_24h = EXCLUDED.market_cap_change_pct_24h,
	circulating_supply = EXCLUDED.circulating_supply,
	total_supply = EXCLUDED.total_supply,
	max_supply = EXCLUDED.max_supply,
	ath = EXCLUDED.ath,
	ath_change_pct = EXCLUDED.ath_change_pct,
	ath_date = EXCLUDED.ath_date,
	atl = EXCLUDED.atl,
	atl_change_pct = EXCLUDED.atl_change_pct,
	atl_date = EXCLUDED.atl_date,
	sparkline_7d = EXCLUDED.sparkline_7d,
	-- descriptive fields are written at most once: keep the stored value
	-- unless this write actually carries detail
	description = CASE WHEN EXCLUDED.description <> '' THEN EXCLUDED.description ELSE assets.description END,
	homepage_link = CASE WHEN EXCLUDED.homepage_link <> '' THEN EXCLUDED.homepage_link ELSE assets.homepage_link END,
	whitepaper_link = CASE WHEN EXCLUDED.whitepaper_link <> '' THEN EXCLUDED.whitepaper_link ELSE assets.whitepaper_link END,
	community_links = CASE WHEN EXCLUDED.community_links <> '{}'::jsonb THEN EXCLUDED.community_links ELSE assets.community_links END,
	genesis_date = CASE WHEN EXCLUDED.genesis_date <> '' THEN EXCLUDED.genesis_date ELSE assets.genesis_date END,
	categories = CASE WHEN EXCLUDED.categories <> '{}' THEN EXCLUDED.categories ELSE assets.categories END,
	last_fetched = EXCLUDED.last_fetched,
	fetch_interval = EXCLUDED.fetch_interval`

// UpsertAssets writes the merged snapshot. Each item's failure is caught
// and collected independently, returning a summary instead of aborting the
// batch.
func (r *Repository) UpsertAssets(ctx context.Context, assets []models.Asset) UpsertSummary {
	summary := UpsertSummary{}

	for _, asset := range assets {
		if err := r.upsertOne(ctx, asset); err != nil {
			logger.Warn("asset upsert failed",
				zap.String("id", asset.ID),
				zap.Error(err),
			)
			summary.Failed = append(summary.Failed, DetailResult{ID: asset.ID, Err: err})
			continue
		}
		summary.Saved++
	}

	return summary
}

func (r *Repository) upsertOne(ctx context.Context, a models.Asset) error {
	links, err := json.Marshal(a.CommunityLinks)
	if err != nil {
		return fmt.Errorf("failed to marshal community links: %w", err)
	}

	_, err = r.db.ExecContext(ctx, upsertAssetQuery,
		a.ID, a.Symbol, a.Name, a.Image,
		a.CurrentPrice, a.MarketCap, a.MarketCapRank, a.TotalVolume,
		a.High24h, a.Low24h, a.High7d, a.Low7d,
		a.PriceChangePct1h, a.PriceChangePct24h, a.PriceChangePct7d, a.MarketCapChangePct24h,
		a.CirculatingSupply, a.TotalSupply, a.MaxSupply,
		a.ATH, a.ATHChangePct, a.ATHDate, a.ATL, a.ATLChangePct, a.ATLDate,
		pq.Array(a.Sparkline7d), a.Description, a.HomepageLink, a.WhitepaperLink,
		links, a.GenesisDate, pq.Array(a.Categories), a.LastFetched, int64(a.FetchInterval),
	)
	if err != nil {
		return fmt.Errorf("failed to upsert asset: %w", err)
	}
	return nil
}

const selectAssetColumns = `
	id, symbol, name, image,
	current_price, market_cap, market_cap_rank, total_volume,
	high_24h, low_24h, high_7d, low_7d,
	price_change_pct_1h, price_change_pct_24h, price_change_pct_7d, market_cap_change_pct_24h,
	circulating_supply, total_supply, max_supply,
	ath, ath_change_pct, ath_date, atl, atl_change_pct, atl_date,
	sparkline_7d, description, homepage_link, whitepaper_link,
	community_links, genesis_date, categories, last_fetched, fetch_interval`

// ListAssets returns every stored asset ordered by market cap rank.
func (r *Repository) ListAssets(ctx context.Context) ([]models.Asset, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+selectAssetColumns+` FROM assets ORDER BY market_cap_rank ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query assets: %w", err)
	}
	defer rows.Close()

	assets := make([]models.Asset, 0)
	for rows.Next() {
		asset, err := scanAsset(rows)
		if err != nil {
			logger.Warn("failed to scan asset row", zap.Error(err))
			continue
		}
		assets = append(assets, asset)
	}

	return assets, rows.Err()
}

// GetAsset returns a single asset by provider id.
func (r *Repository) GetAsset(ctx context.Context, id string) (*models.Asset, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT `+selectAssetColumns+` FROM assets WHERE id = $1`, id)

	asset, err := scanAsset(row)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get asset %s: %w", id, err)
	}
	return &asset, nil
}

// ListSummaries returns the lightweight id/symbol/name universe.
func (r *Repository) ListSummaries(ctx context.Context) ([]models.AssetSummary, error) {
	summaries := []models.AssetSummary{}
	err := r.db.SelectContext(ctx, &summaries,
		`SELECT id, symbol, name FROM assets ORDER BY market_cap_rank ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to query asset summaries: %w", err)
	}
	return summaries, nil
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanAsset(row rowScanner) (models.Asset, error) {
	var (
		a             models.Asset
		sparkline     pq.Float64Array
		categories    pq.StringArray
		links         []byte
		fetchInterval int64
	)

	err := row.Scan(
		&a.ID, &a.Symbol, &a.Name, &a.Image,
		&a.CurrentPrice, &a.MarketCap, &a.MarketCapRank, &a.TotalVolume,
		&a.High24h, &a.Low24h, &a.High7d, &a.Low7d,
		&a.PriceChangePct1h, &a.PriceChangePct24h, &a.PriceChangePct7d, &a.MarketCapChangePct24h,
		&a.CirculatingSupply, &a.TotalSupply, &a.MaxSupply,
		&a.ATH, &a.ATHChangePct, &a.ATHDate, &a.ATL, &a.ATLChangePct, &a.ATLDate,
		&sparkline, &a.Description, &a.HomepageLink, &a.WhitepaperLink,
		&links, &a.GenesisDate, &categories, &a.LastFetched, &fetchInterval,
	)
	if err != nil {
		return models.Asset{}, err
	}

	a.Sparkline7d = []float64(sparkline)
	a.Categories = []string(categories)
	a.FetchInterval = time.Duration(fetchInterval)
	a.CommunityLinks = map[string]string{}
	if len(links) > 0 {
		if err := json.Unmarshal(links, &a.CommunityLinks); err != nil {
			logger.Warn("failed to decode community links", zap.String("id", a.ID), zap.Error(err))
		}
	}

	return a, nil
}
