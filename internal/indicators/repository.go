package indicators

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/jmoiron/sqlx"

	"github.com/akravets/coinboard/pkg/models"
)

// Repository stores one indicator series per (crypto_id, kind).
type Repository struct {
	db *sqlx.DB
}

func NewRepository(db *sqlx.DB) *Repository {
	return &Repository{db: db}
}

// Upsert writes an indicator series, replacing the previous one for the
// same asset and kind.
func (r *Repository) Upsert(ctx context.Context, ind *models.Indicator) error {
	data, err := json.Marshal(ind.Data)
	if err != nil {
		return fmt.Errorf("failed to marshal indicator data: %w", err)
	}

	_, err = r.db.ExecContext(ctx, `
		INSERT INTO indicators (crypto_id, symbol, kind, interval, time_period, series_type, data, refreshed_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
		ON CONFLICT (crypto_id, kind) DO UPDATE SET
			symbol = EXCLUDED.symbol,
			interval = EXCLUDED.interval,
			time_period = EXCLUDED.time_period,
			series_type = EXCLUDED.series_type,
			data = EXCLUDED.data,
			refreshed_at = EXCLUDED.refreshed_at
	`, ind.CryptoID, ind.Symbol, ind.Kind, ind.Interval, ind.TimePeriod, ind.SeriesType, data, ind.RefreshedAt)
	if err != nil {
		return fmt.Errorf("failed to upsert indicator: %w", err)
	}
	return nil
}

// Get returns the stored series for an asset and kind, or sql.ErrNoRows.
func (r *Repository) Get(ctx context.Context, cryptoID string, kind models.IndicatorKind) (*models.Indicator, error) {
	row := r.db.QueryRowContext(ctx, `
		SELECT crypto_id, symbol, kind, interval, time_period, series_type, data, refreshed_at
		FROM indicators
		WHERE crypto_id = $1 AND kind = $2
	`, cryptoID, kind)

	var (
		ind  models.Indicator
		data []byte
	)
	err := row.Scan(&ind.CryptoID, &ind.Symbol, &ind.Kind, &ind.Interval,
		&ind.TimePeriod, &ind.SeriesType, &data, &ind.RefreshedAt)
	if err != nil {
		if err == sql.ErrNoRows {
			return nil, err
		}
		return nil, fmt.Errorf("failed to get indicator: %w", err)
	}

	if err := json.Unmarshal(data, &ind.Data); err != nil {
		return nil, fmt.Errorf("failed to decode indicator data: %w", err)
	}
	return &ind, nil
}

// LastRefreshed returns when each asset's indicators were last refreshed.
func (r *Repository) LastRefreshed(ctx context.Context) (map[string]sql.NullTime, error) {
	rows, err := r.db.QueryContext(ctx, `
		SELECT crypto_id, MIN(refreshed_at) FROM indicators GROUP BY crypto_id
	`)
	if err != nil {
		return nil, fmt.Errorf("failed to query refresh times: %w", err)
	}
	defer rows.Close()

	out := make(map[string]sql.NullTime)
	for rows.Next() {
		var id string
		var at sql.NullTime
		if err := rows.Scan(&id, &at); err != nil {
			return nil, err
		}
		out[id] = at
	}
	return out, rows.Err()
}
