package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/lib/pq"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/attributes"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// RecomputeAttributes derives attributes for every fact of date and replaces
// any previously derived rows for the same transactions. Returns the number
// of rows written; zero facts is a no-op.
func (db *DB) RecomputeAttributes(ctx context.Context, date time.Time) (int, error) {
	date = models.TruncateDate(date)
	log := db.log.WithFields(logrus.Fields{"table": "attributes_table", "date": date.Format(models.DateLayout)})
	written := 0

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		facts, err := scanPriceFacts(tx.QueryContext(ctx, priceFactsByDateQuery, date))
		if err != nil {
			return err
		}
		if len(facts) == 0 {
			return nil
		}

		rows := attributes.Compute(facts)
		if err := replaceAttributes(ctx, tx, rows); err != nil {
			return err
		}
		written = len(rows)
		return nil
	})
	if err != nil {
		log.WithError(err).Error("An error occurred during attribute calculation")
		return 0, err
	}

	if written == 0 {
		log.Info("No price data available for the date")
		return 0, nil
	}
	log.WithField("rows", written).Info("Attributes calculated and inserted")
	return written, nil
}

func replaceAttributes(ctx context.Context, tx *sql.Tx, rows []models.PriceAttributes) error {
	ids := make([]int64, len(rows))
	for i, a := range rows {
		ids[i] = a.TransactionID
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM attributes_table WHERE id_transaction = ANY($1)`, pq.Array(ids)); err != nil {
		return fmt.Errorf("failed to delete existing attributes: %w", err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO attributes_table (
			id_transaction, date, symbol, price_range, price_change, price_change_pct,
			high_open_diff, low_close_diff, volume_change, volume_moving_avg, price_volatility
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`)
	if err != nil {
		return fmt.Errorf("failed to prepare statement: %w", err)
	}
	defer stmt.Close()

	for _, a := range rows {
		_, err := stmt.ExecContext(ctx,
			a.TransactionID, a.Date, a.Symbol, a.PriceRange, a.PriceChange, a.PriceChangePct,
			a.HighOpenDiff, a.LowCloseDiff, a.VolumeChange, a.VolumeMovingAvg, a.PriceVolatility,
		)
		if err != nil {
			return fmt.Errorf("failed to insert attributes for transaction %d: %w", a.TransactionID, err)
		}
	}
	return nil
}

// GetAttributesByDate retrieves derived attributes of a date ordered by id_transaction
func (db *DB) GetAttributesByDate(ctx context.Context, date time.Time) ([]*models.PriceAttributes, error) {
	query := `
		SELECT id, id_transaction, date, symbol, price_range, price_change, price_change_pct,
		       high_open_diff, low_close_diff, volume_change, volume_moving_avg, price_volatility
		FROM attributes_table
		WHERE date = $1
		ORDER BY id_transaction ASC
	`
	return scanAttributes(db.conn.QueryContext(ctx, query, models.TruncateDate(date)))
}

// GetAttributeHistory retrieves the most recent attribute rows of a symbol, newest first
func (db *DB) GetAttributeHistory(ctx context.Context, symbol string, limit int) ([]*models.PriceAttributes, error) {
	query := `
		SELECT id, id_transaction, date, symbol, price_range, price_change, price_change_pct,
		       high_open_diff, low_close_diff, volume_change, volume_moving_avg, price_volatility
		FROM attributes_table
		WHERE symbol = $1
		ORDER BY date DESC
		LIMIT $2
	`
	return scanAttributes(db.conn.QueryContext(ctx, query, symbol, limit))
}

func scanAttributes(rows *sql.Rows, err error) ([]*models.PriceAttributes, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to get attributes: %w", err)
	}
	defer rows.Close()

	var out []*models.PriceAttributes
	for rows.Next() {
		var a models.PriceAttributes
		var pct, volChange, volatility sql.NullFloat64

		err := rows.Scan(
			&a.ID, &a.TransactionID, &a.Date, &a.Symbol, &a.PriceRange, &a.PriceChange, &pct,
			&a.HighOpenDiff, &a.LowCloseDiff, &volChange, &a.VolumeMovingAvg, &volatility,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan attributes: %w", err)
		}

		if pct.Valid {
			a.PriceChangePct = &pct.Float64
		}
		if volChange.Valid {
			a.VolumeChange = &volChange.Float64
		}
		if volatility.Valid {
			a.PriceVolatility = &volatility.Float64
		}
		out = append(out, &a)
	}
	return out, rows.Err()
}
