package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/models"
)

const pricesTable = "daily_stock_prices_table"

// LoadPriceFacts appends staged price facts newer than the current MAX(date)
// of daily_stock_prices_table. Facts dated on or before the watermark are
// never inserted, even when they would fill a gap.
func (db *DB) LoadPriceFacts(ctx context.Context, facts []models.PriceFact) (LoadResult, error) {
	res := LoadResult{Table: pricesTable, Status: LoadStatusNoNewData}

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		mark, err := watermark(ctx, tx, pricesTable)
		if err != nil {
			return err
		}
		res.Watermark = mark

		dates := make([]time.Time, len(facts))
		for i, f := range facts {
			dates[i] = models.TruncateDate(f.Date)
		}
		idx := newerThan(dates, mark)
		if len(idx) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO daily_stock_prices_table (date, symbol, open_price, high_price, low_price, close_price, volume)
			VALUES ($1, $2, $3, $4, $5, $6, $7)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, i := range idx {
			p := facts[i]
			_, err := stmt.ExecContext(ctx, dates[i], p.Symbol, p.Open, p.High, p.Low, p.Close, p.Volume)
			if err != nil {
				return fmt.Errorf("failed to insert price data for %s: %w", p.Symbol, err)
			}
		}
		res.Status = LoadStatusAppended
		res.Inserted = len(idx)
		return nil
	})
	if err != nil {
		db.log.WithError(err).Error("Error inserting data into daily_stock_prices_table")
		return LoadResult{Table: pricesTable}, err
	}

	db.logLoad(res)
	return res, nil
}

// GetPriceFactsByDate retrieves all facts of a date ordered by id_transaction
func (db *DB) GetPriceFactsByDate(ctx context.Context, date time.Time) ([]models.PriceFact, error) {
	return scanPriceFacts(db.conn.QueryContext(ctx, priceFactsByDateQuery, models.TruncateDate(date)))
}

// GetPriceHistory retrieves the facts of a symbol between from and to inclusive, oldest first
func (db *DB) GetPriceHistory(ctx context.Context, symbol string, from, to time.Time) ([]models.PriceFact, error) {
	query := `
		SELECT id_transaction, date, symbol, open_price, high_price, low_price, close_price, volume
		FROM daily_stock_prices_table
		WHERE symbol = $1 AND date BETWEEN $2 AND $3
		ORDER BY date ASC
	`
	return scanPriceFacts(db.conn.QueryContext(ctx, query, symbol, models.TruncateDate(from), models.TruncateDate(to)))
}

// GetLatestPriceDate returns the fact table watermark, or nil when empty
func (db *DB) GetLatestPriceDate(ctx context.Context) (*time.Time, error) {
	var latest sql.NullTime
	err := db.conn.QueryRowContext(ctx, `SELECT MAX(date) FROM daily_stock_prices_table`).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to get latest price date: %w", err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

const priceFactsByDateQuery = `
	SELECT id_transaction, date, symbol, open_price, high_price, low_price, close_price, volume
	FROM daily_stock_prices_table
	WHERE date = $1
	ORDER BY id_transaction ASC
`

func scanPriceFacts(rows *sql.Rows, err error) ([]models.PriceFact, error) {
	if err != nil {
		return nil, fmt.Errorf("failed to query price data: %w", err)
	}
	defer rows.Close()

	var facts []models.PriceFact
	for rows.Next() {
		var p models.PriceFact
		err := rows.Scan(&p.ID, &p.Date, &p.Symbol, &p.Open, &p.High, &p.Low, &p.Close, &p.Volume)
		if err != nil {
			return nil, fmt.Errorf("failed to scan price data: %w", err)
		}
		facts = append(facts, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to read price data: %w", err)
	}
	return facts, nil
}
