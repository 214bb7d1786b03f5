package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// MergeStats counts the effect of a dimension merge
type MergeStats struct {
	Added   int `json:"added"`
	Updated int `json:"updated"`
}

// MergeStockProfiles reconciles profile snapshots against the current
// version of each symbol in stock_table. A new symbol gets a first version;
// a changed profile closes the current version on asOf and opens a new one;
// an unchanged profile is left alone. The whole batch commits or none of it.
func (db *DB) MergeStockProfiles(ctx context.Context, profiles []models.StockProfile, asOf time.Time) (MergeStats, error) {
	var stats MergeStats
	asOf = models.TruncateDate(asOf)

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		for _, p := range profiles {
			current, err := currentVersion(ctx, tx, p.Symbol)
			if err != nil {
				return err
			}

			if current == nil {
				if err := insertVersion(ctx, tx, p, asOf); err != nil {
					return err
				}
				stats.Added++
				continue
			}

			if current.SameAttributes(p) {
				continue
			}

			// never close a version before it started
			effective := asOf
			if effective.Before(current.StartDate) {
				effective = models.TruncateDate(current.StartDate)
			}

			_, err = tx.ExecContext(ctx, `
				UPDATE stock_table
				SET is_current = false, end_date = $2
				WHERE id_record = $1
			`, current.ID, effective)
			if err != nil {
				return fmt.Errorf("failed to close stock version for %s: %w", p.Symbol, err)
			}
			stats.Updated++

			if err := insertVersion(ctx, tx, p, effective); err != nil {
				return err
			}
			stats.Added++
		}
		return nil
	})
	if err != nil {
		db.log.WithError(err).Error("Error merging profiles into stock_table")
		return MergeStats{}, err
	}

	log := db.log.WithFields(logrus.Fields{"table": "stock_table", "added": stats.Added, "updated": stats.Updated})
	if stats.Added == 0 && stats.Updated == 0 {
		log.Info("No records were added or updated in stock_table")
	} else {
		log.Info("Merged profiles into stock_table")
	}
	return stats, nil
}

func currentVersion(ctx context.Context, tx *sql.Tx, symbol string) (*models.StockVersion, error) {
	query := `
		SELECT id_record, symbol, name, industry, exchange, logo, weburl,
		       start_date, end_date, is_current
		FROM stock_table
		WHERE symbol = $1 AND is_current = true
		FOR UPDATE
	`
	v, err := scanStockVersion(tx.QueryRowContext(ctx, query, symbol))
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get current stock version for %s: %w", symbol, err)
	}
	return v, nil
}

func insertVersion(ctx context.Context, tx *sql.Tx, p models.StockProfile, start time.Time) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO stock_table (
			symbol, name, industry, exchange, logo, weburl,
			start_date, end_date, is_current
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, true)
	`, p.Symbol, p.Name, p.Industry, p.Exchange, p.Logo, p.WebURL, start, models.EndOfTime)
	if err != nil {
		return fmt.Errorf("failed to insert stock version for %s: %w", p.Symbol, err)
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanStockVersion(row rowScanner) (*models.StockVersion, error) {
	var v models.StockVersion
	var name, industry, exchange, logo, weburl sql.NullString

	err := row.Scan(
		&v.ID, &v.Symbol, &name, &industry, &exchange, &logo, &weburl,
		&v.StartDate, &v.EndDate, &v.IsCurrent,
	)
	if err != nil {
		return nil, err
	}

	v.Name = name.String
	v.Industry = industry.String
	v.Exchange = exchange.String
	v.Logo = logo.String
	v.WebURL = weburl.String
	return &v, nil
}

// GetCurrentStock retrieves the current version of a symbol
func (db *DB) GetCurrentStock(ctx context.Context, symbol string) (*models.StockVersion, error) {
	query := `
		SELECT id_record, symbol, name, industry, exchange, logo, weburl,
		       start_date, end_date, is_current
		FROM stock_table
		WHERE symbol = $1 AND is_current = true
	`
	v, err := scanStockVersion(db.conn.QueryRowContext(ctx, query, symbol))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("stock not found: %s", symbol)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get stock: %w", err)
	}
	return v, nil
}

// GetStockVersions retrieves the full version history of a symbol, oldest first
func (db *DB) GetStockVersions(ctx context.Context, symbol string) ([]*models.StockVersion, error) {
	query := `
		SELECT id_record, symbol, name, industry, exchange, logo, weburl,
		       start_date, end_date, is_current
		FROM stock_table
		WHERE symbol = $1
		ORDER BY start_date ASC, id_record ASC
	`
	rows, err := db.conn.QueryContext(ctx, query, symbol)
	if err != nil {
		return nil, fmt.Errorf("failed to get stock versions: %w", err)
	}
	defer rows.Close()

	var versions []*models.StockVersion
	for rows.Next() {
		v, err := scanStockVersion(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan stock version: %w", err)
		}
		versions = append(versions, v)
	}
	return versions, rows.Err()
}
