package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/models"
)

const dateTable = "date_table"

// LoadCalendar appends calendar rows newer than the current MAX(date) of date_table
func (db *DB) LoadCalendar(ctx context.Context, days []models.CalendarDay) (LoadResult, error) {
	res := LoadResult{Table: dateTable, Status: LoadStatusNoNewData}

	err := db.inTx(ctx, func(tx *sql.Tx) error {
		mark, err := watermark(ctx, tx, dateTable)
		if err != nil {
			return err
		}
		res.Watermark = mark

		dates := make([]time.Time, len(days))
		for i, d := range days {
			dates[i] = models.TruncateDate(d.Date)
		}
		idx := newerThan(dates, mark)
		if len(idx) == 0 {
			return nil
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO date_table (
				date, day_of_week, day_of_week_short, day_of_month, day_of_year,
				week_of_year, month, month_short, month_number, quarter, year, is_weekend
			) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`)
		if err != nil {
			return fmt.Errorf("failed to prepare statement: %w", err)
		}
		defer stmt.Close()

		for _, i := range idx {
			d := days[i]
			_, err := stmt.ExecContext(ctx,
				dates[i], d.DayOfWeek, d.DayOfWeekShort, d.DayOfMonth, d.DayOfYear,
				d.WeekOfYear, d.Month, d.MonthShort, d.MonthNumber, d.Quarter, d.Year, d.IsWeekend,
			)
			if err != nil {
				return fmt.Errorf("failed to insert date %s: %w", dates[i].Format(models.DateLayout), err)
			}
		}
		res.Status = LoadStatusAppended
		res.Inserted = len(idx)
		return nil
	})
	if err != nil {
		db.log.WithError(err).Error("Error inserting data into date_table")
		return LoadResult{Table: dateTable}, err
	}

	db.logLoad(res)
	return res, nil
}

// GetCalendarDay retrieves the calendar row of a date
func (db *DB) GetCalendarDay(ctx context.Context, date time.Time) (*models.CalendarDay, error) {
	query := `
		SELECT date, day_of_week, day_of_week_short, day_of_month, day_of_year,
		       week_of_year, month, month_short, month_number, quarter, year, is_weekend
		FROM date_table
		WHERE date = $1
	`
	var d models.CalendarDay
	err := db.conn.QueryRowContext(ctx, query, models.TruncateDate(date)).Scan(
		&d.Date, &d.DayOfWeek, &d.DayOfWeekShort, &d.DayOfMonth, &d.DayOfYear,
		&d.WeekOfYear, &d.Month, &d.MonthShort, &d.MonthNumber, &d.Quarter, &d.Year, &d.IsWeekend,
	)
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("calendar day not found: %s", date.Format(models.DateLayout))
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get calendar day: %w", err)
	}
	return &d, nil
}
