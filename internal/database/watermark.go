package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
)

// LoadStatus tells the caller whether a watermark load appended anything
type LoadStatus string

const (
	LoadStatusAppended  LoadStatus = "appended"
	LoadStatusNoNewData LoadStatus = "no_new_data"
)

// LoadResult reports the outcome of one watermark load
type LoadResult struct {
	Table     string     `json:"table"`
	Status    LoadStatus `json:"status"`
	Inserted  int        `json:"inserted"`
	Watermark *time.Time `json:"watermark,omitempty"`
}

// NoNewData reports whether the load was skipped because nothing was newer
// than the watermark
func (r LoadResult) NoNewData() bool {
	return r.Status == LoadStatusNoNewData
}

// watermark returns MAX(date) of table, or nil when the table is empty
func watermark(ctx context.Context, tx *sql.Tx, table string) (*time.Time, error) {
	var latest sql.NullTime
	err := tx.QueryRowContext(ctx, fmt.Sprintf("SELECT MAX(date) FROM %s", table)).Scan(&latest)
	if err != nil {
		return nil, fmt.Errorf("failed to read watermark of %s: %w", table, err)
	}
	if !latest.Valid {
		return nil, nil
	}
	return &latest.Time, nil
}

// newerThan returns the indexes of dates strictly after mark. Only the newest
// staged date is compared first: if it is not after the watermark nothing is
// loaded, even when older gaps exist below the watermark.
func newerThan(dates []time.Time, mark *time.Time) []int {
	if len(dates) == 0 {
		return nil
	}
	if mark == nil {
		all := make([]int, len(dates))
		for i := range dates {
			all[i] = i
		}
		return all
	}

	newest := dates[0]
	for _, d := range dates[1:] {
		if d.After(newest) {
			newest = d
		}
	}
	if !newest.After(*mark) {
		return nil
	}

	var idx []int
	for i, d := range dates {
		if d.After(*mark) {
			idx = append(idx, i)
		}
	}
	return idx
}

func (db *DB) logLoad(res LoadResult) {
	log := db.log.WithField("table", res.Table)
	if res.Watermark != nil {
		log = log.WithField("watermark", res.Watermark.Format("2006-01-02"))
	}
	if res.NoNewData() {
		log.Infof("No new rows were added; they were already present in %s", res.Table)
		return
	}
	log.WithFields(logrus.Fields{"inserted": res.Inserted}).Infof("Added %d rows to %s", res.Inserted, res.Table)
}
