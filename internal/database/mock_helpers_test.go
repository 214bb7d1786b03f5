package database

import (
	"testing"
	"time"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/require"
)

// newMockDB returns a DB backed by sqlmock; expectations are verified on cleanup
func newMockDB(t *testing.T) (*DB, sqlmock.Sqlmock) {
	t.Helper()
	sqlDB, mock, err := sqlmock.New()
	require.NoError(t, err)
	t.Cleanup(func() {
		require.NoError(t, mock.ExpectationsWereMet())
		sqlDB.Close()
	})
	return &DB{conn: sqlDB, log: discardLogger()}, mock
}

func day(d int) time.Time {
	return time.Date(2024, 1, d, 0, 0, 0, 0, time.UTC)
}

var stockColumns = []string{
	"id_record", "symbol", "name", "industry", "exchange", "logo", "weburl",
	"start_date", "end_date", "is_current",
}

var priceColumns = []string{
	"id_transaction", "date", "symbol", "open_price", "high_price", "low_price", "close_price", "volume",
}
