package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// PriceAttributes are the analytics derived from a single price fact.
// Ratio fields are nil when their denominator is zero.
type PriceAttributes struct {
	ID              int64           `json:"id"`
	TransactionID   int64           `json:"id_transaction"`
	Date            time.Time       `json:"date"`
	Symbol          string          `json:"symbol"`
	PriceRange      decimal.Decimal `json:"price_range"`
	PriceChange     decimal.Decimal `json:"price_change"`
	PriceChangePct  *float64        `json:"price_change_pct"`
	HighOpenDiff    decimal.Decimal `json:"high_open_diff"`
	LowCloseDiff    decimal.Decimal `json:"low_close_diff"`
	VolumeChange    *float64        `json:"volume_change"`
	VolumeMovingAvg float64         `json:"volume_moving_avg"`
	PriceVolatility *float64        `json:"price_volatility"`
}
