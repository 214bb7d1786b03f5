package models

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// DateLayout is the wire and staging format for calendar dates
const DateLayout = "2006-01-02"

// PriceFact represents one day of OHLCV data for a stock.
// ID is the warehouse id_transaction and is zero until the fact is loaded.
type PriceFact struct {
	ID     int64           `json:"id_transaction,omitempty"`
	Date   time.Time       `json:"date"`
	Symbol string          `json:"symbol"`
	Open   decimal.Decimal `json:"open_price"`
	High   decimal.Decimal `json:"high_price"`
	Low    decimal.Decimal `json:"low_price"`
	Close  decimal.Decimal `json:"close_price"`
	Volume int64           `json:"volume"`
}

// Validate checks the fact against the staged record schema
func (p *PriceFact) Validate() error {
	if p.Symbol == "" {
		return fmt.Errorf("price fact has empty symbol")
	}
	if p.Date.IsZero() {
		return fmt.Errorf("price fact for %s has no date", p.Symbol)
	}
	for name, v := range map[string]decimal.Decimal{"open": p.Open, "high": p.High, "low": p.Low, "close": p.Close} {
		if v.IsNegative() {
			return fmt.Errorf("price fact for %s on %s has negative %s", p.Symbol, p.Date.Format(DateLayout), name)
		}
	}
	if p.Volume < 0 {
		return fmt.Errorf("price fact for %s on %s has negative volume", p.Symbol, p.Date.Format(DateLayout))
	}
	return nil
}

// TruncateDate drops the clock component of t, keeping it in UTC
func TruncateDate(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// ParseDate parses a YYYY-MM-DD date
func ParseDate(s string) (time.Time, error) {
	t, err := time.Parse(DateLayout, s)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return t, nil
}
