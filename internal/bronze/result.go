// Package bronze fetches raw per-symbol price and profile rows from the
// upstream market data APIs for a single run date.
package bronze

import (
	"context"
	"errors"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/models"
)

// ErrNoPriceData is returned by Collect when no symbol produced a price row
var ErrNoPriceData = errors.New("no price data retrieved for any symbol")

// Status distinguishes "nothing to do" from "must abort" for one fetch
type Status string

const (
	StatusOK    Status = "ok"
	StatusEmpty Status = "empty"
	StatusFatal Status = "fatal"
)

// Result carries a fetched value or the reason there is none
type Result[T any] struct {
	Value  T
	Status Status
	Reason string
}

// OK wraps a fetched value
func OK[T any](v T) Result[T] {
	return Result[T]{Value: v, Status: StatusOK}
}

// Empty reports that the upstream had nothing for the request
func Empty[T any](reason string) Result[T] {
	return Result[T]{Status: StatusEmpty, Reason: reason}
}

// Fatal reports a failed fetch
func Fatal[T any](err error) Result[T] {
	return Result[T]{Status: StatusFatal, Reason: err.Error()}
}

// PriceSource returns the daily OHLCV row of a symbol for one date
type PriceSource interface {
	FetchDailyPrice(ctx context.Context, symbol string, date time.Time) Result[models.PriceFact]
}

// ProfileSource returns the current company profile of a symbol
type ProfileSource interface {
	FetchProfile(ctx context.Context, symbol string) Result[models.StockProfile]
}
