package bronze

import (
	"context"
	"fmt"
	"time"

	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// Batch is everything fetched for one run date
type Batch struct {
	Date     time.Time
	Prices   []models.PriceFact
	Profiles []models.StockProfile
	Skipped  map[string]string
}

// Collector fans a symbol list out to the price and profile sources
type Collector struct {
	prices   PriceSource
	profiles ProfileSource
	log      logrus.FieldLogger
}

// NewCollector creates a new bronze collector
func NewCollector(prices PriceSource, profiles ProfileSource, log logrus.FieldLogger) *Collector {
	return &Collector{prices: prices, profiles: profiles, log: log}
}

// Collect fetches one price row and one profile per symbol. Symbols whose
// fetch is empty or failed are logged and left out. Returns ErrNoPriceData
// when no symbol yielded a price row.
func (c *Collector) Collect(ctx context.Context, symbols []string, date time.Time) (*Batch, error) {
	date = models.TruncateDate(date)
	batch := &Batch{Date: date, Skipped: make(map[string]string)}
	log := c.log.WithField("date", date.Format(models.DateLayout))

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect aborted: %w", err)
		}

		res := c.prices.FetchDailyPrice(ctx, symbol, date)
		switch res.Status {
		case StatusOK:
			batch.Prices = append(batch.Prices, res.Value)
		case StatusEmpty:
			log.WithField("symbol", symbol).Infof("No price information available: %s", res.Reason)
			batch.Skipped[symbol] = res.Reason
		default:
			log.WithField("symbol", symbol).Errorf("Price fetch failed: %s", res.Reason)
			batch.Skipped[symbol] = res.Reason
		}
	}

	if len(batch.Prices) == 0 {
		log.Error("Failed to retrieve daily stock prices for the provided symbols")
		return nil, ErrNoPriceData
	}

	for _, symbol := range symbols {
		if err := ctx.Err(); err != nil {
			return nil, fmt.Errorf("collect aborted: %w", err)
		}

		res := c.profiles.FetchProfile(ctx, symbol)
		switch res.Status {
		case StatusOK:
			batch.Profiles = append(batch.Profiles, res.Value)
		case StatusEmpty:
			log.WithField("symbol", symbol).Infof("No profile data found: %s", res.Reason)
		default:
			log.WithField("symbol", symbol).Errorf("Profile fetch failed: %s", res.Reason)
		}
	}
	if len(batch.Profiles) == 0 {
		log.Warn("Failed to retrieve stock profile information for the provided symbols")
	}

	log.WithFields(logrus.Fields{
		"prices":   len(batch.Prices),
		"profiles": len(batch.Profiles),
		"skipped":  len(batch.Skipped),
	}).Info("Bronze batch collected")
	return batch, nil
}
