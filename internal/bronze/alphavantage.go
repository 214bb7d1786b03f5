package bronze

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// AlphaVantageClient reads daily OHLCV bars from TIME_SERIES_DAILY
type AlphaVantageClient struct {
	api *apiClient
}

// NewAlphaVantageClient creates a new Alpha Vantage price client
func NewAlphaVantageClient(cfg ClientConfig) *AlphaVantageClient {
	return &AlphaVantageClient{api: newAPIClient(cfg)}
}

type alphaVantageBar struct {
	Open   string `json:"1. open"`
	High   string `json:"2. high"`
	Low    string `json:"3. low"`
	Close  string `json:"4. close"`
	Volume string `json:"5. volume"`
}

type alphaVantageDaily struct {
	Information  string                     `json:"Information"`
	Note         string                     `json:"Note"`
	ErrorMessage string                     `json:"Error Message"`
	Series       map[string]alphaVantageBar `json:"Time Series (Daily)"`
}

// FetchDailyPrice returns the bar of symbol on date. A date missing from
// the compact series is Empty; API notices and transport errors are Fatal.
func (c *AlphaVantageClient) FetchDailyPrice(ctx context.Context, symbol string, date time.Time) Result[models.PriceFact] {
	query := url.Values{}
	query.Set("function", "TIME_SERIES_DAILY")
	query.Set("symbol", symbol)
	query.Set("apikey", c.api.apiKey)
	query.Set("outputsize", "compact")

	var body alphaVantageDaily
	if err := c.api.getJSON(ctx, "/query", query, &body); err != nil {
		return Fatal[models.PriceFact](fmt.Errorf("alpha vantage %s: %w", symbol, err))
	}

	for _, notice := range []string{body.Information, body.Note, body.ErrorMessage} {
		if notice != "" {
			return Fatal[models.PriceFact](fmt.Errorf("alpha vantage %s: %s", symbol, notice))
		}
	}
	if len(body.Series) == 0 {
		return Empty[models.PriceFact]("no price data found for symbol")
	}

	day := models.TruncateDate(date)
	bar, ok := body.Series[day.Format(models.DateLayout)]
	if !ok {
		return Empty[models.PriceFact]("no price information available for date")
	}

	fact, err := bar.fact(day, symbol)
	if err != nil {
		return Fatal[models.PriceFact](fmt.Errorf("alpha vantage %s: %w", symbol, err))
	}
	return OK(fact)
}

func (b alphaVantageBar) fact(date time.Time, symbol string) (models.PriceFact, error) {
	fact := models.PriceFact{Date: date, Symbol: symbol}

	fields := []struct {
		raw string
		dst *decimal.Decimal
	}{
		{b.Open, &fact.Open},
		{b.High, &fact.High},
		{b.Low, &fact.Low},
		{b.Close, &fact.Close},
	}
	for _, f := range fields {
		v, err := decimal.NewFromString(f.raw)
		if err != nil {
			return models.PriceFact{}, fmt.Errorf("invalid price %q: %w", f.raw, err)
		}
		*f.dst = v
	}

	volume, err := strconv.ParseFloat(b.Volume, 64)
	if err != nil {
		return models.PriceFact{}, fmt.Errorf("invalid volume %q: %w", b.Volume, err)
	}
	fact.Volume = int64(volume)

	if err := fact.Validate(); err != nil {
		return models.PriceFact{}, err
	}
	return fact, nil
}
