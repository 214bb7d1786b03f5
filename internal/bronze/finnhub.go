package bronze

import (
	"context"
	"fmt"
	"net/url"

	"github.com/trogers1052/stock-warehouse/internal/models"
)

// FinnhubClient reads company profiles from stock/profile2
type FinnhubClient struct {
	api *apiClient
}

// NewFinnhubClient creates a new Finnhub profile client
func NewFinnhubClient(cfg ClientConfig) *FinnhubClient {
	return &FinnhubClient{api: newAPIClient(cfg)}
}

type finnhubProfile struct {
	Error    string `json:"error"`
	Ticker   string `json:"ticker"`
	Name     string `json:"name"`
	Industry string `json:"finnhubIndustry"`
	Exchange string `json:"exchange"`
	Logo     string `json:"logo"`
	WebURL   string `json:"weburl"`
}

// FetchProfile returns the profile of symbol. Finnhub answers an unknown
// symbol with an empty object, which is Empty.
func (c *FinnhubClient) FetchProfile(ctx context.Context, symbol string) Result[models.StockProfile] {
	query := url.Values{}
	query.Set("symbol", symbol)
	query.Set("token", c.api.apiKey)

	var body finnhubProfile
	if err := c.api.getJSON(ctx, "/api/v1/stock/profile2", query, &body); err != nil {
		return Fatal[models.StockProfile](fmt.Errorf("finnhub %s: %w", symbol, err))
	}
	if body.Error != "" {
		return Fatal[models.StockProfile](fmt.Errorf("finnhub %s: %s", symbol, body.Error))
	}
	if body == (finnhubProfile{}) {
		return Empty[models.StockProfile]("no profile data found for symbol")
	}

	p := models.StockProfile{
		Symbol:   body.Ticker,
		Name:     body.Name,
		Industry: body.Industry,
		Exchange: body.Exchange,
		Logo:     body.Logo,
		WebURL:   body.WebURL,
	}
	if p.Symbol == "" {
		p.Symbol = symbol
	}
	if err := p.Validate(); err != nil {
		return Fatal[models.StockProfile](fmt.Errorf("finnhub %s: %w", symbol, err))
	}
	return OK(p)
}
