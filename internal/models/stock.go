package models

import (
	"fmt"
	"time"
)

// EndOfTime is the end_date carried by the current version of a stock
var EndOfTime = time.Date(3000, 12, 1, 0, 0, 0, 0, time.UTC)

// StockProfile is a descriptive snapshot of a listed company as fetched upstream
type StockProfile struct {
	Symbol   string `json:"symbol"`
	Name     string `json:"name"`
	Industry string `json:"industry"`
	Exchange string `json:"exchange"`
	Logo     string `json:"logo"`
	WebURL   string `json:"weburl"`
}

// Validate checks the profile against the staged record schema
func (s *StockProfile) Validate() error {
	if s.Symbol == "" {
		return fmt.Errorf("stock profile has empty symbol")
	}
	return nil
}

// SameAttributes reports whether the tracked descriptive fields match
func (s StockProfile) SameAttributes(o StockProfile) bool {
	return s.Name == o.Name &&
		s.Industry == o.Industry &&
		s.Exchange == o.Exchange &&
		s.Logo == o.Logo &&
		s.WebURL == o.WebURL
}

// StockVersion is one row of the slowly changing stock dimension
type StockVersion struct {
	ID int64 `json:"id_record"`
	StockProfile
	StartDate time.Time `json:"start_date"`
	EndDate   time.Time `json:"end_date"`
	IsCurrent bool      `json:"is_current"`
}
