package staging

import (
	"fmt"

	"github.com/shopspring/decimal"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// SchemaVersion is embedded in every snapshot file name. Bump it when a record
// layout below changes so old snapshots are never read with the new layout.
const SchemaVersion = "v2"

type priceRecord struct {
	Date   string `parquet:"date"`
	Symbol string `parquet:"symbol"`
	Open   string `parquet:"open_price"`
	High   string `parquet:"high_price"`
	Low    string `parquet:"low_price"`
	Close  string `parquet:"close_price"`
	Volume int64  `parquet:"volume"`
}

type profileRecord struct {
	Symbol   string `parquet:"symbol"`
	Name     string `parquet:"name"`
	Industry string `parquet:"industry"`
	Exchange string `parquet:"exchange"`
	Logo     string `parquet:"logo"`
	WebURL   string `parquet:"weburl"`
}

type calendarRecord struct {
	Date           string `parquet:"date"`
	DayOfWeek      string `parquet:"day_of_week"`
	DayOfWeekShort string `parquet:"day_of_week_short"`
	DayOfMonth     int32  `parquet:"day_of_month"`
	DayOfYear      int32  `parquet:"day_of_year"`
	WeekOfYear     int32  `parquet:"week_of_year"`
	Month          string `parquet:"month"`
	MonthShort     string `parquet:"month_short"`
	MonthNumber    int32  `parquet:"month_number"`
	Quarter        int32  `parquet:"quarter"`
	Year           int32  `parquet:"year"`
	IsWeekend      bool   `parquet:"is_weekend"`
}

func newPriceRecord(p models.PriceFact) priceRecord {
	return priceRecord{
		Date:   p.Date.Format(models.DateLayout),
		Symbol: p.Symbol,
		Open:   p.Open.String(),
		High:   p.High.String(),
		Low:    p.Low.String(),
		Close:  p.Close.String(),
		Volume: p.Volume,
	}
}

func (r priceRecord) fact() (models.PriceFact, error) {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.PriceFact{}, fmt.Errorf("staged price for %s: %w", r.Symbol, err)
	}
	var prices [4]decimal.Decimal
	for i, v := range []string{r.Open, r.High, r.Low, r.Close} {
		if prices[i], err = decimal.NewFromString(v); err != nil {
			return models.PriceFact{}, fmt.Errorf("staged price for %s on %s: %w", r.Symbol, r.Date, err)
		}
	}
	return models.PriceFact{
		Date:   date,
		Symbol: r.Symbol,
		Open:   prices[0],
		High:   prices[1],
		Low:    prices[2],
		Close:  prices[3],
		Volume: r.Volume,
	}, nil
}

func newProfileRecord(p models.StockProfile) profileRecord {
	return profileRecord(p)
}

func (r profileRecord) profile() models.StockProfile {
	return models.StockProfile(r)
}

func newCalendarRecord(d models.CalendarDay) calendarRecord {
	return calendarRecord{
		Date:           d.Date.Format(models.DateLayout),
		DayOfWeek:      d.DayOfWeek,
		DayOfWeekShort: d.DayOfWeekShort,
		DayOfMonth:     int32(d.DayOfMonth),
		DayOfYear:      int32(d.DayOfYear),
		WeekOfYear:     int32(d.WeekOfYear),
		Month:          d.Month,
		MonthShort:     d.MonthShort,
		MonthNumber:    int32(d.MonthNumber),
		Quarter:        int32(d.Quarter),
		Year:           int32(d.Year),
		IsWeekend:      d.IsWeekend,
	}
}

func (r calendarRecord) day() (models.CalendarDay, error) {
	date, err := models.ParseDate(r.Date)
	if err != nil {
		return models.CalendarDay{}, fmt.Errorf("staged calendar row: %w", err)
	}
	return models.CalendarDay{
		Date:           date,
		DayOfWeek:      r.DayOfWeek,
		DayOfWeekShort: r.DayOfWeekShort,
		DayOfMonth:     int(r.DayOfMonth),
		DayOfYear:      int(r.DayOfYear),
		WeekOfYear:     int(r.WeekOfYear),
		Month:          r.Month,
		MonthShort:     r.MonthShort,
		MonthNumber:    int(r.MonthNumber),
		Quarter:        int(r.Quarter),
		Year:           int(r.Year),
		IsWeekend:      r.IsWeekend,
	}, nil
}
