// Package attributes derives per-transaction analytics from daily price facts.
package attributes

import (
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// MovingAverageWindow is the number of rows in the trailing volume mean
const MovingAverageWindow = 5

// Compute derives one PriceAttributes per fact. Facts are treated as a single
// ordered set: volume change and moving average look at neighbouring rows of
// the slice, not at the symbol's own history.
func Compute(facts []models.PriceFact) []models.PriceAttributes {
	out := make([]models.PriceAttributes, 0, len(facts))
	for i, f := range facts {
		priceRange := f.High.Sub(f.Low)
		priceChange := f.Close.Sub(f.Open)

		a := models.PriceAttributes{
			TransactionID: f.ID,
			Date:          f.Date,
			Symbol:        f.Symbol,
			PriceRange:    priceRange,
			PriceChange:   priceChange,
			HighOpenDiff:  f.High.Sub(f.Open),
			LowCloseDiff:  f.Low.Sub(f.Close),
		}

		if !f.Open.IsZero() {
			a.PriceChangePct = ratio(priceChange.InexactFloat64()*100, f.Open.InexactFloat64())
		}
		if !f.Close.IsZero() {
			a.PriceVolatility = ratio(priceRange.InexactFloat64(), f.Close.InexactFloat64())
		}

		if i == 0 {
			zero := 0.0
			a.VolumeChange = &zero
		} else if prev := facts[i-1].Volume; prev != 0 {
			a.VolumeChange = ratio(float64(f.Volume-prev), float64(prev))
		}

		a.VolumeMovingAvg = movingAverage(facts, i)
		out = append(out, a)
	}
	return out
}

func ratio(num, den float64) *float64 {
	if den == 0 {
		return nil
	}
	v := num / den
	return &v
}

// movingAverage is the mean volume of rows i-4..i, or 0 when fewer than
// MovingAverageWindow rows are available.
func movingAverage(facts []models.PriceFact, i int) float64 {
	if i+1 < MovingAverageWindow {
		return 0
	}
	var sum float64
	for _, f := range facts[i+1-MovingAverageWindow : i+1] {
		sum += float64(f.Volume)
	}
	return sum / MovingAverageWindow
}
