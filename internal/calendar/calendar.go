// Package calendar expands trading dates into calendar dimension rows.
package calendar

import (
	"sort"
	"time"

	"github.com/trogers1052/stock-warehouse/internal/models"
)

// Derive returns one CalendarDay per distinct date, sorted ascending
func Derive(dates []time.Time) []models.CalendarDay {
	seen := make(map[time.Time]struct{}, len(dates))
	unique := make([]time.Time, 0, len(dates))
	for _, d := range dates {
		d = models.TruncateDate(d)
		if _, ok := seen[d]; ok {
			continue
		}
		seen[d] = struct{}{}
		unique = append(unique, d)
	}
	sort.Slice(unique, func(i, j int) bool { return unique[i].Before(unique[j]) })

	days := make([]models.CalendarDay, 0, len(unique))
	for _, d := range unique {
		days = append(days, Day(d))
	}
	return days
}

// Day computes the calendar attributes of a single date
func Day(d time.Time) models.CalendarDay {
	d = models.TruncateDate(d)
	_, week := d.ISOWeek()
	month := int(d.Month())

	return models.CalendarDay{
		Date:           d,
		DayOfWeek:      d.Weekday().String(),
		DayOfWeekShort: d.Format("Mon"),
		DayOfMonth:     d.Day(),
		DayOfYear:      d.YearDay(),
		WeekOfYear:     week,
		Month:          d.Month().String(),
		MonthShort:     d.Format("Jan"),
		MonthNumber:    month,
		Quarter:        (month-1)/3 + 1,
		Year:           d.Year(),
		IsWeekend:      mondayIndex(d.Weekday()) >= 5,
	}
}

// mondayIndex maps Monday..Sunday to 0..6
func mondayIndex(wd time.Weekday) int {
	return (int(wd) + 6) % 7
}
