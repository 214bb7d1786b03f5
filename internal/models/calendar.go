package models

import "time"

// CalendarDay holds the calendar attributes of a single date
type CalendarDay struct {
	Date           time.Time `json:"date"`
	DayOfWeek      string    `json:"day_of_week"`
	DayOfWeekShort string    `json:"day_of_week_short"`
	DayOfMonth     int       `json:"day_of_month"`
	DayOfYear      int       `json:"day_of_year"`
	WeekOfYear     int       `json:"week_of_year"`
	Month          string    `json:"month"`
	MonthShort     string    `json:"month_short"`
	MonthNumber    int       `json:"month_number"`
	Quarter        int       `json:"quarter"`
	Year           int       `json:"year"`
	IsWeekend      bool      `json:"is_weekend"`
}
