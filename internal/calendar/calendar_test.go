package calendar

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDay(t *testing.T) {
	t.Run("weekday in first quarter", func(t *testing.T) {
		day := Day(time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC))

		assert.Equal(t, "Monday", day.DayOfWeek)
		assert.Equal(t, "Mon", day.DayOfWeekShort)
		assert.Equal(t, 15, day.DayOfMonth)
		assert.Equal(t, 15, day.DayOfYear)
		assert.Equal(t, 3, day.WeekOfYear)
		assert.Equal(t, "January", day.Month)
		assert.Equal(t, "Jan", day.MonthShort)
		assert.Equal(t, 1, day.MonthNumber)
		assert.Equal(t, 1, day.Quarter)
		assert.Equal(t, 2024, day.Year)
		assert.False(t, day.IsWeekend)
	})

	t.Run("saturday and sunday are weekend", func(t *testing.T) {
		assert.True(t, Day(time.Date(2024, 6, 15, 0, 0, 0, 0, time.UTC)).IsWeekend)
		assert.True(t, Day(time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC)).IsWeekend)
		assert.False(t, Day(time.Date(2024, 6, 14, 0, 0, 0, 0, time.UTC)).IsWeekend)
	})

	t.Run("leap year day of year and fourth quarter", func(t *testing.T) {
		day := Day(time.Date(2024, 12, 31, 0, 0, 0, 0, time.UTC))

		assert.Equal(t, 366, day.DayOfYear)
		assert.Equal(t, 4, day.Quarter)
		assert.Equal(t, "Dec", day.MonthShort)
		// Dec 31 2024 belongs to ISO week 1 of 2025
		assert.Equal(t, 1, day.WeekOfYear)
		assert.Equal(t, 2024, day.Year)
	})

	t.Run("clock component is dropped", func(t *testing.T) {
		day := Day(time.Date(2024, 3, 1, 17, 45, 0, 0, time.UTC))
		assert.Equal(t, time.Date(2024, 3, 1, 0, 0, 0, 0, time.UTC), day.Date)
		assert.Equal(t, 1, day.Quarter)
	})
}

func TestDerive(t *testing.T) {
	t.Run("deduplicates and sorts dates", func(t *testing.T) {
		days := Derive([]time.Time{
			time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 17, 0, 0, 0, 0, time.UTC),
			time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC),
		})

		require.Len(t, days, 3)
		assert.Equal(t, 15, days[0].DayOfMonth)
		assert.Equal(t, 16, days[1].DayOfMonth)
		assert.Equal(t, 17, days[2].DayOfMonth)
	})

	t.Run("empty input gives empty output", func(t *testing.T) {
		assert.Empty(t, Derive(nil))
	})
}
