package pipeline

import (
	"context"
	"errors"
	"io"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/trogers1052/stock-warehouse/internal/bronze"
	"github.com/trogers1052/stock-warehouse/internal/database"
	"github.com/trogers1052/stock-warehouse/internal/models"
	"github.com/trogers1052/stock-warehouse/internal/staging"
)

var (
	runDate = time.Date(2024, 1, 15, 0, 0, 0, 0, time.UTC)
	wallNow = time.Date(2024, 1, 16, 9, 30, 0, 0, time.UTC)
)

type calls []string

func (c *calls) add(name string) { *c = append(*c, name) }

type fakeFetcher struct {
	log   *calls
	batch *bronze.Batch
	err   error
}

func (f *fakeFetcher) Collect(_ context.Context, symbols []string, date time.Time) (*bronze.Batch, error) {
	f.log.add("collect")
	return f.batch, f.err
}

type fakeStager struct {
	log      *calls
	prices   []models.PriceFact
	profiles []models.StockProfile
	days     []models.CalendarDay
	err      map[string]error
}

func (s *fakeStager) MergePrices(_ context.Context, batch []models.PriceFact) (staging.MergeResult, error) {
	s.log.add("stage_prices")
	s.prices = append(s.prices, batch...)
	return staging.MergeResult{Entity: staging.EntityPrices, Added: len(batch)}, s.err["stage_prices"]
}

func (s *fakeStager) MergeProfiles(_ context.Context, batch []models.StockProfile) (staging.MergeResult, error) {
	s.log.add("stage_profiles")
	s.profiles = append(s.profiles, batch...)
	return staging.MergeResult{Entity: staging.EntityProfiles, Added: len(batch)}, s.err["stage_profiles"]
}

func (s *fakeStager) MergeCalendar(_ context.Context, days []models.CalendarDay) (staging.MergeResult, error) {
	s.log.add("stage_calendar")
	s.days = days
	return staging.MergeResult{Entity: staging.EntityCalendar, Added: len(days)}, s.err["stage_calendar"]
}

func (s *fakeStager) Prices(context.Context) ([]models.PriceFact, error) {
	return s.prices, nil
}

func (s *fakeStager) LatestProfiles(context.Context) ([]models.StockProfile, error) {
	return s.profiles, nil
}

func (s *fakeStager) Calendar(context.Context) ([]models.CalendarDay, error) {
	return s.days, nil
}

type fakeWarehouse struct {
	log      *calls
	asOf     time.Time
	profiles []models.StockProfile
	days     []models.CalendarDay
	facts    []models.PriceFact
	factErr  error
}

func (w *fakeWarehouse) MergeStockProfiles(_ context.Context, profiles []models.StockProfile, asOf time.Time) (database.MergeStats, error) {
	w.log.add("merge_dimension")
	w.asOf = asOf
	w.profiles = profiles
	return database.MergeStats{Added: len(profiles)}, nil
}

func (w *fakeWarehouse) LoadCalendar(_ context.Context, days []models.CalendarDay) (database.LoadResult, error) {
	w.log.add("load_calendar")
	w.days = days
	return database.LoadResult{Status: database.LoadStatusAppended, Inserted: len(days)}, nil
}

func (w *fakeWarehouse) LoadPriceFacts(_ context.Context, facts []models.PriceFact) (database.LoadResult, error) {
	w.log.add("load_facts")
	if w.factErr != nil {
		return database.LoadResult{}, w.factErr
	}
	w.facts = facts
	return database.LoadResult{Status: database.LoadStatusAppended, Inserted: len(facts)}, nil
}

func (w *fakeWarehouse) RecomputeAttributes(_ context.Context, date time.Time) (int, error) {
	w.log.add("attributes")
	return len(w.facts), nil
}

type fakeLock struct{ released bool }

func (l *fakeLock) Release(context.Context) error {
	l.released = true
	return nil
}

type fakeLocker struct {
	lock *fakeLock
	err  error
}

func (l *fakeLocker) Acquire(context.Context, time.Time) (Lock, error) {
	if l.err != nil {
		return nil, l.err
	}
	l.lock = &fakeLock{}
	return l.lock, nil
}

type fakePublisher struct {
	completed []*models.RunSummary
	failed    []string
}

func (p *fakePublisher) PublishRunCompleted(_ context.Context, s *models.RunSummary) error {
	p.completed = append(p.completed, s)
	return nil
}

func (p *fakePublisher) PublishRunFailed(_ context.Context, runID, runDate string, runErr error) error {
	p.failed = append(p.failed, runErr.Error())
	return nil
}

func quietLogger() logrus.FieldLogger {
	l := logrus.New()
	l.SetOutput(io.Discard)
	return l
}

func fact(symbol string) models.PriceFact {
	return models.PriceFact{
		Date: runDate, Symbol: symbol,
		Open: decimal.NewFromInt(150), High: decimal.NewFromInt(155),
		Low: decimal.NewFromInt(148), Close: decimal.NewFromInt(152), Volume: 1200000,
	}
}

type harness struct {
	log       *calls
	fetcher   *fakeFetcher
	stager    *fakeStager
	warehouse *fakeWarehouse
	locker    *fakeLocker
	publisher *fakePublisher
	runner    *Runner
}

func newHarness() *harness {
	log := &calls{}
	h := &harness{
		log: log,
		fetcher: &fakeFetcher{log: log, batch: &bronze.Batch{
			Date:     runDate,
			Prices:   []models.PriceFact{fact("AAPL"), fact("MSFT")},
			Profiles: []models.StockProfile{{Symbol: "AAPL", Name: "Apple Inc"}},
		}},
		stager:    &fakeStager{log: log, err: map[string]error{}},
		warehouse: &fakeWarehouse{log: log},
		locker:    &fakeLocker{},
		publisher: &fakePublisher{},
	}
	h.runner = NewRunner(
		Config{Symbols: []string{"AAPL", "MSFT"}, Timeout: time.Minute},
		h.fetcher, h.stager, h.warehouse, quietLogger(),
		WithLocker(h.locker),
		WithPublisher(h.publisher),
		WithClock(func() time.Time { return wallNow }),
	)
	return h
}

func TestRun_ExecutesStepsInOrder(t *testing.T) {
	h := newHarness()

	summary, err := h.runner.Run(context.Background(), runDate)
	require.NoError(t, err)

	assert.Equal(t, calls{
		"collect", "stage_prices", "stage_profiles", "stage_calendar",
		"merge_dimension", "load_calendar", "load_facts", "attributes",
	}, *h.log)

	assert.Equal(t, "2024-01-15", summary.RunDate)
	assert.NotEmpty(t, summary.RunID)
	assert.Equal(t, 2, summary.SymbolsFetched)
	assert.Equal(t, 2, summary.FactsLoaded)
	assert.Equal(t, 1, summary.StagedDates)
	assert.Equal(t, 1, summary.DatesLoaded)
	assert.Equal(t, 2, summary.AttributesWritten)
	assert.Equal(t, 1, summary.VersionsAdded)

	// dimension effective date is the wall clock, not the run date
	assert.Equal(t, wallNow, h.warehouse.asOf)
	require.Len(t, h.warehouse.days, 1)
	assert.Equal(t, runDate, h.warehouse.days[0].Date)

	assert.True(t, h.locker.lock.released)
	require.Len(t, h.publisher.completed, 1)
	assert.Equal(t, summary.RunID, h.publisher.completed[0].RunID)
	assert.Empty(t, h.publisher.failed)
}

func TestRun_TotalBronzeFailureWritesNothing(t *testing.T) {
	h := newHarness()
	h.fetcher.batch = nil
	h.fetcher.err = bronze.ErrNoPriceData

	summary, err := h.runner.Run(context.Background(), runDate)
	require.ErrorIs(t, err, bronze.ErrNoPriceData)
	assert.Nil(t, summary)

	assert.Equal(t, calls{"collect"}, *h.log)
	assert.True(t, h.locker.lock.released)
	require.Len(t, h.publisher.failed, 1)
	assert.Contains(t, h.publisher.failed[0], "no price data")
}

func TestRun_StagingFailureStopsBeforeWarehouse(t *testing.T) {
	h := newHarness()
	h.stager.err["stage_profiles"] = errors.New("disk full")

	_, err := h.runner.Run(context.Background(), runDate)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "staging profiles")
	assert.Equal(t, calls{"collect", "stage_prices", "stage_profiles"}, *h.log)
}

func TestRun_FactLoadFailureSkipsAttributes(t *testing.T) {
	h := newHarness()
	h.warehouse.factErr = errors.New("connection reset")

	_, err := h.runner.Run(context.Background(), runDate)
	require.Error(t, err)
	assert.NotContains(t, *h.log, "attributes")
	require.Len(t, h.publisher.failed, 1)
}

func TestRun_LockedDateDoesNotRun(t *testing.T) {
	h := newHarness()
	h.locker.err = errors.New("run already in progress for date 2024-01-15")

	_, err := h.runner.Run(context.Background(), runDate)
	require.Error(t, err)
	assert.Empty(t, *h.log)
	assert.Empty(t, h.publisher.failed)
}

func TestRun_WithoutOptionalCollaborators(t *testing.T) {
	log := &calls{}
	runner := NewRunner(
		Config{Symbols: []string{"AAPL"}},
		&fakeFetcher{log: log, batch: &bronze.Batch{Prices: []models.PriceFact{fact("AAPL")}}},
		&fakeStager{log: log, err: map[string]error{}},
		&fakeWarehouse{log: log},
		quietLogger(),
	)

	summary, err := runner.Run(context.Background(), runDate.Add(13*time.Hour))
	require.NoError(t, err)
	assert.Equal(t, "2024-01-15", summary.RunDate)
}

func TestRun_RevertedProfileReachesDimension(t *testing.T) {
	h := newHarness()
	store, err := staging.NewStore(t.TempDir(), quietLogger())
	require.NoError(t, err)
	h.runner.stager = store

	for _, name := range []string{"Apple Inc", "Apple Computer", "Apple Inc"} {
		h.fetcher.batch.Profiles = []models.StockProfile{{Symbol: "AAPL", Name: name}}
		_, err := h.runner.Run(context.Background(), runDate)
		require.NoError(t, err)
	}

	require.Len(t, h.warehouse.profiles, 1)
	assert.Equal(t, "Apple Inc", h.warehouse.profiles[0].Name)
}

func TestDimensionInput(t *testing.T) {
	fetched := []models.StockProfile{
		{Symbol: "AAPL", Name: "Apple Inc"},
		{Symbol: "MSFT", Name: "Microsoft"},
		{Symbol: "AAPL", Name: "Apple"},
	}
	staged := []models.StockProfile{
		{Symbol: "TSLA", Name: "Tesla"},
		{Symbol: "AAPL", Name: "Apple Computer"},
	}

	got := dimensionInput(fetched, staged)
	assert.Equal(t, []models.StockProfile{
		{Symbol: "AAPL", Name: "Apple"},
		{Symbol: "MSFT", Name: "Microsoft"},
		{Symbol: "TSLA", Name: "Tesla"},
	}, got)

	assert.Empty(t, dimensionInput(nil, nil))
}
