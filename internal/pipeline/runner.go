// Package pipeline runs the staging, dimension, fact and attribute steps
// for a single run date.
package pipeline

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/bronze"
	"github.com/trogers1052/stock-warehouse/internal/calendar"
	"github.com/trogers1052/stock-warehouse/internal/database"
	"github.com/trogers1052/stock-warehouse/internal/models"
	"github.com/trogers1052/stock-warehouse/internal/runlock"
	"github.com/trogers1052/stock-warehouse/internal/staging"
)

// Fetcher collects the bronze batch of a date
type Fetcher interface {
	Collect(ctx context.Context, symbols []string, date time.Time) (*bronze.Batch, error)
}

// Stager is the columnar staging store
type Stager interface {
	MergePrices(ctx context.Context, batch []models.PriceFact) (staging.MergeResult, error)
	MergeProfiles(ctx context.Context, batch []models.StockProfile) (staging.MergeResult, error)
	MergeCalendar(ctx context.Context, days []models.CalendarDay) (staging.MergeResult, error)
	Prices(ctx context.Context) ([]models.PriceFact, error)
	LatestProfiles(ctx context.Context) ([]models.StockProfile, error)
	Calendar(ctx context.Context) ([]models.CalendarDay, error)
}

// Warehouse is the relational target
type Warehouse interface {
	MergeStockProfiles(ctx context.Context, profiles []models.StockProfile, asOf time.Time) (database.MergeStats, error)
	LoadCalendar(ctx context.Context, days []models.CalendarDay) (database.LoadResult, error)
	LoadPriceFacts(ctx context.Context, facts []models.PriceFact) (database.LoadResult, error)
	RecomputeAttributes(ctx context.Context, date time.Time) (int, error)
}

// Lock is a held run lock
type Lock interface {
	Release(ctx context.Context) error
}

// Locker serializes runs of the same date
type Locker interface {
	Acquire(ctx context.Context, date time.Time) (Lock, error)
}

// Publisher announces run outcomes
type Publisher interface {
	PublishRunCompleted(ctx context.Context, summary *models.RunSummary) error
	PublishRunFailed(ctx context.Context, runID, runDate string, runErr error) error
}

// Config holds run settings
type Config struct {
	Symbols []string
	Timeout time.Duration
}

// Runner executes one run per call
type Runner struct {
	cfg       Config
	fetcher   Fetcher
	stager    Stager
	warehouse Warehouse
	locker    Locker
	publisher Publisher
	now       func() time.Time
	log       logrus.FieldLogger
}

// Option customises a Runner
type Option func(*Runner)

// WithLocker serializes same-date runs through l
func WithLocker(l Locker) Option {
	return func(r *Runner) { r.locker = l }
}

// WithRedisLock serializes same-date runs through a Redis lock
func WithRedisLock(l *runlock.Locker) Option {
	return WithLocker(redisLocker{l})
}

// WithPublisher publishes run events through p
func WithPublisher(p Publisher) Option {
	return func(r *Runner) { r.publisher = p }
}

// WithClock overrides the wall clock used as the dimension effective date
func WithClock(now func() time.Time) Option {
	return func(r *Runner) { r.now = now }
}

// NewRunner creates a new run executor
func NewRunner(cfg Config, fetcher Fetcher, stager Stager, warehouse Warehouse, log logrus.FieldLogger, opts ...Option) *Runner {
	r := &Runner{
		cfg:       cfg,
		fetcher:   fetcher,
		stager:    stager,
		warehouse: warehouse,
		now:       time.Now,
		log:       log,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run processes exactly one date. Steps run in order and the first error
// aborts the run; warehouse steps each commit in their own transaction.
func (r *Runner) Run(ctx context.Context, date time.Time) (*models.RunSummary, error) {
	date = models.TruncateDate(date)
	runID := uuid.NewString()
	runDate := date.Format(models.DateLayout)
	log := r.log.WithFields(logrus.Fields{"run_id": runID, "date": runDate})

	if r.cfg.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.cfg.Timeout)
		defer cancel()
	}

	if r.locker != nil {
		lock, err := r.locker.Acquire(ctx, date)
		if err != nil {
			log.WithError(err).Warn("Could not acquire run lock")
			return nil, err
		}
		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
			defer cancel()
			if err := lock.Release(releaseCtx); err != nil {
				log.WithError(err).Warn("Failed to release run lock")
			}
		}()
	}

	log.Info("Run started")
	summary, err := r.execute(ctx, log, date)
	if err != nil {
		log.WithError(err).Error("Run failed")
		r.publishFailed(log, runID, runDate, err)
		return nil, err
	}
	summary.RunID = runID
	summary.RunDate = runDate

	log.WithFields(logrus.Fields{
		"facts":      summary.FactsLoaded,
		"attributes": summary.AttributesWritten,
	}).Info("Run completed")
	r.publishCompleted(log, summary)
	return summary, nil
}

func (r *Runner) execute(ctx context.Context, log logrus.FieldLogger, date time.Time) (*models.RunSummary, error) {
	summary := &models.RunSummary{}

	batch, err := r.fetcher.Collect(ctx, r.cfg.Symbols, date)
	if err != nil {
		return nil, fmt.Errorf("bronze: %w", err)
	}
	summary.SymbolsFetched = len(batch.Prices)

	prices, err := r.stager.MergePrices(ctx, batch.Prices)
	if err != nil {
		return nil, fmt.Errorf("staging prices: %w", err)
	}
	summary.StagedPrices = prices.Added

	profiles, err := r.stager.MergeProfiles(ctx, batch.Profiles)
	if err != nil {
		return nil, fmt.Errorf("staging profiles: %w", err)
	}
	summary.StagedProfiles = profiles.Added

	staged, err := r.stager.Prices(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading staged prices: %w", err)
	}
	dates := make([]time.Time, len(staged))
	for i, p := range staged {
		dates[i] = p.Date
	}
	days, err := r.stager.MergeCalendar(ctx, calendar.Derive(dates))
	if err != nil {
		return nil, fmt.Errorf("staging calendar: %w", err)
	}
	summary.StagedDates = days.Added

	latest, err := r.stager.LatestProfiles(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading staged profiles: %w", err)
	}
	stats, err := r.warehouse.MergeStockProfiles(ctx, dimensionInput(batch.Profiles, latest), r.now())
	if err != nil {
		return nil, fmt.Errorf("stock dimension: %w", err)
	}
	summary.VersionsAdded = stats.Added
	summary.VersionsClosed = stats.Updated

	stagedDays, err := r.stager.Calendar(ctx)
	if err != nil {
		return nil, fmt.Errorf("reading staged calendar: %w", err)
	}
	calRes, err := r.warehouse.LoadCalendar(ctx, stagedDays)
	if err != nil {
		return nil, fmt.Errorf("date table: %w", err)
	}
	summary.DatesLoaded = calRes.Inserted

	factRes, err := r.warehouse.LoadPriceFacts(ctx, staged)
	if err != nil {
		return nil, fmt.Errorf("price facts: %w", err)
	}
	summary.FactsLoaded = factRes.Inserted

	written, err := r.warehouse.RecomputeAttributes(ctx, date)
	if err != nil {
		return nil, fmt.Errorf("attributes: %w", err)
	}
	summary.AttributesWritten = written

	if factRes.NoNewData() {
		log.Info("Fact table already up to date")
	}
	return summary, nil
}

// dimensionInput prefers the profiles fetched for this run over staged ones.
// Staging drops a row equal to any earlier row, so a profile that reverts to
// an older value only shows up in the fetched batch.
func dimensionInput(fetched, staged []models.StockProfile) []models.StockProfile {
	index := make(map[string]int, len(fetched))
	out := make([]models.StockProfile, 0, len(fetched)+len(staged))
	for _, p := range fetched {
		if i, ok := index[p.Symbol]; ok {
			out[i] = p
			continue
		}
		index[p.Symbol] = len(out)
		out = append(out, p)
	}
	for _, p := range staged {
		if _, ok := index[p.Symbol]; ok {
			continue
		}
		index[p.Symbol] = len(out)
		out = append(out, p)
	}
	return out
}

func (r *Runner) publishCompleted(log logrus.FieldLogger, summary *models.RunSummary) {
	if r.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.publisher.PublishRunCompleted(ctx, summary); err != nil {
		log.WithError(err).Warn("Failed to publish run completed event")
	}
}

func (r *Runner) publishFailed(log logrus.FieldLogger, runID, runDate string, runErr error) {
	if r.publisher == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := r.publisher.PublishRunFailed(ctx, runID, runDate, runErr); err != nil {
		log.WithError(err).Warn("Failed to publish run failed event")
	}
}

type redisLocker struct {
	l *runlock.Locker
}

func (r redisLocker) Acquire(ctx context.Context, date time.Time) (Lock, error) {
	lock, err := r.l.Acquire(ctx, date)
	if err != nil {
		return nil, err
	}
	return lock, nil
}
