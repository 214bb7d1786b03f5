// Package staging keeps the cumulative, deduplicated silver snapshots that feed
// the warehouse loaders. Each entity lives in a single parquet file that is
// rewritten wholesale on every successful merge.
package staging

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/parquet-go/parquet-go"
	"github.com/sirupsen/logrus"
	"github.com/trogers1052/stock-warehouse/internal/models"
)

// Entity names one staged snapshot
type Entity string

const (
	EntityPrices   Entity = "prices"
	EntityProfiles Entity = "profiles"
	EntityCalendar Entity = "calendar"
)

// ErrInvalidRecord is returned when a batch row fails schema validation
var ErrInvalidRecord = errors.New("invalid staged record")

// MergeResult describes the effect of one merge call
type MergeResult struct {
	Entity  Entity
	Added   int
	Total   int
	Created bool
}

// Store is a directory of parquet snapshots. Each merge holds mu from the
// snapshot read until the rename.
type Store struct {
	dir string
	log logrus.FieldLogger
	mu  sync.Mutex
}

// NewStore opens (and creates if needed) a staging directory
func NewStore(dir string, log logrus.FieldLogger) (*Store, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create staging dir %s: %w", dir, err)
	}
	return &Store{dir: dir, log: log}, nil
}

// Path returns the snapshot file for an entity
func (s *Store) Path(e Entity) string {
	return filepath.Join(s.dir, fmt.Sprintf("%s.%s.parquet", e, SchemaVersion))
}

// MergePrices appends price facts whose date is not yet staged.
//
// Duplicate detection is by date only: once any symbol is staged for a date,
// every other symbol arriving later for that date is dropped.
func (s *Store) MergePrices(ctx context.Context, batch []models.PriceFact) (MergeResult, error) {
	res := MergeResult{Entity: EntityPrices}
	incoming := make([]priceRecord, 0, len(batch))
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return res, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
		incoming = append(incoming, newPriceRecord(batch[i]))
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := readSnapshot[priceRecord](s.Path(EntityPrices))
	if err != nil {
		return res, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Date] = struct{}{}
	}
	var added []priceRecord
	for _, r := range incoming {
		if _, dup := seen[r.Date]; dup {
			continue
		}
		added = append(added, r)
	}

	return commitRows(ctx, s, EntityPrices, res, existing, added, found)
}

// MergeProfiles appends profiles that do not exactly match a staged row
func (s *Store) MergeProfiles(ctx context.Context, batch []models.StockProfile) (MergeResult, error) {
	res := MergeResult{Entity: EntityProfiles}
	for i := range batch {
		if err := batch[i].Validate(); err != nil {
			return res, fmt.Errorf("%w: %v", ErrInvalidRecord, err)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := readSnapshot[profileRecord](s.Path(EntityProfiles))
	if err != nil {
		return res, err
	}

	seen := make(map[profileRecord]struct{}, len(existing))
	for _, r := range existing {
		seen[r] = struct{}{}
	}
	var added []profileRecord
	for _, p := range batch {
		r := newProfileRecord(p)
		if _, dup := seen[r]; dup {
			continue
		}
		seen[r] = struct{}{}
		added = append(added, r)
	}

	return commitRows(ctx, s, EntityProfiles, res, existing, added, found)
}

// MergeCalendar appends calendar rows for dates not yet staged
func (s *Store) MergeCalendar(ctx context.Context, days []models.CalendarDay) (MergeResult, error) {
	res := MergeResult{Entity: EntityCalendar}
	for _, d := range days {
		if d.Date.IsZero() {
			return res, fmt.Errorf("%w: calendar row has no date", ErrInvalidRecord)
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	existing, found, err := readSnapshot[calendarRecord](s.Path(EntityCalendar))
	if err != nil {
		return res, err
	}

	seen := make(map[string]struct{}, len(existing))
	for _, r := range existing {
		seen[r.Date] = struct{}{}
	}
	var added []calendarRecord
	for _, d := range days {
		r := newCalendarRecord(d)
		if _, dup := seen[r.Date]; dup {
			continue
		}
		seen[r.Date] = struct{}{}
		added = append(added, r)
	}

	return commitRows(ctx, s, EntityCalendar, res, existing, added, found)
}

func (s *Store) logMerge(e Entity, added int, found bool) {
	log := s.log.WithField("entity", e)
	switch {
	case added == 0:
		log.Info("No new rows staged; data already present")
	case !found:
		log.WithField("rows", added).Info("Staging snapshot created with initial data")
	default:
		log.WithField("rows", added).Info("New rows added to staging snapshot")
	}
}

func commitRows[T any](ctx context.Context, s *Store, e Entity, res MergeResult, existing, added []T, found bool) (MergeResult, error) {
	res.Total = len(existing)
	if len(added) == 0 {
		s.logMerge(e, len(added), found)
		return res, nil
	}
	if err := ctx.Err(); err != nil {
		return res, fmt.Errorf("staging merge for %s aborted: %w", e, err)
	}

	snapshot := make([]T, 0, len(existing)+len(added))
	snapshot = append(snapshot, existing...)
	snapshot = append(snapshot, added...)
	if err := writeSnapshot(s.dir, s.Path(e), snapshot); err != nil {
		return res, err
	}

	res.Added = len(added)
	res.Total = len(snapshot)
	res.Created = !found
	s.logMerge(e, len(added), found)
	return res, nil
}

// Prices returns every staged price fact in staging order
func (s *Store) Prices(ctx context.Context) ([]models.PriceFact, error) {
	records, _, err := readSnapshot[priceRecord](s.Path(EntityPrices))
	if err != nil {
		return nil, err
	}
	facts := make([]models.PriceFact, 0, len(records))
	for _, r := range records {
		f, err := r.fact()
		if err != nil {
			return nil, err
		}
		facts = append(facts, f)
	}
	return facts, nil
}

// Profiles returns every staged profile row in staging order
func (s *Store) Profiles(ctx context.Context) ([]models.StockProfile, error) {
	records, _, err := readSnapshot[profileRecord](s.Path(EntityProfiles))
	if err != nil {
		return nil, err
	}
	profiles := make([]models.StockProfile, 0, len(records))
	for _, r := range records {
		profiles = append(profiles, r.profile())
	}
	return profiles, nil
}

// LatestProfiles returns the most recently staged profile of each symbol,
// ordered by first appearance of the symbol
func (s *Store) LatestProfiles(ctx context.Context) ([]models.StockProfile, error) {
	all, err := s.Profiles(ctx)
	if err != nil {
		return nil, err
	}
	index := make(map[string]int)
	var latest []models.StockProfile
	for _, p := range all {
		if i, ok := index[p.Symbol]; ok {
			latest[i] = p
			continue
		}
		index[p.Symbol] = len(latest)
		latest = append(latest, p)
	}
	return latest, nil
}

// Calendar returns every staged calendar row
func (s *Store) Calendar(ctx context.Context) ([]models.CalendarDay, error) {
	records, _, err := readSnapshot[calendarRecord](s.Path(EntityCalendar))
	if err != nil {
		return nil, err
	}
	days := make([]models.CalendarDay, 0, len(records))
	for _, r := range records {
		d, err := r.day()
		if err != nil {
			return nil, err
		}
		days = append(days, d)
	}
	return days, nil
}

func readSnapshot[T any](path string) ([]T, bool, error) {
	if _, err := os.Stat(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, false, nil
		}
		return nil, false, fmt.Errorf("failed to stat snapshot %s: %w", path, err)
	}
	rows, err := parquet.ReadFile[T](path)
	if err != nil {
		return nil, true, fmt.Errorf("failed to read snapshot %s: %w", path, err)
	}
	return rows, true, nil
}

// writeSnapshot writes rows to a temp file and renames it over path, so a
// failed write never leaves a partial snapshot behind.
func writeSnapshot[T any](dir, path string, rows []T) error {
	tmp, err := os.CreateTemp(dir, ".staging-*.parquet")
	if err != nil {
		return fmt.Errorf("failed to create temp snapshot: %w", err)
	}
	tmpName := tmp.Name()
	defer os.Remove(tmpName)

	if err := parquet.Write(tmp, rows); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to write snapshot %s: %w", path, err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("failed to sync snapshot %s: %w", path, err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("failed to close snapshot %s: %w", path, err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("failed to replace snapshot %s: %w", path, err)
	}
	return nil
}
