// Package stats keeps the persisted daily focus counters.
package stats

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/store"
)

// Key is the single storage key holding the daily stats record.
const Key = "pomodoroStats"

// ErrPersist marks a failed write. The in-memory value is still updated.
var ErrPersist = errors.New("persist daily stats")

// Store loads and updates DailyStats. It has exactly one writer and is not
// safe for concurrent use.
type Store struct {
	kv      store.KV
	now     func() time.Time
	logger  *slog.Logger
	current domain.DailyStats
}

// Option configures a Store.
type Option func(*Store)

// WithClock overrides the wall clock used to determine "today".
func WithClock(now func() time.Time) Option {
	return func(s *Store) { s.now = now }
}

// WithLogger sets the logger used for persistence warnings.
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) { s.logger = logger }
}

// New creates a Store over kv. Call Load before use.
func New(kv store.KV, opts ...Option) *Store {
	s := &Store{
		kv:     kv,
		now:    time.Now,
		logger: slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.current = domain.NewDailyStats(s.now())
	return s
}

// Load reads the persisted stats. Missing or unreadable records yield zeroed
// stats for today; a record from another day is replaced with zeroed stats
// and written back.
func (s *Store) Load(ctx context.Context) domain.DailyStats {
	today := s.now()
	fresh := domain.NewDailyStats(today)

	raw, err := s.kv.Get(ctx, Key)
	if err != nil {
		if !errors.Is(err, store.ErrNotFound) {
			s.logger.Warn("Failed to read daily stats, starting from zero", "error", err)
		}
		s.current = fresh
		return s.current
	}

	var saved domain.DailyStats
	if err := json.Unmarshal(raw, &saved); err != nil {
		s.logger.Warn("Discarding malformed daily stats record", "error", err)
		s.current = fresh
		return s.current
	}

	if !saved.IsFor(today) {
		s.logger.Info("New day, resetting daily stats",
			"last_session_date", saved.LastSessionDate,
			"today", fresh.LastSessionDate,
		)
		s.current = fresh
		if err := s.persist(ctx); err != nil {
			s.logger.Warn("Failed to overwrite stale daily stats", "error", err)
		}
		return s.current
	}

	s.current = saved
	return s.current
}

// RecordCompletedFocusSession credits one finished focus phase of the given
// length. The returned stats always reflect the increment; a non-nil error
// wraps ErrPersist and is a warning only.
func (s *Store) RecordCompletedFocusSession(ctx context.Context, minutes int) (domain.DailyStats, error) {
	s.current.SessionsToday++
	s.current.TotalMinutesToday += minutes
	s.current.LastSessionDate = s.now().Format(domain.DateLayout)

	if err := s.persist(ctx); err != nil {
		s.logger.Warn("Failed to persist daily stats",
			"error", err,
			"storage_conflict", store.IsConflict(err),
			"sessions_today", s.current.SessionsToday,
		)
		return s.current, err
	}
	return s.current, nil
}

// Clear deletes the persisted record and zeroes today's counters.
func (s *Store) Clear(ctx context.Context) error {
	s.current = domain.NewDailyStats(s.now())
	if err := s.kv.Delete(ctx, Key); err != nil {
		return fmt.Errorf("clear daily stats: %w", err)
	}
	return nil
}

// Current returns the in-memory stats.
func (s *Store) Current() domain.DailyStats {
	return s.current
}

func (s *Store) persist(ctx context.Context) error {
	data, err := json.Marshal(s.current)
	if err != nil {
		return fmt.Errorf("%w: marshal: %w", ErrPersist, err)
	}
	if err := s.kv.Put(ctx, Key, data); err != nil {
		return fmt.Errorf("%w: %w", ErrPersist, err)
	}
	return nil
}
