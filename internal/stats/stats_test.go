package stats

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/ashureev/focusbooster/internal/domain"
	"github.com/ashureev/focusbooster/internal/store"
)

type fakeKV struct {
	mu      sync.Mutex
	data    map[string][]byte
	getErr  error
	putErr  error
	putCall int
}

func newFakeKV() *fakeKV {
	return &fakeKV{data: make(map[string][]byte)}
}

func (f *fakeKV) Get(_ context.Context, key string) ([]byte, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.getErr != nil {
		return nil, f.getErr
	}
	v, ok := f.data[key]
	if !ok {
		return nil, store.ErrNotFound
	}
	return v, nil
}

func (f *fakeKV) Put(_ context.Context, key string, value []byte) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.putCall++
	if f.putErr != nil {
		return f.putErr
	}
	f.data[key] = value
	return nil
}

func (f *fakeKV) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.data, key)
	return nil
}

func (f *fakeKV) Ping(_ context.Context) error { return nil }
func (f *fakeKV) Close() error                 { return nil }

func (f *fakeKV) saved(t *testing.T) domain.DailyStats {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	var s domain.DailyStats
	if err := json.Unmarshal(f.data[Key], &s); err != nil {
		t.Fatalf("failed to decode saved stats: %v", err)
	}
	return s
}

func fixedDay(y int, m time.Month, d int) func() time.Time {
	return func() time.Time { return time.Date(y, m, d, 9, 30, 0, 0, time.Local) }
}

func TestLoadMissingRecordYieldsZero(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	got := s.Load(context.Background())
	want := domain.DailyStats{LastSessionDate: "2024-01-02"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadResetsOnNewDay(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key] = []byte(`{"sessionsToday":3,"totalMinutesToday":75,"lastSessionDate":"2024-01-01"}`)
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	got := s.Load(context.Background())
	want := domain.DailyStats{SessionsToday: 0, TotalMinutesToday: 0, LastSessionDate: "2024-01-02"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if saved := kv.saved(t); saved != want {
		t.Fatalf("expected stale record to be overwritten with %+v, got %+v", want, saved)
	}
}

func TestLoadZeroRecordFromPreviousDay(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key] = []byte(`{"sessionsToday":0,"totalMinutesToday":0,"lastSessionDate":"2024-01-01"}`)
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	got := s.Load(context.Background())
	want := domain.DailyStats{LastSessionDate: "2024-01-02"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestLoadSameDayKeepsCounters(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key] = []byte(`{"sessionsToday":2,"totalMinutesToday":50,"lastSessionDate":"2024-01-02"}`)
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	got := s.Load(context.Background())
	if got.SessionsToday != 2 || got.TotalMinutesToday != 50 {
		t.Fatalf("expected saved counters, got %+v", got)
	}
	if kv.putCall != 0 {
		t.Fatalf("same-day load must not write, got %d writes", kv.putCall)
	}
}

func TestLoadReadFailureDefaultsToZero(t *testing.T) {
	kv := newFakeKV()
	kv.getErr = errors.New("disk on fire")
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	got := s.Load(context.Background())
	if got.SessionsToday != 0 || got.TotalMinutesToday != 0 {
		t.Fatalf("expected zero stats on read failure, got %+v", got)
	}
}

func TestLoadMalformedRecordDefaultsToZero(t *testing.T) {
	kv := newFakeKV()
	kv.data[Key] = []byte(`{not json`)
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))

	if got := s.Load(context.Background()); got.SessionsToday != 0 {
		t.Fatalf("expected zero stats for malformed record, got %+v", got)
	}
}

func TestRecordCompletedFocusSession(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))
	s.Load(context.Background())

	got, err := s.RecordCompletedFocusSession(context.Background(), domain.FocusMinutes)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	want := domain.DailyStats{SessionsToday: 1, TotalMinutesToday: 25, LastSessionDate: "2024-01-02"}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if saved := kv.saved(t); saved != want {
		t.Fatalf("expected persisted %+v, got %+v", want, saved)
	}
}

func TestRecordPersistFailureKeepsMemory(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))
	s.Load(context.Background())
	kv.putErr = errors.New("database is locked")

	got, err := s.RecordCompletedFocusSession(context.Background(), 25)
	if !errors.Is(err, ErrPersist) {
		t.Fatalf("expected ErrPersist, got %v", err)
	}
	if got.SessionsToday != 1 || s.Current().SessionsToday != 1 {
		t.Fatalf("expected in-memory increment despite failure, got %+v", got)
	}
}

func TestStatsSurviveReloadOnSQLite(t *testing.T) {
	kv, err := store.NewSQLite(t.TempDir() + "/focus.db")
	if err != nil {
		t.Fatalf("NewSQLite failed: %v", err)
	}
	defer func() { _ = kv.Close() }()

	ctx := context.Background()
	first := New(kv, WithClock(fixedDay(2024, 1, 2)))
	first.Load(ctx)
	if _, err := first.RecordCompletedFocusSession(ctx, 25); err != nil {
		t.Fatalf("record failed: %v", err)
	}

	second := New(kv, WithClock(fixedDay(2024, 1, 2)))
	if got := second.Load(ctx); got.SessionsToday != 1 || got.TotalMinutesToday != 25 {
		t.Fatalf("expected persisted stats, got %+v", got)
	}

	nextDay := New(kv, WithClock(fixedDay(2024, 1, 3)))
	if got := nextDay.Load(ctx); got.SessionsToday != 0 || got.LastSessionDate != "2024-01-03" {
		t.Fatalf("expected reset on next day, got %+v", got)
	}
}

func TestClearRemovesRecord(t *testing.T) {
	kv := newFakeKV()
	s := New(kv, WithClock(fixedDay(2024, 1, 2)))
	s.Load(context.Background())
	if _, err := s.RecordCompletedFocusSession(context.Background(), domain.FocusMinutes); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if err := s.Clear(context.Background()); err != nil {
		t.Fatalf("Clear failed: %v", err)
	}
	want := domain.DailyStats{LastSessionDate: "2024-01-02"}
	if got := s.Current(); got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
	if _, err := kv.Get(context.Background(), Key); !errors.Is(err, store.ErrNotFound) {
		t.Fatalf("expected record deleted, got %v", err)
	}
}
