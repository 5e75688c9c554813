package timer

import (
	"testing"

	"github.com/ashureev/focusbooster/internal/domain"
)

func TestNewMachineIsIdle(t *testing.T) {
	m := New()
	got := m.Snapshot()
	want := domain.SessionState{Phase: domain.PhaseIdle, TimeLeftSeconds: 1500}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestStartFromIdleThenFullFocus(t *testing.T) {
	m := New()
	m.Start()

	completions := 0
	prev := m.Snapshot().TimeLeftSeconds
	for i := 0; i < 1500; i++ {
		ev := m.Tick()
		if ev == EventFocusCompleted {
			completions++
			continue
		}
		cur := m.Snapshot().TimeLeftSeconds
		if cur >= prev {
			t.Fatalf("tick %d: time left did not decrease (%d -> %d)", i, prev, cur)
		}
		prev = cur
	}

	if completions != 1 {
		t.Fatalf("expected exactly one focus completion, got %d", completions)
	}
	got := m.Snapshot()
	want := domain.SessionState{Phase: domain.PhaseBreak, TimeLeftSeconds: 300, IsRunning: true}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}
}

func TestFocusCompletionFiresOnce(t *testing.T) {
	m := New()
	m.Start()

	completions := 0
	// Run well past the boundary; the break continues counting down.
	for i := 0; i < 1600; i++ {
		if m.Tick() == EventFocusCompleted {
			completions++
		}
	}
	if completions != 1 {
		t.Fatalf("expected one completion across the boundary, got %d", completions)
	}
}

func TestBreakEndsIdle(t *testing.T) {
	m := New()
	m.Start()
	for i := 0; i < 1500; i++ {
		m.Tick()
	}

	var last Event
	for i := 0; i < 300; i++ {
		last = m.Tick()
	}
	if last != EventBreakCompleted {
		t.Fatalf("expected break completion on the final tick, got %s", last)
	}
	got := m.Snapshot()
	want := domain.SessionState{Phase: domain.PhaseIdle, TimeLeftSeconds: 1500}
	if got != want {
		t.Fatalf("expected %+v, got %+v", want, got)
	}

	if ev := m.Tick(); ev != EventNone {
		t.Fatalf("idle machine must not tick, got %s", ev)
	}
}

func TestResetIsIdempotent(t *testing.T) {
	m := New()
	m.Start()
	for i := 0; i < 42; i++ {
		m.Tick()
	}

	m.Reset()
	once := m.Snapshot()
	m.Reset()
	twice := m.Snapshot()

	want := domain.SessionState{Phase: domain.PhaseIdle, TimeLeftSeconds: 1500}
	if once != want || twice != want {
		t.Fatalf("expected %+v after reset, got %+v then %+v", want, once, twice)
	}
}

func TestPauseResume(t *testing.T) {
	m := New()
	m.Start()
	for i := 0; i < 100; i++ {
		m.Tick()
	}
	m.Pause()
	paused := m.Snapshot()

	if paused.IsRunning {
		t.Fatal("expected paused machine to stop running")
	}
	if ev := m.Tick(); ev != EventNone || m.Snapshot() != paused {
		t.Fatal("paused machine must ignore ticks")
	}

	m.Start()
	resumed := m.Snapshot()
	if resumed.Phase != paused.Phase || resumed.TimeLeftSeconds != paused.TimeLeftSeconds {
		t.Fatalf("resume lost state: paused %+v, resumed %+v", paused, resumed)
	}
	if !resumed.IsRunning {
		t.Fatal("expected resumed machine to run")
	}
}

func TestStartWhileRunningIsNoop(t *testing.T) {
	m := New()
	m.Start()
	m.Tick()
	before := m.Snapshot()
	m.Start()
	if m.Snapshot() != before {
		t.Fatalf("expected start while running to keep %+v, got %+v", before, m.Snapshot())
	}
}

func TestFormatClock(t *testing.T) {
	tests := map[int]string{
		1500: "25:00",
		300:  "05:00",
		61:   "01:01",
		0:    "00:00",
		-5:   "00:00",
	}
	for in, want := range tests {
		if got := FormatClock(in); got != want {
			t.Errorf("FormatClock(%d) = %q, want %q", in, got, want)
		}
	}
}
