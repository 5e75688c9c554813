// Package timer implements the pomodoro countdown state machine.
package timer

import (
	"fmt"

	"github.com/ashureev/focusbooster/internal/domain"
)

// Event is the outcome of a single tick.
type Event int

const (
	EventNone Event = iota
	// EventFocusCompleted fires once when a focus phase runs out.
	EventFocusCompleted
	// EventBreakCompleted fires once when a break runs out.
	EventBreakCompleted
)

func (e Event) String() string {
	switch e {
	case EventFocusCompleted:
		return "focus_completed"
	case EventBreakCompleted:
		return "break_completed"
	default:
		return "none"
	}
}

// Machine owns the phase, countdown and running flag.
// It performs no I/O and is not safe for concurrent use; a single owner
// drives it.
type Machine struct {
	phase    domain.Phase
	timeLeft int
	running  bool
}

// New returns an idle machine showing a full focus countdown.
func New() *Machine {
	return &Machine{
		phase:    domain.PhaseIdle,
		timeLeft: domain.PhaseDuration(domain.PhaseIdle),
	}
}

// Start begins a focus phase when idle, otherwise resumes the current phase.
func (m *Machine) Start() {
	if m.phase == domain.PhaseIdle {
		m.phase = domain.PhaseFocus
		m.timeLeft = domain.PhaseDuration(domain.PhaseFocus)
	}
	m.running = true
}

// Pause stops the countdown without touching phase or time left.
func (m *Machine) Pause() {
	m.running = false
}

// Reset returns to an idle, stopped machine.
func (m *Machine) Reset() {
	m.running = false
	m.phase = domain.PhaseIdle
	m.timeLeft = domain.PhaseDuration(domain.PhaseIdle)
}

// Tick applies one elapsed second. It is a no-op unless running.
func (m *Machine) Tick() Event {
	if !m.running || m.phase == domain.PhaseIdle {
		return EventNone
	}

	m.timeLeft--
	if m.timeLeft > 0 {
		return EventNone
	}

	switch m.phase {
	case domain.PhaseFocus:
		m.phase = domain.PhaseBreak
		m.timeLeft = domain.PhaseDuration(domain.PhaseBreak)
		return EventFocusCompleted
	default:
		m.phase = domain.PhaseIdle
		m.timeLeft = domain.PhaseDuration(domain.PhaseIdle)
		m.running = false
		return EventBreakCompleted
	}
}

// Snapshot returns a copy of the current state.
func (m *Machine) Snapshot() domain.SessionState {
	return domain.SessionState{
		Phase:           m.phase,
		TimeLeftSeconds: m.timeLeft,
		IsRunning:       m.running,
	}
}

// FormatClock renders seconds as MM:SS.
func FormatClock(seconds int) string {
	if seconds < 0 {
		seconds = 0
	}
	return fmt.Sprintf("%02d:%02d", seconds/60, seconds%60)
}
