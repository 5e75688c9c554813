// Package domain contains core domain types for the FocusBooster service.
package domain

// Phase is the current step of a pomodoro cycle.
type Phase string

const (
	PhaseIdle  Phase = "idle"
	PhaseFocus Phase = "focus"
	PhaseBreak Phase = "break"
)

// Fixed phase lengths in seconds.
const (
	FocusSeconds = 25 * 60
	BreakSeconds = 5 * 60
)

// FocusMinutes is credited to the daily stats for each completed focus phase.
const FocusMinutes = FocusSeconds / 60

// SessionState is a point-in-time copy of the timer.
type SessionState struct {
	Phase           Phase `json:"phase"`
	TimeLeftSeconds int   `json:"time_left_seconds"`
	IsRunning       bool  `json:"is_running"`
}

// PhaseDuration returns the full length of a phase in seconds.
// Idle displays a full focus countdown.
func PhaseDuration(p Phase) int {
	if p == PhaseBreak {
		return BreakSeconds
	}
	return FocusSeconds
}
