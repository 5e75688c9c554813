package domain

import "time"

// DateLayout is the calendar-date text form stored with daily stats.
const DateLayout = "2006-01-02"

// DailyStats holds focus counters for a single calendar day.
type DailyStats struct {
	SessionsToday     int    `json:"sessionsToday"`
	TotalMinutesToday int    `json:"totalMinutesToday"`
	LastSessionDate   string `json:"lastSessionDate"`
}

// NewDailyStats returns zeroed counters dated on the given day.
func NewDailyStats(day time.Time) DailyStats {
	return DailyStats{LastSessionDate: day.Format(DateLayout)}
}

// IsFor reports whether the stats belong to the calendar day of t.
func (s DailyStats) IsFor(t time.Time) bool {
	return s.LastSessionDate == t.Format(DateLayout)
}
