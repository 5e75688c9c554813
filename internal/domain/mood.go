package domain

import (
	"fmt"
	"strings"
)

// Mood is the user-declared affect tag. It only shapes the coach's tone.
type Mood string

const (
	MoodUnset   Mood = ""
	MoodHappy   Mood = "happy"
	MoodNeutral Mood = "neutral"
	MoodTired   Mood = "tired"
)

// ParseMood converts user input into a Mood. Empty input clears the mood.
func ParseMood(s string) (Mood, error) {
	switch m := Mood(strings.ToLower(strings.TrimSpace(s))); m {
	case MoodUnset, MoodHappy, MoodNeutral, MoodTired:
		return m, nil
	default:
		return MoodUnset, fmt.Errorf("unknown mood %q", s)
	}
}

// WireValue is the mood as sent to the coach relay; an unset mood is neutral.
func (m Mood) WireValue() string {
	if m == MoodUnset {
		return string(MoodNeutral)
	}
	return string(m)
}
