package relay

import (
	"strings"

	"github.com/ashureev/focusbooster/internal/domain"
)

const basePrompt = "You are a helpful AI productivity coach for FocusBooster AI. "

// SystemPrompt builds the system instruction for a request kind and the
// mood sent by the client.
func SystemPrompt(kind domain.RequestKind, mood string) string {
	var b strings.Builder
	b.WriteString(basePrompt)

	if kind == domain.KindMotivation {
		b.WriteString("Provide a short, inspiring motivational message (1-2 sentences) after a completed Pomodoro session. ")
		switch domain.Mood(mood) {
		case domain.MoodTired:
			b.WriteString("The user is tired, so be gentle and encouraging.")
		case domain.MoodHappy:
			b.WriteString("The user is happy and energized, match their enthusiasm!")
		default:
			b.WriteString("Keep it balanced and supportive.")
		}
		return b.String()
	}

	b.WriteString("Help users with productivity tips, focus strategies, and motivational advice. Keep responses concise and actionable. ")
	if mood != "" {
		b.WriteString("The user's current mood is: ")
		b.WriteString(mood)
		b.WriteString(". Adjust your tone accordingly.")
	}
	return b.String()
}

// BuildMessages prepends the system prompt to the conversation.
func BuildMessages(kind domain.RequestKind, mood string, history []domain.ChatMessage) []domain.ChatMessage {
	out := make([]domain.ChatMessage, 0, len(history)+1)
	out = append(out, domain.ChatMessage{Role: domain.RoleSystem, Content: SystemPrompt(kind, mood)})
	return append(out, history...)
}
