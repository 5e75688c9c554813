package domain

// Role identifies the author of a chat message.
type Role string

const (
	RoleUser      Role = "user"
	RoleAssistant Role = "assistant"
	RoleSystem    Role = "system"
)

// ChatMessage is a single transcript entry. Entries are never mutated.
type ChatMessage struct {
	Role    Role   `json:"role"`
	Content string `json:"content"`
}

// RequestKind selects how the coach answers.
type RequestKind string

const (
	KindChat       RequestKind = "chat"
	KindMotivation RequestKind = "motivation"
)
