package coach

import (
	"errors"
	"strings"

	"github.com/ashureev/focusbooster/internal/domain"
)

var (
	// ErrBusy is returned when a send is attempted while one is in flight.
	ErrBusy = errors.New("a coach request is already in flight")
	// ErrEmptyMessage is returned for blank user input.
	ErrEmptyMessage = errors.New("message is required")
)

// MotivationPrefix marks assistant messages produced after a focus session.
const MotivationPrefix = "✨ "

// Transcript is the in-memory chat log plus the busy flag.
// Messages are append-only. It is not safe for concurrent use.
type Transcript struct {
	messages []domain.ChatMessage
	busy     bool
}

// Messages returns a copy of the transcript.
func (t *Transcript) Messages() []domain.ChatMessage {
	out := make([]domain.ChatMessage, len(t.messages))
	copy(out, t.messages)
	return out
}

// Len returns the number of messages.
func (t *Transcript) Len() int {
	return len(t.messages)
}

// Busy reports whether a request is in flight.
func (t *Transcript) Busy() bool {
	return t.busy
}

// BeginChat appends the user's message and returns the history to send.
func (t *Transcript) BeginChat(text string) ([]domain.ChatMessage, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, ErrEmptyMessage
	}
	if t.busy {
		return nil, ErrBusy
	}
	t.messages = append(t.messages, domain.ChatMessage{Role: domain.RoleUser, Content: text})
	t.busy = true
	return t.Messages(), nil
}

// BeginMotivation marks a motivation request in flight. Its history is empty.
func (t *Transcript) BeginMotivation() error {
	if t.busy {
		return ErrBusy
	}
	t.busy = true
	return nil
}

// Complete appends the assistant reply and clears the busy flag.
func (t *Transcript) Complete(kind domain.RequestKind, reply string) {
	t.busy = false
	if kind == domain.KindMotivation {
		reply = MotivationPrefix + reply
	}
	t.messages = append(t.messages, domain.ChatMessage{Role: domain.RoleAssistant, Content: reply})
}

// Fail clears the busy flag without appending anything.
func (t *Transcript) Fail() {
	t.busy = false
}
