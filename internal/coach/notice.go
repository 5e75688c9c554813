package coach

import (
	"errors"

	"github.com/ashureev/focusbooster/internal/domain"
)

// NoticeKind classifies a user-facing notice.
type NoticeKind string

const (
	NoticeRateLimited NoticeKind = "rate_limited"
	NoticeQuota       NoticeKind = "quota_exhausted"
	NoticeUnavailable NoticeKind = "unavailable"
)

// NoticeFor maps a Send error to the notice shown to the user.
func NoticeFor(kind domain.RequestKind, err error) (NoticeKind, string) {
	switch {
	case errors.Is(err, ErrRateLimited):
		return NoticeRateLimited, "Rate limit exceeded. Please try again later."
	case errors.Is(err, ErrQuotaExhausted):
		return NoticeQuota, "AI credits depleted. Please add credits to continue."
	case kind == domain.KindMotivation:
		return NoticeUnavailable, "Couldn't fetch motivation message"
	default:
		return NoticeUnavailable, "Failed to send message"
	}
}
