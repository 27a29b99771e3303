// Package moderation applies chat restrictions to users in bulk.
package moderation

import (
	"context"
	"log"
	"time"

	"groupwarden/internal/chat"
	userdomain "groupwarden/internal/user/domain"
)

// DefaultMuteDuration is how long a muted user stays restricted.
const DefaultMuteDuration = 72 * time.Hour

// Result reports the outcome of a bulk mute: who was restricted (as
// chat mentions) and who could not be (as display names).
type Result struct {
	Muted  []string
	Failed []string
}

// Enforcer mutes users through the chat transport.
type Enforcer struct {
	transport chat.Transport
	nowF      func() time.Time
}

// NewEnforcer creates a mute enforcer.
func NewEnforcer(transport chat.Transport) *Enforcer {
	return &Enforcer{transport: transport, nowF: time.Now}
}

// MuteAll restricts every given user until now + duration. Each user is
// attempted independently: one failure never aborts the batch. Admins cannot
// be restricted by the chat platform; those failures land in Result.Failed
// like any other.
func (e *Enforcer) MuteAll(ctx context.Context, groupID string, profiles []*userdomain.Profile, duration time.Duration) Result {
	if duration <= 0 {
		duration = DefaultMuteDuration
	}
	until := e.nowF().Add(duration)

	var result Result
	for _, p := range profiles {
		if p == nil {
			continue
		}
		if err := e.transport.RestrictUser(ctx, groupID, p.UserID, until); err != nil {
			log.Printf("moderation: restrict user %s in group %s failed: %v", p.UserID, groupID, err)
			result.Failed = append(result.Failed, p.DisplayName())
			continue
		}
		result.Muted = append(result.Muted, p.Mention())
	}
	return result
}
