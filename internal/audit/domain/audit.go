// Package domain defines the audit log entry recorded for moderator commands.
package domain

import "time"

// Entry is one audit record: who did what to which resource in which group.
type Entry struct {
	ID        string
	TenantID  string
	GroupID   string
	UserID    string
	Action    string
	Resource  string
	Metadata  string
	CreatedAt time.Time
}

// Actions recorded by the command layer.
const (
	ActionSessionStart       = "session.start"
	ActionSessionClose       = "session.close"
	ActionSessionEnd         = "session.end"
	ActionVerificationEnable = "verification.enable"
	ActionDeadlineSet        = "deadline.set"
	ActionDeadlineCancel     = "deadline.cancel"
	ActionCompletionAdd      = "completion.add"
	ActionCompletionRemove   = "completion.remove"
	ActionMuteBatch          = "mute.batch"
)
