// Package domain defines the group session lifecycle and its transition rules.
package domain

import (
	"strings"
	"time"
)

// Phase is a session's lifecycle stage.
type Phase string

const (
	PhaseIdle      Phase = "idle"
	PhaseTracking  Phase = "tracking"
	PhaseVerifying Phase = "verifying"
	PhaseClosed    Phase = "closed"
)

// Valid reports whether p is one of the four known phases.
func (p Phase) Valid() bool {
	switch p {
	case PhaseIdle, PhaseTracking, PhaseVerifying, PhaseClosed:
		return true
	}
	return false
}

// Session is the tracked lifecycle state of one group, identified by (tenant, group).
// Submissions and completions are only meaningful while the phase is Tracking or
// Verifying; entering Closed freezes them for reporting until the next start.
type Session struct {
	TenantID        string
	GroupID         string
	Phase           Phase
	StartedAt       *time.Time
	DeadlineSeconds *int64 // last-configured deadline magnitude, display only
}

// Submission records one user's link for the current session. At most one per
// user per session; a second link is rejected, not overwritten.
type Submission struct {
	UserID      string
	Link        string
	SubmittedAt time.Time
}

// CanStart reports whether a new tracking session may begin from p.
func CanStart(p Phase) bool {
	return p == PhaseIdle || p == PhaseClosed
}

// CanEnableVerification reports whether verification may be enabled from p.
func CanEnableVerification(p Phase) bool {
	return p == PhaseTracking
}

// CanClose reports whether close is a valid transition from p. Closed is
// included because close is idempotent: a manual close and a deadline fire may
// both target the same session.
func CanClose(p Phase) bool {
	return p == PhaseTracking || p == PhaseVerifying || p == PhaseClosed
}

// CanSubmit reports whether link submissions are accepted in p.
func CanSubmit(p Phase) bool {
	return p == PhaseTracking || p == PhaseVerifying
}

// CanSetDeadline reports whether a deadline may be set in p. Deadlines are
// only valid while verifying.
func CanSetDeadline(p Phase) bool {
	return p == PhaseVerifying
}

// completionTokens are the exact acknowledgement tokens accepted while verifying.
var completionTokens = map[string]struct{}{
	"ad":       {},
	"all done": {},
	"all dn":   {},
	"done":     {},
}

// IsCompletionToken reports whether text is an "all done" acknowledgement.
// Matching is exact after lowercasing and trimming; anything richer is left to
// upstream natural-language handling.
func IsCompletionToken(text string) bool {
	norm := strings.Join(strings.Fields(strings.ToLower(text)), " ")
	_, ok := completionTokens[norm]
	return ok
}
