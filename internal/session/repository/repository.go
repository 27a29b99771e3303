package repository

import (
	"context"
	"time"

	"groupwarden/internal/session/domain"
)

// Repository is the authoritative store for group session state. All phase
// reads and writes go through it; callers serialize per (tenant, group).
type Repository interface {
	// Get returns the session for (tenantID, groupID). A group with no stored
	// row is an Idle session, never nil.
	Get(ctx context.Context, tenantID, groupID string) (*domain.Session, error)
	// StartTracking moves the group to Tracking at the given time and clears
	// all submissions and completions from any previous session.
	StartTracking(ctx context.Context, tenantID, groupID string, at time.Time) error
	// SetPhase updates only the phase.
	SetPhase(ctx context.Context, tenantID, groupID string, phase domain.Phase) error
	// SetDeadlineSeconds records the last-configured deadline magnitude for display.
	SetDeadlineSeconds(ctx context.Context, tenantID, groupID string, seconds int64) error
	// Reset returns the group to Idle and clears all session state.
	Reset(ctx context.Context, tenantID, groupID string) error
	// ClearSubmissions removes all submissions and completions for the group.
	ClearSubmissions(ctx context.Context, tenantID, groupID string) error

	// AddSubmission records one link for the user. Returns false if the user
	// already has a submission in this session; the first link wins.
	AddSubmission(ctx context.Context, tenantID, groupID, userID, link string, at time.Time) (bool, error)
	// ListSubmissions returns all submissions ordered by submission time.
	ListSubmissions(ctx context.Context, tenantID, groupID string) ([]domain.Submission, error)
	// CountSubmissions returns the number of users with a recorded link.
	CountSubmissions(ctx context.Context, tenantID, groupID string) (int, error)
	// MarkComplete records the user's "all done" acknowledgement. Idempotent.
	MarkComplete(ctx context.Context, tenantID, groupID, userID string, at time.Time) error
	// RemoveCompletion withdraws a user's acknowledgement. Missing rows are a no-op.
	RemoveCompletion(ctx context.Context, tenantID, groupID, userID string) error
	// ListCompleted returns the user IDs that acknowledged completion.
	ListCompleted(ctx context.Context, tenantID, groupID string) ([]string, error)
}
