package repository

import (
	"context"
	"time"

	"groupwarden/internal/deadline/domain"
)

// Registry is the durable deadline registry. Setting a key replaces any prior
// entry for it; deletes are idempotent. Entries must survive process restart:
// an entry set before a crash is still returned by List after startup.
type Registry interface {
	// Set arms a deadline of the given magnitude for the group, replacing any
	// existing entry, and returns the absolute fire time.
	Set(ctx context.Context, tenantID, groupID string, seconds int64) (time.Time, error)
	// Get returns the live entry for the group, or nil when none is armed.
	Get(ctx context.Context, tenantID, groupID string) (*domain.Entry, error)
	// Cancel removes the entry if present. Cancelling an absent entry is a no-op.
	Cancel(ctx context.Context, tenantID, groupID string) error
	// RemoveIfPresent is the idempotent post-fire delete used by the scheduler.
	RemoveIfPresent(ctx context.Context, tenantID, groupID string) error
	// List enumerates the tenant's live entries; used only at startup recovery.
	List(ctx context.Context, tenantID string) ([]domain.Entry, error)
}
