// Package repository persists chat user profiles.
package repository

import (
	"context"

	"groupwarden/internal/user/domain"
)

// Repository stores the last-seen identity of chat users per group.
type Repository interface {
	// Upsert inserts or refreshes a profile.
	Upsert(ctx context.Context, profile *domain.Profile) error
	// Get returns the profile, or nil if never seen.
	Get(ctx context.Context, tenantID, groupID, userID string) (*domain.Profile, error)
	// GetMany returns the known profiles for the given user ids, keyed by user id.
	// Unknown ids are simply absent from the result.
	GetMany(ctx context.Context, tenantID, groupID string, userIDs []string) (map[string]*domain.Profile, error)
}
