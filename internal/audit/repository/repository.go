// Package repository persists audit entries.
package repository

import (
	"context"

	"groupwarden/internal/audit/domain"
)

// Repository stores audit entries.
type Repository interface {
	Create(ctx context.Context, entry *domain.Entry) error
	// ListByGroup returns the most recent entries for a group, newest first.
	ListByGroup(ctx context.Context, tenantID, groupID string, limit int) ([]*domain.Entry, error)
}
