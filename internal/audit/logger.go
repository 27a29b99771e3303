// Package audit records moderator commands for later review. Recording is
// best-effort: a failed write is logged and never fails the command.
package audit

import (
	"context"
	"log"
	"time"

	"github.com/google/uuid"

	"groupwarden/internal/audit/domain"
	"groupwarden/internal/audit/repository"
)

// AuditLogger records audit entries.
type AuditLogger interface {
	Record(ctx context.Context, tenantID, groupID, userID, action, resource, metadata string)
}

// Logger implements AuditLogger on top of a repository.
type Logger struct {
	repo repository.Repository
}

// NewLogger creates an audit logger. repo may be nil, in which case Record is a no-op.
func NewLogger(repo repository.Repository) *Logger {
	return &Logger{repo: repo}
}

// Record writes one audit entry. Errors are logged, not returned.
func (l *Logger) Record(ctx context.Context, tenantID, groupID, userID, action, resource, metadata string) {
	if l == nil || l.repo == nil {
		return
	}
	entry := &domain.Entry{
		ID:        uuid.New().String(),
		TenantID:  tenantID,
		GroupID:   groupID,
		UserID:    userID,
		Action:    action,
		Resource:  resource,
		Metadata:  metadata,
		CreatedAt: time.Now().UTC(),
	}
	if err := l.repo.Create(ctx, entry); err != nil {
		log.Printf("audit: record %s failed: %v", action, err)
	}
}
