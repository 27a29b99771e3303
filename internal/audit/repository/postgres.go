package repository

import (
	"context"
	"database/sql"

	"groupwarden/internal/audit/domain"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL audit repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Create(ctx context.Context, entry *domain.Entry) error {
	query := `
		INSERT INTO audit_logs (id, tenant_id, group_id, user_id, action, resource, metadata, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := r.db.ExecContext(ctx, query,
		entry.ID, entry.TenantID, entry.GroupID, entry.UserID,
		entry.Action, entry.Resource, entry.Metadata, entry.CreatedAt,
	)
	return err
}

func (r *PostgresRepository) ListByGroup(ctx context.Context, tenantID, groupID string, limit int) ([]*domain.Entry, error) {
	if limit <= 0 {
		limit = 50
	}
	query := `
		SELECT id, tenant_id, group_id, user_id, action, resource, metadata, created_at
		FROM audit_logs
		WHERE tenant_id = $1 AND group_id = $2
		ORDER BY created_at DESC
		LIMIT $3
	`
	rows, err := r.db.QueryContext(ctx, query, tenantID, groupID, limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var entries []*domain.Entry
	for rows.Next() {
		var e domain.Entry
		if err := rows.Scan(&e.ID, &e.TenantID, &e.GroupID, &e.UserID, &e.Action, &e.Resource, &e.Metadata, &e.CreatedAt); err != nil {
			return nil, err
		}
		entries = append(entries, &e)
	}
	return entries, rows.Err()
}
