package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"groupwarden/internal/deadline/domain"
)

// PostgresRegistry stores deadlines as one row per tenant in the deadlines
// table: entries is a jsonb map from group_id to {"seconds": N, "timestamp": unix}.
// The single-row-per-tenant shape keeps the pending set inspectable and
// repairable with plain SQL.
type PostgresRegistry struct {
	db   *sql.DB
	nowF func() time.Time
}

// entryRecord is the stored value for one group.
type entryRecord struct {
	Seconds   int64 `json:"seconds"`
	Timestamp int64 `json:"timestamp"`
}

// NewPostgresRegistry returns a registry backed by the given db.
func NewPostgresRegistry(db *sql.DB) *PostgresRegistry {
	return &PostgresRegistry{db: db, nowF: time.Now}
}

// Set arms a deadline for the group, replacing any existing entry, and returns
// the absolute fire time. The merge happens in a single statement so concurrent
// writers for different groups of the same tenant cannot lose each other's entries.
func (r *PostgresRegistry) Set(ctx context.Context, tenantID, groupID string, seconds int64) (time.Time, error) {
	if seconds <= 0 {
		return time.Time{}, fmt.Errorf("deadline: seconds must be positive, got %d", seconds)
	}
	now := r.nowF().UTC().Truncate(time.Second)
	rec, err := json.Marshal(entryRecord{Seconds: seconds, Timestamp: now.Unix()})
	if err != nil {
		return time.Time{}, err
	}
	_, err = r.db.ExecContext(ctx,
		`INSERT INTO deadlines (tenant_id, entries)
		 VALUES ($1, jsonb_build_object($2::text, $3::jsonb))
		 ON CONFLICT (tenant_id)
		 DO UPDATE SET entries = deadlines.entries || excluded.entries`,
		tenantID, groupID, string(rec))
	if err != nil {
		return time.Time{}, err
	}
	return now.Add(time.Duration(seconds) * time.Second), nil
}

// Get returns the live entry for the group, or nil when none is armed.
func (r *PostgresRegistry) Get(ctx context.Context, tenantID, groupID string) (*domain.Entry, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT entries -> $2 FROM deadlines WHERE tenant_id = $1`,
		tenantID, groupID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	if len(raw) == 0 || string(raw) == "null" {
		return nil, nil
	}
	var rec entryRecord
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("deadline: corrupt entry for %s/%s: %w", tenantID, groupID, err)
	}
	return &domain.Entry{
		TenantID:  tenantID,
		GroupID:   groupID,
		Seconds:   rec.Seconds,
		CreatedAt: time.Unix(rec.Timestamp, 0).UTC(),
	}, nil
}

// Cancel removes the entry if present; absent entries are a no-op.
func (r *PostgresRegistry) Cancel(ctx context.Context, tenantID, groupID string) error {
	return r.RemoveIfPresent(ctx, tenantID, groupID)
}

// RemoveIfPresent deletes the group's entry from the tenant record. Idempotent.
func (r *PostgresRegistry) RemoveIfPresent(ctx context.Context, tenantID, groupID string) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE deadlines SET entries = entries - $2 WHERE tenant_id = $1`,
		tenantID, groupID)
	return err
}

// List enumerates the tenant's live entries for startup recovery.
func (r *PostgresRegistry) List(ctx context.Context, tenantID string) ([]domain.Entry, error) {
	var raw []byte
	err := r.db.QueryRowContext(ctx,
		`SELECT entries FROM deadlines WHERE tenant_id = $1`, tenantID).Scan(&raw)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, err
	}
	var records map[string]entryRecord
	if err := json.Unmarshal(raw, &records); err != nil {
		return nil, fmt.Errorf("deadline: corrupt registry for %s: %w", tenantID, err)
	}
	out := make([]domain.Entry, 0, len(records))
	for groupID, rec := range records {
		out = append(out, domain.Entry{
			TenantID:  tenantID,
			GroupID:   groupID,
			Seconds:   rec.Seconds,
			CreatedAt: time.Unix(rec.Timestamp, 0).UTC(),
		})
	}
	return out, nil
}
