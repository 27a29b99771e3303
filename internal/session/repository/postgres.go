package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"groupwarden/internal/session/domain"
)

// PostgresRepository persists sessions in the group_sessions, link_submissions,
// and completions tables.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository returns a session repository that uses the given db for persistence.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// Get returns the session for (tenantID, groupID), defaulting to Idle when no row exists.
func (r *PostgresRepository) Get(ctx context.Context, tenantID, groupID string) (*domain.Session, error) {
	s := &domain.Session{TenantID: tenantID, GroupID: groupID, Phase: domain.PhaseIdle}
	var phase string
	var startedAt sql.NullTime
	var deadlineSeconds sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT phase, started_at, deadline_seconds FROM group_sessions WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID,
	).Scan(&phase, &startedAt, &deadlineSeconds)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return s, nil
		}
		return nil, err
	}
	s.Phase = domain.Phase(phase)
	if startedAt.Valid {
		t := startedAt.Time
		s.StartedAt = &t
	}
	if deadlineSeconds.Valid {
		v := deadlineSeconds.Int64
		s.DeadlineSeconds = &v
	}
	return s, nil
}

// StartTracking moves the group to Tracking and clears prior submissions and
// completions in one transaction.
func (r *PostgresRepository) StartTracking(ctx context.Context, tenantID, groupID string, at time.Time) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_sessions (tenant_id, group_id, phase, started_at, deadline_seconds, updated_at)
		 VALUES ($1, $2, $3, $4, NULL, now())
		 ON CONFLICT (tenant_id, group_id)
		 DO UPDATE SET phase = $3, started_at = $4, deadline_seconds = NULL, updated_at = now()`,
		tenantID, groupID, string(domain.PhaseTracking), at)
	if err != nil {
		return err
	}
	if err := clearTrackingState(ctx, tx, tenantID, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

// SetPhase updates only the phase for the group.
func (r *PostgresRepository) SetPhase(ctx context.Context, tenantID, groupID string, phase domain.Phase) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO group_sessions (tenant_id, group_id, phase, updated_at)
		 VALUES ($1, $2, $3, now())
		 ON CONFLICT (tenant_id, group_id) DO UPDATE SET phase = $3, updated_at = now()`,
		tenantID, groupID, string(phase))
	return err
}

// SetDeadlineSeconds records the last-configured deadline magnitude for display.
func (r *PostgresRepository) SetDeadlineSeconds(ctx context.Context, tenantID, groupID string, seconds int64) error {
	_, err := r.db.ExecContext(ctx,
		`UPDATE group_sessions SET deadline_seconds = $3, updated_at = now()
		 WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID, seconds)
	return err
}

// Reset returns the group to Idle and clears all session state in one transaction.
func (r *PostgresRepository) Reset(ctx context.Context, tenantID, groupID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx,
		`INSERT INTO group_sessions (tenant_id, group_id, phase, started_at, deadline_seconds, updated_at)
		 VALUES ($1, $2, $3, NULL, NULL, now())
		 ON CONFLICT (tenant_id, group_id)
		 DO UPDATE SET phase = $3, started_at = NULL, deadline_seconds = NULL, updated_at = now()`,
		tenantID, groupID, string(domain.PhaseIdle))
	if err != nil {
		return err
	}
	if err := clearTrackingState(ctx, tx, tenantID, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

// ClearSubmissions removes all submissions and completions for the group.
func (r *PostgresRepository) ClearSubmissions(ctx context.Context, tenantID, groupID string) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()
	if err := clearTrackingState(ctx, tx, tenantID, groupID); err != nil {
		return err
	}
	return tx.Commit()
}

// AddSubmission records the user's link. Returns false when the user already
// submitted in this session (first link wins).
func (r *PostgresRepository) AddSubmission(ctx context.Context, tenantID, groupID, userID, link string, at time.Time) (bool, error) {
	res, err := r.db.ExecContext(ctx,
		`INSERT INTO link_submissions (tenant_id, group_id, user_id, link, submitted_at)
		 VALUES ($1, $2, $3, $4, $5)
		 ON CONFLICT (tenant_id, group_id, user_id) DO NOTHING`,
		tenantID, groupID, userID, link, at)
	if err != nil {
		return false, err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

// ListSubmissions returns all submissions for the group ordered by submission time.
func (r *PostgresRepository) ListSubmissions(ctx context.Context, tenantID, groupID string) ([]domain.Submission, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id, link, submitted_at FROM link_submissions
		 WHERE tenant_id = $1 AND group_id = $2 ORDER BY submitted_at`,
		tenantID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.Submission
	for rows.Next() {
		var s domain.Submission
		if err := rows.Scan(&s.UserID, &s.Link, &s.SubmittedAt); err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// CountSubmissions returns the number of users with a recorded link.
func (r *PostgresRepository) CountSubmissions(ctx context.Context, tenantID, groupID string) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT count(*) FROM link_submissions WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID).Scan(&n)
	return n, err
}

// MarkComplete records the user's acknowledgement. Idempotent per user.
func (r *PostgresRepository) MarkComplete(ctx context.Context, tenantID, groupID, userID string, at time.Time) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO completions (tenant_id, group_id, user_id, completed_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (tenant_id, group_id, user_id) DO NOTHING`,
		tenantID, groupID, userID, at)
	return err
}

// RemoveCompletion withdraws a user's acknowledgement; absent rows are a no-op.
func (r *PostgresRepository) RemoveCompletion(ctx context.Context, tenantID, groupID, userID string) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM completions WHERE tenant_id = $1 AND group_id = $2 AND user_id = $3`,
		tenantID, groupID, userID)
	return err
}

// ListCompleted returns the user IDs that acknowledged completion.
func (r *PostgresRepository) ListCompleted(ctx context.Context, tenantID, groupID string) ([]string, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT user_id FROM completions WHERE tenant_id = $1 AND group_id = $2`,
		tenantID, groupID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, err
		}
		out = append(out, id)
	}
	return out, rows.Err()
}

func clearTrackingState(ctx context.Context, tx *sql.Tx, tenantID, groupID string) error {
	if _, err := tx.ExecContext(ctx,
		`DELETE FROM link_submissions WHERE tenant_id = $1 AND group_id = $2`, tenantID, groupID); err != nil {
		return err
	}
	_, err := tx.ExecContext(ctx,
		`DELETE FROM completions WHERE tenant_id = $1 AND group_id = $2`, tenantID, groupID)
	return err
}
