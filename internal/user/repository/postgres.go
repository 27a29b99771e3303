package repository

import (
	"context"
	"database/sql"

	"groupwarden/internal/user/domain"
)

// PostgresRepository implements Repository using PostgreSQL.
type PostgresRepository struct {
	db *sql.DB
}

// NewPostgresRepository creates a new PostgreSQL user repository.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

func (r *PostgresRepository) Upsert(ctx context.Context, profile *domain.Profile) error {
	query := `
		INSERT INTO chat_users (tenant_id, group_id, user_id, username, first_name, last_name, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, now())
		ON CONFLICT (tenant_id, group_id, user_id)
		DO UPDATE SET username = $4, first_name = $5, last_name = $6, updated_at = now()
	`
	_, err := r.db.ExecContext(ctx, query,
		profile.TenantID, profile.GroupID, profile.UserID,
		nullable(profile.Username), nullable(profile.FirstName), nullable(profile.LastName),
	)
	return err
}

func (r *PostgresRepository) Get(ctx context.Context, tenantID, groupID, userID string) (*domain.Profile, error) {
	query := `
		SELECT tenant_id, group_id, user_id, username, first_name, last_name
		FROM chat_users
		WHERE tenant_id = $1 AND group_id = $2 AND user_id = $3
	`
	row := r.db.QueryRowContext(ctx, query, tenantID, groupID, userID)
	p, err := scanProfile(row)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	return p, err
}

func (r *PostgresRepository) GetMany(ctx context.Context, tenantID, groupID string, userIDs []string) (map[string]*domain.Profile, error) {
	result := make(map[string]*domain.Profile, len(userIDs))
	if len(userIDs) == 0 {
		return result, nil
	}
	query := `
		SELECT tenant_id, group_id, user_id, username, first_name, last_name
		FROM chat_users
		WHERE tenant_id = $1 AND group_id = $2 AND user_id = ANY($3)
	`
	// pgx's stdlib driver encodes []string as text[] directly.
	rows, err := r.db.QueryContext(ctx, query, tenantID, groupID, userIDs)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	for rows.Next() {
		p, err := scanProfile(rows)
		if err != nil {
			return nil, err
		}
		result[p.UserID] = p
	}
	return result, rows.Err()
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanProfile(row rowScanner) (*domain.Profile, error) {
	var p domain.Profile
	var username, firstName, lastName sql.NullString
	if err := row.Scan(&p.TenantID, &p.GroupID, &p.UserID, &username, &firstName, &lastName); err != nil {
		return nil, err
	}
	p.Username = username.String
	p.FirstName = firstName.String
	p.LastName = lastName.String
	return &p, nil
}

func nullable(s string) any {
	if s == "" {
		return nil
	}
	return s
}
