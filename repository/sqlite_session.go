package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/talentlink/messenger/database"
	"github.com/talentlink/messenger/models"
	"github.com/talentlink/messenger/pkg"
)

// sqliteSessionRepo, SessionRepository interface'inin SQLite implementasyonu.
type sqliteSessionRepo struct {
	db database.TxQuerier
}

// NewSQLiteSessionRepo, constructor.
func NewSQLiteSessionRepo(db database.TxQuerier) SessionRepository {
	return &sqliteSessionRepo{db: db}
}

func (r *sqliteSessionRepo) Save(ctx context.Context, session *models.StoredSession) error {
	query := `
		INSERT INTO session (id, encrypted_token, user_id, username, role, expires_at, updated_at)
		VALUES (1, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			encrypted_token = excluded.encrypted_token,
			user_id = excluded.user_id,
			username = excluded.username,
			role = excluded.role,
			expires_at = excluded.expires_at,
			updated_at = excluded.updated_at`

	_, err := r.db.ExecContext(ctx, query,
		session.EncryptedToken,
		session.UserID,
		session.Username,
		string(session.Role),
		toNullMillis(session.ExpiresAt),
		toMillis(session.UpdatedAt),
	)
	if err != nil {
		return fmt.Errorf("failed to save session: %w", err)
	}
	return nil
}

func (r *sqliteSessionRepo) Get(ctx context.Context) (*models.StoredSession, error) {
	query := `
		SELECT encrypted_token, user_id, username, role, expires_at, updated_at
		FROM session WHERE id = 1`

	var (
		s         models.StoredSession
		role      string
		expiresAt sql.NullInt64
		updatedAt int64
	)
	err := r.db.QueryRowContext(ctx, query).Scan(
		&s.EncryptedToken, &s.UserID, &s.Username, &role, &expiresAt, &updatedAt,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, pkg.ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get session: %w", err)
	}

	s.Role = models.UserRole(role)
	s.ExpiresAt = fromNullMillis(expiresAt)
	s.UpdatedAt = fromMillis(updatedAt)
	return &s, nil
}

func (r *sqliteSessionRepo) Delete(ctx context.Context) error {
	if _, err := r.db.ExecContext(ctx, `DELETE FROM session WHERE id = 1`); err != nil {
		return fmt.Errorf("failed to delete session: %w", err)
	}
	return nil
}
