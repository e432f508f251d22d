package repository

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/talentlink/messenger/database"
	"github.com/talentlink/messenger/models"
)

type sqliteConversationCacheRepo struct {
	conn *sql.DB
}

// NewSQLiteConversationCacheRepo, constructor.
// ReplaceAll transaction açtığı için TxQuerier değil *sql.DB alır.
func NewSQLiteConversationCacheRepo(conn *sql.DB) ConversationCacheRepository {
	return &sqliteConversationCacheRepo{conn: conn}
}

func (r *sqliteConversationCacheRepo) ReplaceAll(ctx context.Context, ownerID int64, list []models.Conversation) error {
	return database.WithTx(ctx, r.conn, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM conversation_cache WHERE owner_id = ?`, ownerID); err != nil {
			return fmt.Errorf("failed to clear conversation cache: %w", err)
		}

		stmt, err := tx.PrepareContext(ctx, `
			INSERT INTO conversation_cache
				(owner_id, counterpart_id, display_name, last_message, last_message_at, unread_count)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT(owner_id, counterpart_id) DO NOTHING`)
		if err != nil {
			return fmt.Errorf("failed to prepare conversation insert: %w", err)
		}
		defer stmt.Close()

		for _, c := range list {
			if c.Pending {
				continue
			}
			if _, err := stmt.ExecContext(ctx,
				ownerID,
				c.CounterpartID,
				c.DisplayName,
				c.LastMessagePreview,
				toMillis(c.LastMessageAt),
				c.UnreadCount,
			); err != nil {
				return fmt.Errorf("failed to cache conversation %d: %w", c.CounterpartID, err)
			}
		}
		return nil
	})
}

func (r *sqliteConversationCacheRepo) List(ctx context.Context, ownerID int64) ([]models.Conversation, error) {
	rows, err := r.conn.QueryContext(ctx, `
		SELECT counterpart_id, display_name, last_message, last_message_at, unread_count
		FROM conversation_cache
		WHERE owner_id = ?
		ORDER BY last_message_at DESC, counterpart_id ASC`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("failed to list cached conversations: %w", err)
	}
	defer rows.Close()

	list := make([]models.Conversation, 0)
	for rows.Next() {
		var (
			c  models.Conversation
			at int64
		)
		if err := rows.Scan(&c.CounterpartID, &c.DisplayName, &c.LastMessagePreview, &at, &c.UnreadCount); err != nil {
			return nil, fmt.Errorf("failed to scan cached conversation: %w", err)
		}
		c.LastMessageAt = fromMillis(at)
		c.Normalize()
		list = append(list, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate cached conversations: %w", err)
	}
	return list, nil
}

func (r *sqliteConversationCacheRepo) Clear(ctx context.Context) error {
	if _, err := r.conn.ExecContext(ctx, `DELETE FROM conversation_cache`); err != nil {
		return fmt.Errorf("failed to clear conversation cache: %w", err)
	}
	return nil
}
