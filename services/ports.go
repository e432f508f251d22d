package services

import (
	"context"

	"github.com/talentlink/messenger/models"
)

// Service'ler *api.Client'a doğrudan bağlı değildir: her biri sadece
// kullandığı endpoint'leri tanımlayan küçük bir interface alır.
// *api.Client hepsini karşılar; testler in-memory fake geçer.

// ConversationAPI, ConversationStore'un backend ihtiyaçları.
type ConversationAPI interface {
	ListConversations(ctx context.Context) ([]models.Conversation, error)
	MarkRead(ctx context.Context, counterpartID int64) error
	UnreadCount(ctx context.Context) (int, error)
}

// ThreadAPI, ThreadFetcher'ın backend ihtiyacı.
type ThreadAPI interface {
	GetThread(ctx context.Context, counterpartID int64, skip, limit int) ([]models.Message, error)
}

// SendAPI, Composer'ın backend ihtiyacı.
type SendAPI interface {
	SendMessage(ctx context.Context, req models.SendMessageRequest) (*models.Message, error)
}

// SearchAPI, UserSearch'ün backend ihtiyacı.
type SearchAPI interface {
	SearchUsers(ctx context.Context, q string, limit, offset int) ([]models.UserSummary, error)
}

// SessionReader, oturumun salt-okunur görünümü. SessionService bunu karşılar.
type SessionReader interface {
	Current() (*models.Session, bool)
}
