package repository

import (
	"context"

	"github.com/talentlink/messenger/models"
)

// ConversationCacheRepository, son başarılı konuşma listesi snapshot'ını
// oturum sahibine göre saklar. Uygulama açılışında ağ cevabı gelene kadar
// gösterilecek liste buradan okunur.
type ConversationCacheRepository interface {
	// ReplaceAll, ownerID'nin önceki snapshot'ını atomik olarak list ile değiştirir.
	ReplaceAll(ctx context.Context, ownerID int64, list []models.Conversation) error
	// List, snapshot'ı en yeni mesaj önce olacak şekilde döner. Boşsa boş slice.
	List(ctx context.Context, ownerID int64) ([]models.Conversation, error)
	// Clear, tüm sahiplerin snapshot'larını siler (logout).
	Clear(ctx context.Context) error
}
