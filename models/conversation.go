package models

import (
	"sort"
	"time"
)

// Conversation, tek bir karşı tarafla olan tüm mesajlaşmanın özet görünümü.
// Backend her karşı taraf için tek bir kayıt döner (counterpart başına unique).
//
// Liste görünümünde LastMessageAt'e göre azalan sırada gösterilir (bkz. SortConversations).
type Conversation struct {
	CounterpartID      int64     `json:"user_id"`
	DisplayName        string    `json:"username"`
	LastMessagePreview string    `json:"last_message"`
	LastMessageAt      time.Time `json:"last_message_time"`
	UnreadCount        int       `json:"unread_count"`

	// Pending, aramadan seçilmiş ama henüz hiç mesaj gönderilmemiş (sunucuda
	// konuşması olmayan) karşı taraf için sentezlenen placeholder'ı işaretler.
	// Sunucudan gelmez, JSON'a yazılmaz.
	Pending bool `json:"-"`
}

// Normalize, sunucudan gelen değeri invariant'lara uydurur.
// Okunmamış sayısı negatif olamaz.
func (c *Conversation) Normalize() {
	if c.UnreadCount < 0 {
		c.UnreadCount = 0
	}
}

// NewPlaceholderConversation, arama sonucundan seçilen ve listede olmayan
// kullanıcı için boş bir konuşma girişi oluşturur.
func NewPlaceholderConversation(u UserSummary) Conversation {
	return Conversation{
		CounterpartID: u.ID,
		DisplayName:   u.Username,
		Pending:       true,
	}
}

// SortConversations, son mesaj zamanına göre yeniden eskiye sıralar.
// Eşitlikte counterpart ID küçük olan önce: sıralama deterministik kalır.
func SortConversations(list []Conversation) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].LastMessageAt.Equal(list[j].LastMessageAt) {
			return list[i].LastMessageAt.After(list[j].LastMessageAt)
		}
		return list[i].CounterpartID < list[j].CounterpartID
	})
}

// FindConversation, listede counterpart'ı arar.
func FindConversation(list []Conversation, counterpartID int64) (Conversation, bool) {
	for _, c := range list {
		if c.CounterpartID == counterpartID {
			return c, true
		}
	}
	return Conversation{}, false
}

// UnreadSummary, GET /messages/unread-count yanıtı.
type UnreadSummary struct {
	Count int `json:"unread_count"`
}
