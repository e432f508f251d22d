package models

import (
	"sort"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/talentlink/messenger/pkg"
)

// MaxMessageLength, tek mesajın rune cinsinden üst sınırı.
const MaxMessageLength = 2000

// Message, iki kullanıcı arasındaki tek bir mesaj.
// Oluşturulduktan sonra değişmez: client hiçbir alanını güncellemez,
// okunma durumu bile sunucudan yeniden çekilerek gelir.
type Message struct {
	ID         int64     `json:"id"`
	SenderID   int64     `json:"sender_id"`
	ReceiverID int64     `json:"receiver_id"`
	Content    string    `json:"content"`
	Timestamp  time.Time `json:"timestamp"`
	IsRead     bool      `json:"is_read"`
}

// Counterpart, selfID'nin bakış açısından karşı tarafın ID'si.
func (m Message) Counterpart(selfID int64) int64 {
	if m.SenderID == selfID {
		return m.ReceiverID
	}
	return m.SenderID
}

// Between, mesaj a ve b arasındaki konuşmaya mı ait? (sıra önemsiz)
func (m Message) Between(a, b int64) bool {
	return (m.SenderID == a && m.ReceiverID == b) || (m.SenderID == b && m.ReceiverID == a)
}

// SortMessages, thread'i eskiden yeniye sıralar.
// Fetch'lerin varış sırası değil, mesaj zamanı belirleyicidir.
func SortMessages(list []Message) {
	sort.SliceStable(list, func(i, j int) bool {
		if !list[i].Timestamp.Equal(list[j].Timestamp) {
			return list[i].Timestamp.Before(list[j].Timestamp)
		}
		return list[i].ID < list[j].ID
	})
}

// SendMessageRequest, POST /messages/send gövdesi.
type SendMessageRequest struct {
	ReceiverID int64  `json:"receiver_id"`
	Content    string `json:"content"`
}

// Validate, isteği gönderilmeden önce kontrol eder ve Content'i trim'ler.
// Hata her zaman *pkg.ValidationError'dır: istek hiç gönderilmez.
func (r *SendMessageRequest) Validate() error {
	if r.ReceiverID <= 0 {
		return pkg.NewValidationError("receiver_id", "a conversation target is required")
	}

	r.Content = strings.TrimSpace(r.Content)
	n := utf8.RuneCountInString(r.Content)
	if n == 0 {
		return pkg.NewValidationError("content", "message content is required")
	}
	if n > MaxMessageLength {
		return pkg.NewValidationError("content", "message content must be at most %d characters", MaxMessageLength)
	}
	return nil
}
