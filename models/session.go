package models

import "time"

// Session, giriş yapmış kullanıcının oturumu.
//
// Token backend'in verdiği uzun ömürlü bearer token'dır. Diğer alanlar
// token'ın claim'lerinden okunur (imza doğrulanmadan: doğrulama sunucunun işi);
// token JWT değilse boş kalabilirler.
type Session struct {
	Token     string
	UserID    int64
	Username  string
	Role      UserRole
	ExpiresAt *time.Time // nil = süresiz / bilinmiyor
}

// Expired, oturum now itibarıyla süresi dolmuş mu?
func (s *Session) Expired(now time.Time) bool {
	return s.ExpiresAt != nil && !now.Before(*s.ExpiresAt)
}

// StoredSession, session tablosundaki satır. Token şifrelenmiş halde tutulur.
type StoredSession struct {
	EncryptedToken string
	UserID         int64
	Username       string
	Role           UserRole
	ExpiresAt      *time.Time
	UpdatedAt      time.Time
}

// TicketTTL, real-time kanal ticket'ının client tarafında geçerli sayıldığı süre.
// Sunucu daha kısa tutabilir; bu değer sadece bayat ticket ile dial etmemek için.
const TicketTTL = 30 * time.Second

// Ticket, session token'ını WebSocket URL'ine koymadan real-time kanala
// bağlanmak için alınan kısa ömürlü, tek kullanımlık token.
type Ticket struct {
	Value    string    `json:"ticket"`
	IssuedAt time.Time `json:"-"`
}

// Expired, ticket artık kullanılmamalı mı?
func (t *Ticket) Expired(now time.Time) bool {
	return t.Value == "" || now.Sub(t.IssuedAt) >= TicketTTL
}
