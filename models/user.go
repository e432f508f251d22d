package models

import (
	"strings"
	"unicode/utf8"

	"github.com/talentlink/messenger/pkg"
)

// UserRole, pazaryerindeki iki kullanıcı tipi.
type UserRole string

const (
	RoleClient     UserRole = "client"
	RoleFreelancer UserRole = "freelancer"
)

// MinSearchQueryLength, kullanıcı araması için minimum sorgu uzunluğu (rune).
// Daha kısa sorgular tüm kullanıcı tabanını listelemeye döner; backend de
// bunları validation error ile reddeder.
const MinSearchQueryLength = 2

// UserSummary, GET /messages/users arama sonucu.
// Geçicidir: sadece arama oturumu boyunca bellekte yaşar.
type UserSummary struct {
	ID       int64    `json:"id"`
	Username string   `json:"username"`
	Role     UserRole `json:"role"`
}

// ValidateSearchQuery, trim edilmiş sorgunun aranabilir olup olmadığını kontrol eder.
func ValidateSearchQuery(q string) error {
	if utf8.RuneCountInString(strings.TrimSpace(q)) < MinSearchQueryLength {
		return pkg.NewValidationError("q", "search query must be at least %d characters", MinSearchQueryLength)
	}
	return nil
}
