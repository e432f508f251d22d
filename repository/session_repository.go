package repository

import (
	"context"

	"github.com/talentlink/messenger/models"
)

// SessionRepository, cihazda kalıcı tutulan tek oturum için interface.
// Aynı anda en fazla bir oturum vardır: Save öncekinin üzerine yazar.
type SessionRepository interface {
	Save(ctx context.Context, session *models.StoredSession) error
	// Get, oturum yoksa pkg.ErrNotFound döner.
	Get(ctx context.Context) (*models.StoredSession, error)
	Delete(ctx context.Context) error
}
